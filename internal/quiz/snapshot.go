package quiz

import (
	"fmt"
	"slices"
)

// Snapshot is the persisted form of an active session.
type Snapshot struct {
	Mode      Mode       `json:"mode"`
	Questions []Question `json:"questions"`
	Index     int        `json:"index"`
	Score     int        `json:"score"`
	Feedback  string     `json:"feedback,omitempty"`
}

// Snapshot captures the session state. Finished sessions have nothing to keep.
func (s *Session) Snapshot() (Snapshot, bool) {
	if s.done {
		return Snapshot{}, false
	}
	return Snapshot{
		Mode:      s.mode,
		Questions: slices.Clone(s.questions),
		Index:     s.index,
		Score:     s.score,
		Feedback:  s.feedback,
	}, true
}

// Restore rebuilds an active session from a snapshot. Questions are used in the
// stored order; mastery sorting already happened when the session started.
func Restore(snap Snapshot) (*Session, error) {
	if len(snap.Questions) == 0 {
		return nil, fmt.Errorf("%w: no questions", ErrInvalidSnapshot)
	}
	mode, err := ParseMode(string(snap.Mode))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if snap.Index < 0 || snap.Index >= len(snap.Questions) {
		return nil, fmt.Errorf("%w: index %d out of range [0,%d)", ErrInvalidSnapshot, snap.Index, len(snap.Questions))
	}
	if snap.Score < 0 || snap.Score > snap.Index+1 {
		return nil, fmt.Errorf("%w: score %d at index %d", ErrInvalidSnapshot, snap.Score, snap.Index)
	}

	return &Session{
		mode:      mode,
		questions: slices.Clone(snap.Questions),
		index:     snap.Index,
		score:     snap.Score,
		feedback:  snap.Feedback,
	}, nil
}
