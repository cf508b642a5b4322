package cache

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid-redis", "redis://localhost:6379", false},
		{"valid-with-db", "redis://localhost:6379/0", false},
		{"empty", "", true},
		{"wrong scheme", "http://localhost:6379", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	ctx := t.Context()
	_, err := New(ctx, "redis://localhost:59999", "")
	if err == nil {
		t.Fatal("New() should return error for unreachable host")
	}
}

func TestNew_Miniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("s3cret")

	ctx := t.Context()
	if _, err := New(ctx, "redis://"+mr.Addr(), ""); err == nil {
		t.Fatal("New() without password should fail auth")
	}

	c, err := New(ctx, "redis://"+mr.Addr(), "s3cret")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	if err := c.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}
