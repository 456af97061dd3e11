package database

import (
	"context"
	"strings"
	"testing"
)

func TestNewRedisClients_Errors(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr string
	}{
		{"bad scheme", "not-a-url", "failed to parse Redis URL"},
		{"unreachable server", "redis://127.0.0.1:1/0", "failed to ping Redis (queue)"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clients, err := NewRedisClients(context.Background(), tc.url)
			if err == nil {
				clients.Close()
				t.Fatalf("expected an error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected %q in %q", tc.wantErr, err.Error())
			}
		})
	}
}
