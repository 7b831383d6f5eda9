package utility

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginChecker(t *testing.T) {
	check := OriginChecker([]string{"https://clinic.example.org"})

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"no origin header", "", true},
		{"same host", "http://assistant.local:8080", true},
		{"configured origin", "https://clinic.example.org", true},
		{"foreign origin", "https://evil.example.com", false},
		{"configured host wrong scheme", "http://clinic.example.org", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "http://assistant.local:8080/ws/chat", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, check(req))
		})
	}
}

func TestNewUpgraderUsesOriginChecker(t *testing.T) {
	up := NewUpgrader(nil)
	req := httptest.NewRequest("GET", "http://assistant.local/ws/chat", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, up.CheckOrigin(req))
}
