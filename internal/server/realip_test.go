package server

import (
	"net/http"
	"testing"
)

func TestExtractIP(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"192.168.1.1:12345", "192.168.1.1"},
		{"[::1]:12345", "::1"},
		{"localhost:4000", "localhost"},
		{"192.168.1.1", "192.168.1.1"},
	}

	for _, tt := range tests {
		if got := extractIP(tt.input); got != tt.want {
			t.Errorf("extractIP(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestGetRealIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		xri        string
		remoteAddr string
		want       string
	}{
		{"forwarded single", "203.0.113.50", "", "10.0.0.1:12345", "203.0.113.50"},
		{"forwarded chain uses first hop", "203.0.113.50, 70.41.3.18, 150.172.238.178", "", "10.0.0.1:12345", "203.0.113.50"},
		{"real ip header", "", "203.0.113.50", "10.0.0.1:12345", "203.0.113.50"},
		{"forwarded wins over real ip", "203.0.113.50", "198.51.100.25", "10.0.0.1:12345", "203.0.113.50"},
		{"blank forwarded entry falls through", " , 70.41.3.18", "198.51.100.25", "10.0.0.1:12345", "198.51.100.25"},
		{"socket address", "", "", "192.168.1.100:54321", "192.168.1.100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &http.Request{RemoteAddr: tt.remoteAddr, Header: make(http.Header)}
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}

			if got := getRealIP(req); got != tt.want {
				t.Errorf("getRealIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
