package compat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	chromeUA  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	firefoxUA = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
	safariUA  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15"
	oldFFUA   = "Mozilla/5.0 (Windows NT 6.1; rv:40.0) Gecko/20100101 Firefox/40.0"
	ieUA      = "Mozilla/5.0 (Windows NT 10.0; Trident/7.0; rv:11.0) like Gecko"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name       string
		ua         string
		browser    string
		compatible bool
	}{
		{"chrome", chromeUA, "Chrome", true},
		{"firefox", firefoxUA, "Firefox", true},
		{"safari", safariUA, "Safari", true},
		{"old firefox", oldFFUA, "Firefox", false},
		{"internet explorer", ieUA, "Internet Explorer", false},
		{"empty", "", "unknown", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := Detect(tt.ua)
			assert.Equal(t, tt.browser, info.Browser)
			assert.Equal(t, tt.compatible, info.WebRTCCompatible)
			if tt.compatible {
				assert.Contains(t, info.Features, "RTCPeerConnection")
				assert.Empty(t, info.Reason)
			} else {
				assert.NotEmpty(t, info.Reason)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Firefox 121", Label(firefoxUA))
	assert.Equal(t, "Chrome 120", Label(chromeUA))
	assert.Equal(t, "", Label(""))
}
