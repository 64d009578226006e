// Package compat derives WebRTC compatibility hints from a User-Agent string.
// It is stateless and only ever annotates messages.
package compat

import (
	"strconv"
	"strings"

	"github.com/mssola/useragent"
)

// Info is the result served on /api/browser/compatibility
type Info struct {
	Browser          string   `json:"browser"`
	Version          string   `json:"version"`
	OS               string   `json:"os,omitempty"`
	Mobile           bool     `json:"mobile"`
	WebRTCCompatible bool     `json:"webrtcCompatible"`
	Features         []string `json:"features,omitempty"`
	Reason           string   `json:"reason,omitempty"`
}

// first major version with usable RTCPeerConnection + unified plan
var minMajor = map[string]int{
	"Chrome":   56,
	"Chromium": 56,
	"Firefox":  52,
	"Safari":   11,
	"Edge":     79,
	"Opera":    43,
}

// Detect parses ua and classifies it
func Detect(ua string) Info {
	if strings.TrimSpace(ua) == "" {
		return Info{Browser: "unknown", Reason: "missing user agent"}
	}

	parsed := useragent.New(ua)
	name, version := parsed.Browser()
	info := Info{
		Browser: name,
		Version: version,
		OS:      parsed.OS(),
		Mobile:  parsed.Mobile(),
	}
	if name == "" {
		info.Browser = "unknown"
	}

	if parsed.Bot() {
		info.Reason = "bot user agent"
		return info
	}

	required, known := minMajor[name]
	if !known {
		info.Reason = "unsupported browser"
		return info
	}
	major := majorVersion(version)
	if major < required {
		info.Reason = name + " " + strconv.Itoa(required) + " or newer is required"
		return info
	}

	info.WebRTCCompatible = true
	info.Features = []string{"getUserMedia", "RTCPeerConnection", "unifiedPlan"}
	if !info.Mobile {
		info.Features = append(info.Features, "getDisplayMedia")
	}
	return info
}

// Label is the short form used to annotate notifications, e.g. "Firefox 121"
func Label(ua string) string {
	info := Detect(ua)
	if info.Browser == "unknown" {
		return ""
	}
	if major := majorVersion(info.Version); major > 0 {
		return info.Browser + " " + strconv.Itoa(major)
	}
	return info.Browser
}

func majorVersion(v string) int {
	head, _, _ := strings.Cut(v, ".")
	n, err := strconv.Atoi(head)
	if err != nil {
		return 0
	}
	return n
}
