package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasher_StableAndKeyed(t *testing.T) {
	t.Parallel()

	h := NewHasher([]byte("secret-a"))
	fp1 := h.Fingerprint("Mozilla/5.0 (Windows NT 10.0) Chrome/126.0")
	fp2 := h.Fingerprint("Mozilla/5.0 (Windows NT 10.0) Chrome/126.0")
	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 64)

	other := NewHasher([]byte("secret-b"))
	assert.NotEqual(t, fp1, other.Fingerprint("Mozilla/5.0 (Windows NT 10.0) Chrome/126.0"))

	assert.NotEqual(t, fp1, h.Fingerprint("Mozilla/5.0 (Macintosh) Safari/605.1"))
}

func TestHasher_TrimsWhitespace(t *testing.T) {
	t.Parallel()

	h := NewHasher([]byte("secret"))
	assert.Equal(t, h.Fingerprint("descriptor"), h.Fingerprint("  descriptor \n"))
}

func TestParseLabels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		descriptor string
		browser    string
		os         string
	}{
		{
			name:       "chrome on windows",
			descriptor: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/126.0 Safari/537.36",
			browser:    "Chrome",
			os:         "Windows",
		},
		{
			name:       "edge is not chrome",
			descriptor: "Mozilla/5.0 (Windows NT 10.0) Chrome/126.0 Safari/537.36 Edg/126.0",
			browser:    "Edge",
			os:         "Windows",
		},
		{
			name:       "safari on iphone",
			descriptor: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) Version/17.5 Safari/605.1",
			browser:    "Safari",
			os:         "iOS",
		},
		{
			name:       "firefox on linux",
			descriptor: "Mozilla/5.0 (X11; Linux x86_64; rv:127.0) Gecko/20100101 Firefox/127.0",
			browser:    "Firefox",
			os:         "Linux",
		},
		{
			name:       "free text",
			descriptor: "my toaster",
			browser:    "Unknown",
			os:         "Unknown",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			labels := ParseLabels(tt.descriptor)
			assert.Equal(t, tt.browser, labels.Browser)
			assert.Equal(t, tt.os, labels.OS)
		})
	}
}
