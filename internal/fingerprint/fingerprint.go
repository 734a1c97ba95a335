package fingerprint

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Hasher derives stable device fingerprints from free-text descriptors. Keyed
// so fingerprints cannot be precomputed off-box; the descriptor itself is
// best-effort client input, not a security boundary.
type Hasher struct {
	key []byte
}

func NewHasher(key []byte) *Hasher {
	return &Hasher{key: key}
}

func (h *Hasher) Fingerprint(descriptor string) string {
	mac, err := blake2b.New256(h.key)
	if err != nil {
		// only possible with a key over 64 bytes; fall back to unkeyed
		mac, _ = blake2b.New256(nil)
	}
	mac.Write([]byte(strings.TrimSpace(descriptor)))
	return hex.EncodeToString(mac.Sum(nil))
}

type Labels struct {
	Browser string
	OS      string
}

var browsers = []struct{ needle, label string }{
	{"edg/", "Edge"},
	{"opr/", "Opera"},
	{"chrome", "Chrome"},
	{"safari", "Safari"},
	{"firefox", "Firefox"},
}

var systems = []struct{ needle, label string }{
	{"windows", "Windows"},
	{"android", "Android"},
	{"iphone", "iOS"},
	{"ipad", "iOS"},
	{"mac os", "macOS"},
	{"macintosh", "macOS"},
	{"linux", "Linux"},
}

// ParseLabels pulls coarse browser/OS names out of a user-agent style
// descriptor. Order matters: Chrome UAs also contain "safari".
func ParseLabels(descriptor string) Labels {
	d := strings.ToLower(descriptor)
	out := Labels{Browser: "Unknown", OS: "Unknown"}
	for _, b := range browsers {
		if strings.Contains(d, b.needle) {
			out.Browser = b.label
			break
		}
	}
	for _, s := range systems {
		if strings.Contains(d, s.needle) {
			out.OS = s.label
			break
		}
	}
	return out
}
