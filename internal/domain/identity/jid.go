package identity

import "strings"

const (
	userSuffix  = "@s.whatsapp.net"
	groupSuffix = "@g.us"
)

// ToJID normalizes a raw phone number or identifier to a user JID. Inputs
// that already carry a domain pass through unchanged.
func ToJID(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "@") {
		return raw
	}
	digits := keepDigits(raw)
	if digits == "" {
		return raw
	}
	return digits + userSuffix
}

// ToGroupJID normalizes a raw identifier to a group JID.
func ToGroupJID(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "@") {
		return raw
	}
	return keepDigits(raw) + groupSuffix
}

// Display strips the transport domain from an identifier for user-facing
// output.
func Display(id string) string {
	id = strings.TrimSuffix(id, userSuffix)
	return strings.TrimSuffix(id, groupSuffix)
}

// NumericPart returns the identifier without its domain. Mentions arrive
// under varying domains (@s.whatsapp.net, @lid), so comparisons use the bare
// number.
func NumericPart(id string) string {
	if i := strings.IndexByte(id, '@'); i >= 0 {
		return id[:i]
	}
	return id
}

// MentionsIdentifier reports whether any mentioned identifier refers to the
// given one, comparing numeric parts only.
func MentionsIdentifier(mentions []string, identifier string) bool {
	want := NumericPart(identifier)
	if want == "" {
		return false
	}
	for _, m := range mentions {
		if NumericPart(m) == want {
			return true
		}
	}
	return false
}

func keepDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
