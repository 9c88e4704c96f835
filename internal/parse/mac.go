package parse

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	macSepRe = regexp.MustCompile(`[:\-.]`)
	hex12Re  = regexp.MustCompile(`^[0-9A-F]{12}$`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// MaxNameLength bounds device and appliance display names, in runes.
const MaxNameLength = 128

// MAC normalizes a hardware address to upper-case colon form (AA:BB:CC:DD:EE:FF).
// Colon, dash and dot separated forms are accepted, as are 12 bare hex digits.
func MAC(raw string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = macSepRe.ReplaceAllString(s, "")
	if !hex12Re.MatchString(s) {
		return "", fmt.Errorf("invalid mac address: %q", raw)
	}

	var b strings.Builder
	b.Grow(17)
	for i := 0; i < 12; i += 2 {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(s[i : i+2])
	}
	return b.String(), nil
}

// Name trims and collapses whitespace in a display name and rejects empty
// or overlong results.
func Name(raw string) (string, error) {
	s := strings.TrimSpace(spaceRe.ReplaceAllString(raw, " "))
	if s == "" {
		return "", fmt.Errorf("name must not be empty")
	}
	if len([]rune(s)) > MaxNameLength {
		return "", fmt.Errorf("name exceeds %d characters", MaxNameLength)
	}
	return s, nil
}
