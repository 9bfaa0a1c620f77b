package slogx

import "strings"

// MaskPhone keeps the first three and last four digits of a phone number,
// e.g. "+15551234567" -> "155****4567". Short inputs are returned as digits
// only.
func MaskPhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 7 {
		return digits
	}
	return digits[:3] + "****" + digits[len(digits)-4:]
}
