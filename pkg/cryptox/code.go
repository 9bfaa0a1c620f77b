package cryptox

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

// Bounds for numeric one-time codes.
const (
	MinCodeDigits = 4
	MaxCodeDigits = 8
)

var ErrCodeLength = errors.New("cryptox: code length out of range")

// GenerateNumericCode returns a zero-padded numeric code of the given length.
// Each call derives the code from a fresh random HOTP secret and counter, so
// codes are independent of each other and of any stored state.
func GenerateNumericCode(digits int) (string, error) {
	if digits < MinCodeDigits || digits > MaxCodeDigits {
		return "", fmt.Errorf("%w: %d", ErrCodeLength, digits)
	}

	secret := make([]byte, 20)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("failed to generate code secret: %w", err)
	}

	var counter [8]byte
	if _, err := rand.Read(counter[:]); err != nil {
		return "", fmt.Errorf("failed to generate code counter: %w", err)
	}

	code, err := hotp.GenerateCodeCustom(
		base32.StdEncoding.EncodeToString(secret),
		binary.BigEndian.Uint64(counter[:]),
		hotp.ValidateOpts{
			Digits:    otp.Digits(digits),
			Algorithm: otp.AlgorithmSHA1,
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return code, nil
}

// ClampCodeDigits forces a configured length into [MinCodeDigits, MaxCodeDigits].
func ClampCodeDigits(digits int) int {
	return min(max(digits, MinCodeDigits), MaxCodeDigits)
}
