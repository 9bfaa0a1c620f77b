package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateNumericCode(t *testing.T) {
	for digits := MinCodeDigits; digits <= MaxCodeDigits; digits++ {
		code, err := GenerateNumericCode(digits)
		require.NoError(t, err)
		require.Len(t, code, digits)
		for _, c := range code {
			require.True(t, c >= '0' && c <= '9', "non-digit in %q", code)
		}
	}
}

func TestGenerateNumericCodeSpread(t *testing.T) {
	// 200 six digit codes colliding down to a handful would mean the
	// secret or counter is not random.
	seen := make(map[string]struct{})
	for range 200 {
		code, err := GenerateNumericCode(6)
		require.NoError(t, err)
		seen[code] = struct{}{}
	}
	require.Greater(t, len(seen), 150)
}

func TestGenerateNumericCodeLength(t *testing.T) {
	for _, digits := range []int{0, 3, 9, -1} {
		_, err := GenerateNumericCode(digits)
		require.ErrorIs(t, err, ErrCodeLength)
	}
}

func TestClampCodeDigits(t *testing.T) {
	require.Equal(t, 4, ClampCodeDigits(1))
	require.Equal(t, 6, ClampCodeDigits(6))
	require.Equal(t, 8, ClampCodeDigits(12))
}
