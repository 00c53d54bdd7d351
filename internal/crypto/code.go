package crypto

import (
	"crypto/rand"
	"math/big"
)

const (
	// ResetCodeMin and ResetCodeMax bound the 6-digit reset code range.
	// Starting at 100000 rules out leading-zero codes, so the integer and
	// its textual form never disagree.
	ResetCodeMin = 100000
	ResetCodeMax = 999999
)

// GenerateResetCode draws a uniformly random 6-digit reset code from
// [ResetCodeMin, ResetCodeMax] using crypto/rand.
func GenerateResetCode() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(ResetCodeMax-ResetCodeMin+1))
	if err != nil {
		return 0, err
	}
	return ResetCodeMin + int(n.Int64()), nil
}
