package auth

import (
	"fmt"

	"github.com/narthex/vouch/internal/util"
)

// codeLength is the number of characters in a verification code. With
// the 31-symbol alphabet this gives 31^8 ≈ 8.5e11 combinations, which
// makes online guessing within a TTL measured in hours infeasible.
const codeLength = 8

// NewCode returns a fresh human-readable verification code. Codes are
// bound to exactly one request and never reused; the only place a code
// is persisted is the request record itself.
func NewCode() (string, error) {
	code, err := util.RandomChars(codeLength)
	if err != nil {
		return "", fmt.Errorf("generating verification code: %w", err)
	}
	return code, nil
}
