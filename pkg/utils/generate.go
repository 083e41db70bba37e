package utils

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// confirmationAlphabet leaves out characters that are easy to misread in an email.
const confirmationAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// ==================== CONFIRMATION CODE ====================

// GenerateConfirmationCode returns a random code drawn from crypto/rand.
func GenerateConfirmationCode(length int) (string, error) {
	if length <= 0 {
		length = 12
	}

	code, err := gonanoid.Generate(confirmationAlphabet, length)
	if err != nil {
		return "", fmt.Errorf("generate confirmation code: %w", err)
	}

	return code, nil
}
