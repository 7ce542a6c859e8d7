package service

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
)

const referralCodeLength = 8

var codeEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewReferralCode returns a random 8-character lowercase base32 code.
func NewReferralCode() (string, error) {
	b := make([]byte, 5)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToLower(codeEncoding.EncodeToString(b))[:referralCodeLength], nil
}
