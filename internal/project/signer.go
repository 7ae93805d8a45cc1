package project

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

const (
	nonceBytes = 32
	tokenBytes = 32
)

// Signer derives and checks the callback capability. A signature is the hex
// HMAC-SHA256 of "<projectID>.<nonce>" under the server secret, so rotating a
// project's nonce revokes every callback URL handed out before it.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

func (s *Signer) Sign(projectID uuid.UUID, nonce string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(projectID.String()))
	mac.Write([]byte("."))
	mac.Write([]byte(nonce))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether sig is the signature for projectID and nonce. An
// empty nonce never verifies.
func (s *Signer) Verify(projectID uuid.UUID, nonce, sig string) bool {
	if nonce == "" || sig == "" {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(s.Sign(projectID, nonce))
	return hmac.Equal(got, want)
}

func newNonce() (string, error) {
	return randomString(nonceBytes)
}

func newShareToken() (string, error) {
	return randomString(tokenBytes)
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
