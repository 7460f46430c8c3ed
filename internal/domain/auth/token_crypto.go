package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

var errSealedTokenTooShort = errors.New("sealed token too short")

// tokenSealer encrypts provider refresh tokens at rest with AES-GCM. The
// provider subject is bound as additional data so a ciphertext cannot be
// replayed onto another identity row.
type tokenSealer struct {
	aead cipher.AEAD
}

func newTokenSealer(key string) (*tokenSealer, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, errors.New("token encryption key must be 16, 24, or 32 bytes")
	}
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &tokenSealer{aead: aead}, nil
}

func (s *tokenSealer) seal(subject, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), []byte(subject))
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (s *tokenSealer) open(subject, encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	n := s.aead.NonceSize()
	if len(raw) < n+s.aead.Overhead() {
		return "", errSealedTokenTooShort
	}
	plain, err := s.aead.Open(nil, raw[:n], raw[n:], []byte(subject))
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
