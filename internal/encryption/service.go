package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	apperrors "storefront/internal/errors"
)

var (
	errInvalidKeySize     = errors.New("encryption: key must be 16, 24 or 32 bytes")
	errCiphertextTooShort = errors.New("ciphertext too short")
)

// Service encrypts operator-sensitive strings with AES-GCM. Ciphertext is
// base64(nonce || sealed).
type Service struct {
	aead cipher.AEAD
	rand io.Reader
}

func New(key []byte) (*Service, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, errInvalidKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	return &Service{aead: gcm, rand: rand.Reader}, nil
}

// NewFromBase64 decodes a standard base64 key, as stored in configuration.
func NewFromBase64(encoded string) (*Service, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decoding encryption key: %w", err)
	}
	return New(key)
}

func (s *Service) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(s.rand, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *Service) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", apperrors.NewDecryptionError(err)
	}

	nonceSize := s.aead.NonceSize()
	if len(raw) < nonceSize+s.aead.Overhead() {
		return "", apperrors.NewDecryptionError(errCiphertextTooShort)
	}

	nonce, sealed := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", apperrors.NewDecryptionError(err)
	}

	return string(plaintext), nil
}

// Mask hides every rune except the last visibleTail. Values not longer than
// visibleTail are fully masked.
func (s *Service) Mask(plaintext string, visibleTail int) string {
	return Mask(plaintext, visibleTail)
}

func Mask(plaintext string, visibleTail int) string {
	runes := []rune(plaintext)
	if visibleTail <= 0 || len(runes) <= visibleTail {
		return strings.Repeat("*", len(runes))
	}

	hidden := len(runes) - visibleTail
	return strings.Repeat("*", hidden) + string(runes[hidden:])
}
