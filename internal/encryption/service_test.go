package encryption

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "storefront/internal/errors"
)

func testKey(b byte) []byte {
	return bytes.Repeat([]byte{b}, 32)
}

func newTestService(t *testing.T, b byte) *Service {
	t.Helper()
	svc, err := New(testKey(b))
	require.NoError(t, err)
	return svc
}

func TestNew_InvalidKeySize(t *testing.T) {
	_, err := New([]byte("short"))
	assert.ErrorIs(t, err, errInvalidKeySize)
}

func TestNewFromBase64(t *testing.T) {
	svc, err := NewFromBase64(base64.StdEncoding.EncodeToString(testKey(7)))
	require.NoError(t, err)
	assert.NotNil(t, svc)

	_, err = NewFromBase64("not base64!!")
	assert.Error(t, err)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	svc := newTestService(t, 1)

	inputs := []string{
		"01012345678",
		"",
		"@some.insta_handle",
		"رقم التحويل 123",
		strings.Repeat("x", 4096),
		gofakeit.Phone(),
		gofakeit.Username(),
	}

	for _, in := range inputs {
		ciphertext, err := svc.Encrypt(in)
		require.NoError(t, err)
		if in != "" {
			assert.NotContains(t, ciphertext, in)
		}

		plaintext, err := svc.Decrypt(ciphertext)
		require.NoError(t, err)
		assert.Equal(t, in, plaintext)
	}
}

func TestEncrypt_UsesFreshNonce(t *testing.T) {
	svc := newTestService(t, 1)

	a, err := svc.Encrypt("01012345678")
	require.NoError(t, err)
	b, err := svc.Encrypt("01012345678")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestDecrypt_WrongKey(t *testing.T) {
	ciphertext, err := newTestService(t, 1).Encrypt("01012345678")
	require.NoError(t, err)

	_, err = newTestService(t, 2).Decrypt(ciphertext)
	_, ok := apperrors.IsDecryptionError(err)
	assert.True(t, ok, "expected DecryptionError, got %v", err)
}

func TestDecrypt_Malformed(t *testing.T) {
	svc := newTestService(t, 1)

	tests := map[string]string{
		"plaintext passed as ciphertext": "01012345678",
		"too short":                      base64.StdEncoding.EncodeToString([]byte("abc")),
		"empty":                          "",
	}

	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			out, err := svc.Decrypt(in)
			assert.Empty(t, out)
			_, ok := apperrors.IsDecryptionError(err)
			assert.True(t, ok)
		})
	}
}

func TestDecrypt_Tampered(t *testing.T) {
	svc := newTestService(t, 1)
	ciphertext, err := svc.Encrypt("01012345678")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff

	_, err = svc.Decrypt(base64.StdEncoding.EncodeToString(raw))
	_, ok := apperrors.IsDecryptionError(err)
	assert.True(t, ok)
}

func TestMask(t *testing.T) {
	tests := []struct {
		in      string
		visible int
		want    string
	}{
		{in: "01012345678", visible: 3, want: "********678"},
		{in: "01012345678", visible: 0, want: "***********"},
		{in: "abc", visible: 3, want: "***"},
		{in: "ab", visible: 3, want: "**"},
		{in: "", visible: 3, want: ""},
		{in: "حساب١٢٣٤", visible: 2, want: "******٣٤"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Mask(tt.in, tt.visible))
		})
	}
}

func TestMask_NeverRevealsMoreThanSuffix(t *testing.T) {
	for i := 0; i < 50; i++ {
		value := gofakeit.Numerify(strings.Repeat("#", 1+i%15))
		visible := i % 5
		masked := Mask(value, visible)

		clear := strings.TrimLeft(masked, "*")
		assert.LessOrEqual(t, len([]rune(clear)), visible)
		assert.Equal(t, len([]rune(value)), len([]rune(masked)))
	}
}
