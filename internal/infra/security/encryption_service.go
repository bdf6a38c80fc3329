package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrUnknownKey = errors.New("ciphertext sealed with an unknown key")

// EncryptionService seals message bodies with AES-GCM. Ciphertexts are
// "<key id>:" + base64(nonce || sealed); the key id lets bodies written before a
// key rotation be opened with one of the previous keys.
type EncryptionService struct {
	primary string
	keys    map[string]cipher.AEAD
}

// NewEncryptionService expects 16, 24 or 32 byte keys (AES-128/192/256).
// previous keys are only used to decrypt.
func NewEncryptionService(key string, previous ...string) (*EncryptionService, error) {
	s := &EncryptionService{keys: map[string]cipher.AEAD{}}
	for i, k := range append([]string{key}, previous...) {
		id, gcm, err := newGCM(k)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			s.primary = id
		}
		if _, dup := s.keys[id]; !dup {
			s.keys[id] = gcm
		}
	}
	return s, nil
}

func newGCM(key string) (string, cipher.AEAD, error) {
	n := len(key)
	if n != 16 && n != 24 && n != 32 {
		return "", nil, fmt.Errorf("encryption key must be 16, 24, or 32 bytes; got %d", n)
	}
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return "", nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return KeyID(key), gcm, nil
}

// KeyID is a short public fingerprint of key.
func KeyID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:4])
}

func (e *EncryptionService) Encrypt(plaintext string) (string, error) {
	gcm := e.keys[e.primary]
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return e.primary + ":" + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a ciphertext from Encrypt. Values without a key id are tried with the primary key.
func (e *EncryptionService) Decrypt(value string) (string, error) {
	id, b64, found := strings.Cut(value, ":")
	if !found {
		id, b64 = e.primary, value
	}
	gcm, ok := e.keys[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, id)
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}
	ns := gcm.NonceSize()
	if len(data) < ns {
		return "", errors.New("ciphertext too short")
	}
	pt, err := gcm.Open(nil, data[:ns], data[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("gcm open: %w", err)
	}
	return string(pt), nil
}
