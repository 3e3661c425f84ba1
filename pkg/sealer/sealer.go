// Package sealer encrypts one-time codes before they are persisted, so a
// database read alone never exposes a live code.
package sealer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

const (
	KEY = "dTWK2uBu8X3FztP1oHFsCNyX5WOZfCuwOPXXTfacWVU="
)

// Seal encrypts a one-time code for storage.
func Seal(code string) (string, error) {
	key, err := base64.StdEncoding.DecodeString(KEY)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ct := aesgcm.Seal(nonce, nonce, []byte(code), nil)
	return base64.RawURLEncoding.EncodeToString(ct), nil
}

// Open decrypts a sealed one-time code.
func Open(sealed string) (string, error) {
	key, err := base64.StdEncoding.DecodeString(KEY)
	if err != nil {
		return "", err
	}

	data, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := aesgcm.NonceSize()
	if len(data) <= nonceSize {
		return "", fmt.Errorf("sealed code too short")
	}
	nonce := data[:nonceSize]
	ciphertext := data[nonceSize:]

	pt, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}

	return string(pt), nil
}
