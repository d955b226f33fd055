package config

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
)

// DecryptDSN opens base64(nonce || ciphertext) sealed with AES-GCM under secretKey.
func DecryptDSN(encryptedDataB64 string, secretKey string) (string, error) {
	key := []byte(secretKey)
	encryptedData, err := base64.StdEncoding.DecodeString(encryptedDataB64)
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("create gcm: %w", err)
	}

	if len(encryptedData) < aesgcm.NonceSize() {
		return "", errors.New("encrypted dsn is too short")
	}
	iv := encryptedData[:aesgcm.NonceSize()]
	ciphertext := encryptedData[aesgcm.NonceSize():]

	plaintext, err := aesgcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}

	return string(plaintext), nil
}
