package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	keySize = 32 // AES-256

	// encPrefix marks values encrypted with the store key.
	encPrefix = "enc:v1:"
)

// keyPath returns the location of the encryption key next to the database.
func keyPath(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), filepath.Base(dbPath)+".key")
}

// loadOrCreateKey reads the store key, creating it with 0600 permissions when
// allowCreate is set and the file does not exist yet. A nil key with nil error
// is never returned.
func loadOrCreateKey(path string, allowCreate bool) ([]byte, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(data) != keySize {
			return nil, fmt.Errorf("encryption key at %s has invalid size %d (expected %d)", path, len(data), keySize)
		}
		return data, nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read encryption key: %w", err)
	case !allowCreate:
		return nil, fmt.Errorf("encryption key %s is missing but the store already holds encrypted values", path)
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate encryption key: %w", err)
	}

	// O_EXCL makes concurrent creators fail instead of overwriting each other.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return loadOrCreateKey(path, false)
		}
		return nil, fmt.Errorf("create encryption key: %w", err)
	}
	if _, err := f.Write(key); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write encryption key: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("sync encryption key: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close encryption key: %w", err)
	}
	return key, nil
}

// encryptValue seals plaintext with AES-256-GCM. The storage key name is used
// as additional data so a ciphertext cannot be moved to another key.
func encryptValue(key []byte, name, plaintext string) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), []byte(name))
	return encPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

func decryptValue(key []byte, name, stored string) (string, error) {
	if !strings.HasPrefix(stored, encPrefix) {
		return "", fmt.Errorf("value is not encrypted (missing %s prefix)", encPrefix)
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, encPrefix))
	if err != nil {
		return "", fmt.Errorf("decode encrypted value: %w", err)
	}
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", errors.New("encrypted value too short")
	}
	plaintext, err := gcm.Open(nil, data[:gcm.NonceSize()], data[gcm.NonceSize():], []byte(name))
	if err != nil {
		return "", fmt.Errorf("decrypt value: %w", err)
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
