// Package crypto provides encryption and hashing utilities for owner
// contact data. Phone numbers are stored in exactly two forms: a
// reversible AES-256-GCM ciphertext for the few operational paths that
// need recovery, and a keyed one-way lookup hash used everywhere a number
// must be matched without decryption (DNC checks, consent revocation).
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidKey is returned when an encryption or hash key is empty.
	ErrInvalidKey = errors.New("invalid key: must not be empty")
	// ErrDecryptionFailed is returned when decryption fails due to invalid ciphertext or wrong key.
	ErrDecryptionFailed = errors.New("decryption failed: invalid ciphertext or wrong key")
)

// PhoneProtector encrypts phone numbers with AES-256-GCM and derives the
// stable lookup hash with HMAC-SHA256. The hash key must never change once
// data exists: ConsentRecord.phone_hash and DoNotCallEntry.phone_hash must
// keep matching or opt-out revocation and DNC blocking silently break.
type PhoneProtector struct {
	gcm     cipher.AEAD
	hashKey []byte
}

// NewPhoneProtector creates a protector from two key strings. Each key can
// be a base64-encoded 32-byte key (openssl rand -base64 32) or any
// passphrase, which is hashed to 32 bytes with SHA-256.
func NewPhoneProtector(encryptionKey, hashKey string) (*PhoneProtector, error) {
	if encryptionKey == "" || hashKey == "" {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(deriveKey(encryptionKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &PhoneProtector{gcm: gcm, hashKey: deriveKey(hashKey)}, nil
}

// deriveKey accepts base64-encoded 32-byte keys directly and hashes
// anything else to 32 bytes.
func deriveKey(input string) []byte {
	decoded, err := base64.StdEncoding.DecodeString(input)
	if err == nil && len(decoded) == 32 {
		return decoded
	}
	hash := sha256.Sum256([]byte(input))
	return hash[:]
}

// Encrypt encrypts a phone number and returns base64(nonce || ciphertext || tag).
func (p *PhoneProtector) Encrypt(phone string) (string, error) {
	if phone == "" {
		return "", nil
	}

	nonce := make([]byte, p.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal appends ciphertext and tag to nonce: nonce || ciphertext || tag
	ciphertext := p.gcm.Seal(nonce, nonce, []byte(phone), nil)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts base64(nonce || ciphertext || tag) back to the phone
// number. Only operational recovery paths call this; no public read path
// does.
func (p *PhoneProtector) Decrypt(encrypted string) (string, error) {
	if encrypted == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode failed", ErrDecryptionFailed)
	}

	nonceSize := p.gcm.NonceSize()
	if len(data) < nonceSize+p.gcm.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := p.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrDecryptionFailed)
	}

	return string(plaintext), nil
}

// Hash returns the one-way lookup hash for a phone number as lowercase
// hex. The number is normalized first so formatting variants of the same
// number always produce the same hash.
func (p *PhoneProtector) Hash(phone string) string {
	mac := hmac.New(sha256.New, p.hashKey)
	mac.Write([]byte(NormalizePhone(phone)))
	return hex.EncodeToString(mac.Sum(nil))
}

// NormalizePhone strips formatting characters and any leading US country
// code so "+1 (555) 123-4567" and "5551234567" hash identically.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	return digits
}
