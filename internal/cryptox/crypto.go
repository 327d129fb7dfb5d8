// Package cryptox implements the secret codec used to seal OAuth tokens
// before they reach the database.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/qborelay/internal/common"
	"golang.org/x/crypto/argon2"
)

// DefaultSalt is used when the deployment does not configure its own salt.
const DefaultSalt = "qborelay/token-codec/v1"

const keySize = 32

// DeriveKey stretches a server secret into a 256-bit AES key with Argon2id.
// The result is deterministic for a given (secret, salt) pair so data sealed
// before a restart stays readable after it.
func DeriveKey(secret []byte, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, keySize)
}

// Codec encrypts and decrypts token strings with AES-256-GCM.
//
// Every Encrypt call draws a fresh random nonce, so equal plaintexts produce
// different ciphertexts. GCM authenticates the payload: tampered input or
// input sealed under a different key fails in Decrypt instead of returning
// garbage.
//
// The wire format is base64(nonce || sealed box).
type Codec struct {
	aead cipher.AEAD
}

// NewCodec builds a Codec from the configured secret. An empty secret is a
// configuration error; the server calls this during startup so that a
// missing key stops the process before any token is written.
func NewCodec(secret, salt string) (*Codec, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: encryption key is not set", common.ErrConfiguration)
	}
	if salt == "" {
		salt = DefaultSalt
	}

	key := DeriveKey([]byte(secret), []byte(salt))
	defer common.WipeByteArray(key)

	return newCodecFromKey(key)
}

func newCodecFromKey(key []byte) (*Codec, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConfiguration, err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConfiguration, err)
	}

	return &Codec{aead: aead}, nil
}

// Encrypt seals plaintext and returns the encoded ciphertext.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	nonce := common.GenerateRandByteArray(c.aead.NonceSize())

	// nonce is used as the dst prefix
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Any failure is reported as
// common.ErrDecryption.
func (c *Codec) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: malformed ciphertext", common.ErrDecryption)
	}

	ns := c.aead.NonceSize()
	if len(raw) < ns+c.aead.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", common.ErrDecryption)
	}

	plaintext, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}

	return string(plaintext), nil
}
