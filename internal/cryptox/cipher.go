// Package cryptox implements the envelope-encryption scheme protecting
// stored WB API keys. Each record is encrypted under a per-record subkey
// derived via HKDF-SHA256 from a versioned master key and a fresh random
// salt, then sealed with AES-256-GCM. The key version recorded with every
// ciphertext allows staged master-key rotation: old records keep decrypting
// as long as their version stays registered in the keyring.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/kuzkabot/sellerbot/internal/common"
	"golang.org/x/crypto/hkdf"
)

const (
	// SaltSize is the per-record HKDF salt size (128 bit).
	SaltSize = 16

	keySize   = 32
	nonceSize = 12
)

// infoV1 binds derived subkeys to this application and scheme version.
var infoV1 = []byte("wb-bot:record-key:v1")

// Cipher encrypts and decrypts credential records. It is stateless apart
// from its keyring and safe for concurrent use.
type Cipher struct {
	keys   map[int][]byte
	active int
}

// New builds a Cipher from a keyring of version -> 32-byte master key.
// Version 0 is reserved for legacy records encrypted directly under the
// master key without the KDF step; new records are always written with the
// highest registered version, which must be >= 1.
func New(keys map[int][]byte) (*Cipher, error) {
	if len(keys) == 0 {
		return nil, errors.New("cryptox: empty keyring")
	}

	active := 0
	for v, k := range keys {
		if v < 0 {
			return nil, fmt.Errorf("cryptox: negative key version %d", v)
		}
		if len(k) != keySize {
			return nil, fmt.Errorf("cryptox: key version %d has %d bytes, want %d", v, len(k), keySize)
		}
		if v > active {
			active = v
		}
	}
	if active < 1 {
		return nil, errors.New("cryptox: keyring must contain a version >= 1 for new records")
	}

	return &Cipher{keys: keys, active: active}, nil
}

// ActiveVersion returns the key version new records are written with.
func (c *Cipher) ActiveVersion() int {
	return c.active
}

// Versions returns all registered key versions in ascending order.
func (c *Cipher) Versions() []int {
	out := make([]int, 0, len(c.keys))
	for v := range c.keys {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// Encrypt seals plaintext under a subkey derived from the active master key
// and a freshly generated salt. The 12-byte GCM nonce is prepended to the
// returned ciphertext. It returns the ciphertext, the salt and the key
// version that must all be persisted together.
func (c *Cipher) Encrypt(plaintext []byte) (ciphertext, salt []byte, keyVersion int, err error) {

	salt = common.GenerateRandByteArray(SaltSize)

	key, err := deriveRecordKey(c.keys[c.active], salt)
	if err != nil {
		return nil, nil, 0, err
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, 0, err
	}

	nonce := common.GenerateRandByteArray(nonceSize)
	sealed := aead.Seal(nil, nonce, plaintext, nil)

	return append(nonce, sealed...), salt, c.active, nil
}

// Decrypt opens a stored record. The decrypt procedure is dispatched on the
// recorded keyVersion: version 0 records are opened directly under the
// master key (pre-KDF scheme), version >= 1 records via the HKDF subkey.
//
// Any tampering with ciphertext or salt, a wrong master key, or a version
// no longer present in the keyring yields common.ErrDecryptionAuthFailure.
// It never returns garbage plaintext.
func (c *Cipher) Decrypt(ciphertext, salt []byte, keyVersion int) ([]byte, error) {

	master, ok := c.keys[keyVersion]
	if !ok {
		return nil, fmt.Errorf("no master key registered for version %d: %w", keyVersion, common.ErrDecryptionAuthFailure)
	}

	var key []byte
	if keyVersion == 0 {
		key = master
	} else {
		if len(salt) < 8 {
			// stored salt is corrupt; shorter than anything Encrypt ever wrote
			return nil, fmt.Errorf("salt too short (%d bytes): %w", len(salt), common.ErrDecryptionAuthFailure)
		}
		var err error
		key, err = deriveRecordKey(master, salt)
		if err != nil {
			return nil, err
		}
	}

	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short: %w", common.ErrDecryptionAuthFailure)
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, ciphertext[:nonceSize], ciphertext[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("gcm open: %w", common.ErrDecryptionAuthFailure)
	}

	return plaintext, nil
}

// deriveRecordKey derives the 32-byte per-record subkey via HKDF-SHA256.
func deriveRecordKey(master, salt []byte) ([]byte, error) {
	h := hkdf.New(sha256.New, master, salt, infoV1)
	key := make([]byte, keySize)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, err
	}
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// ParseMasterKey decodes a configured master key string. Accepted formats:
//
//	base64:<urlsafe_b64_of_32_bytes>
//	<urlsafe_b64_of_32_bytes>
//
// The decoded key must be exactly 32 bytes.
func ParseMasterKey(raw string) ([]byte, error) {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "base64:")
	key, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		// tolerate unpadded input
		key, err = base64.RawURLEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("master key is not valid urlsafe base64: %w", err)
		}
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("master key must decode to %d bytes, got %d", keySize, len(key))
	}
	return key, nil
}
