package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/kuzkabot/sellerbot/internal/common"
	"github.com/kuzkabot/sellerbot/internal/cryptox"
	"github.com/kuzkabot/sellerbot/internal/sanitize"
	"github.com/kuzkabot/sellerbot/internal/server/models"
	"github.com/kuzkabot/sellerbot/internal/server/repositories/credentials"
	"github.com/kuzkabot/sellerbot/internal/server/repositories/users"
)

// CredentialService stores and loads the seller's WB API key: raw input is
// sanitized, envelope-encrypted and persisted; loading decrypts with the
// key version recorded on the row.
type CredentialService struct {
	creds  credentials.Repository
	users  users.Repository
	cipher *cryptox.Cipher
}

func NewCredentialService(creds credentials.Repository, userRepo users.Repository, cipher *cryptox.Cipher) *CredentialService {
	return &CredentialService{creds: creds, users: userRepo, cipher: cipher}
}

// Store sanitizes and encrypts a raw API key pasted by the user and upserts
// it for the given Telegram identity. Malformed input returns
// common.ErrCredentialMalformed; the user must already exist (they always
// do, login precedes the settings page).
func (s *CredentialService) Store(ctx context.Context, telegramID int64, rawKey string) error {

	key, err := sanitize.APIKey(rawKey)
	if err != nil {
		return err
	}

	user, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return err
	}

	ciphertext, salt, version, err := s.cipher.Encrypt([]byte(key))
	if err != nil {
		return fmt.Errorf("encrypting credential: %w", err)
	}

	cred := &models.Credential{
		UserID:     user.ID,
		Ciphertext: ciphertext,
		Salt:       salt,
		KeyVersion: version,
	}
	if err := s.creds.Upsert(ctx, cred); err != nil {
		return err
	}

	return nil
}

// Load returns the decrypted API key for the Telegram identity.
//
// common.ErrorNotFound means no key was ever stored;
// common.ErrDecryptionAuthFailure means the stored record cannot be
// decrypted with the configured master keys — callers must surface that
// state, never treat it as an empty key.
func (s *CredentialService) Load(ctx context.Context, telegramID int64) (string, error) {

	user, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return "", err
	}

	cred, err := s.creds.GetByUserID(ctx, user.ID)
	if err != nil {
		return "", err
	}

	plaintext, err := s.cipher.Decrypt(cred.Ciphertext, cred.Salt, cred.KeyVersion)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}

// Has reports whether the identity has a stored key, without decrypting it.
func (s *CredentialService) Has(ctx context.Context, telegramID int64) (bool, error) {
	user, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, err
	}
	_, err = s.creds.GetByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
