package services

import (
	"manifestun/internal/crypto"
	"manifestun/internal/models"
)

// EncryptionService wraps the cipher with domain-specific methods.
type EncryptionService struct {
	cipher *crypto.Cipher
}

// NewEncryptionService derives the at-rest key from the configured secret.
func NewEncryptionService(secret string) (*EncryptionService, error) {
	key, err := crypto.DeriveKey(secret)
	if err != nil {
		return nil, err
	}
	c, err := crypto.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &EncryptionService{cipher: c}, nil
}

// EncryptEntry encrypts sensitive journal fields before storing in DB.
func (s *EncryptionService) EncryptEntry(entry *models.JournalEntry) error {
	encrypted, err := s.cipher.Encrypt(entry.Content)
	if err != nil {
		return err
	}
	entry.Content = encrypted

	if entry.AIAnalysis != nil && entry.AIAnalysis.Insights != "" {
		encryptedInsights, err := s.cipher.Encrypt(entry.AIAnalysis.Insights)
		if err != nil {
			return err
		}
		entry.AIAnalysis.Insights = encryptedInsights
	}
	return nil
}

// DecryptEntry decrypts sensitive journal fields after retrieving from DB.
func (s *EncryptionService) DecryptEntry(entry *models.JournalEntry) error {
	decrypted, err := s.cipher.Decrypt(entry.Content)
	if err != nil {
		return err
	}
	entry.Content = decrypted

	if entry.AIAnalysis != nil && entry.AIAnalysis.Insights != "" {
		decryptedInsights, err := s.cipher.Decrypt(entry.AIAnalysis.Insights)
		if err != nil {
			return err
		}
		entry.AIAnalysis.Insights = decryptedInsights
	}
	return nil
}
