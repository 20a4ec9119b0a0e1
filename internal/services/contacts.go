package services

import (
	"errors"
	"fmt"

	"onethy/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ContactResolver maps inbound sender phone numbers to tenant-scoped contacts.
type ContactResolver struct {
	db *gorm.DB
}

// NewContactResolver creates a new ContactResolver.
func NewContactResolver(conn *gorm.DB) (*ContactResolver, error) {
	if conn == nil {
		return nil, fmt.Errorf("database instance cannot be nil")
	}
	return &ContactResolver{db: conn}, nil
}

// Resolve finds the contact for (tenant, phone), creating one on first sight.
// A missing provider display name falls back to the phone number itself.
func (s *ContactResolver) Resolve(tenantID uint, phone, pushName string) (*models.Contact, error) {
	var contact models.Contact
	err := s.db.Where("tenant_id = ? AND phone = ?", tenantID, phone).First(&contact).Error
	if err == nil {
		return &contact, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("error querying contact: %w", err)
	}

	name := pushName
	if name == "" {
		name = phone
	}

	contact = models.Contact{
		TenantID: tenantID,
		Name:     name,
		Phone:    phone,
	}
	if err := s.db.Create(&contact).Error; err != nil {
		return nil, fmt.Errorf("failed to create contact for %s: %w", phone, err)
	}

	log.Info().Uint("tenantID", tenantID).Str("phone", phone).Uint("contactID", contact.ID).Msg("Created contact from inbound message")
	return &contact, nil
}

// Delete removes a contact unless a non-closed conversation still references it.
func (s *ContactResolver) Delete(tenantID, contactID uint) error {
	var contact models.Contact
	err := s.db.Where("tenant_id = ? AND id = ?", tenantID, contactID).First(&contact).Error
	if err != nil {
		return err
	}

	var active int64
	err = s.db.Model(&models.Conversation{}).
		Where("tenant_id = ? AND contact_id = ? AND status <> ?", tenantID, contactID, models.ConversationClosed).
		Count(&active).Error
	if err != nil {
		return fmt.Errorf("error counting conversations for contact: %w", err)
	}
	if active > 0 {
		return ErrContactHasOpenConversations
	}

	return s.db.Delete(&contact).Error
}
