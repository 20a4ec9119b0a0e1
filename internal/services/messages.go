package services

import (
	"fmt"
	"time"

	"onethy/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// previewMaxLen caps the denormalized last-message preview on a conversation.
const previewMaxLen = 120

// MessageLedger appends message records and maintains the derived conversation
// and channel state (preview, unread counter, activity timestamps).
//
// The message insert and the follow-up conversation/channel updates are
// separate writes, not one transaction; a crash in between leaves the
// denormalized fields stale until the next message.
type MessageLedger struct {
	db *gorm.DB
}

// NewMessageLedger creates a new MessageLedger.
func NewMessageLedger(conn *gorm.DB) (*MessageLedger, error) {
	if conn == nil {
		return nil, fmt.Errorf("database instance cannot be nil")
	}
	return &MessageLedger{db: conn}, nil
}

// InboundMessage carries everything the ledger needs from a provider event.
type InboundMessage struct {
	Content           string
	Type              models.MessageType
	ProviderMessageID string
	ProviderTimestamp *time.Time
	SenderName        string
}

// AppendInbound records a message received from the contact. The conversation
// preview, activity timestamp and unread counter are refreshed, and the owning
// channel's message counter bumped.
func (s *MessageLedger) AppendInbound(conv *models.Conversation, in InboundMessage) (*models.Message, error) {
	msg := models.Message{
		TenantID:          conv.TenantID,
		ConversationID:    conv.ID,
		FromMe:            false,
		Content:           in.Content,
		Type:              in.Type,
		Status:            models.MessageDelivered,
		ProviderMessageID: in.ProviderMessageID,
		ProviderTimestamp: in.ProviderTimestamp,
		SenderName:        in.SenderName,
	}
	if msg.Type == "" {
		msg.Type = models.MessageUnknown
	}

	if err := s.db.Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("failed to create inbound message: %w", err)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"last_message_preview": truncatePreview(in.Content),
		"last_message_at":      now,
		"unread_count":         gorm.Expr("unread_count + 1"),
	}
	if err := s.db.Model(&models.Conversation{}).Where("id = ?", conv.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update conversation after inbound message: %w", err)
	}

	err := s.db.Model(&models.Channel{}).Where("id = ?", conv.ChannelID).Updates(map[string]interface{}{
		"message_count":    gorm.Expr("message_count + 1"),
		"last_activity_at": now,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update channel activity: %w", err)
	}

	log.Debug().Uint("conversationID", conv.ID).Str("providerMessageID", in.ProviderMessageID).Msg("Appended inbound message")
	return &msg, nil
}

// AppendOutbound records a message sent by the tenant's own agent. The unread
// counter is untouched.
func (s *MessageLedger) AppendOutbound(conv *models.Conversation, content string, providerMessageID string) (*models.Message, error) {
	msg := models.Message{
		TenantID:          conv.TenantID,
		ConversationID:    conv.ID,
		FromMe:            true,
		Content:           content,
		Type:              models.MessageText,
		Status:            models.MessageSent,
		ProviderMessageID: providerMessageID,
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("failed to create outbound message: %w", err)
	}

	now := time.Now()
	err := s.db.Model(&models.Conversation{}).Where("id = ?", conv.ID).Updates(map[string]interface{}{
		"last_message_preview": truncatePreview(content),
		"last_message_at":      now,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update conversation after outbound message: %w", err)
	}

	return &msg, nil
}

// MarkRead advances every inbound sent/delivered message of the conversation to
// read and resets the unread counter. Calling it again is a no-op.
func (s *MessageLedger) MarkRead(tenantID, conversationID uint) error {
	err := s.db.Model(&models.Message{}).
		Where("tenant_id = ? AND conversation_id = ? AND from_me = ? AND status IN ?",
			tenantID, conversationID, false,
			[]models.MessageStatus{models.MessageSent, models.MessageDelivered}).
		Update("status", models.MessageRead).Error
	if err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}

	err = s.db.Model(&models.Conversation{}).
		Where("tenant_id = ? AND id = ?", tenantID, conversationID).
		Update("unread_count", 0).Error
	if err != nil {
		return fmt.Errorf("failed to reset unread counter: %w", err)
	}
	return nil
}

// List returns the messages of a conversation in chronological order.
func (s *MessageLedger) List(tenantID, conversationID uint) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.
		Where("tenant_id = ? AND conversation_id = ?", tenantID, conversationID).
		Order("id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("error listing messages: %w", err)
	}
	return msgs, nil
}

func truncatePreview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewMaxLen {
		return content
	}
	return string(runes[:previewMaxLen])
}
