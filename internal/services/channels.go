package services

import (
	"fmt"
	"strings"
	"time"

	"onethy/internal/adapters/evolution"
	"onethy/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// webhookEvents is the subset of gateway events this service consumes.
var webhookEvents = []string{"MESSAGES_UPSERT", "CONNECTION_UPDATE"}

// ChannelManager provisions and controls the tenant's messaging endpoints on
// the external gateway and keeps their local records in step.
type ChannelManager struct {
	db            *gorm.DB
	gateway       evolution.GatewayClient
	publicBaseURL string
}

// NewChannelManager creates a new ChannelManager. publicBaseURL is the
// externally reachable address registered with the gateway for callbacks.
func NewChannelManager(conn *gorm.DB, gateway evolution.GatewayClient, publicBaseURL string) (*ChannelManager, error) {
	if conn == nil {
		return nil, fmt.Errorf("database instance cannot be nil")
	}
	if gateway == nil {
		return nil, fmt.Errorf("gateway client cannot be nil")
	}
	return &ChannelManager{
		db:            conn,
		gateway:       gateway,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// Provision creates the local channel record, the provider-side instance, and
// registers this service's webhook for it.
func (s *ChannelManager) Provision(tenantID uint, name string) (*models.Channel, error) {
	token := uuid.NewString()
	instanceName := fmt.Sprintf("onethy-%d-%s", tenantID, uuid.NewString()[:8])

	channel := models.Channel{
		TenantID:     tenantID,
		Name:         name,
		Type:         "whatsapp",
		Status:       models.ChannelDisconnected,
		InstanceName: instanceName,
		WebhookToken: token,
	}
	if err := s.db.Create(&channel).Error; err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	if _, err := s.gateway.CreateInstance(instanceName); err != nil {
		// Roll the local record back so a provisioning retry is clean.
		s.db.Delete(&channel)
		return nil, fmt.Errorf("gateway instance creation failed: %w", err)
	}

	webhookURL := fmt.Sprintf("%s/webhook/%s", s.publicBaseURL, token)
	err := s.gateway.SetWebhook(instanceName, evolution.WebhookConfig{
		URL:             webhookURL,
		WebhookByEvents: false,
		Events:          webhookEvents,
	})
	if err != nil {
		log.Error().Err(err).Str("instanceName", instanceName).Msg("Failed to register webhook for new instance")
		if delErr := s.gateway.DeleteInstance(instanceName); delErr != nil {
			log.Warn().Err(delErr).Str("instanceName", instanceName).Msg("Failed to clean up gateway instance after webhook registration failure")
		}
		s.db.Delete(&channel)
		return nil, fmt.Errorf("gateway webhook registration failed: %w", err)
	}

	log.Info().Uint("channelID", channel.ID).Str("instanceName", instanceName).Msg("Provisioned channel")
	return &channel, nil
}

// Connect requests pairing material from the gateway and moves the channel to
// the connecting state.
func (s *ChannelManager) Connect(tenantID, channelID uint) (*evolution.ConnectResponse, error) {
	channel, err := s.get(tenantID, channelID)
	if err != nil {
		return nil, err
	}

	pairing, err := s.gateway.ConnectInstance(channel.InstanceName)
	if err != nil {
		return nil, fmt.Errorf("gateway connect failed: %w", err)
	}

	if err := s.setStatus(channel, models.ChannelConnecting); err != nil {
		return nil, err
	}
	return pairing, nil
}

// Restart restarts the provider-side session.
func (s *ChannelManager) Restart(tenantID, channelID uint) error {
	channel, err := s.get(tenantID, channelID)
	if err != nil {
		return err
	}
	if err := s.gateway.RestartInstance(channel.InstanceName); err != nil {
		return fmt.Errorf("gateway restart failed: %w", err)
	}
	return s.setStatus(channel, models.ChannelConnecting)
}

// Logout disconnects the channel from WhatsApp without deleting it.
func (s *ChannelManager) Logout(tenantID, channelID uint) error {
	channel, err := s.get(tenantID, channelID)
	if err != nil {
		return err
	}
	if err := s.gateway.LogoutInstance(channel.InstanceName); err != nil {
		return fmt.Errorf("gateway logout failed: %w", err)
	}
	return s.setStatus(channel, models.ChannelDisconnected)
}

// Delete removes the channel and cascades the provider-side instance deletion.
// The removed channel is returned so callers can drop state keyed by it.
func (s *ChannelManager) Delete(tenantID, channelID uint) (*models.Channel, error) {
	channel, err := s.get(tenantID, channelID)
	if err != nil {
		return nil, err
	}
	if err := s.gateway.DeleteInstance(channel.InstanceName); err != nil {
		return nil, fmt.Errorf("gateway instance deletion failed: %w", err)
	}
	if err := s.db.Delete(channel).Error; err != nil {
		return nil, err
	}
	return channel, nil
}

// FindByWebhookToken resolves the channel a webhook delivery is addressed to.
func (s *ChannelManager) FindByWebhookToken(token string) (*models.Channel, error) {
	var channel models.Channel
	err := s.db.Where("webhook_token = ?", token).First(&channel).Error
	if err != nil {
		return nil, err
	}
	return &channel, nil
}

// UpdateConnectionState maps the provider's connection vocabulary onto the
// channel status and refreshes its activity timestamp.
func (s *ChannelManager) UpdateConnectionState(channel *models.Channel, providerState string) error {
	var status models.ChannelStatus
	switch providerState {
	case "open":
		status = models.ChannelConnected
	case "connecting":
		status = models.ChannelConnecting
	case "close":
		status = models.ChannelDisconnected
	default:
		log.Warn().Str("state", providerState).Uint("channelID", channel.ID).Msg("Unknown provider connection state")
		return nil
	}

	now := time.Now()
	err := s.db.Model(&models.Channel{}).Where("id = ?", channel.ID).Updates(map[string]interface{}{
		"status":           status,
		"last_activity_at": now,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update channel status: %w", err)
	}

	log.Info().Uint("channelID", channel.ID).Str("status", string(status)).Msg("Channel connection state updated")
	return nil
}

func (s *ChannelManager) get(tenantID, channelID uint) (*models.Channel, error) {
	var channel models.Channel
	err := s.db.Where("tenant_id = ? AND id = ?", tenantID, channelID).First(&channel).Error
	if err != nil {
		return nil, err
	}
	return &channel, nil
}

func (s *ChannelManager) setStatus(channel *models.Channel, status models.ChannelStatus) error {
	if err := s.db.Model(channel).Update("status", status).Error; err != nil {
		return fmt.Errorf("failed to update channel status: %w", err)
	}
	return nil
}
