package services

import (
	"errors"
	"fmt"
	"time"

	"onethy/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ConversationRouter finds or opens conversation threads and applies assignment
// rules, direct or least-loaded round-robin across a team.
type ConversationRouter struct {
	db *gorm.DB
}

// NewConversationRouter creates a new ConversationRouter.
func NewConversationRouter(conn *gorm.DB) (*ConversationRouter, error) {
	if conn == nil {
		return nil, fmt.Errorf("database instance cannot be nil")
	}
	return &ConversationRouter{db: conn}, nil
}

// FindOrOpen returns the non-closed conversation for the (contact, channel)
// pair, opening a fresh one when none exists.
func (s *ConversationRouter) FindOrOpen(tenantID, contactID, channelID uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.
		Where("tenant_id = ? AND contact_id = ? AND channel_id = ? AND status <> ?",
			tenantID, contactID, channelID, models.ConversationClosed).
		First(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("error querying conversation: %w", err)
	}

	now := time.Now()
	conv = models.Conversation{
		TenantID:      tenantID,
		ContactID:     contactID,
		ChannelID:     channelID,
		Status:        models.ConversationOpen,
		Priority:      models.PriorityMedium,
		LastMessageAt: &now,
	}
	if err := s.db.Create(&conv).Error; err != nil {
		return nil, fmt.Errorf("failed to open conversation: %w", err)
	}

	log.Info().Uint("conversationID", conv.ID).Uint("contactID", contactID).Uint("channelID", channelID).Msg("Opened conversation")
	return &conv, nil
}

// Assign sets the agent and/or team on a conversation directly. Assignment
// implicitly reopens the conversation.
func (s *ConversationRouter) Assign(tenantID, conversationID uint, agentID, teamID *uint) (*models.Conversation, error) {
	conv, err := s.get(tenantID, conversationID)
	if err != nil {
		return nil, err
	}

	if agentID != nil {
		conv.AssignedAgentID = agentID
	}
	if teamID != nil {
		conv.AssignedTeamID = teamID
	}
	conv.Status = models.ConversationOpen

	if err := s.db.Save(conv).Error; err != nil {
		return nil, fmt.Errorf("failed to assign conversation: %w", err)
	}
	return conv, nil
}

// AutoAssign picks the online member of the team with the fewest active (open
// or pending) assigned conversations and assigns it together with the team.
// Agents are scanned in ascending id order; the first least-loaded one wins.
func (s *ConversationRouter) AutoAssign(tenantID, conversationID, teamID uint) (*models.Conversation, error) {
	conv, err := s.get(tenantID, conversationID)
	if err != nil {
		return nil, err
	}

	var agents []models.Agent
	err = s.db.
		Joins("JOIN team_members ON team_members.agent_id = agents.id").
		Where("team_members.team_id = ? AND agents.tenant_id = ? AND agents.presence = ?",
			teamID, tenantID, models.PresenceOnline).
		Order("agents.id ASC").
		Find(&agents).Error
	if err != nil {
		return nil, fmt.Errorf("error querying team agents: %w", err)
	}
	if len(agents) == 0 {
		return nil, ErrNoAgentAvailable
	}

	var best *models.Agent
	bestLoad := int64(-1)
	for i := range agents {
		var load int64
		err = s.db.Model(&models.Conversation{}).
			Where("tenant_id = ? AND assigned_agent_id = ? AND status IN ?",
				tenantID, agents[i].ID, []models.ConversationStatus{models.ConversationOpen, models.ConversationPending}).
			Count(&load).Error
		if err != nil {
			return nil, fmt.Errorf("error counting agent load: %w", err)
		}
		if best == nil || load < bestLoad {
			best = &agents[i]
			bestLoad = load
		}
	}

	conv.AssignedAgentID = &best.ID
	conv.AssignedTeamID = &teamID
	conv.Status = models.ConversationOpen

	if err := s.db.Save(conv).Error; err != nil {
		return nil, fmt.Errorf("failed to auto-assign conversation: %w", err)
	}

	log.Info().
		Uint("conversationID", conv.ID).
		Uint("agentID", best.ID).
		Uint("teamID", teamID).
		Int64("agentLoad", bestLoad).
		Msg("Auto-assigned conversation")
	return conv, nil
}

// ConversationUpdate carries a partial update; nil fields are left unchanged.
type ConversationUpdate struct {
	Status   *models.ConversationStatus
	Priority *models.ConversationPriority
	Labels   *string
}

// Update applies a partial status/priority/label update and refreshes UpdatedAt.
func (s *ConversationRouter) Update(tenantID, conversationID uint, upd ConversationUpdate) (*models.Conversation, error) {
	conv, err := s.get(tenantID, conversationID)
	if err != nil {
		return nil, err
	}

	if upd.Status != nil {
		conv.Status = *upd.Status
	}
	if upd.Priority != nil {
		conv.Priority = *upd.Priority
	}
	if upd.Labels != nil {
		conv.Labels = *upd.Labels
	}
	conv.UpdatedAt = time.Now()

	if err := s.db.Save(conv).Error; err != nil {
		return nil, fmt.Errorf("failed to update conversation: %w", err)
	}
	return conv, nil
}

func (s *ConversationRouter) get(tenantID, conversationID uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.Where("tenant_id = ? AND id = ?", tenantID, conversationID).First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}
