package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"onethy/internal/models"
	"onethy/internal/services"

	"gorm.io/gorm"
)

// ListConversations returns the tenant's conversations, newest activity first.
// Optional filters: status, channel_id, assigned_agent_id.
func (s *Server) ListConversations(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)

	query := s.db.Where("tenant_id = ?", tenant.ID)
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if raw := r.URL.Query().Get("channel_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			query = query.Where("channel_id = ?", uint(id))
		}
	}
	if raw := r.URL.Query().Get("assigned_agent_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			query = query.Where("assigned_agent_id = ?", uint(id))
		}
	}

	var conversations []models.Conversation
	err := query.Preload("Contact").Order("last_message_at DESC").Find(&conversations).Error
	if err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}
	s.respondWithJSON(w, http.StatusOK, conversations)
}

// GetConversation returns one conversation with its contact and channel.
func (s *Server) GetConversation(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	var conv models.Conversation
	err = s.db.Preload("Contact").Preload("Channel").
		Where("tenant_id = ? AND id = ?", tenant.ID, id).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.respondWithError(w, http.StatusNotFound, "conversation not found")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}
	s.respondWithJSON(w, http.StatusOK, conv)
}

type updateConversationRequest struct {
	Status   *models.ConversationStatus   `json:"status"`
	Priority *models.ConversationPriority `json:"priority"`
	Labels   *string                      `json:"labels"`
}

var validStatuses = map[models.ConversationStatus]bool{
	models.ConversationOpen:    true,
	models.ConversationPending: true,
	models.ConversationClosed:  true,
}

var validPriorities = map[models.ConversationPriority]bool{
	models.PriorityLow:    true,
	models.PriorityMedium: true,
	models.PriorityHigh:   true,
	models.PriorityUrgent: true,
}

// UpdateConversation applies a partial status/priority/label update.
func (s *Server) UpdateConversation(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	var req updateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Status != nil && !validStatuses[*req.Status] {
		s.respondWithError(w, http.StatusBadRequest, "invalid status")
		return
	}
	if req.Priority != nil && !validPriorities[*req.Priority] {
		s.respondWithError(w, http.StatusBadRequest, "invalid priority")
		return
	}

	conv, err := s.router.Update(tenant.ID, id, services.ConversationUpdate{
		Status:   req.Status,
		Priority: req.Priority,
		Labels:   req.Labels,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.respondWithError(w, http.StatusNotFound, "conversation not found")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "failed to update conversation")
		return
	}
	s.respondWithJSON(w, http.StatusOK, conv)
}

type assignRequest struct {
	AgentID *uint `json:"agent_id"`
	TeamID  *uint `json:"team_id"`
}

// AssignConversation sets the agent and/or team directly.
func (s *Server) AssignConversation(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.AgentID == nil && req.TeamID == nil {
		s.respondWithError(w, http.StatusBadRequest, "agent_id or team_id is required")
		return
	}

	conv, err := s.router.Assign(tenant.ID, id, req.AgentID, req.TeamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.respondWithError(w, http.StatusNotFound, "conversation not found")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "failed to assign conversation")
		return
	}

	s.publisher.Publish("conversation.assigned", tenant.ID, conv.ChannelID, map[string]interface{}{
		"conversation_id": conv.ID,
		"agent_id":        conv.AssignedAgentID,
		"team_id":         conv.AssignedTeamID,
	})
	s.respondWithJSON(w, http.StatusOK, conv)
}

type autoAssignRequest struct {
	TeamID uint `json:"team_id"`
}

// AutoAssignConversation assigns the least-loaded online member of a team.
func (s *Server) AutoAssignConversation(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	var req autoAssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TeamID == 0 {
		s.respondWithError(w, http.StatusBadRequest, "team_id is required")
		return
	}

	conv, err := s.router.AutoAssign(tenant.ID, id, req.TeamID)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			s.respondWithError(w, http.StatusNotFound, "conversation not found")
		case errors.Is(err, services.ErrNoAgentAvailable):
			s.respondWithError(w, http.StatusBadRequest, "no agent available")
		default:
			s.respondWithError(w, http.StatusInternalServerError, "failed to auto-assign conversation")
		}
		return
	}

	s.publisher.Publish("conversation.assigned", tenant.ID, conv.ChannelID, map[string]interface{}{
		"conversation_id": conv.ID,
		"agent_id":        conv.AssignedAgentID,
		"team_id":         conv.AssignedTeamID,
	})
	s.respondWithJSON(w, http.StatusOK, conv)
}
