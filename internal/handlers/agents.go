package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"onethy/internal/models"

	"gorm.io/gorm"
)

type agentRequest struct {
	Name     string               `json:"name"`
	Email    string               `json:"email"`
	Presence models.AgentPresence `json:"presence"`
}

// updateAgentRequest uses pointers so an omitted field is left untouched
// while an explicit empty string clears it.
type updateAgentRequest struct {
	Name     *string               `json:"name"`
	Email    *string               `json:"email"`
	Presence *models.AgentPresence `json:"presence"`
}

var validPresences = map[models.AgentPresence]bool{
	models.PresenceOnline:  true,
	models.PresenceAway:    true,
	models.PresenceOffline: true,
}

// ListAgents returns the tenant's agents.
func (s *Server) ListAgents(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)

	var agents []models.Agent
	if err := s.db.Where("tenant_id = ?", tenant.ID).Order("id ASC").Find(&agents).Error; err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "failed to list agents")
		return
	}
	s.respondWithJSON(w, http.StatusOK, agents)
}

// CreateAgent creates an agent.
func (s *Server) CreateAgent(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)

	var req agentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		s.respondWithError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Presence == "" {
		req.Presence = models.PresenceOffline
	}
	if !validPresences[req.Presence] {
		s.respondWithError(w, http.StatusBadRequest, "invalid presence")
		return
	}

	agent := models.Agent{TenantID: tenant.ID, Name: req.Name, Email: req.Email, Presence: req.Presence}
	if err := s.db.Create(&agent).Error; err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "failed to create agent")
		return
	}
	s.respondWithJSON(w, http.StatusCreated, agent)
}

// UpdateAgent edits an agent, including its presence status.
func (s *Server) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	var agent models.Agent
	err = s.db.Where("tenant_id = ? AND id = ?", tenant.ID, id).First(&agent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.respondWithError(w, http.StatusNotFound, "agent not found")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "failed to load agent")
		return
	}

	var req updateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Name != nil && *req.Name == "" {
		s.respondWithError(w, http.StatusBadRequest, "name cannot be empty")
		return
	}
	if req.Presence != nil && !validPresences[*req.Presence] {
		s.respondWithError(w, http.StatusBadRequest, "invalid presence")
		return
	}

	if req.Name != nil {
		agent.Name = *req.Name
	}
	if req.Email != nil {
		agent.Email = *req.Email
	}
	if req.Presence != nil {
		agent.Presence = *req.Presence
	}
	if err := s.db.Save(&agent).Error; err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "failed to update agent")
		return
	}
	s.respondWithJSON(w, http.StatusOK, agent)
}

// DeleteAgent removes an agent and its team memberships.
func (s *Server) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	var agent models.Agent
	err = s.db.Where("tenant_id = ? AND id = ?", tenant.ID, id).First(&agent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.respondWithError(w, http.StatusNotFound, "agent not found")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "failed to load agent")
		return
	}

	s.db.Where("agent_id = ?", agent.ID).Delete(&models.TeamMember{})
	if err := s.db.Delete(&agent).Error; err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "failed to delete agent")
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}
