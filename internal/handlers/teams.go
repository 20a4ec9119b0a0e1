package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"onethy/internal/models"

	"gorm.io/gorm"
)

type teamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// updateTeamRequest uses pointers so an omitted field is left untouched while
// an explicit empty string clears it.
type updateTeamRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// ListTeams returns the tenant's teams with their members.
func (s *Server) ListTeams(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)

	var teams []models.Team
	err := s.db.Preload("Members").Where("tenant_id = ?", tenant.ID).Order("id ASC").Find(&teams).Error
	if err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "failed to list teams")
		return
	}
	s.respondWithJSON(w, http.StatusOK, teams)
}

// CreateTeam creates a team.
func (s *Server) CreateTeam(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)

	var req teamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		s.respondWithError(w, http.StatusBadRequest, "name is required")
		return
	}

	team := models.Team{TenantID: tenant.ID, Name: req.Name, Description: req.Description}
	if err := s.db.Create(&team).Error; err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "failed to create team")
		return
	}
	s.respondWithJSON(w, http.StatusCreated, team)
}

// GetTeam returns one team with its members.
func (s *Server) GetTeam(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid team id")
		return
	}

	team, err := s.loadTeam(tenant.ID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.respondWithError(w, http.StatusNotFound, "team not found")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "failed to load team")
		return
	}
	s.respondWithJSON(w, http.StatusOK, team)
}

// UpdateTeam renames a team.
func (s *Server) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid team id")
		return
	}

	team, err := s.loadTeam(tenant.ID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.respondWithError(w, http.StatusNotFound, "team not found")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "failed to load team")
		return
	}

	var req updateTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Name != nil && *req.Name == "" {
		s.respondWithError(w, http.StatusBadRequest, "name cannot be empty")
		return
	}
	if req.Name != nil {
		team.Name = *req.Name
	}
	if req.Description != nil {
		team.Description = *req.Description
	}
	if err := s.db.Save(team).Error; err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "failed to update team")
		return
	}
	s.respondWithJSON(w, http.StatusOK, team)
}

// DeleteTeam removes a team and its membership rows.
func (s *Server) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid team id")
		return
	}

	team, err := s.loadTeam(tenant.ID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.respondWithError(w, http.StatusNotFound, "team not found")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "failed to load team")
		return
	}

	s.db.Where("team_id = ?", team.ID).Delete(&models.TeamMember{})
	if err := s.db.Delete(team).Error; err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "failed to delete team")
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type addMemberRequest struct {
	AgentID uint `json:"agent_id"`
}

// AddTeamMember links an agent to a team.
func (s *Server) AddTeamMember(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid team id")
		return
	}

	if _, err := s.loadTeam(tenant.ID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.respondWithError(w, http.StatusNotFound, "team not found")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "failed to load team")
		return
	}

	var req addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AgentID == 0 {
		s.respondWithError(w, http.StatusBadRequest, "agent_id is required")
		return
	}

	var agent models.Agent
	err = s.db.Where("tenant_id = ? AND id = ?", tenant.ID, req.AgentID).First(&agent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.respondWithError(w, http.StatusNotFound, "agent not found")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "failed to load agent")
		return
	}

	var existing int64
	s.db.Model(&models.TeamMember{}).Where("team_id = ? AND agent_id = ?", id, req.AgentID).Count(&existing)
	if existing > 0 {
		s.respondWithError(w, http.StatusBadRequest, "agent is already a member of this team")
		return
	}

	member := models.TeamMember{TeamID: id, AgentID: req.AgentID}
	if err := s.db.Create(&member).Error; err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "failed to add team member")
		return
	}
	s.respondWithJSON(w, http.StatusCreated, member)
}

// RemoveTeamMember unlinks an agent from a team.
func (s *Server) RemoveTeamMember(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	teamID, err := pathID(r, "id")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid team id")
		return
	}
	agentID, err := pathID(r, "agentId")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid agent id")
		return
	}

	if _, err := s.loadTeam(tenant.ID, teamID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.respondWithError(w, http.StatusNotFound, "team not found")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "failed to load team")
		return
	}

	res := s.db.Where("team_id = ? AND agent_id = ?", teamID, agentID).Delete(&models.TeamMember{})
	if res.Error != nil {
		s.respondWithError(w, http.StatusInternalServerError, "failed to remove team member")
		return
	}
	if res.RowsAffected == 0 {
		s.respondWithError(w, http.StatusNotFound, "membership not found")
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) loadTeam(tenantID, id uint) (*models.Team, error) {
	var team models.Team
	err := s.db.Preload("Members").Where("tenant_id = ? AND id = ?", tenantID, id).First(&team).Error
	if err != nil {
		return nil, err
	}
	return &team, nil
}
