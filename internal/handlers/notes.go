package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"onethy/internal/models"

	"gorm.io/gorm"
)

type noteRequest struct {
	Body    string `json:"body"`
	AgentID *uint  `json:"agent_id"`
}

// ListNotes returns the internal annotations of a conversation.
func (s *Server) ListNotes(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	conversationID, err := pathID(r, "id")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	if _, err := s.loadConversation(tenant.ID, conversationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.respondWithError(w, http.StatusNotFound, "conversation not found")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}

	var notes []models.Note
	err = s.db.Where("tenant_id = ? AND conversation_id = ?", tenant.ID, conversationID).
		Order("id ASC").Find(&notes).Error
	if err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "failed to list notes")
		return
	}
	s.respondWithJSON(w, http.StatusOK, notes)
}

// CreateNote adds an internal annotation to a conversation.
func (s *Server) CreateNote(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	conversationID, err := pathID(r, "id")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	if _, err := s.loadConversation(tenant.ID, conversationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.respondWithError(w, http.StatusNotFound, "conversation not found")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}

	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Body == "" {
		s.respondWithError(w, http.StatusBadRequest, "body is required")
		return
	}

	note := models.Note{
		TenantID:       tenant.ID,
		ConversationID: conversationID,
		AgentID:        req.AgentID,
		Body:           req.Body,
	}
	if err := s.db.Create(&note).Error; err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "failed to create note")
		return
	}
	s.respondWithJSON(w, http.StatusCreated, note)
}

// UpdateNote edits an annotation.
func (s *Server) UpdateNote(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid note id")
		return
	}

	var note models.Note
	err = s.db.Where("tenant_id = ? AND id = ?", tenant.ID, id).First(&note).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.respondWithError(w, http.StatusNotFound, "note not found")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "failed to load note")
		return
	}

	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Body == "" {
		s.respondWithError(w, http.StatusBadRequest, "body is required")
		return
	}

	note.Body = req.Body
	if err := s.db.Save(&note).Error; err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "failed to update note")
		return
	}
	s.respondWithJSON(w, http.StatusOK, note)
}

// DeleteNote removes an annotation.
func (s *Server) DeleteNote(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid note id")
		return
	}

	res := s.db.Where("tenant_id = ? AND id = ?", tenant.ID, id).Delete(&models.Note{})
	if res.Error != nil {
		s.respondWithError(w, http.StatusInternalServerError, "failed to delete note")
		return
	}
	if res.RowsAffected == 0 {
		s.respondWithError(w, http.StatusNotFound, "note not found")
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}
