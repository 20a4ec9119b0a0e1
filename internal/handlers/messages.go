package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"onethy/internal/models"

	"gorm.io/gorm"
)

// ListMessages returns a conversation's messages in chronological order.
func (s *Server) ListMessages(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	if _, err := s.loadConversation(tenant.ID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.respondWithError(w, http.StatusNotFound, "conversation not found")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}

	msgs, err := s.ledger.List(tenant.ID, id)
	if err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	s.respondWithJSON(w, http.StatusOK, msgs)
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessage delivers a text message through the gateway and records it in
// the ledger.
func (s *Server) SendMessage(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		s.respondWithError(w, http.StatusBadRequest, "content is required")
		return
	}

	conv, err := s.loadConversation(tenant.ID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.respondWithError(w, http.StatusNotFound, "conversation not found")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}

	sent, err := s.gateway.SendText(conv.Channel.InstanceName, conv.Contact.Phone, req.Content)
	if err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "gateway send failed: "+err.Error())
		return
	}

	msg, err := s.ledger.AppendOutbound(conv, req.Content, sent.Key.ID)
	if err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "failed to record message")
		return
	}
	s.respondWithJSON(w, http.StatusCreated, msg)
}

// MarkConversationRead advances inbound messages to read and clears the unread
// counter. Repeating the call is harmless.
func (s *Server) MarkConversationRead(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	if _, err := s.loadConversation(tenant.ID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.respondWithError(w, http.StatusNotFound, "conversation not found")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}

	if err := s.ledger.MarkRead(tenant.ID, id); err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "failed to mark conversation read")
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) loadConversation(tenantID, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.Preload("Contact").Preload("Channel").
		Where("tenant_id = ? AND id = ?", tenantID, id).First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}
