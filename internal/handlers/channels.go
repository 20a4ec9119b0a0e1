package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"onethy/internal/models"

	"gorm.io/gorm"
)

type createChannelRequest struct {
	Name string `json:"name"`
}

// ListChannels returns the tenant's channels.
func (s *Server) ListChannels(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)

	var channels []models.Channel
	if err := s.db.Where("tenant_id = ?", tenant.ID).Order("id ASC").Find(&channels).Error; err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "failed to list channels")
		return
	}
	s.respondWithJSON(w, http.StatusOK, channels)
}

// CreateChannel provisions a channel and its provider-side instance.
func (s *Server) CreateChannel(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)

	var req createChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		s.respondWithError(w, http.StatusBadRequest, "name is required")
		return
	}

	channel, err := s.channels.Provision(tenant.ID, req.Name)
	if err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "channel provisioning failed: "+err.Error())
		return
	}
	s.respondWithJSON(w, http.StatusCreated, channel)
}

// GetChannel returns one channel.
func (s *Server) GetChannel(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid channel id")
		return
	}

	var channel models.Channel
	err = s.db.Where("tenant_id = ? AND id = ?", tenant.ID, id).First(&channel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.respondWithError(w, http.StatusNotFound, "channel not found")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "failed to load channel")
		return
	}
	s.respondWithJSON(w, http.StatusOK, channel)
}

// DeleteChannel removes the channel and its gateway instance.
func (s *Server) DeleteChannel(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid channel id")
		return
	}

	channel, err := s.channels.Delete(tenant.ID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.respondWithError(w, http.StatusNotFound, "channel not found")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "channel deletion failed: "+err.Error())
		return
	}
	// A cached token would keep webhooks routing to the dead channel.
	s.channelCache.Delete(channel.WebhookToken)
	s.respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ConnectChannel asks the gateway for pairing material.
func (s *Server) ConnectChannel(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid channel id")
		return
	}

	pairing, err := s.channels.Connect(tenant.ID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.respondWithError(w, http.StatusNotFound, "channel not found")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "channel connect failed: "+err.Error())
		return
	}
	s.respondWithJSON(w, http.StatusOK, pairing)
}

// RestartChannel restarts the gateway session.
func (s *Server) RestartChannel(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid channel id")
		return
	}

	if err := s.channels.Restart(tenant.ID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.respondWithError(w, http.StatusNotFound, "channel not found")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "channel restart failed: "+err.Error())
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// LogoutChannel disconnects the channel from WhatsApp.
func (s *Server) LogoutChannel(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid channel id")
		return
	}

	if err := s.channels.Logout(tenant.ID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.respondWithError(w, http.StatusNotFound, "channel not found")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "channel logout failed: "+err.Error())
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}
