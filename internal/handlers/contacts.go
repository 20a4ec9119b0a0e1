package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"onethy/internal/models"
	"onethy/internal/services"

	"gorm.io/gorm"
)

type contactRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	Notes string `json:"notes"`
}

// updateContactRequest uses pointers so an omitted field is left untouched
// while an explicit empty string clears it.
type updateContactRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Notes *string `json:"notes"`
}

// ListContacts returns the tenant's contacts, optionally filtered by a search
// term matched against name and phone.
func (s *Server) ListContacts(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)

	query := s.db.Where("tenant_id = ?", tenant.ID)
	if term := r.URL.Query().Get("search"); term != "" {
		like := "%" + term + "%"
		query = query.Where("name LIKE ? OR phone LIKE ?", like, like)
	}

	var contacts []models.Contact
	if err := query.Order("name ASC").Find(&contacts).Error; err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "failed to list contacts")
		return
	}
	s.respondWithJSON(w, http.StatusOK, contacts)
}

// CreateContact creates a contact from a CRM edit.
func (s *Server) CreateContact(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)

	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Phone == "" {
		s.respondWithError(w, http.StatusBadRequest, "phone is required")
		return
	}
	if req.Name == "" {
		req.Name = req.Phone
	}

	var existing int64
	s.db.Model(&models.Contact{}).Where("tenant_id = ? AND phone = ?", tenant.ID, req.Phone).Count(&existing)
	if existing > 0 {
		s.respondWithError(w, http.StatusBadRequest, "a contact with this phone already exists")
		return
	}

	contact := models.Contact{
		TenantID: tenant.ID,
		Name:     req.Name,
		Phone:    req.Phone,
		Email:    req.Email,
		Notes:    req.Notes,
	}
	if err := s.db.Create(&contact).Error; err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "failed to create contact")
		return
	}
	s.respondWithJSON(w, http.StatusCreated, contact)
}

// GetContact returns one contact.
func (s *Server) GetContact(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid contact id")
		return
	}

	var contact models.Contact
	err = s.db.Where("tenant_id = ? AND id = ?", tenant.ID, id).First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.respondWithError(w, http.StatusNotFound, "contact not found")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "failed to load contact")
		return
	}
	s.respondWithJSON(w, http.StatusOK, contact)
}

// UpdateContact applies a CRM edit.
func (s *Server) UpdateContact(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid contact id")
		return
	}

	var contact models.Contact
	err = s.db.Where("tenant_id = ? AND id = ?", tenant.ID, id).First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.respondWithError(w, http.StatusNotFound, "contact not found")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "failed to load contact")
		return
	}

	var req updateContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Name != nil && *req.Name == "" {
		s.respondWithError(w, http.StatusBadRequest, "name cannot be empty")
		return
	}

	if req.Name != nil {
		contact.Name = *req.Name
	}
	if req.Email != nil {
		contact.Email = *req.Email
	}
	if req.Notes != nil {
		contact.Notes = *req.Notes
	}
	if err := s.db.Save(&contact).Error; err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "failed to update contact")
		return
	}
	s.respondWithJSON(w, http.StatusOK, contact)
}

// DeleteContact removes a contact unless it still has non-closed conversations.
func (s *Server) DeleteContact(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid contact id")
		return
	}

	err = s.contacts.Delete(tenant.ID, id)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			s.respondWithError(w, http.StatusNotFound, "contact not found")
		case errors.Is(err, services.ErrContactHasOpenConversations):
			s.respondWithError(w, http.StatusBadRequest, "contact still has open conversations")
		default:
			s.respondWithError(w, http.StatusInternalServerError, "failed to delete contact")
		}
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}
