package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"onethy/internal/models"

	"gorm.io/gorm"
)

type macroRequest struct {
	Shortcut string `json:"shortcut"`
	Content  string `json:"content"`
}

// updateMacroRequest uses pointers so an omitted field is left untouched.
// Neither field may be cleared: a macro without a shortcut or body is useless.
type updateMacroRequest struct {
	Shortcut *string `json:"shortcut"`
	Content  *string `json:"content"`
}

// ListMacros returns the tenant's canned replies.
func (s *Server) ListMacros(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)

	var macros []models.Macro
	if err := s.db.Where("tenant_id = ?", tenant.ID).Order("shortcut ASC").Find(&macros).Error; err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "failed to list macros")
		return
	}
	s.respondWithJSON(w, http.StatusOK, macros)
}

// CreateMacro creates a canned reply. Shortcuts are unique per tenant.
func (s *Server) CreateMacro(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)

	var req macroRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Shortcut == "" || req.Content == "" {
		s.respondWithError(w, http.StatusBadRequest, "shortcut and content are required")
		return
	}

	var existing int64
	s.db.Model(&models.Macro{}).Where("tenant_id = ? AND shortcut = ?", tenant.ID, req.Shortcut).Count(&existing)
	if existing > 0 {
		s.respondWithError(w, http.StatusBadRequest, "a macro with this shortcut already exists")
		return
	}

	macro := models.Macro{TenantID: tenant.ID, Shortcut: req.Shortcut, Content: req.Content}
	if err := s.db.Create(&macro).Error; err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "failed to create macro")
		return
	}
	s.respondWithJSON(w, http.StatusCreated, macro)
}

// UpdateMacro edits a canned reply.
func (s *Server) UpdateMacro(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid macro id")
		return
	}

	var macro models.Macro
	err = s.db.Where("tenant_id = ? AND id = ?", tenant.ID, id).First(&macro).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.respondWithError(w, http.StatusNotFound, "macro not found")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "failed to load macro")
		return
	}

	var req updateMacroRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if (req.Shortcut != nil && *req.Shortcut == "") || (req.Content != nil && *req.Content == "") {
		s.respondWithError(w, http.StatusBadRequest, "shortcut and content cannot be empty")
		return
	}

	if req.Shortcut != nil && *req.Shortcut != macro.Shortcut {
		var existing int64
		s.db.Model(&models.Macro{}).Where("tenant_id = ? AND shortcut = ?", tenant.ID, *req.Shortcut).Count(&existing)
		if existing > 0 {
			s.respondWithError(w, http.StatusBadRequest, "a macro with this shortcut already exists")
			return
		}
		macro.Shortcut = *req.Shortcut
	}
	if req.Content != nil {
		macro.Content = *req.Content
	}
	if err := s.db.Save(&macro).Error; err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "failed to update macro")
		return
	}
	s.respondWithJSON(w, http.StatusOK, macro)
}

// DeleteMacro removes a canned reply.
func (s *Server) DeleteMacro(w http.ResponseWriter, r *http.Request) {
	tenant := tenantFrom(r)
	id, err := pathID(r, "id")
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid macro id")
		return
	}

	res := s.db.Where("tenant_id = ? AND id = ?", tenant.ID, id).Delete(&models.Macro{})
	if res.Error != nil {
		s.respondWithError(w, http.StatusInternalServerError, "failed to delete macro")
		return
	}
	if res.RowsAffected == 0 {
		s.respondWithError(w, http.StatusNotFound, "macro not found")
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}
