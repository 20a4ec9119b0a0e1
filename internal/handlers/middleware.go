package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"onethy/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type contextKey string

const tenantContextKey contextKey = "tenant"

// authMiddleware resolves the bearer token to a tenant and stores it in the
// request context. Token issuance is handled outside this service; only lookup
// happens here.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			s.respondWithError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		if cached, found := s.tenantCache.Get(token); found {
			tenant := cached.(models.Tenant)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tenantContextKey, &tenant)))
			return
		}

		var tenant models.Tenant
		err := s.db.Where("api_token = ?", token).First(&tenant).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Error().Err(err).Msg("Error looking up tenant by token")
			}
			s.respondWithError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		s.tenantCache.SetDefault(token, tenant)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tenantContextKey, &tenant)))
	})
}

// tenantFrom returns the tenant the authenticated request acts for.
func tenantFrom(r *http.Request) *models.Tenant {
	tenant, _ := r.Context().Value(tenantContextKey).(*models.Tenant)
	return tenant
}
