package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"onethy/internal/adapters/evolution"
	"onethy/internal/events"
	"onethy/internal/services"

	"github.com/gorilla/mux"
	"github.com/justinas/alice"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Server wires the HTTP surface to the services.
type Server struct {
	db        *gorm.DB
	gateway   evolution.GatewayClient
	contacts  *services.ContactResolver
	router    *services.ConversationRouter
	ledger    *services.MessageLedger
	channels  *services.ChannelManager
	publisher *events.Publisher

	// Hot token lookups are cached so webhook bursts and polling frontends
	// don't hit the store on every request.
	tenantCache  *cache.Cache
	channelCache *cache.Cache
}

// NewServer creates a Server with all dependencies in place.
func NewServer(
	conn *gorm.DB,
	gateway evolution.GatewayClient,
	contacts *services.ContactResolver,
	router *services.ConversationRouter,
	ledger *services.MessageLedger,
	channels *services.ChannelManager,
	publisher *events.Publisher,
) *Server {
	return &Server{
		db:           conn,
		gateway:      gateway,
		contacts:     contacts,
		router:       router,
		ledger:       ledger,
		channels:     channels,
		publisher:    publisher,
		tenantCache:  cache.New(5*time.Minute, 10*time.Minute),
		channelCache: cache.New(5*time.Minute, 10*time.Minute),
	}
}

// Routes builds the gorilla/mux router for the service.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()

	public := alice.New(s.logRequest)
	authed := alice.New(s.logRequest, s.authMiddleware)

	r.Handle("/health", public.ThenFunc(s.Health)).Methods("GET")
	r.Handle("/webhook/{webhookToken}", public.ThenFunc(s.Webhook)).Methods("POST")

	r.Handle("/channels", authed.ThenFunc(s.ListChannels)).Methods("GET")
	r.Handle("/channels", authed.ThenFunc(s.CreateChannel)).Methods("POST")
	r.Handle("/channels/{id}", authed.ThenFunc(s.GetChannel)).Methods("GET")
	r.Handle("/channels/{id}", authed.ThenFunc(s.DeleteChannel)).Methods("DELETE")
	r.Handle("/channels/{id}/connect", authed.ThenFunc(s.ConnectChannel)).Methods("POST")
	r.Handle("/channels/{id}/restart", authed.ThenFunc(s.RestartChannel)).Methods("POST")
	r.Handle("/channels/{id}/logout", authed.ThenFunc(s.LogoutChannel)).Methods("POST")

	r.Handle("/contacts", authed.ThenFunc(s.ListContacts)).Methods("GET")
	r.Handle("/contacts", authed.ThenFunc(s.CreateContact)).Methods("POST")
	r.Handle("/contacts/{id}", authed.ThenFunc(s.GetContact)).Methods("GET")
	r.Handle("/contacts/{id}", authed.ThenFunc(s.UpdateContact)).Methods("PUT")
	r.Handle("/contacts/{id}", authed.ThenFunc(s.DeleteContact)).Methods("DELETE")

	r.Handle("/conversations", authed.ThenFunc(s.ListConversations)).Methods("GET")
	r.Handle("/conversations/{id}", authed.ThenFunc(s.GetConversation)).Methods("GET")
	r.Handle("/conversations/{id}", authed.ThenFunc(s.UpdateConversation)).Methods("PUT")
	r.Handle("/conversations/{id}/assign", authed.ThenFunc(s.AssignConversation)).Methods("POST")
	r.Handle("/conversations/{id}/auto-assign", authed.ThenFunc(s.AutoAssignConversation)).Methods("POST")
	r.Handle("/conversations/{id}/messages", authed.ThenFunc(s.ListMessages)).Methods("GET")
	r.Handle("/conversations/{id}/messages", authed.ThenFunc(s.SendMessage)).Methods("POST")
	r.Handle("/conversations/{id}/read", authed.ThenFunc(s.MarkConversationRead)).Methods("POST")
	r.Handle("/conversations/{id}/notes", authed.ThenFunc(s.ListNotes)).Methods("GET")
	r.Handle("/conversations/{id}/notes", authed.ThenFunc(s.CreateNote)).Methods("POST")

	r.Handle("/agents", authed.ThenFunc(s.ListAgents)).Methods("GET")
	r.Handle("/agents", authed.ThenFunc(s.CreateAgent)).Methods("POST")
	r.Handle("/agents/{id}", authed.ThenFunc(s.UpdateAgent)).Methods("PUT")
	r.Handle("/agents/{id}", authed.ThenFunc(s.DeleteAgent)).Methods("DELETE")

	r.Handle("/teams", authed.ThenFunc(s.ListTeams)).Methods("GET")
	r.Handle("/teams", authed.ThenFunc(s.CreateTeam)).Methods("POST")
	r.Handle("/teams/{id}", authed.ThenFunc(s.GetTeam)).Methods("GET")
	r.Handle("/teams/{id}", authed.ThenFunc(s.UpdateTeam)).Methods("PUT")
	r.Handle("/teams/{id}", authed.ThenFunc(s.DeleteTeam)).Methods("DELETE")
	r.Handle("/teams/{id}/members", authed.ThenFunc(s.AddTeamMember)).Methods("POST")
	r.Handle("/teams/{id}/members/{agentId}", authed.ThenFunc(s.RemoveTeamMember)).Methods("DELETE")

	r.Handle("/macros", authed.ThenFunc(s.ListMacros)).Methods("GET")
	r.Handle("/macros", authed.ThenFunc(s.CreateMacro)).Methods("POST")
	r.Handle("/macros/{id}", authed.ThenFunc(s.UpdateMacro)).Methods("PUT")
	r.Handle("/macros/{id}", authed.ThenFunc(s.DeleteMacro)).Methods("DELETE")

	r.Handle("/notes/{id}", authed.ThenFunc(s.UpdateNote)).Methods("PUT")
	r.Handle("/notes/{id}", authed.ThenFunc(s.DeleteNote)).Methods("DELETE")

	return r
}

// Health reports liveness.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) respondWithError(w http.ResponseWriter, statusCode int, message string) {
	s.respondWithJSON(w, statusCode, map[string]string{"error": message})
}

func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("Handled request")
	})
}

// pathID parses the {id} path variable of the current route.
func pathID(r *http.Request, name string) (uint, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
