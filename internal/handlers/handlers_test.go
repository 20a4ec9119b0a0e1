package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"onethy/internal/adapters/evolution"
	"onethy/internal/events"
	"onethy/internal/models"
	"onethy/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// fakeGateway satisfies evolution.GatewayClient without a network.
type fakeGateway struct {
	sendErr          error
	setWebhookErr    error
	sentTexts        []string
	deletedInstances []string
}

func (f *fakeGateway) CreateInstance(name string) (*evolution.CreateInstanceResponse, error) {
	resp := &evolution.CreateInstanceResponse{}
	resp.Instance.InstanceName = name
	return resp, nil
}

func (f *fakeGateway) ConnectInstance(name string) (*evolution.ConnectResponse, error) {
	return &evolution.ConnectResponse{PairingCode: "PAIR-1234"}, nil
}

func (f *fakeGateway) RestartInstance(name string) error { return nil }
func (f *fakeGateway) LogoutInstance(name string) error  { return nil }

func (f *fakeGateway) DeleteInstance(name string) error {
	f.deletedInstances = append(f.deletedInstances, name)
	return nil
}

func (f *fakeGateway) SetWebhook(name string, cfg evolution.WebhookConfig) error {
	return f.setWebhookErr
}

func (f *fakeGateway) FetchInstances() ([]evolution.Instance, error) { return nil, nil }

func (f *fakeGateway) SendText(name, number, text string) (*evolution.SendTextResponse, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sentTexts = append(f.sentTexts, text)
	resp := &evolution.SendTextResponse{}
	resp.Key.ID = "PROVIDER-" + uuid.NewString()[:8]
	return resp, nil
}

func newTestDB(t *testing.T, withMessages bool) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	toMigrate := []interface{}{
		&models.Tenant{}, &models.Agent{}, &models.Team{}, &models.TeamMember{},
		&models.Channel{}, &models.Contact{}, &models.Conversation{},
		&models.Macro{}, &models.Note{},
	}
	if withMessages {
		toMigrate = append(toMigrate, &models.Message{})
	}
	require.NoError(t, conn.AutoMigrate(toMigrate...))
	return conn
}

func newTestServer(t *testing.T, conn *gorm.DB, gateway *fakeGateway) *Server {
	t.Helper()

	contacts, err := services.NewContactResolver(conn)
	require.NoError(t, err)
	router, err := services.NewConversationRouter(conn)
	require.NoError(t, err)
	ledger, err := services.NewMessageLedger(conn)
	require.NoError(t, err)
	channels, err := services.NewChannelManager(conn, gateway, "https://onethy.test")
	require.NoError(t, err)

	publisher := events.NewPublisher("", "onethy_events")
	return NewServer(conn, gateway, contacts, router, ledger, channels, publisher)
}

func seedTenant(t *testing.T, conn *gorm.DB) *models.Tenant {
	t.Helper()
	tenant := models.Tenant{Name: "Acme", Email: uuid.NewString() + "@acme.test", APIToken: uuid.NewString()}
	require.NoError(t, conn.Create(&tenant).Error)
	return &tenant
}

func seedChannel(t *testing.T, conn *gorm.DB, tenantID uint) *models.Channel {
	t.Helper()
	channel := models.Channel{
		TenantID:     tenantID,
		Name:         "Main line",
		Type:         "whatsapp",
		Status:       models.ChannelDisconnected,
		InstanceName: "inst-" + uuid.NewString()[:8],
		WebhookToken: uuid.NewString(),
	}
	require.NoError(t, conn.Create(&channel).Error)
	return &channel
}

// doRequest runs a request through the full router, optionally authenticated.
func doRequest(t *testing.T, s *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest))
}
