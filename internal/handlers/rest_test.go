package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"onethy/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessageDeliversAndRecords(t *testing.T) {
	conn := newTestDB(t, true)
	gateway := &fakeGateway{}
	s := newTestServer(t, conn, gateway)
	tenant := seedTenant(t, conn)
	channel := seedChannel(t, conn, tenant.ID)

	contact := models.Contact{TenantID: tenant.ID, Name: "Maria", Phone: "5511999999999"}
	require.NoError(t, conn.Create(&contact).Error)
	conv := models.Conversation{
		TenantID: tenant.ID, ContactID: contact.ID, ChannelID: channel.ID,
		Status: models.ConversationOpen, Priority: models.PriorityMedium,
	}
	require.NoError(t, conn.Create(&conv).Error)

	rec := doRequest(t, s, "POST", fmt.Sprintf("/conversations/%d/messages", conv.ID), tenant.APIToken,
		map[string]string{"content": "On our way!"})
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, []string{"On our way!"}, gateway.sentTexts)

	var msg models.Message
	require.NoError(t, conn.Where("conversation_id = ?", conv.ID).First(&msg).Error)
	assert.True(t, msg.FromMe)
	assert.Equal(t, models.MessageSent, msg.Status)
	assert.NotEmpty(t, msg.ProviderMessageID)
}

func TestSendMessageGatewayFailureIsServerError(t *testing.T) {
	conn := newTestDB(t, true)
	gateway := &fakeGateway{sendErr: errors.New("instance unreachable")}
	s := newTestServer(t, conn, gateway)
	tenant := seedTenant(t, conn)
	channel := seedChannel(t, conn, tenant.ID)

	contact := models.Contact{TenantID: tenant.ID, Name: "Maria", Phone: "5511999999999"}
	require.NoError(t, conn.Create(&contact).Error)
	conv := models.Conversation{
		TenantID: tenant.ID, ContactID: contact.ID, ChannelID: channel.ID,
		Status: models.ConversationOpen, Priority: models.PriorityMedium,
	}
	require.NoError(t, conn.Create(&conv).Error)

	rec := doRequest(t, s, "POST", fmt.Sprintf("/conversations/%d/messages", conv.ID), tenant.APIToken,
		map[string]string{"content": "hello?"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "instance unreachable")

	// Nothing was recorded for the failed send.
	var count int64
	conn.Model(&models.Message{}).Where("conversation_id = ?", conv.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestMarkConversationReadEndpoint(t *testing.T) {
	conn := newTestDB(t, true)
	s := newTestServer(t, conn, &fakeGateway{})
	tenant := seedTenant(t, conn)
	channel := seedChannel(t, conn, tenant.ID)

	require.Equal(t, http.StatusOK, postWebhook(t, s, channel.WebhookToken, mariaUpsert).Code)

	var conv models.Conversation
	require.NoError(t, conn.Where("tenant_id = ?", tenant.ID).First(&conv).Error)
	require.Equal(t, 1, conv.UnreadCount)

	rec := doRequest(t, s, "POST", fmt.Sprintf("/conversations/%d/read", conv.ID), tenant.APIToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, conn.First(&conv, conv.ID).Error)
	assert.Equal(t, 0, conv.UnreadCount)
}

func TestConversationsAreTenantScoped(t *testing.T) {
	conn := newTestDB(t, true)
	s := newTestServer(t, conn, &fakeGateway{})
	tenantA := seedTenant(t, conn)
	tenantB := seedTenant(t, conn)
	channelA := seedChannel(t, conn, tenantA.ID)

	require.Equal(t, http.StatusOK, postWebhook(t, s, channelA.WebhookToken, mariaUpsert).Code)

	var listA []models.Conversation
	recA := doRequest(t, s, "GET", "/conversations", tenantA.APIToken, nil)
	require.Equal(t, http.StatusOK, recA.Code)
	decodeBody(t, recA, &listA)
	assert.Len(t, listA, 1)

	var listB []models.Conversation
	recB := doRequest(t, s, "GET", "/conversations", tenantB.APIToken, nil)
	require.Equal(t, http.StatusOK, recB.Code)
	decodeBody(t, recB, &listB)
	assert.Empty(t, listB)

	// Cross-tenant reads by id are a 404, not a leak.
	rec := doRequest(t, s, "GET", fmt.Sprintf("/conversations/%d", listA[0].ID), tenantB.APIToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	conn := newTestDB(t, true)
	s := newTestServer(t, conn, &fakeGateway{})

	rec := doRequest(t, s, "GET", "/conversations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, s, "GET", "/conversations", "bogus-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMacroShortcutUniquePerTenant(t *testing.T) {
	conn := newTestDB(t, true)
	s := newTestServer(t, conn, &fakeGateway{})
	tenantA := seedTenant(t, conn)
	tenantB := seedTenant(t, conn)

	body := map[string]string{"shortcut": "/greet", "content": "Hi, how can we help?"}

	rec := doRequest(t, s, "POST", "/macros", tenantA.APIToken, body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, s, "POST", "/macros", tenantA.APIToken, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Same shortcut is fine for another tenant.
	rec = doRequest(t, s, "POST", "/macros", tenantB.APIToken, body)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAutoAssignEndpoint(t *testing.T) {
	conn := newTestDB(t, true)
	s := newTestServer(t, conn, &fakeGateway{})
	tenant := seedTenant(t, conn)
	channel := seedChannel(t, conn, tenant.ID)

	team := models.Team{TenantID: tenant.ID, Name: "Support"}
	require.NoError(t, conn.Create(&team).Error)
	agent := models.Agent{TenantID: tenant.ID, Name: "Ana", Presence: models.PresenceOnline}
	require.NoError(t, conn.Create(&agent).Error)
	require.NoError(t, conn.Create(&models.TeamMember{TeamID: team.ID, AgentID: agent.ID}).Error)

	require.Equal(t, http.StatusOK, postWebhook(t, s, channel.WebhookToken, mariaUpsert).Code)

	var conv models.Conversation
	require.NoError(t, conn.Where("tenant_id = ?", tenant.ID).First(&conv).Error)

	rec := doRequest(t, s, "POST", fmt.Sprintf("/conversations/%d/auto-assign", conv.ID), tenant.APIToken,
		map[string]uint{"team_id": team.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	var assigned models.Conversation
	decodeBody(t, rec, &assigned)
	require.NotNil(t, assigned.AssignedAgentID)
	assert.Equal(t, agent.ID, *assigned.AssignedAgentID)
}

func TestAutoAssignEndpointNoAgentAvailable(t *testing.T) {
	conn := newTestDB(t, true)
	s := newTestServer(t, conn, &fakeGateway{})
	tenant := seedTenant(t, conn)
	channel := seedChannel(t, conn, tenant.ID)

	team := models.Team{TenantID: tenant.ID, Name: "Support"}
	require.NoError(t, conn.Create(&team).Error)

	require.Equal(t, http.StatusOK, postWebhook(t, s, channel.WebhookToken, mariaUpsert).Code)

	var conv models.Conversation
	require.NoError(t, conn.Where("tenant_id = ?", tenant.ID).First(&conv).Error)

	rec := doRequest(t, s, "POST", fmt.Sprintf("/conversations/%d/auto-assign", conv.ID), tenant.APIToken,
		map[string]uint{"team_id": team.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no agent available")
}

func TestUpdateContactClearsAndPreservesFields(t *testing.T) {
	conn := newTestDB(t, true)
	s := newTestServer(t, conn, &fakeGateway{})
	tenant := seedTenant(t, conn)

	contact := models.Contact{TenantID: tenant.ID, Name: "Maria", Phone: "5511999999999", Notes: "VIP"}
	require.NoError(t, conn.Create(&contact).Error)

	// An explicit empty string clears the field; omitted fields stay put.
	rec := doRequest(t, s, "PUT", fmt.Sprintf("/contacts/%d", contact.ID), tenant.APIToken,
		map[string]string{"notes": ""})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.Contact
	require.NoError(t, conn.First(&updated, contact.ID).Error)
	assert.Empty(t, updated.Notes)
	assert.Equal(t, "Maria", updated.Name)

	rec = doRequest(t, s, "PUT", fmt.Sprintf("/contacts/%d", contact.ID), tenant.APIToken,
		map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateAgentClearsEmail(t *testing.T) {
	conn := newTestDB(t, true)
	s := newTestServer(t, conn, &fakeGateway{})
	tenant := seedTenant(t, conn)

	agent := models.Agent{TenantID: tenant.ID, Name: "Ana", Email: "ana@acme.test", Presence: models.PresenceOnline}
	require.NoError(t, conn.Create(&agent).Error)

	rec := doRequest(t, s, "PUT", fmt.Sprintf("/agents/%d", agent.ID), tenant.APIToken,
		map[string]string{"email": ""})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.Agent
	require.NoError(t, conn.First(&updated, agent.ID).Error)
	assert.Empty(t, updated.Email)
	assert.Equal(t, models.PresenceOnline, updated.Presence)
}

func TestDeleteContactBlockedByOpenConversation(t *testing.T) {
	conn := newTestDB(t, true)
	s := newTestServer(t, conn, &fakeGateway{})
	tenant := seedTenant(t, conn)
	channel := seedChannel(t, conn, tenant.ID)

	require.Equal(t, http.StatusOK, postWebhook(t, s, channel.WebhookToken, mariaUpsert).Code)

	var contact models.Contact
	require.NoError(t, conn.Where("tenant_id = ?", tenant.ID).First(&contact).Error)

	rec := doRequest(t, s, "DELETE", fmt.Sprintf("/contacts/%d", contact.ID), tenant.APIToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
