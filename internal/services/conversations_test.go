package services

import (
	"testing"

	"onethy/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindOrOpenCreatesWithDefaults(t *testing.T) {
	conn := newTestDB(t)
	tenant := seedTenant(t, conn)
	channel := seedChannel(t, conn, tenant.ID)
	contact := models.Contact{TenantID: tenant.ID, Name: "Maria", Phone: "5511999999999"}
	require.NoError(t, conn.Create(&contact).Error)

	router, err := NewConversationRouter(conn)
	require.NoError(t, err)

	conv, err := router.FindOrOpen(tenant.ID, contact.ID, channel.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ConversationOpen, conv.Status)
	assert.Equal(t, models.PriorityMedium, conv.Priority)
	assert.NotNil(t, conv.LastMessageAt)
}

func TestFindOrOpenReusesNonClosedConversation(t *testing.T) {
	conn := newTestDB(t)
	tenant := seedTenant(t, conn)
	channel := seedChannel(t, conn, tenant.ID)
	contact := models.Contact{TenantID: tenant.ID, Name: "Maria", Phone: "5511999999999"}
	require.NoError(t, conn.Create(&contact).Error)

	router, err := NewConversationRouter(conn)
	require.NoError(t, err)

	first, err := router.FindOrOpen(tenant.ID, contact.ID, channel.ID)
	require.NoError(t, err)

	pending := models.ConversationPending
	_, err = router.Update(tenant.ID, first.ID, ConversationUpdate{Status: &pending})
	require.NoError(t, err)

	second, err := router.FindOrOpen(tenant.ID, contact.ID, channel.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestFindOrOpenOpensFreshAfterClose(t *testing.T) {
	conn := newTestDB(t)
	tenant := seedTenant(t, conn)
	channel := seedChannel(t, conn, tenant.ID)
	contact := models.Contact{TenantID: tenant.ID, Name: "Maria", Phone: "5511999999999"}
	require.NoError(t, conn.Create(&contact).Error)

	router, err := NewConversationRouter(conn)
	require.NoError(t, err)

	first, err := router.FindOrOpen(tenant.ID, contact.ID, channel.ID)
	require.NoError(t, err)

	closed := models.ConversationClosed
	_, err = router.Update(tenant.ID, first.ID, ConversationUpdate{Status: &closed})
	require.NoError(t, err)

	second, err := router.FindOrOpen(tenant.ID, contact.ID, channel.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, models.ConversationOpen, second.Status)
}

func TestAssignReopensConversation(t *testing.T) {
	conn := newTestDB(t)
	tenant := seedTenant(t, conn)
	channel := seedChannel(t, conn, tenant.ID)
	contact := models.Contact{TenantID: tenant.ID, Name: "Maria", Phone: "5511999999999"}
	require.NoError(t, conn.Create(&contact).Error)
	agent := seedAgent(t, conn, tenant.ID, "Ana", models.PresenceOnline)

	router, err := NewConversationRouter(conn)
	require.NoError(t, err)

	conv, err := router.FindOrOpen(tenant.ID, contact.ID, channel.ID)
	require.NoError(t, err)

	closed := models.ConversationClosed
	_, err = router.Update(tenant.ID, conv.ID, ConversationUpdate{Status: &closed})
	require.NoError(t, err)

	assigned, err := router.Assign(tenant.ID, conv.ID, &agent.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ConversationOpen, assigned.Status)
	require.NotNil(t, assigned.AssignedAgentID)
	assert.Equal(t, agent.ID, *assigned.AssignedAgentID)
}

func TestAutoAssignNoAgentAvailable(t *testing.T) {
	conn := newTestDB(t)
	tenant := seedTenant(t, conn)
	channel := seedChannel(t, conn, tenant.ID)
	contact := models.Contact{TenantID: tenant.ID, Name: "Maria", Phone: "5511999999999"}
	require.NoError(t, conn.Create(&contact).Error)

	team := models.Team{TenantID: tenant.ID, Name: "Support"}
	require.NoError(t, conn.Create(&team).Error)
	offline := seedAgent(t, conn, tenant.ID, "Ana", models.PresenceOffline)
	require.NoError(t, conn.Create(&models.TeamMember{TeamID: team.ID, AgentID: offline.ID}).Error)

	router, err := NewConversationRouter(conn)
	require.NoError(t, err)

	conv, err := router.FindOrOpen(tenant.ID, contact.ID, channel.ID)
	require.NoError(t, err)

	_, err = router.AutoAssign(tenant.ID, conv.ID, team.ID)
	assert.ErrorIs(t, err, ErrNoAgentAvailable)
}

func TestAutoAssignPicksLeastLoadedOnlineAgent(t *testing.T) {
	conn := newTestDB(t)
	tenant := seedTenant(t, conn)
	channel := seedChannel(t, conn, tenant.ID)

	team := models.Team{TenantID: tenant.ID, Name: "Support"}
	require.NoError(t, conn.Create(&team).Error)

	busy := seedAgent(t, conn, tenant.ID, "Busy", models.PresenceOnline)
	idle := seedAgent(t, conn, tenant.ID, "Idle", models.PresenceOnline)
	offline := seedAgent(t, conn, tenant.ID, "Offline", models.PresenceOffline)
	for _, a := range []*models.Agent{busy, idle, offline} {
		require.NoError(t, conn.Create(&models.TeamMember{TeamID: team.ID, AgentID: a.ID}).Error)
	}

	// Two active conversations already on the busy agent.
	for i := 0; i < 2; i++ {
		c := models.Contact{TenantID: tenant.ID, Name: "C", Phone: "55119000000" + string(rune('0'+i))}
		require.NoError(t, conn.Create(&c).Error)
		conv := models.Conversation{
			TenantID: tenant.ID, ContactID: c.ID, ChannelID: channel.ID,
			Status: models.ConversationOpen, Priority: models.PriorityMedium,
			AssignedAgentID: &busy.ID,
		}
		require.NoError(t, conn.Create(&conv).Error)
	}

	contact := models.Contact{TenantID: tenant.ID, Name: "Maria", Phone: "5511999999999"}
	require.NoError(t, conn.Create(&contact).Error)

	router, err := NewConversationRouter(conn)
	require.NoError(t, err)

	conv, err := router.FindOrOpen(tenant.ID, contact.ID, channel.ID)
	require.NoError(t, err)

	assigned, err := router.AutoAssign(tenant.ID, conv.ID, team.ID)
	require.NoError(t, err)
	require.NotNil(t, assigned.AssignedAgentID)
	assert.Equal(t, idle.ID, *assigned.AssignedAgentID)
	require.NotNil(t, assigned.AssignedTeamID)
	assert.Equal(t, team.ID, *assigned.AssignedTeamID)
	assert.Equal(t, models.ConversationOpen, assigned.Status)
}

func TestAutoAssignTieBreaksOnFirstEncountered(t *testing.T) {
	conn := newTestDB(t)
	tenant := seedTenant(t, conn)
	channel := seedChannel(t, conn, tenant.ID)

	team := models.Team{TenantID: tenant.ID, Name: "Support"}
	require.NoError(t, conn.Create(&team).Error)

	first := seedAgent(t, conn, tenant.ID, "First", models.PresenceOnline)
	second := seedAgent(t, conn, tenant.ID, "Second", models.PresenceOnline)
	for _, a := range []*models.Agent{first, second} {
		require.NoError(t, conn.Create(&models.TeamMember{TeamID: team.ID, AgentID: a.ID}).Error)
	}

	contact := models.Contact{TenantID: tenant.ID, Name: "Maria", Phone: "5511999999999"}
	require.NoError(t, conn.Create(&contact).Error)

	router, err := NewConversationRouter(conn)
	require.NoError(t, err)

	conv, err := router.FindOrOpen(tenant.ID, contact.ID, channel.ID)
	require.NoError(t, err)

	assigned, err := router.AutoAssign(tenant.ID, conv.ID, team.ID)
	require.NoError(t, err)
	require.NotNil(t, assigned.AssignedAgentID)
	assert.Equal(t, first.ID, *assigned.AssignedAgentID)
}

func TestUpdateLeavesOmittedFieldsUnchanged(t *testing.T) {
	conn := newTestDB(t)
	tenant := seedTenant(t, conn)
	channel := seedChannel(t, conn, tenant.ID)
	contact := models.Contact{TenantID: tenant.ID, Name: "Maria", Phone: "5511999999999"}
	require.NoError(t, conn.Create(&contact).Error)

	router, err := NewConversationRouter(conn)
	require.NoError(t, err)

	conv, err := router.FindOrOpen(tenant.ID, contact.ID, channel.ID)
	require.NoError(t, err)

	urgent := models.PriorityUrgent
	updated, err := router.Update(tenant.ID, conv.ID, ConversationUpdate{Priority: &urgent})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityUrgent, updated.Priority)
	assert.Equal(t, models.ConversationOpen, updated.Status)
}
