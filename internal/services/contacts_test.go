package services

import (
	"testing"

	"onethy/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCreatesContactOnFirstSight(t *testing.T) {
	conn := newTestDB(t)
	tenant := seedTenant(t, conn)
	resolver, err := NewContactResolver(conn)
	require.NoError(t, err)

	contact, err := resolver.Resolve(tenant.ID, "5511999999999", "Maria")
	require.NoError(t, err)
	assert.Equal(t, "Maria", contact.Name)
	assert.Equal(t, "5511999999999", contact.Phone)

	var count int64
	conn.Model(&models.Contact{}).Where("tenant_id = ?", tenant.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestResolveReusesExistingContact(t *testing.T) {
	conn := newTestDB(t)
	tenant := seedTenant(t, conn)
	resolver, err := NewContactResolver(conn)
	require.NoError(t, err)

	first, err := resolver.Resolve(tenant.ID, "5511999999999", "Maria")
	require.NoError(t, err)
	second, err := resolver.Resolve(tenant.ID, "5511999999999", "Maria S.")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	// The stored name is not overwritten by later push names.
	assert.Equal(t, "Maria", second.Name)

	var count int64
	conn.Model(&models.Contact{}).Where("tenant_id = ?", tenant.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestResolveFallsBackToPhoneAsName(t *testing.T) {
	conn := newTestDB(t)
	tenant := seedTenant(t, conn)
	resolver, err := NewContactResolver(conn)
	require.NoError(t, err)

	contact, err := resolver.Resolve(tenant.ID, "5511888888888", "")
	require.NoError(t, err)
	assert.Equal(t, "5511888888888", contact.Name)
}

func TestResolveScopesContactsPerTenant(t *testing.T) {
	conn := newTestDB(t)
	tenantA := seedTenant(t, conn)
	tenantB := seedTenant(t, conn)
	resolver, err := NewContactResolver(conn)
	require.NoError(t, err)

	a, err := resolver.Resolve(tenantA.ID, "5511999999999", "Maria")
	require.NoError(t, err)
	b, err := resolver.Resolve(tenantB.ID, "5511999999999", "Maria")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestDeleteBlockedWhileConversationsOpen(t *testing.T) {
	conn := newTestDB(t)
	tenant := seedTenant(t, conn)
	channel := seedChannel(t, conn, tenant.ID)
	resolver, err := NewContactResolver(conn)
	require.NoError(t, err)
	router, err := NewConversationRouter(conn)
	require.NoError(t, err)

	contact, err := resolver.Resolve(tenant.ID, "5511999999999", "Maria")
	require.NoError(t, err)
	conv, err := router.FindOrOpen(tenant.ID, contact.ID, channel.ID)
	require.NoError(t, err)

	err = resolver.Delete(tenant.ID, contact.ID)
	assert.ErrorIs(t, err, ErrContactHasOpenConversations)

	closed := models.ConversationClosed
	_, err = router.Update(tenant.ID, conv.ID, ConversationUpdate{Status: &closed})
	require.NoError(t, err)

	require.NoError(t, resolver.Delete(tenant.ID, contact.ID))
}
