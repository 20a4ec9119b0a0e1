package services

import (
	"fmt"
	"testing"

	"onethy/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	err = conn.AutoMigrate(
		&models.Tenant{}, &models.Agent{}, &models.Team{}, &models.TeamMember{},
		&models.Channel{}, &models.Contact{}, &models.Conversation{},
		&models.Message{}, &models.Macro{}, &models.Note{},
	)
	require.NoError(t, err)
	return conn
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
		Status:       models.ChannelConnected,
		InstanceName: "inst-" + uuid.NewString()[:8],
		WebhookToken: uuid.NewString(),
	}
	require.NoError(t, conn.Create(&channel).Error)
	return &channel
}

func seedAgent(t *testing.T, conn *gorm.DB, tenantID uint, name string, presence models.AgentPresence) *models.Agent {
	t.Helper()
	agent := models.Agent{TenantID: tenantID, Name: name, Presence: presence}
	require.NoError(t, conn.Create(&agent).Error)
	return &agent
}
