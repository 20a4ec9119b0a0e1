package models

import (
	"time"
)

// ChannelStatus is the connection state of a messaging endpoint.
type ChannelStatus string

const (
	ChannelDisconnected ChannelStatus = "disconnected"
	ChannelConnecting   ChannelStatus = "connecting"
	ChannelConnected    ChannelStatus = "connected"
	ChannelError        ChannelStatus = "error"
)

// ConversationStatus is the lifecycle state of a conversation thread.
type ConversationStatus string

const (
	ConversationOpen    ConversationStatus = "open"
	ConversationPending ConversationStatus = "pending"
	ConversationClosed  ConversationStatus = "closed"
)

// ConversationPriority orders the inbox.
type ConversationPriority string

const (
	PriorityLow    ConversationPriority = "low"
	PriorityMedium ConversationPriority = "medium"
	PriorityHigh   ConversationPriority = "high"
	PriorityUrgent ConversationPriority = "urgent"
)

// MessageType classifies the payload of a message.
type MessageType string

const (
	MessageText     MessageType = "text"
	MessageImage    MessageType = "image"
	MessageVideo    MessageType = "video"
	MessageAudio    MessageType = "audio"
	MessageDocument MessageType = "document"
	MessageUnknown  MessageType = "unknown"
)

// MessageStatus is the delivery state of a message. Transitions only move
// forward: sent -> delivered -> read.
type MessageStatus string

const (
	MessageSent      MessageStatus = "sent"
	MessageDelivered MessageStatus = "delivered"
	MessageRead      MessageStatus = "read"
)

// AgentPresence is the availability state of an agent.
type AgentPresence string

const (
	PresenceOnline  AgentPresence = "online"
	PresenceAway    AgentPresence = "away"
	PresenceOffline AgentPresence = "offline"
)

// Tenant is an account of the platform. Its APIToken is the bearer credential
// for every authenticated endpoint; token issuance happens outside this service.
type Tenant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	Email     string    `gorm:"size:190;uniqueIndex;not null" json:"email"`
	APIToken  string    `gorm:"size:64;uniqueIndex;not null" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Agent is a human operator belonging to a tenant.
type Agent struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	TenantID  uint          `gorm:"index;not null" json:"tenant_id"`
	Name      string        `gorm:"size:120;not null" json:"name"`
	Email     string        `gorm:"size:190" json:"email"`
	Presence  AgentPresence `gorm:"size:20;default:offline" json:"presence"`
	CreatedAt time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

// Team groups agents for assignment purposes.
type Team struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TenantID    uint      `gorm:"index;not null" json:"tenant_id"`
	Name        string    `gorm:"size:120;not null" json:"name"`
	Description string    `gorm:"size:500" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Members []TeamMember `gorm:"foreignKey:TeamID" json:"members,omitempty"`
}

// TeamMember links an agent to a team.
type TeamMember struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	TeamID  uint `gorm:"uniqueIndex:idx_team_agent;not null" json:"team_id"`
	AgentID uint `gorm:"uniqueIndex:idx_team_agent;not null" json:"agent_id"`
}

// Channel is a tenant-owned messaging endpoint (a WhatsApp instance on the
// gateway). The WebhookToken is the opaque path segment the gateway calls back
// with; InstanceName is the provider-side reference.
type Channel struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	TenantID       uint          `gorm:"index;not null" json:"tenant_id"`
	Name           string        `gorm:"size:120;not null" json:"name"`
	Type           string        `gorm:"size:20;default:whatsapp" json:"type"`
	Status         ChannelStatus `gorm:"size:20;default:disconnected" json:"status"`
	InstanceName   string        `gorm:"size:120;index" json:"instance_name"`
	WebhookToken   string        `gorm:"size:64;uniqueIndex;not null" json:"webhook_token"`
	MessageCount   int64         `gorm:"default:0" json:"message_count"`
	LastActivityAt *time.Time    `json:"last_activity_at"`
	CreatedAt      time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

// Contact is a tenant-scoped identity for a message sender. Phone is unique
// within a tenant.
type Contact struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TenantID  uint      `gorm:"uniqueIndex:idx_tenant_phone;not null" json:"tenant_id"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	Phone     string    `gorm:"size:30;uniqueIndex:idx_tenant_phone;not null" json:"phone"`
	Email     string    `gorm:"size:190" json:"email"`
	Notes     string    `gorm:"type:text" json:"notes"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Conversation is a thread between one contact and one channel. At most one
// conversation per (contact, channel) pair is in a non-closed state at a time;
// this is enforced at lookup, not by a database constraint.
type Conversation struct {
	ID                 uint                 `gorm:"primaryKey" json:"id"`
	TenantID           uint                 `gorm:"index;not null" json:"tenant_id"`
	ContactID          uint                 `gorm:"index;not null" json:"contact_id"`
	ChannelID          uint                 `gorm:"index;not null" json:"channel_id"`
	Status             ConversationStatus   `gorm:"size:20;index;default:open" json:"status"`
	Priority           ConversationPriority `gorm:"size:20;default:medium" json:"priority"`
	AssignedAgentID    *uint                `gorm:"index" json:"assigned_agent_id"`
	AssignedTeamID     *uint                `gorm:"index" json:"assigned_team_id"`
	LastMessagePreview string               `gorm:"size:160" json:"last_message_preview"`
	LastMessageAt      *time.Time           `json:"last_message_at"`
	UnreadCount        int                  `gorm:"default:0" json:"unread_count"`
	Labels             string               `gorm:"size:500" json:"labels"`
	CreatedAt          time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time            `gorm:"autoUpdateTime" json:"updated_at"`

	Contact *Contact `gorm:"foreignKey:ContactID" json:"contact,omitempty"`
	Channel *Channel `gorm:"foreignKey:ChannelID" json:"channel,omitempty"`
}

// Message is an immutable record of one exchanged message. Rows are never
// deleted; only Status moves, and only forward.
type Message struct {
	ID                uint          `gorm:"primaryKey" json:"id"`
	TenantID          uint          `gorm:"index;not null" json:"tenant_id"`
	ConversationID    uint          `gorm:"index;not null" json:"conversation_id"`
	FromMe            bool          `gorm:"not null" json:"from_me"`
	Content           string        `gorm:"type:text" json:"content"`
	Type              MessageType   `gorm:"size:20;default:text" json:"type"`
	Status            MessageStatus `gorm:"size:20;default:sent" json:"status"`
	ProviderMessageID string        `gorm:"size:120;index" json:"provider_message_id"`
	ProviderTimestamp *time.Time    `json:"provider_timestamp"`
	SenderName        string        `gorm:"size:120" json:"sender_name"`
	CreatedAt         time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

// Macro is a canned reply. Shortcut is unique per tenant.
type Macro struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TenantID  uint      `gorm:"uniqueIndex:idx_tenant_shortcut;not null" json:"tenant_id"`
	Shortcut  string    `gorm:"size:60;uniqueIndex:idx_tenant_shortcut;not null" json:"shortcut"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Note is an internal annotation on a conversation, invisible to the contact.
type Note struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	TenantID       uint      `gorm:"index;not null" json:"tenant_id"`
	ConversationID uint      `gorm:"index;not null" json:"conversation_id"`
	AgentID        *uint     `json:"agent_id"`
	Body           string    `gorm:"type:text;not null" json:"body"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
