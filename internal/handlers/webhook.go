package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"onethy/internal/models"
	"onethy/internal/services"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// webhookEnvelope is the gateway's event wrapper.
type webhookEnvelope struct {
	Event string      `json:"event"`
	Data  webhookData `json:"data"`
}

type webhookData struct {
	Messages   []webhookMessage   `json:"messages"`
	Connection *webhookConnection `json:"connection"`
}

type webhookConnection struct {
	State string `json:"state"`
}

type webhookMessage struct {
	Key struct {
		RemoteJID string `json:"remoteJid"`
		FromMe    bool   `json:"fromMe"`
		ID        string `json:"id"`
	} `json:"key"`
	PushName         string                     `json:"pushName"`
	Message          map[string]json.RawMessage `json:"message"`
	MessageTimestamp int64                      `json:"messageTimestamp"`
}

// Webhook ingests gateway events. The channel is identified by the opaque
// token in the path; an unknown token is the only condition reported back as
// an error. Once the channel is found the handler always acknowledges with
// success so a malformed payload cannot trigger a provider retry storm.
func (s *Server) Webhook(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["webhookToken"]

	channel, err := s.channelByToken(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.respondWithError(w, http.StatusNotFound, "channel not found")
			return
		}
		log.Error().Err(err).Msg("Error looking up channel by webhook token")
		s.respondWithError(w, http.StatusInternalServerError, "channel lookup failed")
		return
	}

	var envelope webhookEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		log.Warn().Err(err).Uint("channelID", channel.ID).Msg("Malformed webhook payload, acknowledging anyway")
		s.respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}

	switch envelope.Event {
	case "messages.upsert":
		if err := s.processInboundMessage(channel, envelope.Data); err != nil {
			log.Error().Err(err).Uint("channelID", channel.ID).Msg("Inbound message processing failed")
		}
	case "connection.update":
		if err := s.processConnectionUpdate(channel, envelope.Data); err != nil {
			log.Error().Err(err).Uint("channelID", channel.ID).Msg("Connection update processing failed")
		}
	default:
		log.Debug().Str("event", envelope.Event).Uint("channelID", channel.ID).Msg("Ignoring unhandled webhook event")
	}

	s.respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// channelByToken resolves the webhook token through the cache first.
func (s *Server) channelByToken(token string) (*models.Channel, error) {
	if cached, found := s.channelCache.Get(token); found {
		channel := cached.(models.Channel)
		return &channel, nil
	}
	channel, err := s.channels.FindByWebhookToken(token)
	if err != nil {
		return nil, err
	}
	s.channelCache.SetDefault(token, *channel)
	return channel, nil
}

func (s *Server) processInboundMessage(channel *models.Channel, data webhookData) error {
	if len(data.Messages) == 0 {
		log.Debug().Uint("channelID", channel.ID).Msg("messages.upsert carried no messages")
		return nil
	}
	msg := data.Messages[0]

	// Echo of a message this instance sent itself; nothing to ingest.
	if msg.Key.FromMe {
		log.Debug().Str("providerMessageID", msg.Key.ID).Msg("Skipping self-echo message")
		return nil
	}

	phone := stripJIDSuffix(msg.Key.RemoteJID)
	if phone == "" {
		log.Warn().Str("remoteJid", msg.Key.RemoteJID).Msg("Could not extract phone from remote JID")
		return nil
	}

	contact, err := s.contacts.Resolve(channel.TenantID, phone, msg.PushName)
	if err != nil {
		return err
	}

	conv, err := s.router.FindOrOpen(channel.TenantID, contact.ID, channel.ID)
	if err != nil {
		return err
	}

	content, msgType := extractContent(msg.Message)
	var providerTS *time.Time
	if msg.MessageTimestamp > 0 {
		ts := time.Unix(msg.MessageTimestamp, 0)
		providerTS = &ts
	}

	_, err = s.ledger.AppendInbound(conv, services.InboundMessage{
		Content:           content,
		Type:              msgType,
		ProviderMessageID: msg.Key.ID,
		ProviderTimestamp: providerTS,
		SenderName:        msg.PushName,
	})
	if err != nil {
		return err
	}

	s.publisher.Publish("message.received", channel.TenantID, channel.ID, map[string]interface{}{
		"conversation_id": conv.ID,
		"contact_id":      contact.ID,
		"type":            msgType,
	})
	return nil
}

func (s *Server) processConnectionUpdate(channel *models.Channel, data webhookData) error {
	if data.Connection == nil {
		log.Debug().Uint("channelID", channel.ID).Msg("connection.update carried no connection state")
		return nil
	}
	if err := s.channels.UpdateConnectionState(channel, data.Connection.State); err != nil {
		return err
	}
	// The cached copy now carries a stale status.
	s.channelCache.Delete(channel.WebhookToken)

	s.publisher.Publish("connection.update", channel.TenantID, channel.ID, map[string]string{
		"state": data.Connection.State,
	})
	return nil
}

// stripJIDSuffix reduces a provider JID like "5511999999999@s.whatsapp.net" to
// the bare phone number.
func stripJIDSuffix(jid string) string {
	if idx := strings.Index(jid, "@"); idx >= 0 {
		return jid[:idx]
	}
	return jid
}

// extractContent pulls the displayable content and message type out of the
// provider's message variant map.
func extractContent(message map[string]json.RawMessage) (string, models.MessageType) {
	if raw, ok := message["conversation"]; ok {
		var text string
		if err := json.Unmarshal(raw, &text); err == nil {
			return text, models.MessageText
		}
	}
	if raw, ok := message["extendedTextMessage"]; ok {
		var ext struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(raw, &ext); err == nil {
			return ext.Text, models.MessageText
		}
	}

	mediaTypes := []struct {
		key     string
		msgType models.MessageType
	}{
		{"imageMessage", models.MessageImage},
		{"videoMessage", models.MessageVideo},
		{"audioMessage", models.MessageAudio},
		{"documentMessage", models.MessageDocument},
	}
	for _, mt := range mediaTypes {
		raw, ok := message[mt.key]
		if !ok {
			continue
		}
		var media struct {
			Caption string `json:"caption"`
		}
		_ = json.Unmarshal(raw, &media)
		return media.Caption, mt.msgType
	}

	return "", models.MessageUnknown
}
