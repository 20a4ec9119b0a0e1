package evolution

// CreateInstanceRequest provisions a new instance on the gateway.
type CreateInstanceRequest struct {
	InstanceName string `json:"instanceName"`
	Token        string `json:"token,omitempty"`
	QRCode       bool   `json:"qrcode"`
	Integration  string `json:"integration,omitempty"`
}

// Instance is the gateway's view of one WhatsApp instance.
type Instance struct {
	InstanceName string `json:"instanceName"`
	InstanceID   string `json:"instanceId"`
	Status       string `json:"status"`
	Owner        string `json:"owner,omitempty"`
	ProfileName  string `json:"profileName,omitempty"`
}

// CreateInstanceResponse is returned by POST /instance/create.
type CreateInstanceResponse struct {
	Instance Instance `json:"instance"`
	Hash     struct {
		APIKey string `json:"apikey"`
	} `json:"hash"`
}

// ConnectResponse is returned by GET /instance/connect/{name}; either a pairing
// code or a QR payload depending on the instance state.
type ConnectResponse struct {
	PairingCode string `json:"pairingCode,omitempty"`
	Code        string `json:"code,omitempty"`
	Base64      string `json:"base64,omitempty"`
}

// WebhookConfig registers the callback URL the gateway delivers events to.
type WebhookConfig struct {
	URL             string   `json:"url"`
	WebhookByEvents bool     `json:"webhook_by_events"`
	Events          []string `json:"events"`
}

// SendTextRequest posts a plain text message through an instance.
type SendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

// SendTextResponse carries the provider id assigned to an outbound message.
type SendTextResponse struct {
	Key struct {
		RemoteJID string `json:"remoteJid"`
		FromMe    bool   `json:"fromMe"`
		ID        string `json:"id"`
	} `json:"key"`
	Status string `json:"status"`
}
