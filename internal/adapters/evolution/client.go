package evolution

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// GatewayClient is the surface the rest of the service depends on. The concrete
// implementation talks to an Evolution API deployment; tests substitute a fake.
type GatewayClient interface {
	CreateInstance(instanceName string) (*CreateInstanceResponse, error)
	ConnectInstance(instanceName string) (*ConnectResponse, error)
	RestartInstance(instanceName string) error
	LogoutInstance(instanceName string) error
	DeleteInstance(instanceName string) error
	SetWebhook(instanceName string, cfg WebhookConfig) error
	FetchInstances() ([]Instance, error)
	SendText(instanceName, number, text string) (*SendTextResponse, error)
}

// Client calls the Evolution API over HTTP.
type Client struct {
	httpClient *resty.Client
	baseURL    string
}

// NewClient creates a new Evolution API client.
func NewClient(baseURL, apiKey string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("evolution baseURL cannot be empty")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("evolution apiKey cannot be empty")
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("apikey", apiKey).
		SetTimeout(15 * time.Second)

	log.Info().Str("baseURL", baseURL).Msg("Evolution API client configured")

	return &Client{httpClient: httpClient, baseURL: baseURL}, nil
}

// CreateInstance provisions a new WhatsApp instance on the gateway.
func (c *Client) CreateInstance(instanceName string) (*CreateInstanceResponse, error) {
	payload := CreateInstanceRequest{
		InstanceName: instanceName,
		QRCode:       true,
		Integration:  "WHATSAPP-BAILEYS",
	}

	resp, err := c.httpClient.R().
		SetBody(payload).
		SetResult(&CreateInstanceResponse{}).
		Post("/instance/create")
	if err != nil {
		return nil, fmt.Errorf("evolution CreateInstance request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("evolution CreateInstance error: status %s, body: %s", resp.Status(), resp.String())
	}

	created := resp.Result().(*CreateInstanceResponse)
	log.Info().Str("instanceName", instanceName).Msg("Created gateway instance")
	return created, nil
}

// ConnectInstance requests pairing material for an instance.
func (c *Client) ConnectInstance(instanceName string) (*ConnectResponse, error) {
	resp, err := c.httpClient.R().
		SetResult(&ConnectResponse{}).
		Get("/instance/connect/" + instanceName)
	if err != nil {
		return nil, fmt.Errorf("evolution ConnectInstance request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("evolution ConnectInstance error: status %s, body: %s", resp.Status(), resp.String())
	}
	return resp.Result().(*ConnectResponse), nil
}

// RestartInstance restarts the instance session.
func (c *Client) RestartInstance(instanceName string) error {
	resp, err := c.httpClient.R().Put("/instance/restart/" + instanceName)
	if err != nil {
		return fmt.Errorf("evolution RestartInstance request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("evolution RestartInstance error: status %s, body: %s", resp.Status(), resp.String())
	}
	return nil
}

// LogoutInstance disconnects the instance from WhatsApp without deleting it.
func (c *Client) LogoutInstance(instanceName string) error {
	resp, err := c.httpClient.R().Delete("/instance/logout/" + instanceName)
	if err != nil {
		return fmt.Errorf("evolution LogoutInstance request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("evolution LogoutInstance error: status %s, body: %s", resp.Status(), resp.String())
	}
	return nil
}

// DeleteInstance removes the instance from the gateway entirely.
func (c *Client) DeleteInstance(instanceName string) error {
	resp, err := c.httpClient.R().Delete("/instance/delete/" + instanceName)
	if err != nil {
		return fmt.Errorf("evolution DeleteInstance request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("evolution DeleteInstance error: status %s, body: %s", resp.Status(), resp.String())
	}
	return nil
}

// SetWebhook registers the callback URL the gateway will deliver events to.
func (c *Client) SetWebhook(instanceName string, cfg WebhookConfig) error {
	resp, err := c.httpClient.R().
		SetBody(cfg).
		Post("/webhook/set/" + instanceName)
	if err != nil {
		return fmt.Errorf("evolution SetWebhook request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("evolution SetWebhook error: status %s, body: %s", resp.Status(), resp.String())
	}
	log.Info().Str("instanceName", instanceName).Str("url", cfg.URL).Msg("Registered gateway webhook")
	return nil
}

// FetchInstances lists all instances known to the gateway.
func (c *Client) FetchInstances() ([]Instance, error) {
	var instances []Instance
	resp, err := c.httpClient.R().
		SetResult(&instances).
		Get("/instance/fetchInstances")
	if err != nil {
		return nil, fmt.Errorf("evolution FetchInstances request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("evolution FetchInstances error: status %s, body: %s", resp.Status(), resp.String())
	}
	return instances, nil
}

// SendText posts a plain text message through an instance.
func (c *Client) SendText(instanceName, number, text string) (*SendTextResponse, error) {
	payload := SendTextRequest{Number: number, Text: text}

	resp, err := c.httpClient.R().
		SetBody(payload).
		SetResult(&SendTextResponse{}).
		Post("/message/sendText/" + instanceName)
	if err != nil {
		return nil, fmt.Errorf("evolution SendText request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("evolution SendText error: status %s, body: %s", resp.Status(), resp.String())
	}
	return resp.Result().(*SendTextResponse), nil
}
