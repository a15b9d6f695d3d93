package outbound

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/heraldhq/herald/internal/domain/transport"
)

type ChatConfig struct {
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Client sends email over SMTP and chat cards to an incoming webhook. It is
// the only collaborator allowed to fail on network I/O.
type Client struct {
	mailer *Mailer
	chat   ChatConfig
	http   *http.Client
	log    *zap.Logger
}

var _ transport.Client = (*Client)(nil)

func NewClient(smtpCfg SMTPConfig, chatCfg ChatConfig, log *zap.Logger) *Client {
	timeout := chatCfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	hc := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:    100,
			IdleConnTimeout: 90 * time.Second,
		},
	}
	return &Client{
		mailer: NewMailer(smtpCfg, log),
		chat:   chatCfg,
		http:   hc,
		log:    log.With(zap.String("component", "outbound.client")),
	}
}

func (c *Client) SendEmail(_ context.Context, tenantID string, to []string, subject, htmlBody, entityID string) error {
	if len(to) == 0 {
		return nil
	}
	if err := c.mailer.send(to, subject, htmlBody); err != nil {
		return fmt.Errorf("send email (tenant %s, entity %s): %w", tenantID, entityID, err)
	}
	return nil
}

type chatCard struct {
	TenantID string           `json:"tenant_id"`
	Title    string           `json:"title"`
	Summary  string           `json:"summary"`
	EntityID string           `json:"entity_id"`
	Facts    []transport.Fact `json:"facts,omitempty"`
}

func (c *Client) SendChatCard(ctx context.Context, tenantID, title, summary, entityID string, facts []transport.Fact) error {
	if c.chat.WebhookURL == "" {
		return nil
	}
	body, err := json.Marshal(chatCard{
		TenantID: tenantID,
		Title:    title,
		Summary:  summary,
		EntityID: entityID,
		Facts:    facts,
	})
	if err != nil {
		return fmt.Errorf("marshal chat card: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chat.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("chat card request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post chat card: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("chat webhook status %d", resp.StatusCode)
	}
	return nil
}
