package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/wa-returns-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/wa-returns-backend/pkg/errors"
)

const (
	defaultBaseURL          = "https://graph.facebook.com"
	defaultAPIVersion       = "v18.0"
	responseBodyReadLimit   = 1024
	messagingProduct        = "whatsapp"
	recipientTypeIndividual = "individual"
)

var (
	errAccessTokenRequired   = errors.New("whatsapp access token is required")
	errPhoneNumberIDRequired = errors.New("whatsapp phone number id is required")
)

// Client sends messages through the WhatsApp Cloud API.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiVersion    string
	accessToken   string
	phoneNumberID string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the Graph API host.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the Cloud API client from config.
func NewClient(cfg config.WhatsAppConfig, opts ...Option) (*Client, error) {
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, errAccessTokenRequired
	}
	phoneID := strings.TrimSpace(cfg.PhoneNumberID)
	if phoneID == "" {
		return nil, errPhoneNumberIDRequired
	}

	client := &Client{
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		baseURL:       defaultBaseURL,
		apiVersion:    defaultAPIVersion,
		accessToken:   token,
		phoneNumberID: phoneID,
	}
	if v := strings.TrimSpace(cfg.APIVersion); v != "" {
		client.apiVersion = v
	}
	if u := strings.TrimSpace(cfg.BaseURL); u != "" {
		client.baseURL = u
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

type textMessageRequest struct {
	MessagingProduct string      `json:"messaging_product"`
	RecipientType    string      `json:"recipient_type"`
	To               string      `json:"to"`
	Type             string      `json:"type"`
	Text             textPayload `json:"text"`
}

type textPayload struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

// SendText delivers a plain text message. The recipient is reduced to digits.
func (c *Client) SendText(ctx context.Context, phone, text string) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "whatsapp client not configured")
	}
	to := NormalizePhone(phone)
	if to == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient phone is required")
	}
	if strings.TrimSpace(text) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "message body is required")
	}

	payload, err := json.Marshal(textMessageRequest{
		MessagingProduct: messagingProduct,
		RecipientType:    recipientTypeIndividual,
		To:               to,
		Type:             "text",
		Text:             textPayload{Body: text},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal whatsapp message")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.messagesURL(), bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build whatsapp request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send whatsapp message")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "whatsapp send failed")
	}
	return nil
}

func (c *Client) messagesURL() string {
	return fmt.Sprintf("%s/%s/%s/messages", strings.TrimRight(c.baseURL, "/"), c.apiVersion, c.phoneNumberID)
}

// NormalizePhone strips a "whatsapp:" prefix and every non-digit.
func NormalizePhone(phone string) string {
	phone = strings.TrimPrefix(strings.TrimSpace(phone), "whatsapp:")
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
