package whatsapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// InboundText is a text message received from a customer.
type InboundText struct {
	MessageID string
	Phone     string
	Text      string
}

// WebhookPayload mirrors the parts of the Cloud API notification we read.
type WebhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				Messages []struct {
					ID   string `json:"id"`
					From string `json:"from"`
					Type string `json:"type"`
					Text *struct {
						Body string `json:"body"`
					} `json:"text"`
					Button *struct {
						Text string `json:"text"`
					} `json:"button"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// TextMessages flattens the payload into text messages. Status callbacks and
// media messages are skipped.
func (p WebhookPayload) TextMessages() []InboundText {
	var out []InboundText
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				body := ""
				switch {
				case msg.Text != nil:
					body = msg.Text.Body
				case msg.Button != nil:
					body = msg.Button.Text
				}
				if strings.TrimSpace(body) == "" || msg.From == "" {
					continue
				}
				out = append(out, InboundText{MessageID: msg.ID, Phone: msg.From, Text: body})
			}
		}
	}
	return out
}

// VerifySignature checks the X-Hub-Signature-256 header ("sha256=<hex>")
// against the raw request body.
func VerifySignature(appSecret string, body []byte, header string) bool {
	if appSecret == "" || header == "" {
		return false
	}
	sig := strings.TrimPrefix(strings.TrimSpace(header), "sha256=")
	expected, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}
