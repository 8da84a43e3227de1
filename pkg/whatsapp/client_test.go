package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/angelmondragon/wa-returns-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/wa-returns-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testConfig() config.WhatsAppConfig {
	return config.WhatsAppConfig{AccessToken: "token", PhoneNumberID: "1234", APIVersion: "v18.0"}
}

func TestSendTextRequest(t *testing.T) {
	var capturedURL string
	var capturedAuth string
	var payload textMessageRequest

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedAuth = req.Header.Get("Authorization")
		body, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"messages":[{"id":"wamid.1"}]}`)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient(testConfig(), WithBaseURL("http://graph.test"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.SendText(context.Background(), "whatsapp:+91 98765-43210", "hello"); err != nil {
		t.Fatalf("send text: %v", err)
	}
	if capturedURL != "http://graph.test/v18.0/1234/messages" {
		t.Fatalf("unexpected url %s", capturedURL)
	}
	if capturedAuth != "Bearer token" {
		t.Fatalf("unexpected auth header %q", capturedAuth)
	}
	if payload.To != "919876543210" || payload.Text.Body != "hello" || payload.MessagingProduct != "whatsapp" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestSendTextNon2xxIsDependencyError(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusBadRequest,
			Body:       io.NopCloser(strings.NewReader(`{"error":{"message":"invalid recipient"}}`)),
			Header:     http.Header{},
		}, nil
	})
	client, err := NewClient(testConfig(), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	err = client.SendText(context.Background(), "919876543210", "hi")
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid recipient") {
		t.Fatalf("expected provider text in error, got %v", err)
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(config.WhatsAppConfig{PhoneNumberID: "1"}); err == nil {
		t.Fatalf("expected missing token error")
	}
	if _, err := NewClient(config.WhatsAppConfig{AccessToken: "t"}); err == nil {
		t.Fatalf("expected missing phone number id error")
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"whatsapp:+919876543210": "919876543210",
		" +1 (555) 010-2000 ":    "15550102000",
		"":                       "",
	}
	for in, want := range cases {
		if got := NormalizePhone(in); got != want {
			t.Fatalf("NormalizePhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"object":"whatsapp_business_account"}`)
	mac := hmac.New(sha256.New, []byte("app-secret"))
	mac.Write(body)
	header := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	if !VerifySignature("app-secret", body, header) {
		t.Fatalf("expected signature to verify")
	}
	if VerifySignature("other", body, header) {
		t.Fatalf("expected mismatch with wrong secret")
	}
	if VerifySignature("app-secret", body, "sha256=zz") {
		t.Fatalf("expected malformed hex to fail")
	}
}

func TestTextMessagesSkipsNonText(t *testing.T) {
	raw := `{"object":"whatsapp_business_account","entry":[{"changes":[{"field":"messages","value":{
		"messages":[
			{"id":"a","from":"9198","type":"text","text":{"body":"return"}},
			{"id":"b","from":"9198","type":"image"},
			{"id":"c","from":"9199","type":"button","button":{"text":"1"}}
		]}}]}]}`
	var payload WebhookPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	msgs := payload.TextMessages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 text messages, got %d", len(msgs))
	}
	if msgs[0].Text != "return" || msgs[1].Phone != "9199" || msgs[1].Text != "1" {
		t.Fatalf("unexpected messages %+v", msgs)
	}
}
