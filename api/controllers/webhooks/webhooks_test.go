package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	webhookoutcome "github.com/angelmondragon/wa-returns-backend/internal/webhooks"
	razorpaywebhook "github.com/angelmondragon/wa-returns-backend/internal/webhooks/razorpay"
	shiprocketwebhook "github.com/angelmondragon/wa-returns-backend/internal/webhooks/shiprocket"
	"github.com/angelmondragon/wa-returns-backend/pkg/config"
)

type routedMessage struct {
	phone string
	text  string
}

type recordingRouter struct {
	mu   sync.Mutex
	msgs []routedMessage
}

func (r *recordingRouter) Route(_ context.Context, phone, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, routedMessage{phone: phone, text: text})
}

type memoryGuard struct {
	seen    map[string]bool
	deleted []string
	err     error
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{seen: map[string]bool{}}
}

func (g *memoryGuard) CheckAndMark(_ context.Context, id string) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	if g.seen[id] {
		return true, nil
	}
	g.seen[id] = true
	return false, nil
}

func (g *memoryGuard) Delete(_ context.Context, id string) error {
	delete(g.seen, id)
	g.deleted = append(g.deleted, id)
	return nil
}

type countingMetrics struct {
	counts map[string]int
}

func (m *countingMetrics) IncWebhook(provider, outcome string) {
	if m.counts == nil {
		m.counts = map[string]int{}
	}
	m.counts[provider+"/"+outcome]++
}

const whatsappBody = `{"object":"whatsapp_business_account","entry":[{"changes":[{"field":"messages","value":{"messages":[
{"id":"wamid.1","from":"919876543210","type":"text","text":{"body":"return"}},
{"id":"wamid.2","from":"919876543210","type":"text","text":{"body":"ORD-1001"}}]}}]}]}`

func sign(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestWhatsAppVerifyEchoesChallenge(t *testing.T) {
	handler := WhatsAppVerify(config.WhatsAppConfig{VerifyToken: "tok"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/?hub.mode=subscribe&hub.verify_token=tok&hub.challenge=12345", nil)
	w := httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "12345" {
		t.Fatalf("expected challenge echo, got %d %q", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=12345", nil)
	w = httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for wrong token, got %d", w.Code)
	}
}

func TestWhatsAppWebhookRoutesMessagesInOrder(t *testing.T) {
	router := &recordingRouter{}
	metrics := &countingMetrics{}
	cfg := config.WhatsAppConfig{AppSecret: "shh"}
	handler := WhatsAppWebhook(router, cfg, newMemoryGuard(), metrics, nil)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(whatsappBody))
	req.Header.Set(whatsappSignatureHeader, sign("shh", whatsappBody))
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(router.msgs) != 2 || router.msgs[0].text != "return" || router.msgs[1].text != "ORD-1001" {
		t.Fatalf("unexpected routed messages %+v", router.msgs)
	}
	if router.msgs[0].phone != "919876543210" {
		t.Fatalf("unexpected phone %q", router.msgs[0].phone)
	}
	if metrics.counts["whatsapp/routed"] != 2 {
		t.Fatalf("expected two routed messages counted, got %v", metrics.counts)
	}
}

func TestWhatsAppWebhookSkipsRedeliveredMessages(t *testing.T) {
	router := &recordingRouter{}
	guard := newMemoryGuard()
	handler := WhatsAppWebhook(router, config.WhatsAppConfig{}, guard, nil, nil)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(whatsappBody))
		w := httptest.NewRecorder()
		handler(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	}
	if len(router.msgs) != 2 {
		t.Fatalf("expected redelivery to be skipped, routed %d", len(router.msgs))
	}
}

func TestWhatsAppWebhookRejectsBadSignature(t *testing.T) {
	router := &recordingRouter{}
	handler := WhatsAppWebhook(router, config.WhatsAppConfig{AppSecret: "shh"}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(whatsappBody))
	req.Header.Set(whatsappSignatureHeader, sign("other", whatsappBody))
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if len(router.msgs) != 0 {
		t.Fatalf("no message should be routed")
	}
}

func TestWhatsAppWebhookAcknowledgesMalformedPayload(t *testing.T) {
	router := &recordingRouter{}
	handler := WhatsAppWebhook(router, config.WhatsAppConfig{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"entry":`))
	w := httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusOK || len(router.msgs) != 0 {
		t.Fatalf("expected quiet 200, got %d with %d messages", w.Code, len(router.msgs))
	}
}

type stubVerifier struct{ ok bool }

func (s stubVerifier) VerifyWebhookSignature([]byte, string) bool { return s.ok }

type recordingPaymentService struct {
	events  []razorpaywebhook.PaymentEvent
	outcome webhookoutcome.Outcome
	err     error
}

func (s *recordingPaymentService) HandleEvent(_ context.Context, event razorpaywebhook.PaymentEvent) (webhookoutcome.Outcome, error) {
	s.events = append(s.events, event)
	if s.outcome == "" {
		s.outcome = webhookoutcome.OutcomeNotified
	}
	return s.outcome, s.err
}

const capturedBody = `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_123","amount":20000,"notes":{"order_id":"ORD-1001","type":"exchange_payment"}}}}}`

func TestRazorpayWebhookTranslatesCapturedPayment(t *testing.T) {
	svc := &recordingPaymentService{}
	metrics := &countingMetrics{}
	handler := RazorpayWebhook(svc, stubVerifier{ok: true}, newMemoryGuard(), metrics, nil)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(capturedBody))
	req.Header.Set(razorpaySignatureHeader, "sig")
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(svc.events) != 1 {
		t.Fatalf("expected one event, got %d", len(svc.events))
	}
	ev := svc.events[0]
	if ev.Event != razorpaywebhook.EventPaymentCaptured || ev.OrderID != "ORD-1001" || ev.PaymentID != "pay_123" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Amount.String() != "200" {
		t.Fatalf("expected amount 200, got %s", ev.Amount)
	}
	if metrics.counts["razorpay/notified"] != 1 {
		t.Fatalf("unexpected metrics %v", metrics.counts)
	}
}

func TestRazorpayWebhookToleratesEmptyNotesArray(t *testing.T) {
	svc := &recordingPaymentService{outcome: webhookoutcome.OutcomeIgnored}
	handler := RazorpayWebhook(svc, stubVerifier{ok: true}, nil, nil, nil)

	body := `{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_9","amount":100,"notes":[],"error_description":"Card declined"}}}}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(razorpaySignatureHeader, "sig")
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if svc.events[0].OrderID != "" || svc.events[0].ErrorText != "Card declined" {
		t.Fatalf("unexpected event %+v", svc.events[0])
	}
}

func TestRazorpayWebhookRejectsInvalidSignature(t *testing.T) {
	svc := &recordingPaymentService{}
	handler := RazorpayWebhook(svc, stubVerifier{ok: false}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(capturedBody))
	req.Header.Set(razorpaySignatureHeader, "bad")
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if len(svc.events) != 0 {
		t.Fatalf("service must not run for an invalid signature")
	}
}

func TestRazorpayWebhookDedupesByEventID(t *testing.T) {
	svc := &recordingPaymentService{}
	handler := RazorpayWebhook(svc, stubVerifier{ok: true}, newMemoryGuard(), nil, nil)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(capturedBody))
		req.Header.Set(razorpaySignatureHeader, "sig")
		req.Header.Set(razorpayEventIDHeader, "evt_1")
		w := httptest.NewRecorder()
		handler(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	}
	if len(svc.events) != 1 {
		t.Fatalf("expected duplicate delivery to be skipped, got %d events", len(svc.events))
	}
}

func TestRazorpayWebhookReleasesKeyOnFailure(t *testing.T) {
	svc := &recordingPaymentService{outcome: webhookoutcome.OutcomeFailed, err: errors.New("db down")}
	guard := newMemoryGuard()
	handler := RazorpayWebhook(svc, stubVerifier{ok: true}, guard, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(capturedBody))
	req.Header.Set(razorpaySignatureHeader, "sig")
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if len(guard.deleted) != 1 || guard.deleted[0] != "payment.captured:pay_123" {
		t.Fatalf("expected fallback event key released, got %v", guard.deleted)
	}
}

type recordingShippingService struct {
	events  []shiprocketwebhook.ShippingStatusEvent
	outcome webhookoutcome.Outcome
	err     error
}

func (s *recordingShippingService) HandleStatus(_ context.Context, event shiprocketwebhook.ShippingStatusEvent) (webhookoutcome.Outcome, error) {
	s.events = append(s.events, event)
	if s.outcome == "" {
		s.outcome = webhookoutcome.OutcomeNotified
	}
	return s.outcome, s.err
}

func TestShiprocketWebhookAcceptsNumericOrderID(t *testing.T) {
	svc := &recordingShippingService{}
	handler := ShiprocketWebhook(svc, "", newMemoryGuard(), nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"order_id":778899,"status":"Picked Up","awb":"141123"}`))
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	ev := svc.events[0]
	if ev.Ref != "778899" || ev.Status != "Picked Up" || ev.AWB != "141123" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestShiprocketWebhookDedupesRefAndStatus(t *testing.T) {
	svc := &recordingShippingService{}
	handler := ShiprocketWebhook(svc, "", newMemoryGuard(), nil, nil)

	bodies := []string{
		`{"order_id":"SR-1","status":"picked_up"}`,
		`{"order_id":"SR-1","status":"Picked Up"}`,
		`{"order_id":"SR-1","current_status":"in transit"}`,
	}
	for _, body := range bodies {
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	}
	if len(svc.events) != 2 || svc.events[1].Status != "in transit" {
		t.Fatalf("expected the repeated status to be skipped, got %+v", svc.events)
	}
}

func TestShiprocketWebhookRequiresStatus(t *testing.T) {
	svc := &recordingShippingService{}
	handler := ShiprocketWebhook(svc, "", nil, nil, nil)

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"order_id":"SR-1"}`)))
	if w.Code != http.StatusBadRequest || len(svc.events) != 0 {
		t.Fatalf("expected 400 without dispatch, got %d", w.Code)
	}
}

func TestShiprocketWebhookChecksToken(t *testing.T) {
	svc := &recordingShippingService{}
	handler := ShiprocketWebhook(svc, "secret-token", nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"order_id":"SR-1","status":"delivered"}`))
	req.Header.Set(shiprocketTokenHeader, "wrong")
	w := httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"order_id":"SR-1","status":"delivered"}`))
	req.Header.Set(shiprocketTokenHeader, "secret-token")
	w = httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusOK || len(svc.events) != 1 {
		t.Fatalf("expected accepted update, got %d", w.Code)
	}
}

func TestShiprocketWebhookAcknowledgesRejectedTransition(t *testing.T) {
	svc := &recordingShippingService{outcome: webhookoutcome.OutcomeRejected}
	metrics := &countingMetrics{}
	handler := ShiprocketWebhook(svc, "", nil, metrics, nil)

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"order_id":"SR-1","status":"initiated"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if metrics.counts["shiprocket/rejected"] != 1 {
		t.Fatalf("unexpected metrics %v", metrics.counts)
	}
}
