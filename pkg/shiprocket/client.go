package shiprocket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/wa-returns-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/wa-returns-backend/pkg/errors"
)

const (
	defaultBaseURL        = "https://apiv2.shiprocket.in/v1/external"
	responseBodyReadLimit = 2048

	// Login tokens live ten days; refresh a day early.
	loginTokenLifetime = 9 * 24 * time.Hour
	// A static token is assumed to have been issued at boot.
	staticTokenLifetime = 10 * 24 * time.Hour
)

var errCredentialsRequired = errors.New("shiprocket token or email/password is required")

// Client talks to the Shiprocket external API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	email      string
	password   string
	static     bool
	now        func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
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

// WithBaseURL overrides the API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithClock overrides the clock used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds a client that authenticates with a static token when one is
// configured and otherwise logs in with email/password.
func NewClient(cfg config.ShiprocketConfig, opts ...Option) (*Client, error) {
	token := strings.TrimSpace(cfg.Token)
	email := strings.TrimSpace(cfg.Email)
	if token == "" && (email == "" || cfg.Password == "") {
		return nil, errCredentialsRequired
	}

	client := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultBaseURL,
		email:      email,
		password:   cfg.Password,
		now:        time.Now,
	}
	if u := strings.TrimSpace(cfg.BaseURL); u != "" {
		client.baseURL = u
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if token != "" {
		client.static = true
		client.token = token
		client.tokenExpiry = client.now().Add(staticTokenLifetime)
	}
	return client, nil
}

// Address is the pickup location of a return.
type Address struct {
	Name    string
	Phone   string
	Email   string
	Line    string
	City    string
	State   string
	Pincode string
	Country string
}

// ReturnItem is one unit line sent back to the warehouse.
type ReturnItem struct {
	SKU          string
	Name         string
	Units        int
	SellingPrice float64
}

// ReturnRequest describes a reverse shipment for an order.
type ReturnRequest struct {
	OrderID   string
	OrderDate time.Time
	Pickup    Address
	Items     []ReturnItem
	Reason    string
}

// ReturnResult carries Shiprocket's reference for the reverse order.
type ReturnResult struct {
	ReturnRef string
	AWB       string
}

// PickupResult is the outcome of assigning a courier to a return.
type PickupResult struct {
	PickupDate string
	AWB        string
}

// TrackingEvent is one scan in a shipment's history.
type TrackingEvent struct {
	Date     string
	Activity string
	Location string
	Status   string
}

type returnItemPayload struct {
	SKU          string  `json:"sku"`
	Name         string  `json:"name"`
	Units        int     `json:"units"`
	SellingPrice float64 `json:"selling_price"`
}

type returnPayload struct {
	OrderID             string              `json:"order_id"`
	OrderDate           string              `json:"order_date"`
	PickupCustomerName  string              `json:"pickup_customer_name"`
	PickupCustomerPhone string              `json:"pickup_customer_phone"`
	PickupEmail         string              `json:"pickup_email,omitempty"`
	PickupAddress       string              `json:"pickup_address"`
	PickupCity          string              `json:"pickup_city"`
	PickupState         string              `json:"pickup_state"`
	PickupPincode       string              `json:"pickup_pincode"`
	PickupCountry       string              `json:"pickup_country,omitempty"`
	ReturnItems         []returnItemPayload `json:"return_items"`
	ReturnReason        string              `json:"return_reason"`
}

// CreateReturn registers a reverse order and returns Shiprocket's reference.
func (c *Client) CreateReturn(ctx context.Context, req ReturnRequest) (*ReturnResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shiprocket client not configured")
	}
	if strings.TrimSpace(req.OrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if len(req.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one return item is required")
	}

	items := make([]returnItemPayload, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, returnItemPayload(item))
	}
	payload := returnPayload{
		OrderID:             req.OrderID,
		OrderDate:           req.OrderDate.Format("2006-01-02"),
		PickupCustomerName:  req.Pickup.Name,
		PickupCustomerPhone: req.Pickup.Phone,
		PickupEmail:         req.Pickup.Email,
		PickupAddress:       req.Pickup.Line,
		PickupCity:          req.Pickup.City,
		PickupState:         req.Pickup.State,
		PickupPincode:       req.Pickup.Pincode,
		PickupCountry:       req.Pickup.Country,
		ReturnItems:         items,
		ReturnReason:        req.Reason,
	}

	var resp struct {
		OrderID flexibleID `json:"order_id"`
		AWBCode flexibleID `json:"awb_code"`
	}
	if err := c.do(ctx, http.MethodPost, "/orders/create/return", payload, &resp); err != nil {
		return nil, err
	}
	if resp.OrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shiprocket return response missing order_id")
	}
	return &ReturnResult{ReturnRef: string(resp.OrderID), AWB: string(resp.AWBCode)}, nil
}

// SchedulePickup assigns a courier to the reverse order for the given date
// (YYYY-MM-DD).
func (c *Client) SchedulePickup(ctx context.Context, returnRef, pickupDate string) (*PickupResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shiprocket client not configured")
	}
	if strings.TrimSpace(returnRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return reference is required")
	}
	payload := map[string]string{
		"order_id":    returnRef,
		"pickup_date": pickupDate,
	}
	var resp struct {
		AWBCode  flexibleID `json:"awb_code"`
		Response struct {
			Data struct {
				AWBCode flexibleID `json:"awb_code"`
			} `json:"data"`
		} `json:"response"`
	}
	if err := c.do(ctx, http.MethodPost, "/courier/assign/awb", payload, &resp); err != nil {
		return nil, err
	}
	awb := resp.AWBCode
	if awb == "" {
		awb = resp.Response.Data.AWBCode
	}
	return &PickupResult{PickupDate: pickupDate, AWB: string(awb)}, nil
}

// GetTracking returns the scan history for an AWB, most recent first.
func (c *Client) GetTracking(ctx context.Context, awb string) ([]TrackingEvent, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shiprocket client not configured")
	}
	trimmed := strings.TrimSpace(awb)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "awb is required")
	}
	var resp struct {
		TrackingData struct {
			ShipmentTrack []struct {
				Date          string `json:"date"`
				Activity      string `json:"activity"`
				Location      string `json:"location"`
				SRStatusLabel string `json:"sr-status-label"`
			} `json:"shipment_track_activities"`
		} `json:"tracking_data"`
	}
	if err := c.do(ctx, http.MethodGet, "/courier/track/awb/"+url.PathEscape(trimmed), nil, &resp); err != nil {
		return nil, err
	}
	events := make([]TrackingEvent, 0, len(resp.TrackingData.ShipmentTrack))
	for _, scan := range resp.TrackingData.ShipmentTrack {
		events = append(events, TrackingEvent{
			Date:     scan.Date,
			Activity: scan.Activity,
			Location: scan.Location,
			Status:   scan.SRStatusLabel,
		})
	}
	return events, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal shiprocket request")
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build shiprocket request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute shiprocket request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, providerError(resp), "shiprocket request failed")
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode shiprocket response")
	}
	return nil
}

func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.token != "" && now.Before(c.tokenExpiry) {
		return c.token, nil
	}
	if c.static {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "shiprocket token expired; update WARB_SHIPROCKET_TOKEN")
	}

	payload, err := json.Marshal(map[string]string{"email": c.email, "password": c.password})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal shiprocket login")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/auth/login"), bytes.NewReader(payload))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build shiprocket login")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "shiprocket login")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, providerError(resp), "shiprocket authentication failed")
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode shiprocket login")
	}
	if login.Token == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "shiprocket login returned no token")
	}
	c.token = login.Token
	c.tokenExpiry = now.Add(loginTokenLifetime)
	return c.token, nil
}

func (c *Client) url(path string) string {
	return strings.TrimRight(c.baseURL, "/") + path
}

// providerError prefers Shiprocket's "message" field over the raw body.
func providerError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return fmt.Errorf("status %d: %s", resp.StatusCode, body.Message)
	}
	return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
}

// flexibleID accepts identifiers Shiprocket sends either as numbers or strings.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}
