package crm

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
	"time"

	"github.com/wolfman30/leadrelay/internal/leads"
	"github.com/wolfman30/leadrelay/pkg/logging"
)

const (
	defaultBaseURL = "https://api.hsforms.com"
	defaultTimeout = 10 * time.Second
)

// ErrNotConfigured is returned when the portal or form id is missing.
var ErrNotConfigured = errors.New("crm: hubspot not configured")

// Config holds HubSpot form-capture settings.
type Config struct {
	PortalID string
	// FormID is used for any form without an entry in FormIDs.
	FormID  string
	FormIDs map[string]string
	BaseURL string
	Timeout time.Duration
}

// Meta is request context that HubSpot uses for attribution.
type Meta struct {
	PageURI  string
	PageName string
	HUTK     string
	IP       string
}

// Ack is HubSpot's acknowledgement of a form submission.
type Ack struct {
	InlineMessage string `json:"inlineMessage,omitempty"`
	RedirectURI   string `json:"redirectUri,omitempty"`
}

// StatusError is returned when HubSpot answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("crm: hubspot returned %d: %s", e.StatusCode, e.Body)
}

// HubSpotForwarder posts submissions to HubSpot's public form-capture API.
type HubSpotForwarder struct {
	httpClient *http.Client
	cfg        Config
	logger     *logging.Logger
}

// NewHubSpotForwarder constructs a forwarder. A forwarder with missing ids is
// valid; Forward reports ErrNotConfigured without calling out.
func NewHubSpotForwarder(cfg Config, logger *logging.Logger) *HubSpotForwarder {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &HubSpotForwarder{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		logger:     logger,
	}
}

// Configured reports whether form submissions for formName can be forwarded.
func (f *HubSpotForwarder) Configured(formName string) bool {
	return f != nil && strings.TrimSpace(f.cfg.PortalID) != "" && f.formID(formName) != ""
}

func (f *HubSpotForwarder) formID(formName string) string {
	if id := strings.TrimSpace(f.cfg.FormIDs[formName]); id != "" {
		return id
	}
	return strings.TrimSpace(f.cfg.FormID)
}

// Forward makes a single attempt to submit sub to HubSpot.
func (f *HubSpotForwarder) Forward(ctx context.Context, formName string, sub leads.Submission, meta Meta) (Ack, error) {
	if !f.Configured(formName) {
		return Ack{}, ErrNotConfigured
	}

	payload := buildPayload(sub, meta)
	body, err := json.Marshal(payload)
	if err != nil {
		return Ack{}, fmt.Errorf("crm: marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/submissions/v3/integration/submit/%s/%s",
		f.cfg.BaseURL, url.PathEscape(f.cfg.PortalID), url.PathEscape(f.formID(formName)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Ack{}, fmt.Errorf("crm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Ack{}, fmt.Errorf("crm: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Ack{}, fmt.Errorf("crm: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(respBody)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		f.logger.Warn("hubspot non-2xx response", "status", resp.StatusCode, "form", formName, "body", msg)
		return Ack{}, &StatusError{StatusCode: resp.StatusCode, Body: msg}
	}

	var ack Ack
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &ack); err != nil {
			f.logger.Debug("hubspot ack not JSON", "error", err)
		}
	}
	return ack, nil
}
