package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/wolfman30/leadrelay/pkg/logging"
)

const (
	defaultGraphBaseURL = "https://graph.microsoft.com"
	graphScope          = "https://graph.microsoft.com/.default"
	graphTimeout        = 15 * time.Second
)

// GraphConfig holds Microsoft Graph app-only credentials.
type GraphConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	SenderEmail  string
	// BaseURL and TokenURL override the public endpoints; tests point them at
	// a local server.
	BaseURL  string
	TokenURL string
}

// Configured reports whether all four credentials are present.
func (c GraphConfig) Configured() bool {
	return strings.TrimSpace(c.TenantID) != "" &&
		strings.TrimSpace(c.ClientID) != "" &&
		strings.TrimSpace(c.ClientSecret) != "" &&
		strings.TrimSpace(c.SenderEmail) != ""
}

func (c GraphConfig) tokenURL() string {
	if c.TokenURL != "" {
		return c.TokenURL
	}
	return fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", url.PathEscape(c.TenantID))
}

// GraphSender sends mail through the Graph sendMail endpoint of a mailbox,
// authenticating with the client-credentials grant.
type GraphSender struct {
	httpClient *http.Client
	baseURL    string
	sender     string
	logger     *logging.Logger
}

// NewGraphSender builds a sender whose HTTP client fetches and caches tokens.
// It returns nil when the config is incomplete.
func NewGraphSender(cfg GraphConfig, logger *logging.Logger) *GraphSender {
	if !cfg.Configured() {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultGraphBaseURL
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.tokenURL(),
		Scopes:       []string{graphScope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: graphTimeout})
	client := cc.Client(tokenCtx)
	client.Timeout = graphTimeout

	return &GraphSender{
		httpClient: client,
		baseURL:    baseURL,
		sender:     cfg.SenderEmail,
		logger:     logger,
	}
}

type graphAddress struct {
	EmailAddress struct {
		Address string `json:"address"`
		Name    string `json:"name,omitempty"`
	} `json:"emailAddress"`
}

func newGraphAddress(addr, name string) graphAddress {
	var a graphAddress
	a.EmailAddress.Address = addr
	a.EmailAddress.Name = name
	return a
}

type graphMessage struct {
	Subject string `json:"subject"`
	Body    struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	ToRecipients []graphAddress `json:"toRecipients"`
	ReplyTo      []graphAddress `json:"replyTo,omitempty"`
}

type graphSendMailRequest struct {
	Message         graphMessage `json:"message"`
	SaveToSentItems bool         `json:"saveToSentItems"`
}

// Send delivers msg from the configured mailbox.
func (s *GraphSender) Send(ctx context.Context, msg EmailMessage) error {
	if s == nil || s.httpClient == nil {
		return fmt.Errorf("notify: graph: %w", ErrNotConfigured)
	}

	var gm graphMessage
	gm.Subject = msg.Subject
	if msg.HTML != "" {
		gm.Body.ContentType = "HTML"
		gm.Body.Content = msg.HTML
	} else {
		gm.Body.ContentType = "Text"
		gm.Body.Content = msg.Body
	}
	gm.ToRecipients = []graphAddress{newGraphAddress(msg.To, msg.ToName)}
	if msg.ReplyTo != "" {
		gm.ReplyTo = []graphAddress{newGraphAddress(msg.ReplyTo, "")}
	}

	payload, err := json.Marshal(graphSendMailRequest{Message: gm})
	if err != nil {
		return fmt.Errorf("notify: graph: marshal: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1.0/users/%s/sendMail", s.baseURL, url.PathEscape(s.sender))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: graph: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("graph send failed", "error", err, "to", msg.To)
		return fmt.Errorf("notify: graph send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.logger.Error("graph returned error status", "status", resp.StatusCode, "to", msg.To)
		return &RejectedError{Channel: ChannelGraph, StatusCode: resp.StatusCode, Body: truncate(string(body), 300)}
	}

	s.logger.Info("email sent via graph", "to", msg.To, "subject", msg.Subject, "status", resp.StatusCode)
	return nil
}

var _ EmailSender = (*GraphSender)(nil)
