package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/leadrelay/internal/crm"
	"github.com/wolfman30/leadrelay/internal/leads"
	"github.com/wolfman30/leadrelay/internal/notify"
	"github.com/wolfman30/leadrelay/internal/observability/metrics"
	"github.com/wolfman30/leadrelay/pkg/logging"
)

const validPayload = `{"firstName":"Jo","lastName":"Lee","email":"jo@x.com","company":"Acme","employees":"1-50","demoType":"quick"}`

type fakeForwarder struct {
	calls int
	err   error
	meta  crm.Meta
}

func (f *fakeForwarder) Forward(ctx context.Context, formName string, sub leads.Submission, meta crm.Meta) (crm.Ack, error) {
	f.calls++
	f.meta = meta
	if f.err != nil {
		return crm.Ack{}, f.err
	}
	return crm.Ack{InlineMessage: "ok"}, nil
}

type fakeNotifier struct {
	calls int
	msgs  []notify.EmailMessage
	out   notify.Outcome
	panic bool
}

func (f *fakeNotifier) Dispatch(ctx context.Context, msg notify.EmailMessage) notify.Outcome {
	f.calls++
	f.msgs = append(f.msgs, msg)
	if f.panic {
		panic("dispatch exploded")
	}
	return f.out
}

type orderedSender struct {
	kind  notify.Kind
	err   error
	calls *[]notify.Kind
}

func (s *orderedSender) Send(ctx context.Context, msg notify.EmailMessage) error {
	*s.calls = append(*s.calls, s.kind)
	return s.err
}

func newTestHandler(t *testing.T, fwd Forwarder, n Notifier) *Handler {
	t.Helper()
	return NewHandler(Config{
		Forwarder: fwd,
		Notifier:  n,
		Inbox:     "ops@example.com",
		Metrics:   metrics.NewRelayMetrics(prometheus.NewRegistry()),
		Logger:    logging.Default(),
	})
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeSuccess(t *testing.T, rec *httptest.ResponseRecorder) SuccessResponse {
	t.Helper()
	var resp SuccessResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestSubmit_NoDownstreamConfigured(t *testing.T) {
	fwd := crm.NewHubSpotForwarder(crm.Config{}, nil)
	dispatcher := notify.NewDispatcher(nil, nil)
	h := newTestHandler(t, fwd, dispatcher)

	rec := post(t, h.Submit(leads.MeetingForm), "/api/meeting", validPayload)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeSuccess(t, rec)
	assert.True(t, resp.OK)
	assert.Equal(t, leads.EngagementQuick, resp.Data.DemoType)
	assert.False(t, resp.Data.HubSpotSubmitted)
	assert.False(t, resp.Data.EmailSent)
	assert.NotEmpty(t, resp.Data.ID)
	_, err := time.Parse(time.RFC3339, resp.Data.SubmissionTime)
	assert.NoError(t, err)
}

func TestSubmit_NilCollaborators(t *testing.T) {
	h := newTestHandler(t, nil, nil)

	rec := post(t, h.Submit(leads.MeetingForm), "/api/meeting", validPayload)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeSuccess(t, rec)
	assert.False(t, resp.Data.HubSpotSubmitted)
	assert.False(t, resp.Data.EmailSent)
}

func TestSubmit_InvalidEmail(t *testing.T) {
	fwd := &fakeForwarder{}
	n := &fakeNotifier{}
	h := newTestHandler(t, fwd, n)

	body := strings.Replace(validPayload, "jo@x.com", "not-an-email", 1)
	rec := post(t, h.Submit(leads.MeetingForm), "/api/meeting", body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.OK)
	assert.Equal(t, "Validation failed", resp.Error)
	assert.NotEmpty(t, resp.Errors["email"])
	assert.Zero(t, fwd.calls, "no CRM call on validation failure")
	assert.Zero(t, n.calls, "no mail call on validation failure")
}

func TestSubmit_MissingRequiredFields(t *testing.T) {
	payloads := []string{
		`{"firstName":"","lastName":"Lee","email":"jo@x.com","company":"Acme","demoType":"quick"}`,
		`{"firstName":"Jo","lastName":"Lee","email":"jo@x.com","demoType":"quick"}`,
		`{"firstName":"Jo","lastName":"Lee","email":"jo@x.com","company":"Acme","demoType":"weekly"}`,
		`{}`,
	}
	for _, body := range payloads {
		fwd := &fakeForwarder{}
		n := &fakeNotifier{}
		h := newTestHandler(t, fwd, n)

		rec := post(t, h.Submit(leads.MeetingForm), "/api/meeting", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		var resp ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.NotEmpty(t, resp.Errors, body)
		assert.Zero(t, fwd.calls+n.calls, body)
	}
}

func TestSubmit_MalformedJSON(t *testing.T) {
	fwd := &fakeForwarder{}
	h := newTestHandler(t, fwd, nil)

	rec := post(t, h.Submit(leads.MeetingForm), "/api/meeting", `{"firstName":`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, []string{"Request body must be a JSON object"}, []string(resp.Errors["body"]))
	assert.Zero(t, fwd.calls)
}

func TestSubmit_CRMFailureDoesNotFailRequest(t *testing.T) {
	fwd := &fakeForwarder{err: &crm.StatusError{StatusCode: 500, Body: "down"}}
	n := &fakeNotifier{out: notify.Outcome{Sent: true, Channel: notify.ChannelGraph, State: notify.StateSucceeded,
		Attempts: []notify.Attempt{{Channel: notify.ChannelGraph, Success: true}}}}
	h := newTestHandler(t, fwd, n)

	rec := post(t, h.Submit(leads.MeetingForm), "/api/meeting", validPayload)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeSuccess(t, rec)
	assert.False(t, resp.Data.HubSpotSubmitted)
	assert.True(t, resp.Data.EmailSent)
	assert.Equal(t, notify.ChannelGraph, resp.Data.EmailChannel)
	assert.Equal(t, 1, fwd.calls)
	assert.Equal(t, 1, n.calls, "mail is still attempted after a CRM failure")
}

func TestSubmit_CRMSuccess(t *testing.T) {
	fwd := &fakeForwarder{}
	h := newTestHandler(t, fwd, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/demo", strings.NewReader(validPayload))
	req.AddCookie(&http.Cookie{Name: "hubspotutk", Value: "utk-1"})
	req.Header.Set("Referer", "https://site.example/demo")
	req.RemoteAddr = "203.0.113.7:5555"
	rec := httptest.NewRecorder()
	h.Submit(leads.DemoForm).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeSuccess(t, rec)
	assert.True(t, resp.Data.HubSpotSubmitted)
	assert.Equal(t, "demo", resp.Data.Form)
	assert.Equal(t, "utk-1", fwd.meta.HUTK)
	assert.Equal(t, "https://site.example/demo", fwd.meta.PageURI)
	assert.Equal(t, "203.0.113.7", fwd.meta.IP)
}

func TestSubmit_FallsBackToSMTPAfterGraphFailure(t *testing.T) {
	var calls []notify.Kind
	dispatcher := notify.NewDispatcher([]notify.Channel{
		{Kind: notify.ChannelGraph, Sender: &orderedSender{kind: notify.ChannelGraph, err: errors.New("token endpoint unreachable"), calls: &calls}},
		{Kind: notify.ChannelSMTP, Sender: &orderedSender{kind: notify.ChannelSMTP, calls: &calls}},
	}, nil)
	h := newTestHandler(t, nil, dispatcher)

	rec := post(t, h.Submit(leads.MeetingForm), "/api/meeting", validPayload)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeSuccess(t, rec)
	assert.True(t, resp.Data.EmailSent)
	assert.Equal(t, notify.ChannelSMTP, resp.Data.EmailChannel)
	assert.Equal(t, []notify.Kind{notify.ChannelGraph, notify.ChannelSMTP}, calls)
}

func TestSubmit_BothMailChannelsFail(t *testing.T) {
	var calls []notify.Kind
	dispatcher := notify.NewDispatcher([]notify.Channel{
		{Kind: notify.ChannelGraph, Sender: &orderedSender{kind: notify.ChannelGraph, err: errors.New("boom"), calls: &calls}},
		{Kind: notify.ChannelSMTP, Sender: &orderedSender{kind: notify.ChannelSMTP, err: errors.New("boom"), calls: &calls}},
	}, nil)
	h := newTestHandler(t, nil, dispatcher)

	rec := post(t, h.Submit(leads.MeetingForm), "/api/meeting", validPayload)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeSuccess(t, rec).Data.EmailSent)
}

func TestSubmit_NotificationContent(t *testing.T) {
	n := &fakeNotifier{}
	h := newTestHandler(t, nil, n)

	rec := post(t, h.Submit(leads.MeetingForm), "/api/meeting", validPayload)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, n.msgs, 1)
	assert.Equal(t, "ops@example.com", n.msgs[0].To)
	assert.Equal(t, "jo@x.com", n.msgs[0].ReplyTo)
	assert.Contains(t, n.msgs[0].HTML, decodeSuccess(t, rec).Data.ID)
}

func TestSubmit_NotIdempotent(t *testing.T) {
	fwd := &fakeForwarder{}
	n := &fakeNotifier{}
	h := newTestHandler(t, fwd, n)

	first := decodeSuccess(t, post(t, h.Submit(leads.MeetingForm), "/api/meeting", validPayload))
	second := decodeSuccess(t, post(t, h.Submit(leads.MeetingForm), "/api/meeting", validPayload))

	assert.NotEqual(t, first.Data.ID, second.Data.ID)
	assert.Equal(t, 2, fwd.calls)
	assert.Equal(t, 2, n.calls)
}

func TestSubmit_PanicMapsToInternalError(t *testing.T) {
	h := newTestHandler(t, nil, &fakeNotifier{panic: true})

	rec := post(t, h.Submit(leads.MeetingForm), "/api/meeting", validPayload)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.OK)
	assert.Equal(t, "Internal server error", resp.Error)
	assert.NotEmpty(t, resp.Message)
	assert.NotContains(t, resp.Message, "dispatch exploded")
}

func TestSubmit_FixedClockAndID(t *testing.T) {
	h := NewHandler(Config{
		Now:   func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 6e6, time.UTC) },
		NewID: func() string { return "lead-fixed" },
	})

	resp := decodeSuccess(t, post(t, h.Submit(leads.MeetingForm), "/api/meeting", validPayload))

	assert.Equal(t, "lead-fixed", resp.Data.ID)
	assert.Equal(t, "2026-01-02T03:04:05.006Z", resp.Data.SubmissionTime)
}

func TestPreflight(t *testing.T) {
	h := newTestHandler(t, nil, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/meeting", nil)
	rec := httptest.NewRecorder()

	h.Preflight(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestRoutes(t *testing.T) {
	h := newTestHandler(t, nil, nil)
	routes := h.Routes()

	for _, form := range leads.Forms() {
		body := validPayload
		if form.RequireMessage {
			body = `{"firstName":"Jo","lastName":"Lee","email":"jo@x.com","company":"Acme","message":"hi"}`
		}
		rec := post(t, routes, "/"+form.Name, body)
		assert.Equal(t, http.StatusOK, rec.Code, form.Name)

		req := httptest.NewRequest(http.MethodOptions, "/"+form.Name, nil)
		rr := httptest.NewRecorder()
		routes.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code, form.Name)
	}

	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/meeting", bytes.NewReader(nil)))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
