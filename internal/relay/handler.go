package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/leadrelay/internal/crm"
	"github.com/wolfman30/leadrelay/internal/leads"
	"github.com/wolfman30/leadrelay/internal/notify"
	"github.com/wolfman30/leadrelay/internal/observability/metrics"
	"github.com/wolfman30/leadrelay/pkg/logging"
)

var relayTracer = otel.Tracer("leadrelay/relay")

const (
	submissionTimeLayout = "2006-01-02T15:04:05.000Z07:00"
	defaultNotifyTimeout = 20 * time.Second
	hubspotCookie        = "hubspotutk"
)

// Forwarder relays a submission to the CRM.
type Forwarder interface {
	Forward(ctx context.Context, formName string, sub leads.Submission, meta crm.Meta) (crm.Ack, error)
}

// Notifier emails the operator inbox.
type Notifier interface {
	Dispatch(ctx context.Context, msg notify.EmailMessage) notify.Outcome
}

// Config wires the handler's collaborators. Forwarder and Notifier may be nil.
type Config struct {
	Validator     *leads.Validator
	Forwarder     Forwarder
	Notifier      Notifier
	Inbox         string
	NotifyTimeout time.Duration
	Metrics       *metrics.RelayMetrics
	Logger        *logging.Logger

	// Now and NewID are replaced in tests.
	Now   func() time.Time
	NewID func() string
}

// Handler serves the public lead forms.
type Handler struct {
	validator     *leads.Validator
	forwarder     Forwarder
	notifier      Notifier
	inbox         string
	notifyTimeout time.Duration
	metrics       *metrics.RelayMetrics
	logger        *logging.Logger
	now           func() time.Time
	newID         func() string
}

// NewHandler creates a relay handler
func NewHandler(cfg Config) *Handler {
	h := &Handler{
		validator:     cfg.Validator,
		forwarder:     cfg.Forwarder,
		notifier:      cfg.Notifier,
		inbox:         cfg.Inbox,
		notifyTimeout: cfg.NotifyTimeout,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
		now:           cfg.Now,
		newID:         cfg.NewID,
	}
	if h.validator == nil {
		h.validator = leads.NewValidator()
	}
	if h.inbox == "" {
		h.inbox = notify.DefaultInbox
	}
	if h.notifyTimeout <= 0 {
		h.notifyTimeout = defaultNotifyTimeout
	}
	if h.logger == nil {
		h.logger = logging.Default()
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.newID == nil {
		h.newID = uuid.NewString
	}
	return h
}

// Routes mounts POST and OPTIONS for every form.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	for _, form := range leads.Forms() {
		r.Post("/"+form.Name, h.Submit(form))
		r.Options("/"+form.Name, h.Preflight)
	}
	return r
}

// Preflight answers CORS preflight requests for the form endpoints.
func (h *Handler) Preflight(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Max-Age", "600")
	w.WriteHeader(http.StatusOK)
}

// Submit returns the handler for POST /api/{form}.
func (h *Handler) Submit(form leads.Form) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := h.now()
		written := false
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.Error("relay handler panicked", "form", form.Name, "panic", rec)
				h.metrics.ObserveSubmission(form.Name, "error")
				if !written {
					writeError(w, http.StatusInternalServerError, ErrorResponse{
						Error:   "Internal server error",
						Message: "An unexpected error occurred while processing the submission",
					})
				}
			}
		}()

		ctx, span := relayTracer.Start(r.Context(), "relay.submit")
		span.SetAttributes(attribute.String("relay.form", form.Name))
		defer span.End()

		raw, err := leads.ParseSubmission(r.Body)
		if err != nil {
			h.logger.Warn("invalid submission body", "form", form.Name, "error", err)
			h.metrics.ObserveSubmission(form.Name, "invalid")
			written = true
			writeError(w, http.StatusBadRequest, ErrorResponse{
				Error:  "Validation failed",
				Errors: leads.FieldErrors{"body": {bodyErrorMessage(err)}},
			})
			return
		}

		sub, fieldErrs := h.validator.Validate(form, raw)
		if !fieldErrs.Empty() {
			h.logger.Info("submission rejected", "form", form.Name, "fields", fieldErrs.Fields())
			h.metrics.ObserveSubmission(form.Name, "invalid")
			written = true
			writeError(w, http.StatusBadRequest, ErrorResponse{
				Error:  "Validation failed",
				Errors: fieldErrs,
			})
			return
		}

		id := h.newID()
		submittedAt := h.now().UTC()
		span.SetAttributes(attribute.String("relay.lead_id", id))

		// Downstream calls run to completion even if the client goes away.
		downstreamCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.notifyTimeout)
		defer cancel()

		outcome := DeliveryOutcome{
			CRM:   h.forwardCRM(downstreamCtx, form, sub, requestMeta(r, sub)),
			Email: h.notify(downstreamCtx, form, id, submittedAt, sub),
		}

		h.logger.Info("lead accepted",
			"lead_id", id,
			"form", form.Name,
			"email", sub.Email,
			"hubspot_submitted", outcome.CRM.Success,
			"email_sent", outcome.Email.Sent,
			"email_channel", outcome.Email.Channel,
			"email_state", outcome.Email.State,
		)
		h.metrics.ObserveSubmission(form.Name, "accepted")
		h.metrics.ObserveLatency(form.Name, time.Since(start).Seconds())

		written = true
		writeJSON(w, http.StatusOK, SuccessResponse{
			OK: true,
			Data: Receipt{
				ID:               id,
				SubmissionTime:   submittedAt.Format(submissionTimeLayout),
				Form:             form.Name,
				DemoType:         sub.DemoType,
				HubSpotSubmitted: outcome.CRM.Success,
				EmailSent:        outcome.Email.Sent,
				EmailChannel:     outcome.Email.Channel,
			},
		})
	}
}

func (h *Handler) forwardCRM(ctx context.Context, form leads.Form, sub leads.Submission, meta crm.Meta) (res CRMResult) {
	if h.forwarder == nil {
		res.ErrorKind = "not_configured"
		h.metrics.ObserveDownstream("crm", "hubspot", res.ErrorKind)
		return res
	}

	ctx, span := relayTracer.Start(ctx, "relay.crm_forward")
	defer span.End()
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("crm forwarder panicked", "form", form.Name, "panic", rec)
			res = CRMResult{Attempted: true, ErrorKind: "transport"}
			h.metrics.ObserveDownstream("crm", "hubspot", res.ErrorKind)
		}
	}()

	ack, err := h.forwarder.Forward(ctx, form.Name, sub, meta)
	if err != nil {
		res.ErrorKind = classifyCRMError(err)
		res.Attempted = !errors.Is(err, crm.ErrNotConfigured)
		if res.Attempted {
			span.RecordError(err)
			h.logger.Error("crm forward failed", "form", form.Name, "error_kind", res.ErrorKind, "error", err)
		} else {
			h.logger.Debug("crm not configured; skipping", "form", form.Name)
		}
		h.metrics.ObserveDownstream("crm", "hubspot", res.ErrorKind)
		return res
	}

	h.metrics.ObserveDownstream("crm", "hubspot", "success")
	return CRMResult{Attempted: true, Success: true, Ack: ack}
}

func (h *Handler) notify(ctx context.Context, form leads.Form, id string, submittedAt time.Time, sub leads.Submission) notify.Outcome {
	if h.notifier == nil {
		h.metrics.ObserveDownstream("email", "none", string(notify.ErrorKindNotConfigured))
		return notify.Outcome{State: notify.StateNotAttempted}
	}

	msg, err := notify.RenderLeadNotification(form, id, submittedAt, sub, h.inbox)
	if err != nil {
		h.logger.Error("render notification failed", "lead_id", id, "error", err)
		return notify.Outcome{State: notify.StateNotAttempted}
	}

	out := h.notifier.Dispatch(ctx, msg)
	if len(out.Attempts) == 0 {
		h.metrics.ObserveDownstream("email", "none", string(notify.ErrorKindNotConfigured))
	}
	for _, a := range out.Attempts {
		result := "success"
		if !a.Success {
			result = string(a.ErrorKind)
		}
		h.metrics.ObserveDownstream("email", string(a.Channel), result)
	}
	return out
}

func requestMeta(r *http.Request, sub leads.Submission) crm.Meta {
	meta := crm.Meta{PageURI: sub.PageURL}
	if meta.PageURI == "" {
		meta.PageURI = r.Header.Get("Referer")
	}
	if c, err := r.Cookie(hubspotCookie); err == nil {
		meta.HUTK = c.Value
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		meta.IP = host
	} else {
		meta.IP = r.RemoteAddr
	}
	return meta
}

func bodyErrorMessage(err error) string {
	switch {
	case errors.Is(err, leads.ErrEmptyBody):
		return "Request body is required"
	case errors.Is(err, leads.ErrBodyTooLarge):
		return fmt.Sprintf("Request body must be at most %d bytes", leads.MaxBodyBytes)
	default:
		return "Request body must be a JSON object"
	}
}
