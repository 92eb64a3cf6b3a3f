package notify

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/leadrelay/pkg/logging"
)

var dispatchTracer = otel.Tracer("leadrelay/notify")

// State is where a dispatch ended up.
type State string

const (
	StateNotAttempted      State = "not_attempted"
	StatePrimaryAttempted  State = "primary_attempted"
	StateFallbackAttempted State = "fallback_attempted"
	StateSucceeded         State = "succeeded"
	StateFailed            State = "failed"
)

// Attempt records one delivery try on one channel.
type Attempt struct {
	Channel   Kind          `json:"channel"`
	Success   bool          `json:"success"`
	ErrorKind ErrorKind     `json:"errorKind,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"-"`
}

// Outcome summarizes a dispatch.
type Outcome struct {
	Sent     bool
	Channel  Kind
	State    State
	Attempts []Attempt
}

// Dispatcher delivers a message through the first channel that accepts it.
type Dispatcher struct {
	channels []Channel
	logger   *logging.Logger
}

// NewDispatcher creates a dispatcher over an ordered channel list.
func NewDispatcher(channels []Channel, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	filtered := make([]Channel, 0, len(channels))
	for _, c := range channels {
		if c.Sender != nil {
			filtered = append(filtered, c)
		}
	}
	return &Dispatcher{channels: filtered, logger: logger}
}

// Channels lists the configured channel kinds in attempt order.
func (d *Dispatcher) Channels() []Kind {
	if d == nil {
		return nil
	}
	out := make([]Kind, 0, len(d.channels))
	for _, c := range d.channels {
		out = append(out, c.Kind)
	}
	return out
}

// Dispatch tries each channel once, in order, stopping at the first success.
// It never returns an error; failures are reported in the Outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, msg EmailMessage) Outcome {
	out := Outcome{State: StateNotAttempted}
	if d == nil || len(d.channels) == 0 {
		if d != nil {
			d.logger.Warn("no notification channel configured", "to", msg.To)
		}
		return out
	}

	for i, ch := range d.channels {
		if i == 0 {
			out.State = StatePrimaryAttempted
		} else {
			out.State = StateFallbackAttempted
			d.logger.Warn("notification channel failed; attempting fallback",
				"failed", d.channels[i-1].Kind,
				"fallback", ch.Kind,
			)
		}

		attempt := d.attempt(ctx, ch, msg)
		out.Attempts = append(out.Attempts, attempt)
		if attempt.Success {
			out.Sent = true
			out.Channel = ch.Kind
			out.State = StateSucceeded
			return out
		}
	}

	out.State = StateFailed
	d.logger.Error("all notification channels failed", "attempts", len(out.Attempts), "to", msg.To)
	return out
}

func (d *Dispatcher) attempt(ctx context.Context, ch Channel, msg EmailMessage) (a Attempt) {
	ctx, span := dispatchTracer.Start(ctx, "notify.send")
	span.SetAttributes(attribute.String("notify.channel", string(ch.Kind)))
	defer span.End()

	start := time.Now()
	a.Channel = ch.Kind
	defer func() {
		if r := recover(); r != nil {
			a.Success = false
			a.ErrorKind = ErrorKindTransport
			a.Error = fmt.Sprintf("panic: %v", r)
			d.logger.Error("notification sender panicked", "channel", ch.Kind, "panic", r)
		}
		a.Duration = time.Since(start)
		if !a.Success {
			span.SetStatus(codes.Error, a.Error)
		}
	}()

	err := ch.Sender.Send(ctx, msg)
	if err != nil {
		a.ErrorKind = Classify(err)
		a.Error = err.Error()
		span.RecordError(err)
		d.logger.Error("notification attempt failed", "channel", ch.Kind, "error_kind", a.ErrorKind, "error", err)
		return a
	}
	a.Success = true
	return a
}
