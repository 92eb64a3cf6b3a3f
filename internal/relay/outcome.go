package relay

import (
	"errors"

	"github.com/wolfman30/leadrelay/internal/crm"
	"github.com/wolfman30/leadrelay/internal/notify"
)

// CRMResult records the single CRM attempt made for a submission.
type CRMResult struct {
	Attempted bool
	Success   bool
	ErrorKind string
	Ack       crm.Ack
}

// DeliveryOutcome is what happened downstream for one submission. It only
// shapes the response and metrics; nothing is retried or queued.
type DeliveryOutcome struct {
	CRM   CRMResult
	Email notify.Outcome
}

func classifyCRMError(err error) string {
	if errors.Is(err, crm.ErrNotConfigured) {
		return "not_configured"
	}
	var statusErr *crm.StatusError
	if errors.As(err, &statusErr) {
		return "rejected"
	}
	return "transport"
}
