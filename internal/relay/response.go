package relay

import (
	"encoding/json"
	"net/http"

	"github.com/wolfman30/leadrelay/internal/leads"
	"github.com/wolfman30/leadrelay/internal/notify"
)

// Receipt is the data returned for an accepted submission.
type Receipt struct {
	ID               string               `json:"id"`
	SubmissionTime   string               `json:"submissionTime"`
	Form             string               `json:"form"`
	DemoType         leads.EngagementType `json:"demoType,omitempty"`
	HubSpotSubmitted bool                 `json:"hubspotSubmitted"`
	EmailSent        bool                 `json:"emailSent"`
	EmailChannel     notify.Kind          `json:"emailChannel,omitempty"`
}

// SuccessResponse wraps a receipt.
type SuccessResponse struct {
	OK   bool    `json:"ok"`
	Data Receipt `json:"data"`
}

// ErrorResponse is returned for rejected or failed requests.
type ErrorResponse struct {
	OK      bool              `json:"ok"`
	Error   string            `json:"error"`
	Errors  leads.FieldErrors `json:"errors,omitempty"`
	Message string            `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, resp ErrorResponse) {
	resp.OK = false
	writeJSON(w, status, resp)
}
