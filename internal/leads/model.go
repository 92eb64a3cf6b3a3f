package leads

import (
	"strings"
	"unicode/utf8"
)

// EngagementType is the kind of session a lead asks for.
type EngagementType string

const (
	EngagementQuick         EngagementType = "quick"
	EngagementStandard      EngagementType = "standard"
	EngagementComprehensive EngagementType = "comprehensive"
)

// Valid reports whether t is one of the known engagement types.
func (t EngagementType) Valid() bool {
	switch t {
	case EngagementQuick, EngagementStandard, EngagementComprehensive:
		return true
	}
	return false
}

// Label is the human-readable form used in notifications.
func (t EngagementType) Label() string {
	switch t {
	case EngagementQuick:
		return "Quick (15 min)"
	case EngagementStandard:
		return "Standard (30 min)"
	case EngagementComprehensive:
		return "Comprehensive (60 min)"
	}
	return string(t)
}

// Employee-count buckets offered by the forms.
const (
	Employees1To50     = "1-50"
	Employees51To200   = "51-200"
	Employees201To500  = "201-500"
	Employees501To1000 = "501-1000"
	Employees1000Plus  = "1000+"
)

// Length caps applied to optional fields during normalization.
const (
	MaxMessageRunes = 5000
	MaxOpaqueRunes  = 2048
)

// Submission is a lead submitted through one of the marketing forms. It is
// request-scoped and never stored by this service.
type Submission struct {
	// Identity
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Phone     string `json:"phone,omitempty"`

	// Context
	Company   string `json:"company" validate:"required,max=200"`
	JobTitle  string `json:"jobTitle,omitempty"`
	Employees string `json:"employees,omitempty" validate:"omitempty,oneof=1-50 51-200 201-500 501-1000 1000+"`
	Message   string `json:"message,omitempty"`

	// Intent
	DemoType      EngagementType `json:"demoType,omitempty"`
	PreferredDate string         `json:"preferredDate,omitempty"`
	PreferredTime string         `json:"preferredTime,omitempty"`
	Timezone      string         `json:"timezone,omitempty"`

	// Attribution, forwarded verbatim
	UTMSource   string `json:"utmSource,omitempty"`
	UTMCampaign string `json:"utmCampaign,omitempty"`
	UTMMedium   string `json:"utmMedium,omitempty"`
	UTMTerm     string `json:"utmTerm,omitempty"`
	UTMContent  string `json:"utmContent,omitempty"`
	PageURL     string `json:"pageUrl,omitempty"`
	Referrer    string `json:"referrer,omitempty"`
	UserAgent   string `json:"userAgent,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// FullName joins first and last name.
func (s Submission) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// normalize trims every field, lower-cases the email and caps optional text.
func (s Submission) normalize() Submission {
	for _, f := range s.textFields() {
		*f = strings.TrimSpace(*f)
	}
	demoType := strings.ToLower(strings.TrimSpace(string(s.DemoType)))
	s.DemoType = EngagementType(demoType)
	s.Email = strings.ToLower(s.Email)

	s.Message = truncateRunes(s.Message, MaxMessageRunes)
	for _, f := range s.opaqueFields() {
		*f = truncateRunes(*f, MaxOpaqueRunes)
	}
	return s
}

func (s *Submission) textFields() []*string {
	return append([]*string{
		&s.FirstName, &s.LastName, &s.Email, &s.Company, &s.Message,
	}, s.opaqueFields()...)
}

func (s *Submission) opaqueFields() []*string {
	return []*string{
		&s.Phone, &s.JobTitle, &s.Employees,
		&s.PreferredDate, &s.PreferredTime, &s.Timezone,
		&s.UTMSource, &s.UTMCampaign, &s.UTMMedium, &s.UTMTerm, &s.UTMContent,
		&s.PageURL, &s.Referrer, &s.UserAgent, &s.Timestamp,
	}
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
