package crm

import "github.com/wolfman30/leadrelay/internal/leads"

type field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type submitContext struct {
	PageURI   string `json:"pageUri,omitempty"`
	PageName  string `json:"pageName,omitempty"`
	HUTK      string `json:"hutk,omitempty"`
	IPAddress string `json:"ipAddress,omitempty"`
}

type submitPayload struct {
	Fields  []field        `json:"fields"`
	Context *submitContext `json:"context,omitempty"`
}

// buildPayload flattens a submission into HubSpot contact properties. Empty
// values are left out so they do not overwrite existing CRM data.
func buildPayload(sub leads.Submission, meta Meta) submitPayload {
	pairs := []field{
		{"firstname", sub.FirstName},
		{"lastname", sub.LastName},
		{"email", sub.Email},
		{"phone", sub.Phone},
		{"company", sub.Company},
		{"jobtitle", sub.JobTitle},
		{"numemployees", sub.Employees},
		{"message", sub.Message},
		{"demo_type", string(sub.DemoType)},
		{"preferred_date", sub.PreferredDate},
		{"preferred_time", sub.PreferredTime},
		{"timezone", sub.Timezone},
		{"utm_source", sub.UTMSource},
		{"utm_campaign", sub.UTMCampaign},
		{"utm_medium", sub.UTMMedium},
		{"utm_term", sub.UTMTerm},
		{"utm_content", sub.UTMContent},
	}

	fields := make([]field, 0, len(pairs))
	for _, p := range pairs {
		if p.Value != "" {
			fields = append(fields, p)
		}
	}

	pageURI := meta.PageURI
	if pageURI == "" {
		pageURI = sub.PageURL
	}
	ctx := &submitContext{
		PageURI:   pageURI,
		PageName:  meta.PageName,
		HUTK:      meta.HUTK,
		IPAddress: meta.IP,
	}
	if *ctx == (submitContext{}) {
		ctx = nil
	}
	return submitPayload{Fields: fields, Context: ctx}
}
