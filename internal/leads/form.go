package leads

// Form describes one public form that feeds the relay.
type Form struct {
	Name              string
	RequireEngagement bool
	RequireMessage    bool
	Subject           string
}

var (
	// MeetingForm backs POST /api/meeting.
	MeetingForm = Form{Name: "meeting", RequireEngagement: true, Subject: "New meeting request"}
	// DemoForm backs POST /api/demo.
	DemoForm = Form{Name: "demo", RequireEngagement: true, Subject: "New demo request"}
	// ContactForm backs POST /api/contact.
	ContactForm = Form{Name: "contact", RequireMessage: true, Subject: "New contact message"}
)

// Forms lists every form the relay serves.
func Forms() []Form {
	return []Form{MeetingForm, DemoForm, ContactForm}
}
