package bootstrap

import (
	"reflect"
	"testing"

	appconfig "github.com/wolfman30/leadrelay/internal/config"
	"github.com/wolfman30/leadrelay/internal/notify"
)

func TestBuildNotifierNoChannels(t *testing.T) {
	d := BuildNotifier(&appconfig.Config{}, nil, nil)
	if got := d.Channels(); len(got) != 0 {
		t.Fatalf("expected no channels, got %v", got)
	}
}

func TestBuildNotifierOrder(t *testing.T) {
	cfg := &appconfig.Config{
		AzureTenantID:     "tenant",
		AzureClientID:     "client",
		AzureClientSecret: "secret",
		GraphSenderEmail:  "relay@example.com",
		SMTPEnabled:       true,
		SMTPHost:          "smtp.example.com",
		SMTPPort:          587,
		SMTPUser:          "relay@example.com",
		SMTPPassword:      "pw",
	}

	got := BuildNotifier(cfg, nil, nil).Channels()
	want := []notify.Kind{notify.ChannelGraph, notify.ChannelSMTP}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestChannelsConfigSMTPFromDefaultsToUser(t *testing.T) {
	cc := ChannelsConfig(&appconfig.Config{SMTPUser: "user@example.com"}, nil)
	if cc.SMTP.FromEmail != "user@example.com" {
		t.Fatalf("expected smtp from to default to user, got %q", cc.SMTP.FromEmail)
	}
}

func TestBuildForwarderUnconfigured(t *testing.T) {
	fwd := BuildForwarder(&appconfig.Config{}, nil)
	if fwd.Configured("meeting") {
		t.Fatalf("expected forwarder to be unconfigured")
	}
}

func TestBuildForwarderPerFormOverride(t *testing.T) {
	fwd := BuildForwarder(&appconfig.Config{
		HubSpotPortalID:      "123",
		HubSpotContactFormID: "contact-guid",
	}, nil)
	if !fwd.Configured("contact") {
		t.Fatalf("expected contact form to be configured")
	}
	if fwd.Configured("demo") {
		t.Fatalf("expected demo form without a form id to be unconfigured")
	}
}
