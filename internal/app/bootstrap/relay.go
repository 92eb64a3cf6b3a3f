package bootstrap

import (
	"strings"

	appconfig "github.com/wolfman30/leadrelay/internal/config"
	"github.com/wolfman30/leadrelay/internal/crm"
	"github.com/wolfman30/leadrelay/internal/notify"
	"github.com/wolfman30/leadrelay/pkg/logging"
)

// BuildForwarder wires the HubSpot forms client. It is always returned; an
// unconfigured forwarder reports crm.ErrNotConfigured without calling out.
func BuildForwarder(cfg *appconfig.Config, logger *logging.Logger) *crm.HubSpotForwarder {
	if logger == nil {
		logger = logging.Default()
	}
	fwd := crm.NewHubSpotForwarder(crm.Config{
		PortalID: cfg.HubSpotPortalID,
		FormID:   cfg.HubSpotFormID,
		FormIDs:  cfg.HubSpotFormIDs(),
		BaseURL:  cfg.HubSpotBaseURL,
		Timeout:  cfg.HubSpotTimeout,
	}, logger)
	if strings.TrimSpace(cfg.HubSpotPortalID) == "" {
		logger.Warn("hubspot portal id not set; CRM forwarding disabled")
	}
	return fwd
}

// ChannelsConfig maps application config onto the notify channel settings.
func ChannelsConfig(cfg *appconfig.Config, sesClient notify.SESAPI) notify.ChannelsConfig {
	smtpFrom := cfg.SMTPFromEmail
	if strings.TrimSpace(smtpFrom) == "" {
		smtpFrom = cfg.SMTPUser
	}
	return notify.ChannelsConfig{
		Graph: notify.GraphConfig{
			TenantID:     cfg.AzureTenantID,
			ClientID:     cfg.AzureClientID,
			ClientSecret: cfg.AzureClientSecret,
			SenderEmail:  cfg.GraphSenderEmail,
			BaseURL:      cfg.GraphBaseURL,
		},
		SMTP: notify.SMTPConfig{
			Enabled:   cfg.SMTPEnabled,
			Host:      cfg.SMTPHost,
			Port:      cfg.SMTPPort,
			User:      cfg.SMTPUser,
			Password:  cfg.SMTPPassword,
			FromEmail: smtpFrom,
			FromName:  cfg.NotifyFromName,
		},
		SendGrid: notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  firstNonEmpty(cfg.SendGridFromName, cfg.NotifyFromName),
		},
		SES: notify.SESConfig{
			Enabled:   cfg.SESEnabled,
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.NotifyFromName,
		},
		SESClient: sesClient,
	}
}

// BuildNotifier resolves the mail channels once and wraps them in a dispatcher.
func BuildNotifier(cfg *appconfig.Config, sesClient notify.SESAPI, logger *logging.Logger) *notify.Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	channels := notify.ResolveChannels(ChannelsConfig(cfg, sesClient), logger)
	d := notify.NewDispatcher(channels, logger)
	if len(d.Channels()) == 0 {
		logger.Warn("no mail channel configured; lead notifications will not be sent")
	}
	return d
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
