package notify

import "github.com/wolfman30/leadrelay/pkg/logging"

const defaultFromName = "Lead Relay"

// Kind names a mail channel variant.
type Kind string

const (
	ChannelNone     Kind = ""
	ChannelGraph    Kind = "graph"
	ChannelSMTP     Kind = "smtp"
	ChannelSendGrid Kind = "sendgrid"
	ChannelSES      Kind = "ses"
)

// Channel is one configured delivery option.
type Channel struct {
	Kind   Kind
	Sender EmailSender
}

// ChannelsConfig carries the settings of every channel variant. SESClient is
// built by the caller from the AWS config and may be nil.
type ChannelsConfig struct {
	Graph     GraphConfig
	SMTP      SMTPConfig
	SendGrid  SendGridConfig
	SES       SESConfig
	SESClient SESAPI
}

// ResolveChannels returns the channels to try, in order: Graph, SMTP,
// SendGrid, SES. Channels with incomplete settings are left out; an empty
// result means notifications are never sent.
func ResolveChannels(cfg ChannelsConfig, logger *logging.Logger) []Channel {
	if logger == nil {
		logger = logging.Default()
	}
	var channels []Channel
	if cfg.Graph.Configured() {
		channels = append(channels, Channel{Kind: ChannelGraph, Sender: NewGraphSender(cfg.Graph, logger)})
	}
	if cfg.SMTP.Configured() {
		channels = append(channels, Channel{Kind: ChannelSMTP, Sender: NewSMTPSender(cfg.SMTP, logger)})
	}
	if cfg.SendGrid.Configured() {
		channels = append(channels, Channel{Kind: ChannelSendGrid, Sender: NewSendGridSender(cfg.SendGrid, logger)})
	}
	if cfg.SES.Configured() && cfg.SESClient != nil {
		channels = append(channels, Channel{Kind: ChannelSES, Sender: NewSESSender(cfg.SESClient, cfg.SES, logger)})
	}

	kinds := make([]string, 0, len(channels))
	for _, c := range channels {
		kinds = append(kinds, string(c.Kind))
	}
	logger.Info("notification channels resolved", "channels", kinds)
	return channels
}
