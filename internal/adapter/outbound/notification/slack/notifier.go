package slack

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"

	"github.com/jonny/kube-actions/internal/domain/port/outbound"
)

// Config holds Slack notifier configuration.
type Config struct {
	BotToken       string
	DefaultChannel string
	Channels       map[string]string // namespace -> channel ID
	// APIURL overrides the Slack API endpoint; tests point it at httptest.
	APIURL string
}

// Notifier implements outbound.Notifier via the Slack API.
type Notifier struct {
	client *slackapi.Client
	config Config
}

// NewNotifier creates a new Slack Notifier.
func NewNotifier(cfg Config) *Notifier {
	var opts []slackapi.Option
	if cfg.APIURL != "" {
		opts = append(opts, slackapi.OptionAPIURL(cfg.APIURL))
	}
	return &Notifier{
		client: slackapi.New(cfg.BotToken, opts...),
		config: cfg,
	}
}

var _ outbound.Notifier = (*Notifier)(nil)

// channelFor returns the channel to post to for a given namespace.
func (n *Notifier) channelFor(namespace string) string {
	if ch, ok := n.config.Channels[namespace]; ok {
		return ch
	}
	return n.config.DefaultChannel
}

// NotifyOutcome posts a Block Kit card describing a failed or partially
// applied mutation.
func (n *Notifier) NotifyOutcome(ctx context.Context, notification outbound.OutcomeNotification) error {
	blocks := BuildOutcomeBlocks(notification)
	channel := n.channelFor(notification.Namespace)

	_, _, err := n.client.PostMessageContext(ctx, channel,
		slackapi.MsgOptionBlocks(blocks...),
		slackapi.MsgOptionText(fmt.Sprintf("[%s] %s in %s", notification.Status, notification.Action, notification.Namespace), false),
	)
	if err != nil {
		return fmt.Errorf("slack NotifyOutcome: %w", err)
	}
	return nil
}
