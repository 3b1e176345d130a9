// Package notify relays escrow lifecycle events to an operator Telegram chat.
package notify

import (
	"context"
	"fmt"

	"github.com/40acres/htlcswap/events"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Sender is the part of the bot API the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Notifier struct {
	sender Sender
	chatID int64
	bus    *events.Bus
}

func New(sender Sender, chatID int64, bus *events.Bus) *Notifier {
	return &Notifier{sender: sender, chatID: chatID, bus: bus}
}

// NewTelegram authenticates against the bot API with token.
func NewTelegram(token string, chatID int64, bus *events.Bus) (*Notifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	log.Infof("Telegram notifications as %s", api.Self.UserName)

	return New(api, chatID, bus), nil
}

// Run forwards events until ctx is done. Failed sends are logged and dropped.
func (n *Notifier) Run(ctx context.Context) error {
	for ev := range n.bus.Subscribe(ctx) {
		msg := tgbotapi.NewMessage(n.chatID, Format(ev))
		if _, err := n.sender.Send(msg); err != nil {
			log.WithError(err).WithField("event", ev.Kind).Warn("failed to send notification")
		}
	}

	return nil
}

// Format renders one event as a chat message.
func Format(ev events.Event) string {
	switch ev.Kind {
	case events.EscrowCreated:
		return fmt.Sprintf("🔒 %s escrow created on %s\norder %s\nescrow %s\ndeployed at %d",
			ev.Side, ev.Chain, ev.OrderHash.Hex(), ev.Address, ev.DeployedAt)
	case events.EscrowWithdrawn:
		secret := "unknown"
		if ev.Secret != nil {
			secret = ev.Secret.String()
		}

		return fmt.Sprintf("✅ %s escrow withdrawn on %s\norder %s\nescrow %s\nsecret %s",
			ev.Side, ev.Chain, ev.OrderHash.Hex(), ev.Address, secret)
	case events.EscrowCancelled:
		return fmt.Sprintf("↩️ %s escrow cancelled on %s\norder %s\nescrow %s",
			ev.Side, ev.Chain, ev.OrderHash.Hex(), ev.Address)
	}

	return ev.String()
}
