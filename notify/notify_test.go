package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/40acres/htlcswap/escrow"
	"github.com/40acres/htlcswap/events"
	"github.com/ethereum/go-ethereum/common"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))

	return tgbotapi.Message{}, f.err
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.sent)
}

func TestNotifierRun(t *testing.T) {
	for _, sendErr := range []error{nil, errors.New("telegram down")} {
		ctx, cancel := context.WithCancel(context.Background())
		bus := events.NewBus(events.DefaultBufferSize)
		sender := &fakeSender{err: sendErr}
		notifier := New(sender, 42, bus)

		done := make(chan error)
		go func() {
			done <- notifier.Run(ctx)
		}()

		orderHash := common.HexToHash("0x01")
		addr := escrow.MustParseAddress("0x02")
		require.Eventually(t, func() bool {
			bus.Publish(events.Cancelled("ethereum", escrow.SideSrc, orderHash, addr, "0xtx"))

			return sender.count() > 0
		}, time.Second, 5*time.Millisecond)

		cancel()
		require.NoError(t, <-done)

		sender.mu.Lock()
		require.Equal(t, int64(42), sender.sent[0].ChatID)
		require.Contains(t, sender.sent[0].Text, "src escrow cancelled on ethereum")
		sender.mu.Unlock()
	}
}

func TestFormat(t *testing.T) {
	secret := escrow.Secret{0xaa}
	ev := events.Withdrawn("objectchain", escrow.SideDst, common.HexToHash("0x01"), escrow.MustParseAddress("0x02"), secret, "0xtx")

	text := Format(ev)
	require.Contains(t, text, "dst escrow withdrawn on objectchain")
	require.Contains(t, text, secret.String())
}
