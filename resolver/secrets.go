package resolver

import (
	"context"
	"sync"

	"github.com/40acres/htlcswap/escrow"
	"github.com/40acres/htlcswap/events"
	"github.com/ethereum/go-ethereum/common"
)

// SecretSource hands out the secret of an order once it is disclosed. It
// returns nil without error while the secret is still unknown.
type SecretSource interface {
	Secret(ctx context.Context, orderHash common.Hash) (*escrow.Secret, error)
}

// Secrets is a SecretSource fed by the maker's relayer and by withdrawals
// observed on any chain.
type Secrets struct {
	mu      sync.Mutex
	secrets map[common.Hash]escrow.Secret
}

var _ SecretSource = (*Secrets)(nil)

func NewSecrets() *Secrets {
	return &Secrets{secrets: make(map[common.Hash]escrow.Secret)}
}

// Reveal records the secret for orderHash.
func (s *Secrets) Reveal(orderHash common.Hash, secret escrow.Secret) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.secrets[orderHash] = secret
}

func (s *Secrets) Secret(_ context.Context, orderHash common.Hash) (*escrow.Secret, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	secret, ok := s.secrets[orderHash]
	if !ok {
		return nil, nil
	}

	return &secret, nil
}

// Watch records the secret of every withdrawal published on bus until ctx is
// done.
func (s *Secrets) Watch(ctx context.Context, bus *events.Bus) {
	sub := bus.Subscribe(ctx)
	go func() {
		for ev := range sub {
			if ev.Kind == events.EscrowWithdrawn && ev.Secret != nil {
				s.Reveal(ev.OrderHash, *ev.Secret)
			}
		}
	}()
}
