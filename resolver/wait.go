package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/40acres/htlcswap/chain"
	"github.com/40acres/htlcswap/database/models"
	"github.com/40acres/htlcswap/escrow"
	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

// Protocol errors are answers from the escrow rules, not from the transport.
// Only the recoverable ones among them are worth another attempt.
var protocolErrors = []error{
	escrow.ErrMalformedOrder,
	escrow.ErrTooEarly,
	escrow.ErrTooLate,
	escrow.ErrInvalidSecret,
	escrow.ErrInvalidCaller,
	escrow.ErrAlreadyFinalized,
	escrow.ErrAlreadyAnchored,
	escrow.ErrNotAnchored,
	escrow.ErrUnsupportedAction,
	escrow.ErrDuplicateEscrow,
	escrow.ErrInsufficientBalance,
	escrow.ErrInsufficientApproval,
	escrow.ErrInvalidSignature,
	escrow.ErrOrderFilled,
	escrow.ErrEscrowNotFound,
	escrow.ErrInvalidCreationTime,
	ErrDeadlinePassed,
}

func retryable(err error) bool {
	if escrow.IsRecoverable(err) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	for _, target := range protocolErrors {
		if errors.Is(err, target) {
			return false
		}
	}

	return true
}

func (o *Orchestrator) retry(ctx context.Context, swap *models.Swap, op string, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.cfg.RetryInitialInterval
	b.MaxInterval = o.cfg.RetryMaxInterval
	b.MaxElapsedTime = o.cfg.RetryMaxElapsed

	return backoff.RetryNotify(func() error {
		err := fn()
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}

		return err
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		log.WithFields(log.Fields{
			"order": swap.OrderHash,
			"op":    op,
		}).WithError(err).Warnf("retrying in %s", next)
	})
}

// waitForPhase polls the chain clock until the escrow reaches at least want
// and returns the phase observed. Time is always read from the chain that
// enforces the locks.
func (o *Orchestrator) waitForPhase(ctx context.Context, adapter chain.Adapter, side escrow.Side, tl escrow.TimeLocks, want escrow.Phase) (escrow.Phase, error) {
	for {
		now, err := adapter.Now(ctx)
		if err != nil {
			return escrow.Finality, fmt.Errorf("failed to read %s clock: %w", adapter.Name(), err)
		}
		phase := tl.PhaseAt(now, side)
		if phase >= want {
			return phase, nil
		}

		if start, ok := tl.PhaseStart(side, want); ok {
			log.WithFields(log.Fields{
				"chain": adapter.Name(),
				"side":  side,
				"phase": phase,
			}).Debugf("waiting %ds for %s", start-now, want)
		}
		if err := o.sleep(ctx, o.cfg.PollInterval); err != nil {
			return phase, err
		}
	}
}

// beforePhase fails with ErrDeadlinePassed once the escrow reached limit.
func (o *Orchestrator) beforePhase(ctx context.Context, adapter chain.Adapter, side escrow.Side, tl escrow.TimeLocks, limit escrow.Phase) error {
	now, err := adapter.Now(ctx)
	if err != nil {
		return fmt.Errorf("failed to read %s clock: %w", adapter.Name(), err)
	}
	if phase := tl.PhaseAt(now, side); phase >= limit {
		return fmt.Errorf("%w: %s escrow is %s", ErrDeadlinePassed, side, phase)
	}

	return nil
}
