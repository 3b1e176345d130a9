// Package resolver drives a swap from a signed order to both escrows being
// settled, falling back to cancellation when the happy path cannot finish.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/40acres/htlcswap/chain"
	"github.com/40acres/htlcswap/database/models"
	"github.com/40acres/htlcswap/escrow"
	log "github.com/sirupsen/logrus"
)

var (
	ErrDeadlinePassed = errors.New("deadline passed")
	ErrChainMismatch  = errors.New("swap belongs to other chains")
)

// Store persists every transition of a swap.
type Store interface {
	SaveSwap(ctx context.Context, swap *models.Swap) error
}

// Legs are the chains a swap runs on. They are passed on every call so one
// orchestrator can serve any number of chain pairs.
type Legs struct {
	Src chain.Adapter
	Dst chain.Adapter
}

func (l Legs) validate() error {
	if l.Src == nil || l.Dst == nil {
		return errors.New("both chains are required")
	}
	if l.Src.Name() == l.Dst.Name() {
		return fmt.Errorf("source and destination are the same chain %s", l.Src.Name())
	}

	return nil
}

// Owns reports whether swap runs on these chains.
func (l Legs) Owns(swap *models.Swap) bool {
	return swap.SrcChain == l.Src.Name() && swap.DstChain == l.Dst.Name()
}

type Option func(*Orchestrator)

// WithSleep replaces the wait between polls.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) {
		o.sleep = sleep
	}
}

// WithSecrets sets where secrets held by the maker are obtained from.
func WithSecrets(source SecretSource) Option {
	return func(o *Orchestrator) {
		o.secrets = source
	}
}

type Orchestrator struct {
	cfg     *Config
	store   Store
	secrets SecretSource
	sleep   func(ctx context.Context, d time.Duration) error
}

func New(cfg *Config, store Store, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:     cfg,
		store:   store,
		secrets: NewSecrets(),
		sleep:   sleep,
	}
	for _, opt := range opts {
		opt(o)
	}

	return o, nil
}

// Execute validates the terms, persists the swap and runs it to completion.
// secret is nil when the maker keeps it.
func (o *Orchestrator) Execute(ctx context.Context, legs Legs, terms models.SwapTerms, secret *escrow.Secret) (*models.Swap, error) {
	swap, err := o.Prepare(ctx, legs, terms, secret)
	if err != nil {
		return nil, err
	}

	return swap, o.Run(ctx, legs, swap)
}

// Prepare runs every check that needs no chain and stores the pending swap.
// Nothing is sent on chain when it fails.
func (o *Orchestrator) Prepare(ctx context.Context, legs Legs, terms models.SwapTerms, secret *escrow.Secret) (*models.Swap, error) {
	if err := legs.validate(); err != nil {
		return nil, err
	}
	if err := preflight(&terms, secret); err != nil {
		return nil, err
	}

	swap := &models.Swap{
		OrderHash: terms.Order.Hash().Hex(),
		Status:    models.StatusPending,
		SrcChain:  legs.Src.Name(),
		DstChain:  legs.Dst.Name(),
		Terms:     terms,
		Secret:    secret,
	}
	if err := o.store.SaveSwap(ctx, swap); err != nil {
		return nil, fmt.Errorf("failed to save swap: %w", err)
	}

	return swap, nil
}

func preflight(terms *models.SwapTerms, secret *escrow.Secret) error {
	order := terms.Order
	if err := order.Validate(); err != nil {
		return err
	}
	if terms.HashLock.IsZero() {
		return fmt.Errorf("%w: missing hashlock", escrow.ErrMalformedOrder)
	}
	if err := escrow.NewTimeLocks(terms.TimeLocks).Validate(); err != nil {
		return err
	}
	if terms.FillAmount == nil {
		terms.FillAmount = new(big.Int).Set(order.MakingAmount)
	}
	if terms.FillAmount.Sign() <= 0 || terms.FillAmount.Cmp(order.MakingAmount) > 0 {
		return fmt.Errorf("%w: fill amount must be in (0, %s]", escrow.ErrMalformedOrder, order.MakingAmount)
	}
	for _, deposit := range []**big.Int{&terms.SrcSafetyDeposit, &terms.DstSafetyDeposit} {
		if *deposit == nil {
			*deposit = new(big.Int)
		}
		if (*deposit).Sign() < 0 {
			return fmt.Errorf("%w: negative safety deposit", escrow.ErrMalformedOrder)
		}
	}
	if err := order.VerifySignature(terms.Signature); err != nil {
		return err
	}
	if secret != nil && !terms.HashLock.Verify(*secret) {
		return escrow.ErrInvalidSecret
	}

	return nil
}

// Run advances swap until it is done. It is safe to call again on a swap
// loaded from the store after a restart.
func (o *Orchestrator) Run(ctx context.Context, legs Legs, swap *models.Swap) error {
	if err := legs.validate(); err != nil {
		return err
	}
	if !legs.Owns(swap) {
		return fmt.Errorf("%w: %s -> %s", ErrChainMismatch, swap.SrcChain, swap.DstChain)
	}

	logger := log.WithField("order", swap.OrderHash)
	for !swap.IsDone() {
		status := swap.Status
		logger.WithField("status", status).Debug("advancing swap")

		var err error
		switch status {
		case models.StatusPending:
			err = o.createSrc(ctx, legs.Src, swap)
		case models.StatusSrcCreated:
			err = o.createDst(ctx, legs, swap)
		case models.StatusDstCreated:
			err = o.revealSecret(ctx, legs.Dst, swap)
		case models.StatusSecretRevealed:
			err = o.withdrawSrc(ctx, legs.Src, swap)
		case models.StatusCancelling:
			err = o.cancel(ctx, legs, swap)
		default:
			return fmt.Errorf("unknown swap status %q", status)
		}

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			swap.LastError = err.Error()

			switch status {
			case models.StatusPending:
				// Nothing is locked, there is nothing to recover.
				outcome := models.OutcomeFailed
				swap.Status = models.StatusDone
				swap.Outcome = &outcome
				logger.WithError(err).Error("failed to create source escrow")
				if saveErr := o.store.SaveSwap(ctx, swap); saveErr != nil {
					return fmt.Errorf("failed to save swap: %w", saveErr)
				}

				return err
			case models.StatusCancelling:
				if saveErr := o.store.SaveSwap(ctx, swap); saveErr != nil {
					logger.WithError(saveErr).Error("failed to save swap")
				}

				return fmt.Errorf("failed to cancel escrows: %w", err)
			default:
				logger.WithError(err).Warnf("swap failed while %s, cancelling", status)
				swap.Status = models.StatusCancelling
			}
		}

		if err := o.store.SaveSwap(ctx, swap); err != nil {
			return fmt.Errorf("failed to save swap: %w", err)
		}
	}

	logger.WithField("outcome", swap.Outcome).Info("swap done")

	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func setOutcome(swap *models.Swap, outcome models.SwapOutcome) {
	swap.Status = models.StatusDone
	swap.Outcome = &outcome
}

// takingFor scales the taker amount to a partial fill.
func takingFor(order escrow.Order, fill *big.Int) *big.Int {
	if fill.Cmp(order.MakingAmount) == 0 {
		return new(big.Int).Set(order.TakingAmount)
	}
	taking := new(big.Int).Mul(order.TakingAmount, fill)

	return taking.Quo(taking, order.MakingAmount)
}
