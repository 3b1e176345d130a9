package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/40acres/htlcswap/chain"
	"github.com/40acres/htlcswap/database/models"
	"github.com/40acres/htlcswap/escrow"
	log "github.com/sirupsen/logrus"
)

func (o *Orchestrator) createSrc(ctx context.Context, src chain.Adapter, swap *models.Swap) error {
	terms := swap.Terms
	order := terms.Order
	req := chain.SrcRequest{
		Order:      order,
		Signature:  terms.Signature,
		FillAmount: terms.FillAmount,
		Immutables: escrow.Immutables{
			OrderHash:     order.Hash(),
			HashLock:      terms.HashLock,
			Maker:         order.Maker,
			Taker:         src.Resolver(),
			Token:         order.MakerAsset,
			Amount:        terms.FillAmount,
			SafetyDeposit: terms.SrcSafetyDeposit,
			TimeLocks:     escrow.NewTimeLocks(terms.TimeLocks),
		},
	}

	var created *chain.Created
	err := o.retry(ctx, swap, "create source escrow", func() error {
		var err error
		created, err = src.CreateSrcEscrow(ctx, req)

		return err
	})
	if errors.Is(err, escrow.ErrDuplicateEscrow) || errors.Is(err, escrow.ErrOrderFilled) {
		created, err = adoptSrc(ctx, src, req.Immutables, err)
	}
	if err != nil {
		return fmt.Errorf("failed to create source escrow: %w", err)
	}

	swap.SrcImmutables = &created.Immutables
	swap.SrcEscrow = created.Address.String()
	swap.SrcCreateTx = created.TxHash
	swap.DeployedAt = int64(created.DeployedAt)
	swap.Status = models.StatusSrcCreated

	log.WithFields(log.Fields{
		"order":      swap.OrderHash,
		"escrow":     swap.SrcEscrow,
		"deployedAt": created.DeployedAt,
	}).Info("source escrow created")

	return nil
}

func (o *Orchestrator) createDst(ctx context.Context, legs Legs, swap *models.Swap) error {
	if swap.SrcImmutables == nil {
		return errors.New("source immutables missing")
	}
	src := *swap.SrcImmutables
	order := swap.Terms.Order

	// Same order, hashlock and deployment anchor as the source escrow.
	dst := src.Complement(escrow.Leg{
		Maker:         order.DstReceiver(),
		Taker:         legs.Dst.Resolver(),
		Token:         order.TakerAsset,
		Amount:        takingFor(order, src.Amount),
		SafetyDeposit: swap.Terms.DstSafetyDeposit,
	})
	req := chain.DstRequest{
		Immutables:      dst,
		SrcCancellation: src.TimeLocks.Deadline(escrow.SrcCancellation),
	}

	var created *chain.Created
	err := o.retry(ctx, swap, "create destination escrow", func() error {
		// Locking funds the maker can no longer be paid from is pointless.
		if err := o.beforePhase(ctx, legs.Src, escrow.SideSrc, src.TimeLocks, escrow.Cancellable); err != nil {
			return err
		}
		var err error
		created, err = legs.Dst.CreateDstEscrow(ctx, req)

		return err
	})
	if errors.Is(err, escrow.ErrDuplicateEscrow) {
		created, err = adoptDst(ctx, legs.Dst, dst, err)
	}
	if err != nil {
		return fmt.Errorf("failed to create destination escrow: %w", err)
	}

	swap.DstImmutables = &created.Immutables
	swap.DstEscrow = created.Address.String()
	swap.DstCreateTx = created.TxHash
	swap.Status = models.StatusDstCreated

	log.WithFields(log.Fields{
		"order":  swap.OrderHash,
		"escrow": swap.DstEscrow,
	}).Info("destination escrow created")

	return nil
}

// adoptSrc picks up the source escrow of an earlier run that crashed before
// recording it. An escrow filled by another resolver or under another hashlock
// is not ours and the swap fails with cause.
func adoptSrc(ctx context.Context, src chain.Adapter, want escrow.Immutables, cause error) (*chain.Created, error) {
	found, err := src.FindEscrow(ctx, escrow.SideSrc, want.OrderHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cause, err)
	}
	if found.Immutables.Taker != want.Taker || found.Immutables.HashLock != want.HashLock {
		return nil, fmt.Errorf("%w: escrow %s belongs to taker %s", cause, found.Address, found.Immutables.Taker)
	}

	log.WithFields(log.Fields{
		"order":  want.OrderHash.Hex(),
		"escrow": found.Address.String(),
		"tx":     found.TxHash,
	}).Warn("adopting existing source escrow")

	return found, nil
}

// adoptDst picks up a destination escrow that already holds exactly the
// immutables this swap would have created.
func adoptDst(ctx context.Context, dst chain.Adapter, want escrow.Immutables, cause error) (*chain.Created, error) {
	addr, ok, err := chain.Predict(dst.Addressing(), escrow.SideDst, want)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cause, err)
	}
	txHash := ""
	if !ok {
		found, err := dst.FindEscrow(ctx, escrow.SideDst, want.OrderHash)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", cause, err)
		}
		addr, txHash = found.Address, found.TxHash
	}
	// The status read fails unless the escrow was created with want.
	if _, err := dst.EscrowStatus(ctx, escrow.SideDst, addr, want); err != nil {
		return nil, fmt.Errorf("%w: %w", cause, err)
	}

	log.WithFields(log.Fields{
		"order":  want.OrderHash.Hex(),
		"escrow": addr.String(),
	}).Warn("adopting existing destination escrow")

	return &chain.Created{
		Immutables: want,
		Address:    addr,
		DeployedAt: want.TimeLocks.DeployedAt(),
		TxHash:     txHash,
	}, nil
}

// revealSecret withdraws the destination escrow to the maker, which publishes
// the secret on the destination chain.
func (o *Orchestrator) revealSecret(ctx context.Context, dst chain.Adapter, swap *models.Swap) error {
	imm, addr, err := dstEscrow(swap)
	if err != nil {
		return err
	}

	if _, err := o.waitForPhase(ctx, dst, escrow.SideDst, imm.TimeLocks, escrow.PrivateWindow); err != nil {
		return err
	}

	for swap.Secret == nil {
		status, err := o.status(ctx, dst, escrow.SideDst, addr, imm, swap)
		if err != nil {
			return err
		}
		switch status.State {
		case escrow.StateWithdrawn:
			// Somebody else revealed it in the public window.
			swap.Secret = status.Secret
			swap.Status = models.StatusSecretRevealed

			return nil
		case escrow.StateCancelled:
			return fmt.Errorf("destination escrow %s: %w", addr, escrow.ErrAlreadyFinalized)
		}

		secret, err := o.secrets.Secret(ctx, imm.OrderHash)
		if err != nil {
			return fmt.Errorf("failed to get secret: %w", err)
		}
		if secret != nil {
			swap.Secret = secret

			break
		}

		if err := o.beforePhase(ctx, dst, escrow.SideDst, imm.TimeLocks, escrow.Cancellable); err != nil {
			return fmt.Errorf("secret never disclosed: %w", err)
		}
		if err := o.sleep(ctx, o.cfg.PollInterval); err != nil {
			return err
		}
	}

	secret := *swap.Secret
	if !imm.HashLock.Verify(secret) {
		return escrow.ErrInvalidSecret
	}

	receipt, state, err := o.settle(ctx, dst, escrow.SideDst, addr, imm, swap, escrow.StateWithdrawn, func() (*chain.Receipt, error) {
		if err := o.beforePhase(ctx, dst, escrow.SideDst, imm.TimeLocks, escrow.Cancellable); err != nil {
			return nil, err
		}

		return dst.Withdraw(ctx, escrow.SideDst, addr, imm, secret)
	})
	if err != nil {
		return fmt.Errorf("failed to withdraw destination escrow: %w", err)
	}
	if state != escrow.StateWithdrawn {
		return fmt.Errorf("destination escrow %s is %s: %w", addr, state, escrow.ErrAlreadyFinalized)
	}
	if receipt != nil {
		swap.DstSettleTx = receipt.TxHash
	}
	swap.Status = models.StatusSecretRevealed

	log.WithFields(log.Fields{
		"order":  swap.OrderHash,
		"escrow": addr,
	}).Info("destination escrow withdrawn, secret revealed")

	return nil
}

func (o *Orchestrator) withdrawSrc(ctx context.Context, src chain.Adapter, swap *models.Swap) error {
	imm, addr, err := srcEscrow(swap)
	if err != nil {
		return err
	}
	if swap.Secret == nil {
		return errors.New("secret missing")
	}
	secret := *swap.Secret

	if _, err := o.waitForPhase(ctx, src, escrow.SideSrc, imm.TimeLocks, escrow.PrivateWindow); err != nil {
		return err
	}

	receipt, state, err := o.settle(ctx, src, escrow.SideSrc, addr, imm, swap, escrow.StateWithdrawn, func() (*chain.Receipt, error) {
		if err := o.beforePhase(ctx, src, escrow.SideSrc, imm.TimeLocks, escrow.Cancellable); err != nil {
			return nil, err
		}

		return src.Withdraw(ctx, escrow.SideSrc, addr, imm, secret)
	})
	if err != nil {
		return fmt.Errorf("failed to withdraw source escrow: %w", err)
	}
	if state != escrow.StateWithdrawn {
		return fmt.Errorf("source escrow %s is %s: %w", addr, state, escrow.ErrAlreadyFinalized)
	}
	if receipt != nil {
		swap.SrcSettleTx = receipt.TxHash
	}
	setOutcome(swap, models.OutcomeSuccess)

	log.WithFields(log.Fields{
		"order":  swap.OrderHash,
		"escrow": addr,
	}).Info("source escrow withdrawn")

	return nil
}

// cancel returns every escrow the swap created to its funder. When the
// maker got paid on the destination chain, the source escrow is withdrawn
// instead while its window is still open.
func (o *Orchestrator) cancel(ctx context.Context, legs Legs, swap *models.Swap) error {
	logger := log.WithField("order", swap.OrderHash)
	outcome := models.OutcomeCancelled

	dstPaid := false
	if swap.DstEscrow != "" {
		imm, addr, err := dstEscrow(swap)
		if err != nil {
			return err
		}
		receipt, state, err := o.cancelEscrow(ctx, legs.Dst, escrow.SideDst, addr, imm, swap)
		if err != nil {
			return fmt.Errorf("failed to cancel destination escrow: %w", err)
		}
		if receipt != nil {
			swap.DstSettleTx = receipt.TxHash
			logger.WithField("escrow", addr).Info("destination escrow cancelled")
		}
		dstPaid = state == escrow.StateWithdrawn
	}

	if swap.SrcEscrow != "" {
		imm, addr, err := srcEscrow(swap)
		if err != nil {
			return err
		}

		withdrawn := false
		if dstPaid && swap.Secret != nil && imm.HashLock.Verify(*swap.Secret) {
			withdrawn, err = o.tryWithdraw(ctx, legs.Src, addr, imm, swap)
			if err != nil {
				return err
			}
		}
		if withdrawn {
			outcome = models.OutcomeSuccess
		} else {
			receipt, state, err := o.cancelEscrow(ctx, legs.Src, escrow.SideSrc, addr, imm, swap)
			if err != nil {
				return fmt.Errorf("failed to cancel source escrow: %w", err)
			}
			if receipt != nil {
				swap.SrcSettleTx = receipt.TxHash
				logger.WithField("escrow", addr).Info("source escrow cancelled")
			}
			if state == escrow.StateWithdrawn {
				outcome = models.OutcomeSuccess
			}
		}
	}

	setOutcome(swap, outcome)

	return nil
}

// tryWithdraw withdraws the source escrow while its window is still open.
func (o *Orchestrator) tryWithdraw(ctx context.Context, src chain.Adapter, addr escrow.Address, imm escrow.Immutables, swap *models.Swap) (bool, error) {
	phase, err := o.waitForPhase(ctx, src, escrow.SideSrc, imm.TimeLocks, escrow.PrivateWindow)
	if err != nil {
		return false, err
	}
	if phase >= escrow.Cancellable {
		return false, nil
	}

	secret := *swap.Secret
	receipt, state, err := o.settle(ctx, src, escrow.SideSrc, addr, imm, swap, escrow.StateWithdrawn, func() (*chain.Receipt, error) {
		return src.Withdraw(ctx, escrow.SideSrc, addr, imm, secret)
	})
	switch {
	case errors.Is(err, escrow.ErrTooLate):
		return false, nil
	case err != nil:
		return false, err
	}
	if receipt != nil {
		swap.SrcSettleTx = receipt.TxHash
	}

	return state == escrow.StateWithdrawn, nil
}

// cancelEscrow cancels an escrow once it is cancellable and reports the final
// state it ended up in. Escrows that never got created are skipped.
func (o *Orchestrator) cancelEscrow(ctx context.Context, adapter chain.Adapter, side escrow.Side, addr escrow.Address, imm escrow.Immutables, swap *models.Swap) (*chain.Receipt, escrow.State, error) {
	status, err := o.status(ctx, adapter, side, addr, imm, swap)
	if errors.Is(err, escrow.ErrEscrowNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	if status.State.IsFinal() {
		recordSecret(swap, status)

		return nil, status.State, nil
	}

	if _, err := o.waitForPhase(ctx, adapter, side, imm.TimeLocks, escrow.Cancellable); err != nil {
		return nil, "", err
	}

	return o.settle(ctx, adapter, side, addr, imm, swap, escrow.StateCancelled, func() (*chain.Receipt, error) {
		return adapter.Cancel(ctx, side, addr, imm)
	})
}

// settle runs a withdraw or cancel with retries and returns the state the
// escrow is left in: target on success, or whatever somebody else settled it
// to meanwhile. Secrets published that way are recorded on the swap.
func (o *Orchestrator) settle(ctx context.Context, adapter chain.Adapter, side escrow.Side, addr escrow.Address, imm escrow.Immutables, swap *models.Swap, target escrow.State, fn func() (*chain.Receipt, error)) (*chain.Receipt, escrow.State, error) {
	var receipt *chain.Receipt
	err := o.retry(ctx, swap, fmt.Sprintf("settle %s escrow", side), func() error {
		var err error
		receipt, err = fn()

		return err
	})
	if err == nil {
		return receipt, target, nil
	}
	if !errors.Is(err, escrow.ErrAlreadyFinalized) {
		return nil, "", err
	}

	status, statusErr := o.status(ctx, adapter, side, addr, imm, swap)
	if statusErr != nil {
		return nil, "", statusErr
	}
	recordSecret(swap, status)

	return nil, status.State, nil
}

func recordSecret(swap *models.Swap, status *chain.Status) {
	if status.Secret != nil && swap.Secret == nil {
		swap.Secret = status.Secret
	}
}

func (o *Orchestrator) status(ctx context.Context, adapter chain.Adapter, side escrow.Side, addr escrow.Address, imm escrow.Immutables, swap *models.Swap) (*chain.Status, error) {
	var status *chain.Status
	err := o.retry(ctx, swap, fmt.Sprintf("read %s escrow", side), func() error {
		var err error
		status, err = adapter.EscrowStatus(ctx, side, addr, imm)

		return err
	})

	return status, err
}

func srcEscrow(swap *models.Swap) (escrow.Immutables, escrow.Address, error) {
	return stored(swap.SrcImmutables, swap.SrcEscrow)
}

func dstEscrow(swap *models.Swap) (escrow.Immutables, escrow.Address, error) {
	return stored(swap.DstImmutables, swap.DstEscrow)
}

func stored(imm *escrow.Immutables, address string) (escrow.Immutables, escrow.Address, error) {
	if imm == nil {
		return escrow.Immutables{}, escrow.Address{}, errors.New("escrow immutables missing")
	}
	addr, err := escrow.ParseAddress(address)
	if err != nil {
		return escrow.Immutables{}, escrow.Address{}, fmt.Errorf("failed to parse escrow address: %w", err)
	}

	return *imm, addr, nil
}
