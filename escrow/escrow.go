package escrow

import (
	"fmt"
	"math/big"
)

type State string

const (
	StateCreated   State = "created"
	StateWithdrawn State = "withdrawn"
	StateCancelled State = "cancelled"
)

func (s State) IsFinal() bool {
	return s == StateWithdrawn || s == StateCancelled
}

// Action is one of the four terminal transitions.
type Action string

const (
	ActionWithdraw       Action = "withdraw"
	ActionPublicWithdraw Action = "public_withdraw"
	ActionCancel         Action = "cancel"
	ActionPublicCancel   Action = "public_cancel"
)

// Transfer moves Amount of Token to To. The zero token is the native asset.
type Transfer struct {
	To     Address
	Token  Address
	Amount *big.Int
}

// Settlement is what a successful transition pays out. The host ledger
// applies it and then releases the escrow.
type Settlement struct {
	Action  Action
	Asset   Transfer
	Deposit Transfer
	Secret  *Secret
}

// Escrow is the custody object created from a set of immutables on one chain
// for one side. Only Withdraw, PublicWithdraw, Cancel and PublicCancel change
// it, each exactly once.
type Escrow struct {
	Side       Side
	Address    Address
	Immutables Immutables
	State      State
	Secret     *Secret
}

func New(side Side, address Address, immutables Immutables) (*Escrow, error) {
	if !side.IsValid() {
		return nil, fmt.Errorf("invalid side %q", side)
	}
	if !immutables.TimeLocks.IsAnchored() {
		return nil, ErrNotAnchored
	}
	if err := immutables.Validate(); err != nil {
		return nil, err
	}

	return &Escrow{
		Side:       side,
		Address:    address,
		Immutables: immutables,
		State:      StateCreated,
	}, nil
}

func (e *Escrow) Phase(now uint64) Phase {
	return e.Immutables.TimeLocks.PhaseAt(now, e.Side)
}

// Withdraw is the taker's private withdrawal.
func (e *Escrow) Withdraw(caller Address, secret Secret, now uint64) (Settlement, error) {
	if err := e.guard(ActionWithdraw, caller, now); err != nil {
		return Settlement{}, err
	}

	return e.withdraw(ActionWithdraw, caller, secret)
}

// PublicWithdraw lets anyone finish a stalled swap once the public window
// opens, earning the safety deposit.
func (e *Escrow) PublicWithdraw(caller Address, secret Secret, now uint64) (Settlement, error) {
	if err := e.guard(ActionPublicWithdraw, caller, now); err != nil {
		return Settlement{}, err
	}

	return e.withdraw(ActionPublicWithdraw, caller, secret)
}

func (e *Escrow) Cancel(caller Address, now uint64) (Settlement, error) {
	if err := e.guard(ActionCancel, caller, now); err != nil {
		return Settlement{}, err
	}

	return e.cancel(ActionCancel, caller), nil
}

func (e *Escrow) PublicCancel(caller Address, now uint64) (Settlement, error) {
	if err := e.guard(ActionPublicCancel, caller, now); err != nil {
		return Settlement{}, err
	}

	return e.cancel(ActionPublicCancel, caller), nil
}

// Check runs the guards of an action without changing anything.
func (e *Escrow) Check(action Action, caller Address, now uint64) error {
	return e.guard(action, caller, now)
}

func (e *Escrow) guard(action Action, caller Address, now uint64) error {
	if e.State.IsFinal() {
		return fmt.Errorf("%w: escrow is %s", ErrAlreadyFinalized, e.State)
	}

	phase := e.Phase(now)
	switch action {
	case ActionWithdraw:
		if caller != e.Immutables.Taker {
			return fmt.Errorf("%w: only the taker can withdraw", ErrInvalidCaller)
		}
		return inWindow(phase, PrivateWindow, Cancellable)
	case ActionPublicWithdraw:
		return inWindow(phase, PublicWindow, Cancellable)
	case ActionCancel:
		if caller != e.Immutables.Taker {
			return fmt.Errorf("%w: only the taker can cancel", ErrInvalidCaller)
		}
		return inWindow(phase, Cancellable, PubliclyCancellable+1)
	case ActionPublicCancel:
		if e.Side == SideDst {
			return fmt.Errorf("%w: public cancel is src only", ErrUnsupportedAction)
		}
		return inWindow(phase, PubliclyCancellable, PubliclyCancellable+1)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedAction, action)
	}
}

// inWindow accepts phases in [from, until).
func inWindow(phase, from, until Phase) error {
	if phase < from {
		return fmt.Errorf("%w: escrow is in %s, needs %s", ErrTooEarly, phase, from)
	}
	if phase >= until {
		return fmt.Errorf("%w: escrow is in %s", ErrTooLate, phase)
	}

	return nil
}

func (e *Escrow) withdraw(action Action, caller Address, secret Secret) (Settlement, error) {
	if !e.Immutables.HashLock.Verify(secret) {
		return Settlement{}, ErrInvalidSecret
	}

	// src pays the taker, dst pays the maker.
	recipient := e.Immutables.Taker
	if e.Side == SideDst {
		recipient = e.Immutables.Maker
	}

	revealed := secret
	e.State = StateWithdrawn
	e.Secret = &revealed

	return Settlement{
		Action:  action,
		Asset:   e.assetTo(recipient),
		Deposit: e.depositTo(caller),
		Secret:  &revealed,
	}, nil
}

func (e *Escrow) cancel(action Action, caller Address) Settlement {
	// src refunds the maker, dst refunds the taker.
	recipient := e.Immutables.Maker
	if e.Side == SideDst {
		recipient = e.Immutables.Taker
	}

	e.State = StateCancelled

	return Settlement{
		Action:  action,
		Asset:   e.assetTo(recipient),
		Deposit: e.depositTo(caller),
	}
}

func (e *Escrow) assetTo(to Address) Transfer {
	return Transfer{To: to, Token: e.Immutables.Token, Amount: new(big.Int).Set(e.Immutables.Amount)}
}

func (e *Escrow) depositTo(to Address) Transfer {
	return Transfer{To: to, Token: ZeroAddress, Amount: new(big.Int).Set(e.Immutables.SafetyDeposit)}
}
