package escrow

import (
	"fmt"
	"math/big"
)

// Side tells which leg of the swap an escrow belongs to.
type Side string

const (
	SideSrc Side = "src"
	SideDst Side = "dst"
)

func (s Side) IsValid() bool {
	return s == SideSrc || s == SideDst
}

func (s Side) String() string {
	return string(s)
}

// Stage indexes one of the seven deadline offsets. The order matches the bit
// layout of the packed uint256 representation.
type Stage uint8

const (
	SrcWithdrawal Stage = iota
	SrcPublicWithdrawal
	SrcCancellation
	SrcPublicCancellation
	DstWithdrawal
	DstPublicWithdrawal
	DstCancellation

	stageCount
)

var stageNames = [...]string{
	"SrcWithdrawal",
	"SrcPublicWithdrawal",
	"SrcCancellation",
	"SrcPublicCancellation",
	"DstWithdrawal",
	"DstPublicWithdrawal",
	"DstCancellation",
}

func (s Stage) String() string {
	if s >= stageCount {
		return fmt.Sprintf("Stage(%d)", s)
	}

	return stageNames[s]
}

// Phase is the permission window an escrow is in. Phases are ordered, so
// "PublicWindow or later" is simply p >= PublicWindow.
type Phase uint8

const (
	Finality Phase = iota
	PrivateWindow
	PublicWindow
	Cancellable
	PubliclyCancellable
)

func (p Phase) String() string {
	switch p {
	case Finality:
		return "Finality"
	case PrivateWindow:
		return "PrivateWindow"
	case PublicWindow:
		return "PublicWindow"
	case Cancellable:
		return "Cancellable"
	case PubliclyCancellable:
		return "PubliclyCancellable"
	default:
		return fmt.Sprintf("Phase(%d)", p)
	}
}

// phaseStages lists, per side, the stage that opens each phase after
// Finality. The dst side has no public cancellation.
var phaseStages = map[Side][]Stage{
	SideSrc: {SrcWithdrawal, SrcPublicWithdrawal, SrcCancellation, SrcPublicCancellation},
	SideDst: {DstWithdrawal, DstPublicWithdrawal, DstCancellation},
}

// Offsets are the relative deadlines in seconds since deployment.
type Offsets struct {
	SrcWithdrawal         uint32 `json:"srcWithdrawal"`
	SrcPublicWithdrawal   uint32 `json:"srcPublicWithdrawal"`
	SrcCancellation       uint32 `json:"srcCancellation"`
	SrcPublicCancellation uint32 `json:"srcPublicCancellation"`
	DstWithdrawal         uint32 `json:"dstWithdrawal"`
	DstPublicWithdrawal   uint32 `json:"dstPublicWithdrawal"`
	DstCancellation       uint32 `json:"dstCancellation"`
}

// TimeLocks holds the seven offsets and the deployment anchor they are
// measured from. A zero DeployedAt means the locks are not anchored yet.
type TimeLocks struct {
	offsets    [stageCount]uint32
	deployedAt uint32
}

// NewTimeLocks does not check the ordering of the offsets, callers run
// Validate before using the locks for a swap.
func NewTimeLocks(o Offsets) TimeLocks {
	return TimeLocks{
		offsets: [stageCount]uint32{
			o.SrcWithdrawal,
			o.SrcPublicWithdrawal,
			o.SrcCancellation,
			o.SrcPublicCancellation,
			o.DstWithdrawal,
			o.DstPublicWithdrawal,
			o.DstCancellation,
		},
	}
}

func (t TimeLocks) Offsets() Offsets {
	return Offsets{
		SrcWithdrawal:         t.offsets[SrcWithdrawal],
		SrcPublicWithdrawal:   t.offsets[SrcPublicWithdrawal],
		SrcCancellation:       t.offsets[SrcCancellation],
		SrcPublicCancellation: t.offsets[SrcPublicCancellation],
		DstWithdrawal:         t.offsets[DstWithdrawal],
		DstPublicWithdrawal:   t.offsets[DstPublicWithdrawal],
		DstCancellation:       t.offsets[DstCancellation],
	}
}

func (t TimeLocks) Offset(s Stage) uint32 {
	return t.offsets[s]
}

func (t TimeLocks) DeployedAt() uint32 {
	return t.deployedAt
}

func (t TimeLocks) IsAnchored() bool {
	return t.deployedAt != 0
}

// SetDeployedAt anchors the locks. It can only be done once.
func (t *TimeLocks) SetDeployedAt(ts uint32) error {
	if t.deployedAt != 0 {
		return ErrAlreadyAnchored
	}
	if ts == 0 {
		return fmt.Errorf("%w: deployment timestamp must be positive", ErrMalformedOrder)
	}
	t.deployedAt = ts

	return nil
}

// Deadline is the absolute timestamp at which the stage begins.
func (t TimeLocks) Deadline(s Stage) uint64 {
	return uint64(t.deployedAt) + uint64(t.offsets[s])
}

// PhaseAt maps a chain timestamp to the permission phase of the given side.
func (t TimeLocks) PhaseAt(now uint64, side Side) Phase {
	if !t.IsAnchored() {
		return Finality
	}

	phase := Finality
	for _, stage := range phaseStages[side] {
		if now < t.Deadline(stage) {
			break
		}
		phase++
	}

	return phase
}

// NextBoundary returns the absolute time at which the side leaves the phase
// it is in at now. The second value is false once the last phase is reached.
func (t TimeLocks) NextBoundary(now uint64, side Side) (uint64, bool) {
	phase := t.PhaseAt(now, side)
	stages := phaseStages[side]
	if int(phase) >= len(stages) {
		return 0, false
	}

	return t.Deadline(stages[phase]), true
}

// PhaseStart returns when the side enters the phase, false if the side never
// does.
func (t TimeLocks) PhaseStart(side Side, p Phase) (uint64, bool) {
	if p == Finality {
		return uint64(t.deployedAt), true
	}
	stages := phaseStages[side]
	if int(p) > len(stages) {
		return 0, false
	}

	return t.Deadline(stages[p-1]), true
}

// Validate checks the ordering the protocol relies on: offsets strictly
// increase within each side, and the dst leg becomes cancellable no later
// than the src leg.
func (t TimeLocks) Validate() error {
	for _, side := range []Side{SideSrc, SideDst} {
		stages := phaseStages[side]
		for i := 1; i < len(stages); i++ {
			if t.offsets[stages[i-1]] >= t.offsets[stages[i]] {
				return fmt.Errorf("%w: %s timelocks must be strictly increasing (%s=%d, %s=%d)",
					ErrMalformedOrder, side, stages[i-1], t.offsets[stages[i-1]], stages[i], t.offsets[stages[i]])
			}
		}
	}
	if t.offsets[DstCancellation] > t.offsets[SrcCancellation] {
		return fmt.Errorf("%w: dst cancellation (%d) must not be later than src cancellation (%d)",
			ErrMalformedOrder, t.offsets[DstCancellation], t.offsets[SrcCancellation])
	}

	return nil
}

// Pack encodes the locks as one uint256: stage i in bits [32i, 32i+32) and
// the deployment timestamp in the top 32 bits.
func (t TimeLocks) Pack() *big.Int {
	packed := new(big.Int).Lsh(big.NewInt(int64(t.deployedAt)), 224)
	for i := Stage(0); i < stageCount; i++ {
		v := new(big.Int).Lsh(big.NewInt(int64(t.offsets[i])), uint(i)*32)
		packed.Or(packed, v)
	}

	return packed
}

func UnpackTimeLocks(packed *big.Int) TimeLocks {
	var t TimeLocks
	mask := big.NewInt(0xffffffff)
	for i := Stage(0); i < stageCount; i++ {
		v := new(big.Int).Rsh(packed, uint(i)*32)
		t.offsets[i] = uint32(v.And(v, mask).Uint64())
	}
	top := new(big.Int).Rsh(packed, 224)
	t.deployedAt = uint32(top.And(top, mask).Uint64())

	return t
}
