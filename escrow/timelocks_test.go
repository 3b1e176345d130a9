package escrow

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOffsets = Offsets{
	SrcWithdrawal:         10,
	SrcPublicWithdrawal:   120,
	SrcCancellation:       300,
	SrcPublicCancellation: 400,
	DstWithdrawal:         10,
	DstPublicWithdrawal:   100,
	DstCancellation:       250,
}

func anchored(t *testing.T, at uint32) TimeLocks {
	t.Helper()

	tl := NewTimeLocks(testOffsets)
	require.NoError(t, tl.SetDeployedAt(at))

	return tl
}

func TestPhaseAt(t *testing.T) {
	tl := anchored(t, 1000)

	tests := []struct {
		name string
		now  uint64
		side Side
		want Phase
	}{
		{"src before withdrawal", 1009, SideSrc, Finality},
		{"src at withdrawal", 1010, SideSrc, PrivateWindow},
		{"src public", 1120, SideSrc, PublicWindow},
		{"src cancellable", 1300, SideSrc, Cancellable},
		{"src publicly cancellable", 1400, SideSrc, PubliclyCancellable},
		{"dst private", 1050, SideDst, PrivateWindow},
		{"dst public", 1100, SideDst, PublicWindow},
		{"dst cancellable", 1250, SideDst, Cancellable},
		{"dst never publicly cancellable", 99999, SideDst, Cancellable},
		{"before deployment", 10, SideSrc, Finality},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tl.PhaseAt(tt.now, tt.side))
		})
	}
}

func TestPhaseAtUnanchored(t *testing.T) {
	tl := NewTimeLocks(testOffsets)
	require.False(t, tl.IsAnchored())
	require.Equal(t, Finality, tl.PhaseAt(1<<40, SideSrc))
}

func TestSetDeployedAt(t *testing.T) {
	tl := NewTimeLocks(testOffsets)
	require.ErrorIs(t, tl.SetDeployedAt(0), ErrMalformedOrder)
	require.NoError(t, tl.SetDeployedAt(42))
	require.ErrorIs(t, tl.SetDeployedAt(43), ErrAlreadyAnchored)
	require.Equal(t, uint32(42), tl.DeployedAt())
	require.Equal(t, uint64(42+300), tl.Deadline(SrcCancellation))
}

func TestNextBoundaryAndPhaseStart(t *testing.T) {
	tl := anchored(t, 1000)

	next, ok := tl.NextBoundary(1000, SideSrc)
	require.True(t, ok)
	require.Equal(t, uint64(1010), next)

	next, ok = tl.NextBoundary(1150, SideDst)
	require.True(t, ok)
	require.Equal(t, uint64(1250), next)

	_, ok = tl.NextBoundary(1250, SideDst)
	require.False(t, ok)

	start, ok := tl.PhaseStart(SideSrc, Cancellable)
	require.True(t, ok)
	require.Equal(t, uint64(1300), start)

	start, ok = tl.PhaseStart(SideDst, Finality)
	require.True(t, ok)
	require.Equal(t, uint64(1000), start)

	_, ok = tl.PhaseStart(SideDst, PubliclyCancellable)
	require.False(t, ok)
}

func TestTimeLocksValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *Offsets)
		wantErr bool
	}{
		{"valid", func(o *Offsets) {}, false},
		{"src not increasing", func(o *Offsets) { o.SrcPublicWithdrawal = o.SrcWithdrawal }, true},
		{"dst not increasing", func(o *Offsets) { o.DstCancellation = 50 }, true},
		{"dst cancels after src", func(o *Offsets) { o.DstCancellation = 350 }, true},
		{"dst cancels with src", func(o *Offsets) { o.DstCancellation = 300 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := testOffsets
			tt.mutate(&o)
			err := NewTimeLocks(o).Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedOrder)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestPack(t *testing.T) {
	tl := anchored(t, 1_700_000_000)
	packed := tl.Pack()

	// Stage 0 sits in the lowest word, the anchor in the highest.
	low := new(big.Int).And(packed, big.NewInt(0xffffffff))
	require.Equal(t, int64(10), low.Int64())
	require.Equal(t, int64(1_700_000_000), new(big.Int).Rsh(packed, 224).Int64())

	require.Equal(t, tl, UnpackTimeLocks(packed))
}

func TestTimeLocksJSON(t *testing.T) {
	tl := anchored(t, 77)

	data, err := json.Marshal(tl)
	require.NoError(t, err)
	require.Contains(t, string(data), `"deployedAt":77`)
	require.Contains(t, string(data), `"srcCancellation":300`)

	var decoded TimeLocks
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, tl, decoded)
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "DstCancellation", DstCancellation.String())
	assert.Equal(t, "Stage(9)", Stage(9).String())
	assert.Equal(t, "PubliclyCancellable", PubliclyCancellable.String())
	assert.Equal(t, "Phase(7)", Phase(7).String())
}
