// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

var (
	_ UnsignedTx = (*InitializeBridgeTx)(nil)
	_ UnsignedTx = (*PauseBridgeTx)(nil)
	_ UnsignedTx = (*ResumeBridgeTx)(nil)
)

// InitializeBridgeTx marks the bridge as initialized and unpaused.
type InitializeBridgeTx struct {
	BaseTx `serialize:"true"`
}

func (tx *InitializeBridgeTx) Visit(visitor Visitor) error {
	return visitor.InitializeBridgeTx(tx)
}

// PauseBridgeTx halts deposits, confirmations and withdrawals.
type PauseBridgeTx struct {
	BaseTx `serialize:"true"`
}

func (tx *PauseBridgeTx) Visit(visitor Visitor) error {
	return visitor.PauseBridgeTx(tx)
}

// ResumeBridgeTx lifts a pause. It fails if the bridge is not paused.
type ResumeBridgeTx struct {
	BaseTx `serialize:"true"`
}

func (tx *ResumeBridgeTx) Visit(visitor Visitor) error {
	return visitor.ResumeBridgeTx(tx)
}
