// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"github.com/luxfi/ids"

	"github.com/luxfi/btcbridge/vms/bridgevm/state"
)

var (
	_ UnsignedTx = (*WithdrawTx)(nil)
	_ UnsignedTx = (*EmergencyWithdrawTx)(nil)
)

// WithdrawTx burns the caller's bridged balance and records an intent to pay
// BTCRecipient on the source chain.
type WithdrawTx struct {
	BaseTx       `serialize:"true"`
	Amount       uint64 `serialize:"true" json:"amount"`
	BTCRecipient []byte `serialize:"true" json:"btcRecipient"`
}

func (tx *WithdrawTx) SyntacticVerify(*Context) error {
	if tx == nil {
		return ErrNilTx
	}
	if err := VerifyAmount(tx.Amount); err != nil {
		return err
	}
	return verifyBTCBytes(tx.BTCRecipient, BTCAddressLen)
}

func (tx *WithdrawTx) Visit(visitor Visitor) error {
	return visitor.WithdrawTx(tx)
}

func (tx *WithdrawTx) BTCRecipientBytes() [state.BTCAddressLen]byte {
	var addr [state.BTCAddressLen]byte
	copy(addr[:], tx.BTCRecipient)
	return addr
}

// EmergencyWithdrawTx credits Recipient without touching the bridged total.
// It is available to the admin even while the bridge is paused.
type EmergencyWithdrawTx struct {
	BaseTx    `serialize:"true"`
	Amount    uint64      `serialize:"true" json:"amount"`
	Recipient ids.ShortID `serialize:"true" json:"recipient"`
}

func (tx *EmergencyWithdrawTx) SyntacticVerify(ctx *Context) error {
	if tx == nil {
		return ErrNilTx
	}
	return ctx.VerifyRecipient(tx.Recipient)
}

func (tx *EmergencyWithdrawTx) Visit(visitor Visitor) error {
	return visitor.EmergencyWithdrawTx(tx)
}
