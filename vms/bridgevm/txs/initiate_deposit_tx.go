// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"github.com/luxfi/ids"

	"github.com/luxfi/btcbridge/vms/bridgevm/state"
)

var _ UnsignedTx = (*InitiateDepositTx)(nil)

// InitiateDepositTx registers a deposit observed on the source chain.
type InitiateDepositTx struct {
	BaseTx `serialize:"true"`
	// Source-chain transaction id.
	TxID []byte `serialize:"true" json:"txID"`
	// Amount in satoshis.
	Amount uint64 `serialize:"true" json:"amount"`
	// Account credited once the deposit is finalized.
	Recipient ids.ShortID `serialize:"true" json:"recipient"`
	// Compressed public key of the source-chain sender.
	SourceSender []byte `serialize:"true" json:"sourceSender"`
}

func (tx *InitiateDepositTx) SyntacticVerify(ctx *Context) error {
	if tx == nil {
		return ErrNilTx
	}
	if err := VerifyAmount(tx.Amount); err != nil {
		return err
	}
	if err := verifyTxID(tx.TxID); err != nil {
		return err
	}
	if err := ctx.VerifyRecipient(tx.Recipient); err != nil {
		return err
	}
	return verifyBTCBytes(tx.SourceSender, SourceSenderLen)
}

func (tx *InitiateDepositTx) Visit(visitor Visitor) error {
	return visitor.InitiateDepositTx(tx)
}

// DepositID is only meaningful after SyntacticVerify succeeded.
func (tx *InitiateDepositTx) DepositID() ids.ID {
	return toID(tx.TxID)
}

func (tx *InitiateDepositTx) SourceSenderBytes() [state.SourceSenderLen]byte {
	var sender [state.SourceSenderLen]byte
	copy(sender[:], tx.SourceSender)
	return sender
}
