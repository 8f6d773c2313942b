// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"github.com/luxfi/ids"

	"github.com/luxfi/btcbridge/vms/bridgevm/state"
)

var _ UnsignedTx = (*ConfirmDepositTx)(nil)

// ConfirmDepositTx attests to a registered deposit. The first attestation
// accepted after the deposit reached RequiredConfirmations finalizes it.
type ConfirmDepositTx struct {
	BaseTx `serialize:"true"`
	// Source-chain transaction id of the deposit.
	TxID []byte `serialize:"true" json:"txID"`
	// Validator signature over the deposit. Only its shape is checked.
	Signature []byte `serialize:"true" json:"signature"`
}

func (tx *ConfirmDepositTx) SyntacticVerify(*Context) error {
	if tx == nil {
		return ErrNilTx
	}
	if err := verifyTxID(tx.TxID); err != nil {
		return err
	}
	return verifySignature(tx.Signature)
}

func (tx *ConfirmDepositTx) Visit(visitor Visitor) error {
	return visitor.ConfirmDepositTx(tx)
}

func (tx *ConfirmDepositTx) DepositID() ids.ID {
	return toID(tx.TxID)
}

func (tx *ConfirmDepositTx) SignatureBytes() [state.SignatureLen]byte {
	var sig [state.SignatureLen]byte
	copy(sig[:], tx.Signature)
	return sig
}
