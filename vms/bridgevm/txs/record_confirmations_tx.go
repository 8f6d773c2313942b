// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import "github.com/luxfi/ids"

var _ UnsignedTx = (*RecordConfirmationsTx)(nil)

// RecordConfirmationsTx stores the source-chain depth of a pending deposit as
// reported by the confirmation feed.
type RecordConfirmationsTx struct {
	BaseTx        `serialize:"true"`
	TxID          []byte `serialize:"true" json:"txID"`
	Confirmations uint32 `serialize:"true" json:"confirmations"`
}

func (tx *RecordConfirmationsTx) SyntacticVerify(*Context) error {
	if tx == nil {
		return ErrNilTx
	}
	return verifyTxID(tx.TxID)
}

func (tx *RecordConfirmationsTx) Visit(visitor Visitor) error {
	return visitor.RecordConfirmationsTx(tx)
}

func (tx *RecordConfirmationsTx) DepositID() ids.ID {
	return toID(tx.TxID)
}
