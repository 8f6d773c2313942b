// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import "github.com/luxfi/ids"

var (
	_ UnsignedTx = (*AddValidatorTx)(nil)
	_ UnsignedTx = (*RemoveValidatorTx)(nil)
)

// AddValidatorTx activates a validator. Adding an active validator is a
// no-op.
type AddValidatorTx struct {
	BaseTx `serialize:"true"`
	// The identity to activate.
	Validator ids.ShortID `serialize:"true" json:"validator"`
}

func (tx *AddValidatorTx) SyntacticVerify(ctx *Context) error {
	if tx == nil {
		return ErrNilTx
	}
	return ctx.VerifyValidator(tx.Validator)
}

func (tx *AddValidatorTx) Visit(visitor Visitor) error {
	return visitor.AddValidatorTx(tx)
}

// RemoveValidatorTx deactivates a validator. Its past attestations are kept.
type RemoveValidatorTx struct {
	BaseTx `serialize:"true"`
	// The identity to deactivate.
	Validator ids.ShortID `serialize:"true" json:"validator"`
}

func (tx *RemoveValidatorTx) SyntacticVerify(ctx *Context) error {
	if tx == nil {
		return ErrNilTx
	}
	return ctx.VerifyValidator(tx.Validator)
}

func (tx *RemoveValidatorTx) Visit(visitor Visitor) error {
	return visitor.RemoveValidatorTx(tx)
}
