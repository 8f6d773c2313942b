// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"github.com/luxfi/ids"

	"github.com/luxfi/btcbridge/vms/bridgevm/state"
)

const (
	// MinDepositAmount and MaxDepositAmount bound every deposit and
	// withdrawal, in satoshis.
	MinDepositAmount uint64 = 100_000
	MaxDepositAmount uint64 = 1_000_000_000

	// RequiredConfirmations is the source-chain depth a deposit must reach
	// before it can be attested.
	RequiredConfirmations uint32 = 6

	TxIDLen         = ids.IDLen
	SourceSenderLen = state.SourceSenderLen
	SignatureLen    = state.SignatureLen
	BTCAddressLen   = state.BTCAddressLen
)

// Context carries the values syntactic verification depends on.
type Context struct {
	// BridgeAddress is the bridge's own identity. It can never be a
	// validator or a recipient.
	BridgeAddress ids.ShortID
}

// UnsignedTx is a single state-mutating bridge operation.
type UnsignedTx interface {
	// Caller returns the identity that issued the tx.
	Caller() ids.ShortID

	// SyntacticVerify checks everything that can be checked without state.
	SyntacticVerify(ctx *Context) error

	Visit(Visitor) error
}

// BaseTx carries the identity of the caller. Authenticating that identity is
// the host's job.
type BaseTx struct {
	Sender ids.ShortID `serialize:"true" json:"sender"`
}

func (tx *BaseTx) Caller() ids.ShortID {
	return tx.Sender
}

// Admin txs have nothing to verify beyond the caller, which is checked
// against state.
func (*BaseTx) SyntacticVerify(*Context) error {
	return nil
}

// VerifyAmount checks the per-operation bounds shared by deposits and
// withdrawals.
func VerifyAmount(amount uint64) error {
	if amount < MinDepositAmount || amount > MaxDepositAmount {
		return ErrInvalidAmount
	}
	return nil
}

// VerifyValidator rejects the empty identity and the bridge's own identity.
func (c *Context) VerifyValidator(id ids.ShortID) error {
	if id == ids.ShortEmpty || id == c.BridgeAddress {
		return ErrInvalidValidatorAddress
	}
	return nil
}

// VerifyRecipient rejects the empty identity and the bridge's own identity.
func (c *Context) VerifyRecipient(id ids.ShortID) error {
	if id == ids.ShortEmpty || id == c.BridgeAddress {
		return ErrInvalidRecipientAddress
	}
	return nil
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

func verifyTxID(b []byte) error {
	if len(b) != TxIDLen || isZero(b) {
		return ErrInvalidTxHash
	}
	return nil
}

func verifyBTCBytes(b []byte, size int) error {
	if len(b) != size || isZero(b) {
		return ErrInvalidBtcAddress
	}
	return nil
}

func verifySignature(b []byte) error {
	switch {
	case len(b) != SignatureLen:
		return ErrInvalidSignatureFormat
	case isZero(b):
		return ErrInvalidSignature
	default:
		return nil
	}
}

func toID(b []byte) ids.ID {
	var id ids.ID
	copy(id[:], b)
	return id
}
