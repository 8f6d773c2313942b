// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

// Allow vm to execute custom logic against the underlying transaction types.
type Visitor interface {
	// Admin transactions:
	InitializeBridgeTx(*InitializeBridgeTx) error
	PauseBridgeTx(*PauseBridgeTx) error
	ResumeBridgeTx(*ResumeBridgeTx) error
	AddValidatorTx(*AddValidatorTx) error
	RemoveValidatorTx(*RemoveValidatorTx) error
	RecordConfirmationsTx(*RecordConfirmationsTx) error
	EmergencyWithdrawTx(*EmergencyWithdrawTx) error

	// Validator transactions:
	InitiateDepositTx(*InitiateDepositTx) error
	ConfirmDepositTx(*ConfirmDepositTx) error

	// User transactions:
	WithdrawTx(*WithdrawTx) error
}
