// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import "github.com/luxfi/btcbridge/vms/bridgevm/txs"

const (
	txLabel     = "tx"
	reasonLabel = "reason"
)

var _ txs.Visitor = (*txLabeler)(nil)

// txLabeler resolves the metric label of a tx.
type txLabeler struct {
	label string
}

func labelOf(tx txs.UnsignedTx) (string, error) {
	l := txLabeler{}
	err := tx.Visit(&l)
	return l.label, err
}

func (l *txLabeler) InitializeBridgeTx(*txs.InitializeBridgeTx) error {
	l.label = "initialize_bridge"
	return nil
}

func (l *txLabeler) PauseBridgeTx(*txs.PauseBridgeTx) error {
	l.label = "pause_bridge"
	return nil
}

func (l *txLabeler) ResumeBridgeTx(*txs.ResumeBridgeTx) error {
	l.label = "resume_bridge"
	return nil
}

func (l *txLabeler) AddValidatorTx(*txs.AddValidatorTx) error {
	l.label = "add_validator"
	return nil
}

func (l *txLabeler) RemoveValidatorTx(*txs.RemoveValidatorTx) error {
	l.label = "remove_validator"
	return nil
}

func (l *txLabeler) RecordConfirmationsTx(*txs.RecordConfirmationsTx) error {
	l.label = "record_confirmations"
	return nil
}

func (l *txLabeler) EmergencyWithdrawTx(*txs.EmergencyWithdrawTx) error {
	l.label = "emergency_withdraw"
	return nil
}

func (l *txLabeler) InitiateDepositTx(*txs.InitiateDepositTx) error {
	l.label = "initiate_deposit"
	return nil
}

func (l *txLabeler) ConfirmDepositTx(*txs.ConfirmDepositTx) error {
	l.label = "confirm_deposit"
	return nil
}

func (l *txLabeler) WithdrawTx(*txs.WithdrawTx) error {
	l.label = "withdraw"
	return nil
}
