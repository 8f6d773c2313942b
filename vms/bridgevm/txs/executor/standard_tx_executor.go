// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"fmt"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	safemath "github.com/luxfi/math"

	"github.com/luxfi/btcbridge/vms/bridgevm/state"
	"github.com/luxfi/btcbridge/vms/bridgevm/txs"
)

var _ txs.Visitor = (*StandardTxExecutor)(nil)

// StandardTxExecutor applies a tx to State. On error State must be discarded,
// as it may hold a partial update.
type StandardTxExecutor struct {
	// inputs, to be filled before visitor methods are called
	*Backend
	State  state.Diff
	Height uint64

	// outputs of visitor execution
	FinalizedDeposit *state.Deposit
	WithdrawalIntent *state.WithdrawalIntent
}

func (e *StandardTxExecutor) InitializeBridgeTx(tx *txs.InitializeBridgeTx) error {
	if err := e.verifyAdmin(tx); err != nil {
		return err
	}

	p := e.State.GetProtocol()
	p.Paused = false
	p.Initialized = true
	e.State.SetProtocol(p)

	e.Log.Info("bridge initialized",
		log.Stringer("admin", tx.Caller()),
		log.Uint64("height", e.Height),
	)
	return nil
}

func (e *StandardTxExecutor) PauseBridgeTx(tx *txs.PauseBridgeTx) error {
	if err := e.verifyAdmin(tx); err != nil {
		return err
	}

	p := e.State.GetProtocol()
	p.Paused = true
	e.State.SetProtocol(p)

	e.Log.Info("bridge paused",
		log.Uint64("height", e.Height),
	)
	return nil
}

func (e *StandardTxExecutor) ResumeBridgeTx(tx *txs.ResumeBridgeTx) error {
	if err := e.verifyAdmin(tx); err != nil {
		return err
	}

	p := e.State.GetProtocol()
	if !p.Paused {
		return fmt.Errorf("%w: bridge is not paused", txs.ErrInvalidBridgeStatus)
	}
	p.Paused = false
	e.State.SetProtocol(p)

	e.Log.Info("bridge resumed",
		log.Uint64("height", e.Height),
	)
	return nil
}

func (e *StandardTxExecutor) AddValidatorTx(tx *txs.AddValidatorTx) error {
	if err := e.verifyAdmin(tx); err != nil {
		return err
	}

	e.State.SetValidator(tx.Validator, true)

	e.Log.Info("validator added",
		log.Stringer("validator", tx.Validator),
	)
	return nil
}

func (e *StandardTxExecutor) RemoveValidatorTx(tx *txs.RemoveValidatorTx) error {
	if err := e.verifyAdmin(tx); err != nil {
		return err
	}

	e.State.SetValidator(tx.Validator, false)

	e.Log.Info("validator removed",
		log.Stringer("validator", tx.Validator),
	)
	return nil
}

func (e *StandardTxExecutor) RecordConfirmationsTx(tx *txs.RecordConfirmationsTx) error {
	if err := e.verifyAdmin(tx); err != nil {
		return err
	}

	deposit, err := e.getDeposit(tx.DepositID())
	if err != nil {
		return err
	}
	if deposit.Finalized {
		return fmt.Errorf("%w: deposit %s is finalized", txs.ErrAlreadyProcessed, deposit.TxID)
	}

	updated := *deposit
	updated.Confirmations = tx.Confirmations
	e.State.PutDeposit(&updated)

	e.Log.Debug("deposit confirmations recorded",
		log.Stringer("txID", updated.TxID),
		log.Uint32("confirmations", updated.Confirmations),
	)
	return nil
}

func (e *StandardTxExecutor) EmergencyWithdrawTx(tx *txs.EmergencyWithdrawTx) error {
	if err := e.verifyAdmin(tx); err != nil {
		return err
	}

	p := e.State.GetProtocol()
	if p.TotalBridged < tx.Amount {
		return fmt.Errorf("%w: %d exceeds bridged total %d",
			txs.ErrInsufficientBalance,
			tx.Amount,
			p.TotalBridged,
		)
	}

	balance, err := e.State.GetBalance(tx.Recipient)
	if err != nil {
		return err
	}
	newBalance, err := safemath.Add64(balance, tx.Amount)
	if err != nil || newBalance <= balance {
		return fmt.Errorf("%w: balance of %s would not increase", txs.ErrInvalidAmount, tx.Recipient)
	}
	minted, err := safemath.Add64(p.EmergencyMinted, tx.Amount)
	if err != nil {
		return fmt.Errorf("%w: %w", txs.ErrInvalidAmount, err)
	}

	e.State.SetBalance(tx.Recipient, newBalance)
	p.EmergencyMinted = minted
	e.State.SetProtocol(p)

	e.Log.Warn("emergency withdrawal",
		log.Stringer("recipient", tx.Recipient),
		log.Uint64("amount", tx.Amount),
		log.Uint64("emergencyMinted", minted),
	)
	return nil
}

func (e *StandardTxExecutor) InitiateDepositTx(tx *txs.InitiateDepositTx) error {
	if err := e.verifyValidatorCaller(tx); err != nil {
		return err
	}

	txID := tx.DepositID()
	_, err := e.State.GetDeposit(txID)
	switch {
	case err == nil:
		return fmt.Errorf("%w: deposit %s already registered", txs.ErrAlreadyProcessed, txID)
	case !state.IsNotFound(err):
		return err
	}

	e.State.PutDeposit(&state.Deposit{
		TxID:         txID,
		Amount:       tx.Amount,
		Recipient:    tx.Recipient,
		RegisteredAt: e.Height,
		SourceSender: tx.SourceSenderBytes(),
	})

	e.Log.Info("deposit registered",
		log.Stringer("txID", txID),
		log.Uint64("amount", tx.Amount),
		log.Stringer("recipient", tx.Recipient),
		log.Stringer("validator", tx.Caller()),
	)
	return nil
}

func (e *StandardTxExecutor) ConfirmDepositTx(tx *txs.ConfirmDepositTx) error {
	if err := e.verifyValidatorCaller(tx); err != nil {
		return err
	}

	deposit, err := e.getDeposit(tx.DepositID())
	if err != nil {
		return err
	}
	if deposit.Finalized {
		return fmt.Errorf("%w: deposit %s is finalized", txs.ErrAlreadyProcessed, deposit.TxID)
	}
	if deposit.Confirmations < txs.RequiredConfirmations {
		return fmt.Errorf("%w: deposit %s has %d of %d confirmations",
			txs.ErrInvalidBridgeStatus,
			deposit.TxID,
			deposit.Confirmations,
			txs.RequiredConfirmations,
		)
	}

	validator := tx.Caller()
	_, err = e.State.GetAttestation(deposit.TxID, validator)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s already attested to %s", txs.ErrAlreadyProcessed, validator, deposit.TxID)
	case !state.IsNotFound(err):
		return err
	}

	balance, err := e.State.GetBalance(deposit.Recipient)
	if err != nil {
		return err
	}
	newBalance, err := safemath.Add64(balance, deposit.Amount)
	if err != nil {
		return fmt.Errorf("%w: %w", txs.ErrInvalidAmount, err)
	}
	p := e.State.GetProtocol()
	total, err := safemath.Add64(p.TotalBridged, deposit.Amount)
	if err != nil {
		return fmt.Errorf("%w: %w", txs.ErrInvalidAmount, err)
	}

	e.State.PutAttestation(&state.Attestation{
		TxID:        deposit.TxID,
		Validator:   validator,
		Signature:   tx.SignatureBytes(),
		SubmittedAt: e.Height,
	})

	finalized := *deposit
	finalized.Finalized = true
	e.State.PutDeposit(&finalized)
	e.State.SetBalance(deposit.Recipient, newBalance)
	p.TotalBridged = total
	e.State.SetProtocol(p)
	e.FinalizedDeposit = &finalized

	e.Log.Info("deposit finalized",
		log.Stringer("txID", deposit.TxID),
		log.Uint64("amount", deposit.Amount),
		log.Stringer("recipient", deposit.Recipient),
		log.Stringer("validator", validator),
	)
	return nil
}

func (e *StandardTxExecutor) WithdrawTx(tx *txs.WithdrawTx) error {
	if err := e.verifyActive(); err != nil {
		return err
	}
	if err := tx.SyntacticVerify(e.Ctx); err != nil {
		return err
	}

	sender := tx.Caller()
	balance, err := e.State.GetBalance(sender)
	if err != nil {
		return err
	}
	newBalance, err := safemath.Sub(balance, tx.Amount)
	if err != nil {
		return fmt.Errorf("%w: %s holds %d, requested %d",
			txs.ErrInsufficientBalance,
			sender,
			balance,
			tx.Amount,
		)
	}
	p := e.State.GetProtocol()
	total, err := safemath.Sub(p.TotalBridged, tx.Amount)
	if err != nil {
		return fmt.Errorf("%w: bridged total %d, requested %d",
			txs.ErrInsufficientBalance,
			p.TotalBridged,
			tx.Amount,
		)
	}

	intent := &state.WithdrawalIntent{
		Index:        p.NextWithdrawalIndex,
		Amount:       tx.Amount,
		Sender:       sender,
		BTCRecipient: tx.BTCRecipientBytes(),
		Timestamp:    e.Clk.Unix(),
		Height:       e.Height,
	}
	e.State.SetBalance(sender, newBalance)
	e.State.PutWithdrawal(intent)
	p.TotalBridged = total
	p.NextWithdrawalIndex++
	e.State.SetProtocol(p)
	e.WithdrawalIntent = intent

	e.Log.Info("withdrawal requested",
		log.Uint64("index", intent.Index),
		log.Stringer("sender", sender),
		log.Uint64("amount", tx.Amount),
	)
	return nil
}

// verifyAdmin checks the caller before anything else. Admin operations are
// never blocked by a pause.
func (e *StandardTxExecutor) verifyAdmin(tx txs.UnsignedTx) error {
	if caller := tx.Caller(); caller != e.Config.AdminAddress {
		return fmt.Errorf("%w: %s is not the admin", txs.ErrNotAuthorized, caller)
	}
	return tx.SyntacticVerify(e.Ctx)
}

func (e *StandardTxExecutor) verifyActive() error {
	if e.State.GetProtocol().Paused {
		return txs.ErrBridgePaused
	}
	return nil
}

func (e *StandardTxExecutor) verifyValidatorCaller(tx txs.UnsignedTx) error {
	if err := e.verifyActive(); err != nil {
		return err
	}
	caller := tx.Caller()
	active, err := e.State.IsValidator(caller)
	if err != nil {
		return err
	}
	if !active {
		return fmt.Errorf("%w: %s is not an active validator", txs.ErrNotAuthorized, caller)
	}
	return tx.SyntacticVerify(e.Ctx)
}

func (e *StandardTxExecutor) getDeposit(txID ids.ID) (*state.Deposit, error) {
	deposit, err := e.State.GetDeposit(txID)
	if state.IsNotFound(err) {
		return nil, fmt.Errorf("%w: unknown deposit %s", txs.ErrInvalidTxHash, txID)
	}
	return deposit, err
}
