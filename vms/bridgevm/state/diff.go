// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"errors"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"
)

var (
	_ Diff = (*diff)(nil)

	ErrMissingParentState = errors.New("missing parent state")
)

// Diff is a set of modifications layered on a parent Chain. Nothing reaches
// the parent until Apply is called.
type Diff interface {
	Chain

	Apply(Chain) error
}

type diff struct {
	parent Chain

	protocol Protocol

	validators   map[ids.ShortID]bool
	deposits     map[ids.ID]*Deposit
	attestations map[attestationKey]*Attestation
	balances     map[ids.ShortID]uint64
	withdrawals  map[uint64]*WithdrawalIntent
}

func NewDiffOn(parent Chain) (Diff, error) {
	if parent == nil {
		return nil, ErrMissingParentState
	}
	return &diff{
		parent:       parent,
		protocol:     parent.GetProtocol(),
		validators:   make(map[ids.ShortID]bool),
		deposits:     make(map[ids.ID]*Deposit),
		attestations: make(map[attestationKey]*Attestation),
		balances:     make(map[ids.ShortID]uint64),
		withdrawals:  make(map[uint64]*WithdrawalIntent),
	}, nil
}

func (d *diff) GetProtocol() Protocol {
	return d.protocol
}

func (d *diff) SetProtocol(p Protocol) {
	d.protocol = p
}

func (d *diff) IsValidator(validator ids.ShortID) (bool, error) {
	if active, ok := d.validators[validator]; ok {
		return active, nil
	}
	return d.parent.IsValidator(validator)
}

func (d *diff) SetValidator(validator ids.ShortID, active bool) {
	d.validators[validator] = active
}

func (d *diff) GetDeposit(txID ids.ID) (*Deposit, error) {
	if deposit, ok := d.deposits[txID]; ok {
		return deposit, nil
	}
	return d.parent.GetDeposit(txID)
}

func (d *diff) PutDeposit(deposit *Deposit) {
	d.deposits[deposit.TxID] = deposit
}

func (d *diff) GetAttestation(txID ids.ID, validator ids.ShortID) (*Attestation, error) {
	if a, ok := d.attestations[attestationKey{txID: txID, validator: validator}]; ok {
		return a, nil
	}
	return d.parent.GetAttestation(txID, validator)
}

func (d *diff) PutAttestation(a *Attestation) {
	d.attestations[attestationKey{txID: a.TxID, validator: a.Validator}] = a
}

func (d *diff) GetBalance(account ids.ShortID) (uint64, error) {
	if balance, ok := d.balances[account]; ok {
		return balance, nil
	}
	return d.parent.GetBalance(account)
}

func (d *diff) SetBalance(account ids.ShortID, amount uint64) {
	d.balances[account] = amount
}

func (d *diff) GetWithdrawal(index uint64) (*WithdrawalIntent, error) {
	if w, ok := d.withdrawals[index]; ok {
		return w, nil
	}
	return d.parent.GetWithdrawal(index)
}

func (d *diff) PutWithdrawal(w *WithdrawalIntent) {
	d.withdrawals[w.Index] = w
}

func (d *diff) Apply(base Chain) error {
	if base == nil {
		return ErrMissingParentState
	}
	base.SetProtocol(d.protocol)
	for validator, active := range d.validators {
		base.SetValidator(validator, active)
	}
	for _, deposit := range d.deposits {
		base.PutDeposit(deposit)
	}
	for _, a := range d.attestations {
		base.PutAttestation(a)
	}
	for account, balance := range d.balances {
		base.SetBalance(account, balance)
	}
	for _, w := range d.withdrawals {
		base.PutWithdrawal(w)
	}
	return nil
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}
