// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
)

func TestNewDiffOnMissingParent(t *testing.T) {
	_, err := NewDiffOn(nil)
	require.ErrorIs(t, err, ErrMissingParentState)
}

func TestDiffIsolatedUntilApply(t *testing.T) {
	require := require.New(t)

	s := newTestState(t, memdb.New())
	d, err := NewDiffOn(s)
	require.NoError(err)

	var (
		validator = ids.GenerateTestShortID()
		account   = ids.GenerateTestShortID()
		deposit   = newDeposit(1)
	)
	d.SetProtocol(Protocol{Paused: true})
	d.SetValidator(validator, true)
	d.PutDeposit(deposit)
	d.SetBalance(account, 42)
	d.PutWithdrawal(&WithdrawalIntent{Index: 0, Amount: 1})
	d.PutAttestation(&Attestation{TxID: deposit.TxID, Validator: validator})

	// The diff sees its own writes.
	require.True(d.GetProtocol().Paused)
	active, err := d.IsValidator(validator)
	require.NoError(err)
	require.True(active)
	balance, err := d.GetBalance(account)
	require.NoError(err)
	require.Equal(uint64(42), balance)

	// The parent does not.
	require.False(s.GetProtocol().Paused)
	active, err = s.IsValidator(validator)
	require.NoError(err)
	require.False(active)
	_, err = s.GetDeposit(deposit.TxID)
	require.ErrorIs(err, database.ErrNotFound)
	_, err = s.GetWithdrawal(0)
	require.ErrorIs(err, database.ErrNotFound)

	require.NoError(d.Apply(s))

	require.True(s.GetProtocol().Paused)
	got, err := s.GetDeposit(deposit.TxID)
	require.NoError(err)
	require.Equal(deposit, got)
	_, err = s.GetAttestation(deposit.TxID, validator)
	require.NoError(err)
	balance, err = s.GetBalance(account)
	require.NoError(err)
	require.Equal(uint64(42), balance)
}

func TestDiffReadsThroughToParent(t *testing.T) {
	require := require.New(t)

	s := newTestState(t, memdb.New())
	account := ids.GenerateTestShortID()
	s.SetBalance(account, 9)
	s.SetProtocol(Protocol{TotalBridged: 9})
	require.NoError(s.Commit())

	d, err := NewDiffOn(s)
	require.NoError(err)
	require.Equal(uint64(9), d.GetProtocol().TotalBridged)

	balance, err := d.GetBalance(account)
	require.NoError(err)
	require.Equal(uint64(9), balance)
}

func TestDiffApplyMissingBase(t *testing.T) {
	require := require.New(t)

	d, err := NewDiffOn(newTestState(t, memdb.New()))
	require.NoError(err)
	require.ErrorIs(d.Apply(nil), ErrMissingParentState)
}
