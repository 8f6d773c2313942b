// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bvm

import (
	"github.com/holiman/uint256"

	"github.com/luxfi/ids"

	"github.com/luxfi/btcbridge/vms/bridgevm/state"
)

// AuditReport compares the sum of all balances with the supply the bridge
// accounts for.
type AuditReport struct {
	BalanceSum      *uint256.Int `json:"balanceSum"`
	TotalBridged    uint64       `json:"totalBridged"`
	EmergencyMinted uint64       `json:"emergencyMinted"`
	Balanced        bool         `json:"balanced"`
}

func (vm *VM) IsValidator(validator ids.ShortID) (bool, error) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()

	return vm.state.IsValidator(validator)
}

// GetDeposit returns database.ErrNotFound for unknown deposits.
func (vm *VM) GetDeposit(txID ids.ID) (*state.Deposit, error) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()

	deposit, err := vm.state.GetDeposit(txID)
	if err != nil {
		return nil, err
	}
	d := *deposit
	return &d, nil
}

// GetAttestation returns database.ErrNotFound if validator never attested to
// txID.
func (vm *VM) GetAttestation(txID ids.ID, validator ids.ShortID) (*state.Attestation, error) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()

	attestation, err := vm.state.GetAttestation(txID, validator)
	if err != nil {
		return nil, err
	}
	a := *attestation
	return &a, nil
}

func (vm *VM) GetBridgeBalance(account ids.ShortID) (uint64, error) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()

	return vm.state.GetBalance(account)
}

func (vm *VM) GetTotalBridgedAmount() uint64 {
	vm.mu.RLock()
	defer vm.mu.RUnlock()

	return vm.state.GetProtocol().TotalBridged
}

func (vm *VM) GetBridgeStatus() state.Protocol {
	vm.mu.RLock()
	defer vm.mu.RUnlock()

	return vm.state.GetProtocol()
}

func (vm *VM) GetWithdrawal(index uint64) (*state.WithdrawalIntent, error) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()

	intent, err := vm.state.GetWithdrawal(index)
	if err != nil {
		return nil, err
	}
	w := *intent
	return &w, nil
}

// GetWithdrawals returns up to limit intents starting at index start. The
// limit is capped by the configured page size.
func (vm *VM) GetWithdrawals(start uint64, limit int) ([]state.WithdrawalIntent, error) {
	if limit <= 0 || limit > vm.config.MaxWithdrawalsPage {
		limit = vm.config.MaxWithdrawalsPage
	}

	vm.mu.RLock()
	defer vm.mu.RUnlock()

	next := vm.state.GetProtocol().NextWithdrawalIndex
	if start >= next {
		return nil, nil
	}
	end := next
	if uint64(limit) < next-start {
		end = start + uint64(limit)
	}

	intents := make([]state.WithdrawalIntent, 0, end-start)
	for i := start; i < end; i++ {
		intent, err := vm.state.GetWithdrawal(i)
		if err != nil {
			return nil, err
		}
		intents = append(intents, *intent)
	}
	return intents, nil
}

// PendingDeposits returns registered, unfinalized deposits in registration
// order.
func (vm *VM) PendingDeposits(limit int) []ids.ID {
	vm.mu.RLock()
	defer vm.mu.RUnlock()

	return vm.state.PendingDeposits(limit)
}

func (vm *VM) Audit() (*AuditReport, error) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()

	sum, err := vm.state.BalanceSum()
	if err != nil {
		return nil, err
	}
	p := vm.state.GetProtocol()
	expected := new(uint256.Int).SetUint64(p.TotalBridged)
	expected.Add(expected, new(uint256.Int).SetUint64(p.EmergencyMinted))
	return &AuditReport{
		BalanceSum:      sum,
		TotalBridged:    p.TotalBridged,
		EmergencyMinted: p.EmergencyMinted,
		Balanced:        sum.Eq(expected),
	}, nil
}
