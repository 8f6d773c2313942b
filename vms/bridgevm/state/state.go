// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/luxfi/cache"
	"github.com/luxfi/cache/lru"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/ids"
)

var (
	_ State = (*state)(nil)

	validatorPrefix   = []byte("validator")
	depositPrefix     = []byte("deposit")
	attestationPrefix = []byte("attestation")
	balancePrefix     = []byte("balance")
	withdrawalPrefix  = []byte("withdrawal")
	singletonPrefix   = []byte("singleton")

	protocolKey = []byte("protocol")

	activeValidator = []byte{1}

	ErrCorruptedState = errors.New("corrupted state")
)

// Chain is the read/write surface shared by the committed state and diffs
// layered on top of it.
type Chain interface {
	GetProtocol() Protocol
	SetProtocol(Protocol)

	IsValidator(ids.ShortID) (bool, error)
	SetValidator(validator ids.ShortID, active bool)

	// GetDeposit returns database.ErrNotFound if txID was never registered.
	GetDeposit(txID ids.ID) (*Deposit, error)
	PutDeposit(*Deposit)

	// GetAttestation returns database.ErrNotFound if validator never
	// attested to txID.
	GetAttestation(txID ids.ID, validator ids.ShortID) (*Attestation, error)
	PutAttestation(*Attestation)

	// GetBalance returns 0 for accounts that were never credited.
	GetBalance(ids.ShortID) (uint64, error)
	SetBalance(account ids.ShortID, amount uint64)

	GetWithdrawal(index uint64) (*WithdrawalIntent, error)
	PutWithdrawal(*WithdrawalIntent)
}

type State interface {
	Chain

	// PendingDeposits returns up to [limit] unfinalized deposits ordered by
	// registration height. A limit of 0 returns all of them.
	PendingDeposits(limit int) []ids.ID

	// BalanceSum returns the sum of all account balances.
	BalanceSum() (*uint256.Int, error)

	// Commit writes all pending modifications to the underlying database.
	Commit() error
	// Abort discards all pending modifications.
	Abort()
	Close() error
}

type attestationKey struct {
	txID      ids.ID
	validator ids.ShortID
}

func (k attestationKey) Bytes() []byte {
	b := make([]byte, 0, ids.IDLen+ids.ShortIDLen)
	b = append(b, k.txID[:]...)
	return append(b, k.validator[:]...)
}

type state struct {
	baseDB *versiondb.Database

	validatorDB   database.Database
	depositDB     database.Database
	attestationDB database.Database
	balanceDB     database.Database
	withdrawalDB  database.Database
	singletonDB   database.Database

	depositCacheSize int
	depositCache     cache.Cacher[ids.ID, *Deposit] // nil means known-missing

	protocol          Protocol
	persistedProtocol Protocol

	modifiedValidators   map[ids.ShortID]bool
	modifiedDeposits     map[ids.ID]*Deposit
	modifiedAttestations map[attestationKey]*Attestation
	modifiedBalances     map[ids.ShortID]uint64
	addedWithdrawals     map[uint64]*WithdrawalIntent

	pending *pendingIndex
}

// New opens the bridge state on top of db, loading the protocol singleton and
// rebuilding the pending-deposit index.
func New(db database.Database, depositCacheSize int) (State, error) {
	baseDB := versiondb.New(db)
	s := &state{
		baseDB:               baseDB,
		validatorDB:          prefixdb.New(validatorPrefix, baseDB),
		depositDB:            prefixdb.New(depositPrefix, baseDB),
		attestationDB:        prefixdb.New(attestationPrefix, baseDB),
		balanceDB:            prefixdb.New(balancePrefix, baseDB),
		withdrawalDB:         prefixdb.New(withdrawalPrefix, baseDB),
		singletonDB:          prefixdb.New(singletonPrefix, baseDB),
		depositCacheSize:     depositCacheSize,
		depositCache:         lru.NewCache[ids.ID, *Deposit](depositCacheSize),
		modifiedValidators:   make(map[ids.ShortID]bool),
		modifiedDeposits:     make(map[ids.ID]*Deposit),
		modifiedAttestations: make(map[attestationKey]*Attestation),
		modifiedBalances:     make(map[ids.ShortID]uint64),
		addedWithdrawals:     make(map[uint64]*WithdrawalIntent),
		pending:              newPendingIndex(),
	}
	if err := s.loadProtocol(); err != nil {
		return nil, err
	}
	if err := s.loadPending(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *state) loadProtocol() error {
	bytes, err := s.singletonDB.Get(protocolKey)
	switch {
	case err == database.ErrNotFound:
		s.protocol = Protocol{}
	case err != nil:
		return err
	default:
		if _, err := Codec.Unmarshal(bytes, &s.protocol); err != nil {
			return fmt.Errorf("%w: protocol: %w", ErrCorruptedState, err)
		}
	}
	s.persistedProtocol = s.protocol
	return nil
}

func (s *state) loadPending() error {
	it := s.depositDB.NewIterator()
	defer it.Release()

	for it.Next() {
		var d Deposit
		if _, err := Codec.Unmarshal(it.Value(), &d); err != nil {
			return fmt.Errorf("%w: deposit %x: %w", ErrCorruptedState, it.Key(), err)
		}
		if !d.Finalized {
			s.pending.add(&d)
		}
	}
	return it.Error()
}

func (s *state) GetProtocol() Protocol {
	return s.protocol
}

func (s *state) SetProtocol(p Protocol) {
	s.protocol = p
}

func (s *state) IsValidator(validator ids.ShortID) (bool, error) {
	if active, ok := s.modifiedValidators[validator]; ok {
		return active, nil
	}
	has, err := s.validatorDB.Has(validator[:])
	return has, err
}

func (s *state) SetValidator(validator ids.ShortID, active bool) {
	s.modifiedValidators[validator] = active
}

func (s *state) GetDeposit(txID ids.ID) (*Deposit, error) {
	if d, ok := s.modifiedDeposits[txID]; ok {
		return d, nil
	}
	if d, ok := s.depositCache.Get(txID); ok {
		if d == nil {
			return nil, database.ErrNotFound
		}
		return d, nil
	}

	bytes, err := s.depositDB.Get(txID[:])
	if err == database.ErrNotFound {
		s.depositCache.Put(txID, nil)
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	d := &Deposit{}
	if _, err := Codec.Unmarshal(bytes, d); err != nil {
		return nil, fmt.Errorf("%w: deposit %s: %w", ErrCorruptedState, txID, err)
	}
	s.depositCache.Put(txID, d)
	return d, nil
}

func (s *state) PutDeposit(d *Deposit) {
	s.modifiedDeposits[d.TxID] = d
}

func (s *state) GetAttestation(txID ids.ID, validator ids.ShortID) (*Attestation, error) {
	key := attestationKey{txID: txID, validator: validator}
	if a, ok := s.modifiedAttestations[key]; ok {
		return a, nil
	}

	bytes, err := s.attestationDB.Get(key.Bytes())
	if err != nil {
		return nil, err
	}
	a := &Attestation{}
	if _, err := Codec.Unmarshal(bytes, a); err != nil {
		return nil, fmt.Errorf("%w: attestation %s/%s: %w", ErrCorruptedState, txID, validator, err)
	}
	return a, nil
}

func (s *state) PutAttestation(a *Attestation) {
	s.modifiedAttestations[attestationKey{txID: a.TxID, validator: a.Validator}] = a
}

func (s *state) GetBalance(account ids.ShortID) (uint64, error) {
	if balance, ok := s.modifiedBalances[account]; ok {
		return balance, nil
	}
	balance, err := database.GetUInt64(s.balanceDB, account[:])
	if err == database.ErrNotFound {
		return 0, nil
	}
	return balance, err
}

func (s *state) SetBalance(account ids.ShortID, amount uint64) {
	s.modifiedBalances[account] = amount
}

func (s *state) GetWithdrawal(index uint64) (*WithdrawalIntent, error) {
	if w, ok := s.addedWithdrawals[index]; ok {
		return w, nil
	}
	bytes, err := s.withdrawalDB.Get(database.PackUInt64(index))
	if err != nil {
		return nil, err
	}
	w := &WithdrawalIntent{}
	if _, err := Codec.Unmarshal(bytes, w); err != nil {
		return nil, fmt.Errorf("%w: withdrawal %d: %w", ErrCorruptedState, index, err)
	}
	return w, nil
}

func (s *state) PutWithdrawal(w *WithdrawalIntent) {
	s.addedWithdrawals[w.Index] = w
}

func (s *state) PendingDeposits(limit int) []ids.ID {
	return s.pending.list(limit)
}

func (s *state) BalanceSum() (*uint256.Int, error) {
	it := s.balanceDB.NewIterator()
	defer it.Release()

	var (
		sum     = new(uint256.Int)
		balance = new(uint256.Int)
	)
	for it.Next() {
		amount, err := database.ParseUInt64(it.Value())
		if err != nil {
			return nil, fmt.Errorf("%w: balance %x: %w", ErrCorruptedState, it.Key(), err)
		}
		sum.Add(sum, balance.SetUint64(amount))
	}
	return sum, it.Error()
}

func (s *state) Commit() error {
	defer s.Abort()

	if err := s.write(); err != nil {
		return err
	}
	batch, err := s.baseDB.CommitBatch()
	if err != nil {
		return err
	}
	if err := batch.Write(); err != nil {
		return err
	}

	s.persistedProtocol = s.protocol
	for txID, d := range s.modifiedDeposits {
		s.depositCache.Put(txID, d)
		if d.Finalized {
			s.pending.remove(d)
		} else {
			s.pending.add(d)
		}
	}
	s.clearModified()
	return nil
}

// Abort drops everything that was not committed. After a successful Commit
// there is nothing left to drop.
func (s *state) Abort() {
	s.baseDB.Abort()
	if len(s.modifiedValidators) == 0 &&
		len(s.modifiedDeposits) == 0 &&
		len(s.modifiedAttestations) == 0 &&
		len(s.modifiedBalances) == 0 &&
		len(s.addedWithdrawals) == 0 &&
		s.protocol == s.persistedProtocol {
		return
	}
	s.protocol = s.persistedProtocol
	s.clearModified()
	s.depositCache = lru.NewCache[ids.ID, *Deposit](s.depositCacheSize)
}

func (s *state) Close() error {
	return s.baseDB.Close()
}

func (s *state) clearModified() {
	clear(s.modifiedValidators)
	clear(s.modifiedDeposits)
	clear(s.modifiedAttestations)
	clear(s.modifiedBalances)
	clear(s.addedWithdrawals)
}

func (s *state) write() error {
	return errors.Join(
		s.writeProtocol(),
		s.writeValidators(),
		s.writeDeposits(),
		s.writeAttestations(),
		s.writeBalances(),
		s.writeWithdrawals(),
	)
}

func (s *state) writeProtocol() error {
	if s.protocol == s.persistedProtocol {
		return nil
	}
	bytes, err := Codec.Marshal(CodecVersion, &s.protocol)
	if err != nil {
		return fmt.Errorf("failed to serialize protocol: %w", err)
	}
	return s.singletonDB.Put(protocolKey, bytes)
}

func (s *state) writeValidators() error {
	for validator, active := range s.modifiedValidators {
		var err error
		if active {
			err = s.validatorDB.Put(validator[:], activeValidator)
		} else {
			err = s.validatorDB.Delete(validator[:])
		}
		if err != nil {
			return fmt.Errorf("failed to write validator %s: %w", validator, err)
		}
	}
	return nil
}

func (s *state) writeDeposits() error {
	for txID, d := range s.modifiedDeposits {
		bytes, err := Codec.Marshal(CodecVersion, d)
		if err != nil {
			return fmt.Errorf("failed to serialize deposit %s: %w", txID, err)
		}
		if err := s.depositDB.Put(txID[:], bytes); err != nil {
			return fmt.Errorf("failed to write deposit %s: %w", txID, err)
		}
	}
	return nil
}

func (s *state) writeAttestations() error {
	for key, a := range s.modifiedAttestations {
		bytes, err := Codec.Marshal(CodecVersion, a)
		if err != nil {
			return fmt.Errorf("failed to serialize attestation: %w", err)
		}
		if err := s.attestationDB.Put(key.Bytes(), bytes); err != nil {
			return fmt.Errorf("failed to write attestation: %w", err)
		}
	}
	return nil
}

func (s *state) writeBalances() error {
	for account, balance := range s.modifiedBalances {
		var err error
		if balance == 0 {
			err = s.balanceDB.Delete(account[:])
		} else {
			err = database.PutUInt64(s.balanceDB, account[:], balance)
		}
		if err != nil {
			return fmt.Errorf("failed to write balance of %s: %w", account, err)
		}
	}
	return nil
}

func (s *state) writeWithdrawals() error {
	for index, w := range s.addedWithdrawals {
		bytes, err := Codec.Marshal(CodecVersion, w)
		if err != nil {
			return fmt.Errorf("failed to serialize withdrawal %d: %w", index, err)
		}
		if err := s.withdrawalDB.Put(database.PackUInt64(index), bytes); err != nil {
			return fmt.Errorf("failed to write withdrawal %d: %w", index, err)
		}
	}
	return nil
}
