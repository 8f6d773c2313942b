// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bvm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/rpc/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/database"
	"github.com/luxfi/geth/event"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/timer/mockable"
	"github.com/luxfi/utils/json"
	"github.com/luxfi/version"

	"github.com/luxfi/btcbridge/vms/bridgevm/config"
	"github.com/luxfi/btcbridge/vms/bridgevm/metrics"
	"github.com/luxfi/btcbridge/vms/bridgevm/state"
	"github.com/luxfi/btcbridge/vms/bridgevm/txs"
	"github.com/luxfi/btcbridge/vms/bridgevm/txs/executor"
)

var (
	Version = &version.Semantic{
		Major: 1,
		Minor: 0,
		Patch: 0,
	}

	ErrLedgerImbalance = errors.New("balances do not match bridged supply")
)

// VM owns the bridge ledger. Every state-mutating operation runs to
// completion under one lock and is committed atomically or not at all.
type VM struct {
	config  config.Config
	log     log.Logger
	metrics metrics.Metrics
	clock   mockable.Clock
	backend *executor.Backend

	state state.State

	withdrawalFeed event.FeedOf[state.WithdrawalIntent]
	finalizedFeed  event.FeedOf[state.Deposit]

	mu sync.RWMutex
}

// New opens the bridge ledger stored in db.
func New(
	db database.Database,
	cfg config.Config,
	logger log.Logger,
	registerer prometheus.Registerer,
) (*VM, error) {
	if err := cfg.Verify(); err != nil {
		return nil, err
	}

	s, err := state.New(db, cfg.DepositCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to open state: %w", err)
	}
	m, err := metrics.New(registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	vm := &VM{
		config:  cfg,
		log:     logger,
		metrics: m,
		state:   s,
	}
	vm.backend = &executor.Backend{
		Config: &vm.config,
		Ctx:    &txs.Context{BridgeAddress: cfg.BridgeAddress},
		Clk:    &vm.clock,
		Log:    logger,
	}

	p := s.GetProtocol()
	m.SetProtocol(p)
	logger.Info("bridge ledger opened",
		log.Stringer("admin", cfg.AdminAddress),
		log.Bool("paused", p.Paused),
		log.Uint64("totalBridged", p.TotalBridged),
		log.Uint64("height", p.LastProcessedHeight),
	)
	return vm, nil
}

// Clock is used to timestamp withdrawal intents.
func (vm *VM) Clock() *mockable.Clock {
	return &vm.clock
}

func (vm *VM) Config() config.Config {
	return vm.config
}

// CreateHandlers returns the JSON-RPC handler of the bridge service.
func (vm *VM) CreateHandlers(context.Context) (map[string]http.Handler, error) {
	codec := json.NewCodec()

	server := rpc.NewServer()
	server.RegisterCodec(codec, "application/json")
	server.RegisterCodec(codec, "application/json;charset=UTF-8")
	if err := server.RegisterService(NewService(vm), "bridge"); err != nil {
		return nil, err
	}
	return map[string]http.Handler{
		"": server,
	}, nil
}

// HealthCheck fails if the ledger does not balance.
func (vm *VM) HealthCheck(context.Context) (interface{}, error) {
	report, err := vm.Audit()
	if err != nil {
		return nil, err
	}
	if !report.Balanced {
		return report, ErrLedgerImbalance
	}
	return report, nil
}

func (vm *VM) Shutdown(context.Context) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	return vm.state.Close()
}

func (*VM) Version(context.Context) (string, error) {
	return Version.String(), nil
}

// SubscribeWithdrawals delivers every committed withdrawal intent to ch.
// Intents are delivered after the lock is released, so ch must be drained.
func (vm *VM) SubscribeWithdrawals(ch chan<- state.WithdrawalIntent) event.Subscription {
	return vm.withdrawalFeed.Subscribe(ch)
}

// SubscribeFinalized delivers every deposit as it is finalized.
func (vm *VM) SubscribeFinalized(ch chan<- state.Deposit) event.Subscription {
	return vm.finalizedFeed.Subscribe(ch)
}

func (vm *VM) InitializeBridge(caller ids.ShortID) error {
	_, err := vm.issue(&txs.InitializeBridgeTx{BaseTx: txs.BaseTx{Sender: caller}})
	return err
}

func (vm *VM) PauseBridge(caller ids.ShortID) error {
	_, err := vm.issue(&txs.PauseBridgeTx{BaseTx: txs.BaseTx{Sender: caller}})
	return err
}

func (vm *VM) ResumeBridge(caller ids.ShortID) error {
	_, err := vm.issue(&txs.ResumeBridgeTx{BaseTx: txs.BaseTx{Sender: caller}})
	return err
}

func (vm *VM) AddValidator(caller, validator ids.ShortID) error {
	_, err := vm.issue(&txs.AddValidatorTx{
		BaseTx:    txs.BaseTx{Sender: caller},
		Validator: validator,
	})
	return err
}

func (vm *VM) RemoveValidator(caller, validator ids.ShortID) error {
	_, err := vm.issue(&txs.RemoveValidatorTx{
		BaseTx:    txs.BaseTx{Sender: caller},
		Validator: validator,
	})
	return err
}

func (vm *VM) InitiateDeposit(
	caller ids.ShortID,
	txID []byte,
	amount uint64,
	recipient ids.ShortID,
	sourceSender []byte,
) error {
	_, err := vm.issue(&txs.InitiateDepositTx{
		BaseTx:       txs.BaseTx{Sender: caller},
		TxID:         txID,
		Amount:       amount,
		Recipient:    recipient,
		SourceSender: sourceSender,
	})
	return err
}

// ConfirmDeposit records the caller's attestation and, if the deposit is
// deep enough, finalizes it. The returned bool reports finalization.
func (vm *VM) ConfirmDeposit(caller ids.ShortID, txID []byte, signature []byte) (bool, error) {
	e, err := vm.issue(&txs.ConfirmDepositTx{
		BaseTx:    txs.BaseTx{Sender: caller},
		TxID:      txID,
		Signature: signature,
	})
	if err != nil {
		return false, err
	}
	return e.FinalizedDeposit != nil, nil
}

func (vm *VM) RecordConfirmations(caller ids.ShortID, txID []byte, confirmations uint32) error {
	_, err := vm.issue(&txs.RecordConfirmationsTx{
		BaseTx:        txs.BaseTx{Sender: caller},
		TxID:          txID,
		Confirmations: confirmations,
	})
	return err
}

func (vm *VM) Withdraw(caller ids.ShortID, amount uint64, btcRecipient []byte) (*state.WithdrawalIntent, error) {
	e, err := vm.issue(&txs.WithdrawTx{
		BaseTx:       txs.BaseTx{Sender: caller},
		Amount:       amount,
		BTCRecipient: btcRecipient,
	})
	if err != nil {
		return nil, err
	}
	intent := *e.WithdrawalIntent
	return &intent, nil
}

func (vm *VM) EmergencyWithdraw(caller ids.ShortID, amount uint64, recipient ids.ShortID) error {
	_, err := vm.issue(&txs.EmergencyWithdrawTx{
		BaseTx:    txs.BaseTx{Sender: caller},
		Amount:    amount,
		Recipient: recipient,
	})
	return err
}

// issue executes tx and commits the result. Events are published after the
// lock is released.
func (vm *VM) issue(tx txs.UnsignedTx) (*executor.StandardTxExecutor, error) {
	e, p, err := vm.execute(tx)
	if err != nil {
		if mErr := vm.metrics.MarkTxRejected(tx, err); mErr != nil {
			vm.log.Error("failed to record rejected tx", log.Err(mErr))
		}
		vm.log.Debug("tx rejected",
			log.Stringer("caller", tx.Caller()),
			log.String("reason", txs.ErrorCode(err)),
			log.Err(err),
		)
		return nil, err
	}

	if err := vm.metrics.MarkTxAccepted(tx); err != nil {
		vm.log.Error("failed to record accepted tx", log.Err(err))
	}
	vm.metrics.SetProtocol(p)

	if e.FinalizedDeposit != nil {
		vm.finalizedFeed.Send(*e.FinalizedDeposit)
	}
	if e.WithdrawalIntent != nil {
		vm.withdrawalFeed.Send(*e.WithdrawalIntent)
	}
	return e, nil
}

func (vm *VM) execute(tx txs.UnsignedTx) (*executor.StandardTxExecutor, state.Protocol, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	diff, err := state.NewDiffOn(vm.state)
	if err != nil {
		return nil, state.Protocol{}, err
	}

	height := diff.GetProtocol().LastProcessedHeight + 1
	e := &executor.StandardTxExecutor{
		Backend: vm.backend,
		State:   diff,
		Height:  height,
	}
	if err := tx.Visit(e); err != nil {
		return nil, state.Protocol{}, err
	}

	p := diff.GetProtocol()
	p.LastProcessedHeight = height
	diff.SetProtocol(p)

	if err := diff.Apply(vm.state); err != nil {
		vm.state.Abort()
		return nil, state.Protocol{}, err
	}
	if err := vm.state.Commit(); err != nil {
		return nil, state.Protocol{}, fmt.Errorf("failed to commit state: %w", err)
	}
	return e, p, nil
}
