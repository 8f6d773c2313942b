// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bvm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/luxfi/ids"

	"github.com/luxfi/btcbridge/vms/bridgevm/feed/feedmock"
	"github.com/luxfi/btcbridge/vms/bridgevm/state"
	"github.com/luxfi/btcbridge/vms/bridgevm/txs"
)

var errFeedUnavailable = errors.New("feed unavailable")

func TestSyncConfirmations(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)

	vm := newTestVM(t)
	recipient := ids.GenerateTestShortID()
	deep := newTxID()
	shallow := newTxID()
	broken := newTxID()
	for _, txID := range [][]byte{deep, shallow, broken} {
		require.NoError(vm.InitiateDeposit(vm.validator, txID, 500_000, recipient, testSender))
	}

	f := feedmock.NewConfirmationFeed(ctrl)
	f.EXPECT().GetConfirmations(gomock.Any(), ids.ID(deep)).Return(uint32(7), nil)
	f.EXPECT().GetConfirmations(gomock.Any(), ids.ID(shallow)).Return(uint32(0), nil)
	f.EXPECT().GetConfirmations(gomock.Any(), ids.ID(broken)).Return(uint32(0), errFeedUnavailable)

	updated, err := vm.SyncConfirmations(t.Context(), f)
	require.NoError(err)
	require.Equal(1, updated)

	deposit, err := vm.GetDeposit(ids.ID(deep))
	require.NoError(err)
	require.Equal(uint32(7), deposit.Confirmations)

	finalized, err := vm.ConfirmDeposit(vm.validator, deep, testSignature)
	require.NoError(err)
	require.True(finalized)

	_, err = vm.ConfirmDeposit(vm.validator, shallow, testSignature)
	require.ErrorIs(err, txs.ErrInvalidBridgeStatus)

	// Finalized deposits are no longer queried.
	f.EXPECT().GetConfirmations(gomock.Any(), ids.ID(shallow)).Return(uint32(2), nil)
	f.EXPECT().GetConfirmations(gomock.Any(), ids.ID(broken)).Return(uint32(3), nil)

	updated, err = vm.SyncConfirmations(t.Context(), f)
	require.NoError(err)
	require.Equal(2, updated)
}

func TestSyncConfirmationsNothingPending(t *testing.T) {
	ctrl := gomock.NewController(t)

	vm := newTestVM(t)
	updated, err := vm.SyncConfirmations(t.Context(), feedmock.NewConfirmationFeed(ctrl))
	require.NoError(t, err)
	require.Zero(t, updated)
}

func TestSyncConfirmationsCancelled(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)

	vm := newTestVM(t)
	require.NoError(vm.InitiateDeposit(vm.validator, newTxID(), 500_000, ids.GenerateTestShortID(), testSender))

	ctx, cancel := context.WithCancel(t.Context())
	f := feedmock.NewConfirmationFeed(ctrl)
	f.EXPECT().GetConfirmations(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, ids.ID) (uint32, error) {
			cancel()
			return 6, nil
		},
	)

	_, err := vm.SyncConfirmations(ctx, f)
	require.ErrorIs(err, context.Canceled)
	require.Equal(uint32(0), mustDeposit(t, vm, vm.PendingDeposits(0)[0]).Confirmations)
}

func TestRunConfirmationSync(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)

	cfg := newTestConfig()
	cfg.ConfirmationSyncInterval = time.Millisecond
	vm := newTestVMWithConfig(t, cfg)
	txID := newTxID()
	require.NoError(vm.InitiateDeposit(vm.validator, txID, 500_000, ids.GenerateTestShortID(), testSender))

	f := feedmock.NewConfirmationFeed(ctrl)
	f.EXPECT().GetConfirmations(gomock.Any(), ids.ID(txID)).Return(uint32(6), nil).MinTimes(1)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		done <- vm.RunConfirmationSync(ctx, f)
	}()

	require.Eventually(func() bool {
		deposit, err := vm.GetDeposit(ids.ID(txID))
		return err == nil && deposit.Confirmations == 6
	}, 5*time.Second, time.Millisecond)

	cancel()
	require.NoError(<-done)
}

func mustDeposit(t *testing.T, vm *testVM, txID ids.ID) *state.Deposit {
	deposit, err := vm.GetDeposit(txID)
	require.NoError(t, err)
	return deposit
}
