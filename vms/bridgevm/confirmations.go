// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bvm

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/btcbridge/vms/bridgevm/feed"
	"github.com/luxfi/btcbridge/vms/bridgevm/txs"
)

const maxConcurrentFeedQueries = 8

type feedResult struct {
	confirmations uint32
	ok            bool
}

// SyncConfirmations queries f for every pending deposit and records the depths
// that changed. Queries that fail are logged and retried on the next sync. It
// returns the number of deposits updated.
func (vm *VM) SyncConfirmations(ctx context.Context, f feed.ConfirmationFeed) (int, error) {
	pending := vm.PendingDeposits(0)
	if len(pending) == 0 {
		return 0, nil
	}

	results := make([]feedResult, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFeedQueries)
	for i, txID := range pending {
		g.Go(func() error {
			confirmations, err := f.GetConfirmations(gctx, txID)
			if err != nil {
				vm.log.Warn("failed to fetch confirmations",
					log.Stringer("txID", txID),
					log.Err(err),
				)
				return nil
			}
			results[i] = feedResult{confirmations: confirmations, ok: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	updated := 0
	for i, txID := range pending {
		if !results[i].ok {
			continue
		}
		changed, err := vm.recordIfChanged(txID, results[i].confirmations)
		if err != nil {
			return updated, err
		}
		if changed {
			updated++
		}
	}
	return updated, nil
}

func (vm *VM) recordIfChanged(txID ids.ID, confirmations uint32) (bool, error) {
	deposit, err := vm.GetDeposit(txID)
	if err != nil {
		return false, err
	}
	if deposit.Finalized || deposit.Confirmations == confirmations {
		return false, nil
	}

	err = vm.RecordConfirmations(vm.config.AdminAddress, txID[:], confirmations)
	if errors.Is(err, txs.ErrAlreadyProcessed) {
		// finalized since it was read
		return false, nil
	}
	return err == nil, err
}

// RunConfirmationSync calls SyncConfirmations every configured interval until
// ctx is cancelled.
func (vm *VM) RunConfirmationSync(ctx context.Context, f feed.ConfirmationFeed) error {
	ticker := time.NewTicker(vm.config.ConfirmationSyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		updated, err := vm.SyncConfirmations(ctx, f)
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			vm.log.Error("confirmation sync failed", log.Err(err))
		case updated > 0:
			vm.log.Debug("confirmations synced", log.Int("updated", updated))
		}
	}
}
