// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"github.com/luxfi/log"
	"github.com/luxfi/timer/mockable"

	"github.com/luxfi/btcbridge/vms/bridgevm/config"
	"github.com/luxfi/btcbridge/vms/bridgevm/txs"
)

type Backend struct {
	Config *config.Config
	Ctx    *txs.Context
	Clk    *mockable.Clock
	Log    log.Logger
}
