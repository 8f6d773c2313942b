// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bvm

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/btcbridge/vms/bridgevm/config"
)

// VMID is the unique identifier of the BTC bridge VM.
var VMID = ids.ID{'b', 't', 'c', 'b', 'r', 'i', 'd', 'g', 'e'}

// Factory creates bridge VMs from raw JSON config.
type Factory struct {
	Log        log.Logger
	Registerer prometheus.Registerer
}

func (f *Factory) New(db database.Database, configBytes []byte) (*VM, error) {
	cfg, err := config.ParseConfig(configBytes)
	if err != nil {
		return nil, err
	}
	return New(db, cfg, f.Log, f.Registerer)
}
