// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/btcbridge/vms/bridgevm/state"
	"github.com/luxfi/btcbridge/vms/bridgevm/txs"
)

var _ Metrics = (*metrics)(nil)

type Metrics interface {
	// MarkTxAccepted counts a committed tx by type.
	MarkTxAccepted(tx txs.UnsignedTx) error
	// MarkTxRejected counts a failed tx by type and rejection kind.
	MarkTxRejected(tx txs.UnsignedTx, err error) error
	// SetProtocol updates the ledger gauges after a commit.
	SetProtocol(p state.Protocol)
}

type metrics struct {
	accepted *prometheus.CounterVec
	rejected *prometheus.CounterVec

	totalBridged     prometheus.Gauge
	emergencyMinted  prometheus.Gauge
	paused           prometheus.Gauge
	height           prometheus.Gauge
	withdrawalIntent prometheus.Gauge
}

func New(registerer prometheus.Registerer) (Metrics, error) {
	m := &metrics{
		accepted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txs_accepted",
				Help: "number of transactions accepted",
			},
			[]string{txLabel},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txs_rejected",
				Help: "number of transactions rejected",
			},
			[]string{txLabel, reasonLabel},
		),
		totalBridged: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "total_bridged",
			Help: "amount minted by finalized deposits and not yet withdrawn",
		}),
		emergencyMinted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "emergency_minted",
			Help: "amount credited by emergency withdrawals",
		}),
		paused: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "paused",
			Help: "1 if the bridge is paused",
		}),
		height: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "last_processed_height",
			Help: "height of the last committed operation",
		}),
		withdrawalIntent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "withdrawal_intents",
			Help: "number of recorded withdrawal intents",
		}),
	}

	err := errors.Join(
		registerer.Register(m.accepted),
		registerer.Register(m.rejected),
		registerer.Register(m.totalBridged),
		registerer.Register(m.emergencyMinted),
		registerer.Register(m.paused),
		registerer.Register(m.height),
		registerer.Register(m.withdrawalIntent),
	)
	return m, err
}

func (m *metrics) MarkTxAccepted(tx txs.UnsignedTx) error {
	label, err := labelOf(tx)
	if err != nil {
		return err
	}
	m.accepted.WithLabelValues(label).Inc()
	return nil
}

func (m *metrics) MarkTxRejected(tx txs.UnsignedTx, txErr error) error {
	label, err := labelOf(tx)
	if err != nil {
		return err
	}
	m.rejected.WithLabelValues(label, txs.ErrorCode(txErr)).Inc()
	return nil
}

func (m *metrics) SetProtocol(p state.Protocol) {
	m.totalBridged.Set(float64(p.TotalBridged))
	m.emergencyMinted.Set(float64(p.EmergencyMinted))
	if p.Paused {
		m.paused.Set(1)
	} else {
		m.paused.Set(0)
	}
	m.height.Set(float64(p.LastProcessedHeight))
	m.withdrawalIntent.Set(float64(p.NextWithdrawalIndex))
}
