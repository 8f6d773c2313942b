// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"github.com/luxfi/ids"
)

const (
	SourceSenderLen = 33
	SignatureLen    = 65
	BTCAddressLen   = 34
)

// Deposit is an inbound transfer observed on the source chain. It is keyed
// by the source-chain transaction id and is never deleted.
type Deposit struct {
	TxID          ids.ID                `serialize:"true" json:"txID"`
	Amount        uint64                `serialize:"true" json:"amount"`
	Recipient     ids.ShortID           `serialize:"true" json:"recipient"`
	Finalized     bool                  `serialize:"true" json:"finalized"`
	Confirmations uint32                `serialize:"true" json:"confirmations"`
	RegisteredAt  uint64                `serialize:"true" json:"registeredAt"`
	SourceSender  [SourceSenderLen]byte `serialize:"true" json:"sourceSender"`
}

// Attestation records that a validator signed off on a deposit.
type Attestation struct {
	TxID        ids.ID             `serialize:"true" json:"txID"`
	Validator   ids.ShortID        `serialize:"true" json:"validator"`
	Signature   [SignatureLen]byte `serialize:"true" json:"signature"`
	SubmittedAt uint64             `serialize:"true" json:"submittedAt"`
}

// WithdrawalIntent is the durable request for an off-chain executor to pay
// out BTC. Intents are append-only and indexed from zero.
type WithdrawalIntent struct {
	Index        uint64              `serialize:"true" json:"index"`
	Amount       uint64              `serialize:"true" json:"amount"`
	Sender       ids.ShortID         `serialize:"true" json:"sender"`
	BTCRecipient [BTCAddressLen]byte `serialize:"true" json:"btcRecipient"`
	Timestamp    uint64              `serialize:"true" json:"timestamp"`
	Height       uint64              `serialize:"true" json:"height"`
}

// Protocol holds the bridge-wide singleton values.
type Protocol struct {
	Paused      bool `serialize:"true" json:"paused"`
	Initialized bool `serialize:"true" json:"initialized"`
	// TotalBridged is the amount minted by finalized deposits and not yet
	// burned by withdrawals.
	TotalBridged uint64 `serialize:"true" json:"totalBridged"`
	// EmergencyMinted is the amount credited by emergency withdrawals, which
	// do not touch TotalBridged.
	EmergencyMinted     uint64 `serialize:"true" json:"emergencyMinted"`
	LastProcessedHeight uint64 `serialize:"true" json:"lastProcessedHeight"`
	NextWithdrawalIndex uint64 `serialize:"true" json:"nextWithdrawalIndex"`
}
