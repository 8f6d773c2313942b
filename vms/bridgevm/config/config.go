// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/luxfi/ids"
)

var (
	ErrMissingAdmin         = errors.New("admin address is required")
	ErrMissingBridgeAddress = errors.New("bridge address is required")
	ErrAdminIsBridge        = errors.New("admin address must differ from bridge address")
	ErrInvalidCacheSize     = errors.New("deposit cache size must be positive")
	ErrInvalidSyncInterval  = errors.New("confirmation sync interval must be positive")
	ErrInvalidPageSize      = errors.New("max withdrawals page must be positive")
)

var DefaultConfig = Config{
	DepositCacheSize:         2048,
	ConfirmationSyncInterval: 30 * time.Second,
	MaxWithdrawalsPage:       1024,
}

// Config of the bridge VM.
type Config struct {
	// AdminAddress is the only identity allowed to run admin operations.
	AdminAddress ids.ShortID `json:"adminAddress"`
	// BridgeAddress is the bridge's own identity.
	BridgeAddress ids.ShortID `json:"bridgeAddress"`

	DepositCacheSize         int           `json:"depositCacheSize"`
	ConfirmationSyncInterval time.Duration `json:"confirmationSyncInterval"`
	// MaxWithdrawalsPage caps the number of intents returned by one read.
	MaxWithdrawalsPage int `json:"maxWithdrawalsPage"`
	// AuthToken, if set, must be presented as a bearer token on every
	// state-mutating RPC call.
	AuthToken string `json:"authToken"`
}

// ParseConfig applies configBytes over DefaultConfig and verifies the result.
func ParseConfig(configBytes []byte) (Config, error) {
	cfg := DefaultConfig
	if len(configBytes) > 0 {
		if err := json.Unmarshal(configBytes, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	return cfg, cfg.Verify()
}

func (c *Config) Verify() error {
	switch {
	case c.AdminAddress == ids.ShortEmpty:
		return ErrMissingAdmin
	case c.BridgeAddress == ids.ShortEmpty:
		return ErrMissingBridgeAddress
	case c.AdminAddress == c.BridgeAddress:
		return ErrAdminIsBridge
	case c.DepositCacheSize <= 0:
		return ErrInvalidCacheSize
	case c.ConfirmationSyncInterval <= 0:
		return ErrInvalidSyncInterval
	case c.MaxWithdrawalsPage <= 0:
		return ErrInvalidPageSize
	default:
		return nil
	}
}
