// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package run

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
)

const (
	HTTPAddressKey     = "http-address"
	DataDirKey         = "data-dir"
	ConfigFileKey      = "config-file"
	ConfigContentKey   = "config-content"
	AllowedOriginsKey  = "allowed-origins"
	ShutdownTimeoutKey = "shutdown-timeout"
	FeedURLKey         = "confirmation-feed-url"
)

func AddFlags(flags *pflag.FlagSet) {
	flags.String(HTTPAddressKey, "127.0.0.1:9650", "Address the JSON-RPC server listens on")
	flags.String(DataDirKey, "", "Directory of the ledger database. Empty keeps the ledger in memory")
	flags.String(ConfigFileKey, "", "Path of the JSON bridge config")
	flags.String(ConfigContentKey, "", "JSON bridge config. Takes precedence over --"+ConfigFileKey)
	flags.StringSlice(AllowedOriginsKey, nil, "Origins allowed to make cross-origin requests. Empty rejects every cross-origin request")
	flags.Duration(ShutdownTimeoutKey, 10*time.Second, "Maximum time to wait for in-flight requests on shutdown")
	flags.String(FeedURLKey, "", "Esplora API queried for deposit confirmations. Empty expects confirmations over RPC")
}

type Config struct {
	HTTPAddress     string
	DataDir         string
	ConfigBytes     []byte
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
	FeedURL         string
}

func ParseFlags(flags *pflag.FlagSet, args []string) (*Config, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	httpAddress, err := flags.GetString(HTTPAddressKey)
	if err != nil {
		return nil, err
	}

	dataDir, err := flags.GetString(DataDirKey)
	if err != nil {
		return nil, err
	}

	configBytes, err := readConfig(flags)
	if err != nil {
		return nil, err
	}

	allowedOrigins, err := flags.GetStringSlice(AllowedOriginsKey)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := flags.GetDuration(ShutdownTimeoutKey)
	if err != nil {
		return nil, err
	}

	feedURL, err := flags.GetString(FeedURLKey)
	if err != nil {
		return nil, err
	}

	return &Config{
		HTTPAddress:     httpAddress,
		DataDir:         dataDir,
		ConfigBytes:     configBytes,
		AllowedOrigins:  allowedOrigins,
		ShutdownTimeout: shutdownTimeout,
		FeedURL:         feedURL,
	}, nil
}

func readConfig(flags *pflag.FlagSet) ([]byte, error) {
	content, err := flags.GetString(ConfigContentKey)
	if err != nil {
		return nil, err
	}
	if content != "" {
		return []byte(content), nil
	}

	path, err := flags.GetString(ConfigFileKey)
	if err != nil || path == "" {
		return nil, err
	}
	configBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't read config file %q: %w", path, err)
	}
	return configBytes, nil
}
