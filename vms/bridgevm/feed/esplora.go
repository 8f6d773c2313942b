// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package feed

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/luxfi/ids"
)

const maxResponseSize = 1 << 16

var (
	_ ConfirmationFeed = (*Esplora)(nil)

	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrTipBehindTx      = errors.New("chain tip is below the tx's block")
)

// Esplora reads confirmation depths from an Esplora REST API. Tx ids are
// rendered in the byte order they were registered with.
type Esplora struct {
	baseURL string
	client  *http.Client
}

func NewEsplora(baseURL string, client *http.Client) *Esplora {
	if client == nil {
		client = http.DefaultClient
	}
	return &Esplora{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
}

type txStatus struct {
	Confirmed   bool   `json:"confirmed"`
	BlockHeight uint64 `json:"block_height"`
}

func (e *Esplora) GetConfirmations(ctx context.Context, txID ids.ID) (uint32, error) {
	body, err := e.get(ctx, "/tx/"+hex.EncodeToString(txID[:])+"/status")
	if err != nil {
		return 0, err
	}
	var status txStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return 0, fmt.Errorf("couldn't parse status of %s: %w", txID, err)
	}
	if !status.Confirmed {
		return 0, nil
	}

	body, err = e.get(ctx, "/blocks/tip/height")
	if err != nil {
		return 0, err
	}
	tip, err := strconv.ParseUint(strings.TrimSpace(string(body)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("couldn't parse tip height: %w", err)
	}
	if tip < status.BlockHeight {
		return 0, fmt.Errorf("%w: tip %d, block %d", ErrTipBehindTx, tip, status.BlockHeight)
	}

	depth := tip - status.BlockHeight + 1
	if depth > uint64(^uint32(0)) {
		depth = uint64(^uint32(0))
	}
	return uint32(depth), nil
}

func (e *Esplora) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w %d from %s", ErrUnexpectedStatus, resp.StatusCode, path)
	}
	return body, nil
}
