// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package feed

import (
	"context"

	"github.com/luxfi/ids"
)

//go:generate go run go.uber.org/mock/mockgen -package=${GOPACKAGE}mock -destination=${GOPACKAGE}mock/confirmation_feed.go -mock_names=ConfirmationFeed=ConfirmationFeed . ConfirmationFeed

// ConfirmationFeed reports how deep a source-chain transaction is buried.
// Its answers are trusted as-is.
type ConfirmationFeed interface {
	GetConfirmations(ctx context.Context, txID ids.ID) (uint32, error)
}
