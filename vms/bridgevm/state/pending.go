// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"bytes"

	"github.com/google/btree"

	"github.com/luxfi/ids"
)

const pendingDegree = 16

type pendingEntry struct {
	registeredAt uint64
	txID         ids.ID
}

func (e pendingEntry) Less(o pendingEntry) bool {
	if e.registeredAt != o.registeredAt {
		return e.registeredAt < o.registeredAt
	}
	return bytes.Compare(e.txID[:], o.txID[:]) < 0
}

// pendingIndex orders the registered but unfinalized deposits by the height
// they were registered at.
type pendingIndex struct {
	tree *btree.BTreeG[pendingEntry]
}

func newPendingIndex() *pendingIndex {
	return &pendingIndex{
		tree: btree.NewG(pendingDegree, pendingEntry.Less),
	}
}

func (p *pendingIndex) add(d *Deposit) {
	p.tree.ReplaceOrInsert(pendingEntry{registeredAt: d.RegisteredAt, txID: d.TxID})
}

func (p *pendingIndex) remove(d *Deposit) {
	p.tree.Delete(pendingEntry{registeredAt: d.RegisteredAt, txID: d.TxID})
}

func (p *pendingIndex) list(limit int) []ids.ID {
	size := p.tree.Len()
	if limit > 0 && limit < size {
		size = limit
	}
	txIDs := make([]ids.ID, 0, size)
	p.tree.Ascend(func(e pendingEntry) bool {
		txIDs = append(txIDs, e.txID)
		return len(txIDs) < size
	})
	return txIDs
}
