// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package batch - the authoritative record of committed batches
//
// a single mutex serialises every mutation, so an append can never be
// lost to a concurrent sweep's read-then-write; records are held in
// memory and mirrored to the Batches pool as JSON, keyed by the batch
// sequence number
package batch

import (
	"strings"

	"github.com/bitmark-inc/merklemintd/merkle"
)

// Batch - one committed range of token identifiers
//
// immutable once created, except for deletion by lifecycle cleanup
type Batch struct {
	Owner       string        `json:"owner"`       // canonical lowercase account
	StartId     uint64        `json:"startId"`     // first identifier of the range
	Count       uint64        `json:"count"`       // covers [StartId, StartId+Count)
	Root        merkle.Digest `json:"root"`        // committed merkle root
	CommittedAt uint64        `json:"committedAt"` // unix seconds of ledger acceptance
	Seq         uint64        `json:"seq"`         // position in the ledger's root history
}

// CanonicalOwner - normalise an account identifier
func CanonicalOwner(owner string) string {
	return strings.ToLower(strings.TrimSpace(owner))
}

// Covers - check if an identifier falls inside the batch range
func (b *Batch) Covers(id uint64) bool {
	return id >= b.StartId && id < b.StartId+b.Count
}

// Ids - every identifier of the batch range in ascending order
func (b *Batch) Ids() []uint64 {
	ids := make([]uint64, b.Count)
	for i := uint64(0); i < b.Count; i += 1 {
		ids[i] = b.StartId + i
	}
	return ids
}

// check two ranges for intersection
func (b *Batch) overlaps(other *Batch) bool {
	return b.StartId < other.StartId+other.Count &&
		other.StartId < b.StartId+b.Count
}
