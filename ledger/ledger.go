// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ledger - access to the external ledger contract
//
// the contract keeps an ordered history of committed merkle roots and
// the on-chain reveal threshold; commit is all-or-nothing: callers
// must not record any local state unless Commit returns a confirmation
package ledger

import (
	"context"

	"github.com/bitmark-inc/merklemintd/merkle"
)

// Confirmation - result of a finalised root commit
type Confirmation struct {
	Seq       uint64 // position of the root in the contract's history
	TxId      string // ledger transaction reference
	Timestamp uint64 // unix seconds of acceptance
}

// Client - the ledger collaborator contract
type Client interface {
	// Commit - submit a new root, returns once finalised or errors;
	// the context bounds the wait
	Commit(ctx context.Context, root merkle.Digest) (Confirmation, error)

	// RevealThreshold - the on-chain reveal window in seconds
	RevealThreshold(ctx context.Context) (uint64, error)
}
