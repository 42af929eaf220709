// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package proof - reconstruct a batch's tree and extract an inclusion
// proof for one identifier
//
// the tree is rebuilt over the batch's entire range and its root is
// checked against the committed root before any proof is released; a
// mismatch is a consistency violation, not a user error
package proof

import (
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/merklemintd/batch"
	"github.com/bitmark-inc/merklemintd/expiry"
	"github.com/bitmark-inc/merklemintd/fault"
	"github.com/bitmark-inc/merklemintd/merkle"
	"github.com/bitmark-inc/merklemintd/metadata"
)

// rebuilt trees are kept briefly so a burst of reveals from one batch
// rebuilds once
const (
	treeCacheExpiry  = 2 * time.Minute
	treeCacheCleanup = 5 * time.Minute
)

// Reveal - everything needed to submit a reveal to the ledger
//
// Elapsed and Threshold are filled on an expired result for
// diagnostics
type Reveal struct {
	TokenId   uint64          `json:"tokenId"`
	URI       string          `json:"uri"`
	Leaf      merkle.Digest   `json:"leaf"`
	Root      merkle.Digest   `json:"root"`
	RootRef   uint64          `json:"rootRef"` // position in the ledger's root history
	Proof     []merkle.Digest `json:"proof"`
	Elapsed   int64           `json:"elapsed,omitempty"`
	Threshold uint64          `json:"threshold,omitempty"`
}

// globals
type globalDataType struct {
	sync.Mutex
	log         *logger.L
	trees       *gocache.Cache
	initialised bool
}

var globalData globalDataType

// Initialise - set up the reveal pipeline
func Initialise() error {
	globalData.Lock()
	defer globalData.Unlock()

	if globalData.initialised {
		return fault.ErrAlreadyInitialised
	}

	globalData.log = logger.New("proof")
	globalData.log.Info("starting…")

	globalData.trees = gocache.New(treeCacheExpiry, treeCacheCleanup)

	globalData.initialised = true
	return nil
}

// Finalise - shutdown the reveal pipeline
func Finalise() error {
	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return fault.ErrNotInitialised
	}

	globalData.log.Info("shutting down…")
	globalData.trees = nil
	globalData.initialised = false
	return nil
}

// DoReveal - produce an inclusion proof for one identifier
//
// on fault.ErrBatchExpired the returned Reveal carries the elapsed
// time and threshold for diagnostics; every other failure returns nil
func DoReveal(owner string, tokenId uint64) (*Reveal, error) {
	globalData.Lock()
	if !globalData.initialised {
		globalData.Unlock()
		return nil, fault.ErrNotInitialised
	}
	log := globalData.log
	trees := globalData.trees
	globalData.Unlock()

	b, ok := batch.FindOwning(owner, tokenId)
	if !ok {
		return nil, fault.ErrBatchNotFound
	}

	// threshold is read fresh, never cached
	now := time.Now()
	threshold := expiry.Threshold()
	if !expiry.Revealable(b.CommittedAt, now, threshold) {
		elapsed := now.Unix() - int64(b.CommittedAt)
		log.Warnf("reveal expired: owner: %s  token: %d  elapsed: %d  threshold: %d", b.Owner, tokenId, elapsed, threshold)
		return &Reveal{
			TokenId:   tokenId,
			Elapsed:   elapsed,
			Threshold: threshold,
		}, fault.ErrBatchExpired
	}

	uri, ok := metadata.Get(tokenId)
	if !ok {
		// a cleanup sweep may have removed the batch and its metadata
		// after the lookup above; re-check before declaring the store
		// inconsistent
		if _, stillThere := batch.FindOwning(owner, tokenId); !stillThere {
			return nil, fault.ErrBatchNotFound
		}
		log.Criticalf("metadata missing inside valid batch: owner: %s  token: %d  seq: %d", b.Owner, tokenId, b.Seq)
		return nil, fault.ErrMetadataNotFound
	}

	tree := treeFor(trees, &b)

	root := tree.Root()
	if root != b.Root {
		log.Criticalf("root mismatch: owner: %s  seq: %d  committed: %s  rebuilt: %s", b.Owner, b.Seq, b.Root, root)
		return nil, fault.ErrMerkleRootMismatch
	}

	siblings, err := tree.Proof(tokenId)
	if nil != err {
		return nil, err
	}

	return &Reveal{
		TokenId: tokenId,
		URI:     uri,
		Leaf:    merkle.LeafDigest(tokenId),
		Root:    root,
		RootRef: b.Seq,
		Proof:   siblings,
	}, nil
}

// rebuild the tree over the batch's full range, with a short cache
// keyed by the batch sequence
func treeFor(trees *gocache.Cache, b *batch.Batch) *merkle.Tree {
	key := strconv.FormatUint(b.Seq, 10)

	if cached, ok := trees.Get(key); ok {
		return cached.(*merkle.Tree)
	}

	tree := merkle.NewTree(b.Ids())
	trees.Set(key, tree, gocache.DefaultExpiration)
	return tree
}
