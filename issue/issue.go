// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package issue - mint one batch for an account
//
// the sequence is: allocate a range, assign metadata, build the tree,
// commit the root to the ledger, and only on a confirmed commit record
// the batch; any failure aborts with no batch recorded, the burnt
// identifier range is the accepted cost
package issue

import (
	"context"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/merklemintd/allocator"
	"github.com/bitmark-inc/merklemintd/batch"
	"github.com/bitmark-inc/merklemintd/counter"
	"github.com/bitmark-inc/merklemintd/fault"
	"github.com/bitmark-inc/merklemintd/ledger"
	"github.com/bitmark-inc/merklemintd/merkle"
	"github.com/bitmark-inc/merklemintd/metadata"
)

const defaultCommitTimeout = 2 * time.Minute

// globals
type globalDataType struct {
	sync.Mutex
	log           *logger.L
	client        ledger.Client
	picker        metadata.Picker
	batchSize     uint64
	commitTimeout time.Duration

	// ranges allocated but not yet recorded as batches; the metadata
	// orphan sweep must not reclaim these mid-commit
	pending map[uint64]uint64 // startId → count

	attempts counter.Counter
	failures counter.Counter

	initialised bool
}

var globalData globalDataType

// Initialise - set up issuance
func Initialise(client ledger.Client, picker metadata.Picker, batchSize uint64, commitTimeout time.Duration) error {
	globalData.Lock()
	defer globalData.Unlock()

	if globalData.initialised {
		return fault.ErrAlreadyInitialised
	}
	if 0 == batchSize {
		return fault.ErrInvalidCount
	}

	globalData.log = logger.New("issue")
	globalData.log.Info("starting…")

	globalData.client = client
	globalData.picker = picker
	globalData.batchSize = batchSize
	globalData.commitTimeout = commitTimeout
	if 0 == globalData.commitTimeout {
		globalData.commitTimeout = defaultCommitTimeout
	}
	globalData.pending = make(map[uint64]uint64)

	globalData.initialised = true
	return nil
}

// Finalise - shutdown issuance
func Finalise() error {
	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return fault.ErrNotInitialised
	}

	globalData.log.Info("shutting down…")
	globalData.initialised = false
	return nil
}

// Attempts - total issuance attempts
func Attempts() uint64 { return globalData.attempts.Uint64() }

// Failures - total failed issuance attempts
func Failures() uint64 { return globalData.failures.Uint64() }

// PendingIds - identifiers of in-flight allocations
//
// lifecycle cleanup extends its metadata keep-set with these so an
// orphan sweep cannot reclaim entries for a batch that is still being
// committed
func PendingIds() map[uint64]struct{} {
	globalData.Lock()
	defer globalData.Unlock()

	ids := make(map[uint64]struct{})
	for startId, count := range globalData.pending {
		for i := uint64(0); i < count; i += 1 {
			ids[startId+i] = struct{}{}
		}
	}
	return ids
}

// Mint - allocate, commit and record one batch for an owner
func Mint(owner string) (*batch.Batch, error) {
	owner = batch.CanonicalOwner(owner)
	if "" == owner {
		return nil, fault.ErrInvalidOwner
	}

	globalData.Lock()
	if !globalData.initialised {
		globalData.Unlock()
		return nil, fault.ErrNotInitialised
	}
	client := globalData.client
	picker := globalData.picker
	batchSize := globalData.batchSize
	commitTimeout := globalData.commitTimeout
	log := globalData.log
	globalData.Unlock()

	globalData.attempts.Increment()

	startId, err := allocator.Allocate(batchSize)
	if nil != err {
		globalData.failures.Increment()
		log.Errorf("mint: owner: %s  allocate error: %s", owner, err)
		return nil, err
	}

	globalData.Lock()
	globalData.pending[startId] = batchSize
	globalData.Unlock()

	defer func() {
		globalData.Lock()
		delete(globalData.pending, startId)
		globalData.Unlock()
	}()

	ids := make([]uint64, batchSize)
	for i := uint64(0); i < batchSize; i += 1 {
		id := startId + i
		ids[i] = id
		metadata.Put(id, picker.PickURI())
	}

	tree := merkle.NewTree(ids)
	root := tree.Root()

	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()

	confirmation, err := client.Commit(ctx, root)
	if nil != err {
		globalData.failures.Increment()
		log.Errorf("mint: owner: %s  root: %s  commit error: %s", owner, root, err)
		if !fault.IsErrLedger(err) {
			err = fault.ErrLedgerCommitFailed
		}
		return nil, err
	}

	committedAt := confirmation.Timestamp
	if 0 == committedAt {
		committedAt = uint64(time.Now().Unix())
	}

	b := &batch.Batch{
		Owner:       owner,
		StartId:     startId,
		Count:       batchSize,
		Root:        root,
		CommittedAt: committedAt,
		Seq:         confirmation.Seq,
	}

	if err := batch.Append(b); nil != err {
		// the root is on the ledger but the local record failed;
		// this cannot be rolled back, only reported
		globalData.failures.Increment()
		log.Criticalf("mint: owner: %s  seq: %d  append error: %s", owner, confirmation.Seq, err)
		return nil, err
	}

	log.Infof("mint: owner: %s  range: [%d..%d]  root: %s  seq: %d", owner, startId, startId+batchSize-1, root, confirmation.Seq)
	return b, nil
}
