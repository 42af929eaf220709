// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package allocator - hand out contiguous, non-overlapping token
// identifier ranges
//
// the last allocated identifier is persisted before a range is
// returned, so a crash can only skip identifiers, never reuse them
package allocator

import (
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/merklemintd/fault"
	"github.com/bitmark-inc/merklemintd/storage"
)

// counter record inside the Counters pool
var lastIdKey = []byte("last-allocated-id")

// globals
type globalDataType struct {
	sync.Mutex
	log         *logger.L
	initialised bool
}

var globalData globalDataType

// Initialise - open the allocator
func Initialise() error {
	globalData.Lock()
	defer globalData.Unlock()

	if globalData.initialised {
		return fault.ErrAlreadyInitialised
	}

	globalData.log = logger.New("allocator")
	globalData.log.Info("starting…")

	last, _ := storage.Pool.Counters.GetN(lastIdKey)
	globalData.log.Infof("last allocated identifier: %d", last)

	globalData.initialised = true
	return nil
}

// Finalise - shutdown the allocator
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

// Allocate - reserve a contiguous identifier range
//
// returns the first identifier of the range; the counter advances
// exactly once per successful call and is never decremented, so two
// concurrent calls can never overlap and a failed caller leaves a gap
// rather than a reusable range
func Allocate(count uint64) (uint64, error) {
	if 0 == count {
		return 0, fault.ErrInvalidCount
	}

	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return 0, fault.ErrAllocatorNotInitialised
	}
	if !storage.IsAvailable() {
		return 0, fault.ErrCounterStoreUnavailable
	}

	last, _ := storage.Pool.Counters.GetN(lastIdKey)
	startId := last + 1

	// persist before returning so the range is burned even if the
	// caller never commits a batch
	storage.Pool.Counters.PutN(lastIdKey, last+count)

	globalData.log.Debugf("allocate: [%d..%d]", startId, last+count)
	return startId, nil
}

// LastAllocated - the highest identifier handed out so far
func LastAllocated() uint64 {
	globalData.Lock()
	defer globalData.Unlock()
	last, _ := storage.Pool.Counters.GetN(lastIdKey)
	return last
}
