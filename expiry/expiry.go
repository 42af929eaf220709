// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package expiry - batch validity and expiration cleanup
//
// a batch is revealable while now - committedAt < threshold; the
// threshold is read fresh on every check since it may be reconfigured
// at run time or sourced from the ledger
package expiry

import (
	"sync"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/merklemintd/background"
	"github.com/bitmark-inc/merklemintd/batch"
	"github.com/bitmark-inc/merklemintd/counter"
	"github.com/bitmark-inc/merklemintd/fault"
	"github.com/bitmark-inc/merklemintd/issue"
	"github.com/bitmark-inc/merklemintd/metadata"
)

const defaultSweepInterval = 5 * time.Minute

// ThresholdSource - supplies the current reveal threshold in seconds
//
// consulted on every validity check, never cached here
type ThresholdSource interface {
	RevealThreshold() uint64
}

// globals
type globalDataType struct {
	sync.Mutex
	log        *logger.L
	source     ThresholdSource
	interval   time.Duration
	background *background.T

	removedBatches  counter.Counter
	removedMetadata counter.Counter

	initialised bool
}

var globalData globalDataType

// Initialise - start the cleanup background process
func Initialise(source ThresholdSource, interval time.Duration) error {
	globalData.Lock()
	defer globalData.Unlock()

	if globalData.initialised {
		return fault.ErrAlreadyInitialised
	}

	globalData.log = logger.New("expiry")
	globalData.log.Info("starting…")

	globalData.source = source
	globalData.interval = interval
	if 0 == globalData.interval {
		globalData.interval = defaultSweepInterval
	}

	globalData.initialised = true

	processes := background.Processes{
		&cleaner{log: logger.New("expiry-sweep")},
	}
	globalData.background = background.Start(processes, nil)

	return nil
}

// Finalise - stop the cleanup background process
func Finalise() error {
	globalData.Lock()
	if !globalData.initialised {
		globalData.Unlock()
		return fault.ErrNotInitialised
	}
	globalData.log.Info("shutting down…")
	bg := globalData.background
	globalData.background = nil
	globalData.initialised = false
	globalData.Unlock()

	bg.Stop()
	return nil
}

// Threshold - the current reveal threshold, read fresh from the source
func Threshold() uint64 {
	globalData.Lock()
	source := globalData.source
	globalData.Unlock()
	if nil == source {
		return 0
	}
	return source.RevealThreshold()
}

// Revealable - check one batch against the reveal window
//
// the boundary is exclusive on the expired side: elapsed == threshold
// is already expired; a zero committedAt marks a legacy record and is
// treated as long expired rather than immortal
func Revealable(committedAt uint64, now time.Time, threshold uint64) bool {
	if 0 == committedAt {
		return false
	}
	elapsed := now.Unix() - int64(committedAt)
	return elapsed < int64(threshold)
}

// RemovedBatches - total batches removed by sweeps
func RemovedBatches() uint64 { return globalData.removedBatches.Uint64() }

// RemovedMetadata - total metadata entries removed by sweeps
func RemovedMetadata() uint64 { return globalData.removedMetadata.Uint64() }

// SweepExpiredBatches - drop every batch past the reveal window
//
// all batches are judged against a single now so a sweep cannot
// straddle the boundary; returns the number removed
func SweepExpiredBatches() (int, error) {
	now := time.Now()
	threshold := Threshold()

	removed, err := batch.Sweep(func(b batch.Batch) bool {
		return Revealable(b.CommittedAt, now, threshold)
	})
	if nil != err {
		return 0, err
	}

	globalData.removedBatches.Add(uint64(len(removed)))
	return len(removed), nil
}

// SweepOwnerBatches - drop all of one owner's batches
//
// destructive: sweeps that owner's batches regardless of expiry and
// leaves every other owner alone; only account removal wants this
func SweepOwnerBatches(owner string) (int, error) {
	removed, err := batch.SweepOwner(owner, func(b batch.Batch) bool {
		return false
	})
	if nil != err {
		return 0, err
	}

	globalData.removedBatches.Add(uint64(len(removed)))
	return len(removed), nil
}

// SweepOwnerExpiredBatches - drop one owner's batches past the reveal
// window, keeping the revealable ones
func SweepOwnerExpiredBatches(owner string) (int, error) {
	now := time.Now()
	threshold := Threshold()

	removed, err := batch.SweepOwner(owner, func(b batch.Batch) bool {
		return Revealable(b.CommittedAt, now, threshold)
	})
	if nil != err {
		return 0, err
	}

	globalData.removedBatches.Add(uint64(len(removed)))
	return len(removed), nil
}

// SweepOrphanedMetadata - drop metadata not covered by any remaining batch
//
// must run after a batch sweep in the same pass so metadata belonging
// to just-expired batches is reclaimed immediately; identifiers of
// in-flight issuances are kept even though their batch does not exist
// yet
//
// the keep set is built after the candidate scan, and pending ids are
// read before the batch list: a mint leaves the pending set only after
// its batch is appended, so a candidate absent from both was abandoned
// by a failed mint and is safe to reclaim
func SweepOrphanedMetadata() (int, error) {
	removed := metadata.RemoveOrphans(func() map[uint64]struct{} {
		keep := issue.PendingIds()
		for _, b := range batch.ListAll() {
			for _, id := range b.Ids() {
				keep[id] = struct{}{}
			}
		}
		return keep
	})

	globalData.removedMetadata.Add(uint64(removed))
	return removed, nil
}
