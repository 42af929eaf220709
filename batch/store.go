// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package batch

import (
	"encoding/binary"
	"encoding/json"
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/merklemintd/fault"
	"github.com/bitmark-inc/merklemintd/storage"
)

// globals
type globalDataType struct {
	sync.RWMutex
	log         *logger.L
	batches     []*Batch // ordered by Seq
	initialised bool
}

var globalData globalDataType

// Initialise - load the batch table from the store
func Initialise() error {
	globalData.Lock()
	defer globalData.Unlock()

	if globalData.initialised {
		return fault.ErrAlreadyInitialised
	}

	globalData.log = logger.New("batch")
	globalData.log.Info("starting…")

	globalData.batches = make([]*Batch, 0, 16)

	var loadError error
	storage.Pool.Batches.Range(func(key []byte, value []byte) bool {
		b := &Batch{}
		if err := json.Unmarshal(value, b); nil != err {
			globalData.log.Criticalf("corrupt batch record: %x  error: %s", key, err)
			loadError = err
			return false
		}
		globalData.batches = append(globalData.batches, b)
		return true
	})
	if nil != loadError {
		return loadError
	}

	globalData.log.Infof("loaded %d batches", len(globalData.batches))
	globalData.initialised = true
	return nil
}

// Finalise - shutdown the batch table
func Finalise() error {
	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return fault.ErrNotInitialised
	}

	globalData.log.Info("shutting down…")
	globalData.batches = nil
	globalData.initialised = false
	return nil
}

// 8 byte big endian sequence key
func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

// durably record one batch
func persist(b *Batch) error {
	value, err := json.Marshal(b)
	if nil != err {
		return err
	}
	storage.Pool.Batches.Put(seqKey(b.Seq), value)
	return nil
}

// Append - durably record a new batch
//
// rejects a range that overlaps any existing batch, whatever its
// owner: identifiers are globally unique
func Append(b *Batch) error {
	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return fault.ErrNotInitialised
	}

	for _, existing := range globalData.batches {
		if existing.Seq == b.Seq {
			return fault.ErrBatchAlreadyExists
		}
		if existing.overlaps(b) {
			return fault.ErrRangeOverlap
		}
	}

	if err := persist(b); nil != err {
		return err
	}

	globalData.batches = append(globalData.batches, b)
	globalData.log.Infof("append: owner: %s  range: [%d..%d]  seq: %d", b.Owner, b.StartId, b.StartId+b.Count-1, b.Seq)
	return nil
}

// ListOwner - copies of all batches belonging to one owner
func ListOwner(owner string) []Batch {
	owner = CanonicalOwner(owner)

	globalData.RLock()
	defer globalData.RUnlock()

	list := make([]Batch, 0, 4)
	for _, b := range globalData.batches {
		if owner == b.Owner {
			list = append(list, *b)
		}
	}
	return list
}

// ListAll - copies of every batch
func ListAll() []Batch {
	globalData.RLock()
	defer globalData.RUnlock()

	list := make([]Batch, len(globalData.batches))
	for i, b := range globalData.batches {
		list[i] = *b
	}
	return list
}

// FindOwning - the batch whose range contains id for the given owner
func FindOwning(owner string, id uint64) (Batch, bool) {
	owner = CanonicalOwner(owner)

	globalData.RLock()
	defer globalData.RUnlock()

	for _, b := range globalData.batches {
		if owner == b.Owner && b.Covers(id) {
			return *b, true
		}
	}
	return Batch{}, false
}

// ReplaceAll - atomically swap the full collection
func ReplaceAll(survivors []Batch) error {
	globalData.Lock()
	defer globalData.Unlock()
	return replaceAll(survivors)
}

// replaceAll - rewrite memory and store, lock already held
func replaceAll(survivors []Batch) error {
	if !globalData.initialised {
		return fault.ErrNotInitialised
	}

	// remove rows that are not surviving
	surviving := make(map[uint64]struct{}, len(survivors))
	for i := range survivors {
		surviving[survivors[i].Seq] = struct{}{}
	}
	for _, b := range globalData.batches {
		if _, ok := surviving[b.Seq]; !ok {
			storage.Pool.Batches.Delete(seqKey(b.Seq))
		}
	}

	batches := make([]*Batch, len(survivors))
	for i := range survivors {
		b := survivors[i]
		if err := persist(&b); nil != err {
			return err
		}
		batches[i] = &b
	}

	globalData.batches = batches
	return nil
}

// Sweep - remove every batch rejected by keep
//
// the filter runs inside the store's critical section, so an append
// racing with a cleanup pass cannot be dropped; returns the removed
// batches
func Sweep(keep func(b Batch) bool) ([]Batch, error) {
	return SweepOwner("", keep)
}

// SweepOwner - scoped sweep limited to one owner's batches
//
// empty owner sweeps globally; other owners' batches are never touched
func SweepOwner(owner string, keep func(b Batch) bool) ([]Batch, error) {
	owner = CanonicalOwner(owner)

	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return nil, fault.ErrNotInitialised
	}

	survivors := make([]Batch, 0, len(globalData.batches))
	removed := make([]Batch, 0, 4)
	for _, b := range globalData.batches {
		scoped := "" == owner || owner == b.Owner
		if scoped && !keep(*b) {
			removed = append(removed, *b)
			continue
		}
		survivors = append(survivors, *b)
	}

	if 0 == len(removed) {
		return nil, nil
	}

	if err := replaceAll(survivors); nil != err {
		return nil, err
	}
	return removed, nil
}
