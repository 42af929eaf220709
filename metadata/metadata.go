// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package metadata - the identifier → URI map
//
// entries are created when an identifier is allocated and removed
// only by lifecycle cleanup once the owning batch is gone
package metadata

import (
	"encoding/binary"
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/merklemintd/fault"
	"github.com/bitmark-inc/merklemintd/storage"
)

// globals
type globalDataType struct {
	sync.Mutex
	log         *logger.L
	initialised bool
}

var globalData globalDataType

// Initialise - open the metadata map
func Initialise() error {
	globalData.Lock()
	defer globalData.Unlock()

	if globalData.initialised {
		return fault.ErrAlreadyInitialised
	}

	globalData.log = logger.New("metadata")
	globalData.log.Info("starting…")

	globalData.initialised = true
	return nil
}

// Finalise - shutdown the metadata map
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

// 8 byte big endian identifier key
func idKey(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}

// Put - record the URI for an identifier
func Put(id uint64, uri string) {
	storage.Pool.Metadata.Put(idKey(id), []byte(uri))
}

// Get - fetch the URI for an identifier
func Get(id uint64) (string, bool) {
	value := storage.Pool.Metadata.Get(idKey(id))
	if nil == value {
		return "", false
	}
	return string(value), true
}

// Delete - remove one entry
func Delete(id uint64) {
	storage.Pool.Metadata.Delete(idKey(id))
}

// Ids - all identifiers currently mapped
func Ids() []uint64 {
	ids := make([]uint64, 0, 64)
	storage.Pool.Metadata.Range(func(key []byte, value []byte) bool {
		if 8 != len(key) {
			globalData.log.Criticalf("corrupt metadata key: %x", key)
			return true
		}
		ids = append(ids, binary.BigEndian.Uint64(key))
		return true
	})
	return ids
}

// RemoveOrphans - remove every entry whose identifier the keep-set
// builder does not claim; returns the number of entries removed
//
// the pool is scanned before buildKeep runs: an entry written after
// the scan is never a candidate, and a minting range registers itself
// as pending before writing any entry, so a candidate missing from the
// built set is provably abandoned, not in flight
func RemoveOrphans(buildKeep func() map[uint64]struct{}) int {
	candidates := make([]uint64, 0, 16)
	storage.Pool.Metadata.Range(func(key []byte, value []byte) bool {
		if 8 != len(key) {
			return true
		}
		candidates = append(candidates, binary.BigEndian.Uint64(key))
		return true
	})

	keep := buildKeep()

	removed := 0
	for _, id := range candidates {
		if _, ok := keep[id]; !ok {
			storage.Pool.Metadata.Delete(idKey(id))
			removed += 1
		}
	}
	return removed
}
