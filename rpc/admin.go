// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"golang.org/x/time/rate"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/merklemintd/expiry"
)

// Admin - administrative cleanup operations
type Admin struct {
	log     *logger.L
	limiter *rate.Limiter
}

// AdminCleanupArguments - none
type AdminCleanupArguments struct {
}

// AdminCleanupReply - removal counts for this pass and totals
type AdminCleanupReply struct {
	RemovedBatches       int    `json:"removedBatches"`
	RemovedMetadata      int    `json:"removedMetadata"`
	TotalRemovedBatches  uint64 `json:"totalRemovedBatches"`
	TotalRemovedMetadata uint64 `json:"totalRemovedMetadata"`
}

// Cleanup - run a full cleanup pass immediately
//
// same sequence as the scheduled sweep: expired batches first, then
// orphaned metadata in the same pass
func (admin *Admin) Cleanup(arguments *AdminCleanupArguments, reply *AdminCleanupReply) error {
	if err := rateLimit(admin.limiter); nil != err {
		return err
	}

	admin.log.Info("Admin.Cleanup")

	removed, err := expiry.SweepExpiredBatches()
	if nil != err {
		return err
	}
	reply.RemovedBatches = removed

	entries, err := expiry.SweepOrphanedMetadata()
	if nil != err {
		return err
	}
	reply.RemovedMetadata = entries

	reply.TotalRemovedBatches = expiry.RemovedBatches()
	reply.TotalRemovedMetadata = expiry.RemovedMetadata()
	return nil
}

// AdminOwnerCleanupArguments - the owner to sweep
type AdminOwnerCleanupArguments struct {
	Owner string `json:"owner"`
}

// AdminOwnerCleanupReply - removal counts for the owner
type AdminOwnerCleanupReply struct {
	RemovedBatches  int `json:"removedBatches"`
	RemovedMetadata int `json:"removedMetadata"`
}

// OwnerCleanup - sweep one owner's expired batches and reclaim
// metadata
//
// still-revealable batches are kept; dropping an owner entirely is
// Account.Remove, not a cleanup
func (admin *Admin) OwnerCleanup(arguments *AdminOwnerCleanupArguments, reply *AdminOwnerCleanupReply) error {
	if err := rateLimit(admin.limiter); nil != err {
		return err
	}

	admin.log.Infof("Admin.OwnerCleanup: %s", arguments.Owner)

	removed, err := expiry.SweepOwnerExpiredBatches(arguments.Owner)
	if nil != err {
		return err
	}
	reply.RemovedBatches = removed

	entries, err := expiry.SweepOrphanedMetadata()
	if nil != err {
		return err
	}
	reply.RemovedMetadata = entries
	return nil
}
