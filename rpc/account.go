// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"golang.org/x/time/rate"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/merklemintd/batch"
	"github.com/bitmark-inc/merklemintd/cadence"
	"github.com/bitmark-inc/merklemintd/expiry"
)

// Account - account scheduling operations
type Account struct {
	log     *logger.L
	limiter *rate.Limiter
}

// Account activity
// ----------------

// AccountActivityArguments - one activity signal
type AccountActivityArguments struct {
	Owner string `json:"owner"`
}

// AccountActivityReply - whether the signal triggered an issuance
type AccountActivityReply struct {
	Issued bool         `json:"issued"`
	Batch  *batch.Batch `json:"batch,omitempty"`
}

// Activity - record an activity signal, possibly minting a batch
func (account *Account) Activity(arguments *AccountActivityArguments, reply *AccountActivityReply) error {
	if err := rateLimit(account.limiter); nil != err {
		return err
	}

	account.log.Infof("Account.Activity: %s", arguments.Owner)

	b, err := cadence.OnActivity(arguments.Owner)
	if nil != err {
		return err
	}

	reply.Issued = nil != b
	reply.Batch = b
	return nil
}

// Account removal
// ---------------

// AccountRemoveArguments - the account to forget
type AccountRemoveArguments struct {
	Owner string `json:"owner"`
}

// AccountRemoveReply - cleanup counts for the removed account
type AccountRemoveReply struct {
	RemovedBatches  int `json:"removedBatches"`
	RemovedMetadata int `json:"removedMetadata"`
}

// Remove - forget an account, sweep its batches and their metadata
func (account *Account) Remove(arguments *AccountRemoveArguments, reply *AccountRemoveReply) error {
	if err := rateLimit(account.limiter); nil != err {
		return err
	}

	account.log.Infof("Account.Remove: %s", arguments.Owner)

	if err := cadence.RemoveAccount(arguments.Owner); nil != err {
		return err
	}

	removed, err := expiry.SweepOwnerBatches(arguments.Owner)
	if nil != err {
		return err
	}
	reply.RemovedBatches = removed

	// the owner's removed batches freed identifiers
	entries, err := expiry.SweepOrphanedMetadata()
	if nil != err {
		return err
	}
	reply.RemovedMetadata = entries
	return nil
}
