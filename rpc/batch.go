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
	"github.com/bitmark-inc/merklemintd/issue"
)

// BatchService - batch enumeration
type BatchService struct {
	log     *logger.L
	limiter *rate.Limiter
}

// BatchListArguments - the owner to enumerate
type BatchListArguments struct {
	Owner string `json:"owner"`
}

// BatchListReply - the owner's batches and scheduling state
type BatchListReply struct {
	Batches      []batch.Batch          `json:"batches"`
	Account      *cadence.AccountRecord `json:"account,omitempty"`
	MintAttempts uint64                 `json:"mintAttempts"`
	MintFailures uint64                 `json:"mintFailures"`
}

// List - enumerate one owner's committed batches
func (service *BatchService) List(arguments *BatchListArguments, reply *BatchListReply) error {
	if err := rateLimit(service.limiter); nil != err {
		return err
	}

	service.log.Debugf("Batch.List: %s", arguments.Owner)

	reply.Batches = batch.ListOwner(arguments.Owner)
	if record, ok := cadence.GetRecord(arguments.Owner); ok {
		reply.Account = &record
	}
	reply.MintAttempts = issue.Attempts()
	reply.MintFailures = issue.Failures()
	return nil
}
