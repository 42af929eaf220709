// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"golang.org/x/time/rate"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/merklemintd/fault"
	"github.com/bitmark-inc/merklemintd/merkle"
	"github.com/bitmark-inc/merklemintd/proof"
)

// Token - reveal operations
type Token struct {
	log     *logger.L
	limiter *rate.Limiter
}

// reply status values
const (
	StatusOK      = "ok"
	StatusExpired = "expired"
)

// TokenRevealArguments - identify one token of one owner
type TokenRevealArguments struct {
	Owner   string `json:"owner"`
	TokenId uint64 `json:"tokenId"`
}

// TokenRevealReply - proof material, or expiry diagnostics
type TokenRevealReply struct {
	Status    string          `json:"status"`
	URI       string          `json:"uri,omitempty"`
	Leaf      merkle.Digest   `json:"leaf,omitempty"`
	Root      merkle.Digest   `json:"root,omitempty"`
	RootRef   uint64          `json:"rootRef"`
	Proof     []merkle.Digest `json:"proof,omitempty"`
	Elapsed   int64           `json:"elapsed,omitempty"`
	Threshold uint64          `json:"threshold,omitempty"`
}

// Reveal - produce the inclusion proof for a token
//
// an expired batch is a normal reported outcome: the reply carries the
// elapsed time and threshold and no error is returned; not-found and
// consistency failures surface as fault errors
func (token *Token) Reveal(arguments *TokenRevealArguments, reply *TokenRevealReply) error {
	if err := rateLimit(token.limiter); nil != err {
		return err
	}

	token.log.Infof("Token.Reveal: %s %d", arguments.Owner, arguments.TokenId)

	r, err := proof.DoReveal(arguments.Owner, arguments.TokenId)
	if fault.ErrBatchExpired == err {
		reply.Status = StatusExpired
		reply.Elapsed = r.Elapsed
		reply.Threshold = r.Threshold
		return nil
	}
	if nil != err {
		return err
	}

	reply.Status = StatusOK
	reply.URI = r.URI
	reply.Leaf = r.Leaf
	reply.Root = r.Root
	reply.RootRef = r.RootRef
	reply.Proof = r.Proof
	return nil
}
