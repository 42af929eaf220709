// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package rpc - the operations exposed to the request layer
//
// each service method fills a reply structure; validity and not-found
// outcomes are reported through the fault error values so callers can
// branch on the error class
package rpc

import (
	"golang.org/x/time/rate"

	"github.com/bitmark-inc/logger"
)

// rate limits per service, requests per second
const (
	rateLimitAccount = 200
	rateLimitToken   = 200
	rateLimitBatch   = 100
	rateLimitAdmin   = 10

	rateBurstCount = 100
)

// Services - the full set of exposed services
type Services struct {
	Account *Account
	Token   *Token
	Batch   *BatchService
	Admin   *Admin
}

// NewServices - create all services with their rate limiters
func NewServices() *Services {
	return &Services{
		Account: &Account{
			log:     logger.New("rpc-account"),
			limiter: rate.NewLimiter(rateLimitAccount, rateBurstCount),
		},
		Token: &Token{
			log:     logger.New("rpc-token"),
			limiter: rate.NewLimiter(rateLimitToken, rateBurstCount),
		},
		Batch: &BatchService{
			log:     logger.New("rpc-batch"),
			limiter: rate.NewLimiter(rateLimitBatch, rateBurstCount),
		},
		Admin: &Admin{
			log:     logger.New("rpc-admin"),
			limiter: rate.NewLimiter(rateLimitAdmin, rateBurstCount),
		},
	}
}
