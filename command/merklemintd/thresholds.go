// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/merklemintd/configuration"
	"github.com/bitmark-inc/merklemintd/ledger"
)

const (
	ledgerThresholdRefresh = time.Minute
	ledgerQueryTimeout     = 5 * time.Second
)

// thresholdSource - the reveal threshold for expiry checks
//
// the on-ledger value wins when the contract exposes one; the
// configured value (kept current by the file watcher) is the fallback;
// validity checks run on every reveal, so the ledger round trip is
// memoised for at most ledgerThresholdRefresh: a contract-side
// threshold change can lag by up to one minute here, against
// thresholds measured in hours
type thresholdSource struct {
	sync.Mutex
	log       *logger.L
	client    ledger.Client
	reloader  *configuration.Reloader
	cached    uint64
	fetchedAt time.Time
}

func newThresholdSource(client ledger.Client, reloader *configuration.Reloader) *thresholdSource {
	return &thresholdSource{
		log:      logger.New("threshold"),
		client:   client,
		reloader: reloader,
	}
}

// RevealThreshold - the current reveal threshold in seconds
func (s *thresholdSource) RevealThreshold() uint64 {
	s.Lock()
	defer s.Unlock()

	if time.Since(s.fetchedAt) < ledgerThresholdRefresh {
		if 0 != s.cached {
			return s.cached
		}
		return s.reloader.RevealThreshold()
	}
	s.fetchedAt = time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), ledgerQueryTimeout)
	defer cancel()

	threshold, err := s.client.RevealThreshold(ctx)
	if nil != err || 0 == threshold {
		if nil != err {
			s.log.Warnf("ledger threshold query failed: %s", err)
		}
		s.cached = 0
		return s.reloader.RevealThreshold()
	}

	s.cached = threshold
	return threshold
}
