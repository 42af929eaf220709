// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package expiry

import (
	"time"

	"github.com/bitmark-inc/logger"
)

// periodic global cleanup
type cleaner struct {
	log *logger.L
}

func (c *cleaner) Run(args interface{}, shutdown <-chan struct{}) {

	globalData.Lock()
	interval := globalData.interval
	globalData.Unlock()

	ticker := time.NewTicker(interval)
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-shutdown:
			ticker.Stop()
			return
		}
	}
}

// one cleanup pass; failures are logged and retried next tick
func (c *cleaner) sweep() {
	batches, err := SweepExpiredBatches()
	if nil != err {
		c.log.Errorf("batch sweep error: %s", err)
		return
	}

	entries, err := SweepOrphanedMetadata()
	if nil != err {
		c.log.Errorf("metadata sweep error: %s", err)
		return
	}

	if batches > 0 || entries > 0 {
		c.log.Infof("swept: %d batches  %d metadata entries", batches, entries)
	}
}
