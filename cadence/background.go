// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cadence

import (
	"time"

	"github.com/bitmark-inc/logger"
)

// periodic cadence check: a continuously active account keeps
// receiving batches without a fresh activity signal
type cadenceChecker struct {
	log *logger.L
}

func (c *cadenceChecker) Run(args interface{}, shutdown <-chan struct{}) {

	globalData.Lock()
	tick := globalData.intervals.CadenceTick
	globalData.Unlock()

	ticker := time.NewTicker(tick)
	for {
		select {
		case <-ticker.C:
			RunCadenceCheck()
		case <-shutdown:
			ticker.Stop()
			return
		}
	}
}

// inactivity reaper: forgets accounts, never touches their batches
type reaper struct {
	log *logger.L
}

func (r *reaper) Run(args interface{}, shutdown <-chan struct{}) {

	globalData.Lock()
	tick := globalData.intervals.ReapTick
	globalData.Unlock()

	ticker := time.NewTicker(tick)
	for {
		select {
		case <-ticker.C:
			if n := RunReap(); n > 0 {
				r.log.Infof("reaped %d accounts", n)
			}
		case <-shutdown:
			ticker.Stop()
			return
		}
	}
}
