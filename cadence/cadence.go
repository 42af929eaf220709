// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package cadence - per-account issuance scheduling
//
// issuance is gated on transitions into activity (first signal, or a
// return after the inactivity threshold), not on every heartbeat, and
// a periodic check keeps continuously active accounts supplied at a
// steady interval; issuance for one account never runs concurrently
// with itself
package cadence

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/merklemintd/background"
	"github.com/bitmark-inc/merklemintd/batch"
	"github.com/bitmark-inc/merklemintd/fault"
	"github.com/bitmark-inc/merklemintd/issue"
	"github.com/bitmark-inc/merklemintd/storage"
)

// AccountRecord - scheduling state for one account
type AccountRecord struct {
	LastActiveAt uint64 `json:"lastActiveAt"` // unix seconds of last activity signal
	LastIssuedAt uint64 `json:"lastIssuedAt"` // unix seconds of last successful issuance, 0 if never
}

// Intervals - scheduler timing, all in seconds except the tick rates
type Intervals struct {
	MintInterval        uint64        // cadence between issuances for an active account
	InactivityThreshold uint64        // activity gap that marks an account inactive
	CadenceTick         time.Duration // periodic cadence check rate
	ReapTick            time.Duration // inactivity reaper rate
}

// globals
type globalDataType struct {
	sync.Mutex
	log        *logger.L
	accounts   map[string]*AccountRecord
	issueLocks map[string]*sync.Mutex // per-owner issuance serialisation
	intervals  Intervals
	background *background.T

	initialised bool
}

var globalData globalDataType

// Initialise - load account records and start the scheduler processes
func Initialise(intervals Intervals) error {
	globalData.Lock()
	defer globalData.Unlock()

	if globalData.initialised {
		return fault.ErrAlreadyInitialised
	}

	globalData.log = logger.New("cadence")
	globalData.log.Info("starting…")

	globalData.intervals = intervals
	if 0 == globalData.intervals.CadenceTick {
		globalData.intervals.CadenceTick = time.Minute
	}
	if 0 == globalData.intervals.ReapTick {
		globalData.intervals.ReapTick = time.Minute
	}

	globalData.accounts = make(map[string]*AccountRecord)
	globalData.issueLocks = make(map[string]*sync.Mutex)

	var loadError error
	storage.Pool.Accounts.Range(func(key []byte, value []byte) bool {
		record := &AccountRecord{}
		if err := json.Unmarshal(value, record); nil != err {
			globalData.log.Criticalf("corrupt account record: %q  error: %s", key, err)
			loadError = err
			return false
		}
		globalData.accounts[string(key)] = record
		return true
	})
	if nil != loadError {
		return loadError
	}

	globalData.log.Infof("loaded %d accounts", len(globalData.accounts))
	globalData.initialised = true

	processes := background.Processes{
		&cadenceChecker{log: logger.New("cadence-check")},
		&reaper{log: logger.New("cadence-reap")},
	}
	globalData.background = background.Start(processes, nil)

	return nil
}

// Finalise - stop the scheduler processes
func Finalise() error {
	globalData.Lock()
	if !globalData.initialised {
		globalData.Unlock()
		return fault.ErrNotInitialised
	}
	globalData.log.Info("shutting down…")
	bg := globalData.background
	globalData.background = nil
	globalData.accounts = nil
	globalData.issueLocks = nil
	globalData.initialised = false
	globalData.Unlock()

	bg.Stop()
	return nil
}

// durably record one account, lock already held
func persist(owner string, record *AccountRecord) {
	value, err := json.Marshal(record)
	logger.PanicIfError("cadence: marshal account", err)
	storage.Pool.Accounts.Put([]byte(owner), value)
}

// OnActivity - handle an activity signal for an account
//
// returns the new batch when the signal triggered an issuance
func OnActivity(owner string) (*batch.Batch, error) {
	owner = batch.CanonicalOwner(owner)
	if "" == owner {
		return nil, fault.ErrInvalidOwner
	}

	now := uint64(time.Now().Unix())

	globalData.Lock()
	if !globalData.initialised {
		globalData.Unlock()
		return nil, fault.ErrNotInitialised
	}

	issueNeeded := false
	record, ok := globalData.accounts[owner]
	if !ok {
		// first activity
		record = &AccountRecord{LastActiveAt: now}
		globalData.accounts[owner] = record
		issueNeeded = true
		globalData.log.Infof("first activity: %s", owner)
	} else if now-record.LastActiveAt > globalData.intervals.InactivityThreshold {
		// returning after inactivity
		record.LastActiveAt = now
		issueNeeded = true
		globalData.log.Infof("returning after inactivity: %s", owner)
	} else {
		record.LastActiveAt = now
	}
	persist(owner, record)
	globalData.Unlock()

	if !issueNeeded {
		return nil, nil
	}

	return issueFor(owner, now, false)
}

// RemoveAccount - forget an account's scheduling state
//
// the account's batches are a separate cleanup concern
// (expiry.SweepOwnerBatches)
func RemoveAccount(owner string) error {
	owner = batch.CanonicalOwner(owner)
	if "" == owner {
		return fault.ErrInvalidOwner
	}

	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return fault.ErrNotInitialised
	}

	if _, ok := globalData.accounts[owner]; !ok {
		return fault.ErrAccountNotFound
	}

	delete(globalData.accounts, owner)
	delete(globalData.issueLocks, owner)
	storage.Pool.Accounts.Delete([]byte(owner))
	globalData.log.Infof("removed account: %s", owner)
	return nil
}

// UpdateIntervals - adopt reconfigured scheduling intervals
//
// only the values consulted per check can change at run time; the
// tick rates of the running processes need a restart
func UpdateIntervals(mintInterval uint64, inactivityThreshold uint64) {
	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return
	}

	if globalData.intervals.MintInterval != mintInterval || globalData.intervals.InactivityThreshold != inactivityThreshold {
		globalData.log.Warnf("intervals changed: mint: %d  inactivity: %d", mintInterval, inactivityThreshold)
	}
	globalData.intervals.MintInterval = mintInterval
	globalData.intervals.InactivityThreshold = inactivityThreshold
}

// GetRecord - read one account's scheduling state (reporting only)
func GetRecord(owner string) (AccountRecord, bool) {
	owner = batch.CanonicalOwner(owner)

	globalData.Lock()
	defer globalData.Unlock()

	record, ok := globalData.accounts[owner]
	if !ok {
		return AccountRecord{}, false
	}
	return *record, true
}

// AccountCount - number of known accounts (reporting only)
func AccountCount() int {
	globalData.Lock()
	defer globalData.Unlock()
	return len(globalData.accounts)
}

// run one issuance for an owner, serialised per account
//
// lastIssuedAt is only advanced on success so a failed attempt is
// retried by the next cadence check instead of skipping an interval
//
// recheckDue marks a cadence-check issuance: the due list is a
// snapshot taken before the per-owner lock, so an issuance that
// completed while this one waited on the lock has already reset the
// cadence and the stale entry must be dropped, not minted again
func issueFor(owner string, now uint64, recheckDue bool) (*batch.Batch, error) {
	globalData.Lock()
	lock, ok := globalData.issueLocks[owner]
	if !ok {
		lock = &sync.Mutex{}
		globalData.issueLocks[owner] = lock
	}
	globalData.Unlock()

	lock.Lock()
	defer lock.Unlock()

	if recheckDue {
		now = uint64(time.Now().Unix())
		globalData.Lock()
		record, ok := globalData.accounts[owner]
		mintInterval := globalData.intervals.MintInterval
		globalData.Unlock()
		if !ok || now-record.LastIssuedAt < mintInterval {
			return nil, nil
		}
	}

	b, err := issue.Mint(owner)
	if nil != err {
		return nil, err
	}

	globalData.Lock()
	if record, ok := globalData.accounts[owner]; ok {
		record.LastIssuedAt = now
		persist(owner, record)
	}
	globalData.Unlock()

	return b, nil
}

// RunCadenceCheck - issue for every account whose cadence is due
//
// called by the periodic background process; exported so an
// administrative trigger can force a pass
func RunCadenceCheck() {
	now := uint64(time.Now().Unix())

	globalData.Lock()
	if !globalData.initialised {
		globalData.Unlock()
		return
	}
	mintInterval := globalData.intervals.MintInterval
	due := make([]string, 0, len(globalData.accounts))
	for owner, record := range globalData.accounts {
		if now-record.LastIssuedAt >= mintInterval {
			due = append(due, owner)
		}
	}
	log := globalData.log
	globalData.Unlock()

	for _, owner := range due {
		if _, err := issueFor(owner, now, true); nil != err {
			log.Errorf("cadence issuance failed: %s  error: %s", owner, err)
		}
	}
}

// RunReap - delete every account inactive past the threshold
func RunReap() int {
	now := uint64(time.Now().Unix())

	globalData.Lock()
	if !globalData.initialised {
		globalData.Unlock()
		return 0
	}

	reaped := 0
	for owner, record := range globalData.accounts {
		if now-record.LastActiveAt > globalData.intervals.InactivityThreshold {
			delete(globalData.accounts, owner)
			delete(globalData.issueLocks, owner)
			storage.Pool.Accounts.Delete([]byte(owner))
			globalData.log.Infof("reaped inactive account: %s", owner)
			reaped += 1
		}
	}
	globalData.Unlock()
	return reaped
}
