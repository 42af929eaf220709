// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package expiry_test

import (
	"os"
	"testing"
	"time"

	"github.com/bitmark-inc/merklemintd/allocator"
	"github.com/bitmark-inc/merklemintd/batch"
	"github.com/bitmark-inc/merklemintd/expiry"
	"github.com/bitmark-inc/merklemintd/fixtures"
	"github.com/bitmark-inc/merklemintd/issue"
	"github.com/bitmark-inc/merklemintd/ledger"
	"github.com/bitmark-inc/merklemintd/merkle"
	"github.com/bitmark-inc/merklemintd/metadata"
	"github.com/bitmark-inc/merklemintd/storage"
)

const databaseFileName = "testing-expiry.leveldb"

// fixed threshold source
type fixedThreshold uint64

func (f fixedThreshold) RevealThreshold() uint64 { return uint64(f) }

func setup(t *testing.T, threshold uint64) {
	os.RemoveAll(databaseFileName)
	fixtures.SetupTestLogger()
	if err := storage.Initialise(databaseFileName); nil != err {
		t.Fatalf("storage initialise error: %s", err)
	}
	if err := allocator.Initialise(); nil != err {
		t.Fatalf("allocator initialise error: %s", err)
	}
	if err := metadata.Initialise(); nil != err {
		t.Fatalf("metadata initialise error: %s", err)
	}
	if err := batch.Initialise(); nil != err {
		t.Fatalf("batch initialise error: %s", err)
	}
	picker := metadata.NewUniformPicker([]string{"uri"}, 1)
	if err := issue.Initialise(ledger.NewMemoryClient(threshold), picker, 5, time.Second); nil != err {
		t.Fatalf("issue initialise error: %s", err)
	}
	// long interval: sweeps run manually in tests
	if err := expiry.Initialise(fixedThreshold(threshold), time.Hour); nil != err {
		t.Fatalf("expiry initialise error: %s", err)
	}
}

func teardown(t *testing.T) {
	expiry.Finalise()
	issue.Finalise()
	batch.Finalise()
	metadata.Finalise()
	allocator.Finalise()
	storage.Finalise()
	fixtures.TeardownTestLogger()
	os.RemoveAll(databaseFileName)
}

func appendBatch(t *testing.T, owner string, startId uint64, count uint64, committedAt uint64, seq uint64) {
	ids := make([]uint64, count)
	for i := uint64(0); i < count; i += 1 {
		ids[i] = startId + i
		metadata.Put(startId+i, "uri")
	}
	err := batch.Append(&batch.Batch{
		Owner:       owner,
		StartId:     startId,
		Count:       count,
		Root:        merkle.NewTree(ids).Root(),
		CommittedAt: committedAt,
		Seq:         seq,
	})
	if nil != err {
		t.Fatalf("append error: %s", err)
	}
}

func TestRevealableBoundary(t *testing.T) {
	now := time.Now()
	const threshold = 60

	justExpired := uint64(now.Unix() - threshold - 1)
	if expiry.Revealable(justExpired, now, threshold) {
		t.Error("elapsed threshold+1 must be expired")
	}

	onBoundary := uint64(now.Unix() - threshold)
	if expiry.Revealable(onBoundary, now, threshold) {
		t.Error("elapsed exactly threshold must be expired")
	}

	stillValid := uint64(now.Unix() - threshold + 1)
	if !expiry.Revealable(stillValid, now, threshold) {
		t.Error("elapsed threshold-1 must be revealable")
	}
}

func TestRevealableLegacyRecord(t *testing.T) {
	// a record without a commit timestamp must expire, not live forever
	if expiry.Revealable(0, time.Now(), 1<<40) {
		t.Error("zero committedAt must be expired")
	}
}

func TestSweepExpiredBatches(t *testing.T) {
	setup(t, 600)
	defer teardown(t)

	now := uint64(time.Now().Unix())

	appendBatch(t, "alice", 1, 5, now-1000, 0) // expired
	appendBatch(t, "bob", 6, 5, now-10, 1)     // revealable
	appendBatch(t, "carol", 11, 5, 0, 2)       // legacy: expired

	removed, err := expiry.SweepExpiredBatches()
	if nil != err {
		t.Fatalf("sweep error: %s", err)
	}
	if 2 != removed {
		t.Fatalf("expected 2 removed, actual: %d", removed)
	}

	survivors := batch.ListAll()
	if 1 != len(survivors) || "bob" != survivors[0].Owner {
		t.Fatalf("wrong survivors: %+v", survivors)
	}
}

func TestMetadataBatchCoupling(t *testing.T) {
	setup(t, 600)
	defer teardown(t)

	now := uint64(time.Now().Unix())

	appendBatch(t, "alice", 1, 5, now-1000, 0) // expired
	appendBatch(t, "bob", 6, 5, now-10, 1)     // revealable

	if _, err := expiry.SweepExpiredBatches(); nil != err {
		t.Fatalf("batch sweep error: %s", err)
	}
	removed, err := expiry.SweepOrphanedMetadata()
	if nil != err {
		t.Fatalf("metadata sweep error: %s", err)
	}
	if 5 != removed {
		t.Fatalf("expected 5 metadata entries removed, actual: %d", removed)
	}

	// metadata key set is exactly the union of surviving ranges
	remaining := metadata.Ids()
	expected := map[uint64]struct{}{6: {}, 7: {}, 8: {}, 9: {}, 10: {}}
	if len(expected) != len(remaining) {
		t.Fatalf("expected ids: %v  actual: %v", expected, remaining)
	}
	for _, id := range remaining {
		if _, ok := expected[id]; !ok {
			t.Fatalf("unexpected surviving metadata: %d", id)
		}
	}
}

func TestSweepOwnerBatches(t *testing.T) {
	setup(t, 600)
	defer teardown(t)

	now := uint64(time.Now().Unix())

	appendBatch(t, "alice", 1, 5, now-10, 0) // still revealable
	appendBatch(t, "bob", 6, 5, now-10, 1)

	removed, err := expiry.SweepOwnerBatches("alice")
	if nil != err {
		t.Fatalf("sweep error: %s", err)
	}
	if 1 != removed {
		t.Fatalf("expected 1 removed, actual: %d", removed)
	}

	survivors := batch.ListAll()
	if 1 != len(survivors) || "bob" != survivors[0].Owner {
		t.Fatalf("owner sweep affected other owners: %+v", survivors)
	}

	// followup global metadata sweep reclaims alice's entries
	removedEntries, err := expiry.SweepOrphanedMetadata()
	if nil != err {
		t.Fatalf("metadata sweep error: %s", err)
	}
	if 5 != removedEntries {
		t.Fatalf("expected 5 metadata entries removed, actual: %d", removedEntries)
	}
}

func TestSweepOwnerExpiredBatches(t *testing.T) {
	setup(t, 600)
	defer teardown(t)

	now := uint64(time.Now().Unix())

	appendBatch(t, "alice", 1, 5, now-1000, 0) // expired
	appendBatch(t, "alice", 6, 5, now-10, 1)   // revealable
	appendBatch(t, "bob", 11, 5, now-1000, 2)  // expired, other owner

	removed, err := expiry.SweepOwnerExpiredBatches("alice")
	if nil != err {
		t.Fatalf("sweep error: %s", err)
	}
	if 1 != removed {
		t.Fatalf("expected 1 removed, actual: %d", removed)
	}

	// alice keeps the revealable batch, bob is untouched
	if 1 != len(batch.ListOwner("alice")) {
		t.Error("revealable batch removed by expired-only sweep")
	}
	if 1 != len(batch.ListOwner("bob")) {
		t.Error("other owner's batch removed")
	}
}

func TestOrphanSweepKeepsPendingIssuance(t *testing.T) {
	setup(t, 600)
	defer teardown(t)

	// metadata without batch and without pending issuance is removed
	metadata.Put(999, "stray")

	removed, err := expiry.SweepOrphanedMetadata()
	if nil != err {
		t.Fatalf("metadata sweep error: %s", err)
	}
	if 1 != removed {
		t.Fatalf("expected 1 removed, actual: %d", removed)
	}
}

func TestOrphanSweepConcurrentMint(t *testing.T) {
	setup(t, 600)
	defer teardown(t)

	stop := make(chan struct{})
	swept := make(chan struct{})
	go func() {
		defer close(swept)
		for {
			select {
			case <-stop:
				return
			default:
			}
			if _, err := expiry.SweepOrphanedMetadata(); nil != err {
				t.Errorf("metadata sweep error: %s", err)
				return
			}
		}
	}()

	// every committed batch must keep its metadata no matter how the
	// mint interleaves with the sweeps
	for i := 0; i < 50; i += 1 {
		b, err := issue.Mint("alice")
		if nil != err {
			t.Fatalf("mint %d error: %s", i, err)
		}
		for _, id := range b.Ids() {
			if _, ok := metadata.Get(id); !ok {
				t.Fatalf("mint %d: metadata for id %d of committed batch seq %d reclaimed by a concurrent sweep", i, id, b.Seq)
			}
		}
	}
	close(stop)
	<-swept
}
