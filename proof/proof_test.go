// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package proof_test

import (
	"os"
	"testing"
	"time"

	"github.com/bitmark-inc/merklemintd/allocator"
	"github.com/bitmark-inc/merklemintd/batch"
	"github.com/bitmark-inc/merklemintd/expiry"
	"github.com/bitmark-inc/merklemintd/fault"
	"github.com/bitmark-inc/merklemintd/fixtures"
	"github.com/bitmark-inc/merklemintd/issue"
	"github.com/bitmark-inc/merklemintd/ledger"
	"github.com/bitmark-inc/merklemintd/merkle"
	"github.com/bitmark-inc/merklemintd/metadata"
	"github.com/bitmark-inc/merklemintd/proof"
	"github.com/bitmark-inc/merklemintd/storage"
)

const databaseFileName = "testing-proof.leveldb"

// adjustable threshold source
type thresholdBox struct {
	value uint64
}

func (t *thresholdBox) RevealThreshold() uint64 { return t.value }

var threshold = &thresholdBox{value: 600}

func setup(t *testing.T) *ledger.MemoryClient {
	os.RemoveAll(databaseFileName)
	fixtures.SetupTestLogger()
	threshold.value = 600

	client := ledger.NewMemoryClient(600)

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
	picker := metadata.NewUniformPicker([]string{"ipfs://QmA"}, 1)
	if err := issue.Initialise(client, picker, 8, time.Second); nil != err {
		t.Fatalf("issue initialise error: %s", err)
	}
	if err := expiry.Initialise(threshold, time.Hour); nil != err {
		t.Fatalf("expiry initialise error: %s", err)
	}
	if err := proof.Initialise(); nil != err {
		t.Fatalf("proof initialise error: %s", err)
	}
	return client
}

func teardown(t *testing.T) {
	proof.Finalise()
	expiry.Finalise()
	issue.Finalise()
	batch.Finalise()
	metadata.Finalise()
	allocator.Finalise()
	storage.Finalise()
	fixtures.TeardownTestLogger()
	os.RemoveAll(databaseFileName)
}

func TestRevealRoundTrip(t *testing.T) {
	setup(t)
	defer teardown(t)

	b, err := issue.Mint("alice")
	if nil != err {
		t.Fatalf("mint error: %s", err)
	}

	for _, id := range b.Ids() {
		r, err := proof.DoReveal("alice", id)
		if nil != err {
			t.Fatalf("reveal error for %d: %s", id, err)
		}

		if r.Root != b.Root {
			t.Errorf("token %d: wrong root", id)
		}
		if r.RootRef != b.Seq {
			t.Errorf("token %d: wrong root reference: %d", id, r.RootRef)
		}
		if "" == r.URI {
			t.Errorf("token %d: missing URI", id)
		}
		if !merkle.Verify(r.Root, r.Leaf, r.Proof) {
			t.Errorf("token %d: proof does not verify", id)
		}
	}
}

func TestRevealNotFound(t *testing.T) {
	setup(t)
	defer teardown(t)

	if _, err := proof.DoReveal("alice", 1); fault.ErrBatchNotFound != err {
		t.Fatalf("expected: %s  actual: %v", fault.ErrBatchNotFound, err)
	}

	// wrong owner for an existing identifier
	if _, err := issue.Mint("alice"); nil != err {
		t.Fatalf("mint error: %s", err)
	}
	if _, err := proof.DoReveal("bob", 1); fault.ErrBatchNotFound != err {
		t.Fatalf("expected: %s  actual: %v", fault.ErrBatchNotFound, err)
	}
}

func TestRevealExpired(t *testing.T) {
	setup(t)
	defer teardown(t)

	if _, err := issue.Mint("alice"); nil != err {
		t.Fatalf("mint error: %s", err)
	}

	// shrink the window so the fresh batch is already out of it
	threshold.value = 0

	r, err := proof.DoReveal("alice", 1)
	if fault.ErrBatchExpired != err {
		t.Fatalf("expected: %s  actual: %v", fault.ErrBatchExpired, err)
	}
	if nil == r {
		t.Fatal("expired reveal must carry diagnostics")
	}
	if r.Elapsed < 0 {
		t.Errorf("bad elapsed: %d", r.Elapsed)
	}
	if 0 != r.Threshold {
		t.Errorf("bad threshold: %d", r.Threshold)
	}
}

func TestRevealAfterSweep(t *testing.T) {
	setup(t)
	defer teardown(t)

	if _, err := issue.Mint("alice"); nil != err {
		t.Fatalf("mint error: %s", err)
	}

	threshold.value = 0
	if _, err := expiry.SweepExpiredBatches(); nil != err {
		t.Fatalf("sweep error: %s", err)
	}
	if _, err := expiry.SweepOrphanedMetadata(); nil != err {
		t.Fatalf("sweep error: %s", err)
	}

	// the batch is gone: a clean not-found, not a consistency error
	if _, err := proof.DoReveal("alice", 1); fault.ErrBatchNotFound != err {
		t.Fatalf("expected: %s  actual: %v", fault.ErrBatchNotFound, err)
	}
}

func TestRevealRootMismatch(t *testing.T) {
	setup(t)
	defer teardown(t)

	// a hand-built batch whose recorded root is wrong
	for id := uint64(1); id <= 4; id += 1 {
		metadata.Put(id, "uri")
	}
	err := batch.Append(&batch.Batch{
		Owner:       "alice",
		StartId:     1,
		Count:       4,
		Root:        merkle.NewDigest([]byte("not the real root")),
		CommittedAt: uint64(time.Now().Unix()),
		Seq:         0,
	})
	if nil != err {
		t.Fatalf("append error: %s", err)
	}

	if _, err := proof.DoReveal("alice", 2); fault.ErrMerkleRootMismatch != err {
		t.Fatalf("expected: %s  actual: %v", fault.ErrMerkleRootMismatch, err)
	}
}
