// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package issue_test

import (
	"os"
	"testing"
	"time"

	"github.com/bitmark-inc/merklemintd/allocator"
	"github.com/bitmark-inc/merklemintd/batch"
	"github.com/bitmark-inc/merklemintd/fault"
	"github.com/bitmark-inc/merklemintd/fixtures"
	"github.com/bitmark-inc/merklemintd/issue"
	"github.com/bitmark-inc/merklemintd/ledger"
	"github.com/bitmark-inc/merklemintd/merkle"
	"github.com/bitmark-inc/merklemintd/metadata"
	"github.com/bitmark-inc/merklemintd/storage"
)

const databaseFileName = "testing-issue.leveldb"

func setup(t *testing.T, client ledger.Client) {
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
	picker := metadata.NewUniformPicker([]string{"ipfs://QmA", "ipfs://QmB"}, 1)
	if err := issue.Initialise(client, picker, 10, time.Second); nil != err {
		t.Fatalf("issue initialise error: %s", err)
	}
}

func teardown(t *testing.T) {
	issue.Finalise()
	batch.Finalise()
	metadata.Finalise()
	allocator.Finalise()
	storage.Finalise()
	fixtures.TeardownTestLogger()
	os.RemoveAll(databaseFileName)
}

func TestMint(t *testing.T) {
	client := ledger.NewMemoryClient(600)
	setup(t, client)
	defer teardown(t)

	b, err := issue.Mint("Alice")
	if nil != err {
		t.Fatalf("mint error: %s", err)
	}

	if "alice" != b.Owner {
		t.Errorf("owner not canonicalised: %q", b.Owner)
	}
	if 1 != b.StartId || 10 != b.Count {
		t.Errorf("wrong range: [%d..%d]", b.StartId, b.StartId+b.Count-1)
	}
	if 0 != b.Seq {
		t.Errorf("wrong sequence: %d", b.Seq)
	}
	if 0 == b.CommittedAt {
		t.Error("missing commit timestamp")
	}

	// the committed root matches a rebuild over the range
	rebuilt := merkle.NewTree(b.Ids())
	if rebuilt.Root() != b.Root {
		t.Error("recorded root does not match rebuilt root")
	}

	// the root is on the ledger
	roots := client.Roots()
	if 1 != len(roots) || roots[0] != b.Root {
		t.Errorf("ledger history wrong: %v", roots)
	}

	// every identifier has metadata
	for _, id := range b.Ids() {
		if _, ok := metadata.Get(id); !ok {
			t.Errorf("identifier %d has no metadata", id)
		}
	}

	// the record is findable
	if _, ok := batch.FindOwning("alice", 5); !ok {
		t.Error("minted batch not findable")
	}
}

func TestMintCommitFailure(t *testing.T) {
	client := ledger.NewMemoryClient(600)
	setup(t, client)
	defer teardown(t)

	client.FailNext()

	_, err := issue.Mint("alice")
	if !fault.IsErrLedger(err) {
		t.Fatalf("expected ledger error, actual: %v", err)
	}

	// no batch recorded
	if 0 != len(batch.ListAll()) {
		t.Error("batch recorded despite failed commit")
	}

	// the failed range is burnt, the next mint starts past it
	b, err := issue.Mint("alice")
	if nil != err {
		t.Fatalf("mint error: %s", err)
	}
	if 11 != b.StartId {
		t.Errorf("expected gap after failed commit, start: %d", b.StartId)
	}
}

func TestMintTimeout(t *testing.T) {
	client := ledger.NewMemoryClient(600)
	client.SetDelay(5 * time.Second)
	setup(t, client)
	defer teardown(t)

	_, err := issue.Mint("alice")
	if fault.ErrLedgerTimeout != err {
		t.Fatalf("expected: %s  actual: %v", fault.ErrLedgerTimeout, err)
	}
	if 0 != len(batch.ListAll()) {
		t.Error("batch recorded despite timeout")
	}
}

func TestMintInvalidOwner(t *testing.T) {
	client := ledger.NewMemoryClient(600)
	setup(t, client)
	defer teardown(t)

	_, err := issue.Mint("   ")
	if fault.ErrInvalidOwner != err {
		t.Fatalf("expected: %s  actual: %v", fault.ErrInvalidOwner, err)
	}
}
