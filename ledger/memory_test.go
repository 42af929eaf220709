// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/merklemintd/fault"
	"github.com/bitmark-inc/merklemintd/ledger"
	"github.com/bitmark-inc/merklemintd/merkle"
)

func TestMemoryCommit(t *testing.T) {
	client := ledger.NewMemoryClient(600)
	ctx := context.Background()

	rootA := merkle.NewDigest([]byte("root-a"))
	rootB := merkle.NewDigest([]byte("root-b"))

	confirmation, err := client.Commit(ctx, rootA)
	assert.Nil(t, err, "commit error")
	assert.Equal(t, uint64(0), confirmation.Seq, "wrong first sequence")

	confirmation, err = client.Commit(ctx, rootB)
	assert.Nil(t, err, "commit error")
	assert.Equal(t, uint64(1), confirmation.Seq, "wrong second sequence")

	assert.Equal(t, []merkle.Digest{rootA, rootB}, client.Roots(), "wrong history")

	threshold, err := client.RevealThreshold(ctx)
	assert.Nil(t, err, "threshold error")
	assert.Equal(t, uint64(600), threshold, "wrong threshold")
}

// every commit must carry its own sequence, assigned atomically with
// the append; two concurrent commits can never share one
func TestMemoryConcurrentCommitsDistinctSeq(t *testing.T) {
	client := ledger.NewMemoryClient(600)
	ctx := context.Background()

	const commits = 20
	seqs := make(chan uint64, commits)
	errs := make(chan error, commits)
	for i := 0; i < commits; i += 1 {
		go func(n int) {
			confirmation, err := client.Commit(ctx, merkle.NewDigest([]byte{byte(n)}))
			seqs <- confirmation.Seq
			errs <- err
		}(i)
	}

	seen := make(map[uint64]int)
	for i := 0; i < commits; i += 1 {
		assert.Nil(t, <-errs, "commit error")
		seen[<-seqs] += 1
	}

	assert.Equal(t, commits, len(seen), "duplicate sequence numbers")
	for seq := uint64(0); seq < commits; seq += 1 {
		assert.Equal(t, 1, seen[seq], "sequence %d not assigned exactly once", seq)
	}
}

func TestMemoryFailNext(t *testing.T) {
	client := ledger.NewMemoryClient(600)
	client.FailNext()

	_, err := client.Commit(context.Background(), merkle.NewDigest([]byte("r")))
	assert.Equal(t, fault.ErrLedgerCommitFailed, err, "expected commit failure")
	assert.Empty(t, client.Roots(), "failed commit must not extend history")

	// next commit succeeds again
	_, err = client.Commit(context.Background(), merkle.NewDigest([]byte("r")))
	assert.Nil(t, err, "commit error")
}

func TestMemoryTimeout(t *testing.T) {
	client := ledger.NewMemoryClient(600)
	client.SetDelay(200 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.Commit(ctx, merkle.NewDigest([]byte("r")))
	assert.Equal(t, fault.ErrLedgerTimeout, err, "expected timeout")
	assert.Empty(t, client.Roots(), "timed out commit must not extend history")
}
