// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bitmark-inc/merklemintd/fault"
	"github.com/bitmark-inc/merklemintd/merkle"
)

// MemoryClient - in-process ledger keeping the ordered root history
//
// used by tests and by the daemon's offline mode; mimics the contract
// semantics: append-only history, fixed reveal threshold
type MemoryClient struct {
	sync.Mutex
	roots     []merkle.Digest
	threshold uint64

	// test controls
	failNext bool
	delay    time.Duration
}

// NewMemoryClient - create an offline ledger
func NewMemoryClient(threshold uint64) *MemoryClient {
	return &MemoryClient{
		roots:     make([]merkle.Digest, 0, 16),
		threshold: threshold,
	}
}

// FailNext - make the next Commit fail (test control)
func (m *MemoryClient) FailNext() {
	m.Lock()
	m.failNext = true
	m.Unlock()
}

// SetDelay - delay every Commit (test control)
func (m *MemoryClient) SetDelay(d time.Duration) {
	m.Lock()
	m.delay = d
	m.Unlock()
}

// Roots - copy of the committed history
func (m *MemoryClient) Roots() []merkle.Digest {
	m.Lock()
	defer m.Unlock()
	roots := make([]merkle.Digest, len(m.roots))
	copy(roots, m.roots)
	return roots
}

// Commit - append a root to the history
func (m *MemoryClient) Commit(ctx context.Context, root merkle.Digest) (Confirmation, error) {
	m.Lock()
	delay := m.delay
	m.Unlock()

	if 0 != delay {
		select {
		case <-ctx.Done():
			return Confirmation{}, fault.ErrLedgerTimeout
		case <-time.After(delay):
		}
	}

	m.Lock()
	defer m.Unlock()

	if m.failNext {
		m.failNext = false
		return Confirmation{}, fault.ErrLedgerCommitFailed
	}

	m.roots = append(m.roots, root)
	seq := uint64(len(m.roots) - 1)

	return Confirmation{
		Seq:       seq,
		TxId:      fmt.Sprintf("memory-%d", seq),
		Timestamp: uint64(time.Now().Unix()),
	}, nil
}

// RevealThreshold - the configured threshold
func (m *MemoryClient) RevealThreshold(ctx context.Context) (uint64, error) {
	m.Lock()
	defer m.Unlock()
	return m.threshold, nil
}
