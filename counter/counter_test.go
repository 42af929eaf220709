// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package counter_test

import (
	"sync"
	"testing"

	"github.com/bitmark-inc/merklemintd/counter"
)

func TestCounter(t *testing.T) {
	var c counter.Counter

	if !c.IsZero() {
		t.Fatal("new counter is not zero")
	}

	c.Increment()
	c.Add(9)
	if 10 != c.Uint64() {
		t.Fatalf("expected: 10  actual: %d", c.Uint64())
	}
}

func TestCounterConcurrent(t *testing.T) {
	var c counter.Counter
	var wg sync.WaitGroup

	for i := 0; i < 50; i += 1 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j += 1 {
				c.Increment()
			}
		}()
	}
	wg.Wait()

	if 5000 != c.Uint64() {
		t.Fatalf("expected: 5000  actual: %d", c.Uint64())
	}
}
