// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault_test

import (
	"testing"

	"github.com/bitmark-inc/merklemintd/fault"
)

func TestErrorClasses(t *testing.T) {
	if !fault.IsErrExpired(fault.ErrBatchExpired) {
		t.Error("ErrBatchExpired is not an ExpiredError")
	}
	if !fault.IsErrNotFound(fault.ErrBatchNotFound) {
		t.Error("ErrBatchNotFound is not a NotFoundError")
	}
	if !fault.IsErrAllocation(fault.ErrCounterStoreUnavailable) {
		t.Error("ErrCounterStoreUnavailable is not an AllocationError")
	}
	if !fault.IsErrConsistency(fault.ErrMerkleRootMismatch) {
		t.Error("ErrMerkleRootMismatch is not a ConsistencyError")
	}
	if fault.IsErrLedger(fault.ErrBatchExpired) {
		t.Error("ErrBatchExpired misreported as LedgerError")
	}
}

func TestErrorComparison(t *testing.T) {
	err := func() error { return fault.ErrLedgerTimeout }()
	if fault.ErrLedgerTimeout != err {
		t.Error("error instance comparison failed")
	}
}
