// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault

// GenericError - error base
type GenericError string

// to allow for different classes of errors
type (
	// AllocationError - identifier counter store problems
	AllocationError GenericError

	// ConsistencyError - internal invariant violations, should never occur
	ConsistencyError GenericError

	// ExistsError - something was already present
	ExistsError GenericError

	// ExpiredError - outside of the reveal window
	ExpiredError GenericError

	// InvalidError - bad parameters from a caller
	InvalidError GenericError

	// LedgerError - external ledger call failed or timed out
	LedgerError GenericError

	// NotFoundError - something was not present
	NotFoundError GenericError

	// ProcessError - general operational failures
	ProcessError GenericError
)

// common errors - keep in alphabetic order
var (
	ErrAccountNotFound         = NotFoundError("account not found")
	ErrAllocatorNotInitialised = AllocationError("allocator is not initialised")
	ErrAlreadyInitialised      = ProcessError("already initialised")
	ErrBatchAlreadyExists      = ExistsError("batch sequence already exists")
	ErrBatchExpired            = ExpiredError("batch is past the reveal threshold")
	ErrBatchNotFound           = NotFoundError("no batch owns the identifier")
	ErrCounterStoreUnavailable = AllocationError("identifier counter store is unavailable")
	ErrIdentifierNotInTree     = NotFoundError("identifier is not part of the tree")
	ErrInvalidCount            = InvalidError("invalid count")
	ErrInvalidDigestLength     = InvalidError("invalid digest length")
	ErrInvalidIPAddress        = InvalidError("invalid ip address")
	ErrInvalidOwner            = InvalidError("invalid owner")
	ErrLedgerCommitFailed      = LedgerError("ledger commit failed")
	ErrLedgerQueryFailed       = LedgerError("ledger query failed")
	ErrLedgerTimeout           = LedgerError("ledger confirmation timed out")
	ErrMerkleRootMismatch      = ConsistencyError("rebuilt merkle root does not match committed root")
	ErrMetadataNotFound        = ConsistencyError("metadata entry is missing for identifier")
	ErrMissingParameters       = InvalidError("missing parameters")
	ErrNotInitialised          = ProcessError("not initialised")
	ErrRangeOverlap            = ConsistencyError("identifier range overlaps an existing batch")
	ErrRateLimiting            = ProcessError("rate limiting")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods
func (e AllocationError) Error() string  { return string(e) }
func (e ConsistencyError) Error() string { return string(e) }
func (e ExistsError) Error() string      { return string(e) }
func (e ExpiredError) Error() string     { return string(e) }
func (e InvalidError) Error() string     { return string(e) }
func (e LedgerError) Error() string      { return string(e) }
func (e NotFoundError) Error() string    { return string(e) }
func (e ProcessError) Error() string     { return string(e) }

// determine the class of an error
func IsErrAllocation(e error) bool  { _, ok := e.(AllocationError); return ok }
func IsErrConsistency(e error) bool { _, ok := e.(ConsistencyError); return ok }
func IsErrExists(e error) bool      { _, ok := e.(ExistsError); return ok }
func IsErrExpired(e error) bool     { _, ok := e.(ExpiredError); return ok }
func IsErrInvalid(e error) bool     { _, ok := e.(InvalidError); return ok }
func IsErrLedger(e error) bool      { _, ok := e.(LedgerError); return ok }
func IsErrNotFound(e error) bool    { _, ok := e.(NotFoundError); return ok }
func IsErrProcess(e error) bool     { _, ok := e.(ProcessError); return ok }
