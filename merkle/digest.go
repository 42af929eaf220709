// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package merkle

import (
	"bytes"
	"encoding/hex"
	"strconv"

	"golang.org/x/crypto/sha3"

	"github.com/bitmark-inc/merklemintd/fault"
)

// DigestLength - number of bytes in a digest
const DigestLength = 32

// Digest - Keccak-256 hash value
//
// Keccak-256 (the pre-FIPS form, sha3.NewLegacyKeccak256) is used so
// that digests match what the ledger contract computes; this is not
// interchangeable with standardised SHA3-256
type Digest [DigestLength]byte

// NewDigest - create a digest from a byte slice
func NewDigest(record []byte) Digest {
	h := sha3.NewLegacyKeccak256()
	h.Write(record)
	var digest Digest
	copy(digest[:], h.Sum(nil))
	return digest
}

// LeafDigest - the canonical leaf value for a token identifier
//
// the identifier is encoded as its UTF-8 decimal string; the metadata
// URI is never part of the leaf; the ledger-side verifier must use the
// identical encoding or no proof will validate
func LeafDigest(id uint64) Digest {
	return NewDigest([]byte(strconv.FormatUint(id, 10)))
}

// Cmp - bytewise digest comparison, used by the sorted-pair combine rule
func (digest Digest) Cmp(other Digest) int {
	return bytes.Compare(digest[:], other[:])
}

// String - convert a binary digest to a hex string for use by the fmt package (for %s)
func (digest Digest) String() string {
	return hex.EncodeToString(digest[:])
}

// GoString - convert a binary digest to a hex string for use by the fmt package (for %#v)
func (digest Digest) GoString() string {
	return "<Keccak-256:" + hex.EncodeToString(digest[:]) + ">"
}

// MarshalText - convert digest to hex text
func (digest Digest) MarshalText() ([]byte, error) {
	size := hex.EncodedLen(len(digest))
	buffer := make([]byte, size)
	hex.Encode(buffer, digest[:])
	return buffer, nil
}

// UnmarshalText - convert hex text into a digest
func (digest *Digest) UnmarshalText(s []byte) error {
	if DigestLength != hex.DecodedLen(len(s)) {
		return fault.ErrInvalidDigestLength
	}
	buffer := make([]byte, hex.DecodedLen(len(s)))
	byteCount, err := hex.Decode(buffer, s)
	if nil != err {
		return err
	}
	copy(digest[:], buffer[:byteCount])
	return nil
}

// DigestFromBytes - convert and validate a binary byte slice to a digest
func DigestFromBytes(digest *Digest, buffer []byte) error {
	if DigestLength != len(buffer) {
		return fault.ErrInvalidDigestLength
	}
	copy(digest[:], buffer)
	return nil
}
