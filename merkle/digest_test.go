// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package merkle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/merklemintd/merkle"
)

// known Keccak-256 test vectors (legacy Keccak, not SHA3-256)
func TestNewDigest(t *testing.T) {
	empty := merkle.NewDigest([]byte{})
	assert.Equal(t,
		"c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		empty.String(),
		"wrong Keccak-256 of empty input")

	abc := merkle.NewDigest([]byte("abc"))
	assert.Equal(t,
		"4e03657aea45a94fc7d47ba826c8d667c0d1e6e33a64a036ec44f58fa12d6c45",
		abc.String(),
		"wrong Keccak-256 of \"abc\"")
}

func TestLeafDigest(t *testing.T) {
	// decimal string encoding of the identifier
	assert.Equal(t, merkle.NewDigest([]byte("1")), merkle.LeafDigest(1), "wrong leaf for 1")
	assert.Equal(t, merkle.NewDigest([]byte("12345")), merkle.LeafDigest(12345), "wrong leaf for 12345")
	assert.NotEqual(t, merkle.LeafDigest(1), merkle.LeafDigest(10), "distinct ids must have distinct leaves")
}

func TestMarshalText(t *testing.T) {
	digest := merkle.NewDigest([]byte("some data"))

	text, err := digest.MarshalText()
	assert.Nil(t, err, "marshal error")

	var restored merkle.Digest
	err = restored.UnmarshalText(text)
	assert.Nil(t, err, "unmarshal error")
	assert.Equal(t, digest, restored, "digest text round trip failed")

	err = restored.UnmarshalText([]byte("abcd"))
	assert.NotNil(t, err, "short text must fail")
}

func TestDigestFromBytes(t *testing.T) {
	digest := merkle.NewDigest([]byte("x"))

	var restored merkle.Digest
	err := merkle.DigestFromBytes(&restored, digest[:])
	assert.Nil(t, err, "convert error")
	assert.Equal(t, digest, restored, "digest bytes round trip failed")

	err = merkle.DigestFromBytes(&restored, digest[:16])
	assert.NotNil(t, err, "short buffer must fail")
}
