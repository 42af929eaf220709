// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package merkle - deterministic merkle trees over token identifiers
//
// leaves are LeafDigest(id) for each identifier, sorted ascending by
// identifier; sibling pairs are combined with the sorted-pair rule
// (hash-ordered before concatenation) so verification does not depend
// on a leaf being a left or right child; a lone node at the end of an
// odd level is promoted unchanged to the next level
package merkle

import (
	"sort"

	"github.com/bitmark-inc/merklemintd/fault"
)

// Tree - a fully built tree retaining every level
//
// levels[0] is the leaf level, the last level has a single element,
// the root
type Tree struct {
	ids    []uint64
	index  map[uint64]int // identifier → leaf position
	levels [][]Digest
}

// NewTree - build a tree over a set of token identifiers
//
// the identifier set is sorted before leaf construction so that the
// same set always yields the same root regardless of input order;
// returns nil for an empty set
func NewTree(ids []uint64) *Tree {
	if 0 == len(ids) {
		return nil
	}

	sorted := make([]uint64, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	index := make(map[uint64]int, len(sorted))
	leaves := make([]Digest, len(sorted))
	for i, id := range sorted {
		index[id] = i
		leaves[i] = LeafDigest(id)
	}

	levels := [][]Digest{leaves}
	for workLength := len(leaves); workLength > 1; workLength = (workLength + 1) / 2 {
		current := levels[len(levels)-1]
		next := make([]Digest, 0, (workLength+1)/2)
		for i := 0; i < workLength; i += 2 {
			if i+1 == workLength {
				// odd count: promote the lone node unchanged
				next = append(next, current[i])
				break
			}
			next = append(next, combine(current[i], current[i+1]))
		}
		levels = append(levels, next)
	}

	return &Tree{
		ids:    sorted,
		index:  index,
		levels: levels,
	}
}

// Root - the root digest of the tree
func (tree *Tree) Root() Digest {
	top := tree.levels[len(tree.levels)-1]
	return top[0]
}

// Ids - the sorted identifier set the tree was built over
func (tree *Tree) Ids() []uint64 {
	ids := make([]uint64, len(tree.ids))
	copy(ids, tree.ids)
	return ids
}

// Proof - sibling digests from leaf to root for one identifier
//
// a promoted lone node contributes no sibling at that level
func (tree *Tree) Proof(id uint64) ([]Digest, error) {
	position, ok := tree.index[id]
	if !ok {
		return nil, fault.ErrIdentifierNotInTree
	}

	proof := make([]Digest, 0, len(tree.levels))
	for _, level := range tree.levels[:len(tree.levels)-1] {
		sibling := position ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}
		position /= 2
	}
	return proof, nil
}

// Verify - recompute a root from a leaf and its proof
func Verify(root Digest, leaf Digest, proof []Digest) bool {
	computed := leaf
	for _, sibling := range proof {
		computed = combine(computed, sibling)
	}
	return root == computed
}

// sorted-pair combine: hash-order the children before concatenation
func combine(a Digest, b Digest) Digest {
	if a.Cmp(b) > 0 {
		a, b = b, a
	}
	record := make([]byte, 0, 2*DigestLength)
	record = append(record, a[:]...)
	record = append(record, b[:]...)
	return NewDigest(record)
}
