// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package metadata

import (
	"math/rand"
	"sync"
)

// Picker - external metadata-URI selection policy
//
// invoked once per newly allocated identifier; the weighted
// distribution behind the choice is supplied by the caller
type Picker interface {
	PickURI() string
}

// UniformPicker - uniform random choice over a fixed URI list
//
// stand-in policy so the daemon runs without an external weighted
// source configured
type UniformPicker struct {
	sync.Mutex
	uris []string
	rand *rand.Rand
}

// NewUniformPicker - create a picker over a URI list
func NewUniformPicker(uris []string, seed int64) *UniformPicker {
	return &UniformPicker{
		uris: uris,
		rand: rand.New(rand.NewSource(seed)),
	}
}

// PickURI - choose one URI
func (p *UniformPicker) PickURI() string {
	p.Lock()
	defer p.Unlock()
	if 0 == len(p.uris) {
		return ""
	}
	return p.uris[p.rand.Intn(len(p.uris))]
}
