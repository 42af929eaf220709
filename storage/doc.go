// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package storage - maintain the on-disk data store
//
// one LevelDB database partitioned into logical pools by a single
// byte key prefix:
//
//	B → batch records (key: 8 byte big endian sequence)
//	M → metadata entries (key: 8 byte big endian identifier)
//	A → account records (key: owner string)
//	N → counters (key: counter name)
package storage
