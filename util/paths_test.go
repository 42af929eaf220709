// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util_test

import (
	"path/filepath"
	"testing"

	"github.com/bitmark-inc/merklemintd/util"
)

func TestEnsureAbsolute(t *testing.T) {
	items := []struct {
		directory string
		path      string
		expected  string
	}{
		{"/var/lib/app", "data.db", "/var/lib/app/data.db"},
		{"/var/lib/app", "./sub/../data.db", "/var/lib/app/data.db"},
		{"/var/lib/app", "/etc/app.conf", "/etc/app.conf"},
		{"/var/lib/app", "/etc/../etc/app.conf", "/etc/app.conf"},
	}

	for i, item := range items {
		actual := util.EnsureAbsolute(item.directory, item.path)
		expected := filepath.FromSlash(item.expected)
		if expected != actual {
			t.Errorf("%d: expected: %q  actual: %q", i, expected, actual)
		}
	}
}
