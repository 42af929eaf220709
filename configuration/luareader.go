// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package configuration

import (
	"github.com/yuin/gluamapper"
	lua "github.com/yuin/gopher-lua"
)

// ParseConfigurationFile - execute a Lua configuration file and map
// the table it leaves on the stack onto the target structure
//
// the script sees its own file name as arg[0]; field names are mapped
// verbatim through the gluamapper struct tags, no case folding
func ParseConfigurationFile(fileName string, target interface{}) error {
	vm := lua.NewState()
	defer vm.Close()
	vm.OpenLibs()

	arg := &lua.LTable{}
	arg.Insert(0, lua.LString(fileName))
	vm.SetGlobal("arg", arg)

	if err := vm.DoFile(fileName); nil != err {
		return err
	}

	mapper := gluamapper.Mapper{
		Option: gluamapper.Option{
			NameFunc: func(name string) string { return name },
			TagName:  "gluamapper",
		},
	}
	return mapper.Map(vm.Get(vm.GetTop()).(*lua.LTable), target)
}
