// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package background - run a set of shutdownable processes
package background

// Process - interface for a background process
type Process interface {
	Run(args interface{}, shutdown <-chan struct{})
}

// Processes - list of processes to start
type Processes []Process

// single process control channels
type procControl struct {
	shutdown chan struct{}
	finished chan struct{}
}

// T - handle for a running set of processes
type T struct {
	procs []procControl
}

// Start - run a set of background processes
//
// args is passed unchanged to every Run
func Start(processes Processes, args interface{}) *T {

	register := &T{
		procs: make([]procControl, len(processes)),
	}

	for i, p := range processes {
		shutdown := make(chan struct{})
		finished := make(chan struct{})
		register.procs[i].shutdown = shutdown
		register.procs[i].finished = finished
		go func(p Process, shutdown <-chan struct{}, finished chan<- struct{}) {
			p.Run(args, shutdown)
			close(finished)
		}(p, shutdown, finished)
	}
	return register
}

// Stop - signal shutdown to all processes and wait for them to finish
func (t *T) Stop() {
	if nil == t {
		return
	}

	for _, p := range t.procs {
		close(p.shutdown)
	}
	for _, p := range t.procs {
		<-p.finished
	}
}
