// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package configuration

import (
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/merklemintd/cadence"
)

// Reloader - re-reads the configuration file when it changes
//
// the reveal threshold and the per-check cadence intervals are picked
// up at run time; every other setting needs a restart since subsystems
// are already wired with it
type Reloader struct {
	log       *logger.L
	fileName  string
	watcher   *fsnotify.Watcher
	threshold uint64 // atomic
	stop      chan struct{}
	finished  chan struct{}
}

// NewReloader - watch the configuration file for changes
//
// the directory is watched rather than the file itself since editors
// typically replace the file, which would drop a file-level watch
func NewReloader(fileName string, initialThreshold uint64) (*Reloader, error) {
	fileName, err := filepath.Abs(filepath.Clean(fileName))
	if nil != err {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if nil != err {
		return nil, err
	}

	if err := watcher.Add(filepath.Dir(fileName)); nil != err {
		watcher.Close()
		return nil, err
	}

	r := &Reloader{
		log:      logger.New("reload"),
		fileName: fileName,
		watcher:  watcher,
		stop:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	atomic.StoreUint64(&r.threshold, initialThreshold)

	go r.run()
	return r, nil
}

// RevealThreshold - the current reveal threshold in seconds
func (r *Reloader) RevealThreshold() uint64 {
	return atomic.LoadUint64(&r.threshold)
}

// Stop - stop watching
func (r *Reloader) Stop() {
	if nil == r {
		return
	}
	close(r.stop)
	<-r.finished
	r.watcher.Close()
}

func (r *Reloader) run() {
	defer close(r.finished)

	r.log.Infof("watching: %s", r.fileName)

loop:
	for {
		select {
		case <-r.stop:
			break loop

		case event, ok := <-r.watcher.Events:
			if !ok {
				break loop
			}
			if event.Name != r.fileName {
				continue loop
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue loop
			}
			r.reload()

		case err, ok := <-r.watcher.Errors:
			if !ok {
				break loop
			}
			r.log.Errorf("watch error: %s", err)
		}
	}
}

// re-read the file, keep the old threshold on any error
func (r *Reloader) reload() {
	options, err := GetConfiguration(r.fileName)
	if nil != err {
		r.log.Errorf("reload failed: %s", err)
		return
	}

	old := atomic.SwapUint64(&r.threshold, options.RevealThreshold)
	if old != options.RevealThreshold {
		r.log.Warnf("reveal threshold changed: %d to %d", old, options.RevealThreshold)
	}

	cadence.UpdateIntervals(options.MintInterval, options.InactivityThreshold)
}
