// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/bitmark-inc/getoptions"
	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/merklemintd/allocator"
	"github.com/bitmark-inc/merklemintd/batch"
	"github.com/bitmark-inc/merklemintd/cadence"
	"github.com/bitmark-inc/merklemintd/configuration"
	"github.com/bitmark-inc/merklemintd/expiry"
	"github.com/bitmark-inc/merklemintd/issue"
	"github.com/bitmark-inc/merklemintd/ledger"
	"github.com/bitmark-inc/merklemintd/metadata"
	"github.com/bitmark-inc/merklemintd/proof"
	"github.com/bitmark-inc/merklemintd/rpc"
	"github.com/bitmark-inc/merklemintd/storage"
)

// main program
func main() {
	// ensure exit handler is first
	defer exitwithstatus.Handler()

	flags := []getoptions.Option{
		{Long: "help", HasArg: getoptions.NO_ARGUMENT, Short: 'h'},
		{Long: "verbose", HasArg: getoptions.NO_ARGUMENT, Short: 'v'},
		{Long: "quiet", HasArg: getoptions.NO_ARGUMENT, Short: 'q'},
		{Long: "version", HasArg: getoptions.NO_ARGUMENT, Short: 'V'},
		{Long: "config-file", HasArg: getoptions.REQUIRED_ARGUMENT, Short: 'c'},
	}

	program, options, arguments, err := getoptions.GetOS(flags)
	if nil != err {
		exitwithstatus.Message("%s: getoptions error: %s", program, err)
	}

	if len(options["version"]) > 0 {
		fmt.Printf("%s: version: %s\n", program, version)
		return
	}

	if len(options["help"]) > 0 || len(arguments) > 0 {
		fmt.Printf("usage: %s [--help] [--verbose] [--quiet] --config-file=FILE\n", program)
		return
	}

	if 1 != len(options["config-file"]) {
		exitwithstatus.Message("%s: only one config-file option is required, %d were detected", program, len(options["config-file"]))
	}

	// read options and parse the configuration file
	configurationFile := options["config-file"][0]
	theConfiguration, err := configuration.GetConfiguration(configurationFile)
	if nil != err {
		exitwithstatus.Message("%s: failed to read configuration from: %q  error: %s", program, configurationFile, err)
	}

	// start logging
	if err = logger.Initialise(theConfiguration.Logging); nil != err {
		exitwithstatus.Message("%s: logger setup failed with error: %s", program, err)
	}
	defer logger.Finalise()

	// create a logger channel for the main program
	log := logger.New("main")
	defer log.Info("finished")
	log.Info("starting…")
	log.Infof("version: %s", version)
	log.Debugf("theConfiguration: %v", theConfiguration)

	// ------------------
	// start of real main
	// ------------------

	// optional PID file
	// use if not running under a supervisor program like daemon(8)
	if "" != theConfiguration.PidFile {
		lockFile, err := os.OpenFile(theConfiguration.PidFile, os.O_WRONLY|os.O_EXCL|os.O_CREATE, os.ModeExclusive|0600)
		if err != nil {
			if os.IsExist(err) {
				exitwithstatus.Message("%s: another instance is already running", program)
			}
			exitwithstatus.Message("%s: PID file: %q creation failed, error: %s", program, theConfiguration.PidFile, err)
		}
		fmt.Fprintf(lockFile, "%d\n", os.Getpid())
		lockFile.Close()
		defer os.Remove(theConfiguration.PidFile)
	}

	// general info
	log.Infof("database: %q", theConfiguration.Database)
	log.Infof("ledger network: %q", theConfiguration.Ledger.Network)

	// start the data storage
	log.Info("initialise storage")
	err = storage.Initialise(theConfiguration.Database.Name)
	if nil != err {
		log.Criticalf("storage initialise error: %s", err)
		exitwithstatus.Message("storage initialise error: %s", err)
	}
	defer storage.Finalise()

	// identifier allocation
	log.Info("initialise allocator")
	err = allocator.Initialise()
	if nil != err {
		log.Criticalf("allocator initialise error: %s", err)
		exitwithstatus.Message("allocator initialise error: %s", err)
	}
	defer allocator.Finalise()

	// metadata storage
	log.Info("initialise metadata")
	err = metadata.Initialise()
	if nil != err {
		log.Criticalf("metadata initialise error: %s", err)
		exitwithstatus.Message("metadata initialise error: %s", err)
	}
	defer metadata.Finalise()

	// batch records
	log.Info("initialise batch")
	err = batch.Initialise()
	if nil != err {
		log.Criticalf("batch initialise error: %s", err)
		exitwithstatus.Message("batch initialise error: %s", err)
	}
	defer batch.Finalise()

	// ledger client: a memory ledger when no network is configured
	// so the daemon can run stand-alone
	var client ledger.Client
	switch strings.ToLower(theConfiguration.Ledger.Network) {
	case "", "none":
		log.Warn("no ledger network configured: using memory ledger")
		client = ledger.NewMemoryClient(theConfiguration.RevealThreshold)
	default:
		client, err = ledger.NewContractClient(&theConfiguration.Ledger)
		if nil != err {
			log.Criticalf("ledger client error: %s", err)
			exitwithstatus.Message("ledger client error: %s", err)
		}
	}

	// issuance pipeline
	log.Info("initialise issue")
	picker := metadata.NewUniformPicker(theConfiguration.MetadataURIs, time.Now().UnixNano())
	err = issue.Initialise(client, picker, theConfiguration.BatchSize, time.Duration(theConfiguration.CommitTimeout)*time.Second)
	if nil != err {
		log.Criticalf("issue initialise error: %s", err)
		exitwithstatus.Message("issue initialise error: %s", err)
	}
	defer issue.Finalise()

	// configuration file watcher for the dynamic reveal threshold
	reloader, err := configuration.NewReloader(configurationFile, theConfiguration.RevealThreshold)
	if nil != err {
		log.Criticalf("reloader error: %s", err)
		exitwithstatus.Message("reloader error: %s", err)
	}
	defer reloader.Stop()

	// expiry sweeps
	log.Info("initialise expiry")
	source := newThresholdSource(client, reloader)
	err = expiry.Initialise(source, time.Duration(theConfiguration.SweepInterval)*time.Second)
	if nil != err {
		log.Criticalf("expiry initialise error: %s", err)
		exitwithstatus.Message("expiry initialise error: %s", err)
	}
	defer expiry.Finalise()

	// per-account scheduling
	log.Info("initialise cadence")
	intervals := cadence.Intervals{
		MintInterval:        theConfiguration.MintInterval,
		InactivityThreshold: theConfiguration.InactivityThreshold,
		CadenceTick:         time.Duration(theConfiguration.CadenceTick) * time.Second,
		ReapTick:            time.Duration(theConfiguration.ReapTick) * time.Second,
	}
	err = cadence.Initialise(intervals)
	if nil != err {
		log.Criticalf("cadence initialise error: %s", err)
		exitwithstatus.Message("cadence initialise error: %s", err)
	}
	defer cadence.Finalise()

	// reveal pipeline
	log.Info("initialise proof")
	err = proof.Initialise()
	if nil != err {
		log.Criticalf("proof initialise error: %s", err)
		exitwithstatus.Message("proof initialise error: %s", err)
	}
	defer proof.Finalise()

	// optional rpc listener
	if len(theConfiguration.ClientRPC.Listen) > 0 {
		log.Info("initialise rpc")
		err = rpc.Initialise(&theConfiguration.ClientRPC, version)
		if nil != err {
			log.Criticalf("rpc initialise error: %s", err)
			exitwithstatus.Message("rpc initialise error: %s", err)
		}
		defer rpc.Finalise()
	} else {
		log.Info("rpc listener disabled")
	}

	// wait for CTRL-C before shutting down to allow manual testing
	if 0 == len(options["quiet"]) {
		fmt.Printf("\n\nWaiting for CTRL-C (SIGINT) or 'kill <pid>' (SIGTERM)…")
	}

	// turn Signals into channel messages
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	sig := <-ch
	log.Infof("received signal: %v", sig)
	if 0 == len(options["quiet"]) {
		fmt.Printf("\nreceived signal: %v\n", sig)
		fmt.Printf("\nshutting down…\n")
	}

	log.Info("shutting down…")
}
