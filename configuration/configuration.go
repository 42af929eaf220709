// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package configuration

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/merklemintd/ledger"
	"github.com/bitmark-inc/merklemintd/rpc"
	"github.com/bitmark-inc/merklemintd/util"
)

// basic defaults (directories and files are relative to the
// "DataDirectory" from the configuration file)
const (
	defaultDataDirectory = "" // this will error; use "." for the same directory as the config file

	defaultLevelDBDirectory = "data"
	defaultDatabase         = "merklemint.leveldb"

	defaultLogDirectory = "log"
	defaultLogFile      = "merklemintd.log"
	defaultLogCount     = 10          //  number of log files retained
	defaultLogSize      = 1024 * 1024 // rotate when <logfile> exceeds this size

	defaultBatchSize           = 50
	defaultCommitTimeout       = 30        // seconds
	defaultRevealThreshold     = 3600      // seconds
	defaultMintInterval        = 86400     // seconds
	defaultInactivityThreshold = 7 * 86400 // seconds
	defaultCadenceTick         = 300       // seconds
	defaultReapTick            = 3600      // seconds
	defaultSweepInterval       = 300       // seconds

	defaultRPCClients = 10
)

// LoglevelMap - to hold log levels
type LoglevelMap map[string]string

// path expanded or calculated defaults
var (
	defaultLogLevels = LoglevelMap{
		logger.DefaultTag: "critical",
	}
)

// DatabaseType - the location of the database
type DatabaseType struct {
	Directory string `gluamapper:"directory" json:"directory"`
	Name      string `gluamapper:"name" json:"name"`
}

// Configuration - the result of parsing the configuration file
type Configuration struct {
	DataDirectory string       `gluamapper:"data_directory" json:"data_directory"`
	PidFile       string       `gluamapper:"pidfile" json:"pidfile"`
	Database      DatabaseType `gluamapper:"database" json:"database"`

	BatchSize     uint64 `gluamapper:"batch_size" json:"batch_size"`
	CommitTimeout uint64 `gluamapper:"commit_timeout" json:"commit_timeout"` // seconds

	RevealThreshold     uint64 `gluamapper:"reveal_threshold" json:"reveal_threshold"`         // seconds
	MintInterval        uint64 `gluamapper:"mint_interval" json:"mint_interval"`               // seconds
	InactivityThreshold uint64 `gluamapper:"inactivity_threshold" json:"inactivity_threshold"` // seconds
	CadenceTick         uint64 `gluamapper:"cadence_tick" json:"cadence_tick"`                 // seconds
	ReapTick            uint64 `gluamapper:"reap_tick" json:"reap_tick"`                       // seconds
	SweepInterval       uint64 `gluamapper:"sweep_interval" json:"sweep_interval"`             // seconds

	MetadataURIs []string `gluamapper:"metadata_uris" json:"metadata_uris"`

	ClientRPC rpc.ListenerConfiguration    `gluamapper:"client_rpc" json:"client_rpc"`
	Ledger    ledger.ContractConfiguration `gluamapper:"ledger" json:"ledger"`
	Logging   logger.Configuration         `gluamapper:"logging" json:"logging"`
}

// GetConfiguration - read, decode and verify the configuration
func GetConfiguration(configurationFileName string) (*Configuration, error) {

	configurationFileName, err := filepath.Abs(filepath.Clean(configurationFileName))
	if nil != err {
		return nil, err
	}

	// absolute path to the main directory
	dataDirectory, _ := filepath.Split(configurationFileName)

	options := &Configuration{

		DataDirectory: defaultDataDirectory,
		PidFile:       "", // no PidFile by default

		Database: DatabaseType{
			Directory: defaultLevelDBDirectory,
			Name:      defaultDatabase,
		},

		BatchSize:     defaultBatchSize,
		CommitTimeout: defaultCommitTimeout,

		RevealThreshold:     defaultRevealThreshold,
		MintInterval:        defaultMintInterval,
		InactivityThreshold: defaultInactivityThreshold,
		CadenceTick:         defaultCadenceTick,
		ReapTick:            defaultReapTick,
		SweepInterval:       defaultSweepInterval,

		// default: rpc listener disabled
		ClientRPC: rpc.ListenerConfiguration{
			MaximumConnections: defaultRPCClients,
		},

		Logging: logger.Configuration{
			Directory: defaultLogDirectory,
			File:      defaultLogFile,
			Size:      defaultLogSize,
			Count:     defaultLogCount,
			Levels:    defaultLogLevels,
		},
	}

	if err := ParseConfigurationFile(configurationFileName, options); err != nil {
		return nil, err
	}

	// ensure absolute data directory
	if "" == options.DataDirectory || "~" == options.DataDirectory {
		return nil, fmt.Errorf("Path: %q is not a valid directory", options.DataDirectory)
	} else if "." == options.DataDirectory {
		options.DataDirectory = dataDirectory // same directory as the configuration file
	} else {
		options.DataDirectory = filepath.Clean(options.DataDirectory)
	}

	// this directory must exist - i.e. must be created prior to running
	if fileInfo, err := os.Stat(options.DataDirectory); nil != err {
		return nil, err
	} else if !fileInfo.IsDir() {
		return nil, fmt.Errorf("Path: %q is not a directory", options.DataDirectory)
	}

	if 0 == options.BatchSize {
		return nil, fmt.Errorf("batch_size cannot be zero")
	}
	if 0 == options.RevealThreshold {
		return nil, fmt.Errorf("reveal_threshold cannot be zero")
	}
	if 0 == options.MintInterval {
		return nil, fmt.Errorf("mint_interval cannot be zero")
	}
	if 0 == len(options.MetadataURIs) {
		return nil, fmt.Errorf("metadata_uris cannot be empty")
	}

	// force all relevant items to be absolute paths
	// if not, assign them to the data directory
	mustBeAbsolute := []*string{
		&options.Database.Directory,
		&options.Logging.Directory,
	}
	for _, f := range mustBeAbsolute {
		*f = util.EnsureAbsolute(options.DataDirectory, *f)
	}

	// optional absolute paths i.e. blank or an absolute path
	optionalAbsolute := []*string{
		&options.PidFile,
	}
	for _, f := range optionalAbsolute {
		if "" != *f {
			*f = util.EnsureAbsolute(options.DataDirectory, *f)
		}
	}

	// fail if the database name is not a simple file name, then add
	// the directory prefix
	switch filepath.Dir(options.Database.Name) {
	case "", ".":
		options.Database.Name = util.EnsureAbsolute(options.Database.Directory, options.Database.Name)
	default:
		return nil, fmt.Errorf("Files: %q is not plain name", options.Database.Name)
	}

	// make absolute and create directories if they do not already exist
	for _, d := range []*string{
		&options.Database.Directory,
		&options.Logging.Directory,
	} {
		*d = util.EnsureAbsolute(options.DataDirectory, *d)
		if err := os.MkdirAll(*d, 0700); nil != err {
			return nil, err
		}
	}

	// done
	return options, nil
}
