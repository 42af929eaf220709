// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"strings"
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/merklemintd/counter"
	"github.com/bitmark-inc/merklemintd/fault"
)

const minConnectionCount = 1

// connection count for the listener
var connectionCount counter.Counter

// ListenerConfiguration - configuration file data for RPC setup
type ListenerConfiguration struct {
	MaximumConnections uint64   `gluamapper:"maximum_connections" json:"maximum_connections"`
	Listen             []string `gluamapper:"listen" json:"listen"`
}

// globals
type rpcData struct {
	sync.RWMutex

	log       *logger.L
	listeners []net.Listener

	initialised bool
}

var globalData rpcData

// Initialise - register the services and start listening
func Initialise(configuration *ListenerConfiguration, version string) error {
	globalData.Lock()
	defer globalData.Unlock()

	if globalData.initialised {
		return fault.ErrAlreadyInitialised
	}

	log := logger.New("rpc")
	globalData.log = log
	log.Info("starting…")

	if 0 == len(configuration.Listen) {
		log.Errorf("missing rpc listen")
		return fault.ErrMissingParameters
	}
	if configuration.MaximumConnections < minConnectionCount {
		log.Errorf("invalid rpc maximum connection limit: %d", configuration.MaximumConnections)
		return fault.ErrMissingParameters
	}

	services := NewServices()

	server := rpc.NewServer()
	_ = server.Register(services.Account)
	_ = server.Register(services.Token)
	_ = server.RegisterName("Batch", services.Batch)
	_ = server.Register(services.Admin)

	ipType, err := parseListenAddress(configuration.Listen, log)
	if nil != err {
		return err
	}

	log.Infof("version: %s", version)

	for i, listen := range configuration.Listen {
		log.Infof("starting RPC server: %s", listen)
		l, err := net.Listen(ipType[i], listen)
		if nil != err {
			log.Errorf("rpc server listen error: %s", err)
			return err
		}
		globalData.listeners = append(globalData.listeners, l)

		go doServeRPC(l, server, configuration.MaximumConnections, log)
	}

	globalData.initialised = true
	return nil
}

// Finalise - stop listening
func Finalise() error {
	globalData.Lock()
	defer globalData.Unlock()

	if !globalData.initialised {
		return fault.ErrNotInitialised
	}

	globalData.log.Info("shutting down…")
	for _, l := range globalData.listeners {
		_ = l.Close()
	}
	globalData.listeners = nil
	globalData.initialised = false

	globalData.log.Info("finished")
	globalData.log.Flush()
	return nil
}

func doServeRPC(listen net.Listener, server *rpc.Server, maximumConnections uint64, log *logger.L) {
	for {
		conn, err := listen.Accept()
		if err != nil {
			break
		}
		if connectionCount.Increment() <= maximumConnections {
			go func() {
				server.ServeCodec(jsonrpc.NewServerCodec(conn))
				_ = conn.Close()
				connectionCount.Decrement()
			}()
		} else {
			connectionCount.Decrement()
			_ = conn.Close()
		}
	}
	_ = listen.Close()
	log.Error("RPC accept terminated")
}

func parseListenAddress(addrs []string, log *logger.L) ([]string, error) {
	parsed := make([]string, len(addrs))
	for i, listen := range addrs {
		if '*' == listen[0] {
			// change "*:PORT" to "[::]:PORT"
			// on the assumption that this will listen on tcp4 and tcp6
			addrs[i] = "[::]" + ":" + strings.Split(listen, ":")[1]
			listen = "::"
			parsed[i] = "tcp"
		} else if '[' == listen[0] {
			listen = strings.Split(listen[1:], "]:")[0]
			parsed[i] = "tcp6"
		} else {
			listen = strings.Split(listen, ":")[0]
			parsed[i] = "tcp4"
		}

		if ip := net.ParseIP(listen); nil == ip {
			err := fault.ErrInvalidIPAddress
			log.Errorf("rpc server listen error: %s", err)
			return nil, err
		}
	}

	return parsed, nil
}
