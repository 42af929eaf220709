// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	hedera "github.com/hashgraph/hedera-sdk-go/v2"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/merklemintd/fault"
	"github.com/bitmark-inc/merklemintd/merkle"
)

// contract entry points
const (
	commitFunction    = "commitRoot"
	thresholdFunction = "revealThreshold"
)

const defaultGas = 200_000

// ContractConfiguration - connection parameters for the ledger contract
type ContractConfiguration struct {
	Network     string `gluamapper:"network" json:"network"`
	Operator    string `gluamapper:"operator" json:"operator"`
	OperatorKey string `gluamapper:"operator_key" json:"operator_key"`
	Contract    string `gluamapper:"contract" json:"contract"`
	Gas         uint64 `gluamapper:"gas" json:"gas"`
}

// contractClient - Client backed by a Hedera smart contract
type contractClient struct {
	log        *logger.L
	client     *hedera.Client
	contractID hedera.ContractID
	gas        uint64
}

// NewContractClient - connect to the ledger contract
func NewContractClient(configuration *ContractConfiguration) (Client, error) {

	network := strings.ToLower(strings.TrimSpace(configuration.Network))

	var client *hedera.Client
	switch network {
	case "mainnet":
		client = hedera.ClientForMainnet()
	case "testnet", "":
		client = hedera.ClientForTestnet()
	default:
		return nil, fmt.Errorf("unsupported ledger network %q", configuration.Network)
	}

	operatorID, err := hedera.AccountIDFromString(configuration.Operator)
	if nil != err {
		return nil, fmt.Errorf("invalid operator account: %s", err)
	}
	operatorKey, err := hedera.PrivateKeyFromString(configuration.OperatorKey)
	if nil != err {
		return nil, fmt.Errorf("invalid operator key: %s", err)
	}
	client.SetOperator(operatorID, operatorKey)

	contractID, err := hedera.ContractIDFromString(configuration.Contract)
	if nil != err {
		return nil, fmt.Errorf("invalid contract id: %s", err)
	}

	gas := configuration.Gas
	if 0 == gas {
		gas = defaultGas
	}

	return &contractClient{
		log:        logger.New("ledger"),
		client:     client,
		contractID: contractID,
		gas:        gas,
	}, nil
}

// outcome of one asynchronous contract call
type callResult struct {
	confirmation Confirmation
	err          error
}

// Commit - append a root to the contract's history
//
// the hedera SDK has no per-call context, so the execute/receipt
// round trip runs in its own goroutine and the context deadline is
// enforced here; on timeout the submission may still land on the
// ledger but the caller records nothing, which only costs a skipped
// identifier range
func (c *contractClient) Commit(ctx context.Context, root merkle.Digest) (Confirmation, error) {

	done := make(chan callResult, 1)

	go func() {
		done <- c.execute(root)
	}()

	select {
	case <-ctx.Done():
		c.log.Warnf("commit timed out: root: %s", root)
		return Confirmation{}, fault.ErrLedgerTimeout
	case result := <-done:
		if nil != result.err {
			c.log.Errorf("commit failed: root: %s  error: %s", root, result.err)
			return Confirmation{}, fault.ErrLedgerCommitFailed
		}
		return result.confirmation, nil
	}
}

// the blocking execute/record round trip
func (c *contractClient) execute(root merkle.Digest) callResult {

	parameters := hedera.NewContractFunctionParameters().AddBytes32([32]byte(root))

	response, err := hedera.NewContractExecuteTransaction().
		SetContractID(c.contractID).
		SetGas(c.gas).
		SetFunction(commitFunction, parameters).
		Execute(c.client)
	if nil != err {
		return callResult{err: err}
	}

	record, err := response.GetRecord(c.client)
	if nil != err {
		return callResult{err: err}
	}
	if "SUCCESS" != record.Receipt.Status.String() {
		return callResult{err: fmt.Errorf("commit status: %s", record.Receipt.Status.String())}
	}

	// the sequence comes from the commit's own return value; a
	// separate history query could read the same count for two
	// concurrent commits
	result, err := record.GetContractExecuteResult()
	if nil != err {
		return callResult{err: err}
	}

	timestamp := uint64(time.Now().Unix())
	if !record.ConsensusTimestamp.IsZero() {
		timestamp = uint64(record.ConsensusTimestamp.Unix())
	}

	return callResult{
		confirmation: Confirmation{
			Seq:       result.GetUint64(0),
			TxId:      response.TransactionID.String(),
			Timestamp: timestamp,
		},
	}
}

// RevealThreshold - read the on-chain reveal window
func (c *contractClient) RevealThreshold(ctx context.Context) (uint64, error) {

	done := make(chan callResult, 1)

	go func() {
		value, err := c.queryUint64(thresholdFunction)
		done <- callResult{confirmation: Confirmation{Seq: value}, err: err}
	}()

	select {
	case <-ctx.Done():
		return 0, fault.ErrLedgerTimeout
	case result := <-done:
		if nil != result.err {
			c.log.Errorf("threshold query failed: %s", result.err)
			return 0, fault.ErrLedgerQueryFailed
		}
		return result.confirmation.Seq, nil
	}
}

// call a no-argument contract view returning one uint64
func (c *contractClient) queryUint64(function string) (uint64, error) {
	result, err := hedera.NewContractCallQuery().
		SetContractID(c.contractID).
		SetGas(c.gas).
		SetFunction(function, nil).
		Execute(c.client)
	if nil != err {
		return 0, err
	}
	return result.GetUint64(0), nil
}
