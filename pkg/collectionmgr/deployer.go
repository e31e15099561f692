/*
 * Copyright © 2025 Kaleido, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
 * the License. You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
 * an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
 * specific language governing permissions and limitations under the License.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

// Package collectionmgr layers stateful lifecycle management over the
// stateless collection interaction functions: a Deployer that drives the
// deploy-then-initialize sequence of a new collection contract, and a Manager
// that caches collection state and tracks imperative actions against one
// deployed contract.
package collectionmgr

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"

	"github.com/asaskevich/EventBus"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-signer/pkg/abi"
	"github.com/hyperledger/firefly-signer/pkg/ethtypes"

	"github.com/kaleido-io/curio/internal/log"
	"github.com/kaleido-io/curio/internal/msgs"
	"github.com/kaleido-io/curio/pkg/collection"
)

type DeployPhase string

const (
	PhaseIdle         DeployPhase = "idle"
	PhaseDeploying    DeployPhase = "deploying"
	PhaseInitializing DeployPhase = "initializing"
	PhaseReady        DeployPhase = "ready"
	PhaseFailed       DeployPhase = "failed"
)

// DeployStatus is a point-in-time snapshot of the deployment. Each phase
// transition publishes one to every subscriber.
type DeployStatus struct {
	Phase           DeployPhase               `json:"phase"`
	ContractAddress *ethtypes.Address0xHex    `json:"contractAddress,omitempty"`
	DeployTX        ethtypes.HexBytes0xPrefix `json:"deployTx,omitempty"`
	InitializeTX    ethtypes.HexBytes0xPrefix `json:"initializeTx,omitempty"`
	Error           string                    `json:"error,omitempty"`
}

// CollectionParams is the initialize payload for a freshly deployed contract.
// MaxSupply zero leaves the supply unlimited.
type CollectionParams struct {
	Name      string   `json:"name" yaml:"name"`
	Symbol    string   `json:"symbol" yaml:"symbol"`
	BaseURI   string   `json:"baseURI" yaml:"baseURI"`
	MaxSupply *big.Int `json:"maxSupply" yaml:"maxSupply"`
	Owner     string   `json:"owner" yaml:"owner"`
}

const deployStatusTopic = "deployer.status"

// Deployer drives one contract through deploy then initialize. The sequence
// is strictly ordered - initialization never starts before the deploy receipt
// confirms - and one-shot: a Deployer that has left idle refuses to start
// again, whatever the outcome.
type Deployer struct {
	lock   sync.Mutex
	cc     *collection.CallContext
	build  *SolidityBuild
	bus    EventBus.Bus
	status DeployStatus
}

// NewDeployer binds a deployer to a call context (contract address unset) and
// a parsed build artifact.
func NewDeployer(cc *collection.CallContext, build *SolidityBuild) *Deployer {
	return &Deployer{
		cc:     cc,
		build:  build,
		bus:    EventBus.New(),
		status: DeployStatus{Phase: PhaseIdle},
	}
}

// Status returns the current snapshot.
func (d *Deployer) Status() DeployStatus {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.status
}

// Subscribe returns a channel of status snapshots and a cancel function. The
// channel is buffered and delivery is asynchronous; a subscriber that stops
// draining blocks only its own delivery goroutine, never the deployment.
func (d *Deployer) Subscribe() (<-chan DeployStatus, func()) {
	ch := make(chan DeployStatus, 10)
	handler := func(status DeployStatus) {
		ch <- status
	}
	_ = d.bus.SubscribeAsync(deployStatusTopic, handler, true)
	return ch, func() {
		_ = d.bus.Unsubscribe(deployStatusTopic, handler)
	}
}

// SubscribeFn registers a callback invoked on every phase change.
func (d *Deployer) SubscribeFn(fn func(DeployStatus)) func() {
	_ = d.bus.Subscribe(deployStatusTopic, fn)
	return func() {
		_ = d.bus.Unsubscribe(deployStatusTopic, fn)
	}
}

// Contract returns the deployed address once the deployer is ready.
func (d *Deployer) Contract(ctx context.Context) (*ethtypes.Address0xHex, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.status.Phase != PhaseReady {
		return nil, i18n.NewError(ctx, msgs.MsgDeployNotReady, d.status.Phase)
	}
	return d.status.ContractAddress, nil
}

// CallContext returns a copy of the deployer's call context bound to the
// deployed contract, ready to hand to a Manager.
func (d *Deployer) CallContext(ctx context.Context) (*collection.CallContext, error) {
	addr, err := d.Contract(ctx)
	if err != nil {
		return nil, err
	}
	cc := *d.cc
	cc.Contract = addr
	return &cc, nil
}

func (d *Deployer) setStatus(mutate func(s *DeployStatus)) DeployStatus {
	d.lock.Lock()
	mutate(&d.status)
	status := d.status
	d.lock.Unlock()
	d.bus.Publish(deployStatusTopic, status)
	return status
}

func (d *Deployer) fail(err error) {
	d.setStatus(func(s *DeployStatus) {
		s.Phase = PhaseFailed
		s.Error = err.Error()
	})
}

// Deploy runs the full sequence and blocks until the contract is ready or a
// step fails. The failure reason is retained on the status as well as
// returned.
func (d *Deployer) Deploy(ctx context.Context, params *CollectionParams) (*DeployStatus, error) {
	d.lock.Lock()
	if d.status.Phase != PhaseIdle {
		phase := d.status.Phase
		d.lock.Unlock()
		return nil, i18n.NewError(ctx, msgs.MsgDeployAlreadyStarted, phase)
	}
	if d.build == nil || len(d.build.Bytecode) == 0 {
		d.lock.Unlock()
		return nil, i18n.NewError(ctx, msgs.MsgDeployBuildRequired)
	}
	d.status.Phase = PhaseDeploying
	status := d.status
	d.lock.Unlock()
	d.bus.Publish(deployStatusTopic, status)

	contractAddr, err := d.deployContract(ctx)
	if err != nil {
		d.fail(err)
		return nil, err
	}
	status = d.setStatus(func(s *DeployStatus) {
		s.Phase = PhaseInitializing
		s.ContractAddress = contractAddr
	})
	log.L(ctx).Infof("Contract deployed at %s, initializing", contractAddr)

	initCC := *d.cc
	initCC.Contract = contractAddr
	res, err := collection.Initialize(ctx, &initCC, params.Name, params.Symbol, params.BaseURI, params.MaxSupply, params.Owner)
	if err != nil {
		d.fail(err)
		return nil, err
	}
	status = d.setStatus(func(s *DeployStatus) {
		s.Phase = PhaseReady
		s.InitializeTX = res.TransactionHash
	})
	log.L(ctx).Infof("Collection '%s' ready at %s", params.Name, contractAddr)
	return &status, nil
}

func (d *Deployer) deployContract(ctx context.Context) (*ethtypes.Address0xHex, error) {
	client, release, err := d.cc.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	constructorABI := d.build.ABI.Constructor()
	if constructorABI == nil {
		constructorABI = &abi.Entry{Type: abi.Constructor, Inputs: abi.ParameterArray{}}
	}
	fc, err := client.ABIConstructor(ctx, constructorABI, d.build.Bytecode)
	if err != nil {
		return nil, err
	}
	txHash, err := fc.R(ctx).Signer(d.cc.Signer).SignAndSend()
	if err != nil {
		return nil, err
	}
	d.setStatus(func(s *DeployStatus) {
		s.DeployTX = txHash
	})

	receipt, err := client.WaitForReceipt(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if !receipt.Success {
		return nil, i18n.NewError(ctx, msgs.MsgCollectionTxFailed, txHash, "deployment reverted")
	}
	if receipt.ContractLocation == nil {
		return nil, i18n.NewError(ctx, msgs.MsgDeployNoContractAddress, txHash)
	}
	var location struct {
		Address *ethtypes.Address0xHex `json:"address"`
	}
	if err := json.Unmarshal(receipt.ContractLocation.Bytes(), &location); err != nil || location.Address == nil {
		return nil, i18n.NewError(ctx, msgs.MsgDeployNoContractAddress, txHash)
	}
	return location.Address, nil
}
