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

// Package chains is a static registry of the networks this client knows out
// of the box. Entries supply defaults only - an explicitly configured
// endpoint, factory or explorer always wins over the registry.
package chains

import (
	"context"
	"sort"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-signer/pkg/ethtypes"

	"github.com/kaleido-io/curio/internal/msgs"
)

// Chain is one registered network. The registry is immutable at runtime,
// and callers must not modify returned entries.
type Chain struct {
	ChainID          int64
	Name             string
	DefaultHTTPURL   string
	DefaultWSURL     string
	FactoryAddress   *ethtypes.Address0xHex
	BlockExplorerURL string
}

var (
	EthereumMainnet = &Chain{
		ChainID:          1,
		Name:             "ethereum",
		DefaultHTTPURL:   "https://ethereum-rpc.publicnode.com",
		DefaultWSURL:     "wss://ethereum-rpc.publicnode.com",
		BlockExplorerURL: "https://etherscan.io",
	}
	Sepolia = &Chain{
		ChainID:          11155111,
		Name:             "sepolia",
		DefaultHTTPURL:   "https://ethereum-sepolia-rpc.publicnode.com",
		DefaultWSURL:     "wss://ethereum-sepolia-rpc.publicnode.com",
		BlockExplorerURL: "https://sepolia.etherscan.io",
	}
	Polygon = &Chain{
		ChainID:          137,
		Name:             "polygon",
		DefaultHTTPURL:   "https://polygon-bor-rpc.publicnode.com",
		DefaultWSURL:     "wss://polygon-bor-rpc.publicnode.com",
		BlockExplorerURL: "https://polygonscan.com",
	}
	// Localhost matches the default hardhat/anvil developer chain, where the
	// first contract deployed from the first default account always lands on
	// the same address - registered here as the factory default.
	Localhost = &Chain{
		ChainID:        31337,
		Name:           "localhost",
		DefaultHTTPURL: "http://localhost:8545",
		DefaultWSURL:   "ws://localhost:8545",
		FactoryAddress: ethtypes.MustNewAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
	}
)

var registry = map[int64]*Chain{
	EthereumMainnet.ChainID: EthereumMainnet,
	Sepolia.ChainID:         Sepolia,
	Polygon.ChainID:         Polygon,
	Localhost.ChainID:       Localhost,
}

// Lookup returns the registered chain for an ID.
func Lookup(ctx context.Context, chainID int64) (*Chain, error) {
	chain, ok := registry[chainID]
	if !ok {
		return nil, i18n.NewError(ctx, msgs.MsgChainsUnknownChainID, chainID)
	}
	return chain, nil
}

// Known returns all registered chains, ordered by chain ID.
func Known() []*Chain {
	known := make([]*Chain, 0, len(registry))
	for _, chain := range registry {
		known = append(known, chain)
	}
	sort.Slice(known, func(i, j int) bool { return known[i].ChainID < known[j].ChainID })
	return known
}

// HTTPEndpoint returns the default HTTP JSON-RPC endpoint for the chain.
func (c *Chain) HTTPEndpoint(ctx context.Context) (string, error) {
	if c.DefaultHTTPURL == "" {
		return "", i18n.NewError(ctx, msgs.MsgChainsNoDefaultEndpoint, c.Name)
	}
	return c.DefaultHTTPURL, nil
}

// WSEndpoint returns the default WebSocket JSON-RPC endpoint for the chain.
func (c *Chain) WSEndpoint(ctx context.Context) (string, error) {
	if c.DefaultWSURL == "" {
		return "", i18n.NewError(ctx, msgs.MsgChainsNoDefaultEndpoint, c.Name)
	}
	return c.DefaultWSURL, nil
}

// Factory returns the collection factory address registered for the chain.
func (c *Chain) Factory(ctx context.Context) (*ethtypes.Address0xHex, error) {
	if c.FactoryAddress == nil {
		return nil, i18n.NewError(ctx, msgs.MsgChainsNoFactoryAddress, c.Name)
	}
	return c.FactoryAddress, nil
}
