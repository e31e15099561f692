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

package collection

import (
	"context"
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/hyperledger/firefly-signer/pkg/ethtypes"
	"github.com/hyperledger/firefly-signer/pkg/rpcbackend"

	"github.com/kaleido-io/curio/internal/msgs"
	"github.com/kaleido-io/curio/internal/rpcclient"
	"github.com/kaleido-io/curio/pkg/chains"
	"github.com/kaleido-io/curio/pkg/ethclient"
)

// CallContext is everything one call needs - there is no implicit global
// state, so concurrent calls against different contracts or endpoints never
// interfere. Zero-value fields fall back in a fixed order: an explicit Client
// wins over an explicit Endpoint, which wins over the ChainID registry
// default. Explicit test inputs are never shadowed by registry entries.
type CallContext struct {
	// Contract is the deployed collection address (always required)
	Contract *ethtypes.Address0xHex
	// Endpoint is an HTTP/HTTPS JSON-RPC URL, used when no Client is supplied
	Endpoint string
	// ChainID selects registry defaults when no Endpoint is supplied
	ChainID int64
	// Signer identifies the signing key, resolved through Keys. Required for
	// transaction calls, ignored for queries
	Signer string
	// Keys resolves and signs with the Signer identity
	Keys ethclient.KeyManager
	// Client is a pre-built connection, reused across calls when set. The
	// caller keeps ownership and closes it
	Client ethclient.EthClient
	// ClientConfig tunes gas estimation and receipt polling for per-call
	// built clients. Defaults apply when nil
	ClientConfig *ethclient.Config
}

// connect returns the client for this call, and a release function the caller
// must invoke when the call completes.
func (cc *CallContext) connect(ctx context.Context, needsSigner bool) (ethclient.EthClient, func(), error) {
	if cc.Contract == nil {
		return nil, nil, invalidArgument(ctx, msgs.MsgCollectionContractRequired)
	}
	if needsSigner && cc.Signer == "" {
		return nil, nil, invalidArgument(ctx, msgs.MsgCollectionSignerRequired, "transaction calls")
	}
	return cc.Connect(ctx)
}

// Connect builds the client for this context without requiring a contract
// address - contract deployment starts from exactly this state. The release
// function closes per-call built clients; a caller-supplied Client is left
// untouched.
func (cc *CallContext) Connect(ctx context.Context) (ethclient.EthClient, func(), error) {
	if cc.Client != nil {
		return cc.Client, func() {}, nil
	}

	endpoint := cc.Endpoint
	if endpoint == "" {
		chain, err := chains.Lookup(ctx, cc.ChainID)
		if err != nil {
			return nil, nil, invalidArgument(ctx, msgs.MsgCollectionEndpointRequired, cc.ChainID)
		}
		if endpoint, err = chain.HTTPEndpoint(ctx); err != nil {
			return nil, nil, invalidArgument(ctx, msgs.MsgCollectionEndpointRequired, cc.ChainID)
		}
	}

	httpClient, err := rpcclient.ParseHTTPConfig(ctx, &rpcclient.HTTPConfig{URL: endpoint})
	if err != nil {
		return nil, nil, newError(InvalidArgument, err)
	}
	conf := cc.ClientConfig
	if conf == nil {
		conf = &ethclient.Config{}
	}
	ec, err := ethclient.WrapRPCClient(ctx, cc.Keys, rpcbackend.NewRPCClient(httpClient), conf)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, newError(Timeout, err)
		}
		return nil, nil, newError(Transport, err)
	}
	return ec, ec.Close, nil
}

func parseAddress(ctx context.Context, addr string) (*ethtypes.Address0xHex, error) {
	a, err := ethtypes.NewAddress(addr)
	if err != nil {
		return nil, invalidArgument(ctx, msgs.MsgCollectionInvalidAddress, addr)
	}
	return a, nil
}

var zeroAddress = ethtypes.Address0xHex{}

func parseNonZeroAddress(ctx context.Context, field, addr string) (*ethtypes.Address0xHex, error) {
	a, err := parseAddress(ctx, addr)
	if err != nil {
		return nil, err
	}
	if *a == zeroAddress {
		return nil, invalidArgument(ctx, msgs.MsgCollectionZeroAddress, field)
	}
	return a, nil
}

func parseTokenID(ctx context.Context, tokenID *big.Int) (*ethtypes.HexInteger, error) {
	if tokenID == nil || tokenID.Sign() < 0 {
		return nil, invalidArgument(ctx, msgs.MsgCollectionInvalidTokenID, tokenID)
	}
	return (*ethtypes.HexInteger)(tokenID), nil
}

func parseIndex(ctx context.Context, index *big.Int) (*ethtypes.HexInteger, error) {
	if index == nil || index.Sign() < 0 {
		return nil, invalidArgument(ctx, msgs.MsgCollectionInvalidIndex, index)
	}
	return (*ethtypes.HexInteger)(index), nil
}

func parseInterfaceID(ctx context.Context, interfaceID string) (ethtypes.HexBytes0xPrefix, error) {
	id, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(interfaceID), "0x"))
	if err != nil || len(id) != 4 {
		return nil, invalidArgument(ctx, msgs.MsgCollectionInvalidInterfaceID, interfaceID)
	}
	return ethtypes.HexBytes0xPrefix(id), nil
}
