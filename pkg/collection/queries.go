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
	"math/big"
	"time"

	"github.com/hyperledger/firefly-signer/pkg/abi"
	"github.com/hyperledger/firefly-signer/pkg/ethtypes"

	"github.com/kaleido-io/curio/internal/metrics"
	"github.com/kaleido-io/curio/pkg/ethclient"
)

// CollectionInfo is a point-in-time snapshot of the collection-level state.
// A MaxSupply of zero means the supply is unlimited.
type CollectionInfo struct {
	Name        string               `json:"name"`
	Symbol      string               `json:"symbol"`
	BaseURI     string               `json:"baseURI"`
	TotalSupply *ethtypes.HexInteger `json:"totalSupply"`
	MaxSupply   *ethtypes.HexInteger `json:"maxSupply"`
}

// TokenInfo is a point-in-time snapshot of a single live token. The URI is
// computed by the contract as baseURI + decimal token ID.
type TokenInfo struct {
	TokenID *ethtypes.HexInteger   `json:"tokenId"`
	Owner   *ethtypes.Address0xHex `json:"owner"`
	URI     string                 `json:"uri"`
}

type ownerParams struct {
	Owner *ethtypes.Address0xHex `json:"owner"`
}

type tokenIDParams struct {
	TokenID *ethtypes.HexInteger `json:"tokenId"`
}

// queryWith runs one read-only call on an established client connection.
func queryWith(ctx context.Context, cc *CallContext, client ethclient.EthClient, entry *abi.Entry, input, output any) error {
	fc, err := client.ABIFunction(ctx, entry)
	if err != nil {
		return newError(InvalidArgument, err)
	}
	req := fc.R(ctx).To(cc.Contract).Output(output)
	if input != nil {
		req = req.Input(input)
	}
	metrics.IncQueries()
	if err := req.Call(); err != nil {
		return classifyQueryError(ctx, err)
	}
	return nil
}

func query(ctx context.Context, cc *CallContext, entry *abi.Entry, input, output any) error {
	client, release, err := cc.connect(ctx, false)
	if err != nil {
		return err
	}
	defer release()
	return queryWith(ctx, cc, client, entry, input, output)
}

// GetCollectionInfo queries the collection-level state in one pass over a
// single connection.
func GetCollectionInfo(ctx context.Context, cc *CallContext) (*CollectionInfo, error) {
	defer metrics.ObserveOperation("getCollectionInfo", time.Now())
	client, release, err := cc.connect(ctx, false)
	if err != nil {
		return nil, err
	}
	defer release()

	var name struct {
		Name string `json:"name"`
	}
	var symbol struct {
		Symbol string `json:"symbol"`
	}
	var baseURI struct {
		BaseURI string `json:"baseURI"`
	}
	var totalSupply struct {
		TotalSupply *ethtypes.HexInteger `json:"totalSupply"`
	}
	var maxSupply struct {
		MaxSupply *ethtypes.HexInteger `json:"maxSupply"`
	}
	for _, q := range []struct {
		entry  *abi.Entry
		output any
	}{
		{NameABI, &name},
		{SymbolABI, &symbol},
		{BaseURIABI, &baseURI},
		{TotalSupplyABI, &totalSupply},
		{MaxSupplyABI, &maxSupply},
	} {
		if err := queryWith(ctx, cc, client, q.entry, nil, q.output); err != nil {
			return nil, err
		}
	}
	return &CollectionInfo{
		Name:        name.Name,
		Symbol:      symbol.Symbol,
		BaseURI:     baseURI.BaseURI,
		TotalSupply: totalSupply.TotalSupply,
		MaxSupply:   maxSupply.MaxSupply,
	}, nil
}

// GetBalance returns the number of tokens held by an owner.
func GetBalance(ctx context.Context, cc *CallContext, owner string) (*ethtypes.HexInteger, error) {
	defer metrics.ObserveOperation("getBalance", time.Now())
	ownerAddr, err := parseAddress(ctx, owner)
	if err != nil {
		return nil, err
	}
	var out struct {
		Balance *ethtypes.HexInteger `json:"balance"`
	}
	if err := query(ctx, cc, BalanceOfABI, &ownerParams{Owner: ownerAddr}, &out); err != nil {
		return nil, err
	}
	return out.Balance, nil
}

// GetNFTInfo returns the owner and URI of a live token. A token that was
// never minted, or was burned, fails with an InvalidArgument classification.
func GetNFTInfo(ctx context.Context, cc *CallContext, tokenID *big.Int) (*TokenInfo, error) {
	defer metrics.ObserveOperation("getNFTInfo", time.Now())
	id, err := parseTokenID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	client, release, err := cc.connect(ctx, false)
	if err != nil {
		return nil, err
	}
	defer release()

	var owner struct {
		Owner *ethtypes.Address0xHex `json:"owner"`
	}
	if err := queryWith(ctx, cc, client, OwnerOfABI, &tokenIDParams{TokenID: id}, &owner); err != nil {
		return nil, err
	}
	var uri struct {
		URI string `json:"uri"`
	}
	if err := queryWith(ctx, cc, client, TokenURIABI, &tokenIDParams{TokenID: id}, &uri); err != nil {
		return nil, err
	}
	return &TokenInfo{
		TokenID: id,
		Owner:   owner.Owner,
		URI:     uri.URI,
	}, nil
}

// OwnerOf returns the current owner of a live token.
func OwnerOf(ctx context.Context, cc *CallContext, tokenID *big.Int) (*ethtypes.Address0xHex, error) {
	defer metrics.ObserveOperation("ownerOf", time.Now())
	id, err := parseTokenID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	var out struct {
		Owner *ethtypes.Address0xHex `json:"owner"`
	}
	if err := query(ctx, cc, OwnerOfABI, &tokenIDParams{TokenID: id}, &out); err != nil {
		return nil, err
	}
	return out.Owner, nil
}

// TokenURI returns the metadata URI of a live token.
func TokenURI(ctx context.Context, cc *CallContext, tokenID *big.Int) (string, error) {
	defer metrics.ObserveOperation("tokenURI", time.Now())
	id, err := parseTokenID(ctx, tokenID)
	if err != nil {
		return "", err
	}
	var out struct {
		URI string `json:"uri"`
	}
	if err := query(ctx, cc, TokenURIABI, &tokenIDParams{TokenID: id}, &out); err != nil {
		return "", err
	}
	return out.URI, nil
}

// GetApproved returns the single approved address for a token, or the zero
// address when no approval stands.
func GetApproved(ctx context.Context, cc *CallContext, tokenID *big.Int) (*ethtypes.Address0xHex, error) {
	defer metrics.ObserveOperation("getApproved", time.Now())
	id, err := parseTokenID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	var out struct {
		Approved *ethtypes.Address0xHex `json:"approved"`
	}
	if err := query(ctx, cc, GetApprovedABI, &tokenIDParams{TokenID: id}, &out); err != nil {
		return nil, err
	}
	return out.Approved, nil
}

// IsApprovedForAll reports whether an operator holds a standing approval over
// all of an owner's tokens.
func IsApprovedForAll(ctx context.Context, cc *CallContext, owner, operator string) (bool, error) {
	defer metrics.ObserveOperation("isApprovedForAll", time.Now())
	ownerAddr, err := parseAddress(ctx, owner)
	if err != nil {
		return false, err
	}
	operatorAddr, err := parseAddress(ctx, operator)
	if err != nil {
		return false, err
	}
	input := &struct {
		Owner    *ethtypes.Address0xHex `json:"owner"`
		Operator *ethtypes.Address0xHex `json:"operator"`
	}{Owner: ownerAddr, Operator: operatorAddr}
	var out struct {
		Approved bool `json:"approved"`
	}
	if err := query(ctx, cc, IsApprovedForAllABI, input, &out); err != nil {
		return false, err
	}
	return out.Approved, nil
}

// TokenByIndex enumerates the live tokens of the whole collection.
func TokenByIndex(ctx context.Context, cc *CallContext, index *big.Int) (*ethtypes.HexInteger, error) {
	defer metrics.ObserveOperation("tokenByIndex", time.Now())
	i, err := parseIndex(ctx, index)
	if err != nil {
		return nil, err
	}
	input := &struct {
		Index *ethtypes.HexInteger `json:"index"`
	}{Index: i}
	var out struct {
		TokenID *ethtypes.HexInteger `json:"tokenId"`
	}
	if err := query(ctx, cc, TokenByIndexABI, input, &out); err != nil {
		return nil, err
	}
	return out.TokenID, nil
}

// TokenOfOwnerByIndex enumerates the live tokens of one owner.
func TokenOfOwnerByIndex(ctx context.Context, cc *CallContext, owner string, index *big.Int) (*ethtypes.HexInteger, error) {
	defer metrics.ObserveOperation("tokenOfOwnerByIndex", time.Now())
	ownerAddr, err := parseAddress(ctx, owner)
	if err != nil {
		return nil, err
	}
	i, err := parseIndex(ctx, index)
	if err != nil {
		return nil, err
	}
	input := &struct {
		Owner *ethtypes.Address0xHex `json:"owner"`
		Index *ethtypes.HexInteger   `json:"index"`
	}{Owner: ownerAddr, Index: i}
	var out struct {
		TokenID *ethtypes.HexInteger `json:"tokenId"`
	}
	if err := query(ctx, cc, TokenOfOwnerByIndexABI, input, &out); err != nil {
		return nil, err
	}
	return out.TokenID, nil
}

// IsPaused reports whether transfer-class operations are currently gated.
func IsPaused(ctx context.Context, cc *CallContext) (bool, error) {
	defer metrics.ObserveOperation("isPaused", time.Now())
	var out struct {
		Paused bool `json:"paused"`
	}
	if err := query(ctx, cc, PausedABI, nil, &out); err != nil {
		return false, err
	}
	return out.Paused, nil
}

// SupportsInterface checks ERC-165 support for a 4-byte interface ID,
// supplied as hex with or without an 0x prefix.
func SupportsInterface(ctx context.Context, cc *CallContext, interfaceID string) (bool, error) {
	defer metrics.ObserveOperation("supportsInterface", time.Now())
	id, err := parseInterfaceID(ctx, interfaceID)
	if err != nil {
		return false, err
	}
	input := &struct {
		InterfaceID ethtypes.HexBytes0xPrefix `json:"interfaceId"`
	}{InterfaceID: id}
	var out struct {
		Supported bool `json:"supported"`
	}
	if err := query(ctx, cc, SupportsInterfaceABI, input, &out); err != nil {
		return false, err
	}
	return out.Supported, nil
}

// Owner returns the contract-level owner account.
func Owner(ctx context.Context, cc *CallContext) (*ethtypes.Address0xHex, error) {
	defer metrics.ObserveOperation("owner", time.Now())
	var out struct {
		Owner *ethtypes.Address0xHex `json:"owner"`
	}
	if err := query(ctx, cc, OwnerABI, nil, &out); err != nil {
		return nil, err
	}
	return out.Owner, nil
}
