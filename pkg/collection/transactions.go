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
	"encoding/json"
	"math/big"
	"sort"
	"time"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-signer/pkg/abi"
	"github.com/hyperledger/firefly-signer/pkg/ethtypes"

	"github.com/kaleido-io/curio/internal/log"
	"github.com/kaleido-io/curio/internal/metrics"
	"github.com/kaleido-io/curio/internal/msgs"
	"github.com/kaleido-io/curio/pkg/ethclient"
)

// MaxBatchMint bounds a single mintBatch call. Larger batches hit block gas
// limits long before this, so the bound exists to fail obviously-wrong input
// before any network call.
const MaxBatchMint = 500

// TXResult is the confirmed outcome of a state-changing call.
type TXResult struct {
	TransactionHash ethtypes.HexBytes0xPrefix             `json:"transactionHash"`
	Receipt         *ethclient.TransactionReceiptResponse `json:"receipt"`
}

// MintResult extends TXResult with the token ID assigned by the mint.
type MintResult struct {
	TXResult
	TokenID *ethtypes.HexInteger `json:"tokenId"`
}

// MintBatchResult extends TXResult with the ordered sequence of newly
// assigned token IDs, exactly as many as were requested.
type MintBatchResult struct {
	TXResult
	TokenIDs []*ethtypes.HexInteger `json:"tokenIds"`
}

// submit signs and sends one transaction, then waits for its receipt within
// the caller's context. Every failure comes back with exactly one
// classification: before submission Timeout/Transport/RemoteRejected, after
// submission Unknown (receipt unobserved) or RemoteRejected (confirmed
// failed). No automatic retries - retry policy belongs to the caller.
func submit(ctx context.Context, cc *CallContext, entry *abi.Entry, input any) (*TXResult, error) {
	client, release, err := cc.connect(ctx, true)
	if err != nil {
		return nil, err
	}
	defer release()

	fc, err := client.ABIFunction(ctx, entry)
	if err != nil {
		return nil, newError(InvalidArgument, err)
	}
	req := fc.R(ctx).Signer(cc.Signer).To(cc.Contract)
	if input != nil {
		req = req.Input(input)
	}
	txHash, err := req.SignAndSend()
	if err != nil {
		metrics.IncTransactionsFailed()
		return nil, classifySubmitError(ctx, err)
	}
	metrics.IncTransactionsSubmitted()
	log.L(ctx).Debugf("%s submitted as %s, waiting for confirmation", entry.Name, txHash)

	receipt, err := client.WaitForReceipt(ctx, txHash)
	if err != nil {
		return nil, unknownOutcome(ctx, txHash, err)
	}
	if !receipt.Success {
		metrics.IncTransactionsFailed()
		return nil, receiptRejected(ctx, txHash, receipt)
	}
	metrics.IncTransactionsConfirmed()
	return &TXResult{TransactionHash: txHash, Receipt: receipt}, nil
}

type transferEvent struct {
	From    *ethtypes.Address0xHex `json:"from"`
	To      *ethtypes.Address0xHex `json:"to"`
	TokenID *ethtypes.HexInteger   `json:"tokenId"`
}

// mintedTokenIDs extracts the IDs assigned by a confirmed mint from the
// Transfer(0x0 -> to) events in the receipt logs, in log order.
func mintedTokenIDs(ctx context.Context, cc *CallContext, receipt *ethclient.TransactionReceiptResponse) ([]*ethtypes.HexInteger, error) {
	var tokenIDs []*ethtypes.HexInteger
	for _, l := range receipt.Logs {
		if len(l.Topics) == 0 || !l.Topics[0].Equals(transferEventSignature) {
			continue
		}
		if l.Address != nil && cc.Contract != nil && *l.Address != *cc.Contract {
			continue
		}
		cv, err := TransferEventABI.DecodeEventDataCtx(ctx, l.Topics, l.Data)
		if err != nil {
			log.L(ctx).Warnf("Failed to decode Transfer event in log %v: %s", l.LogIndex, err)
			continue
		}
		jsonData, err := ethclient.StandardABISerializer().SerializeJSONCtx(ctx, cv)
		if err != nil {
			return nil, newError(Unknown, err)
		}
		var ev transferEvent
		if err := json.Unmarshal(jsonData, &ev); err != nil {
			return nil, newError(Unknown, err)
		}
		if ev.From != nil && *ev.From == zeroAddress {
			tokenIDs = append(tokenIDs, ev.TokenID)
		}
	}
	return tokenIDs, nil
}

// Mint assigns the next sequential token ID to the target account. The
// result carries the ID recovered from the confirmed receipt.
func Mint(ctx context.Context, cc *CallContext, to string) (*MintResult, error) {
	defer metrics.ObserveOperation("mint", time.Now())
	toAddr, err := parseNonZeroAddress(ctx, "mint target", to)
	if err != nil {
		return nil, err
	}
	res, err := submit(ctx, cc, MintABI, &struct {
		To *ethtypes.Address0xHex `json:"to"`
	}{To: toAddr})
	if err != nil {
		return nil, err
	}
	tokenIDs, err := mintedTokenIDs(ctx, cc, res.Receipt)
	if err != nil {
		return nil, err
	}
	if len(tokenIDs) == 0 {
		return nil, newError(RemoteRejected, i18n.NewError(ctx, msgs.MsgCollectionMintEventsMissing, res.TransactionHash))
	}
	return &MintResult{TXResult: *res, TokenID: tokenIDs[0]}, nil
}

// MintBatch mints count tokens to the target account in one transaction. The
// returned IDs are in increasing order and there are exactly count of them -
// the contract's batch mint is atomic, so a failure changes nothing.
func MintBatch(ctx context.Context, cc *CallContext, to string, count int) (*MintBatchResult, error) {
	defer metrics.ObserveOperation("mintBatch", time.Now())
	toAddr, err := parseNonZeroAddress(ctx, "mint target", to)
	if err != nil {
		return nil, err
	}
	if count < 1 || count > MaxBatchMint {
		return nil, invalidArgument(ctx, msgs.MsgCollectionInvalidBatchCount, MaxBatchMint, count)
	}
	res, err := submit(ctx, cc, MintBatchABI, &struct {
		To    *ethtypes.Address0xHex `json:"to"`
		Count *ethtypes.HexInteger   `json:"count"`
	}{To: toAddr, Count: ethtypes.NewHexInteger64(int64(count))})
	if err != nil {
		return nil, err
	}
	tokenIDs, err := mintedTokenIDs(ctx, cc, res.Receipt)
	if err != nil {
		return nil, err
	}
	if len(tokenIDs) != count {
		return nil, newError(RemoteRejected, i18n.NewError(ctx, msgs.MsgCollectionMintCountMismatch, count, len(tokenIDs)))
	}
	// The increasing-ID guarantee is enforced here, not assumed from log order
	sort.Slice(tokenIDs, func(i, j int) bool {
		return tokenIDs[i].BigInt().Cmp(tokenIDs[j].BigInt()) < 0
	})
	return &MintBatchResult{TXResult: *res, TokenIDs: tokenIDs}, nil
}

// Burn permanently retires a token. Its ID is never reused, and any standing
// approval for it is invalidated by the contract.
func Burn(ctx context.Context, cc *CallContext, tokenID *big.Int) (*TXResult, error) {
	defer metrics.ObserveOperation("burn", time.Now())
	id, err := parseTokenID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	return submit(ctx, cc, BurnABI, &tokenIDParams{TokenID: id})
}

type transferParams struct {
	From    *ethtypes.Address0xHex `json:"from"`
	To      *ethtypes.Address0xHex `json:"to"`
	TokenID *ethtypes.HexInteger   `json:"tokenId"`
}

// TransferFrom moves a token between accounts. The signer must be the owner,
// the per-token approved address, or an approved operator - the contract,
// not this layer, enforces that.
func TransferFrom(ctx context.Context, cc *CallContext, from, to string, tokenID *big.Int) (*TXResult, error) {
	defer metrics.ObserveOperation("transferFrom", time.Now())
	input, err := buildTransferParams(ctx, from, to, tokenID)
	if err != nil {
		return nil, err
	}
	return submit(ctx, cc, TransferFromABI, input)
}

// SafeTransferFrom is TransferFrom with the ERC-721 receiver check on the
// target. Optional data is forwarded to the receiver hook.
func SafeTransferFrom(ctx context.Context, cc *CallContext, from, to string, tokenID *big.Int, data []byte) (*TXResult, error) {
	defer metrics.ObserveOperation("safeTransferFrom", time.Now())
	input, err := buildTransferParams(ctx, from, to, tokenID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return submit(ctx, cc, SafeTransferFromABI, input)
	}
	return submit(ctx, cc, SafeTransferFromDataABI, &struct {
		transferParams
		Data ethtypes.HexBytes0xPrefix `json:"data"`
	}{transferParams: *input, Data: data})
}

func buildTransferParams(ctx context.Context, from, to string, tokenID *big.Int) (*transferParams, error) {
	fromAddr, err := parseNonZeroAddress(ctx, "transfer source", from)
	if err != nil {
		return nil, err
	}
	toAddr, err := parseNonZeroAddress(ctx, "transfer target", to)
	if err != nil {
		return nil, err
	}
	id, err := parseTokenID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	return &transferParams{From: fromAddr, To: toAddr, TokenID: id}, nil
}

// Approve grants (or with the zero address, clears) the single approved
// address for one token.
func Approve(ctx context.Context, cc *CallContext, to string, tokenID *big.Int) (*TXResult, error) {
	defer metrics.ObserveOperation("approve", time.Now())
	toAddr, err := parseAddress(ctx, to)
	if err != nil {
		return nil, err
	}
	id, err := parseTokenID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	return submit(ctx, cc, ApproveABI, &struct {
		To      *ethtypes.Address0xHex `json:"to"`
		TokenID *ethtypes.HexInteger   `json:"tokenId"`
	}{To: toAddr, TokenID: id})
}

// SetApprovalForAll grants or revokes a standing operator approval over all
// of the signer's tokens.
func SetApprovalForAll(ctx context.Context, cc *CallContext, operator string, approved bool) (*TXResult, error) {
	defer metrics.ObserveOperation("setApprovalForAll", time.Now())
	operatorAddr, err := parseNonZeroAddress(ctx, "operator", operator)
	if err != nil {
		return nil, err
	}
	return submit(ctx, cc, SetApprovalForAllABI, &struct {
		Operator *ethtypes.Address0xHex `json:"operator"`
		Approved bool                   `json:"approved"`
	}{Operator: operatorAddr, Approved: approved})
}

// SetBaseURI replaces the metadata URI prefix for the whole collection.
func SetBaseURI(ctx context.Context, cc *CallContext, uri string) (*TXResult, error) {
	defer metrics.ObserveOperation("setBaseURI", time.Now())
	if uri == "" {
		return nil, invalidArgument(ctx, msgs.MsgCollectionEmptyBaseURI)
	}
	return submit(ctx, cc, SetBaseURIABI, &struct {
		BaseURI string `json:"baseURI"`
	}{BaseURI: uri})
}

// Pause gates all transfer-class operations until Unpause.
func Pause(ctx context.Context, cc *CallContext) (*TXResult, error) {
	defer metrics.ObserveOperation("pause", time.Now())
	return submit(ctx, cc, PauseABI, nil)
}

// Unpause lifts the transfer gate.
func Unpause(ctx context.Context, cc *CallContext) (*TXResult, error) {
	defer metrics.ObserveOperation("unpause", time.Now())
	return submit(ctx, cc, UnpauseABI, nil)
}

// TransferOwnership hands the contract-owner role to another account.
func TransferOwnership(ctx context.Context, cc *CallContext, newOwner string) (*TXResult, error) {
	defer metrics.ObserveOperation("transferOwnership", time.Now())
	newOwnerAddr, err := parseNonZeroAddress(ctx, "new owner", newOwner)
	if err != nil {
		return nil, err
	}
	return submit(ctx, cc, TransferOwnershipABI, &struct {
		NewOwner *ethtypes.Address0xHex `json:"newOwner"`
	}{NewOwner: newOwnerAddr})
}

// RenounceOwnership permanently abandons the contract-owner role.
func RenounceOwnership(ctx context.Context, cc *CallContext) (*TXResult, error) {
	defer metrics.ObserveOperation("renounceOwnership", time.Now())
	return submit(ctx, cc, RenounceOwnershipABI, nil)
}

// Initialize sets the collection-level state of a freshly deployed contract.
// A maxSupply of zero leaves the supply unlimited.
func Initialize(ctx context.Context, cc *CallContext, name, symbol, baseURI string, maxSupply *big.Int, owner string) (*TXResult, error) {
	defer metrics.ObserveOperation("initialize", time.Now())
	if name == "" || symbol == "" {
		return nil, invalidArgument(ctx, msgs.MsgCollectionNameRequired)
	}
	if maxSupply == nil || maxSupply.Sign() < 0 {
		return nil, invalidArgument(ctx, msgs.MsgCollectionInvalidMaxSupply, maxSupply)
	}
	ownerAddr, err := parseNonZeroAddress(ctx, "collection owner", owner)
	if err != nil {
		return nil, err
	}
	return submit(ctx, cc, InitializeABI, &struct {
		Name      string                 `json:"name"`
		Symbol    string                 `json:"symbol"`
		BaseURI   string                 `json:"baseURI"`
		MaxSupply *ethtypes.HexInteger   `json:"maxSupply"`
		Owner     *ethtypes.Address0xHex `json:"owner"`
	}{
		Name:      name,
		Symbol:    symbol,
		BaseURI:   baseURI,
		MaxSupply: (*ethtypes.HexInteger)(maxSupply),
		Owner:     ownerAddr,
	})
}
