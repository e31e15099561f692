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
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/hyperledger/firefly-common/pkg/fftypes"
	"github.com/hyperledger/firefly-signer/pkg/abi"
	"github.com/hyperledger/firefly-signer/pkg/ethsigner"
	"github.com/hyperledger/firefly-signer/pkg/ethtypes"
	"github.com/hyperledger/firefly-signer/pkg/rpcbackend"
	"github.com/hyperledger/firefly-signer/pkg/secp256k1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"

	"github.com/kaleido-io/curio/internal/confutil"
	"github.com/kaleido-io/curio/pkg/ethclient"
	"github.com/kaleido-io/curio/pkg/keys"
)

// fakeCollection is an in-memory rendition of the collection contract, served
// over a real httptest JSON/RPC listener. Reads execute through eth_call,
// writes validate at eth_estimateGas (the way a real node surfaces reverts
// pre-submission) and apply state at eth_sendRawTransaction, with the receipt
// and its Transfer logs retrievable by hash.
type fakeCollection struct {
	t    *testing.T
	lock sync.Mutex

	name      string
	symbol    string
	baseURI   string
	maxSupply int64
	paused    bool
	owner     ethtypes.Address0xHex

	initialized bool
	nextID      int64
	tokens      map[int64]ethtypes.Address0xHex
	order       []int64
	approvals   map[int64]ethtypes.Address0xHex
	operators   map[ethtypes.Address0xHex]map[ethtypes.Address0xHex]bool

	receipts map[string]*testReceipt

	// failure injection
	skipValidation bool // let estimateGas pass so the failure lands in the receipt
	dropReceipts   bool // submitted transactions never confirm
	dropLogs       bool // confirmed receipts carry no event logs
	reverseLogs    bool // confirmed receipts carry their event logs reversed
}

type testReceipt struct {
	BlockHash        ethtypes.HexBytes0xPrefix  `json:"blockHash"`
	BlockNumber      *ethtypes.HexInteger       `json:"blockNumber"`
	From             *ethtypes.Address0xHex     `json:"from"`
	GasUsed          *ethtypes.HexInteger       `json:"gasUsed"`
	Status           *ethtypes.HexInteger       `json:"status"`
	TransactionHash  ethtypes.HexBytes0xPrefix  `json:"transactionHash"`
	TransactionIndex *ethtypes.HexInteger       `json:"transactionIndex"`
	Logs             []*ethclient.LogJSONRPC    `json:"logs"`
	RevertReason     *ethtypes.HexBytes0xPrefix `json:"revertReason"`
}

func newFakeCollection(t *testing.T) *fakeCollection {
	return &fakeCollection{
		t:         t,
		name:      "My NFT Collection",
		symbol:    "MNFT",
		baseURI:   "https://nft.example.com/meta/",
		nextID:    1,
		tokens:    map[int64]ethtypes.Address0xHex{},
		approvals: map[int64]ethtypes.Address0xHex{},
		operators: map[ethtypes.Address0xHex]map[ethtypes.Address0xHex]bool{},
		receipts:  map[string]*testReceipt{},
	}
}

func (f *fakeCollection) revert(format string, args ...any) error {
	return fmt.Errorf("execution reverted: "+format, args...)
}

func decodeArgs(t *testing.T, entry *abi.Entry, data []byte) map[string]any {
	cv, err := entry.DecodeCallDataCtx(context.Background(), data)
	require.NoError(t, err)
	jsonData, err := ethclient.StandardABISerializer().SerializeJSONCtx(context.Background(), cv)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(jsonData, &m))
	return m
}

func encodeOutputs(t *testing.T, entry *abi.Entry, values map[string]any) ethtypes.HexBytes0xPrefix {
	tc, err := entry.Outputs.TypeComponentTreeCtx(context.Background())
	require.NoError(t, err)
	cv, err := tc.ParseExternalCtx(context.Background(), values)
	require.NoError(t, err)
	data, err := cv.EncodeABIDataCtx(context.Background())
	require.NoError(t, err)
	return data
}

func addrArg(t *testing.T, m map[string]any, name string) ethtypes.Address0xHex {
	s, ok := m[name].(string)
	require.True(t, ok, "missing address arg %s", name)
	return *ethtypes.MustNewAddress(s)
}

func intArg(t *testing.T, m map[string]any, name string) int64 {
	s, ok := m[name].(string)
	require.True(t, ok, "missing integer arg %s", name)
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok)
	return v.Int64()
}

func selectorOf(entry *abi.Entry) string {
	return hex.EncodeToString(entry.FunctionSelectorBytes())
}

func (f *fakeCollection) isAuthorized(caller ethtypes.Address0xHex, tokenID int64) bool {
	tokenOwner := f.tokens[tokenID]
	if caller == tokenOwner || f.approvals[tokenID] == caller {
		return true
	}
	return f.operators[tokenOwner][caller]
}

func (f *fakeCollection) tokensOf(owner ethtypes.Address0xHex) []int64 {
	var owned []int64
	for _, id := range f.order {
		if f.tokens[id] == owner {
			owned = append(owned, id)
		}
	}
	return owned
}

// call handles an eth_call against the query surface.
func (f *fakeCollection) call(data []byte) (ethtypes.HexBytes0xPrefix, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if len(data) < 4 {
		return nil, fmt.Errorf("invalid call data")
	}
	selector := hex.EncodeToString(data[0:4])
	switch selector {
	case selectorOf(NameABI):
		return encodeOutputs(f.t, NameABI, map[string]any{"name": f.name}), nil
	case selectorOf(SymbolABI):
		return encodeOutputs(f.t, SymbolABI, map[string]any{"symbol": f.symbol}), nil
	case selectorOf(BaseURIABI):
		return encodeOutputs(f.t, BaseURIABI, map[string]any{"baseURI": f.baseURI}), nil
	case selectorOf(TotalSupplyABI):
		return encodeOutputs(f.t, TotalSupplyABI, map[string]any{"totalSupply": fmt.Sprintf("%d", len(f.order))}), nil
	case selectorOf(MaxSupplyABI):
		return encodeOutputs(f.t, MaxSupplyABI, map[string]any{"maxSupply": fmt.Sprintf("%d", f.maxSupply)}), nil
	case selectorOf(PausedABI):
		return encodeOutputs(f.t, PausedABI, map[string]any{"paused": f.paused}), nil
	case selectorOf(OwnerABI):
		return encodeOutputs(f.t, OwnerABI, map[string]any{"owner": f.owner.String()}), nil
	case selectorOf(BalanceOfABI):
		args := decodeArgs(f.t, BalanceOfABI, data)
		count := len(f.tokensOf(addrArg(f.t, args, "owner")))
		return encodeOutputs(f.t, BalanceOfABI, map[string]any{"balance": fmt.Sprintf("%d", count)}), nil
	case selectorOf(OwnerOfABI):
		args := decodeArgs(f.t, OwnerOfABI, data)
		tokenOwner, ok := f.tokens[intArg(f.t, args, "tokenId")]
		if !ok {
			return nil, f.revert("ERC721: owner query for nonexistent token")
		}
		return encodeOutputs(f.t, OwnerOfABI, map[string]any{"owner": tokenOwner.String()}), nil
	case selectorOf(TokenURIABI):
		args := decodeArgs(f.t, TokenURIABI, data)
		id := intArg(f.t, args, "tokenId")
		if _, ok := f.tokens[id]; !ok {
			return nil, f.revert("ERC721Metadata: URI query for nonexistent token")
		}
		return encodeOutputs(f.t, TokenURIABI, map[string]any{"uri": fmt.Sprintf("%s%d", f.baseURI, id)}), nil
	case selectorOf(GetApprovedABI):
		args := decodeArgs(f.t, GetApprovedABI, data)
		id := intArg(f.t, args, "tokenId")
		if _, ok := f.tokens[id]; !ok {
			return nil, f.revert("ERC721: approved query for nonexistent token")
		}
		approved := f.approvals[id]
		return encodeOutputs(f.t, GetApprovedABI, map[string]any{"approved": approved.String()}), nil
	case selectorOf(IsApprovedForAllABI):
		args := decodeArgs(f.t, IsApprovedForAllABI, data)
		approved := f.operators[addrArg(f.t, args, "owner")][addrArg(f.t, args, "operator")]
		return encodeOutputs(f.t, IsApprovedForAllABI, map[string]any{"approved": approved}), nil
	case selectorOf(TokenByIndexABI):
		args := decodeArgs(f.t, TokenByIndexABI, data)
		index := intArg(f.t, args, "index")
		if index >= int64(len(f.order)) {
			return nil, f.revert("ERC721Enumerable: global index out of bounds")
		}
		return encodeOutputs(f.t, TokenByIndexABI, map[string]any{"tokenId": fmt.Sprintf("%d", f.order[index])}), nil
	case selectorOf(TokenOfOwnerByIndexABI):
		args := decodeArgs(f.t, TokenOfOwnerByIndexABI, data)
		owned := f.tokensOf(addrArg(f.t, args, "owner"))
		index := intArg(f.t, args, "index")
		if index >= int64(len(owned)) {
			return nil, f.revert("ERC721Enumerable: owner index out of bounds")
		}
		return encodeOutputs(f.t, TokenOfOwnerByIndexABI, map[string]any{"tokenId": fmt.Sprintf("%d", owned[index])}), nil
	case selectorOf(SupportsInterfaceABI):
		args := decodeArgs(f.t, SupportsInterfaceABI, data)
		supported := map[string]bool{
			"0x01ffc9a7": true, // ERC-165
			"0x80ac58cd": true, // ERC-721
			"0x5b5e139f": true, // ERC-721 metadata
			"0x780e9d63": true, // ERC-721 enumerable
		}[args["interfaceId"].(string)]
		return encodeOutputs(f.t, SupportsInterfaceABI, map[string]any{"supported": supported}), nil
	}
	return nil, fmt.Errorf("unexpected eth_call selector 0x%s", selector)
}

func pad32(b []byte) ethtypes.HexBytes0xPrefix {
	padded := make([]byte, 32)
	copy(padded[32-len(b):], b)
	return padded
}

func (f *fakeCollection) transferLog(contract *ethtypes.Address0xHex, from, to ethtypes.Address0xHex, tokenID int64) *ethclient.LogJSONRPC {
	return &ethclient.LogJSONRPC{
		Address: contract,
		Topics: []ethtypes.HexBytes0xPrefix{
			transferEventSignature,
			pad32(from[:]),
			pad32(to[:]),
			pad32(new(big.Int).SetInt64(tokenID).Bytes()),
		},
		Data: ethtypes.HexBytes0xPrefix{},
	}
}

// execute runs the write surface. With apply=false it only validates (the
// eth_estimateGas path); with apply=true it mutates state and returns the
// emitted Transfer logs.
func (f *fakeCollection) execute(contract *ethtypes.Address0xHex, caller ethtypes.Address0xHex, data []byte, apply bool) ([]*ethclient.LogJSONRPC, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("invalid transaction data")
	}
	var logs []*ethclient.LogJSONRPC
	selector := hex.EncodeToString(data[0:4])
	switch selector {
	case selectorOf(InitializeABI):
		if f.initialized {
			return nil, f.revert("Initializable: contract is already initialized")
		}
		if apply {
			args := decodeArgs(f.t, InitializeABI, data)
			f.initialized = true
			f.name = args["name"].(string)
			f.symbol = args["symbol"].(string)
			f.baseURI = args["baseURI"].(string)
			f.maxSupply = intArg(f.t, args, "maxSupply")
			f.owner = addrArg(f.t, args, "owner")
		}
	case selectorOf(MintABI):
		args := decodeArgs(f.t, MintABI, data)
		if err := f.checkMint(caller, 1); err != nil {
			return nil, err
		}
		if apply {
			logs = f.mintTo(contract, addrArg(f.t, args, "to"), 1)
		}
	case selectorOf(MintBatchABI):
		args := decodeArgs(f.t, MintBatchABI, data)
		count := intArg(f.t, args, "count")
		if err := f.checkMint(caller, count); err != nil {
			return nil, err
		}
		if apply {
			logs = f.mintTo(contract, addrArg(f.t, args, "to"), count)
		}
	case selectorOf(BurnABI):
		args := decodeArgs(f.t, BurnABI, data)
		id := intArg(f.t, args, "tokenId")
		tokenOwner, ok := f.tokens[id]
		if !ok {
			return nil, f.revert("ERC721: invalid token ID")
		}
		if f.paused {
			return nil, f.revert("ERC721Pausable: token transfer while paused")
		}
		if !f.isAuthorized(caller, id) {
			return nil, f.revert("ERC721: caller is not token owner or approved")
		}
		if apply {
			delete(f.tokens, id)
			delete(f.approvals, id)
			f.removeFromOrder(id)
			logs = append(logs, f.transferLog(contract, tokenOwner, ethtypes.Address0xHex{}, id))
		}
	case selectorOf(TransferFromABI), selectorOf(SafeTransferFromABI), selectorOf(SafeTransferFromDataABI):
		entry := TransferFromABI
		switch selector {
		case selectorOf(SafeTransferFromABI):
			entry = SafeTransferFromABI
		case selectorOf(SafeTransferFromDataABI):
			entry = SafeTransferFromDataABI
		}
		args := decodeArgs(f.t, entry, data)
		id := intArg(f.t, args, "tokenId")
		from := addrArg(f.t, args, "from")
		to := addrArg(f.t, args, "to")
		tokenOwner, ok := f.tokens[id]
		if !ok {
			return nil, f.revert("ERC721: invalid token ID")
		}
		if f.paused {
			return nil, f.revert("ERC721Pausable: token transfer while paused")
		}
		if tokenOwner != from {
			return nil, f.revert("ERC721: transfer from incorrect owner")
		}
		if !f.isAuthorized(caller, id) {
			return nil, f.revert("ERC721: caller is not token owner or approved")
		}
		if apply {
			f.tokens[id] = to
			delete(f.approvals, id)
			logs = append(logs, f.transferLog(contract, from, to, id))
		}
	case selectorOf(ApproveABI):
		args := decodeArgs(f.t, ApproveABI, data)
		id := intArg(f.t, args, "tokenId")
		tokenOwner, ok := f.tokens[id]
		if !ok {
			return nil, f.revert("ERC721: invalid token ID")
		}
		if caller != tokenOwner && !f.operators[tokenOwner][caller] {
			return nil, f.revert("ERC721: approve caller is not token owner or approved for all")
		}
		if apply {
			f.approvals[id] = addrArg(f.t, args, "to")
		}
	case selectorOf(SetApprovalForAllABI):
		args := decodeArgs(f.t, SetApprovalForAllABI, data)
		operator := addrArg(f.t, args, "operator")
		if operator == caller {
			return nil, f.revert("ERC721: approve to caller")
		}
		if apply {
			if f.operators[caller] == nil {
				f.operators[caller] = map[ethtypes.Address0xHex]bool{}
			}
			f.operators[caller][operator] = args["approved"].(bool)
		}
	case selectorOf(SetBaseURIABI):
		if caller != f.owner {
			return nil, f.revert("Ownable: caller is not the owner")
		}
		if apply {
			args := decodeArgs(f.t, SetBaseURIABI, data)
			f.baseURI = args["baseURI"].(string)
		}
	case selectorOf(PauseABI):
		if caller != f.owner {
			return nil, f.revert("Ownable: caller is not the owner")
		}
		if f.paused {
			return nil, f.revert("Pausable: paused")
		}
		if apply {
			f.paused = true
		}
	case selectorOf(UnpauseABI):
		if caller != f.owner {
			return nil, f.revert("Ownable: caller is not the owner")
		}
		if !f.paused {
			return nil, f.revert("Pausable: not paused")
		}
		if apply {
			f.paused = false
		}
	case selectorOf(TransferOwnershipABI):
		if caller != f.owner {
			return nil, f.revert("Ownable: caller is not the owner")
		}
		if apply {
			args := decodeArgs(f.t, TransferOwnershipABI, data)
			f.owner = addrArg(f.t, args, "newOwner")
		}
	case selectorOf(RenounceOwnershipABI):
		if caller != f.owner {
			return nil, f.revert("Ownable: caller is not the owner")
		}
		if apply {
			f.owner = ethtypes.Address0xHex{}
		}
	default:
		return nil, fmt.Errorf("unexpected transaction selector 0x%s", selector)
	}
	return logs, nil
}

func (f *fakeCollection) checkMint(caller ethtypes.Address0xHex, count int64) error {
	if caller != f.owner {
		return f.revert("Ownable: caller is not the owner")
	}
	if f.paused {
		return f.revert("ERC721Pausable: token transfer while paused")
	}
	if count < 1 {
		return f.revert("mint count must be positive")
	}
	if f.maxSupply > 0 && int64(len(f.order))+count > f.maxSupply {
		return f.revert("mint would exceed max supply")
	}
	return nil
}

func (f *fakeCollection) mintTo(contract *ethtypes.Address0xHex, to ethtypes.Address0xHex, count int64) []*ethclient.LogJSONRPC {
	var logs []*ethclient.LogJSONRPC
	for i := int64(0); i < count; i++ {
		id := f.nextID
		f.nextID++
		f.tokens[id] = to
		f.order = append(f.order, id)
		logs = append(logs, f.transferLog(contract, ethtypes.Address0xHex{}, to, id))
	}
	return logs
}

func (f *fakeCollection) removeFromOrder(id int64) {
	for i, existing := range f.order {
		if existing == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			return
		}
	}
}

func (f *fakeCollection) process(ctx context.Context, rpcReq *rpcbackend.RPCRequest) (any, error) {
	switch rpcReq.Method {
	case "eth_chainId":
		return ethtypes.HexUint64(12345), nil
	case "eth_gasPrice":
		return ethtypes.NewHexInteger64(1000000000), nil
	case "eth_getTransactionCount":
		return ethtypes.HexUint64(0), nil
	case "eth_call":
		var tx ethsigner.Transaction
		var block string
		if err := json.Unmarshal(rpcReq.Params[0].Bytes(), &tx); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(rpcReq.Params[1].Bytes(), &block); err != nil {
			return nil, err
		}
		return f.call(tx.Data)
	case "eth_estimateGas":
		var tx ethsigner.Transaction
		if err := json.Unmarshal(rpcReq.Params[0].Bytes(), &tx); err != nil {
			return nil, err
		}
		f.lock.Lock()
		defer f.lock.Unlock()
		if !f.skipValidation {
			var fromStr string
			if err := json.Unmarshal(tx.From, &fromStr); err != nil {
				return nil, err
			}
			if _, err := f.execute(tx.To, *ethtypes.MustNewAddress(fromStr), tx.Data, false); err != nil {
				return nil, err
			}
		}
		return ethtypes.NewHexInteger64(100000), nil
	case "eth_sendRawTransaction":
		var rawTX ethtypes.HexBytes0xPrefix
		if err := json.Unmarshal(rpcReq.Params[0].Bytes(), &rawTX); err != nil {
			return nil, err
		}
		return f.submitRaw(ctx, rawTX)
	case "eth_getTransactionReceipt":
		var txHash ethtypes.HexBytes0xPrefix
		if err := json.Unmarshal(rpcReq.Params[0].Bytes(), &txHash); err != nil {
			return nil, err
		}
		f.lock.Lock()
		defer f.lock.Unlock()
		receipt, ok := f.receipts[txHash.String()]
		if !ok {
			return nil, nil
		}
		return receipt, nil
	}
	return nil, fmt.Errorf("method %s not implemented by test", rpcReq.Method)
}

func (f *fakeCollection) submitRaw(ctx context.Context, rawTX ethtypes.HexBytes0xPrefix) (ethtypes.HexBytes0xPrefix, error) {
	from, decodedTX, err := ethsigner.RecoverRawTransaction(ctx, rawTX, 12345)
	if err != nil {
		return nil, err
	}
	hash := sha3.NewLegacyKeccak256()
	hash.Write(rawTX)
	txHash := ethtypes.HexBytes0xPrefix(hash.Sum(nil))

	f.lock.Lock()
	defer f.lock.Unlock()
	if f.dropReceipts {
		return txHash, nil
	}
	logs, execErr := f.execute(decodedTX.Transaction.To, *from, decodedTX.Transaction.Data, true)
	receipt := &testReceipt{
		BlockHash:        pad32([]byte{0xb1, 0x0c}),
		BlockNumber:      ethtypes.NewHexInteger64(int64(len(f.receipts)) + 1),
		From:             from,
		GasUsed:          ethtypes.NewHexInteger64(90000),
		Status:           ethtypes.NewHexInteger64(1),
		TransactionHash:  txHash,
		TransactionIndex: ethtypes.NewHexInteger64(0),
		Logs:             logs,
	}
	if execErr != nil {
		receipt.Status = ethtypes.NewHexInteger64(0)
		receipt.Logs = nil
		cv, err := defaultErrorABI.Inputs.ParseJSON([]byte(fmt.Sprintf(`[%q]`, execErr.Error())))
		require.NoError(f.t, err)
		revertData, err := defaultErrorABI.EncodeCallData(cv)
		require.NoError(f.t, err)
		revertReason := ethtypes.HexBytes0xPrefix(revertData)
		receipt.RevertReason = &revertReason
	}
	if f.dropLogs {
		receipt.Logs = nil
	}
	if f.reverseLogs {
		for i, j := 0, len(receipt.Logs)-1; i < j; i, j = i+1, j-1 {
			receipt.Logs[i], receipt.Logs[j] = receipt.Logs[j], receipt.Logs[i]
		}
	}
	f.receipts[txHash.String()] = receipt
	return txHash, nil
}

// The default Error(string) ABI used by solidity revert
var defaultErrorABI = &abi.Entry{
	Type: abi.Error,
	Name: "Error",
	Inputs: abi.ParameterArray{
		{Type: "string"},
	},
}

func (f *fakeCollection) handleJSONRPC(ctx context.Context, rpcReq *rpcbackend.RPCRequest) *rpcbackend.RPCResponse {
	result, err := f.process(ctx, rpcReq)
	if err != nil {
		return rpcbackend.RPCErrorResponse(err, rpcReq.ID, rpcbackend.RPCCodeInternalError)
	}
	b, err := json.Marshal(result)
	if err != nil {
		return rpcbackend.RPCErrorResponse(err, rpcReq.ID, rpcbackend.RPCCodeInternalError)
	}
	return &rpcbackend.RPCResponse{
		JSONRpc: "2.0",
		ID:      rpcReq.ID,
		Result:  fftypes.JSONAnyPtrBytes(b),
	}
}

type testEnv struct {
	ctx   context.Context
	fake  *fakeCollection
	cc    *CallContext
	addrs map[string]*ethtypes.Address0xHex
	done  func()
}

var testContractAddress = ethtypes.MustNewAddress("0x497eedc4299dea2f2a364be10025d0ad0f702de3")

// newTestEnv stands up the fake contract and a CallContext bound to it, with
// static signing keys for "owner", "alice" and "operator". The owner key is
// the contract owner and the default signer.
func newTestEnv(t *testing.T) *testEnv {
	fake := newFakeCollection(t)

	staticKeys := map[string]keys.StaticKeyEntryConfig{}
	addrs := map[string]*ethtypes.Address0xHex{}
	for _, name := range []string{"owner", "alice", "operator"} {
		kp, err := secp256k1.GenerateSecp256k1KeyPair()
		require.NoError(t, err)
		staticKeys[name] = keys.StaticKeyEntryConfig{Inline: hex.EncodeToString(kp.PrivateKeyBytes())}
		addr := ethtypes.Address0xHex(kp.Address)
		addrs[name] = &addr
	}
	fake.owner = *addrs["owner"]

	kmgr, err := keys.NewKeyManager(context.Background(), &keys.Config{Static: staticKeys})
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rpcReq *rpcbackend.RPCRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&rpcReq))
		rpcRes := fake.handleJSONRPC(r.Context(), rpcReq)
		status := 200
		if rpcRes.Error != nil {
			status = 500
		}
		b, err := json.Marshal(rpcRes)
		assert.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(b)
	}))

	return &testEnv{
		ctx:   context.Background(),
		fake:  fake,
		addrs: addrs,
		cc: &CallContext{
			Contract: testContractAddress,
			Endpoint: server.URL,
			Signer:   "owner",
			Keys:     kmgr,
			ClientConfig: &ethclient.Config{
				ReceiptPollingInterval: confutil.P("1ms"),
			},
		},
		done: func() {
			kmgr.Close()
			server.Close()
		},
	}
}

// signerContext returns a copy of the call context bound to another key.
func (env *testEnv) signerContext(signer string) *CallContext {
	cc := *env.cc
	cc.Signer = signer
	return &cc
}

// mintTokens seeds the fake with count tokens for an owner, without going
// through the client under test.
func (env *testEnv) mintTokens(owner string, count int) []int64 {
	env.fake.lock.Lock()
	defer env.fake.lock.Unlock()
	var ids []int64
	for i := 0; i < count; i++ {
		id := env.fake.nextID
		env.fake.nextID++
		env.fake.tokens[id] = *env.addrs[owner]
		env.fake.order = append(env.fake.order, id)
		ids = append(ids, id)
	}
	return ids
}
