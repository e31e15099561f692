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

package collectionmgr

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
	"github.com/kaleido-io/curio/internal/retry"
	"github.com/kaleido-io/curio/pkg/collection"
	"github.com/kaleido-io/curio/pkg/ethclient"
	"github.com/kaleido-io/curio/pkg/keys"
)

// mockNode is a scripted node for lifecycle tests: it answers the query
// selectors the manager refreshes through, applies the write selectors to its
// own state, and mints a deployment receipt for contract-creation sends.
type mockNode struct {
	t    *testing.T
	lock sync.Mutex

	name        string
	symbol      string
	baseURI     string
	maxSupply   int64
	nextID      int64
	owners      map[int64]string
	initialized bool

	deployAddr *ethtypes.Address0xHex

	// failure injection
	failQueries       bool // eth_call fails transport-style
	omitDeployAddress bool // deployment receipt carries no contractAddress
	revertDeploy      bool // contract creation reverts at gas estimation
	revertInitialize  bool // initialize reverts at gas estimation
	failDeployReceipt bool // deployment receipt confirms failed

	receipts map[string]*mockReceipt
}

type mockReceipt struct {
	BlockNumber      *ethtypes.HexInteger       `json:"blockNumber"`
	ContractAddress  *ethtypes.Address0xHex     `json:"contractAddress,omitempty"`
	From             *ethtypes.Address0xHex     `json:"from"`
	GasUsed          *ethtypes.HexInteger       `json:"gasUsed"`
	Status           *ethtypes.HexInteger       `json:"status"`
	TransactionHash  ethtypes.HexBytes0xPrefix  `json:"transactionHash"`
	TransactionIndex *ethtypes.HexInteger       `json:"transactionIndex"`
	Logs             []*ethclient.LogJSONRPC    `json:"logs"`
	RevertReason     *ethtypes.HexBytes0xPrefix `json:"revertReason"`
}

var mockContractAddress = ethtypes.MustNewAddress("0x64e22dcdd5a627f693e07d4de3c2dcdbc2e8eb61")

func newMockNode(t *testing.T) *mockNode {
	return &mockNode{
		t:          t,
		name:       "My NFT Collection",
		symbol:     "MNFT",
		baseURI:    "https://nft.example.com/meta/",
		nextID:     1,
		owners:     map[int64]string{},
		deployAddr: mockContractAddress,
		receipts:   map[string]*mockReceipt{},
	}
}

func (mn *mockNode) selectorOf(entry *abi.Entry) string {
	return hex.EncodeToString(entry.FunctionSelectorBytes())
}

func (mn *mockNode) decodeArgs(entry *abi.Entry, data []byte) map[string]any {
	cv, err := entry.DecodeCallDataCtx(context.Background(), data)
	require.NoError(mn.t, err)
	jsonData, err := ethclient.StandardABISerializer().SerializeJSONCtx(context.Background(), cv)
	require.NoError(mn.t, err)
	var m map[string]any
	require.NoError(mn.t, json.Unmarshal(jsonData, &m))
	return m
}

func (mn *mockNode) encodeOutputs(entry *abi.Entry, values map[string]any) ethtypes.HexBytes0xPrefix {
	tc, err := entry.Outputs.TypeComponentTreeCtx(context.Background())
	require.NoError(mn.t, err)
	cv, err := tc.ParseExternalCtx(context.Background(), values)
	require.NoError(mn.t, err)
	data, err := cv.EncodeABIDataCtx(context.Background())
	require.NoError(mn.t, err)
	return data
}

func (mn *mockNode) balanceOf(addr string) int64 {
	var count int64
	for _, owner := range mn.owners {
		if owner == addr {
			count++
		}
	}
	return count
}

func (mn *mockNode) call(data []byte) (ethtypes.HexBytes0xPrefix, error) {
	mn.lock.Lock()
	defer mn.lock.Unlock()
	if mn.failQueries {
		return nil, fmt.Errorf("pop")
	}
	selector := hex.EncodeToString(data[0:4])
	switch selector {
	case mn.selectorOf(collection.NameABI):
		return mn.encodeOutputs(collection.NameABI, map[string]any{"name": mn.name}), nil
	case mn.selectorOf(collection.SymbolABI):
		return mn.encodeOutputs(collection.SymbolABI, map[string]any{"symbol": mn.symbol}), nil
	case mn.selectorOf(collection.BaseURIABI):
		return mn.encodeOutputs(collection.BaseURIABI, map[string]any{"baseURI": mn.baseURI}), nil
	case mn.selectorOf(collection.TotalSupplyABI):
		return mn.encodeOutputs(collection.TotalSupplyABI, map[string]any{"totalSupply": fmt.Sprintf("%d", len(mn.owners))}), nil
	case mn.selectorOf(collection.MaxSupplyABI):
		return mn.encodeOutputs(collection.MaxSupplyABI, map[string]any{"maxSupply": fmt.Sprintf("%d", mn.maxSupply)}), nil
	case mn.selectorOf(collection.BalanceOfABI):
		args := mn.decodeArgs(collection.BalanceOfABI, data)
		return mn.encodeOutputs(collection.BalanceOfABI, map[string]any{"balance": fmt.Sprintf("%d", mn.balanceOf(args["owner"].(string)))}), nil
	case mn.selectorOf(collection.OwnerOfABI):
		args := mn.decodeArgs(collection.OwnerOfABI, data)
		id := mn.intArg(args, "tokenId")
		owner, ok := mn.owners[id]
		if !ok {
			return nil, fmt.Errorf("execution reverted: ERC721: owner query for nonexistent token")
		}
		return mn.encodeOutputs(collection.OwnerOfABI, map[string]any{"owner": owner}), nil
	case mn.selectorOf(collection.TokenURIABI):
		args := mn.decodeArgs(collection.TokenURIABI, data)
		id := mn.intArg(args, "tokenId")
		if _, ok := mn.owners[id]; !ok {
			return nil, fmt.Errorf("execution reverted: ERC721Metadata: URI query for nonexistent token")
		}
		return mn.encodeOutputs(collection.TokenURIABI, map[string]any{"uri": fmt.Sprintf("%s%d", mn.baseURI, id)}), nil
	}
	return nil, fmt.Errorf("unexpected eth_call selector 0x%s", selector)
}

func (mn *mockNode) intArg(m map[string]any, name string) int64 {
	v, ok := new(big.Int).SetString(m[name].(string), 10)
	require.True(mn.t, ok)
	return v.Int64()
}

func pad32(b []byte) ethtypes.HexBytes0xPrefix {
	padded := make([]byte, 32)
	copy(padded[32-len(b):], b)
	return padded
}

func (mn *mockNode) transferLog(to string, id int64) *ethclient.LogJSONRPC {
	toAddr := ethtypes.MustNewAddress(to)
	return &ethclient.LogJSONRPC{
		Address: mockContractAddress,
		Topics: []ethtypes.HexBytes0xPrefix{
			mustSignatureHash(mn.t, collection.TransferEventABI),
			pad32(make([]byte, 20)),
			pad32(toAddr[:]),
			pad32(new(big.Int).SetInt64(id).Bytes()),
		},
		Data: ethtypes.HexBytes0xPrefix{},
	}
}

func mustSignatureHash(t *testing.T, entry *abi.Entry) ethtypes.HexBytes0xPrefix {
	sig, err := entry.SignatureHash()
	require.NoError(t, err)
	return sig
}

// estimate validates a pending transaction the way a node would, surfacing
// scripted reverts before submission.
func (mn *mockNode) estimate(tx *ethsigner.Transaction) error {
	mn.lock.Lock()
	defer mn.lock.Unlock()
	if tx.To == nil {
		if mn.revertDeploy {
			return fmt.Errorf("execution reverted: pop")
		}
		return nil
	}
	if len(tx.Data) >= 4 && hex.EncodeToString(tx.Data[0:4]) == mn.selectorOf(collection.InitializeABI) && mn.revertInitialize {
		return fmt.Errorf("execution reverted: pop")
	}
	return nil
}

func (mn *mockNode) submit(ctx context.Context, rawTX ethtypes.HexBytes0xPrefix) (ethtypes.HexBytes0xPrefix, error) {
	from, decodedTX, err := ethsigner.RecoverRawTransaction(ctx, rawTX, 12345)
	if err != nil {
		return nil, err
	}
	hash := sha3.NewLegacyKeccak256()
	hash.Write(rawTX)
	txHash := ethtypes.HexBytes0xPrefix(hash.Sum(nil))

	mn.lock.Lock()
	defer mn.lock.Unlock()
	receipt := &mockReceipt{
		BlockNumber:      ethtypes.NewHexInteger64(int64(len(mn.receipts)) + 1),
		From:             from,
		GasUsed:          ethtypes.NewHexInteger64(90000),
		Status:           ethtypes.NewHexInteger64(1),
		TransactionHash:  txHash,
		TransactionIndex: ethtypes.NewHexInteger64(0),
	}
	tx := decodedTX.Transaction
	if tx.To == nil {
		// Contract creation
		if mn.failDeployReceipt {
			receipt.Status = ethtypes.NewHexInteger64(0)
		} else if !mn.omitDeployAddress {
			receipt.ContractAddress = mn.deployAddr
		}
	} else {
		receipt.Logs = mn.apply(tx.Data)
	}
	mn.receipts[txHash.String()] = receipt
	return txHash, nil
}

// apply mutates the scripted contract state for a submitted write.
func (mn *mockNode) apply(data []byte) []*ethclient.LogJSONRPC {
	selector := hex.EncodeToString(data[0:4])
	switch selector {
	case mn.selectorOf(collection.InitializeABI):
		args := mn.decodeArgs(collection.InitializeABI, data)
		mn.initialized = true
		mn.name = args["name"].(string)
		mn.symbol = args["symbol"].(string)
		mn.baseURI = args["baseURI"].(string)
		mn.maxSupply = mn.intArg(args, "maxSupply")
	case mn.selectorOf(collection.MintABI):
		args := mn.decodeArgs(collection.MintABI, data)
		id := mn.nextID
		mn.nextID++
		mn.owners[id] = args["to"].(string)
		return []*ethclient.LogJSONRPC{mn.transferLog(args["to"].(string), id)}
	case mn.selectorOf(collection.MintBatchABI):
		args := mn.decodeArgs(collection.MintBatchABI, data)
		count := mn.intArg(args, "count")
		var logs []*ethclient.LogJSONRPC
		for i := int64(0); i < count; i++ {
			id := mn.nextID
			mn.nextID++
			mn.owners[id] = args["to"].(string)
			logs = append(logs, mn.transferLog(args["to"].(string), id))
		}
		return logs
	case mn.selectorOf(collection.BurnABI):
		args := mn.decodeArgs(collection.BurnABI, data)
		delete(mn.owners, mn.intArg(args, "tokenId"))
	case mn.selectorOf(collection.TransferFromABI):
		args := mn.decodeArgs(collection.TransferFromABI, data)
		mn.owners[mn.intArg(args, "tokenId")] = args["to"].(string)
	case mn.selectorOf(collection.SetBaseURIABI):
		args := mn.decodeArgs(collection.SetBaseURIABI, data)
		mn.baseURI = args["baseURI"].(string)
	}
	return nil
}

func (mn *mockNode) process(ctx context.Context, rpcReq *rpcbackend.RPCRequest) (any, error) {
	switch rpcReq.Method {
	case "eth_chainId":
		return ethtypes.HexUint64(12345), nil
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
		return mn.call(tx.Data)
	case "eth_estimateGas":
		var tx ethsigner.Transaction
		if err := json.Unmarshal(rpcReq.Params[0].Bytes(), &tx); err != nil {
			return nil, err
		}
		if err := mn.estimate(&tx); err != nil {
			return nil, err
		}
		return ethtypes.NewHexInteger64(500000), nil
	case "eth_sendRawTransaction":
		var rawTX ethtypes.HexBytes0xPrefix
		if err := json.Unmarshal(rpcReq.Params[0].Bytes(), &rawTX); err != nil {
			return nil, err
		}
		return mn.submit(ctx, rawTX)
	case "eth_getTransactionReceipt":
		var txHash ethtypes.HexBytes0xPrefix
		if err := json.Unmarshal(rpcReq.Params[0].Bytes(), &txHash); err != nil {
			return nil, err
		}
		mn.lock.Lock()
		defer mn.lock.Unlock()
		receipt, ok := mn.receipts[txHash.String()]
		if !ok {
			return nil, nil
		}
		return receipt, nil
	}
	return nil, fmt.Errorf("method %s not implemented by test", rpcReq.Method)
}

func (mn *mockNode) handleJSONRPC(ctx context.Context, rpcReq *rpcbackend.RPCRequest) *rpcbackend.RPCResponse {
	result, err := mn.process(ctx, rpcReq)
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

type mgrTestEnv struct {
	ctx   context.Context
	node  *mockNode
	cc    *collection.CallContext
	owner string
	done  func()
}

func newMgrTestEnv(t *testing.T) *mgrTestEnv {
	node := newMockNode(t)

	kp, err := secp256k1.GenerateSecp256k1KeyPair()
	require.NoError(t, err)
	kmgr, err := keys.NewKeyManager(context.Background(), &keys.Config{
		Static: map[string]keys.StaticKeyEntryConfig{
			"owner": {Inline: hex.EncodeToString(kp.PrivateKeyBytes())},
		},
	})
	require.NoError(t, err)
	ownerAddr := ethtypes.Address0xHex(kp.Address)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rpcReq *rpcbackend.RPCRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&rpcReq))
		rpcRes := node.handleJSONRPC(r.Context(), rpcReq)
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

	return &mgrTestEnv{
		ctx:   context.Background(),
		node:  node,
		owner: ownerAddr.String(),
		cc: &collection.CallContext{
			Contract: mockContractAddress,
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

// fastRetryConfig keeps the stale-cache tests quick.
func fastRetryConfig() *Config {
	return &Config{
		TokenCache: Defaults.TokenCache,
		RefreshRetry: retry.ConfigWithMax{
			Config:      retry.Config{InitialDelay: confutil.P("1ms"), MaxDelay: confutil.P("5ms")},
			MaxAttempts: confutil.P(2),
		},
	}
}

const testBuildJSON = `{
  "abi": [
    {"type":"constructor","inputs":[]},
    {"type":"function","name":"initialize","inputs":[
      {"name":"name","type":"string"},{"name":"symbol","type":"string"},
      {"name":"baseURI","type":"string"},{"name":"maxSupply","type":"uint256"},
      {"name":"owner","type":"address"}]}
  ],
  "bytecode": "0x600a600c600039600a6000f3602a60005260206000f3"
}`
