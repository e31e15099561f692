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

// Package collection is the typed interaction layer for an ERC-721 style NFT
// collection contract. Each function takes a CallContext, validates its
// arguments locally, dispatches a query or signed transaction over JSON/RPC,
// and returns a decoded result or a classified error.
package collection

import (
	"github.com/hyperledger/firefly-signer/pkg/abi"
	"github.com/hyperledger/firefly-signer/pkg/ethtypes"
)

// The on-chain interface is fixed - method names, argument order and return
// shapes below must match the deployed contract exactly for wire
// compatibility. Declared entry-by-entry so each operation binds to its own
// function client, which also keeps the two safeTransferFrom overloads apart.

var NameABI = &abi.Entry{
	Name: "name",
	Type: abi.Function,
	Outputs: abi.ParameterArray{
		{Name: "name", Type: "string"},
	},
}

var SymbolABI = &abi.Entry{
	Name: "symbol",
	Type: abi.Function,
	Outputs: abi.ParameterArray{
		{Name: "symbol", Type: "string"},
	},
}

var BaseURIABI = &abi.Entry{
	Name: "baseURI",
	Type: abi.Function,
	Outputs: abi.ParameterArray{
		{Name: "baseURI", Type: "string"},
	},
}

var TotalSupplyABI = &abi.Entry{
	Name: "totalSupply",
	Type: abi.Function,
	Outputs: abi.ParameterArray{
		{Name: "totalSupply", Type: "uint256"},
	},
}

var MaxSupplyABI = &abi.Entry{
	Name: "maxSupply",
	Type: abi.Function,
	Outputs: abi.ParameterArray{
		{Name: "maxSupply", Type: "uint256"},
	},
}

var BalanceOfABI = &abi.Entry{
	Name: "balanceOf",
	Type: abi.Function,
	Inputs: abi.ParameterArray{
		{Name: "owner", Type: "address"},
	},
	Outputs: abi.ParameterArray{
		{Name: "balance", Type: "uint256"},
	},
}

var OwnerOfABI = &abi.Entry{
	Name: "ownerOf",
	Type: abi.Function,
	Inputs: abi.ParameterArray{
		{Name: "tokenId", Type: "uint256"},
	},
	Outputs: abi.ParameterArray{
		{Name: "owner", Type: "address"},
	},
}

var TokenURIABI = &abi.Entry{
	Name: "tokenURI",
	Type: abi.Function,
	Inputs: abi.ParameterArray{
		{Name: "tokenId", Type: "uint256"},
	},
	Outputs: abi.ParameterArray{
		{Name: "uri", Type: "string"},
	},
}

var GetApprovedABI = &abi.Entry{
	Name: "getApproved",
	Type: abi.Function,
	Inputs: abi.ParameterArray{
		{Name: "tokenId", Type: "uint256"},
	},
	Outputs: abi.ParameterArray{
		{Name: "approved", Type: "address"},
	},
}

var IsApprovedForAllABI = &abi.Entry{
	Name: "isApprovedForAll",
	Type: abi.Function,
	Inputs: abi.ParameterArray{
		{Name: "owner", Type: "address"},
		{Name: "operator", Type: "address"},
	},
	Outputs: abi.ParameterArray{
		{Name: "approved", Type: "bool"},
	},
}

var TokenByIndexABI = &abi.Entry{
	Name: "tokenByIndex",
	Type: abi.Function,
	Inputs: abi.ParameterArray{
		{Name: "index", Type: "uint256"},
	},
	Outputs: abi.ParameterArray{
		{Name: "tokenId", Type: "uint256"},
	},
}

var TokenOfOwnerByIndexABI = &abi.Entry{
	Name: "tokenOfOwnerByIndex",
	Type: abi.Function,
	Inputs: abi.ParameterArray{
		{Name: "owner", Type: "address"},
		{Name: "index", Type: "uint256"},
	},
	Outputs: abi.ParameterArray{
		{Name: "tokenId", Type: "uint256"},
	},
}

var PausedABI = &abi.Entry{
	Name: "paused",
	Type: abi.Function,
	Outputs: abi.ParameterArray{
		{Name: "paused", Type: "bool"},
	},
}

var SupportsInterfaceABI = &abi.Entry{
	Name: "supportsInterface",
	Type: abi.Function,
	Inputs: abi.ParameterArray{
		{Name: "interfaceId", Type: "bytes4"},
	},
	Outputs: abi.ParameterArray{
		{Name: "supported", Type: "bool"},
	},
}

var OwnerABI = &abi.Entry{
	Name: "owner",
	Type: abi.Function,
	Outputs: abi.ParameterArray{
		{Name: "owner", Type: "address"},
	},
}

var InitializeABI = &abi.Entry{
	Name: "initialize",
	Type: abi.Function,
	Inputs: abi.ParameterArray{
		{Name: "name", Type: "string"},
		{Name: "symbol", Type: "string"},
		{Name: "baseURI", Type: "string"},
		{Name: "maxSupply", Type: "uint256"},
		{Name: "owner", Type: "address"},
	},
}

var MintABI = &abi.Entry{
	Name: "mint",
	Type: abi.Function,
	Inputs: abi.ParameterArray{
		{Name: "to", Type: "address"},
	},
}

var MintBatchABI = &abi.Entry{
	Name: "mintBatch",
	Type: abi.Function,
	Inputs: abi.ParameterArray{
		{Name: "to", Type: "address"},
		{Name: "count", Type: "uint256"},
	},
}

var BurnABI = &abi.Entry{
	Name: "burn",
	Type: abi.Function,
	Inputs: abi.ParameterArray{
		{Name: "tokenId", Type: "uint256"},
	},
}

var TransferFromABI = &abi.Entry{
	Name: "transferFrom",
	Type: abi.Function,
	Inputs: abi.ParameterArray{
		{Name: "from", Type: "address"},
		{Name: "to", Type: "address"},
		{Name: "tokenId", Type: "uint256"},
	},
}

var SafeTransferFromABI = &abi.Entry{
	Name: "safeTransferFrom",
	Type: abi.Function,
	Inputs: abi.ParameterArray{
		{Name: "from", Type: "address"},
		{Name: "to", Type: "address"},
		{Name: "tokenId", Type: "uint256"},
	},
}

var SafeTransferFromDataABI = &abi.Entry{
	Name: "safeTransferFrom",
	Type: abi.Function,
	Inputs: abi.ParameterArray{
		{Name: "from", Type: "address"},
		{Name: "to", Type: "address"},
		{Name: "tokenId", Type: "uint256"},
		{Name: "data", Type: "bytes"},
	},
}

var ApproveABI = &abi.Entry{
	Name: "approve",
	Type: abi.Function,
	Inputs: abi.ParameterArray{
		{Name: "to", Type: "address"},
		{Name: "tokenId", Type: "uint256"},
	},
}

var SetApprovalForAllABI = &abi.Entry{
	Name: "setApprovalForAll",
	Type: abi.Function,
	Inputs: abi.ParameterArray{
		{Name: "operator", Type: "address"},
		{Name: "approved", Type: "bool"},
	},
}

var SetBaseURIABI = &abi.Entry{
	Name: "setBaseURI",
	Type: abi.Function,
	Inputs: abi.ParameterArray{
		{Name: "baseURI", Type: "string"},
	},
}

var PauseABI = &abi.Entry{
	Name: "pause",
	Type: abi.Function,
}

var UnpauseABI = &abi.Entry{
	Name: "unpause",
	Type: abi.Function,
}

var TransferOwnershipABI = &abi.Entry{
	Name: "transferOwnership",
	Type: abi.Function,
	Inputs: abi.ParameterArray{
		{Name: "newOwner", Type: "address"},
	},
}

var RenounceOwnershipABI = &abi.Entry{
	Name: "renounceOwnership",
	Type: abi.Function,
}

var TransferEventABI = &abi.Entry{
	Name: "Transfer",
	Type: abi.Event,
	Inputs: abi.ParameterArray{
		{Name: "from", Type: "address", Indexed: true},
		{Name: "to", Type: "address", Indexed: true},
		{Name: "tokenId", Type: "uint256", Indexed: true},
	},
}

var ApprovalEventABI = &abi.Entry{
	Name: "Approval",
	Type: abi.Event,
	Inputs: abi.ParameterArray{
		{Name: "owner", Type: "address", Indexed: true},
		{Name: "approved", Type: "address", Indexed: true},
		{Name: "tokenId", Type: "uint256", Indexed: true},
	},
}

var ApprovalForAllEventABI = &abi.Entry{
	Name: "ApprovalForAll",
	Type: abi.Event,
	Inputs: abi.ParameterArray{
		{Name: "owner", Type: "address", Indexed: true},
		{Name: "operator", Type: "address", Indexed: true},
		{Name: "approved", Type: "bool"},
	},
}

var PausedEventABI = &abi.Entry{
	Name: "Paused",
	Type: abi.Event,
	Inputs: abi.ParameterArray{
		{Name: "account", Type: "address"},
	},
}

var UnpausedEventABI = &abi.Entry{
	Name: "Unpaused",
	Type: abi.Event,
	Inputs: abi.ParameterArray{
		{Name: "account", Type: "address"},
	},
}

var OwnershipTransferredEventABI = &abi.Entry{
	Name: "OwnershipTransferred",
	Type: abi.Event,
	Inputs: abi.ParameterArray{
		{Name: "previousOwner", Type: "address", Indexed: true},
		{Name: "newOwner", Type: "address", Indexed: true},
	},
}

var BaseURIChangedEventABI = &abi.Entry{
	Name: "BaseURIChanged",
	Type: abi.Event,
	Inputs: abi.ParameterArray{
		{Name: "baseURI", Type: "string"},
	},
}

// CollectionABI is the full contract interface, for callers that want to bind
// the whole ABI (such as the deployer constructing against a build).
var CollectionABI = abi.ABI{
	NameABI,
	SymbolABI,
	BaseURIABI,
	TotalSupplyABI,
	MaxSupplyABI,
	BalanceOfABI,
	OwnerOfABI,
	TokenURIABI,
	GetApprovedABI,
	IsApprovedForAllABI,
	TokenByIndexABI,
	TokenOfOwnerByIndexABI,
	PausedABI,
	SupportsInterfaceABI,
	OwnerABI,
	InitializeABI,
	MintABI,
	MintBatchABI,
	BurnABI,
	TransferFromABI,
	SafeTransferFromDataABI,
	ApproveABI,
	SetApprovalForAllABI,
	SetBaseURIABI,
	PauseABI,
	UnpauseABI,
	TransferOwnershipABI,
	RenounceOwnershipABI,
	TransferEventABI,
	ApprovalEventABI,
	ApprovalForAllEventABI,
	PausedEventABI,
	UnpausedEventABI,
	OwnershipTransferredEventABI,
	BaseURIChangedEventABI,
}

func mustEventSignatureHash(e *abi.Entry) ethtypes.HexBytes0xPrefix {
	sig, err := e.SignatureHash()
	if err != nil {
		panic(err)
	}
	return sig
}

var transferEventSignature = mustEventSignatureHash(TransferEventABI)
