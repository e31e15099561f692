// Copyright © 2025 Kaleido, Inc.
//
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package msgs

import (
	"fmt"
	"strings"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"golang.org/x/text/language"
)

const curioPrefix = "CU01"

var registered = false
var ffe = func(key, translation string, statusHint ...int) i18n.ErrorMessageKey {
	if !registered {
		i18n.RegisterPrefix(curioPrefix, "Curio NFT Collection Client")
		registered = true
	}
	if !strings.HasPrefix(key, curioPrefix) {
		panic(fmt.Errorf("must have prefix '%s': %s", curioPrefix, key))
	}
	return i18n.FFE(language.AmericanEnglish, key, translation, statusHint...)
}

var (

	// Generic CU0100XX
	MsgContextCanceled      = ffe("CU010000", "Context canceled")
	MsgBuildParseFailed     = ffe("CU010001", "Failed to parse contract build JSON")
	MsgBuildMissingBytecode = ffe("CU010002", "Contract build contains no bytecode")
	MsgBuildUnresolvedLink  = ffe("CU010003", "Contract build bytecode contains unresolved library reference '%s'")
	MsgBuildFileInvalid     = ffe("CU010004", "Failed to load contract build from file %s")

	// RPC client CU0101XX
	MsgRPCHTTPURLInvalid = ffe("CU010100", "Invalid URL for HTTP/HTTPS JSON-RPC endpoint: '%v'")
	MsgRPCWSURLInvalid   = ffe("CU010101", "Invalid URL for WS/WSS JSON-RPC endpoint: '%v'")
	MsgRPCURLMissing     = ffe("CU010102", "A JSON-RPC endpoint URL is required")

	// Ethereum client CU0102XX
	MsgEthClientChainIDFailed           = ffe("CU010200", "Failed to query the chain ID")
	MsgEthClientInvalidTXVersion        = ffe("CU010201", "Invalid transaction version '%s'")
	MsgEthClientABIJson                 = ffe("CU010202", "Failed to parse ABI JSON")
	MsgEthClientFunctionNotFound        = ffe("CU010203", "Function '%s' not found on ABI")
	MsgEthClientMissingTo               = ffe("CU010204", "A 'to' address is required to invoke a function")
	MsgEthClientToWithConstructor       = ffe("CU010205", "A 'to' address cannot be supplied for constructor invocation")
	MsgEthClientMissingInput            = ffe("CU010206", "Function inputs are required")
	MsgEthClientMissingOutput           = ffe("CU010207", "An output is required to decode the call result into")
	MsgEthClientMissingFrom             = ffe("CU010208", "A signer is required to build a transaction")
	MsgEthClientInvalidInput            = ffe("CU010209", "Invalid input data for function %s")
	MsgEthClientCallReverted            = ffe("CU010210", "Call reverted: %s")
	MsgEthClientReceiptNotAvailable     = ffe("CU010211", "Receipt not available for transaction %s")
	MsgEthClientReturnValueNotDecoded   = ffe("CU010212", "Error return value for custom error: %s")
	MsgEthClientReturnValueNotAvailable = ffe("CU010213", "No return value available from the transaction")
	MsgEthClientChainIDMismatch         = ffe("CU010214", "Chain ID mismatch between HTTP (%d) and WebSocket (%d) endpoints")

	// Signing keys CU0103XX
	MsgKeysInvalidHexKey           = ffe("CU010300", "Invalid hex private key")
	MsgKeysKeystoreFileInvalid     = ffe("CU010301", "Failed to load keystore file %s")
	MsgKeysPasswordFileInvalid     = ffe("CU010302", "Failed to load keystore password file %s")
	MsgKeysInvalidMnemonic         = ffe("CU010303", "Invalid BIP-39 mnemonic phrase")
	MsgKeysDerivationPathInvalid   = ffe("CU010304", "Invalid BIP-44 derivation path segment '%s'")
	MsgKeysDerivationIndexTooLarge = ffe("CU010305", "BIP-32 derivation index %d out of range")
	MsgKeysUnknownKey              = ffe("CU010306", "No key available for identifier '%s'")

	// Collection interaction CU0104XX
	MsgCollectionInvalidAddress     = ffe("CU010400", "Invalid Ethereum address '%s'")
	MsgCollectionZeroAddress        = ffe("CU010401", "The zero address is not valid for %s")
	MsgCollectionInvalidTokenID     = ffe("CU010402", "Token ID must be a non-negative integer: '%v'")
	MsgCollectionInvalidBatchCount  = ffe("CU010403", "Mint batch count must be between 1 and %d (supplied %d)")
	MsgCollectionEmptyBaseURI       = ffe("CU010404", "Base URI must not be empty")
	MsgCollectionSignerRequired     = ffe("CU010405", "A signing credential is required for %s")
	MsgCollectionContractRequired   = ffe("CU010406", "A contract address is required")
	MsgCollectionEndpointRequired   = ffe("CU010407", "No JSON-RPC endpoint supplied, and no default for chain ID %d")
	MsgCollectionTokenNotFound      = ffe("CU010408", "Token %s does not exist")
	MsgCollectionTxReverted         = ffe("CU010409", "Transaction rejected by the contract: %s")
	MsgCollectionTxFailed           = ffe("CU010410", "Transaction %s failed on-chain: %s")
	MsgCollectionMintEventsMissing  = ffe("CU010411", "Confirmed receipt for %s contains no mint events")
	MsgCollectionMintCountMismatch  = ffe("CU010412", "Requested %d minted tokens but receipt contains %d")
	MsgCollectionOutcomeUnknown     = ffe("CU010413", "Transaction %s submitted, but not confirmed before the deadline")
	MsgCollectionInvalidIndex       = ffe("CU010414", "Enumeration index must be a non-negative integer: '%v'")
	MsgCollectionInvalidInterfaceID = ffe("CU010415", "Interface ID must be 4 bytes: '%s'")
	MsgCollectionInvalidMaxSupply   = ffe("CU010416", "Max supply must be zero (unlimited) or a positive integer: '%v'")
	MsgCollectionNameRequired       = ffe("CU010417", "Collection name and symbol must not be empty")

	// Collection manager CU0105XX
	MsgDeployAlreadyStarted     = ffe("CU010500", "Deployment already started (phase '%s')")
	MsgDeployBuildRequired      = ffe("CU010501", "A contract build with ABI and bytecode is required to deploy")
	MsgDeployNoContractAddress  = ffe("CU010502", "Deployment receipt for %s contains no contract address")
	MsgDeployNotReady           = ffe("CU010503", "Deployment is not ready (phase '%s')")
	MsgManagerActionNotFound    = ffe("CU010504", "No action found with ID %s")
	MsgManagerClosed            = ffe("CU010505", "Collection manager is closed")
	MsgManagerSubscriberUnknown = ffe("CU010506", "No subscription found with ID %s")

	// Chain registry CU0106XX
	MsgChainsUnknownChainID    = ffe("CU010600", "Unknown chain ID %d")
	MsgChainsNoDefaultEndpoint = ffe("CU010601", "Chain '%s' has no default JSON-RPC endpoint")
	MsgChainsNoFactoryAddress  = ffe("CU010602", "Chain '%s' has no registered factory address")

	// TLS CU0107XX
	MsgTLSInvalidCAFile       = ffe("CU010700", "Invalid CA certificates PEM")
	MsgTLSInvalidKeyPairFiles = ffe("CU010701", "Invalid certificate and key pair")
	MsgTLSConfigFailed        = ffe("CU010702", "Failed to initialize TLS configuration")
)
