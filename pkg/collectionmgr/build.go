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
	"os"
	"strings"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-signer/pkg/abi"
	"github.com/hyperledger/firefly-signer/pkg/ethtypes"

	"github.com/kaleido-io/curio/internal/msgs"
)

// SolidityBuild is a parsed compiler output artifact, ready to deploy.
type SolidityBuild struct {
	ABI      abi.ABI
	Bytecode ethtypes.HexBytes0xPrefix
}

// rawBuild accepts both the hardhat artifact shape (bytecode as a hex string)
// and the solc standard-JSON shape (bytecode nested under "object").
type rawBuild struct {
	ABI      abi.ABI         `json:"abi"`
	Bytecode json.RawMessage `json:"bytecode"`
}

type solcBytecode struct {
	Object string `json:"object"`
}

// LoadBuild parses a contract build artifact. Bytecode with an unresolved
// library link placeholder is rejected - this loader does not perform linking.
func LoadBuild(ctx context.Context, buildOutput []byte) (*SolidityBuild, error) {
	var raw rawBuild
	if err := json.Unmarshal(buildOutput, &raw); err != nil {
		return nil, i18n.WrapError(ctx, err, msgs.MsgBuildParseFailed)
	}
	var bytecodeHex string
	if len(raw.Bytecode) > 0 {
		if err := json.Unmarshal(raw.Bytecode, &bytecodeHex); err != nil {
			var nested solcBytecode
			if err := json.Unmarshal(raw.Bytecode, &nested); err != nil {
				return nil, i18n.WrapError(ctx, err, msgs.MsgBuildParseFailed)
			}
			bytecodeHex = nested.Object
		}
	}
	bytecodeHex = strings.TrimPrefix(bytecodeHex, "0x")
	if bytecodeHex == "" {
		return nil, i18n.NewError(ctx, msgs.MsgBuildMissingBytecode)
	}
	// Placeholder format from solc 0.5.0 onwards is __$<34 hex chars>$__
	if idx := strings.Index(bytecodeHex, "__$"); idx >= 0 {
		end := idx + 3 + 34
		if end > len(bytecodeHex) {
			end = len(bytecodeHex)
		}
		return nil, i18n.NewError(ctx, msgs.MsgBuildUnresolvedLink, bytecodeHex[idx+3:end])
	}
	bytecode, err := hex.DecodeString(bytecodeHex)
	if err != nil {
		return nil, i18n.WrapError(ctx, err, msgs.MsgBuildParseFailed)
	}
	return &SolidityBuild{ABI: raw.ABI, Bytecode: bytecode}, nil
}

// LoadBuildFile reads and parses a build artifact from disk.
func LoadBuildFile(ctx context.Context, path string) (*SolidityBuild, error) {
	buildOutput, err := os.ReadFile(path)
	if err != nil {
		return nil, i18n.WrapError(ctx, err, msgs.MsgBuildFileInvalid, path)
	}
	return LoadBuild(ctx, buildOutput)
}

// MustLoadBuild is for static artifacts compiled into the binary.
func MustLoadBuild(buildOutput []byte) *SolidityBuild {
	build, err := LoadBuild(context.Background(), buildOutput)
	if err != nil {
		panic(err)
	}
	return build
}
