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

package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kaleido-io/curio/pkg/collection"
)

// runTX wires the shared context/connection plumbing around one transaction
// call and prints the confirmed result.
func runTX(call func(ctx context.Context, cc *collection.CallContext) (any, error)) error {
	ctx, cancel := cmdContext()
	defer cancel()
	cc, done, err := callContext(ctx)
	if err != nil {
		return err
	}
	defer done()

	result, err := call(ctx, cc)
	if err != nil {
		return err
	}
	return printJSON(result)
}

var mintCmd = &cobra.Command{
	Use:   "mint <to>",
	Short: "Mint the next token to an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTX(func(ctx context.Context, cc *collection.CallContext) (any, error) {
			return collection.Mint(ctx, cc, args[0])
		})
	},
}

var mintBatchCmd = &cobra.Command{
	Use:   "mint-batch <to> <count>",
	Short: "Mint a batch of tokens to an account in one transaction",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		count, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		return runTX(func(ctx context.Context, cc *collection.CallContext) (any, error) {
			return collection.MintBatch(ctx, cc, args[0], count)
		})
	},
}

var transferSafe bool
var transferData string

var transferCmd = &cobra.Command{
	Use:   "transfer <from> <to> <tokenId>",
	Short: "Transfer a token between accounts",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		tokenID, err := parseBigInt(args[2])
		if err != nil {
			return err
		}
		return runTX(func(ctx context.Context, cc *collection.CallContext) (any, error) {
			if transferSafe || transferData != "" {
				var data []byte
				if transferData != "" {
					data = []byte(transferData)
				}
				return collection.SafeTransferFrom(ctx, cc, args[0], args[1], tokenID, data)
			}
			return collection.TransferFrom(ctx, cc, args[0], args[1], tokenID)
		})
	},
}

var burnCmd = &cobra.Command{
	Use:   "burn <tokenId>",
	Short: "Burn a token, removing it from the supply",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tokenID, err := parseBigInt(args[0])
		if err != nil {
			return err
		}
		return runTX(func(ctx context.Context, cc *collection.CallContext) (any, error) {
			return collection.Burn(ctx, cc, tokenID)
		})
	},
}

var approveCmd = &cobra.Command{
	Use:   "approve <to> <tokenId>",
	Short: "Approve an account for one token (zero address clears)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tokenID, err := parseBigInt(args[1])
		if err != nil {
			return err
		}
		return runTX(func(ctx context.Context, cc *collection.CallContext) (any, error) {
			return collection.Approve(ctx, cc, args[0], tokenID)
		})
	},
}

var approveAllRevoke bool

var approveAllCmd = &cobra.Command{
	Use:   "approve-all <operator>",
	Short: "Grant (or revoke with --revoke) an operator over all owned tokens",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTX(func(ctx context.Context, cc *collection.CallContext) (any, error) {
			return collection.SetApprovalForAll(ctx, cc, args[0], !approveAllRevoke)
		})
	},
}

var setBaseURICmd = &cobra.Command{
	Use:   "set-base-uri <uri>",
	Short: "Set the metadata base URI (owner only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTX(func(ctx context.Context, cc *collection.CallContext) (any, error) {
			return collection.SetBaseURI(ctx, cc, args[0])
		})
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause all transfers, mints and burns (owner only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTX(func(ctx context.Context, cc *collection.CallContext) (any, error) {
			return collection.Pause(ctx, cc)
		})
	},
}

var unpauseCmd = &cobra.Command{
	Use:   "unpause",
	Short: "Resume transfers, mints and burns (owner only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTX(func(ctx context.Context, cc *collection.CallContext) (any, error) {
			return collection.Unpause(ctx, cc)
		})
	},
}

var transferOwnershipCmd = &cobra.Command{
	Use:   "transfer-ownership <newOwner>",
	Short: "Transfer contract ownership to another account (owner only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTX(func(ctx context.Context, cc *collection.CallContext) (any, error) {
			return collection.TransferOwnership(ctx, cc, args[0])
		})
	},
}

var renounceOwnershipCmd = &cobra.Command{
	Use:   "renounce-ownership",
	Short: "Renounce contract ownership permanently (owner only)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTX(func(ctx context.Context, cc *collection.CallContext) (any, error) {
			return collection.RenounceOwnership(ctx, cc)
		})
	},
}

func init() {
	transferCmd.Flags().BoolVar(&transferSafe, "safe", false, "use safeTransferFrom with receiver checks")
	transferCmd.Flags().StringVar(&transferData, "data", "", "data payload for safeTransferFrom (implies --safe)")
	approveAllCmd.Flags().BoolVar(&approveAllRevoke, "revoke", false, "revoke the operator approval instead of granting it")
}
