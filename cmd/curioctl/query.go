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
	"github.com/spf13/cobra"

	"github.com/kaleido-io/curio/pkg/chains"
	"github.com/kaleido-io/curio/pkg/collection"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the collection name, symbol, base URI and supply",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()
		cc, done, err := callContext(ctx)
		if err != nil {
			return err
		}
		defer done()

		info, err := collection.GetCollectionInfo(ctx, cc)
		if err != nil {
			return err
		}
		paused, err := collection.IsPaused(ctx, cc)
		if err != nil {
			return err
		}
		owner, err := collection.Owner(ctx, cc)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{
			"name":        info.Name,
			"symbol":      info.Symbol,
			"baseURI":     info.BaseURI,
			"totalSupply": info.TotalSupply,
			"maxSupply":   info.MaxSupply,
			"paused":      paused,
			"owner":       owner,
		})
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <tokenId>",
	Short: "Show the owner, URI and approval of one token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tokenID, err := parseBigInt(args[0])
		if err != nil {
			return err
		}
		ctx, cancel := cmdContext()
		defer cancel()
		cc, done, err := callContext(ctx)
		if err != nil {
			return err
		}
		defer done()

		info, err := collection.GetNFTInfo(ctx, cc, tokenID)
		if err != nil {
			return err
		}
		approved, err := collection.GetApproved(ctx, cc, tokenID)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{
			"tokenId":  info.TokenID,
			"owner":    info.Owner,
			"uri":      info.URI,
			"approved": approved,
		})
	},
}

var ownerCmd = &cobra.Command{
	Use:   "owner",
	Short: "Show the contract owner account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()
		cc, done, err := callContext(ctx)
		if err != nil {
			return err
		}
		defer done()

		owner, err := collection.Owner(ctx, cc)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"owner": owner})
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance <address>",
	Short: "Show how many tokens an account holds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()
		cc, done, err := callContext(ctx)
		if err != nil {
			return err
		}
		defer done()

		balance, err := collection.GetBalance(ctx, cc, args[0])
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"owner": args[0], "balance": balance})
	},
}

var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "List the chains in the built-in registry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(chains.Known())
	},
}
