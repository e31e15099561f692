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
	"fmt"
	"math/big"
	"os"

	"github.com/spf13/cobra"

	"github.com/kaleido-io/curio/pkg/collectionmgr"
)

var deployFlags struct {
	Build     string
	Name      string
	Symbol    string
	BaseURI   string
	MaxSupply int64
	Owner     string
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy and initialize a new collection contract",
	Long: `Deploys the collection contract from a Solidity build artifact, waits for
the deployment to confirm, then initializes it with the supplied collection
parameters. The owner defaults to the signing key's address. Progress is
reported on stderr; the final status, including the contract address and both
transaction hashes, is printed as JSON on stdout.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cmdContext()
		defer cancel()
		cc, done, err := callContext(ctx)
		if err != nil {
			return err
		}
		defer done()
		cc.Contract = nil // the deployment determines the address

		build, err := collectionmgr.LoadBuildFile(ctx, deployFlags.Build)
		if err != nil {
			return err
		}

		owner := deployFlags.Owner
		if owner == "" {
			if _, owner, err = cc.Keys.ResolveKey(ctx, cc.Signer); err != nil {
				return err
			}
		}

		d := collectionmgr.NewDeployer(cc, build)
		cancelSub := d.SubscribeFn(func(s collectionmgr.DeployStatus) {
			fmt.Fprintf(os.Stderr, "phase=%s", s.Phase)
			if s.ContractAddress != nil {
				fmt.Fprintf(os.Stderr, " contract=%s", s.ContractAddress)
			}
			if len(s.DeployTX) > 0 {
				fmt.Fprintf(os.Stderr, " deployTx=%s", s.DeployTX)
			}
			fmt.Fprintln(os.Stderr)
		})
		defer cancelSub()

		status, err := d.Deploy(ctx, &collectionmgr.CollectionParams{
			Name:      deployFlags.Name,
			Symbol:    deployFlags.Symbol,
			BaseURI:   deployFlags.BaseURI,
			MaxSupply: big.NewInt(deployFlags.MaxSupply),
			Owner:     owner,
		})
		if err != nil {
			return err
		}
		return printJSON(status)
	},
}

func init() {
	deployCmd.Flags().StringVar(&deployFlags.Build, "build", "", "Solidity build artifact JSON (abi + bytecode)")
	deployCmd.Flags().StringVar(&deployFlags.Name, "name", "", "collection name")
	deployCmd.Flags().StringVar(&deployFlags.Symbol, "symbol", "", "collection symbol")
	deployCmd.Flags().StringVar(&deployFlags.BaseURI, "base-uri", "", "metadata base URI, token URIs are base + decimal ID")
	deployCmd.Flags().Int64Var(&deployFlags.MaxSupply, "max-supply", 0, "maximum supply, 0 for unlimited")
	deployCmd.Flags().StringVar(&deployFlags.Owner, "owner", "", "initial contract owner, defaults to the signing key")
	_ = deployCmd.MarkFlagRequired("build")
	_ = deployCmd.MarkFlagRequired("name")
	_ = deployCmd.MarkFlagRequired("symbol")
}
