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
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/hyperledger/firefly-signer/pkg/ethtypes"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kaleido-io/curio/internal/confutil"
	"github.com/kaleido-io/curio/internal/log"
	"github.com/kaleido-io/curio/pkg/collection"
	"github.com/kaleido-io/curio/pkg/keys"
)

// Config is the curioctl YAML configuration file. Flags override file values
// field by field, so a shared file can carry the keys and endpoint while the
// contract address comes from the command line.
type Config struct {
	Endpoint string      `yaml:"endpoint"`
	ChainID  int64       `yaml:"chainId"`
	Contract string      `yaml:"contract"`
	Key      string      `yaml:"key"`
	Keys     keys.Config `yaml:"keys"`
	Log      log.Config  `yaml:"log"`
}

type GlobalFlags struct {
	ConfigFile string
	Endpoint   string
	ChainID    int64
	Contract   string
	Key        string
	Timeout    time.Duration
	LogLevel   string
}

var (
	globalFlags GlobalFlags
	cliConf     *Config
)

var rootCmd = &cobra.Command{
	Use:   "curioctl",
	Short: "NFT collection contract client",
	Long: `curioctl deploys and operates ERC-721 NFT collection contracts over
JSON-RPC. Query commands print JSON to stdout; transaction commands print the
confirmed result including the transaction hash.

Connection and signing details come from a YAML config file (--config) with
per-invocation flag overrides. The chain registry supplies a default endpoint
for known chain IDs when none is configured.`,
	SilenceUsage: true,
}

// Execute runs the root command, mapping any classified failure to a non-zero
// exit with its kind on stderr.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var ce *collection.Error
		if errors.As(err, &ce) {
			fmt.Fprintf(os.Stderr, "Error (%s): %s\n", ce.Kind, err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		var err error
		if cliConf, err = loadConfig(); err != nil {
			return err
		}
		log.InitConfig(&cliConf.Log)
		return nil
	}

	rootCmd.PersistentFlags().StringVarP(&globalFlags.ConfigFile, "config", "f", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&globalFlags.Endpoint, "endpoint", "", "JSON-RPC HTTP endpoint (overrides config and chain default)")
	rootCmd.PersistentFlags().Int64Var(&globalFlags.ChainID, "chain", 0, "chain ID, resolved against the built-in registry")
	rootCmd.PersistentFlags().StringVar(&globalFlags.Contract, "contract", "", "deployed collection contract address")
	rootCmd.PersistentFlags().StringVar(&globalFlags.Key, "key", "", "signing key identifier, resolved through the configured keys")
	rootCmd.PersistentFlags().DurationVar(&globalFlags.Timeout, "timeout", 60*time.Second, "overall deadline for the command")
	rootCmd.PersistentFlags().StringVar(&globalFlags.LogLevel, "log-level", "", "log level override")

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(ownerCmd)
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(chainsCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(mintCmd)
	rootCmd.AddCommand(mintBatchCmd)
	rootCmd.AddCommand(transferCmd)
	rootCmd.AddCommand(burnCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(approveAllCmd)
	rootCmd.AddCommand(setBaseURICmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(unpauseCmd)
	rootCmd.AddCommand(transferOwnershipCmd)
	rootCmd.AddCommand(renounceOwnershipCmd)
}

// loadConfig reads the config file (when supplied) then applies any flags the
// user set explicitly on top.
func loadConfig() (*Config, error) {
	conf := &Config{}
	if globalFlags.ConfigFile != "" {
		v := viper.New()
		v.SetConfigFile(globalFlags.ConfigFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
		if err := v.Unmarshal(conf); err != nil {
			return nil, err
		}
	}

	pf := rootCmd.PersistentFlags()
	if pf.Changed("endpoint") {
		conf.Endpoint = globalFlags.Endpoint
	}
	if pf.Changed("chain") {
		conf.ChainID = globalFlags.ChainID
	}
	if pf.Changed("contract") {
		conf.Contract = globalFlags.Contract
	}
	if pf.Changed("key") {
		conf.Key = globalFlags.Key
	}
	if pf.Changed("log-level") {
		conf.Log.Level = confutil.P(globalFlags.LogLevel)
	}
	return conf, nil
}

// cmdContext bounds the whole command, confirmation wait included.
func cmdContext() (context.Context, context.CancelFunc) {
	if globalFlags.Timeout > 0 {
		return context.WithTimeout(context.Background(), globalFlags.Timeout)
	}
	return context.Background(), func() {}
}

// callContext assembles the per-call state from the resolved config. The
// release function closes the key manager.
func callContext(ctx context.Context) (*collection.CallContext, func(), error) {
	cc := &collection.CallContext{
		Endpoint: cliConf.Endpoint,
		ChainID:  cliConf.ChainID,
		Signer:   cliConf.Key,
	}
	if cliConf.Contract != "" {
		addr, err := ethtypes.NewAddress(cliConf.Contract)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid contract address '%s': %s", cliConf.Contract, err)
		}
		cc.Contract = addr
	}
	km, err := keys.NewKeyManager(ctx, &cliConf.Keys)
	if err != nil {
		return nil, nil, err
	}
	cc.Keys = km
	return cc, km.Close, nil
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func parseBigInt(arg string) (*big.Int, error) {
	i, ok := new(big.Int).SetString(arg, 0)
	if !ok {
		return nil, fmt.Errorf("invalid integer '%s'", arg)
	}
	return i, nil
}
