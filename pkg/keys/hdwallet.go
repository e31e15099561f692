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

package keys

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-signer/pkg/secp256k1"
	"github.com/tyler-smith/go-bip39"

	"github.com/kaleido-io/curio/internal/confutil"
	"github.com/kaleido-io/curio/internal/msgs"
)

type hdWallet struct {
	bip44Prefix string
	hdKeyChain  *hdkeychain.ExtendedKey
}

func newHDWallet(ctx context.Context, conf *HDWalletConfig) (*hdWallet, error) {
	mnemonic := conf.Mnemonic
	if conf.MnemonicFile != "" {
		fileData, err := os.ReadFile(conf.MnemonicFile)
		if err != nil {
			return nil, i18n.WrapError(ctx, err, msgs.MsgKeysInvalidMnemonic)
		}
		mnemonic = string(fileData)
	}
	seed, err := bip39.NewSeedWithErrorChecking(strings.TrimSpace(mnemonic), "")
	if err != nil {
		return nil, i18n.NewError(ctx, msgs.MsgKeysInvalidMnemonic)
	}
	hdKeyChain, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, err
	}
	return &hdWallet{
		bip44Prefix: confutil.StringNotEmpty(conf.BIP44Prefix, *HDWalletDefaults.BIP44Prefix),
		hdKeyChain:  hdKeyChain,
	}, nil
}

func (hd *hdWallet) keyHandle(identifier string) string {
	return hd.bip44Prefix + "/" + identifier
}

// The key handle is a full BIP-44 derivation path from the master key,
// with friendly spaces allowed around each segment.
func (hd *hdWallet) deriveKeyPair(ctx context.Context, keyHandle string) (*secp256k1.KeyPair, error) {
	segments := strings.Split(keyHandle, "/")
	if len(segments) < 2 || strings.TrimSpace(segments[0]) != "m" {
		return nil, i18n.NewError(ctx, msgs.MsgKeysDerivationPathInvalid, keyHandle)
	}
	pos := hd.hdKeyChain
	for _, s := range segments[1:] {
		number, isHardened := strings.CutSuffix(strings.TrimSpace(s), "'")
		derivation, err := strconv.ParseUint(number, 10, 64) // we use 64bits up until the range check below
		if err == nil {
			if derivation >= 0x80000000 {
				return nil, i18n.NewError(ctx, msgs.MsgKeysDerivationIndexTooLarge, derivation)
			}
			if isHardened {
				derivation += 0x80000000
			}
			pos, err = pos.Derive(uint32(derivation))
		}
		if err != nil {
			return nil, i18n.WrapError(ctx, err, msgs.MsgKeysDerivationPathInvalid, s)
		}
	}
	ecPrivKey, err := pos.ECPrivKey()
	if err != nil {
		return nil, err
	}
	pkBytes := ecPrivKey.Key.Bytes()
	return secp256k1.KeyPairFromBytes(pkBytes[:]), nil
}
