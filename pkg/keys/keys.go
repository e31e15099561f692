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
	"encoding/base64"
	"encoding/hex"
	"os"
	"strings"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-signer/pkg/ethtypes"
	"github.com/hyperledger/firefly-signer/pkg/keystorev3"
	"github.com/hyperledger/firefly-signer/pkg/secp256k1"

	"github.com/kaleido-io/curio/internal/cache"
	"github.com/kaleido-io/curio/internal/confutil"
	"github.com/kaleido-io/curio/internal/log"
	"github.com/kaleido-io/curio/internal/msgs"
)

type StaticKeyEntryConfig struct {
	Encoding     string `yaml:"encoding"` // "hex" (default) or "base64"
	Inline       string `yaml:"inline,omitempty"`
	Filename     string `yaml:"filename,omitempty"`
	Trim         bool   `yaml:"trim"`
	KeystoreFile string `yaml:"keystoreFile,omitempty"`
	PasswordFile string `yaml:"passwordFile,omitempty"`
}

type HDWalletConfig struct {
	Mnemonic     string  `yaml:"mnemonic,omitempty"`
	MnemonicFile string  `yaml:"mnemonicFile,omitempty"`
	BIP44Prefix  *string `yaml:"bip44Prefix"`
}

type Config struct {
	Static   map[string]StaticKeyEntryConfig `yaml:"static"`
	HDWallet *HDWalletConfig                 `yaml:"hdWallet"`
	Cache    cache.Config                    `yaml:"cache"`
}

var Defaults = &Config{
	Cache: cache.Config{Capacity: confutil.P(100)},
}

var HDWalletDefaults = &HDWalletConfig{
	BIP44Prefix: confutil.P("m/44'/60'"),
}

// KeyManager resolves signing identifiers to in-memory secp256k1 key pairs.
//
// An identifier that matches a statically configured key entry resolves to that
// entry (inline hex/base64 material, a raw key file, or a keystore V3 file with
// its password file). Any other identifier is treated as a BIP-44 derivation
// below the configured prefix, when an HD wallet seed mnemonic is configured.
type KeyManager interface {
	ResolveKey(ctx context.Context, identifier string) (keyHandle, verifier string, err error)
	Sign(ctx context.Context, keyHandle string, payload []byte) ([]byte, error)
	Close()
}

type keyManager struct {
	conf  *Config
	hd    *hdWallet
	cache cache.Cache[string, *secp256k1.KeyPair]
}

const staticKeyHandlePrefix = "static/"

func NewKeyManager(ctx context.Context, conf *Config) (_ KeyManager, err error) {
	km := &keyManager{
		conf:  conf,
		cache: cache.NewCache[string, *secp256k1.KeyPair](&conf.Cache, &Defaults.Cache),
	}
	if conf.HDWallet != nil {
		if km.hd, err = newHDWallet(ctx, conf.HDWallet); err != nil {
			return nil, err
		}
	}
	return km, nil
}

func (km *keyManager) ResolveKey(ctx context.Context, identifier string) (keyHandle, verifier string, err error) {
	if _, isStatic := km.conf.Static[identifier]; isStatic {
		keyHandle = staticKeyHandlePrefix + identifier
	} else if km.hd != nil {
		keyHandle = km.hd.keyHandle(identifier)
	} else {
		return "", "", i18n.NewError(ctx, msgs.MsgKeysUnknownKey, identifier)
	}
	kp, err := km.loadKeyPair(ctx, keyHandle)
	if err != nil {
		return "", "", err
	}
	return keyHandle, ethtypes.Address0xHex(kp.Address).String(), nil
}

func (km *keyManager) Sign(ctx context.Context, keyHandle string, payload []byte) ([]byte, error) {
	kp, err := km.loadKeyPair(ctx, keyHandle)
	if err != nil {
		return nil, err
	}
	sig, err := kp.SignDirect(payload)
	if err != nil {
		return nil, err
	}
	sigBytes := sig.CompactRSV()
	// V in the compact signature is the raw recovery identifier (0 or 1)
	if sigBytes[64] >= 27 {
		sigBytes[64] -= 27
	}
	log.L(ctx).Debugf("Signed %d byte payload with key %s", len(payload), keyHandle)
	return sigBytes, nil
}

func (km *keyManager) Close() {
	km.cache.Clear()
}

func (km *keyManager) loadKeyPair(ctx context.Context, keyHandle string) (*secp256k1.KeyPair, error) {
	if kp, ok := km.cache.Get(keyHandle); ok {
		return kp, nil
	}
	var kp *secp256k1.KeyPair
	var err error
	if name, isStatic := strings.CutPrefix(keyHandle, staticKeyHandlePrefix); isStatic {
		kp, err = km.loadStaticKey(ctx, name)
	} else if km.hd != nil {
		kp, err = km.hd.deriveKeyPair(ctx, keyHandle)
	} else {
		err = i18n.NewError(ctx, msgs.MsgKeysUnknownKey, keyHandle)
	}
	if err != nil {
		return nil, err
	}
	km.cache.Set(keyHandle, kp)
	return kp, nil
}

func (km *keyManager) loadStaticKey(ctx context.Context, name string) (*secp256k1.KeyPair, error) {
	entry, ok := km.conf.Static[name]
	if !ok {
		return nil, i18n.NewError(ctx, msgs.MsgKeysUnknownKey, name)
	}
	if entry.KeystoreFile != "" {
		return km.loadKeystoreV3(ctx, &entry)
	}
	keyData := entry.Inline
	if entry.Filename != "" {
		fileData, err := os.ReadFile(entry.Filename)
		if err != nil {
			return nil, i18n.WrapError(ctx, err, msgs.MsgKeysKeystoreFileInvalid, entry.Filename)
		}
		keyData = string(fileData)
	}
	if entry.Trim {
		keyData = strings.TrimSpace(keyData)
	}
	var privateKey []byte
	var err error
	switch entry.Encoding {
	case "base64":
		privateKey, err = base64.StdEncoding.DecodeString(keyData)
	default:
		privateKey, err = hex.DecodeString(strings.TrimPrefix(keyData, "0x"))
	}
	if err != nil || len(privateKey) != 32 {
		return nil, i18n.NewError(ctx, msgs.MsgKeysInvalidHexKey)
	}
	return secp256k1.KeyPairFromBytes(privateKey), nil
}

func (km *keyManager) loadKeystoreV3(ctx context.Context, entry *StaticKeyEntryConfig) (*secp256k1.KeyPair, error) {
	keyData, err := os.ReadFile(entry.KeystoreFile)
	if err != nil {
		return nil, i18n.WrapError(ctx, err, msgs.MsgKeysKeystoreFileInvalid, entry.KeystoreFile)
	}
	var passData []byte
	if entry.PasswordFile != "" {
		passData, err = os.ReadFile(entry.PasswordFile)
		if err != nil {
			return nil, i18n.WrapError(ctx, err, msgs.MsgKeysPasswordFileInvalid, entry.PasswordFile)
		}
	}
	wf, err := keystorev3.ReadWalletFile(keyData, passData)
	if err != nil {
		return nil, i18n.WrapError(ctx, err, msgs.MsgKeysKeystoreFileInvalid, entry.KeystoreFile)
	}
	privateKey := wf.PrivateKey()
	if len(privateKey) != 32 {
		return nil, i18n.NewError(ctx, msgs.MsgKeysInvalidHexKey)
	}
	return secp256k1.KeyPairFromBytes(privateKey), nil
}
