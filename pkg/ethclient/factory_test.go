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

package ethclient

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/hyperledger/firefly-signer/pkg/ethtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaleido-io/curio/internal/rpcclient"
)

func TestNewEthClientFactoryMissingURL(t *testing.T) {
	kmgr := newTestKeyManager(t)
	defer kmgr.Close()

	_, err := NewEthClientFactory(context.Background(), kmgr, &Config{})
	assert.Regexp(t, "CU010102", err)
}

func TestNewEthClientFactoryBadHTTPURL(t *testing.T) {
	kmgr := newTestKeyManager(t)
	defer kmgr.Close()

	_, err := NewEthClientFactory(context.Background(), kmgr, &Config{
		HTTP: rpcclient.HTTPConfig{
			URL: "wrong://type",
		},
	})
	assert.Regexp(t, "CU010100", err)
}

func TestNewEthClientFactoryBadWSURL(t *testing.T) {
	kmgr := newTestKeyManager(t)
	defer kmgr.Close()

	_, err := NewEthClientFactory(context.Background(), kmgr, &Config{
		HTTP: rpcclient.HTTPConfig{
			URL: "http://ok.example.com",
		},
		WS: rpcclient.WSConfig{
			HTTPConfig: rpcclient.HTTPConfig{
				URL: "wrong://bad.example.com",
			},
		},
	})
	assert.Regexp(t, "CU010101", err)
}

func TestNewEthClientFactoryChainIDFail(t *testing.T) {
	url, done := newTestRPCServer(t, &mockEth{
		eth_chainId: func(ctx context.Context) (ethtypes.HexUint64, error) { return 0, fmt.Errorf("pop") },
	})
	defer done()

	kmgr := newTestKeyManager(t)
	defer kmgr.Close()

	_, err := NewEthClientFactory(context.Background(), kmgr, &Config{
		HTTP: rpcclient.HTTPConfig{
			URL: url,
		},
	})
	assert.Regexp(t, "CU010200.*pop", err)
}

func TestMismatchedChainID(t *testing.T) {
	httpURL, httpDone := newTestRPCServer(t, &mockEth{
		eth_chainId: func(ctx context.Context) (ethtypes.HexUint64, error) { return 22222, nil },
	})
	defer httpDone()
	wsURL, wsDone := newTestRPCServer(t, &mockEth{
		eth_chainId: func(ctx context.Context) (ethtypes.HexUint64, error) { return 11111, nil },
	})
	defer wsDone()

	kmgr := newTestKeyManager(t)
	defer kmgr.Close()

	_, err := NewEthClientFactory(context.Background(), kmgr, &Config{
		HTTP: rpcclient.HTTPConfig{
			URL: httpURL,
		},
		WS: rpcclient.WSConfig{
			HTTPConfig: rpcclient.HTTPConfig{
				URL: "ws" + strings.TrimPrefix(wsURL, "http"),
			},
		},
	})
	assert.Regexp(t, "CU010214", err)
}

func TestWSURLDefaultedFromHTTP(t *testing.T) {
	url, done := newTestRPCServer(t, &mockEth{})
	defer done()

	kmgr := newTestKeyManager(t)
	defer kmgr.Close()

	conf := &Config{
		HTTP: rpcclient.HTTPConfig{
			URL: url,
		},
	}
	ecf, err := NewEthClientFactory(context.Background(), kmgr, conf)
	require.NoError(t, err)
	defer ecf.Close()

	assert.Equal(t, "ws"+strings.TrimPrefix(url, "http"), conf.WS.URL)
	assert.Equal(t, int64(12345), ecf.ChainID())
	assert.Equal(t, int64(12345), ecf.SharedWS().ChainID())
	assert.Equal(t, int64(12345), ecf.HTTPClient().ChainID())
}

func TestNewWSDedicatedSocket(t *testing.T) {
	_, ecf, done := newTestClientAndServer(t, &mockEth{})
	defer done()

	ec, err := ecf.NewWS()
	require.NoError(t, err)
	assert.Equal(t, int64(12345), ec.ChainID())
	ec.Close()
}
