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

package tlsconf

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/hyperledger/firefly-common/pkg/i18n"

	"github.com/kaleido-io/curio/internal/log"
	"github.com/kaleido-io/curio/internal/msgs"
)

type Config struct {
	Enabled                bool   `yaml:"enabled"`
	CAFile                 string `yaml:"caFile,omitempty"`
	CA                     string `yaml:"ca,omitempty"`
	CertFile               string `yaml:"certFile,omitempty"`
	Cert                   string `yaml:"cert,omitempty"`
	KeyFile                string `yaml:"keyFile,omitempty"`
	Key                    string `yaml:"key,omitempty"`
	InsecureSkipHostVerify bool   `yaml:"insecureSkipHostVerify"`
}

// BuildTLSConfig builds a client tls.Config from the supplied config, returning
// nil (with no error) when TLS is not enabled.
func BuildTLSConfig(ctx context.Context, config *Config) (*tls.Config, error) {
	if !config.Enabled {
		return nil, nil
	}

	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	var err error
	// Support custom CA file
	var rootCAs *x509.CertPool
	switch {
	case config.CAFile != "":
		rootCAs = x509.NewCertPool()
		var caBytes []byte
		caBytes, err = os.ReadFile(config.CAFile)
		if err == nil {
			ok := rootCAs.AppendCertsFromPEM(caBytes)
			if !ok {
				err = i18n.NewError(ctx, msgs.MsgTLSInvalidCAFile)
			}
		}
	case config.CA != "":
		rootCAs = x509.NewCertPool()
		ok := rootCAs.AppendCertsFromPEM([]byte(config.CA))
		if !ok {
			err = i18n.NewError(ctx, msgs.MsgTLSInvalidCAFile)
		}
	default:
		rootCAs, err = x509.SystemCertPool()
	}

	if err != nil {
		return nil, i18n.WrapError(ctx, err, msgs.MsgTLSConfigFailed)
	}

	tlsConfig.RootCAs = rootCAs

	// For mTLS we need both the cert and key
	var clientCert *tls.Certificate
	if config.CertFile != "" && config.KeyFile != "" {
		// Read the key pair to create certificate
		cert, err := tls.LoadX509KeyPair(config.CertFile, config.KeyFile)
		if err != nil {
			return nil, i18n.WrapError(ctx, err, msgs.MsgTLSInvalidKeyPairFiles)
		}
		clientCert = &cert
	} else if config.Cert != "" && config.Key != "" {
		cert, err := tls.X509KeyPair([]byte(config.Cert), []byte(config.Key))
		if err != nil {
			return nil, i18n.WrapError(ctx, err, msgs.MsgTLSInvalidKeyPairFiles)
		}
		clientCert = &cert
	}
	if clientCert != nil {
		configuredCert := clientCert
		// Rather than letting Golang pick a certificate it thinks matches from the list of one,
		// we directly supply it the one we have in all cases.
		tlsConfig.GetClientCertificate = func(cri *tls.CertificateRequestInfo) (*tls.Certificate, error) {
			log.L(ctx).Debugf("Supplying client certificate")
			return configuredCert, nil
		}
	}

	tlsConfig.InsecureSkipVerify = config.InsecureSkipHostVerify

	return tlsConfig, nil

}
