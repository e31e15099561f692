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
	"github.com/hyperledger/firefly-signer/pkg/abi"
)

// StandardABISerializer returns the serializer used to convert decoded ABI
// call and event data into JSON. Parameters are named (or indexed when
// unnamed), integers are base-10 strings to avoid overflow in consumers,
// and byte arrays are 0x-prefixed hex.
func StandardABISerializer() *abi.Serializer {
	return abi.NewSerializer().
		SetFormattingMode(abi.FormatAsObjects).
		SetIntSerializer(abi.Base10StringIntSerializer).
		SetFloatSerializer(abi.Base10StringFloatSerializer).
		SetByteSerializer(abi.HexByteSerializer0xPrefix)
}
