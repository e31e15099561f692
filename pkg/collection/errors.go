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

package collection

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-signer/pkg/ethtypes"

	"github.com/kaleido-io/curio/internal/msgs"
	"github.com/kaleido-io/curio/pkg/ethclient"
)

// Kind classifies every failure surfaced by this package. Exactly one kind
// applies to each returned error.
type Kind string

const (
	// InvalidArgument - local validation failed (no network call was made), or
	// a query targeted a token/index that does not exist
	InvalidArgument Kind = "invalid_argument"
	// RemoteRejected - the endpoint or the contract logic refused the call
	// (not-owner, not-approved, paused, exceeds-max-supply and similar)
	RemoteRejected Kind = "remote_rejected"
	// Transport - a network-level failure reaching the endpoint
	Transport Kind = "transport"
	// Timeout - the deadline expired before the transaction was submitted
	Timeout Kind = "timeout"
	// Unknown - the transaction was submitted, but its outcome was not
	// confirmed before the deadline. The transaction may still land - the
	// retained hash can be re-polled with ethclient.WaitForReceipt
	Unknown Kind = "unknown"
)

// Error carries the classification kind alongside the underlying coded error.
type Error struct {
	Kind   Kind
	TXHash ethtypes.HexBytes0xPrefix // retained when Kind is Unknown
	cause  error
}

func (e *Error) Error() string {
	return e.cause.Error()
}

func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf classifies any error returned from this package, walking wrapped
// errors. Errors from elsewhere classify as Transport, the catch-all for
// failures where no local or remote decision was made.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Timeout
	}
	return Transport
}

func newError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

func invalidArgument(ctx context.Context, key i18n.ErrorMessageKey, inserts ...interface{}) *Error {
	return newError(InvalidArgument, i18n.NewError(ctx, key, inserts...))
}

// Revert strings the ERC-721 reference implementations use when the target
// token or enumeration index does not exist. These are argument errors by the
// caller, not refusals of an otherwise valid call.
var nonexistentTokenMatches = []string{
	"nonexistent token",
	"invalid token id",
	"token does not exist",
	"index out of bounds",
}

func isNonexistentToken(message string) bool {
	message = strings.ToLower(message)
	for _, match := range nonexistentTokenMatches {
		if strings.Contains(message, match) {
			return true
		}
	}
	return false
}

// classifyQueryError maps a failure from a read-only eth_call.
func classifyQueryError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return newError(Timeout, i18n.WrapError(ctx, err, msgs.MsgContextCanceled))
	}
	if ethclient.MapError(err) == ethclient.ErrorReasonTransactionReverted {
		if isNonexistentToken(err.Error()) {
			return newError(InvalidArgument, err)
		}
		return newError(RemoteRejected, i18n.WrapError(ctx, err, msgs.MsgCollectionTxReverted, err.Error()))
	}
	return newError(Transport, err)
}

// classifySubmitError maps a failure before the transaction reached the
// chain - gas estimation reverts are definitive remote rejections, while
// anything transport-shaped means nothing was submitted.
func classifySubmitError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return newError(Timeout, i18n.WrapError(ctx, err, msgs.MsgContextCanceled))
	}
	switch ethclient.MapError(err) {
	case ethclient.ErrorReasonTransactionReverted:
		if isNonexistentToken(err.Error()) {
			return newError(InvalidArgument, err)
		}
		return newError(RemoteRejected, i18n.WrapError(ctx, err, msgs.MsgCollectionTxReverted, err.Error()))
	case ethclient.ErrorReasonNonceTooLow,
		ethclient.ErrorReasonTransactionUnderpriced,
		ethclient.ErrorReasonInsufficientFunds:
		return newError(RemoteRejected, err)
	default:
		return newError(Transport, err)
	}
}

// unknownOutcome is the terminal state for a transaction that was submitted,
// but whose receipt was not observed before the failure. The hash is retained
// so the caller can reconcile later.
func unknownOutcome(ctx context.Context, txHash ethtypes.HexBytes0xPrefix, cause error) *Error {
	return &Error{
		Kind:   Unknown,
		TXHash: txHash,
		cause:  i18n.WrapError(ctx, cause, msgs.MsgCollectionOutcomeUnknown, txHash),
	}
}

// receiptRejected surfaces the decoded on-chain failure reason from a
// confirmed-but-failed receipt.
func receiptRejected(ctx context.Context, txHash ethtypes.HexBytes0xPrefix, receipt *ethclient.TransactionReceiptResponse) *Error {
	reason := "execution failed"
	if receipt.ExtraInfo != nil {
		var extra struct {
			ErrorMessage *string `json:"errorMessage"`
		}
		if err := json.Unmarshal(receipt.ExtraInfo.Bytes(), &extra); err == nil && extra.ErrorMessage != nil {
			reason = *extra.ErrorMessage
		}
	}
	kind := RemoteRejected
	if isNonexistentToken(reason) {
		kind = InvalidArgument
	}
	return &Error{
		Kind:   kind,
		TXHash: txHash,
		cause:  i18n.NewError(ctx, msgs.MsgCollectionTxFailed, txHash, reason),
	}
}
