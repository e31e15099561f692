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

package collectionmgr

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/google/uuid"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-signer/pkg/ethtypes"

	"github.com/kaleido-io/curio/internal/cache"
	"github.com/kaleido-io/curio/internal/confutil"
	"github.com/kaleido-io/curio/internal/log"
	"github.com/kaleido-io/curio/internal/msgs"
	"github.com/kaleido-io/curio/internal/retry"
	"github.com/kaleido-io/curio/pkg/collection"
)

type ActionState string

const (
	ActionPending   ActionState = "pending"
	ActionSucceeded ActionState = "succeeded"
	ActionFailed    ActionState = "failed"
)

// Action tracks one imperative call through the manager. Result holds the
// typed outcome of the underlying collection call on success; Err is the
// classified failure otherwise, retained until the action is collected.
type Action struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	State     ActionState `json:"state"`
	Result    any         `json:"result,omitempty"`
	Err       error       `json:"-"`
	Started   time.Time   `json:"started"`
	Completed time.Time   `json:"completed,omitempty"`
}

type Config struct {
	TokenCache   cache.Config        `yaml:"tokenCache"`
	RefreshRetry retry.ConfigWithMax `yaml:"refreshRetry"`
}

var Defaults = &Config{
	TokenCache: cache.Config{Capacity: confutil.P(100)},
	RefreshRetry: retry.ConfigWithMax{
		Config:      retry.Config{InitialDelay: confutil.P("100ms"), MaxDelay: confutil.P("2s")},
		MaxAttempts: confutil.P(3),
	},
}

// Snapshot is the manager's current view, published to subscribers on every
// change. Stale means the last post-write refresh failed and the cached
// values may lag the chain.
type Snapshot struct {
	Account        string                     `json:"account,omitempty"`
	Collection     *collection.CollectionInfo `json:"collection,omitempty"`
	Balance        *ethtypes.HexInteger       `json:"balance,omitempty"`
	Stale          bool                       `json:"stale"`
	LastError      string                     `json:"lastError,omitempty"`
	PendingActions int                        `json:"pendingActions"`
}

const managerSnapshotTopic = "manager.snapshot"

// Manager is a stateful wrapper around one deployed collection. It caches the
// latest collection info, the signing account's balance, and recently touched
// tokens (LRU), re-querying after each successful write. Writes run in the
// calling goroutine; concurrent actions are allowed and never serialized -
// logically conflicting writes are the caller's concern.
type Manager struct {
	cc      *collection.CallContext
	account string
	bus     EventBus.Bus
	refresh *retry.Retry
	tokens  cache.Cache[string, *collection.TokenInfo]

	lock    sync.Mutex
	info    *collection.CollectionInfo
	balance *ethtypes.HexInteger
	stale   bool
	lastErr error
	actions map[uuid.UUID]*Action
	closed  bool
}

// NewManager binds a manager to a deployed contract. The signing account (if
// any) is resolved up front so balance tracking has an address to query. The
// initial cache fill is best-effort - a manager for an unreachable endpoint
// starts stale rather than failing construction.
func NewManager(ctx context.Context, cc *collection.CallContext, conf *Config) (*Manager, error) {
	if conf == nil {
		conf = Defaults
	}
	m := &Manager{
		cc:      cc,
		bus:     EventBus.New(),
		refresh: retry.NewRetryLimited(&conf.RefreshRetry),
		tokens:  cache.NewCache[string, *collection.TokenInfo](&conf.TokenCache, &Defaults.TokenCache),
		actions: map[uuid.UUID]*Action{},
	}
	if cc.Signer != "" && cc.Keys != nil {
		_, verifier, err := cc.Keys.ResolveKey(ctx, cc.Signer)
		if err != nil {
			return nil, err
		}
		m.account = verifier
	}
	if err := m.refreshNow(ctx, nil); err != nil {
		log.L(ctx).Warnf("Initial cache fill failed, starting stale: %s", err)
		m.setStale(err)
	}
	return m, nil
}

// Account returns the resolved signing address, empty when the manager is
// query-only.
func (m *Manager) Account() string {
	return m.account
}

// Snapshot returns the current view without touching the network.
func (m *Manager) Snapshot() Snapshot {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	pending := 0
	for _, act := range m.actions {
		if act.State == ActionPending {
			pending++
		}
	}
	s := Snapshot{
		Account:        m.account,
		Collection:     m.info,
		Balance:        m.balance,
		Stale:          m.stale,
		PendingActions: pending,
	}
	if m.lastErr != nil {
		s.LastError = m.lastErr.Error()
	}
	return s
}

// Subscribe returns a channel of snapshots and a cancel function. A snapshot
// is published on every cache refresh and action completion. Delivery is
// asynchronous - once the buffer fills, the send blocks only its own delivery
// goroutine, never the goroutine completing the action.
func (m *Manager) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 10)
	handler := func(s Snapshot) {
		ch <- s
	}
	_ = m.bus.SubscribeAsync(managerSnapshotTopic, handler, true)
	return ch, func() {
		_ = m.bus.Unsubscribe(managerSnapshotTopic, handler)
	}
}

// SubscribeFn registers a callback invoked with every published snapshot.
func (m *Manager) SubscribeFn(fn func(Snapshot)) func() {
	_ = m.bus.Subscribe(managerSnapshotTopic, fn)
	return func() {
		_ = m.bus.Unsubscribe(managerSnapshotTopic, fn)
	}
}

func (m *Manager) publish() {
	m.lock.Lock()
	s := m.snapshotLocked()
	m.lock.Unlock()
	m.bus.Publish(managerSnapshotTopic, s)
}

// Close stops the manager accepting new actions. Existing action records stay
// collectable.
func (m *Manager) Close() {
	m.lock.Lock()
	m.closed = true
	m.lock.Unlock()
}

// CollectionInfo returns the cached snapshot, re-querying when the cache is
// empty or stale.
func (m *Manager) CollectionInfo(ctx context.Context) (*collection.CollectionInfo, error) {
	m.lock.Lock()
	if m.info != nil && !m.stale {
		info := m.info
		m.lock.Unlock()
		return info, nil
	}
	m.lock.Unlock()
	if err := m.refreshNow(ctx, nil); err != nil {
		return nil, err
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.info, nil
}

// Balance returns the signing account's cached token balance.
func (m *Manager) Balance(ctx context.Context) (*ethtypes.HexInteger, error) {
	if m.account == "" {
		return nil, i18n.NewError(ctx, msgs.MsgCollectionSignerRequired, "balance tracking")
	}
	m.lock.Lock()
	if m.balance != nil && !m.stale {
		balance := m.balance
		m.lock.Unlock()
		return balance, nil
	}
	m.lock.Unlock()
	if err := m.refreshNow(ctx, nil); err != nil {
		return nil, err
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.balance, nil
}

// TokenInfo returns a token snapshot, from the LRU when fresh.
func (m *Manager) TokenInfo(ctx context.Context, tokenID *big.Int) (*collection.TokenInfo, error) {
	if tokenID != nil {
		m.lock.Lock()
		stale := m.stale
		m.lock.Unlock()
		if info, ok := m.tokens.Get(tokenID.String()); ok && !stale {
			return info, nil
		}
	}
	info, err := collection.GetNFTInfo(ctx, m.cc, tokenID)
	if err != nil {
		return nil, err
	}
	m.tokens.Set(tokenID.String(), info)
	return info, nil
}

// Refresh forces a full re-query of the cached collection state, clearing
// staleness on success.
func (m *Manager) Refresh(ctx context.Context) error {
	return m.refreshNow(ctx, nil)
}

// refreshNow re-queries collection info, balance, and any touched tokens in
// one pass. Success clears the stale flag.
func (m *Manager) refreshNow(ctx context.Context, touched []*big.Int) error {
	info, err := collection.GetCollectionInfo(ctx, m.cc)
	if err != nil {
		return err
	}
	var balance *ethtypes.HexInteger
	if m.account != "" {
		if balance, err = collection.GetBalance(ctx, m.cc, m.account); err != nil {
			return err
		}
	}
	for _, tokenID := range touched {
		tokenInfo, err := collection.GetNFTInfo(ctx, m.cc, tokenID)
		if err != nil {
			if collection.KindOf(err) == collection.InvalidArgument {
				// Token no longer exists (burned) - drop it, don't fail the refresh
				m.tokens.Delete(tokenID.String())
				continue
			}
			return err
		}
		m.tokens.Set(tokenID.String(), tokenInfo)
	}
	m.lock.Lock()
	m.info = info
	if m.account != "" {
		m.balance = balance
	}
	m.stale = false
	m.lastErr = nil
	m.lock.Unlock()
	m.publish()
	return nil
}

func (m *Manager) setStale(err error) {
	m.lock.Lock()
	m.stale = true
	m.lastErr = err
	m.lock.Unlock()
	m.publish()
}

// refreshAfterWrite is the best-effort post-write re-query: bounded retries,
// and on final failure the action still reports success - the cache is just
// marked stale and the next access re-attempts.
func (m *Manager) refreshAfterWrite(ctx context.Context, touched ...*big.Int) {
	err := m.refresh.Do(ctx, func(attempt int) (bool, error) {
		return true, m.refreshNow(ctx, touched)
	})
	if err != nil {
		log.L(ctx).Warnf("Cache refresh failed after write, marking stale: %s", err)
		m.setStale(err)
	}
}

func (m *Manager) beginAction(ctx context.Context, name string) (*Action, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.closed {
		return nil, i18n.NewError(ctx, msgs.MsgManagerClosed)
	}
	act := &Action{
		ID:      uuid.New(),
		Name:    name,
		State:   ActionPending,
		Started: time.Now(),
	}
	m.actions[act.ID] = act
	return act, nil
}

func (m *Manager) completeAction(act *Action, result any) *Action {
	m.lock.Lock()
	act.State = ActionSucceeded
	act.Result = result
	act.Completed = time.Now()
	actCopy := *act
	m.lock.Unlock()
	m.publish()
	return &actCopy
}

func (m *Manager) failAction(act *Action, err error) *Action {
	m.lock.Lock()
	act.State = ActionFailed
	act.Err = err
	act.Completed = time.Now()
	m.lastErr = err
	actCopy := *act
	m.lock.Unlock()
	m.publish()
	return &actCopy
}

// Action looks up an action record by ID.
func (m *Manager) Action(ctx context.Context, id uuid.UUID) (*Action, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	act, ok := m.actions[id]
	if !ok {
		return nil, i18n.NewError(ctx, msgs.MsgManagerActionNotFound, id)
	}
	actCopy := *act
	return &actCopy, nil
}

// Collect returns a completed action's final record and removes it from the
// manager. A still-pending action is returned without removal.
func (m *Manager) Collect(ctx context.Context, id uuid.UUID) (*Action, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	act, ok := m.actions[id]
	if !ok {
		return nil, i18n.NewError(ctx, msgs.MsgManagerActionNotFound, id)
	}
	actCopy := *act
	if act.State != ActionPending {
		delete(m.actions, id)
	}
	return &actCopy, nil
}

// Mint mints one token to the target account and refreshes the cache with the
// newly assigned token.
func (m *Manager) Mint(ctx context.Context, to string) (*Action, error) {
	act, err := m.beginAction(ctx, "mint")
	if err != nil {
		return nil, err
	}
	res, err := collection.Mint(ctx, m.cc, to)
	if err != nil {
		return m.failAction(act, err), err
	}
	m.refreshAfterWrite(ctx, res.TokenID.BigInt())
	return m.completeAction(act, res), nil
}

// MintBatch mints count tokens and refreshes the cache with all of them.
func (m *Manager) MintBatch(ctx context.Context, to string, count int) (*Action, error) {
	act, err := m.beginAction(ctx, "mintBatch")
	if err != nil {
		return nil, err
	}
	res, err := collection.MintBatch(ctx, m.cc, to, count)
	if err != nil {
		return m.failAction(act, err), err
	}
	touched := make([]*big.Int, len(res.TokenIDs))
	for i, tokenID := range res.TokenIDs {
		touched[i] = tokenID.BigInt()
	}
	m.refreshAfterWrite(ctx, touched...)
	return m.completeAction(act, res), nil
}

// Burn retires a token and drops it from the cache.
func (m *Manager) Burn(ctx context.Context, tokenID *big.Int) (*Action, error) {
	act, err := m.beginAction(ctx, "burn")
	if err != nil {
		return nil, err
	}
	res, err := collection.Burn(ctx, m.cc, tokenID)
	if err != nil {
		return m.failAction(act, err), err
	}
	m.tokens.Delete(tokenID.String())
	m.refreshAfterWrite(ctx)
	return m.completeAction(act, res), nil
}

// TransferFrom moves a token and refreshes its cached ownership.
func (m *Manager) TransferFrom(ctx context.Context, from, to string, tokenID *big.Int) (*Action, error) {
	act, err := m.beginAction(ctx, "transferFrom")
	if err != nil {
		return nil, err
	}
	res, err := collection.TransferFrom(ctx, m.cc, from, to, tokenID)
	if err != nil {
		return m.failAction(act, err), err
	}
	m.refreshAfterWrite(ctx, tokenID)
	return m.completeAction(act, res), nil
}

// SafeTransferFrom is TransferFrom with the receiver check.
func (m *Manager) SafeTransferFrom(ctx context.Context, from, to string, tokenID *big.Int, data []byte) (*Action, error) {
	act, err := m.beginAction(ctx, "safeTransferFrom")
	if err != nil {
		return nil, err
	}
	res, err := collection.SafeTransferFrom(ctx, m.cc, from, to, tokenID, data)
	if err != nil {
		return m.failAction(act, err), err
	}
	m.refreshAfterWrite(ctx, tokenID)
	return m.completeAction(act, res), nil
}

// Approve sets (or clears, with the zero address) a token's approved address.
func (m *Manager) Approve(ctx context.Context, to string, tokenID *big.Int) (*Action, error) {
	act, err := m.beginAction(ctx, "approve")
	if err != nil {
		return nil, err
	}
	res, err := collection.Approve(ctx, m.cc, to, tokenID)
	if err != nil {
		return m.failAction(act, err), err
	}
	m.refreshAfterWrite(ctx)
	return m.completeAction(act, res), nil
}

// SetApprovalForAll grants or revokes an operator approval.
func (m *Manager) SetApprovalForAll(ctx context.Context, operator string, approved bool) (*Action, error) {
	act, err := m.beginAction(ctx, "setApprovalForAll")
	if err != nil {
		return nil, err
	}
	res, err := collection.SetApprovalForAll(ctx, m.cc, operator, approved)
	if err != nil {
		return m.failAction(act, err), err
	}
	m.refreshAfterWrite(ctx)
	return m.completeAction(act, res), nil
}

// SetBaseURI replaces the metadata prefix. Cached token URIs are invalidated
// wholesale.
func (m *Manager) SetBaseURI(ctx context.Context, uri string) (*Action, error) {
	act, err := m.beginAction(ctx, "setBaseURI")
	if err != nil {
		return nil, err
	}
	res, err := collection.SetBaseURI(ctx, m.cc, uri)
	if err != nil {
		return m.failAction(act, err), err
	}
	m.tokens.Clear()
	m.refreshAfterWrite(ctx)
	return m.completeAction(act, res), nil
}

// Pause gates transfer-class operations.
func (m *Manager) Pause(ctx context.Context) (*Action, error) {
	act, err := m.beginAction(ctx, "pause")
	if err != nil {
		return nil, err
	}
	res, err := collection.Pause(ctx, m.cc)
	if err != nil {
		return m.failAction(act, err), err
	}
	m.refreshAfterWrite(ctx)
	return m.completeAction(act, res), nil
}

// Unpause lifts the transfer gate.
func (m *Manager) Unpause(ctx context.Context) (*Action, error) {
	act, err := m.beginAction(ctx, "unpause")
	if err != nil {
		return nil, err
	}
	res, err := collection.Unpause(ctx, m.cc)
	if err != nil {
		return m.failAction(act, err), err
	}
	m.refreshAfterWrite(ctx)
	return m.completeAction(act, res), nil
}

// TransferOwnership hands the contract-owner role to another account.
func (m *Manager) TransferOwnership(ctx context.Context, newOwner string) (*Action, error) {
	act, err := m.beginAction(ctx, "transferOwnership")
	if err != nil {
		return nil, err
	}
	res, err := collection.TransferOwnership(ctx, m.cc, newOwner)
	if err != nil {
		return m.failAction(act, err), err
	}
	m.refreshAfterWrite(ctx)
	return m.completeAction(act, res), nil
}

// RenounceOwnership permanently abandons the contract-owner role.
func (m *Manager) RenounceOwnership(ctx context.Context) (*Action, error) {
	act, err := m.beginAction(ctx, "renounceOwnership")
	if err != nil {
		return nil, err
	}
	res, err := collection.RenounceOwnership(ctx, m.cc)
	if err != nil {
		return m.failAction(act, err), err
	}
	m.refreshAfterWrite(ctx)
	return m.completeAction(act, res), nil
}
