package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// IdentityResolverImpl resolves the backend user id by trying, in order: the
// session store, an explicit override, the local persisted store and finally
// a backend lookup by account email. The first positive id wins and is
// written back to the session and local stores.
type IdentityResolverImpl struct {
	email    string
	session  IdentityStore
	override int64
	local    IdentityStore
	lookup   UserLookup
	logger   *zap.Logger
}

// NewIdentityResolver creates a resolver for accountEmail. Any source may be
// left unset.
func NewIdentityResolver(accountEmail string, lookup UserLookup) *IdentityResolverImpl {
	return &IdentityResolverImpl{
		email:  strings.TrimSpace(accountEmail),
		lookup: lookup,
		logger: zap.NewNop(),
	}
}

// SetSessionStore sets the session-scoped store (checked first)
func (r *IdentityResolverImpl) SetSessionStore(store IdentityStore) { r.session = store }

// SetOverride sets an explicitly requested user id
func (r *IdentityResolverImpl) SetOverride(userID int64) { r.override = userID }

// SetLocalStore sets the persisted fallback store
func (r *IdentityResolverImpl) SetLocalStore(store IdentityStore) { r.local = store }

// SetLogger sets the logger for debug output
func (r *IdentityResolverImpl) SetLogger(logger *zap.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Resolve returns the first available user id
func (r *IdentityResolverImpl) Resolve(ctx context.Context) (int64, error) {
	if id, ok := r.fromStore(ctx, "session", r.session); ok {
		r.writeBack(ctx, id, false, true)
		return id, nil
	}
	if r.override > 0 {
		r.logger.Debug("identity: using override", zap.Int64("user_id", r.override))
		r.writeBack(ctx, r.override, true, true)
		return r.override, nil
	}
	if id, ok := r.fromStore(ctx, "local", r.local); ok {
		r.writeBack(ctx, id, true, false)
		return id, nil
	}
	if r.lookup == nil || r.email == "" {
		return 0, fmt.Errorf("%w: no identity source available", ErrUserNotFound)
	}

	id, err := r.lookup.ResolveUserIDByEmail(ctx, r.email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to resolve user id: %w", classify(err))
	}
	r.logger.Debug("identity: resolved by email", zap.String("email", r.email), zap.Int64("user_id", id))
	r.writeBack(ctx, id, true, true)
	return id, nil
}

func (r *IdentityResolverImpl) fromStore(ctx context.Context, name string, store IdentityStore) (int64, bool) {
	if store == nil {
		return 0, false
	}
	id, ok, err := store.Get(ctx)
	if err != nil {
		r.logger.Warn("identity: store read failed", zap.String("store", name), zap.Error(err))
		return 0, false
	}
	if !ok || id <= 0 {
		return 0, false
	}
	r.logger.Debug("identity: found in store", zap.String("store", name), zap.Int64("user_id", id))
	return id, true
}

func (r *IdentityResolverImpl) writeBack(ctx context.Context, id int64, session, local bool) {
	if session && r.session != nil {
		if err := r.session.Set(ctx, id); err != nil {
			r.logger.Warn("identity: session write-back failed", zap.Error(err))
		}
	}
	if local && r.local != nil {
		if err := r.local.Set(ctx, id); err != nil {
			r.logger.Warn("identity: local write-back failed", zap.Error(err))
		}
	}
}
