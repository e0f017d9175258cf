// Package identity resolves the (user, family) pair an action runs as.
//
// Resolution walks a fixed chain: explicit argument, the last known
// context, the authenticated session, the local key-value store (under
// every legacy key name), and finally a configured fallback pair. The
// resolver never fails; callers inspect [Resolution.Err] to learn that
// the fallback was used.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// ErrUnresolved reports that at least one id came from the fallback.
var ErrUnresolved = errors.New("identity unresolved")

// Legacy local store keys, checked in order.
var (
	FamilyKeys = []string{"selectedFamilyId", "currentFamilyId", "familyId"}
	UserKeys   = []string{"userId"}
)

// Source names where a resolved id came from.
type Source string

const (
	SourceExplicit Source = "explicit"
	SourceCache    Source = "cache"
	SourceSession  Source = "session"
	SourceStore    Source = "store"
	SourceFallback Source = "fallback"
)

// Context is a snapshot of the known identity. Values are copied out of
// the resolver; mutating one has no effect on later resolutions.
type Context struct {
	UserID    string    `json:"userId,omitempty"`
	FamilyID  string    `json:"familyId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Recovered bool      `json:"isRecovered"`
	Forced    bool      `json:"isForced"`
}

// Partial is a context update. Empty ids leave the known value alone.
type Partial struct {
	UserID    string
	FamilyID  string
	Recovered bool
}

// Resolution is the outcome of one Resolve call.
type Resolution struct {
	UserID       string `json:"userId"`
	FamilyID     string `json:"familyId"`
	UserSource   Source `json:"userSource"`
	FamilySource Source `json:"familySource"`
}

// Err returns an ErrUnresolved wrap when either id is the fallback.
func (r Resolution) Err() error {
	switch {
	case r.UserSource == SourceFallback && r.FamilySource == SourceFallback:
		return fmt.Errorf("user and family: %w", ErrUnresolved)
	case r.FamilySource == SourceFallback:
		return fmt.Errorf("family: %w", ErrUnresolved)
	case r.UserSource == SourceFallback:
		return fmt.Errorf("user: %w", ErrUnresolved)
	}
	return nil
}

// KV is the local string store used for cross-session recovery.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Store is the injectable context store the dispatcher depends on.
type Store interface {
	Set(ctx context.Context, p Partial) Context
	Force(ctx context.Context, userID, familyID string) Context
	Current() Context
	Resolve(ctx context.Context, explicitUserID, explicitFamilyID string) Resolution
}

// Resolver is the default [Store].
type Resolver struct {
	mu  sync.Mutex
	cur Context

	kv             KV
	fallbackUser   string
	fallbackFamily string
	logger         *slog.Logger
	now            func() time.Time
}

// NewResolver creates a resolver. kv may be nil.
func NewResolver(kv KV, fallbackUser, fallbackFamily string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		kv:             kv,
		fallbackUser:   fallbackUser,
		fallbackFamily: fallbackFamily,
		logger:         logger.With("component", "identity"),
		now:            time.Now,
	}
}

// Set merges p over the known context and persists the ids best-effort.
func (r *Resolver) Set(ctx context.Context, p Partial) Context {
	r.mu.Lock()
	if p.UserID != "" {
		r.cur.UserID = p.UserID
	}
	if p.FamilyID != "" {
		r.cur.FamilyID = p.FamilyID
	}
	if p.Recovered {
		r.cur.Recovered = true
	}
	r.cur.Timestamp = r.now()
	snap := r.cur
	r.mu.Unlock()

	r.persist(ctx, p.UserID, p.FamilyID)
	return snap
}

// Force overwrites both ids unconditionally.
func (r *Resolver) Force(ctx context.Context, userID, familyID string) Context {
	r.mu.Lock()
	r.cur = Context{
		UserID:    userID,
		FamilyID:  familyID,
		Timestamp: r.now(),
		Forced:    true,
	}
	snap := r.cur
	r.mu.Unlock()

	r.persist(ctx, userID, familyID)
	return snap
}

// Forget drops the known context and every persisted id, so the next
// resolution falls through to the session or the fallback pair.
func (r *Resolver) Forget(ctx context.Context) error {
	r.mu.Lock()
	r.cur = Context{}
	r.mu.Unlock()

	if r.kv == nil {
		return nil
	}
	for _, key := range slices.Concat(UserKeys, FamilyKeys) {
		if err := r.kv.Delete(ctx, key); err != nil {
			return fmt.Errorf("forget %s: %w", key, err)
		}
	}
	return nil
}

// Current returns the known context.
func (r *Resolver) Current() Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cur
}

// Resolve returns a best-effort identity pair. Explicit ids are merged
// into the known context; ids recovered from the session or the local
// store are merged with Recovered set. Fallback ids are never cached.
func (r *Resolver) Resolve(ctx context.Context, explicitUserID, explicitFamilyID string) Resolution {
	if explicitUserID != "" || explicitFamilyID != "" {
		r.Set(ctx, Partial{UserID: explicitUserID, FamilyID: explicitFamilyID})
	}
	cur := r.Current()
	sess, hasSession := SessionFrom(ctx)

	var res Resolution
	res.UserID, res.UserSource = r.pick(ctx, explicitUserID, cur.UserID, sess.UserID, hasSession, UserKeys, r.fallbackUser)
	res.FamilyID, res.FamilySource = r.pick(ctx, explicitFamilyID, cur.FamilyID, sess.FamilyID, hasSession, FamilyKeys, r.fallbackFamily)

	recovered := Partial{Recovered: true}
	if res.UserSource == SourceSession || res.UserSource == SourceStore {
		recovered.UserID = res.UserID
	}
	if res.FamilySource == SourceSession || res.FamilySource == SourceStore {
		recovered.FamilyID = res.FamilyID
	}
	if recovered.UserID != "" || recovered.FamilyID != "" {
		r.Set(ctx, recovered)
	}

	if err := res.Err(); err != nil {
		r.logger.Warn("using fallback identity",
			"identity_unresolved", true,
			"user_source", res.UserSource,
			"family_source", res.FamilySource,
			"error", err,
		)
	}
	return res
}

func (r *Resolver) pick(ctx context.Context, explicit, cached, session string, hasSession bool, keys []string, fallback string) (string, Source) {
	switch {
	case explicit != "":
		return explicit, SourceExplicit
	case cached != "":
		return cached, SourceCache
	case hasSession && session != "":
		return session, SourceSession
	}
	if r.kv != nil {
		for _, key := range keys {
			v, err := r.kv.Get(ctx, key)
			if err != nil {
				r.logger.Debug("local store read failed", "key", key, "error", err)
				continue
			}
			if v != "" {
				return v, SourceStore
			}
		}
	}
	return fallback, SourceFallback
}

// persist writes ids under the primary legacy keys. Failures are logged.
func (r *Resolver) persist(ctx context.Context, userID, familyID string) {
	if r.kv == nil {
		return
	}
	if userID != "" {
		if err := r.kv.Set(ctx, UserKeys[0], userID); err != nil {
			r.logger.Warn("failed to persist user id", "error", err)
		}
	}
	if familyID != "" {
		if err := r.kv.Set(ctx, FamilyKeys[0], familyID); err != nil {
			r.logger.Warn("failed to persist family id", "error", err)
		}
	}
}
