package token

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	apperrors "github.com/sjoshi/portfolio-api/internal/errors"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// Status is a point-in-time view of the owner token for status endpoints.
type Status struct {
	Authenticated   bool
	Expired         bool
	HasRefreshToken bool
	ExpiresAt       time.Time
	Durable         bool
	ReauthRequired  bool
	Store           string
}

type Option func(*Manager)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// WithStoreName labels the durable store in status output.
func WithStoreName(name string) Option {
	return func(m *Manager) {
		m.storeName = name
	}
}

// Manager owns the owner token: an in-memory cache written through to an
// optional durable Repo, refreshed against the Provider when stale.
//
// A nil repo runs the manager memory-only (durability degraded). Refreshes in
// this process are coalesced; refreshes from other instances sharing the same
// store are not coordinated.
type Manager struct {
	repo      Repo
	provider  Provider
	storeName string
	nowFunc   func() time.Time

	lock     sync.RWMutex
	cached   *OwnerToken
	degraded bool
	// rejectedRefresh is the refresh token the provider last rejected. A stored
	// record still carrying it is not loaded back.
	rejectedRefresh string

	refreshGroup singleflight.Group
}

func NewManager(repo Repo, provider Provider, opts ...Option) *Manager {
	m := &Manager{
		repo:      repo,
		provider:  provider,
		storeName: "database",
		nowFunc:   time.Now,
	}
	if repo == nil {
		m.storeName = "none"
		m.degraded = true
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Bootstrap loads the durable record into memory. The returned error is
// informational: the manager keeps working from memory either way.
func (m *Manager) Bootstrap(ctx context.Context) error {
	if m.repo == nil {
		return fmt.Errorf("no durable token store: %w", apperrors.ErrDurabilityDegraded)
	}

	t, err := m.repo.Load(ctx)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		log.Info().Str("store", m.storeName).Msg("No stored owner token, owner authentication required")
		m.setDegraded(false)
		return nil
	}
	if err != nil {
		m.setDegraded(true)
		return fmt.Errorf("load owner token: %w", apperrors.Join(apperrors.ErrDurabilityDegraded, err))
	}

	m.lock.Lock()
	m.cached = t
	m.degraded = false
	m.lock.Unlock()

	log.Info().Str("store", m.storeName).Time("expires_at", t.ExpiresAt).Msg("Loaded owner token")
	return nil
}

// Exchange trades an authorization code for a token pair and stores it.
func (m *Manager) Exchange(ctx context.Context, code string) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("authorization code required: %w", apperrors.ErrInvalidRequest)
	}

	grant, err := m.provider.Exchange(ctx, code)
	if err != nil {
		return err
	}

	t := m.tokenFromGrant(grant, m.previousRefreshToken())
	m.replace(t)
	m.persist(ctx, t)

	log.Info().Time("expires_at", t.ExpiresAt).Msg("Owner authentication complete")
	return nil
}

// Store accepts a token pair obtained elsewhere. An empty refresh token keeps
// the one already held; expiresIn <= 0 means DefaultExpiresIn.
func (m *Manager) Store(ctx context.Context, accessToken, refreshToken string, expiresIn time.Duration) error {
	if accessToken == "" {
		return fmt.Errorf("access token required: %w", apperrors.ErrInvalidRequest)
	}

	t := m.tokenFromGrant(&Grant{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	}, m.previousRefreshToken())
	m.replace(t)
	m.persist(ctx, t)

	log.Info().Bool("has_refresh_token", t.RefreshToken != "").Msg("Owner token stored")
	return nil
}

// AccessToken returns a currently valid access token:
//  1. a valid cached token, no I/O;
//  2. with an empty cache, the durable record is loaded and re-checked;
//  3. a stale token with a refresh token is refreshed synchronously;
//  4. otherwise ErrNotAuthenticated.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	current := m.snapshot()
	if current == nil {
		loaded, err := m.load(ctx)
		if err != nil {
			log.Err(err).Msg("Owner token load failed")
		}
		current = loaded
	}

	if current == nil {
		return "", apperrors.ErrNotAuthenticated
	}
	if current.IsValid(m.nowFunc()) {
		return current.AccessToken, nil
	}
	if current.RefreshToken == "" {
		return "", fmt.Errorf("stale token has no refresh token: %w", apperrors.ErrNotAuthenticated)
	}
	return m.refresh(ctx, false)
}

// Refresh forces a refresh regardless of the cached expiry, e.g. after the
// Web API rejected the current access token.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	return m.refresh(ctx, true)
}

// Reload replaces the cache with the durable record and clears a pending
// re-authentication requirement. It reports whether a record was found.
func (m *Manager) Reload(ctx context.Context) (bool, error) {
	if m.repo == nil {
		return false, fmt.Errorf("no durable token store: %w", apperrors.ErrDurabilityDegraded)
	}

	t, err := m.repo.Load(ctx)
	if err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
		m.setDegraded(true)
		return false, fmt.Errorf("reload owner token: %w", err)
	}

	m.lock.Lock()
	defer m.lock.Unlock()
	m.cached = t
	m.rejectedRefresh = ""
	m.degraded = false
	return t != nil, nil
}

func (m *Manager) Status() Status {
	m.lock.RLock()
	defer m.lock.RUnlock()

	s := Status{
		Durable:        m.repo != nil && !m.degraded,
		ReauthRequired: m.rejectedRefresh != "",
		Store:          m.storeName,
	}
	if m.cached == nil {
		return s
	}
	s.Authenticated = true
	s.Expired = m.cached.IsExpired(m.nowFunc())
	s.HasRefreshToken = m.cached.RefreshToken != ""
	s.ExpiresAt = m.cached.ExpiresAt
	return s
}

// TokenSource adapts AccessToken to oauth2.TokenSource for HTTP transports.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return ownerTokenSource{ctx: ctx, manager: m}
}

type ownerTokenSource struct {
	ctx     context.Context
	manager *Manager
}

func (s ownerTokenSource) Token() (*oauth2.Token, error) {
	access, err := s.manager.AccessToken(s.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: access, TokenType: "Bearer"}, nil
}

// refresh coalesces concurrent refreshes. The shared refresh runs detached from
// the caller's cancellation so a caller giving up does not abort it. Unless
// forced, a token that became valid in the meantime is returned as is.
func (m *Manager) refresh(ctx context.Context, force bool) (string, error) {
	key := OwnerID
	if force {
		key += ":force"
	}
	detached := context.WithoutCancel(ctx)
	ch := m.refreshGroup.DoChan(key, func() (interface{}, error) {
		return m.doRefresh(detached, force)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (m *Manager) doRefresh(ctx context.Context, force bool) (string, error) {
	current := m.snapshot()
	if current == nil {
		loaded, err := m.load(ctx)
		if err != nil {
			log.Err(err).Msg("Owner token load failed")
		}
		current = loaded
	}
	if !force && current != nil && current.IsValid(m.nowFunc()) {
		return current.AccessToken, nil
	}
	if current == nil || current.RefreshToken == "" {
		return "", fmt.Errorf("no refresh token available: %w", apperrors.ErrNotAuthenticated)
	}

	log.Info().Msg("Refreshing owner token")
	grant, err := m.provider.Refresh(ctx, current.RefreshToken)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrRefreshRejected) {
			m.lock.Lock()
			m.cached = nil
			m.rejectedRefresh = current.RefreshToken
			m.lock.Unlock()
			log.Warn().Err(err).Msg("Refresh token rejected, owner must re-authenticate")
		}
		return "", err
	}

	next := m.tokenFromGrant(grant, current.RefreshToken)
	m.lock.Lock()
	m.cached = next
	m.lock.Unlock()
	m.persist(ctx, next)

	log.Info().Time("expires_at", next.ExpiresAt).Msg("Owner token refreshed")
	return next.AccessToken, nil
}

// load reads the durable record into an empty cache. A record still holding
// the rejected refresh token is ignored; any newer one (e.g. written by another
// instance after the owner re-authenticated there) is adopted.
func (m *Manager) load(ctx context.Context) (*OwnerToken, error) {
	if m.repo == nil {
		return nil, nil
	}

	t, err := m.repo.Load(ctx)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		m.setDegraded(true)
		return nil, err
	}

	m.lock.Lock()
	defer m.lock.Unlock()
	if m.cached == nil {
		if m.rejectedRefresh != "" && t.RefreshToken == m.rejectedRefresh {
			return nil, nil
		}
		m.cached = t
		m.rejectedRefresh = ""
	}
	return m.cached.Clone(), nil
}

func (m *Manager) persist(ctx context.Context, t *OwnerToken) {
	if m.repo == nil {
		log.Warn().Msg("Owner token held in memory only, no durable store")
		return
	}
	if err := m.repo.Upsert(ctx, t.Clone()); err != nil {
		m.setDegraded(true)
		log.Err(err).Str("store", m.storeName).Msg("Owner token not persisted, serving from memory")
		return
	}
	m.setDegraded(false)
}

func (m *Manager) tokenFromGrant(grant *Grant, previousRefresh string) *OwnerToken {
	now := m.nowFunc()
	expiresIn := grant.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = DefaultExpiresIn
	}
	refresh := grant.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}
	return &OwnerToken{
		OwnerID:      OwnerID,
		AccessToken:  grant.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(expiresIn),
		UpdatedAt:    now,
	}
}

func (m *Manager) replace(t *OwnerToken) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.cached = t
	m.rejectedRefresh = ""
}

func (m *Manager) snapshot() *OwnerToken {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if m.cached == nil {
		return nil
	}
	return m.cached.Clone()
}

func (m *Manager) previousRefreshToken() string {
	if t := m.snapshot(); t != nil {
		return t.RefreshToken
	}
	return ""
}

func (m *Manager) setDegraded(degraded bool) {
	m.lock.Lock()
	m.degraded = degraded
	m.lock.Unlock()
}
