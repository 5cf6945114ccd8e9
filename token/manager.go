// Package token keeps one OAuth credential alive: it restores it from storage,
// refreshes it before expiry, persists every change and revokes it on logout.
package token

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/jrsteele09/go-tokenkeeper/credential"
	"github.com/jrsteele09/go-tokenkeeper/internal/errors"
	"github.com/jrsteele09/go-tokenkeeper/oauthclient"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Store persists string values; *securestore.Codec satisfies it.
type Store interface {
	Store(ctx context.Context, key, value string) error
	Load(ctx context.Context, key string) (value string, ok bool, err error)
	Erase(ctx context.Context, key string) error
}

// OAuthClient performs the network calls the manager depends on.
type OAuthClient interface {
	Refresh(ctx context.Context, refreshToken string, cfg oauthclient.Config, d *oauthclient.Discovery) (*credential.Credential, error)
	Revoke(ctx context.Context, accessToken string, cfg oauthclient.Config, d *oauthclient.Discovery) error
}

type Manager struct {
	id          string
	store       Store
	client      OAuthClient
	storageKey  string
	buffer      time.Duration
	autoRefresh bool
	clock       clockwork.Clock
	log         zerolog.Logger
	onChange    func(*credential.Credential)
	dismiss     func()
	revocations RevocationQueue

	ctx          context.Context
	cancel       context.CancelFunc
	refreshGroup singleflight.Group

	lock sync.Mutex // protects the below fields
	// current is the live credential, nil when logged out.
	current *credential.Credential
	// stale is a credential restored from storage that is past its refresh
	// deadline. It is only used as the source of a refresh.
	stale        *credential.Credential
	needsRefresh bool
	cfg          oauthclient.Config
	discovery    *oauthclient.Discovery
	timer        clockwork.Timer
	timerID      uint64
	deadline     time.Time
	generation   uint64
	closed       bool
}

func New(store Store, client OAuthClient, options ...ManagerOption) *Manager {
	m := &Manager{
		id:          uuid.NewString(),
		store:       store,
		client:      client,
		storageKey:  DefaultStorageKey,
		buffer:      DefaultRefreshBuffer,
		autoRefresh: true,
		clock:       clockwork.NewRealClock(),
		log:         log.Logger,
	}

	for _, opt := range options {
		opt(m)
	}

	if m.revocations == nil {
		m.revocations = NewInMemoryRevocationQueue()
	}
	if m.buffer < 0 {
		m.buffer = 0
	}
	m.log = m.log.With().Str("manager_id", m.id).Logger()
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m
}

// ID identifies this manager in logs.
func (m *Manager) ID() string {
	return m.id
}

// Initialize restores the persisted credential. A fresh credential is adopted
// as is; a stale one is refreshed, or the refresh is deferred until Configure
// when no authorization server is known yet. Load failures leave the manager
// logged out.
func (m *Manager) Initialize(ctx context.Context) {
	m.lock.Lock()
	gen := m.generation
	m.lock.Unlock()

	raw, ok, err := m.store.Load(ctx, m.storageKey)
	switch {
	case errors.Is(err, errors.ErrDecode):
		m.log.Warn().Err(err).Str("key", m.storageKey).Msg("Stored credential is malformed, starting logged out")
		return
	case err != nil:
		m.log.Err(err).Str("key", m.storageKey).Msg("Failed to load stored credential")
		return
	case !ok:
		m.log.Debug().Str("key", m.storageKey).Msg("No stored credential")
		return
	}

	cred, err := credential.Parse(raw)
	if err != nil {
		m.log.Warn().Err(err).Str("key", m.storageKey).Msg("Stored credential is malformed, starting logged out")
		return
	}

	m.lock.Lock()
	if m.closed || gen != m.generation {
		m.lock.Unlock()
		m.log.Debug().Msg("Credential changed while loading, discarding stored value")
		return
	}

	if cred.IsFresh(m.buffer, m.clock.Now()) {
		m.current = cred
		m.scheduleLocked()
		m.lock.Unlock()
		m.log.Info().Msg("Restored stored credential")
		m.notify(cred)
		return
	}

	m.stale = cred
	if m.discovery == nil {
		m.needsRefresh = true
		m.lock.Unlock()
		m.log.Info().Msg("Stored credential is stale, refresh deferred until configured")
		return
	}
	cfg, d := m.cfg, m.discovery
	m.lock.Unlock()

	m.log.Info().Msg("Stored credential is stale, refreshing")
	_, _ = m.refresh(ctx, cred, gen, cfg, d)
}

// Configure supplies the client settings and the authorization server
// endpoints. Work deferred for lack of them (a stale restored credential,
// the refresh schedule, queued revocations) runs now.
func (m *Manager) Configure(cfg oauthclient.Config, d *oauthclient.Discovery) {
	if d == nil {
		return
	}

	m.lock.Lock()
	if m.closed {
		m.lock.Unlock()
		return
	}
	m.cfg = cfg
	m.discovery = d

	var stale *credential.Credential
	if m.needsRefresh {
		stale = m.stale
		m.needsRefresh = false
	}
	if m.timer == nil {
		m.scheduleLocked()
	}
	gen := m.generation
	pending := m.revocations.Drain()
	m.lock.Unlock()

	m.log.Info().Str("issuer", d.Issuer).Msg("OAuth configuration ready")

	for _, accessToken := range pending {
		m.revoke(m.ctx, accessToken, cfg, d)
	}
	if stale != nil {
		_, _ = m.refresh(m.ctx, stale, gen, cfg, d)
	}
}

// Current returns a copy of the live credential, nil when logged out.
func (m *Manager) Current() *credential.Credential {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.current.Clone()
}

// SetCurrent replaces the credential, typically after a login or a logout
// (nil). Invalid credentials are rejected and logged.
func (m *Manager) SetCurrent(ctx context.Context, cred *credential.Credential) {
	if cred != nil {
		if err := cred.Validate(); err != nil {
			m.log.Err(err).Msg("Rejected invalid credential")
			return
		}
	}
	m.commit(ctx, cred.Clone())
}

// Refresh refreshes the current credential now. When the authorization server
// fails the refresh the manager is already logged out by the time the error is
// returned; when ctx ends first the credential is kept.
func (m *Manager) Refresh(ctx context.Context) (*credential.Credential, error) {
	m.lock.Lock()
	if m.closed {
		m.lock.Unlock()
		return nil, errors.ErrClosed
	}
	cred := m.current
	if cred == nil {
		cred = m.stale
	}
	if cred == nil {
		m.lock.Unlock()
		return nil, errors.ErrNoCredential
	}
	if m.discovery == nil {
		m.lock.Unlock()
		return nil, errors.ErrConfigNotReady
	}
	m.cancelTimerLocked()
	m.needsRefresh = false
	gen, cfg, d := m.generation, m.cfg, m.discovery
	m.lock.Unlock()

	return m.refresh(ctx, cred, gen, cfg, d)
}

// ScheduledDeadline returns when the pending refresh is due. ok is false when
// no refresh is scheduled.
func (m *Manager) ScheduledDeadline() (deadline time.Time, ok bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.timer == nil {
		return time.Time{}, false
	}
	return m.deadline, true
}

// RefreshNow runs the scheduled refresh immediately. It does nothing when no
// refresh is scheduled.
func (m *Manager) RefreshNow(ctx context.Context) {
	m.lock.Lock()
	if m.closed || m.timer == nil {
		m.lock.Unlock()
		return
	}
	m.cancelTimerLocked()
	cred, gen, cfg, d := m.current, m.generation, m.cfg, m.discovery
	m.lock.Unlock()

	_, _ = m.refresh(ctx, cred, gen, cfg, d)
}

// Reschedule re-arms the pending refresh for the time remaining until its
// deadline. It does nothing when no refresh is scheduled.
func (m *Manager) Reschedule() {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.closed || m.timer == nil {
		return
	}
	m.cancelTimerLocked()
	m.scheduleLocked()
}

// Close stops the pending refresh. Timers that already fired are ignored.
func (m *Manager) Close() {
	m.lock.Lock()
	m.closed = true
	m.cancelTimerLocked()
	m.lock.Unlock()
	m.cancel()
}

// commit makes next the live credential. Persisting and revoking outlive a
// cancelled ctx.
func (m *Manager) commit(ctx context.Context, next *credential.Credential) {
	ctx = context.WithoutCancel(ctx)
	m.lock.Lock()
	if m.closed {
		m.lock.Unlock()
		return
	}
	c := m.commitLocked(ctx, next)
	m.lock.Unlock()
	m.afterCommit(ctx, c)
}

// committed carries the side effects of a commit that run outside the lock.
type committed struct {
	next      *credential.Credential
	revoke    string
	cfg       oauthclient.Config
	discovery *oauthclient.Discovery
	loggedOut bool
}

// commitLocked persists next, replaces the pending refresh and, on logout,
// queues the previous access token for revocation when no authorization
// server is known yet.
func (m *Manager) commitLocked(ctx context.Context, next *credential.Credential) committed {
	prev := m.current
	m.generation++
	m.current = next
	m.stale = nil
	m.needsRefresh = false

	m.persistLocked(ctx, next)
	m.cancelTimerLocked()
	m.scheduleLocked()

	c := committed{
		next:      next,
		cfg:       m.cfg,
		discovery: m.discovery,
		loggedOut: next == nil && prev != nil,
	}
	if c.loggedOut {
		if m.discovery == nil {
			m.revocations.Add(prev.AccessToken)
			m.log.Info().Msg("Revocation queued until configured")
		} else {
			c.revoke = prev.AccessToken
		}
	}
	return c
}

func (m *Manager) afterCommit(ctx context.Context, c committed) {
	m.notify(c.next)
	if !c.loggedOut {
		return
	}
	m.revoke(ctx, c.revoke, c.cfg, c.discovery)
	if m.dismiss != nil {
		m.dismiss()
	}
}

// refresh exchanges cred's refresh token and commits the outcome, unless the
// credential changed while the request was in flight. A refresh cut short by
// ctx leaves the credential in place and re-arms the schedule.
func (m *Manager) refresh(ctx context.Context, cred *credential.Credential, gen uint64, cfg oauthclient.Config, d *oauthclient.Discovery) (*credential.Credential, error) {
	var (
		next *credential.Credential
		err  error
	)
	if !cred.HasRefreshToken() {
		err = errors.ErrNoRefreshToken
	} else if err = ctx.Err(); err == nil {
		var v interface{}
		v, err, _ = m.refreshGroup.Do(cred.RefreshToken, func() (interface{}, error) {
			return m.client.Refresh(ctx, cred.RefreshToken, cfg, d)
		})
		if err == nil {
			next, _ = v.(*credential.Credential)
			if next == nil {
				err = errors.Wrapf(errors.ErrRefresh, "empty refresh response")
			}
		}
	}
	if err == nil {
		next = next.Clone()
		if next.RefreshToken == "" {
			next.RefreshToken = cred.RefreshToken
		}
	}

	m.lock.Lock()
	if m.closed {
		m.lock.Unlock()
		return nil, errors.ErrClosed
	}
	if gen != m.generation {
		current := m.current.Clone()
		m.lock.Unlock()
		m.log.Debug().Msg("Credential changed during refresh, discarding result")
		return current, nil
	}
	if err != nil && interrupted(ctx, err) {
		if m.timer == nil {
			m.scheduleLocked()
		}
		m.lock.Unlock()
		m.log.Warn().Err(err).Msg("Token refresh interrupted, keeping credential")
		return nil, errors.Wrapf(err, "token refresh interrupted")
	}
	ctx = context.WithoutCancel(ctx)
	c := m.commitLocked(ctx, next)
	m.lock.Unlock()

	if err != nil {
		m.log.Err(err).Msg("Token refresh failed, logging out")
	} else {
		m.log.Info().Msg("Token refreshed")
	}
	m.afterCommit(ctx, c)

	if err != nil {
		return nil, errors.Mark(err, errors.ErrRefresh)
	}
	return next.Clone(), nil
}

// interrupted reports whether a refresh failed because a caller gave up rather
// than because the authorization server rejected it.
func interrupted(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}

func (m *Manager) revoke(ctx context.Context, accessToken string, cfg oauthclient.Config, d *oauthclient.Discovery) {
	if accessToken == "" {
		return
	}
	if err := m.client.Revoke(ctx, accessToken, cfg, d); err != nil {
		m.log.Err(err).Msg("Failed to revoke token")
		return
	}
	m.log.Info().Msg("Revoked access token")
}

func (m *Manager) persistLocked(ctx context.Context, cred *credential.Credential) {
	if cred == nil {
		if err := m.store.Erase(ctx, m.storageKey); err != nil {
			m.log.Err(err).Str("key", m.storageKey).Msg("Failed to erase stored credential")
		}
		return
	}

	value, err := credential.Marshal(cred)
	if err == nil {
		err = m.store.Store(ctx, m.storageKey, value)
	}
	if err != nil {
		m.log.Err(err).Str("key", m.storageKey).Msg("Failed to store credential")
	}
}

// scheduleLocked arms the refresh timer for the current credential. It needs
// an authorization server; Configure calls it again once one is known.
func (m *Manager) scheduleLocked() {
	if m.closed || !m.autoRefresh || m.discovery == nil || !m.current.Expires() {
		return
	}

	now := m.clock.Now()
	deadline, _ := m.current.RefreshAt(m.buffer)
	delay, _ := m.current.RefreshDelay(m.buffer, now)

	m.timerID++
	id, gen := m.timerID, m.generation
	m.deadline = deadline
	m.timer = m.clock.AfterFunc(delay, func() {
		m.onTimer(id, gen)
	})
	m.log.Debug().Time("deadline", deadline).Dur("delay", delay).Msg("Scheduled token refresh")
}

func (m *Manager) cancelTimerLocked() {
	if m.timer == nil {
		return
	}
	m.timer.Stop()
	m.timer = nil
	m.deadline = time.Time{}
}

func (m *Manager) onTimer(id, gen uint64) {
	m.lock.Lock()
	if m.closed || m.timer == nil || id != m.timerID || gen != m.generation {
		m.lock.Unlock()
		return
	}
	m.timer = nil
	m.deadline = time.Time{}
	cred, cfg, d := m.current, m.cfg, m.discovery
	m.lock.Unlock()

	_, _ = m.refresh(m.ctx, cred, gen, cfg, d)
}

func (m *Manager) notify(cred *credential.Credential) {
	if m.onChange != nil {
		m.onChange(cred.Clone())
	}
}
