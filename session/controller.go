package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jrsteele09/callscreen-client/credentials"
	"github.com/jrsteele09/callscreen-client/gateway"
	"github.com/jrsteele09/callscreen-client/internal/config"
	"github.com/jrsteele09/callscreen-client/internal/logging"
	"github.com/jrsteele09/callscreen-client/tenants"
	"github.com/jrsteele09/callscreen-client/users"
)

const (
	defaultCredentialLifetime = 30 * 24 * time.Hour
	defaultRequestTimeout     = 15 * time.Second
)

// Gateway is the part of the remote API the controller needs.
type Gateway interface {
	Me(ctx context.Context, cred credentials.Credential) (*gateway.Profile, error)
	Refresh(ctx context.Context, cred credentials.Credential) (*gateway.Grant, error)
	Logout(ctx context.Context, cred credentials.Credential) error
}

var _ Gateway = (*gateway.Client)(nil)

// lookupMode selects how a profile lookup result is merged into the state.
type lookupMode int

const (
	lookupRefresh lookupMode = iota
	// lookupAfterOnboarding tolerates a profile that has no tenant yet: the
	// user finished the wizard and provisioning may still be running.
	lookupAfterOnboarding
)

// Controller owns the session state, the credential store and the renewal
// scheduler. All methods are safe for concurrent use.
//
// Every state change is a whole-value replacement committed under one lock and
// is visible to State as soon as the mutating call returns. Each login, logout
// and invalidation starts a new session generation; results of gateway calls
// started under an older generation are discarded.
type Controller struct {
	store           credentials.Store
	gw              Gateway
	logger          zerolog.Logger
	metrics         *Metrics
	renewalInterval time.Duration
	requestTimeout  time.Duration

	mu          sync.Mutex
	state       State
	generation  uint64
	subscribers map[int]chan State
	nextSubID   int
	stopRenewal context.CancelFunc
	closed      bool

	ctx     context.Context // cancelled by Close
	cancel  context.CancelFunc
	pending sync.WaitGroup // one-shot background lookups
	workers sync.WaitGroup // renewal loops
}

// Option configures a Controller.
type Option func(*Controller)

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithRenewalInterval sets how often the credential is renewed while
// authenticated. Zero disables renewal.
func WithRenewalInterval(d time.Duration) Option {
	return func(c *Controller) {
		c.renewalInterval = d
	}
}

// WithRequestTimeout bounds each gateway call made by the controller.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.requestTimeout = d
	}
}

// New creates a controller in the loading phase. Call Init to resolve it.
func New(store credentials.Store, gw Gateway, options ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		store:           store,
		gw:              gw,
		logger:          logging.Component("session"),
		renewalInterval: config.RenewalIntervalFor(defaultCredentialLifetime),
		requestTimeout:  defaultRequestTimeout,
		state:           loadingState(),
		subscribers:     make(map[int]chan State),
		ctx:             ctx,
		cancel:          cancel,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe returns a channel that receives the current state immediately and
// then every committed state. A slow reader only ever sees the latest state.
// The returned func unsubscribes and closes the channel.
func (c *Controller) Subscribe() (<-chan State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan State, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = ch
	ch <- c.state.clone()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subscribers[id]; ok {
			delete(c.subscribers, id)
			close(sub)
		}
	}
}

// Init resolves the loading state at start-up. Without a stored credential the
// session becomes anonymous without any network call; otherwise the identity
// is looked up and failures are classified.
func (c *Controller) Init(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if _, ok := c.store.Get(); !ok {
		c.commitLocked(anonymousState())
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.lookup(ctx, lookupRefresh)
}

// Login stores a freshly issued credential and publishes an interim
// authenticated state built from hint before returning, so the caller's next
// read already observes it. Privilege is never assumed locally; the profile
// lookup started in the background reconciles tenant and privilege.
// It returns whether the user has to be onboarded.
func (c *Controller) Login(cred credentials.Credential, hint users.Identity) (bool, error) {
	if cred.IsZero() || hint.ID == "" {
		return false, ErrInvalidLogin
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, ErrClosed
	}

	c.generation++
	if err := c.store.Set(cred); err != nil {
		c.logger.Warn().Err(err).Msg("credential not persisted, session kept in memory")
	}

	inProgress := c.state.OnboardingInProgress
	next := State{
		Phase:                PhaseAuthenticated,
		Identity:             &hint,
		NeedsOnboarding:      hint.TenantID == "" && !inProgress,
		OnboardingInProgress: inProgress,
	}
	c.commitLocked(next)
	c.logger.Info().Str("user_id", hint.ID).Bool("needs_onboarding", next.NeedsOnboarding).Msg("logged in")

	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		if err := c.lookup(c.ctx, lookupRefresh); err != nil {
			c.logger.Debug().Err(err).Msg("post-login profile lookup failed")
		}
	}()

	return c.state.NeedsOnboarding, nil
}

// Logout ends the session locally and then tells the server. The server call
// is best effort: its failure is logged and otherwise ignored.
func (c *Controller) Logout(ctx context.Context) {
	c.mu.Lock()
	cred, ok := c.store.Get()
	c.generation++
	if err := c.store.Clear(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to clear stored credential")
	}
	c.commitLocked(anonymousState())
	c.mu.Unlock()

	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	if err := c.gw.Logout(ctx, cred); err != nil {
		c.logger.Debug().Err(err).Msg("server logout failed, ignored")
	}
	c.logger.Info().Msg("logged out")
}

// SetTenant records a tenant assigned locally, e.g. after a settings change,
// without waiting for a profile lookup.
func (c *Controller) SetTenant(tenant tenants.Tenant) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Authenticated() {
		return ErrNotAuthenticated
	}

	next := c.state
	identity := *next.Identity
	identity.TenantID = tenant.ID
	next.Identity = &identity
	next.Tenant = tenant.Clone()
	next.NeedsOnboarding = false
	c.commitLocked(next)
	return nil
}

// StartOnboarding marks the onboarding wizard as running. While it runs,
// profile lookups that still report no tenant do not send the user back to the
// wizard's first screen.
func (c *Controller) StartOnboarding() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Authenticated() {
		return ErrNotAuthenticated
	}

	next := c.state
	next.OnboardingInProgress = true
	c.commitLocked(next)
	return nil
}

// FinishOnboarding clears the wizard flag first and then refreshes the profile
// so the tenant comes from the server.
func (c *Controller) FinishOnboarding(ctx context.Context) error {
	c.mu.Lock()
	if !c.state.Authenticated() {
		c.mu.Unlock()
		return ErrNotAuthenticated
	}
	next := c.state
	next.OnboardingInProgress = false
	next.NeedsOnboarding = false
	c.commitLocked(next)
	c.mu.Unlock()

	return c.lookup(ctx, lookupAfterOnboarding)
}

// RefreshUser re-runs the profile lookup for the current credential. It is
// idempotent and safe to call speculatively.
func (c *Controller) RefreshUser(ctx context.Context) error {
	return c.lookup(ctx, lookupRefresh)
}

// Wait blocks until background profile lookups started by Login finish.
func (c *Controller) Wait() {
	c.pending.Wait()
}

// Close stops renewal, cancels background work and closes all subscriptions.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopRenewalLocked()
	for id, ch := range c.subscribers {
		delete(c.subscribers, id)
		close(ch)
	}
	c.mu.Unlock()

	c.cancel()
	c.pending.Wait()
	c.workers.Wait()
}

// lookup fetches the profile and merges or classifies the result.
func (c *Controller) lookup(ctx context.Context, mode lookupMode) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	cred, ok := c.store.Get()
	gen := c.generation
	if !ok {
		if c.state.Phase != PhaseAnonymous {
			c.commitLocked(anonymousState())
		}
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	profile, err := c.gw.Me(reqCtx, cred)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.logger.Debug().Msg("profile lookup superseded, result discarded")
		return err
	}

	switch {
	case err == nil:
		c.metrics.lookup(OutcomeOK)
		c.commitLocked(c.mergeProfileLocked(profile, mode))
		return nil

	case gateway.IsCredentialInvalid(err):
		c.metrics.lookup(OutcomeCredentialInvalid)
		c.invalidateLocked(cred)
		return err

	default:
		// Transient: keep every field, only settle a pending load.
		c.metrics.lookup(OutcomeTransient)
		c.logger.Warn().Err(err).Msg("profile lookup failed, session kept")
		if c.state.Phase == PhaseLoading {
			next := c.state
			next.Phase = PhaseAnonymous
			if next.Identity != nil {
				next.Phase = PhaseAuthenticated
			}
			c.commitLocked(next)
		}
		return err
	}
}

// mergeProfileLocked builds the authoritative state from a profile. Server
// values replace local ones; only the onboarding flag is kept from the
// current state since the server never knows about it.
func (c *Controller) mergeProfileLocked(profile *gateway.Profile, mode lookupMode) State {
	identity := profile.User
	inProgress := c.state.OnboardingInProgress

	needsOnboarding := profile.Tenant == nil && !inProgress
	if mode == lookupAfterOnboarding {
		needsOnboarding = false
	}

	return State{
		Phase:                PhaseAuthenticated,
		Identity:             &identity,
		Tenant:               profile.Tenant.Clone(),
		NeedsOnboarding:      needsOnboarding,
		OnboardingInProgress: inProgress,
		IsPrivileged:         profile.IsAdmin,
	}
}

// invalidateLocked ends the session after the server rejected the credential
// used for a call. Nothing happens if the store no longer holds it, so only one
// of several concurrent rejections clears it and a newer credential is never
// dropped.
func (c *Controller) invalidateLocked(used credentials.Credential) {
	current, ok := c.store.Get()
	if !ok || current.Token != used.Token {
		return
	}

	c.generation++
	if err := c.store.Clear(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to clear rejected credential")
	}
	c.commitLocked(anonymousState())
	c.logger.Info().Msg("credential rejected by server, logged out")
}

// commitLocked replaces the state, keeps the renewal scheduler in step with
// the phase and notifies subscribers.
func (c *Controller) commitLocked(next State) {
	next = next.normalize().clone()
	prev := c.state
	c.state = next

	if prev.Phase != next.Phase {
		c.metrics.transition(next.Phase)
		c.logger.Debug().Str("from", string(prev.Phase)).Str("to", string(next.Phase)).Msg("session phase changed")
	}

	if next.Authenticated() {
		c.startRenewalLocked()
	} else {
		c.stopRenewalLocked()
	}

	for _, ch := range c.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- next.clone()
	}
}
