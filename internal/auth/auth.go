// package auth turns a QR login ticket into an authenticated session
//
// A [Session] owns the identity, the current ticket and the single poll loop.
// Each call to [Session.StartLogin] starts a new generation; anything a
// superseded loop observes is discarded.
package auth

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/desertthunder/cloudmatch/internal/metrics"
	"github.com/desertthunder/cloudmatch/internal/models"
	"github.com/desertthunder/cloudmatch/internal/services"
	"github.com/desertthunder/cloudmatch/internal/shared"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultTicketTTL    = 5 * time.Minute
	defaultQRSize       = 256
	updateBuffer        = 16
)

// LoginHook runs after an identity is established, before the attempt resolves.
type LoginHook func(ctx context.Context, id models.Identity) error

type Options struct {
	PollInterval time.Duration
	TicketTTL    time.Duration
	QRSize       int // PNG edge in pixels
	Metrics      metrics.Recorder
	Logger       *log.Logger
}

// Result is delivered once per [Attempt].
type Result struct {
	Identity *models.Identity
	Err      error
}

// Attempt is one QR login handshake.
type Attempt struct {
	generation uint64
	ticket     models.LoginTicket
	updates    chan models.LoginTicket
	result     chan Result
	once       sync.Once
}

// Ticket returns the ticket as it was when the attempt started.
func (a *Attempt) Ticket() models.LoginTicket { return a.ticket }

// Updates streams ticket snapshots as the provider reports progress.
//
// Sends never block; a slow reader misses intermediate states but
// [Session.Ticket] always has the latest.
func (a *Attempt) Updates() <-chan models.LoginTicket { return a.updates }

// Result yields exactly one value when the attempt ends.
func (a *Attempt) Result() <-chan Result { return a.result }

// Wait blocks until the attempt resolves or ctx ends.
func (a *Attempt) Wait(ctx context.Context) (*models.Identity, error) {
	select {
	case r := <-a.result:
		return r.Identity, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *Attempt) finish(r Result) {
	a.once.Do(func() { a.result <- r })
}

func (a *Attempt) publish(t models.LoginTicket) {
	select {
	case a.updates <- t:
	default:
	}
}

// Session is safe for concurrent use.
type Session struct {
	svc     services.LoginService
	opts    Options
	logger  *log.Logger
	metrics metrics.Recorder
	now     func() time.Time

	mu         sync.Mutex
	generation uint64
	pending    uint64 // generation whose credentials are applied but not yet established
	cancel     context.CancelFunc
	attempt    *Attempt
	ticket     *models.LoginTicket
	identity   *models.Identity
	hooks      []LoginHook
}

func NewSession(svc services.LoginService, opts Options) *Session {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.TicketTTL <= 0 {
		opts.TicketTTL = DefaultTicketTTL
	}
	if opts.QRSize <= 0 {
		opts.QRSize = defaultQRSize
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Noop()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}

	return &Session{
		svc:     svc,
		opts:    opts,
		logger:  shared.WithLogger(opts.Logger, "component", "auth"),
		metrics: opts.Metrics,
		now:     time.Now,
	}
}

// OnLogin registers hook to run after every successful login.
func (s *Session) OnLogin(hook LoginHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// StartLogin requests a QR ticket and starts polling it.
//
// Any previous attempt is cancelled and resolves with [shared.ErrLoginSuperseded].
// The poll loop lives as long as ctx, a later StartLogin, or [Session.Logout].
func (s *Session) StartLogin(ctx context.Context) (*Attempt, error) {
	s.mu.Lock()
	gen := s.supersede(shared.ErrLoginSuperseded)
	s.ticket = nil
	s.mu.Unlock()

	key, err := s.svc.CreateLoginKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create login key: %w", err)
	}
	url, err := s.svc.QRLoginURL(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create login QR code: %w", err)
	}
	png, err := qrcode.Encode(url, qrcode.Medium, s.opts.QRSize)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot encode QR payload: %v", shared.ErrInvalidInput, err)
	}

	created := s.now()
	ticket := models.LoginTicket{
		Key:       key,
		URL:       url,
		QRCode:    png,
		CreatedAt: created,
		ExpiresAt: created.Add(s.opts.TicketTTL),
		State:     models.TicketPending,
	}
	a := &Attempt{
		generation: gen,
		ticket:     ticket,
		updates:    make(chan models.LoginTicket, updateBuffer),
		result:     make(chan Result, 1),
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil, shared.ErrLoginSuperseded
	}
	pollCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.attempt = a
	s.ticket = &ticket
	s.mu.Unlock()

	s.logger.Info("login ticket created", "key", key, "expires", ticket.ExpiresAt.Format(shared.TimestampLayout))
	a.publish(ticket)

	go func() {
		defer cancel()
		s.poll(pollCtx, a)
	}()
	return a, nil
}

// LoginWithCookie establishes a session from existing provider credentials.
func (s *Session) LoginWithCookie(ctx context.Context, cookie string) (*models.Identity, error) {
	if cookie == "" {
		return nil, fmt.Errorf("%w: cookie", shared.ErrMissingArgument)
	}

	s.mu.Lock()
	gen := s.supersede(shared.ErrLoginSuperseded)
	s.ticket = nil
	if err := s.svc.Authenticate(ctx, map[string]string{"cookie": cookie}); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.pending = gen
	s.mu.Unlock()

	return s.establish(ctx, gen)
}

// Logout stops any poll loop and forgets identity, ticket and provider credentials.
//
// Calling it without a session is a no-op.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.supersede(fmt.Errorf("%w: logged out", shared.ErrNotAuthenticated))
	had := s.identity != nil
	s.identity = nil
	s.ticket = nil
	s.mu.Unlock()

	if err := s.svc.Logout(ctx); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}
	if had {
		s.logger.Info("logged out")
	}
	return nil
}

// Identity returns a copy of the current identity, or nil before login.
func (s *Session) Identity() *models.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// Ticket returns a copy of the latest ticket, or nil when no login is in progress.
func (s *Session) Ticket() *models.LoginTicket {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticket == nil {
		return nil
	}
	t := *s.ticket
	return &t
}

func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity != nil
}

// RecordUsage refreshes the storage figures of the current identity.
func (s *Session) RecordUsage(u models.Usage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity != nil {
		s.identity.Usage = u
	}
}

// supersede starts a new generation, cancelling the running loop and
// resolving its attempt with reason. Credentials applied by a login that
// has not been established yet are dropped. Callers hold s.mu.
func (s *Session) supersede(reason error) uint64 {
	s.generation++
	if s.pending != 0 {
		s.svc.ClearCredentials()
		s.pending = 0
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.attempt != nil {
		s.attempt.finish(Result{Err: reason})
		s.attempt = nil
	}
	return s.generation
}

func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.generation
}

func (s *Session) poll(ctx context.Context, a *Attempt) {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.finish(Result{Err: ctx.Err()})
			return
		case <-ticker.C:
		}

		if a.ticket.Expired(s.now()) {
			s.expire(a)
			return
		}

		check, err := s.svc.CheckLogin(ctx, a.ticket.Key)
		if !s.current(a.generation) {
			s.logger.Debug("discarding poll result from superseded login", "key", a.ticket.Key)
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			s.metrics.IncLoginPolls("error")
			s.logger.Warn("login poll failed", "key", a.ticket.Key, "error", err)
			continue
		}
		s.metrics.IncLoginPolls(check.State.String())

		switch check.State {
		case models.TicketPending, models.TicketScanned:
			s.advance(a, check.State)
		case models.TicketExpired:
			s.expire(a)
			return
		case models.TicketConfirmed:
			s.confirm(ctx, a, check.Cookie)
			return
		}
	}
}

// transition moves the session ticket to next when a is still current and
// the step is legal. Callers hold s.mu.
func (s *Session) transition(a *Attempt, next models.TicketState) (models.LoginTicket, bool) {
	if a.generation != s.generation || s.ticket == nil {
		return models.LoginTicket{}, false
	}
	if s.ticket.State == next || !s.ticket.State.CanTransition(next) {
		return models.LoginTicket{}, false
	}
	s.ticket.State = next
	return *s.ticket, true
}

func (s *Session) advance(a *Attempt, next models.TicketState) {
	s.mu.Lock()
	t, ok := s.transition(a, next)
	s.mu.Unlock()

	if ok {
		s.logger.Debug("login ticket advanced", "key", t.Key, "state", t.State)
		a.publish(t)
	}
}

func (s *Session) expire(a *Attempt) {
	s.mu.Lock()
	t, ok := s.transition(a, models.TicketExpired)
	if ok {
		s.cancel = nil
		s.attempt = nil
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	s.logger.Info("login ticket expired", "key", t.Key)
	a.publish(t)
	a.finish(Result{Err: shared.ErrTicketExpired})
}

func (s *Session) confirm(ctx context.Context, a *Attempt, cookie string) {
	s.mu.Lock()
	if a.generation != s.generation {
		s.mu.Unlock()
		return
	}
	// Credentials are applied under the lock so a newer generation cannot
	// interleave its own between the check and the write.
	if err := s.svc.Authenticate(ctx, map[string]string{"cookie": cookie}); err != nil {
		s.mu.Unlock()
		a.finish(Result{Err: fmt.Errorf("failed to apply credentials: %w", err)})
		return
	}
	s.pending = a.generation
	t, ok := s.transition(a, models.TicketConfirmed)
	s.cancel = nil
	s.attempt = nil
	s.mu.Unlock()

	if ok {
		a.publish(t)
	}

	id, err := s.establish(ctx, a.generation)
	a.finish(Result{Identity: id, Err: err})
}

// establish loads the account for gen and runs login hooks.
func (s *Session) establish(ctx context.Context, gen uint64) (*models.Identity, error) {
	id, err := s.svc.Account(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil, shared.ErrLoginSuperseded
	}
	stored := *id
	s.identity = &stored
	s.pending = 0
	hooks := append([]LoginHook(nil), s.hooks...)
	s.mu.Unlock()

	s.logger.Info("logged in", "user", id.UserID, "nickname", id.Nickname)

	for _, hook := range hooks {
		if !s.current(gen) {
			s.logger.Debug("skipping login hooks for superseded login", "user", id.UserID)
			break
		}
		if err := hook(ctx, *id); err != nil {
			s.logger.Warn("login hook failed", "error", err)
		}
	}
	return id, nil
}

// RenderTerminalQR renders content as a QR code drawn with half-block characters.
func RenderTerminalQR(content string) (string, error) {
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("%w: cannot encode QR payload: %v", shared.ErrInvalidInput, err)
	}
	return q.ToSmallString(false), nil
}
