// Package livechat keeps a chat transcript consistent across a realtime
// channel with a polling fallback, optimistic local echo and server-confirmed
// snapshots.
package livechat

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultRole is sent as the role query parameter of the realtime channel.
const DefaultRole = "customer"

type Options struct {
	// BaseURL of the chat REST API, e.g. http://localhost:3000/api. Used to
	// build the API client and websocket dialer when those are not given.
	BaseURL string
	API     API
	Dialer  Dialer

	// DisableRealtime forces pull-only delivery.
	DisableRealtime bool
	Role            string

	Storage        Storage
	TokenGenerator TokenGenerator

	Welcome  string
	Metadata map[string]interface{}

	PollInterval time.Duration
	PollTimeout  time.Duration
	DialTimeout  time.Duration

	Logger *zap.Logger

	// OnChange receives transcript copies in revision order. It runs on the
	// goroutine that made the change, possibly a delivery goroutine holding the
	// subscription lock, so it must not call Close, Send or Rate synchronously.
	OnChange      func(transcript []Entry)
	OnTyping      func()
	OnStateChange func(state ConnectionState)
}

// Conversation is one mounted chat view: session identity, transcript and
// delivery wired together.
type Conversation struct {
	sessionID  string
	api        API
	reconciler *Reconciler
	transport  *Transport
	logger     *zap.Logger

	onTyping      func()
	onStateChange func(ConnectionState)

	mu          sync.Mutex
	state       ConnectionState
	started     bool
	closed      bool
	unsubscribe func()
}

func NewConversation(opts Options) (*Conversation, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	api := opts.API
	if api == nil {
		if opts.BaseURL == "" {
			return nil, errors.New("livechat: either API or BaseURL is required")
		}
		api = NewHTTPClient(opts.BaseURL, nil)
	}

	role := opts.Role
	if role == "" {
		role = DefaultRole
	}

	dialer := opts.Dialer
	if dialer == nil && !opts.DisableRealtime && opts.BaseURL != "" {
		wsDialer, err := NewWebsocketDialer(opts.BaseURL, role, logger)
		if err != nil {
			return nil, err
		}
		dialer = wsDialer
	}
	if opts.DisableRealtime {
		dialer = nil
	}

	sessionID := NewSessionProvider(opts.Storage, opts.TokenGenerator, logger).SessionID()

	c := &Conversation{
		sessionID:     sessionID,
		api:           api,
		logger:        logger.With(zap.String("module", "livechat"), zap.String("session_id", sessionID)),
		onTyping:      opts.OnTyping,
		onStateChange: opts.OnStateChange,
		state:         StateDisconnected,
	}
	c.reconciler = NewReconciler(ReconcilerConfig{
		SessionID: sessionID,
		API:       api,
		Welcome:   opts.Welcome,
		Metadata:  opts.Metadata,
		Logger:    logger,
		OnChange:  opts.OnChange,
	})
	c.transport = NewTransport(dialer, api, TransportConfig{
		PollInterval: opts.PollInterval,
		PollTimeout:  opts.PollTimeout,
		DialTimeout:  opts.DialTimeout,
		Logger:       logger,
	})
	return c, nil
}

func (c *Conversation) SessionID() string {
	return c.sessionID
}

// Start restores the transcript from the server and begins delivery. A failed
// initial fetch is logged; delivery still starts. Start returns ErrClosed,
// without subscribing, when Close ran before or during the initial fetch.
func (c *Conversation) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.started {
		c.mu.Unlock()
		return ErrStarted
	}
	c.started = true
	c.mu.Unlock()

	snapshot, err := c.api.FetchSession(ctx, c.sessionID)
	if err != nil {
		c.logger.Warn("initial session fetch failed", zap.Error(err))
	} else {
		c.reconciler.Merge(snapshot.Messages)
	}

	// Subscribe returns without delivering, so c.mu can be held across it.
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.unsubscribe = c.transport.Subscribe(c.sessionID, Handlers{
		OnMessages:    c.reconciler.Merge,
		OnBotMessage:  c.reconciler.ApplyBotMessage,
		OnTyping:      c.handleTyping,
		OnStateChange: c.handleState,
	})
	return nil
}

func (c *Conversation) Send(ctx context.Context, text string) error {
	return c.reconciler.Send(ctx, text)
}

func (c *Conversation) Rate(ctx context.Context, ratingIndex int, value Rating) error {
	return c.reconciler.Rate(ctx, ratingIndex, value)
}

func (c *Conversation) Transcript() []Entry {
	return c.reconciler.Transcript()
}

func (c *Conversation) Loading() bool {
	return c.reconciler.Loading()
}

func (c *Conversation) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close stops delivery synchronously and drops late results. It may run
// concurrently with Start.
func (c *Conversation) Close() {
	c.mu.Lock()
	c.closed = true
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	c.reconciler.Close()
}

func (c *Conversation) handleTyping() {
	if c.onTyping != nil {
		c.onTyping()
	}
}

func (c *Conversation) handleState(state ConnectionState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()

	c.logger.Debug("connection state changed", zap.String("state", string(state)))
	if c.onStateChange != nil {
		c.onStateChange(state)
	}
}
