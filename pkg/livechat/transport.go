package livechat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ConnectionState tells which delivery mechanism is feeding the transcript.
type ConnectionState string

const (
	StateConnecting    ConnectionState = "connecting"
	StateConnectedPush ConnectionState = "connected-push"
	StateConnectedPull ConnectionState = "connected-pull"
	StateDisconnected  ConnectionState = "disconnected"
)

// Realtime event names.
const (
	EventJoin     = "join"
	EventBotReply = "bot_reply"
	EventTyping   = "typing"
)

const (
	DefaultPollInterval = 3 * time.Second
	DefaultPollTimeout  = 10 * time.Second
	DefaultDialTimeout  = 5 * time.Second
)

// Event is one server->client message on the realtime channel.
type Event struct {
	Name string
	Data json.RawMessage
}

// RealtimeConn is an open push channel. Events is closed when the connection
// drops, which is the disconnect signal.
type RealtimeConn interface {
	Emit(event string, payload interface{}) error
	Events() <-chan Event
	Close() error
}

// Dialer opens a realtime connection scoped to one session.
type Dialer interface {
	Dial(ctx context.Context, sessionID string) (RealtimeConn, error)
}

// SessionFetcher is the pull-side dependency of the transport.
type SessionFetcher interface {
	FetchSession(ctx context.Context, sessionID string) (*SessionSnapshot, error)
}

// Handlers receive deliveries from a subscription. Handlers must not call the
// unsubscribe function synchronously.
type Handlers struct {
	OnMessages    func(snapshot []ServerMessage)
	OnBotMessage  func(msg BotMessage)
	OnTyping      func()
	OnStateChange func(state ConnectionState)
}

type TransportConfig struct {
	PollInterval time.Duration
	PollTimeout  time.Duration
	DialTimeout  time.Duration
	Logger       *zap.Logger
}

// Transport delivers inbound bot messages over a realtime channel and falls
// back to polling the full session when that channel is unavailable.
type Transport struct {
	dialer  Dialer
	fetcher SessionFetcher
	cfg     TransportConfig
	logger  *zap.Logger
}

// NewTransport builds a transport. A nil dialer means pull only.
func NewTransport(dialer Dialer, fetcher SessionFetcher, cfg TransportConfig) *Transport {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{
		dialer:  dialer,
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logger.With(zap.String("module", "livechat.transport")),
	}
}

// Subscribe starts delivering messages for sessionID. The returned function
// stops delivery: it closes the realtime connection, stops the poll timer and
// guarantees no handler runs after it returns. It is safe to call repeatedly.
func (t *Transport) Subscribe(sessionID string, h Handlers) func() {
	ctx, cancel := context.WithCancel(context.Background())
	s := &subscription{
		transport: t,
		sessionID: sessionID,
		handlers:  h,
		ctx:       ctx,
		cancel:    cancel,
		logger:    t.logger.With(zap.String("session_id", sessionID)),
	}

	s.wg.Add(1)
	go s.run()

	var once sync.Once
	return func() {
		once.Do(s.stop)
	}
}

type subscription struct {
	transport *Transport
	sessionID string
	handlers  Handlers
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu serializes handler deliveries with teardown.
	mu         sync.Mutex
	stopped    bool
	state      ConnectionState
	conn       RealtimeConn
	appliedSeq uint64

	// owned by the run goroutine
	nextSeq uint64
}

func (s *subscription) run() {
	defer s.wg.Done()

	if s.transport.dialer != nil {
		s.push()
	}
	if s.ctx.Err() != nil {
		return
	}
	s.pull()
}

// push runs the realtime channel until it drops or the subscription stops.
func (s *subscription) push() {
	s.setState(StateConnecting)

	conn, err := s.dial()
	if err != nil {
		if s.ctx.Err() == nil {
			s.logger.Warn("realtime connect failed, falling back to polling", zap.Error(err))
		}
		return
	}
	if !s.attach(conn) {
		conn.Close()
		return
	}

	if err := conn.Emit(EventJoin, joinPayload{SessionID: s.sessionID}); err != nil {
		s.logger.Warn("realtime join failed, falling back to polling", zap.Error(err))
		s.detach()
		return
	}
	s.setState(StateConnectedPush)
	s.logger.Debug("realtime channel joined")

	events := conn.Events()
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				if s.ctx.Err() == nil {
					s.logger.Info("realtime channel disconnected, falling back to polling")
				}
				s.detach()
				return
			}
			s.handleEvent(ev)
		}
	}
}

func (s *subscription) dial() (conn RealtimeConn, err error) {
	defer func() {
		if r := recover(); r != nil {
			conn, err = nil, fmt.Errorf("dialer panicked: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(s.ctx, s.transport.cfg.DialTimeout)
	defer cancel()
	return s.transport.dialer.Dial(ctx, s.sessionID)
}

func (s *subscription) handleEvent(ev Event) {
	switch ev.Name {
	case EventBotReply:
		var msg BotMessage
		if err := json.Unmarshal(ev.Data, &msg); err != nil {
			s.logger.Warn("malformed bot_reply event", zap.Error(err))
			return
		}
		s.deliver(func() {
			if s.handlers.OnBotMessage != nil {
				s.handlers.OnBotMessage(msg)
			}
		})
	case EventTyping:
		s.deliver(func() {
			if s.handlers.OnTyping != nil {
				s.handlers.OnTyping()
			}
		})
	default:
		s.logger.Debug("ignoring realtime event", zap.String("event", ev.Name))
	}
}

// pull polls the full session on a fixed interval until the subscription stops.
func (s *subscription) pull() {
	s.setState(StateConnectedPull)

	ticker := time.NewTicker(s.transport.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.nextSeq++
			go s.poll(s.nextSeq)
		}
	}
}

// poll fetches one snapshot. Responses are tagged with seq so a slow response
// never overwrites a newer one that was already applied.
func (s *subscription) poll(seq uint64) {
	ctx, cancel := context.WithTimeout(s.ctx, s.transport.cfg.PollTimeout)
	defer cancel()

	snapshot, err := s.transport.fetcher.FetchSession(ctx, s.sessionID)
	if err != nil {
		if s.ctx.Err() == nil {
			s.logger.Warn("poll failed", zap.Uint64("seq", seq), zap.Error(err))
		}
		return
	}

	s.deliver(func() {
		if seq <= s.appliedSeq {
			s.logger.Debug("discarding stale poll response",
				zap.Uint64("seq", seq), zap.Uint64("applied_seq", s.appliedSeq))
			return
		}
		s.appliedSeq = seq
		if s.handlers.OnMessages != nil {
			s.handlers.OnMessages(snapshot.Messages)
		}
	})
}

func (s *subscription) deliver(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	fn()
}

func (s *subscription) setState(state ConnectionState) {
	s.deliver(func() {
		if s.state == state {
			return
		}
		s.state = state
		if s.handlers.OnStateChange != nil {
			s.handlers.OnStateChange(state)
		}
	})
}

func (s *subscription) attach(conn RealtimeConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.conn = conn
	return true
}

func (s *subscription) detach() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			s.logger.Debug("closing realtime connection", zap.Error(err))
		}
	}
}

func (s *subscription) stop() {
	s.cancel()

	s.mu.Lock()
	s.stopped = true
	s.state = StateDisconnected
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if s.handlers.OnStateChange != nil {
		s.handlers.OnStateChange(StateDisconnected)
	}
	if conn != nil {
		conn.Close()
	}
	s.wg.Wait()
}
