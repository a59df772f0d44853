package livechat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

type fakeAPI struct {
	mu sync.Mutex

	sendResp *SendResponse
	sendErr  error
	rateErr  error
	fetchErr error
	messages []ServerMessage

	sent    []SendRequest
	rated   []RateRequest
	fetches int
}

func (f *fakeAPI) SendMessage(_ context.Context, _ string, req SendRequest) (*SendResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	if f.sendResp != nil {
		return f.sendResp, nil
	}
	return &SendResponse{Status: "queued"}, nil
}

func (f *fakeAPI) RateMessage(_ context.Context, _ string, req RateRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rated = append(f.rated, req)
	return f.rateErr
}

func (f *fakeAPI) FetchSession(_ context.Context, sessionID string) (*SessionSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return &SessionSnapshot{SessionID: sessionID, Messages: append([]ServerMessage(nil), f.messages...)}, nil
}

func (f *fakeAPI) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

type fakeConn struct {
	mu      sync.Mutex
	events  chan Event
	emitted []string
	closed  bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{events: make(chan Event, 8)}
}

func (c *fakeConn) Emit(event string, _ interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emitted = append(c.emitted, event)
	return nil
}

func (c *fakeConn) Events() <-chan Event {
	return c.events
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) emittedEvents() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.emitted...)
}

func (c *fakeConn) push(name string, payload interface{}) {
	data, _ := json.Marshal(payload)
	c.events <- Event{Name: name, Data: data}
}

type fakeDialer struct {
	conn  *fakeConn
	err   error
	panic bool
}

func (d *fakeDialer) Dial(_ context.Context, _ string) (RealtimeConn, error) {
	if d.panic {
		panic("socket constructor exploded")
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

type stateRecorder struct {
	mu     sync.Mutex
	states []ConnectionState
}

func (r *stateRecorder) record(s ConnectionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *stateRecorder) all() []ConnectionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ConnectionState(nil), r.states...)
}

func (r *stateRecorder) last() ConnectionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return ""
	}
	return r.states[len(r.states)-1]
}

type failingStorage struct{}

func (failingStorage) Get(string) (string, error) { return "", errors.New("storage disabled") }
func (failingStorage) Set(string, string) error   { return errors.New("storage disabled") }

func intPtr(v int) *int { return &v }
