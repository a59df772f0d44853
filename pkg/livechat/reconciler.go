package livechat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	WelcomeText = "Hi there! 👋 How can we help you today?"
	ApologyText = "Sorry, we couldn't get a reply. Please try again."

	welcomeID = "welcome"
)

type ReconcilerConfig struct {
	SessionID string
	API       API

	// Welcome overrides WelcomeText for the seed entry.
	Welcome  string
	Metadata map[string]interface{}
	Logger   *zap.Logger

	// OnChange receives a copy of the transcript after every real change, in
	// revision order. It must not call Send, Rate, Merge or ApplyBotMessage
	// synchronously.
	OnChange func(transcript []Entry)
}

// Reconciler owns the displayed transcript of one conversation view. Local
// entries are tentative and get superseded, never merged field by field, by
// the next authoritative server snapshot.
type Reconciler struct {
	api       API
	sessionID string
	metadata  map[string]interface{}
	logger    *zap.Logger
	onChange  func([]Entry)

	// notifyMu is taken before mu and held through OnChange.
	notifyMu sync.Mutex

	mu       sync.Mutex
	seed     []Entry
	entries  []Entry
	ratings  map[int]Rating
	revision uint64
	pending  int
	closed   bool
}

func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	welcome := cfg.Welcome
	if welcome == "" {
		welcome = WelcomeText
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	seed := []Entry{{ID: welcomeID, Sender: SenderBot, Text: welcome}}
	return &Reconciler{
		api:       cfg.API,
		sessionID: cfg.SessionID,
		metadata:  cfg.Metadata,
		logger:    logger.With(zap.String("module", "livechat.reconciler"), zap.String("session_id", cfg.SessionID)),
		onChange:  cfg.OnChange,
		seed:      seed,
		entries:   append([]Entry(nil), seed...),
		ratings:   make(map[int]Rating),
	}
}

// Transcript returns a copy of the displayed transcript.
func (r *Reconciler) Transcript() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Revision increases by one for every change to the displayed transcript.
func (r *Reconciler) Revision() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revision
}

// Loading reports whether a send is outstanding.
func (r *Reconciler) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending > 0
}

// Close marks the view unmounted; results arriving afterwards are dropped.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

// Send echoes text locally, then delivers it. The user entry is never
// retracted; on failure an apology entry follows it and the error is returned.
func (r *Reconciler) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	closed := false
	r.update(func() []Entry {
		if r.closed {
			closed = true
			return nil
		}
		r.entries = append(r.entries, Entry{ID: localID(), Sender: SenderUser, Text: text})
		r.pending++
		return r.commitLocked()
	})
	if closed {
		return ErrClosed
	}

	resp, err := r.api.SendMessage(ctx, r.sessionID, SendRequest{Text: text, Metadata: r.metadata})

	r.update(func() []Entry {
		r.pending--
		closed = r.closed
		switch {
		case closed:
			return nil
		case err != nil:
			r.entries = append(r.entries, Entry{ID: localID(), Sender: SenderBot, Text: ApologyText})
			return r.commitLocked()
		case resp != nil && !resp.Queued() && resp.Reply != "" && resp.MsgIdx != nil:
			return r.appendBotLocked(BotMessage{Text: resp.Reply, MsgIdx: *resp.MsgIdx})
		}
		return nil
	})
	if err != nil && !closed {
		r.logger.Error("send message failed", zap.Error(err))
	}
	return err
}

// ApplyBotMessage appends an incremental bot message unless the transcript
// already holds the server message at that index.
func (r *Reconciler) ApplyBotMessage(msg BotMessage) {
	r.update(func() []Entry {
		if r.closed {
			return nil
		}
		return r.appendBotLocked(msg)
	})
}

// Merge replaces the displayed transcript with the seed entries followed by
// the server transcript. An empty snapshot or one that displays identically
// to the current transcript leaves it untouched.
func (r *Reconciler) Merge(snapshot []ServerMessage) {
	if len(snapshot) == 0 {
		return
	}

	r.update(func() []Entry {
		if r.closed {
			return nil
		}

		next := make([]Entry, 0, len(r.seed)+len(snapshot))
		next = append(next, r.seed...)
		for i, m := range snapshot {
			next = append(next, r.fromServerLocked(i, m))
		}

		if sameTranscript(r.entries, next) {
			return nil
		}
		r.entries = next
		return r.commitLocked()
	})
}

func (r *Reconciler) fromServerLocked(i int, m ServerMessage) Entry {
	e := Entry{
		ID:     fmt.Sprintf("srv-%d", i),
		Sender: SenderUser,
		Text:   m.Text,
	}
	if m.Role == string(SenderUser) {
		return e
	}

	idx := i
	if m.Seq != nil {
		idx = *m.Seq
	}
	e.Sender = SenderBot
	e.RatingIndex = &idx

	rating := m.Rating
	if rating != nil {
		delete(r.ratings, idx)
	} else if local, ok := r.ratings[idx]; ok {
		rating = &local
	}
	if rating != nil && rating.Valid() {
		v := *rating
		e.Rating = &v
		e.Text = annotate(m.Text, v)
	}
	return e
}

func (r *Reconciler) appendBotLocked(msg BotMessage) []Entry {
	for _, e := range r.entries {
		if e.RatingIndex != nil && *e.RatingIndex == msg.MsgIdx {
			return nil
		}
	}
	idx := msg.MsgIdx
	r.entries = append(r.entries, Entry{
		ID:          fmt.Sprintf("push-%d", idx),
		Sender:      SenderBot,
		Text:        msg.Text,
		RatingIndex: &idx,
	})
	return r.commitLocked()
}

func (r *Reconciler) commitLocked() []Entry {
	r.revision++
	return r.snapshotLocked()
}

func (r *Reconciler) snapshotLocked() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// update runs fn under mu and hands its result to OnChange before any later
// update can commit, so deliveries follow revision order.
func (r *Reconciler) update(fn func() []Entry) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	r.mu.Lock()
	changed := fn()
	r.mu.Unlock()
	r.notify(changed)
}

func (r *Reconciler) notify(transcript []Entry) {
	if transcript == nil || r.onChange == nil {
		return
	}
	r.onChange(transcript)
}

func sameTranscript(a, b []Entry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Sender != b[i].Sender || a[i].Text != b[i].Text {
			return false
		}
	}
	return true
}

func localID() string {
	return "local-" + uuid.NewString()
}
