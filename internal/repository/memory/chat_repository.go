package memory

import (
	"context"
	"sync"
	"time"

	"kaleem-livechat/internal/entity"
	"kaleem-livechat/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// DefaultSessionTTL is how long an idle session is kept. Every append resets it.
const DefaultSessionTTL = 24 * time.Hour

type sessionRecord struct {
	session  entity.ChatSession
	messages []entity.ChatMessage
}

// ChatStore keeps sessions and their transcripts in process memory. It backs
// both repository contracts when no database is configured.
type ChatStore struct {
	mu    sync.Mutex
	cache *cache.Cache
	ttl   time.Duration
}

func NewChatStore(ttl time.Duration) *ChatStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &ChatStore{
		cache: cache.New(ttl, 10*time.Minute),
		ttl:   ttl,
	}
}

func (s *ChatStore) Sessions() contract.ChatSessionRepository {
	return &chatSessionRepository{store: s}
}

func (s *ChatStore) Messages() contract.ChatMessageRepository {
	return &chatMessageRepository{store: s}
}

func (s *ChatStore) get(id string) (*sessionRecord, bool) {
	if x, found := s.cache.Get(id); found {
		return x.(*sessionRecord), true
	}
	return nil, false
}

func (s *ChatStore) touch(id string, rec *sessionRecord) {
	s.cache.Set(id, rec, s.ttl)
}

type chatSessionRepository struct {
	store *ChatStore
}

func (r *chatSessionRepository) FindOrCreate(ctx context.Context, session *entity.ChatSession) (*entity.ChatSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if rec, ok := r.store.get(session.Id); ok {
		out := rec.session
		return &out, nil
	}

	rec := &sessionRecord{session: *session}
	if rec.session.CreatedAt.IsZero() {
		rec.session.CreatedAt = time.Now()
	}
	r.store.touch(session.Id, rec)

	out := rec.session
	return &out, nil
}

func (r *chatSessionRepository) FindOne(ctx context.Context, id string) (*entity.ChatSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rec, ok := r.store.get(id)
	if !ok {
		return nil, nil
	}
	out := rec.session
	return &out, nil
}

type chatMessageRepository struct {
	store *ChatStore
}

func (r *chatMessageRepository) Append(ctx context.Context, message *entity.ChatMessage) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rec, ok := r.store.get(message.ChatSessionId)
	if !ok {
		return contract.ErrRecordNotFound
	}

	now := time.Now()
	if message.Id == uuid.Nil {
		message.Id = uuid.New()
	}
	message.Seq = len(rec.messages)
	message.CreatedAt = now

	rec.messages = append(rec.messages, *message)
	rec.session.UpdatedAt = &now
	r.store.touch(message.ChatSessionId, rec)
	return nil
}

func (r *chatMessageRepository) FindBySession(ctx context.Context, sessionId string) ([]*entity.ChatMessage, error) {
	return r.FindRecent(ctx, sessionId, 0)
}

func (r *chatMessageRepository) FindRecent(ctx context.Context, sessionId string, limit int) ([]*entity.ChatMessage, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rec, ok := r.store.get(sessionId)
	if !ok {
		return []*entity.ChatMessage{}, nil
	}

	start := 0
	if limit > 0 && len(rec.messages) > limit {
		start = len(rec.messages) - limit
	}
	out := make([]*entity.ChatMessage, 0, len(rec.messages)-start)
	for i := start; i < len(rec.messages); i++ {
		m := rec.messages[i]
		out = append(out, &m)
	}
	return out, nil
}

func (r *chatMessageRepository) FindBySeq(ctx context.Context, sessionId string, seq int) (*entity.ChatMessage, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rec, ok := r.store.get(sessionId)
	if !ok || seq < 0 || seq >= len(rec.messages) {
		return nil, nil
	}
	m := rec.messages[seq]
	return &m, nil
}

func (r *chatMessageRepository) UpdateRating(ctx context.Context, id uuid.UUID, rating int, feedback string, ratedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, item := range r.store.cache.Items() {
		rec := item.Object.(*sessionRecord)
		for i := range rec.messages {
			if rec.messages[i].Id != id {
				continue
			}
			v := rating
			t := ratedAt
			rec.messages[i].Rating = &v
			rec.messages[i].Feedback = feedback
			rec.messages[i].RatedAt = &t
			rec.messages[i].UpdatedAt = &t
			return nil
		}
	}
	return contract.ErrRecordNotFound
}
