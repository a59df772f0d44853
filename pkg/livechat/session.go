package livechat

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionStorageKey is the storage key holding the session identifier.
const SessionStorageKey = "chat-session-id"

// Storage is the durable client-side key/value store the session id lives in.
// Get returns ErrNotFound when the key is absent.
type Storage interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// TokenGenerator produces a fresh session token.
type TokenGenerator func() (string, error)

// RandomToken returns a random UUID.
func RandomToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// fallbackToken is used when the configured generator fails: unix millis plus
// random hex.
func fallbackToken() string {
	var buf [6]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), hex.EncodeToString(buf[:]))
}

// SessionProvider hands out one stable session id per storage scope.
type SessionProvider struct {
	mu       sync.Mutex
	storage  Storage
	generate TokenGenerator
	logger   *zap.Logger
	current  string
}

func NewSessionProvider(storage Storage, generate TokenGenerator, logger *zap.Logger) *SessionProvider {
	if generate == nil {
		generate = RandomToken
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionProvider{
		storage:  storage,
		generate: generate,
		logger:   logger,
	}
}

// SessionID returns the persisted session id, creating it on first use. When
// storage is unavailable the id lives only as long as this provider.
func (p *SessionProvider) SessionID() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != "" {
		return p.current
	}

	if p.storage == nil {
		p.current = p.newToken()
		return p.current
	}

	stored, err := p.storage.Get(SessionStorageKey)
	switch {
	case err == nil && stored != "":
		p.current = stored
		return p.current
	case err != nil && !errors.Is(err, ErrNotFound):
		p.logger.Warn("session storage unavailable, using in-memory session id", zap.Error(err))
		p.current = p.newToken()
		return p.current
	}

	p.current = p.newToken()
	if err := p.storage.Set(SessionStorageKey, p.current); err != nil {
		p.logger.Warn("failed to persist session id", zap.Error(err))
	}
	return p.current
}

func (p *SessionProvider) newToken() string {
	token, err := p.generate()
	if err != nil || token == "" {
		p.logger.Debug("token generator failed, using fallback", zap.Error(err))
		return fallbackToken()
	}
	return token
}
