package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/codejitsu/codejitsu/internal/config"
	"github.com/codejitsu/codejitsu/internal/conversation"
	"github.com/codejitsu/codejitsu/internal/store"
	"github.com/codejitsu/codejitsu/internal/voice"
)

const janitorInterval = time.Minute

// VoiceClientFactory creates a voice transport for a new session. Nil means
// voice is disabled. A factory rather than a shared client: each session
// owns its own call lifecycle.
type VoiceClientFactory func() voice.Client

// Manager owns the per-user session map and reaps idle sessions.
type Manager struct {
	cfg          *config.Config
	generator    Generator
	detector     *conversation.Detector
	repo         store.Repository
	voiceFactory VoiceClientFactory
	logger       *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session

	done chan struct{}
	wg   sync.WaitGroup
}

// NewManager creates a session manager and starts the idle-session janitor.
func NewManager(cfg *config.Config, generator Generator, repo store.Repository, voiceFactory VoiceClientFactory, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		cfg:          cfg,
		generator:    generator,
		detector:     conversation.NewDetector(),
		repo:         repo,
		voiceFactory: voiceFactory,
		logger:       logger,
		sessions:     make(map[string]*Session),
		done:         make(chan struct{}),
	}
	m.wg.Add(1)
	go m.janitor()
	return m
}

// Get returns the user's session, creating it on first use.
func (m *Manager) Get(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[userID]; ok {
		s.Touch()
		return s
	}

	var vm *voice.Manager
	if m.voiceFactory != nil {
		vm = voice.NewManager(m.voiceFactory(), m.cfg.Voice.AssistantID, m.cfg.Voice.SettleDelay, m.logger)
	}
	s := newSession(userID, m.generator, m.detector, vm, m.cfg.ConfirmPauseDelay, m.logger)
	m.sessions[userID] = s
	m.logger.Info("session created", "user_id", userID, "voice", vm != nil)
	return s
}

// Close stops the janitor and releases every live session.
func (m *Manager) Close() {
	close(m.done)
	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	for userID, s := range m.sessions {
		s.Close()
		delete(m.sessions, userID)
	}
}

// janitor reaps sessions idle past the TTL and prunes stale drafts.
func (m *Manager) janitor() {
	defer m.wg.Done()
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.reap()
		}
	}
}

func (m *Manager) reap() {
	ttl := m.cfg.SessionTTL

	m.mu.Lock()
	var expired []*Session
	for userID, s := range m.sessions {
		if s.expired(ttl) {
			expired = append(expired, s)
			delete(m.sessions, userID)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		m.logger.Info("reaping idle session", "user_id", s.userID)
		s.Close()
	}

	if m.repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		// Drafts outlive sessions by a wide margin so students can return
		// days later; prune only truly abandoned ones.
		if n, err := m.repo.CleanupStaleDrafts(ctx, 90*24*time.Hour); err != nil {
			m.logger.Warn("draft cleanup failed", "error", err)
		} else if n > 0 {
			m.logger.Info("pruned stale drafts", "count", n)
		}
		cancel()
	}
}
