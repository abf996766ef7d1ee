package server

import (
	"sync"
	"time"

	"github.com/KaramelBytes/tabloom-cli/internal/workspace"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type session struct {
	id        string
	userID    string
	ws        *workspace.Workspace
	createdAt time.Time

	mu        sync.Mutex
	datasetID string
}

// dataset is the id the session was last saved under, if any.
func (s *session) dataset() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.datasetID
}

func (s *session) setDataset(id string) {
	s.mu.Lock()
	s.datasetID = id
	s.mu.Unlock()
}

// sessions is the in-memory registry of open workspaces.
type sessions struct {
	mu     sync.RWMutex
	byID   map[string]*session
	logger *zap.Logger
}

func newSessions(logger *zap.Logger) *sessions {
	return &sessions{byID: map[string]*session{}, logger: logger}
}

func (s *sessions) create(userID string) *session {
	id := uuid.NewString()
	sess := &session{
		id:        id,
		userID:    userID,
		ws:        workspace.New(s.logger.With(zap.String("session", id))),
		createdAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.byID[id] = sess
	s.mu.Unlock()
	return sess
}

// get returns the session only when it belongs to userID.
func (s *sessions) get(userID, id string) (*session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.byID[id]
	if !ok || sess.userID != userID {
		return nil, false
	}
	return sess, true
}

func (s *sessions) remove(userID, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	if !ok || sess.userID != userID {
		return false
	}
	delete(s.byID, id)
	return true
}

func (s *sessions) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
