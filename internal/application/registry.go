package application

import (
	"sort"
	"sync"
)

// Registry хранит живые сессии захвата на время их подписок
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*CaptureSession
}

// NewRegistry создает пустой реестр
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*CaptureSession)}
}

// Remove убирает сессию из реестра и возвращает ее, если она была зарегистрирована
func (r *Registry) Remove(id string) (*CaptureSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	return session, ok
}

// Len возвращает число зарегистрированных сессий
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// IDs возвращает отсортированные идентификаторы сессий
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// reserve атомарно проверяет лимит и регистрирует сессию. limit <= 0 - без ограничения.
func (r *Registry) reserve(session *CaptureSession, limit int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit > 0 && len(r.sessions) >= limit {
		return false
	}
	r.sessions[session.ID()] = session
	return true
}

// drain извлекает все сессии
func (r *Registry) drain() []*CaptureSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := make([]*CaptureSession, 0, len(r.sessions))
	for id, session := range r.sessions {
		sessions = append(sessions, session)
		delete(r.sessions, id)
	}
	return sessions
}
