package session

import (
	"sync"

	"offerpilot/internal/logger"
	"offerpilot/pkg/model"
)

// Manager 进程内的运行会话表
type Manager struct {
	mu       sync.RWMutex
	sessions map[model.RunID]*Session
	log      logger.Logger
}

// NewManager 创建会话管理器
func NewManager(l logger.Logger) *Manager {
	if l == nil {
		l = logger.NewNop()
	}
	return &Manager{
		sessions: make(map[model.RunID]*Session),
		log:      l,
	}
}

// Add 注册会话
func (m *Manager) Add(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.ID] = s
	m.log.Info("创建运行会话", "run", string(s.ID))
}

// Get 获取会话
func (m *Manager) Get(id model.RunID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Delete 销毁会话
func (m *Manager) Delete(id model.RunID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	m.log.Info("移除运行会话", "run", string(id))
}

// List 返回所有会话，包括已结束但未移除的
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	return list
}
