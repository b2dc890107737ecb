package service

import (
	"sync"
	"time"

	"github.com/mash-protocol/mash-sensor/pkg/transport"
)

type sessionEntry struct {
	conn  transport.Session
	since time.Time
}

// sessionTable tracks open controller connections by session ID.
type sessionTable struct {
	mu       sync.RWMutex
	sessions map[string]sessionEntry
}

func newSessionTable() *sessionTable {
	return &sessionTable{sessions: make(map[string]sessionEntry)}
}

// Add registers a connection with the current time.
func (st *sessionTable) Add(conn transport.Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[conn.SessionID()] = sessionEntry{conn: conn, since: time.Now()}
}

// Remove deregisters a session. Safe to call on absent sessions.
func (st *sessionTable) Remove(sessionID string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, sessionID)
}

// Get returns the connection of sessionID.
func (st *sessionTable) Get(sessionID string) (transport.Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	e, ok := st.sessions[sessionID]
	return e.conn, ok
}

// Since returns when sessionID connected.
func (st *sessionTable) Since(sessionID string) (time.Time, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	e, ok := st.sessions[sessionID]
	return e.since, ok
}

// CloseAll closes and removes all tracked connections.
// Returns the number of connections closed.
func (st *sessionTable) CloseAll() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	closed := 0
	for id, e := range st.sessions {
		_ = e.conn.Close()
		delete(st.sessions, id)
		closed++
	}
	return closed
}

// Len returns the number of tracked sessions.
func (st *sessionTable) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
