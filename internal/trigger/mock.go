package trigger

import (
	"fmt"
	"strings"
	"sync"
)

// MockPort is an in-memory Porter for tests. Every command written to it
// is recorded; replies come from the Reply function, which defaults to
// answering "OK" to everything.
type MockPort struct {
	mu       sync.Mutex
	Commands []string
	Reply    func(command string) string
	pending  strings.Builder
	closed   bool
}

func (m *MockPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, fmt.Errorf("port closed")
	}
	command := strings.TrimSpace(string(p))
	m.Commands = append(m.Commands, command)

	reply := "OK"
	if m.Reply != nil {
		reply = m.Reply(command)
	}
	m.pending.WriteString(reply + "\r\n")
	return len(p), nil
}

func (m *MockPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, fmt.Errorf("port closed")
	}
	s := m.pending.String()
	if s == "" {
		return 0, fmt.Errorf("read with no pending reply")
	}
	n := copy(p, s)
	m.pending.Reset()
	m.pending.WriteString(s[n:])
	return n, nil
}

func (m *MockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
