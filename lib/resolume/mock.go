package resolume

import (
	"fmt"
	"net"
	"sync"

	"github.com/hypebeast/go-osc/osc"
)

// MockResolume stands in for the real application in tests: it answers
// "?" probes from a configured clip-name table, records every command it
// receives and can push arbitrary updates at the client under test.
type MockResolume struct {
	conn net.PacketConn

	mu       sync.Mutex
	names    map[string]string
	received []Update
	target   *osc.Client
}

func NewMockResolume() (*MockResolume, error) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	m := &MockResolume{
		conn:  conn,
		names: make(map[string]string),
	}

	d := osc.NewStandardDispatcher()
	if err := d.AddMsgHandler("*", m.handleMessage); err != nil {
		conn.Close()
		return nil, err
	}
	srv := &osc.Server{Dispatcher: d}
	go srv.Serve(conn)
	return m, nil
}

func (m *MockResolume) Port() int {
	return m.conn.LocalAddr().(*net.UDPAddr).Port
}

func (m *MockResolume) Close() error {
	return m.conn.Close()
}

// SetTarget points the mock's OSC output at the client under test, the
// way Resolume's output host/port would be configured.
func (m *MockResolume) SetTarget(host string, port int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.target = osc.NewClient(host, port)
}

// SetClipName registers a populated clip slot for name probes.
func (m *MockResolume) SetClipName(layer, clip int, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path := fmt.Sprintf("/composition/layers/%d/clips/%d/name", layer, clip)
	m.names[path] = name
}

// SendUpdate pushes one update at the configured target.
func (m *MockResolume) SendUpdate(path string, args ...any) error {
	m.mu.Lock()
	target := m.target
	m.mu.Unlock()
	if target == nil {
		return fmt.Errorf("mock resolume: no target configured")
	}
	msg := osc.NewMessage(path)
	for _, arg := range args {
		msg.Append(arg)
	}
	return target.Send(msg)
}

// Received returns a copy of every command seen so far, in arrival order.
func (m *MockResolume) Received() []Update {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Update, len(m.received))
	copy(out, m.received)
	return out
}

func (m *MockResolume) handleMessage(msg *osc.Message) {
	u := decodeMessage(msg)

	m.mu.Lock()
	m.received = append(m.received, u)
	name, isProbe := "", false
	if len(u.Strings) == 1 && u.Strings[0] == "?" {
		name, isProbe = m.names[u.Path], true
		if name == "" {
			isProbe = false // unpopulated slot: no reply, let the probe time out
		}
	}
	target := m.target
	m.mu.Unlock()

	if isProbe && target != nil {
		reply := osc.NewMessage(u.Path)
		reply.Append(name)
		target.Send(reply)
	}
}
