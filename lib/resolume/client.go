package resolume

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/hypebeast/go-osc/osc"
)

const (
	// DefaultPort is Resolume's default OSC input port. The output port
	// is configured to the same value in a stock setup.
	DefaultPort = 7000

	// DefaultQueryTimeout bounds the wait for an actively probed value.
	DefaultQueryTimeout = 15 * time.Millisecond
)

// ErrQueryTimeout is returned by Query when no matching reply arrived in
// time. Distinguishable from a reply that happens to carry no payload.
var ErrQueryTimeout = errors.New("query timeout")

// Client receives the Resolume update stream and sends commands back.
//
// Incoming messages either complete a pending Query (diverted to the
// waiter) or are appended to an unbounded FIFO drained by a single
// consumer. The producer never blocks; dropping updates would corrupt
// tree consistency.
type Client struct {
	out  *osc.Client
	conn net.PacketConn

	mu      sync.Mutex
	queue   []Update
	pending map[string]chan Update
}

// NewClient listens for updates on listenPort (0 picks a free port) and
// sends commands to host:port.
func NewClient(host string, port, listenPort int) (*Client, error) {
	conn, err := net.ListenPacket("udp", fmt.Sprintf(":%d", listenPort))
	if err != nil {
		return nil, fmt.Errorf("resolume: listen: %w", err)
	}
	c := &Client{
		out:     osc.NewClient(host, port),
		conn:    conn,
		pending: make(map[string]chan Update),
	}

	d := osc.NewStandardDispatcher()
	if err := d.AddMsgHandler("*", c.handleMessage); err != nil {
		conn.Close()
		return nil, fmt.Errorf("resolume: dispatcher: %w", err)
	}
	srv := &osc.Server{Dispatcher: d}
	go func() {
		if err := srv.Serve(conn); err != nil {
			glog.V(1).Infof("resolume: receive loop ended: %v", err)
		}
	}()
	return c, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// ListenPort returns the local UDP port updates arrive on. Resolume's
// OSC output must be pointed at it.
func (c *Client) ListenPort() int {
	return c.conn.LocalAddr().(*net.UDPAddr).Port
}

func decodeMessage(msg *osc.Message) Update {
	u := Update{Path: msg.Address}
	for _, arg := range msg.Arguments {
		switch v := arg.(type) {
		case float32:
			u.Floats = append(u.Floats, v)
		case float64:
			u.Floats = append(u.Floats, float32(v))
		case int32:
			u.Ints = append(u.Ints, v)
		case int64:
			u.Ints = append(u.Ints, int32(v))
		case bool:
			if v {
				u.Ints = append(u.Ints, 1)
			} else {
				u.Ints = append(u.Ints, 0)
			}
		case string:
			u.Strings = append(u.Strings, v)
		}
	}
	return u
}

func (c *Client) handleMessage(msg *osc.Message) {
	u := decodeMessage(msg)

	c.mu.Lock()
	ch, waiting := c.pending[u.Path]
	if waiting {
		delete(c.pending, u.Path)
	} else {
		c.queue = append(c.queue, u)
	}
	c.mu.Unlock()

	if waiting {
		ch <- u
	}
}

// Pop removes the oldest queued update. The consumer sleeps briefly when
// ok is false rather than spinning.
func (c *Client) Pop() (Update, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return Update{}, false
	}
	u := c.queue[0]
	c.queue = c.queue[1:]
	return u, true
}

// QueueLen returns the number of updates awaiting the consumer.
func (c *Client) QueueLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Send transmits one outbound OSC message.
func (c *Client) Send(path string, args ...any) error {
	msg := osc.NewMessage(path)
	for _, arg := range args {
		msg.Append(arg)
	}
	if err := c.out.Send(msg); err != nil {
		return fmt.Errorf("resolume: send %s: %w", path, err)
	}
	return nil
}

// Query probes path with a "?" payload and blocks until the matching
// reply arrives or the timeout elapses. At most one outstanding query
// per path is supported; a second query for the same path overwrites the
// first's slot, and the first waiter may then observe the second's
// answer. Accepted race. A non-positive timeout uses
// DefaultQueryTimeout.
func (c *Client) Query(path string, timeout time.Duration) (Update, error) {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	ch := make(chan Update, 1)
	c.mu.Lock()
	c.pending[path] = ch
	c.mu.Unlock()

	if err := c.Send(path, "?"); err != nil {
		c.mu.Lock()
		delete(c.pending, path)
		c.mu.Unlock()
		return Update{}, err
	}

	select {
	case u := <-ch:
		return u, nil
	case <-time.After(timeout):
		c.mu.Lock()
		delete(c.pending, path)
		c.mu.Unlock()
		return Update{}, fmt.Errorf("resolume: %s: %w", path, ErrQueryTimeout)
	}
}

// ClipName actively probes a clip's name. An empty result means the slot
// is not populated.
func (c *Client) ClipName(layer, clip int, timeout time.Duration) (string, error) {
	path := fmt.Sprintf("/composition/layers/%d/clips/%d/name", layer, clip)
	u, err := c.Query(path, timeout)
	if err != nil {
		return "", err
	}
	if len(u.Strings) == 0 {
		return "", nil
	}
	return u.Strings[0], nil
}

func (c *Client) ConnectClip(layer, clip int) error {
	return c.Send(fmt.Sprintf("/composition/layers/%d/clips/%d/connect", layer, clip), int32(1))
}

func (c *Client) SelectClip(layer, clip int) error {
	return c.Send(fmt.Sprintf("/composition/layers/%d/clips/%d/select", layer, clip), int32(1))
}

func (c *Client) ConnectColumn(column int) error {
	return c.Send(fmt.Sprintf("/composition/columns/%d/connect", column), int32(1))
}

func (c *Client) SelectColumn(column int) error {
	return c.Send(fmt.Sprintf("/composition/columns/%d/select", column), int32(1))
}

func (c *Client) SelectLayer(layer int) error {
	return c.Send(fmt.Sprintf("/composition/layers/%d/select", layer), int32(1))
}

func (c *Client) SelectDeck(deck int) error {
	return c.Send(fmt.Sprintf("/composition/decks/%d/select", deck), int32(1))
}

// SetSelectedLayerOpacity drives the opacity of whichever layer is
// selected in Resolume.
func (c *Client) SetSelectedLayerOpacity(opacity float32) error {
	return c.Send("/composition/selectedlayer/video/opacity", opacity)
}
