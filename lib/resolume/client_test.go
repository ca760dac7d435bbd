package resolume

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func setupClientTest(t *testing.T) (*Client, *MockResolume) {
	t.Helper()

	mock, err := NewMockResolume()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { mock.Close() })

	client, err := NewClient("127.0.0.1", mock.Port(), 0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { client.Close() })

	mock.SetTarget("127.0.0.1", client.ListenPort())
	return client, mock
}

func waitQueueLen(t *testing.T, client *Client, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if client.QueueLen() >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("QueueLen = %d, want %d", client.QueueLen(), want)
}

func waitReceived(t *testing.T, mock *MockResolume, want int) []Update {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if got := mock.Received(); len(got) >= want {
			return got
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("received %d commands, want %d", len(mock.Received()), want)
	return nil
}

func TestQueueOrder(t *testing.T) {
	client, mock := setupClientTest(t)

	for i := 1; i <= 5; i++ {
		path := fmt.Sprintf("/composition/layers/%d/video/opacity", i)
		if err := mock.SendUpdate(path, float32(i)/10); err != nil {
			t.Fatal(err)
		}
	}
	waitQueueLen(t, client, 5)

	for i := 1; i <= 5; i++ {
		u, ok := client.Pop()
		if !ok {
			t.Fatalf("Pop %d: queue empty", i)
		}
		want := fmt.Sprintf("/composition/layers/%d/video/opacity", i)
		if u.Path != want {
			t.Errorf("Pop %d: path = %q, want %q", i, u.Path, want)
		}
	}
	if _, ok := client.Pop(); ok {
		t.Error("queue should be empty after draining")
	}
}

func TestSendReachesResolume(t *testing.T) {
	client, mock := setupClientTest(t)

	if err := client.ConnectClip(2, 3); err != nil {
		t.Fatal(err)
	}
	got := waitReceived(t, mock, 1)

	if got[0].Path != "/composition/layers/2/clips/3/connect" {
		t.Errorf("path = %q", got[0].Path)
	}
	if len(got[0].Ints) != 1 || got[0].Ints[0] != 1 {
		t.Errorf("args = %v, want [1]", got[0].Ints)
	}
}

func TestQueryAnswered(t *testing.T) {
	client, mock := setupClientTest(t)
	mock.SetClipName(2, 3, "Intro")

	name, err := client.ClipName(2, 3, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if name != "Intro" {
		t.Errorf("name = %q, want %q", name, "Intro")
	}
}

func TestQueryBypassesQueue(t *testing.T) {
	client, mock := setupClientTest(t)
	mock.SetClipName(1, 1, "A")

	if _, err := client.ClipName(1, 1, time.Second); err != nil {
		t.Fatal(err)
	}
	if got := client.QueueLen(); got != 0 {
		t.Errorf("QueueLen = %d, want 0: replies must not reach the queue", got)
	}
}

func TestQueryTimeout(t *testing.T) {
	client, _ := setupClientTest(t)

	// No name configured for the slot, so the mock never replies.
	_, err := client.Query("/composition/layers/1/clips/1/name", 50*time.Millisecond)
	if !errors.Is(err, ErrQueryTimeout) {
		t.Fatalf("err = %v, want ErrQueryTimeout", err)
	}

	client.mu.Lock()
	pending := len(client.pending)
	client.mu.Unlock()
	if pending != 0 {
		t.Errorf("pending = %d, want 0 after timeout", pending)
	}
}

func TestLateReplyQueuedAsUpdate(t *testing.T) {
	client, mock := setupClientTest(t)

	path := "/composition/layers/1/clips/1/name"
	_, err := client.Query(path, 50*time.Millisecond)
	if !errors.Is(err, ErrQueryTimeout) {
		t.Fatalf("err = %v, want ErrQueryTimeout", err)
	}

	// A reply arriving after the timeout is an ordinary update.
	if err := mock.SendUpdate(path, "Late"); err != nil {
		t.Fatal(err)
	}
	waitQueueLen(t, client, 1)

	u, ok := client.Pop()
	if !ok {
		t.Fatal("queue empty")
	}
	if u.Path != path || len(u.Strings) != 1 || u.Strings[0] != "Late" {
		t.Errorf("update = %+v", u)
	}
}

func TestCommandSenders(t *testing.T) {
	client, mock := setupClientTest(t)

	steps := []struct {
		send func() error
		path string
	}{
		{func() error { return client.SelectClip(1, 2) }, "/composition/layers/1/clips/2/select"},
		{func() error { return client.ConnectColumn(4) }, "/composition/columns/4/connect"},
		{func() error { return client.SelectColumn(4) }, "/composition/columns/4/select"},
		{func() error { return client.SelectLayer(3) }, "/composition/layers/3/select"},
		{func() error { return client.SelectDeck(2) }, "/composition/decks/2/select"},
	}
	for _, s := range steps {
		if err := s.send(); err != nil {
			t.Fatal(err)
		}
	}
	got := waitReceived(t, mock, len(steps))

	for i, s := range steps {
		if got[i].Path != s.path {
			t.Errorf("command %d: path = %q, want %q", i, got[i].Path, s.path)
		}
		if len(got[i].Ints) != 1 || got[i].Ints[0] != 1 {
			t.Errorf("command %d: args = %v, want [1]", i, got[i].Ints)
		}
	}
}

func TestSetSelectedLayerOpacity(t *testing.T) {
	client, mock := setupClientTest(t)

	if err := client.SetSelectedLayerOpacity(0.5); err != nil {
		t.Fatal(err)
	}
	got := waitReceived(t, mock, 1)

	if got[0].Path != "/composition/selectedlayer/video/opacity" {
		t.Errorf("path = %q", got[0].Path)
	}
	if len(got[0].Floats) != 1 || got[0].Floats[0] != 0.5 {
		t.Errorf("args = %v, want [0.5]", got[0].Floats)
	}
}
