package bridge

import (
	"sync"
	"testing"
	"time"

	"gitlab.com/gomidi/midi/v2"

	"push2resolume/lib/push2"
	"push2resolume/lib/resolume"
)

type padWrite struct {
	note  int
	index uint8
}

// fakeCommands records device writes; safe for use from the tick
// goroutine and the test at once.
type fakeCommands struct {
	mu   sync.Mutex
	pads []padWrite
}

func (f *fakeCommands) SetPadIndex(note int, index uint8) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pads = append(f.pads, padWrite{note, index})
	return nil
}

func (f *fakeCommands) SetButtonIndex(cc int, index uint8) error     { return nil }
func (f *fakeCommands) ProgramPalette(index, r, g, b, w uint8) error { return nil }
func (f *fakeCommands) ReapplyPalette() error                        { return nil }
func (f *fakeCommands) ClearPads() error                             { return nil }

func (f *fakeCommands) padIndex(note int) (uint8, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.pads) - 1; i >= 0; i-- {
		if f.pads[i].note == note {
			return f.pads[i].index, true
		}
	}
	return 0, false
}

func setupBridge(t *testing.T) (*Bridge, *resolume.MockResolume, *fakeCommands) {
	t.Helper()

	mock, err := resolume.NewMockResolume()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { mock.Close() })

	client, err := resolume.NewClient("127.0.0.1", mock.Port(), 0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { client.Close() })
	mock.SetTarget("127.0.0.1", client.ListenPort())

	cmd := &fakeCommands{}
	lights := push2.NewLights(cmd, push2.NewPalette(cmd))
	return New(client, resolume.NewTracker(), lights), mock, cmd
}

func waitCommands(t *testing.T, mock *resolume.MockResolume, want int) []resolume.Update {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if got := mock.Received(); len(got) >= want {
			return got
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("mock received %d commands, want %d", len(mock.Received()), want)
	return nil
}

func TestUpdatesReachTheSurface(t *testing.T) {
	b, mock, cmd := setupBridge(t)
	b.Start()
	t.Cleanup(b.Stop)

	if err := mock.SendUpdate("/composition/layers/1/clips/1/name", "Intro"); err != nil {
		t.Fatal(err)
	}

	// The pad for (layer 1, clip 1) lights white once the update flows
	// through the queue, tracker and tick.
	deadline := time.Now().Add(time.Second)
	for {
		if idx, ok := cmd.padIndex(push2.FirstPadNote); ok && idx == push2.PaletteWhite {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("pad never lit after the name update")
		}
		time.Sleep(time.Millisecond)
	}

	if err := mock.SendUpdate("/composition/layers/1/clips/1/connect", int32(1)); err != nil {
		t.Fatal(err)
	}
	// Connected clip turns from white to a column hue.
	deadline = time.Now().Add(time.Second)
	for {
		if idx, ok := cmd.padIndex(push2.FirstPadNote); ok && idx != push2.PaletteWhite && idx != push2.PaletteBlack {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("pad never changed color after connect")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPadPressTriggersAndSelects(t *testing.T) {
	b, mock, _ := setupBridge(t)

	b.HandleMIDI(midi.NoteOn(0, push2.FirstPadNote, 100))
	got := waitCommands(t, mock, 1)
	if got[0].Path != "/composition/layers/1/clips/1/connect" {
		t.Errorf("path = %q", got[0].Path)
	}

	// Master toggles to selecting mode.
	b.HandleMIDI(midi.ControlChange(0, push2.CCMaster, 127))
	if b.Mode() != ModeSelecting {
		t.Fatal("mode did not toggle")
	}
	b.HandleMIDI(midi.NoteOn(0, push2.FirstPadNote+9, 100))
	got = waitCommands(t, mock, 2)
	if got[1].Path != "/composition/layers/2/clips/2/select" {
		t.Errorf("path = %q", got[1].Path)
	}
}

func TestPadReleaseSendsNothing(t *testing.T) {
	b, mock, _ := setupBridge(t)

	b.HandleMIDI(midi.NoteOn(0, push2.FirstPadNote, 0))
	b.HandleMIDI(midi.NoteOff(0, push2.FirstPadNote))
	time.Sleep(20 * time.Millisecond)

	if got := mock.Received(); len(got) != 0 {
		t.Errorf("received %d commands, want 0", len(got))
	}
}

func TestColumnAndLayerButtons(t *testing.T) {
	b, mock, _ := setupBridge(t)

	b.HandleMIDI(midi.ControlChange(0, push2.CCColumnFirst+2, 127))
	b.HandleMIDI(midi.ControlChange(0, push2.CCLayerFirst+1, 127))
	got := waitCommands(t, mock, 2)

	if got[0].Path != "/composition/columns/3/connect" {
		t.Errorf("column path = %q", got[0].Path)
	}
	if got[1].Path != "/composition/layers/2/select" {
		t.Errorf("layer path = %q", got[1].Path)
	}
}

func TestNavigationBounds(t *testing.T) {
	b, _, _ := setupBridge(t)

	// 10 layers and 10 columns of content, window at the origin.
	b.tracker.Apply(resolume.Update{
		Path:    "/composition/layers/10/clips/10/name",
		Strings: []string{"x"},
	})

	b.HandleMIDI(midi.ControlChange(0, push2.CCOctaveDown, 127))
	b.HandleMIDI(midi.ControlChange(0, push2.CCPageLeft, 127))
	if layer, column := b.Offsets(); layer != 0 || column != 0 {
		t.Errorf("offsets = (%d, %d), want (0, 0): moves below zero", layer, column)
	}

	for i := 0; i < 5; i++ {
		b.HandleMIDI(midi.ControlChange(0, push2.CCOctaveUp, 127))
		b.HandleMIDI(midi.ControlChange(0, push2.CCPageRight, 127))
	}
	// Only 2 steps fit: offset+8 must stay below the content size.
	if layer, column := b.Offsets(); layer != 2 || column != 2 {
		t.Errorf("offsets = (%d, %d), want (2, 2)", layer, column)
	}
}

func TestDeckButtons(t *testing.T) {
	b, mock, _ := setupBridge(t)

	// Deck 1 is the floor; previous from it sends nothing.
	b.HandleMIDI(midi.ControlChange(0, push2.CCDeckPrev, 127))
	b.HandleMIDI(midi.ControlChange(0, push2.CCDeckNext, 127))
	got := waitCommands(t, mock, 1)

	if len(got) != 1 {
		t.Fatalf("received %d commands, want 1", len(got))
	}
	if got[0].Path != "/composition/decks/1/select" {
		t.Errorf("path = %q", got[0].Path)
	}
}

func TestTouchStripOpacity(t *testing.T) {
	b, mock, _ := setupBridge(t)

	// No layer selected: strip input is ignored.
	b.HandleMIDI(midi.Pitchbend(0, 0))
	time.Sleep(20 * time.Millisecond)
	if got := mock.Received(); len(got) != 0 {
		t.Fatalf("received %d commands before selection, want 0", len(got))
	}

	b.tracker.Apply(resolume.Update{
		Path: "/composition/layers/1/select",
		Ints: []int32{1},
	})

	b.HandleMIDI(midi.Pitchbend(0, 0)) // center: opacity 0.5
	b.HandleMIDI(midi.Pitchbend(0, -8192))
	b.HandleMIDI(midi.Pitchbend(0, 8191))
	got := waitCommands(t, mock, 3)

	for _, u := range got {
		if u.Path != "/composition/selectedlayer/video/opacity" {
			t.Fatalf("path = %q", u.Path)
		}
	}
	if v := got[0].Floats[0]; v < 0.49 || v > 0.51 {
		t.Errorf("center opacity = %v, want ~0.5", v)
	}
	if got[1].Floats[0] != 0 {
		t.Errorf("bottom opacity = %v, want 0", got[1].Floats[0])
	}
	if got[2].Floats[0] != 1 {
		t.Errorf("top opacity = %v, want 1", got[2].Floats[0])
	}
}
