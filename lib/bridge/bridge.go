package bridge

import (
	"sync"
	"time"

	"github.com/golang/glog"
	"gitlab.com/gomidi/midi/v2"

	"push2resolume/lib/push2"
	"push2resolume/lib/resolume"
)

// TickInterval is the lighting refresh cadence.
const TickInterval = 50 * time.Millisecond

// popIdleSleep bounds the consumer's polling rate on an empty queue.
const popIdleSleep = 5 * time.Millisecond

// Mode selects what a pad press does: launch the clip or merely select
// it in the mixer UI.
type Mode int

const (
	ModeTriggering Mode = iota
	ModeSelecting
)

// Bridge owns the pipeline between the update stream and the control
// surface: one consumer goroutine applies queued updates to the tracker,
// a periodic tick projects the tracker onto the lights (and display),
// and incoming MIDI is translated to outbound commands.
//
// The mutex serializes the consumer's writes against tick reads and
// input handling; the tracker itself is never touched concurrently.
type Bridge struct {
	client  *resolume.Client
	tracker *resolume.Tracker
	lights  *push2.Lights
	display *push2.Display

	mu           sync.Mutex
	mode         Mode
	layerOffset  int
	columnOffset int

	stop chan struct{}
	wg   sync.WaitGroup
}

func New(client *resolume.Client, tracker *resolume.Tracker, lights *push2.Lights) *Bridge {
	return &Bridge{
		client:  client,
		tracker: tracker,
		lights:  lights,
		stop:    make(chan struct{}),
	}
}

// SetDisplay attaches an optional screen renderer, updated on the same
// tick as the lights.
func (b *Bridge) SetDisplay(d *push2.Display) {
	b.display = d
}

// Start launches the consumer and tick goroutines.
func (b *Bridge) Start() {
	b.lights.Invalidate()

	b.wg.Add(2)
	go b.consume()
	go b.tick()
}

// Stop shuts both goroutines down and waits for them.
func (b *Bridge) Stop() {
	close(b.stop)
	b.wg.Wait()
}

func (b *Bridge) consume() {
	defer b.wg.Done()
	for {
		select {
		case <-b.stop:
			return
		default:
		}

		u, ok := b.client.Pop()
		if !ok {
			time.Sleep(popIdleSleep)
			continue
		}
		b.mu.Lock()
		b.tracker.Apply(u)
		b.mu.Unlock()
	}
}

func (b *Bridge) tick() {
	defer b.wg.Done()
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
		}

		b.mu.Lock()
		b.lights.Update(view{b})
		if b.display != nil {
			if err := b.display.Render(b.mode == ModeSelecting, b.columnLabels()); err != nil {
				glog.V(1).Infof("bridge: display render: %v", err)
			}
		}
		b.mu.Unlock()
	}
}

// columnLabels returns the visible columns' clip names from the selected
// layer, falling back to the first visible layer. Caller holds the lock.
func (b *Bridge) columnLabels() []string {
	layerID := b.tracker.SelectedLayer()
	if layerID == 0 {
		layerID = b.layerOffset + 1
	}
	layer := b.tracker.Layer(layerID)
	if layer == nil {
		return nil
	}

	labels := make([]string, push2.PadCols)
	for i := range labels {
		if c := layer.Clip(b.columnOffset + i + 1); c != nil {
			labels[i] = c.Name
		}
	}
	return labels
}

// Mode returns the current pad-press mode.
func (b *Bridge) Mode() Mode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mode
}

// Offsets returns the grid window position.
func (b *Bridge) Offsets() (layer, column int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.layerOffset, b.columnOffset
}

// Snapshot returns a copy of the tracked state for debug introspection.
func (b *Bridge) Snapshot() resolume.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tracker.Snapshot()
}

// HandleMIDI translates one control surface message into mixer commands.
// Wire it as the gomidi listen callback.
func (b *Bridge) HandleMIDI(msg midi.Message) {
	switch ev := push2.Decode(msg).(type) {
	case push2.PadEvent:
		b.handlePad(ev)
	case push2.ButtonEvent:
		b.handleButton(ev)
	case push2.StripEvent:
		b.handleStrip(ev)
	}
}

func (b *Bridge) handlePad(ev push2.PadEvent) {
	if !ev.Pressed {
		return
	}
	b.mu.Lock()
	layer := ev.Row + 1 + b.layerOffset
	column := ev.Col + 1 + b.columnOffset
	selecting := b.mode == ModeSelecting
	b.mu.Unlock()

	var err error
	if selecting {
		err = b.client.SelectClip(layer, column)
	} else {
		err = b.client.ConnectClip(layer, column)
	}
	if err != nil {
		glog.Warningf("bridge: pad (%d, %d): %v", ev.Row, ev.Col, err)
	}
}

func (b *Bridge) handleButton(ev push2.ButtonEvent) {
	if !ev.Pressed {
		return
	}

	switch {
	case ev.CC == push2.CCMaster:
		b.mu.Lock()
		if b.mode == ModeTriggering {
			b.mode = ModeSelecting
		} else {
			b.mode = ModeTriggering
		}
		b.mu.Unlock()

	case ev.CC >= push2.CCColumnFirst && ev.CC <= push2.CCColumnLast:
		b.mu.Lock()
		column := b.columnOffset + (ev.CC - push2.CCColumnFirst) + 1
		selecting := b.mode == ModeSelecting
		b.mu.Unlock()

		var err error
		if selecting {
			err = b.client.SelectColumn(column)
		} else {
			err = b.client.ConnectColumn(column)
		}
		if err != nil {
			glog.Warningf("bridge: column %d: %v", column, err)
		}

	case ev.CC >= push2.CCLayerFirst && ev.CC <= push2.CCLayerLast:
		b.mu.Lock()
		layer := b.layerOffset + (ev.CC - push2.CCLayerFirst) + 1
		b.mu.Unlock()
		if err := b.client.SelectLayer(layer); err != nil {
			glog.Warningf("bridge: layer %d: %v", layer, err)
		}

	default:
		b.handleNavigation(ev.CC)
	}
}

// handleNavigation moves the 8x8 window within the tracked content and
// switches decks. Offset moves are local; deck moves round-trip through
// the mixer, whose confirmation resets the tracker.
func (b *Bridge) handleNavigation(cc int) {
	b.mu.Lock()
	layers := b.tracker.LayerCount()
	columns := b.tracker.ColumnCount()
	deck := b.tracker.CurrentDeck()

	switch cc {
	case push2.CCOctaveUp:
		if b.layerOffset+push2.PadRows < layers {
			b.layerOffset++
		}
	case push2.CCOctaveDown:
		if b.layerOffset > 0 {
			b.layerOffset--
		}
	case push2.CCPageRight:
		if b.columnOffset+push2.PadCols < columns {
			b.columnOffset++
		}
	case push2.CCPageLeft:
		if b.columnOffset > 0 {
			b.columnOffset--
		}
	}
	b.mu.Unlock()

	switch cc {
	case push2.CCDeckPrev:
		if deck <= 1 {
			return
		}
		if err := b.client.SelectDeck(deck - 1); err != nil {
			glog.Warningf("bridge: deck %d: %v", deck-1, err)
		}
	case push2.CCDeckNext:
		if err := b.client.SelectDeck(deck + 1); err != nil {
			glog.Warningf("bridge: deck %d: %v", deck+1, err)
		}
	}
}

// handleStrip maps the touch strip to selected-layer opacity: the
// bottom and top quarters clamp to 0 and 1, the middle half sweeps
// linearly between them.
func (b *Bridge) handleStrip(ev push2.StripEvent) {
	b.mu.Lock()
	selected := b.tracker.SelectedLayer()
	b.mu.Unlock()
	if selected == 0 {
		return
	}

	var opacity float64
	switch {
	case ev.Position < 0.25:
		opacity = 0
	case ev.Position > 0.75:
		opacity = 1
	default:
		opacity = (ev.Position - 0.25) / 0.5
	}

	if err := b.client.SetSelectedLayerOpacity(float32(opacity)); err != nil {
		glog.Warningf("bridge: opacity: %v", err)
	}
}
