package resolume

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/glog"
)

const rootPrefix = "/composition"

// Update is one decoded OSC message from Resolume.
type Update struct {
	Path    string
	Floats  []float32
	Ints    []int32
	Strings []string
}

func (u Update) firstInt() (int32, bool) {
	if len(u.Ints) == 0 {
		return 0, false
	}
	return u.Ints[0], true
}

func (u Update) String() string {
	parts := []string{u.Path}
	for _, v := range u.Floats {
		parts = append(parts, fmt.Sprintf("%g", v))
	}
	for _, v := range u.Ints {
		parts = append(parts, fmt.Sprintf("%d", v))
	}
	for _, v := range u.Strings {
		parts = append(parts, fmt.Sprintf("%q", v))
	}
	return strings.Join(parts, " ")
}

// Effect holds the parameters of one video effect. Effects are keyed by
// name within their owning layer or clip; the first occurrence wins.
type Effect struct {
	ID    int
	Name  string
	Props Properties
}

func newEffect(id int, name string) *Effect {
	return &Effect{ID: id, Name: name, Props: Properties{}}
}

func (e *Effect) apply(parts []string, u Update) {
	e.Props.SetFromArgs(strings.Join(parts, "/"), u.Floats, u.Ints, u.Strings)
}

// Clip is one slot in a layer. An empty name means the slot is not
// populated on the Resolume side.
type Clip struct {
	ID      int
	Name    string
	Props   Properties
	Effects []*Effect
}

func newClip(id int) *Clip {
	return &Clip{ID: id, Props: Properties{}}
}

func (c *Clip) effect(name string) *Effect {
	for _, e := range c.Effects {
		if e.Name == name {
			return e
		}
	}
	e := newEffect(len(c.Effects)+1, name)
	c.Effects = append(c.Effects, e)
	return e
}

func (c *Clip) apply(parts []string, u Update) {
	if len(parts) == 1 && parts[0] == "name" && len(u.Strings) > 0 {
		c.Name = u.Strings[0]
		return
	}
	if len(parts) >= 3 && parts[0] == "video" && parts[1] == "effects" {
		c.effect(parts[2]).apply(parts[3:], u)
		return
	}
	c.Props.SetFromArgs(strings.Join(parts, "/"), u.Floats, u.Ints, u.Strings)
}

// Playing reports whether the clip's transport position is non-zero.
// A clip paused at a non-zero position reads as playing; Resolume gives
// us no better signal over the update stream.
func (c *Clip) Playing() bool {
	return c.Props.Float("transport/position", 0) != 0
}

// Layer is one horizontal track. Clips grow lazily to the highest index
// referenced, with placeholders backfilled.
type Layer struct {
	ID      int
	Props   Properties
	Clips   []*Clip
	Effects []*Effect
}

func newLayer(id int) *Layer {
	return &Layer{ID: id, Props: Properties{}}
}

func (l *Layer) clip(id int) *Clip {
	if id < 1 {
		return nil
	}
	for len(l.Clips) < id {
		l.Clips = append(l.Clips, newClip(len(l.Clips)+1))
	}
	return l.Clips[id-1]
}

// Clip returns the clip at a 1-based index, or nil if never referenced.
func (l *Layer) Clip(id int) *Clip {
	if id < 1 || id > len(l.Clips) {
		return nil
	}
	return l.Clips[id-1]
}

func (l *Layer) effect(name string) *Effect {
	for _, e := range l.Effects {
		if e.Name == name {
			return e
		}
	}
	e := newEffect(len(l.Effects)+1, name)
	l.Effects = append(l.Effects, e)
	return e
}

func (l *Layer) apply(parts []string, u Update) {
	if len(parts) >= 2 && parts[0] == "clips" {
		id, isIndex, err := parseIndex(parts[1])
		if err != nil {
			glog.Warningf("resolume: bad clip index %q in %s", parts[1], u.Path)
			return
		}
		if isIndex {
			if c := l.clip(id); c != nil {
				c.apply(parts[2:], u)
			}
			return
		}
		// Pseudo-index like "transitiontarget": not a clip slot.
	}
	if len(parts) >= 3 && parts[0] == "video" && parts[1] == "effects" {
		l.effect(parts[2]).apply(parts[3:], u)
		return
	}
	l.Props.SetFromArgs(strings.Join(parts, "/"), u.Floats, u.Ints, u.Strings)
}

// Tracker mirrors the state of the active Resolume deck. It must be
// mutated from a single goroutine; see bridge for the locking scheme.
type Tracker struct {
	layers []*Layer
	props  Properties

	currentDeck       int
	selectedColumn    int
	connectedColumn   int
	selectedLayer     int
	selectedClipLayer int
	selectedClip      int
	connectedClips    []int // per layer, 1-based clip index, 0 for none
}

func NewTracker() *Tracker {
	return &Tracker{props: Properties{}}
}

// parseIndex interprets an address segment as a 1-based entity index.
// Segments that do not start with a digit are not indices (Resolume uses
// pseudo-indices like "transitiontarget"); those fall through to generic
// property storage. A digit-leading segment that still fails to parse is
// an error and the whole message is dropped.
func parseIndex(seg string) (n int, isIndex bool, err error) {
	if seg == "" || seg[0] < '0' || seg[0] > '9' {
		return 0, false, nil
	}
	n, err = strconv.Atoi(seg)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func splitPath(path string) []string {
	var parts []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	return parts
}

func (t *Tracker) layer(id int) *Layer {
	if id < 1 {
		return nil
	}
	for len(t.layers) < id {
		t.layers = append(t.layers, newLayer(len(t.layers)+1))
	}
	t.syncConnectedClips()
	return t.layers[id-1]
}

// Layer returns the layer at a 1-based index, or nil if never referenced.
func (t *Tracker) Layer(id int) *Layer {
	if id < 1 || id > len(t.layers) {
		return nil
	}
	return t.layers[id-1]
}

func (t *Tracker) syncConnectedClips() {
	for len(t.connectedClips) < len(t.layers) {
		t.connectedClips = append(t.connectedClips, 0)
	}
}

// Apply dispatches one update into the tree. Updates outside
// /composition are silently ignored; the wire carries unrelated traffic.
// Malformed addresses are logged and dropped without mutating the tree.
func (t *Tracker) Apply(u Update) {
	if !strings.HasPrefix(u.Path, rootPrefix) {
		return
	}
	parts := splitPath(u.Path)
	if len(parts) == 0 || parts[0] != "composition" {
		return
	}
	parts = parts[1:]
	if len(parts) == 0 {
		// Root composition property; nothing to update.
		return
	}

	// Deck selection resets everything, before any other dispatch.
	if parts[0] == "decks" && len(parts) >= 3 {
		id, isIndex, err := parseIndex(parts[1])
		if err != nil {
			glog.Warningf("resolume: bad deck index %q in %s", parts[1], u.Path)
			return
		}
		if isIndex && parts[2] == "select" {
			if v, ok := u.firstInt(); ok && v == 1 && id != t.currentDeck {
				t.Reset()
				t.currentDeck = id
			}
		}
		return
	}

	last := parts[len(parts)-1]
	isSelect := last == "select"
	isConnect := last == "connect"
	if isSelect || isConnect {
		if v, ok := u.firstInt(); ok && v == 1 {
			if t.applyAction(parts, isConnect) {
				return
			}
		}
	}

	// "selected"/"connected" endpoints are echoes of the action paths.
	if last == "selected" || last == "connected" {
		return
	}

	if parts[0] == "layers" && len(parts) >= 2 {
		id, isIndex, err := parseIndex(parts[1])
		if err != nil {
			glog.Warningf("resolume: bad layer index %q in %s", parts[1], u.Path)
			return
		}
		if isIndex {
			if l := t.layer(id); l != nil {
				l.apply(parts[2:], u)
			}
			return
		}
	}

	// Reference paths duplicate state tracked elsewhere.
	switch parts[0] {
	case "columns", "decks", "selectedlayer", "selectedclip", "selectedcolumn":
		return
	}

	t.props.SetFromArgs(strings.Join(parts, "/"), u.Floats, u.Ints, u.Strings)
}

// applyAction handles terminal select/connect with integer argument 1.
// It reports whether the path addressed a known entity; actions update
// exactly one ephemeral field and are never stored as properties.
func (t *Tracker) applyAction(parts []string, isConnect bool) bool {
	if parts[0] == "columns" && len(parts) == 3 {
		id, isIndex, err := parseIndex(parts[1])
		if err != nil || !isIndex {
			return false
		}
		if isConnect {
			t.connectedColumn = id
			// Connecting a column makes its clip live on every layer.
			for i := range t.connectedClips {
				t.connectedClips[i] = id
			}
		} else {
			t.selectedColumn = id
		}
		return true
	}
	if parts[0] == "layers" && len(parts) >= 3 {
		layerID, isIndex, err := parseIndex(parts[1])
		if err != nil || !isIndex {
			return false
		}
		if len(parts) == 3 && !isConnect {
			t.layer(layerID)
			t.selectedLayer = layerID
			return true
		}
		if len(parts) == 5 && parts[2] == "clips" {
			clipID, isIndex, err := parseIndex(parts[3])
			if err != nil || !isIndex {
				return false
			}
			t.layer(layerID)
			if isConnect {
				t.connectedClips[layerID-1] = clipID
			} else {
				t.selectedClipLayer = layerID
				t.selectedClip = clipID
			}
			return true
		}
	}
	return false
}

// Reset discards every layer, clip, effect and property and zeroes all
// selection state. Called when the remote switches decks.
func (t *Tracker) Reset() {
	t.layers = nil
	t.connectedClips = nil
	t.props = Properties{}
	t.selectedColumn = 0
	t.connectedColumn = 0
	t.selectedLayer = 0
	t.selectedClipLayer = 0
	t.selectedClip = 0
}

func (t *Tracker) LayerCount() int { return len(t.layers) }

// ColumnCount returns the highest clip index with a non-empty name
// across all layers.
func (t *Tracker) ColumnCount() int {
	max := 0
	for _, l := range t.layers {
		for i, c := range l.Clips {
			if c.Name != "" && i+1 > max {
				max = i + 1
			}
		}
	}
	return max
}

// ClipExists reports whether the slot at (column, layer) is populated,
// judged by the clip having a non-empty name.
func (t *Tracker) ClipExists(column, layer int) bool {
	l := t.Layer(layer)
	if l == nil {
		return false
	}
	c := l.Clip(column)
	return c != nil && c.Name != ""
}

// ClipPlaying reports whether the clip's transport position is non-zero.
func (t *Tracker) ClipPlaying(column, layer int) bool {
	l := t.Layer(layer)
	if l == nil {
		return false
	}
	c := l.Clip(column)
	return c != nil && c.Playing()
}

// ClipConnected reports whether (column, layer) is the live clip for
// that layer.
func (t *Tracker) ClipConnected(column, layer int) bool {
	if layer < 1 || layer > len(t.connectedClips) {
		return false
	}
	return t.connectedClips[layer-1] == column
}

// ConnectedClip returns the live clip index for a layer, 0 for none.
func (t *Tracker) ConnectedClip(layer int) int {
	if layer < 1 || layer > len(t.connectedClips) {
		return 0
	}
	return t.connectedClips[layer-1]
}

// LayerExists reports whether the layer has been referenced and holds at
// least one populated clip.
func (t *Tracker) LayerExists(layer int) bool {
	l := t.Layer(layer)
	if l == nil {
		return false
	}
	for _, c := range l.Clips {
		if c.Name != "" {
			return true
		}
	}
	return false
}

func (t *Tracker) SelectedLayer() int   { return t.selectedLayer }
func (t *Tracker) SelectedColumn() int  { return t.selectedColumn }
func (t *Tracker) ConnectedColumn() int { return t.connectedColumn }
func (t *Tracker) CurrentDeck() int     { return t.currentDeck }

func (t *Tracker) SelectedClip() (layer, clip int) {
	return t.selectedClipLayer, t.selectedClip
}

// Props exposes composition-level properties that have no specialized
// field (tempo controller state and the like).
func (t *Tracker) Props() Properties { return t.props }
