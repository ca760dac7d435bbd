package push2

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
)

type Event interface {
	String() string
}

// PadEvent is a press or release on the 8x8 grid. Row 0 is the bottom
// row, column 0 the leftmost.
type PadEvent struct {
	Row     int
	Col     int
	Pressed bool
}

func (e PadEvent) String() string {
	action := "released"
	if e.Pressed {
		action = "pressed"
	}
	return fmt.Sprintf("Pad (%d, %d) %s", e.Row, e.Col, action)
}

type ButtonEvent struct {
	CC      int
	Pressed bool
}

func (e ButtonEvent) String() string {
	action := "released"
	if e.Pressed {
		action = "pressed"
	}
	return fmt.Sprintf("Button cc%d %s", e.CC, action)
}

// StripEvent is a touch strip position, 0 at the bottom to 1 at the top.
type StripEvent struct {
	Position float64
}

func (e StripEvent) String() string {
	return fmt.Sprintf("Strip = %.3f", e.Position)
}

// Decode turns one incoming MIDI message into an Event, or nil for
// messages the surface does not produce (aftertouch and the like).
func Decode(msg midi.Message) Event {
	switch {
	case msg.Is(midi.NoteOnMsg):
		var channel, key, velocity uint8
		msg.GetNoteOn(&channel, &key, &velocity)
		return decodePad(key, velocity > 0)

	case msg.Is(midi.NoteOffMsg):
		var channel, key, velocity uint8
		msg.GetNoteOff(&channel, &key, &velocity)
		return decodePad(key, false)

	case msg.Is(midi.ControlChangeMsg):
		var channel, controller, value uint8
		msg.GetControlChange(&channel, &controller, &value)
		return ButtonEvent{CC: int(controller), Pressed: value > 0}

	case msg.Is(midi.PitchBendMsg):
		var channel uint8
		var relative int16
		var absolute uint16
		msg.GetPitchBend(&channel, &relative, &absolute)
		return StripEvent{Position: float64(absolute) / 16383}
	}
	return nil
}

func decodePad(key uint8, pressed bool) Event {
	if key < FirstPadNote || key >= FirstPadNote+NumPads {
		return nil
	}
	pad := int(key) - FirstPadNote
	return PadEvent{Row: pad / PadCols, Col: pad % PadCols, Pressed: pressed}
}
