package push2

import (
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

const (
	PadRows      = 8
	PadCols      = 8
	NumPads      = PadRows * PadCols
	FirstPadNote = 36
	NumButtons   = 120
)

// Button control-change numbers.
const (
	CCColumnFirst = 20
	CCColumnLast  = 27
	CCMaster      = 28
	CCLayerFirst  = 36
	CCLayerLast   = 43
	CCDeckNext    = 48
	CCDeckPrev    = 49
	CCOctaveDown  = 54
	CCOctaveUp    = 55
	CCPageLeft    = 62
	CCPageRight   = 63
)

// Commands is the device command surface the palette cache and lighting
// projector write through. Output implements it over MIDI; tests use a
// recorder.
type Commands interface {
	SetPadIndex(note int, index uint8) error
	SetButtonIndex(cc int, index uint8) error
	ProgramPalette(index, r, g, b, w uint8) error
	ReapplyPalette() error
	ClearPads() error
}

// sysexHeader prefixes every Push 2 command (Ableton manufacturer ID,
// device, model, command follows).
var sysexHeader = []byte{0x00, 0x21, 0x1D, 0x01, 0x01}

const (
	sysexSetPaletteEntry = 0x03
	sysexReapplyPalette  = 0x05
	sysexSetBrightness   = 0x08
)

type Output struct {
	send func(msg midi.Message) error
}

func NewOutput(port drivers.Out) (*Output, error) {
	send, err := midi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("push2: open output port: %w", err)
	}
	return &Output{send: send}, nil
}

// SetPadIndex lights one pad with a palette slot. Pads are addressed as
// note numbers 36..99.
func (o *Output) SetPadIndex(note int, index uint8) error {
	if note < FirstPadNote || note >= FirstPadNote+NumPads {
		return fmt.Errorf("push2: pad note %d out of range", note)
	}
	return o.send(midi.NoteOn(0, uint8(note), index))
}

// SetButtonIndex lights one button with a palette slot.
func (o *Output) SetButtonIndex(cc int, index uint8) error {
	if cc < 0 || cc >= NumButtons {
		return fmt.Errorf("push2: button cc %d out of range", cc)
	}
	return o.send(midi.ControlChange(0, uint8(cc), index))
}

// ProgramPalette writes one palette slot. The device latches new entries
// only on ReapplyPalette. Each channel is sent as a 7-bit LSB/MSB pair.
func (o *Output) ProgramPalette(index, r, g, b, w uint8) error {
	data := append([]byte{}, sysexHeader...)
	data = append(data, sysexSetPaletteEntry, index&0x7F)
	for _, v := range []uint8{r, g, b, w} {
		data = append(data, v&0x7F, v>>7)
	}
	return o.send(midi.SysEx(data))
}

func (o *Output) ReapplyPalette() error {
	data := append([]byte{}, sysexHeader...)
	data = append(data, sysexReapplyPalette)
	return o.send(midi.SysEx(data))
}

func (o *Output) ClearPads() error {
	for note := FirstPadNote; note < FirstPadNote+NumPads; note++ {
		if err := o.SetPadIndex(note, 0); err != nil {
			return err
		}
	}
	return nil
}

// SetDisplayBrightness sets the backlight, 0..255.
func (o *Output) SetDisplayBrightness(brightness uint8) error {
	data := append([]byte{}, sysexHeader...)
	data = append(data, sysexSetBrightness, brightness&0x7F, brightness>>7)
	return o.send(midi.SysEx(data))
}

func FindInPort(substr string) (drivers.In, error) {
	lower := strings.ToLower(substr)
	for _, port := range midi.GetInPorts() {
		if strings.Contains(strings.ToLower(port.String()), lower) {
			return port, nil
		}
	}
	return nil, fmt.Errorf("push2: no MIDI input port matching %q", substr)
}

func FindOutPort(substr string) (drivers.Out, error) {
	lower := strings.ToLower(substr)
	for _, port := range midi.GetOutPorts() {
		if strings.Contains(strings.ToLower(port.String()), lower) {
			return port, nil
		}
	}
	return nil, fmt.Errorf("push2: no MIDI output port matching %q", substr)
}
