package push2

import "github.com/golang/glog"

// Palette slot layout. Slots 122 and up are reserved by the device
// firmware; slots below 10 are left alone so the sentinel (black, 0)
// and the stock low entries stay stable.
const (
	PaletteBlack   = 0
	PaletteWhite   = 122
	PaletteBlue    = 125
	PaletteGreen   = 126
	PaletteRed     = 127
	PaletteBWWhite = 127

	firstCustomIndex = 10
	lastCustomIndex  = 121
)

// Brightness values for the white-channel (non-RGB) buttons. Only these
// hit reserved slots; anything else allocates a custom slot.
const (
	BrightnessOff  uint8 = 0
	BrightnessDim  uint8 = 32
	BrightnessLow  uint8 = 84
	BrightnessFull uint8 = 128
)

type paletteEntry struct {
	rgb Color
	w   uint8
}

// Palette maps colors to device palette slots. Reserved slots are
// matched by exact value; everything else is allocated from the custom
// range on first use and programmed onto the device. Slots are never
// reclaimed; Reset discards all mappings so the next resolutions
// reprogram from scratch.
type Palette struct {
	cmd Commands

	rgbIndex map[Color]uint8
	bwIndex  map[uint8]uint8
	entries  map[uint8]paletteEntry
	next     uint8
}

func NewPalette(cmd Commands) *Palette {
	p := &Palette{cmd: cmd}
	p.Reset()
	return p
}

// Reset drops every cached mapping. Nothing is sent to the device until
// a color is next resolved.
func (p *Palette) Reset() {
	p.rgbIndex = map[Color]uint8{
		Black: PaletteBlack,
		White: PaletteWhite,
		Blue:  PaletteBlue,
		Green: PaletteGreen,
		Red:   PaletteRed,
	}
	p.bwIndex = map[uint8]uint8{
		BrightnessOff:  PaletteBlack,
		BrightnessDim:  16,
		BrightnessLow:  48,
		BrightnessFull: PaletteBWWhite,
	}
	p.entries = map[uint8]paletteEntry{}
	p.next = firstCustomIndex
}

// ResolveRGB returns the palette slot holding the color, allocating and
// programming a custom slot on first sight. The brightness channel is
// ignored in lookup and preserved on program. On exhaustion or a failed
// device write the sentinel (black) is returned.
func (p *Palette) ResolveRGB(c Color) uint8 {
	if idx, ok := p.rgbIndex[c]; ok {
		return idx
	}
	idx, ok := p.allocate()
	if !ok {
		return PaletteBlack
	}

	e := p.entries[idx]
	e.rgb = c
	if err := p.program(idx, e); err != nil {
		glog.Warningf("push2: program palette %d: %v", idx, err)
		p.next-- // slot untouched on the device, reusable
		return PaletteBlack
	}
	p.entries[idx] = e
	p.rgbIndex[c] = idx
	return idx
}

// ResolveBW is the white-channel counterpart of ResolveRGB: lookup by
// brightness ignoring RGB, allocate-and-preserve-RGB on miss.
func (p *Palette) ResolveBW(brightness uint8) uint8 {
	if idx, ok := p.bwIndex[brightness]; ok {
		return idx
	}
	idx, ok := p.allocate()
	if !ok {
		return PaletteBlack
	}

	e := p.entries[idx]
	e.w = brightness
	if err := p.program(idx, e); err != nil {
		glog.Warningf("push2: program palette %d: %v", idx, err)
		p.next--
		return PaletteBlack
	}
	p.entries[idx] = e
	p.bwIndex[brightness] = idx
	return idx
}

func (p *Palette) allocate() (uint8, bool) {
	if p.next > lastCustomIndex {
		glog.Warningf("push2: palette exhausted, %d custom slots in use", lastCustomIndex-firstCustomIndex+1)
		return 0, false
	}
	idx := p.next
	p.next++
	return idx, true
}

// program writes the slot and reapplies. The device latches programmed
// entries only on reapply.
func (p *Palette) program(idx uint8, e paletteEntry) error {
	if err := p.cmd.ProgramPalette(idx, e.rgb.R, e.rgb.G, e.rgb.B, e.w); err != nil {
		return err
	}
	return p.cmd.ReapplyPalette()
}
