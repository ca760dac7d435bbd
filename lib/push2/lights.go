package push2

import "github.com/golang/glog"

// View is the read-only state the lighting projector paints from.
type View interface {
	LayerCount() int
	ColumnCount() int
	ClipExists(column, layer int) bool
	ClipConnected(column, layer int) bool
	ConnectedColumn() int
	LayerOffset() int
	ColumnOffset() int
}

// Lights recomputes every LED from the view once per tick and sends only
// the ones whose resolved palette index changed since the last send.
// Failed writes are not recorded, so they retry on the next tick.
type Lights struct {
	cmd     Commands
	palette *Palette

	padIndex    [NumPads]uint8
	padSent     [NumPads]bool
	buttonIndex [NumButtons]uint8
	buttonSent  [NumButtons]bool
}

func NewLights(cmd Commands, palette *Palette) *Lights {
	return &Lights{cmd: cmd, palette: palette}
}

// Invalidate forgets everything sent so far. The next Update repaints
// every LED, bringing the device to a known state after (re)connection.
func (l *Lights) Invalidate() {
	l.padSent = [NumPads]bool{}
	l.buttonSent = [NumButtons]bool{}
}

// Update paints the full surface: grid pads, navigation, column and
// layer buttons.
func (l *Lights) Update(v View) {
	l.updateGrid(v)
	l.updateNavigation(v)
	l.updateColumnAndLayerButtons(v)
}

func (l *Lights) updateGrid(v View) {
	columns := v.ColumnCount()
	for row := 0; row < PadRows; row++ {
		for col := 0; col < PadCols; col++ {
			layer := row + 1 + v.LayerOffset()
			column := col + 1 + v.ColumnOffset()

			color := Black
			if v.ClipExists(column, layer) {
				if v.ClipConnected(column, layer) {
					color = columnHue(column, columns)
				} else {
					color = White
				}
			}
			l.setPad(row, col, color)
		}
	}
}

// columnHue spreads the live-clip colors across the hue circle by the
// current column count.
func columnHue(column, columns int) Color {
	if columns < 1 {
		columns = 1
	}
	return FromHSV(float64(column-1)*360/float64(columns), 1, 1)
}

func (l *Lights) updateNavigation(v View) {
	l.setButtonBW(CCOctaveUp, onOff(v.LayerOffset()+PadRows < v.LayerCount()))
	l.setButtonBW(CCOctaveDown, onOff(v.LayerOffset() > 0))
	l.setButtonBW(CCPageRight, onOff(v.ColumnOffset()+PadCols < v.ColumnCount()))
	l.setButtonBW(CCPageLeft, onOff(v.ColumnOffset() > 0))
}

func onOff(on bool) uint8 {
	if on {
		return BrightnessFull
	}
	return BrightnessOff
}

func (l *Lights) updateColumnAndLayerButtons(v View) {
	connected := v.ConnectedColumn()
	for i := 0; i < PadCols; i++ {
		cc := CCColumnFirst + i
		column := v.ColumnOffset() + i + 1
		if column == connected {
			l.setButtonRGB(cc, White)
		} else {
			l.setButtonRGB(cc, FromHSV(float64(i)*360/PadCols, 1, 1))
		}
	}
	for cc := CCLayerFirst; cc <= CCLayerLast; cc++ {
		l.setButtonRGB(cc, White)
	}
}

func (l *Lights) setPad(row, col int, c Color) {
	if row < 0 || row >= PadRows || col < 0 || col >= PadCols {
		return
	}
	idx := l.palette.ResolveRGB(c)
	pad := row*PadCols + col
	if l.padSent[pad] && l.padIndex[pad] == idx {
		return
	}
	if err := l.cmd.SetPadIndex(FirstPadNote+pad, idx); err != nil {
		glog.V(1).Infof("push2: set pad %d: %v", pad, err)
		l.padSent[pad] = false
		return
	}
	l.padIndex[pad] = idx
	l.padSent[pad] = true
}

// isRGBButton reports whether a button has a full RGB LED; the rest take
// a white-channel brightness only.
func isRGBButton(cc int) bool {
	switch {
	case cc >= 102 && cc <= 109:
		return true
	case cc >= CCColumnFirst && cc <= CCColumnLast:
		return true
	case cc >= CCLayerFirst && cc <= CCLayerLast:
		return true
	case cc == 60 || cc == 61 || cc == 29 || cc == 85 || cc == 86 || cc == 89:
		return true
	}
	return false
}

func (l *Lights) setButtonRGB(cc int, c Color) {
	if cc < 0 || cc >= NumButtons || !isRGBButton(cc) {
		return
	}
	l.sendButton(cc, l.palette.ResolveRGB(c))
}

func (l *Lights) setButtonBW(cc int, brightness uint8) {
	if cc < 0 || cc >= NumButtons || isRGBButton(cc) {
		return
	}
	l.sendButton(cc, l.palette.ResolveBW(brightness))
}

func (l *Lights) sendButton(cc int, idx uint8) {
	if l.buttonSent[cc] && l.buttonIndex[cc] == idx {
		return
	}
	if err := l.cmd.SetButtonIndex(cc, idx); err != nil {
		glog.V(1).Infof("push2: set button %d: %v", cc, err)
		l.buttonSent[cc] = false
		return
	}
	l.buttonIndex[cc] = idx
	l.buttonSent[cc] = true
}
