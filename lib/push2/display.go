package push2

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	DisplayWidth  = 960
	DisplayHeight = 160

	// Wire format: 16-bit pixels, each line padded to 2048 bytes.
	displayLineSize   = 2048
	displayHeaderSize = 16
	// FrameSize is the size of one encoded frame, header included.
	FrameSize = displayHeaderSize + DisplayHeight*displayLineSize
)

// Every frame is prefixed with this header on the bulk link.
var displayHeader = [displayHeaderSize]byte{0xFF, 0xCC, 0xAA, 0x88}

// Pixel data is XORed with this signal-shaping pattern.
var displayXORPattern = [4]byte{0xE7, 0xF3, 0xE7, 0xFF}

// FrameWriter carries one encoded frame to the display. The USB bulk
// transport behind it may split the buffer into chunks as it likes.
type FrameWriter interface {
	WriteFrame(frame []byte) error
}

// Display composes the on-screen view and encodes it into the device
// wire format. Pure presentation; it never touches the state tree.
type Display struct {
	w   FrameWriter
	img *image.RGBA
	buf []byte
}

func NewDisplay(w FrameWriter) *Display {
	return &Display{
		w:   w,
		img: image.NewRGBA(image.Rect(0, 0, DisplayWidth, DisplayHeight)),
		buf: make([]byte, FrameSize),
	}
}

// Render draws the frame and sends it: black background, one label per
// grid column along the top, and a green border while in selecting mode.
func (d *Display) Render(selecting bool, columnLabels []string) error {
	draw.Draw(d.img, d.img.Bounds(), image.Black, image.Point{}, draw.Src)

	colWidth := DisplayWidth / PadCols
	for i, label := range columnLabels {
		if i >= PadCols || label == "" {
			continue
		}
		d.drawText(label, i*colWidth, colWidth)
	}

	if selecting {
		d.drawBorder(color.RGBA{G: 255, A: 255}, 2)
	}

	d.encode()
	return d.w.WriteFrame(d.buf)
}

// Clear blacks out the screen.
func (d *Display) Clear() error {
	draw.Draw(d.img, d.img.Bounds(), image.Black, image.Point{}, draw.Src)
	d.encode()
	return d.w.WriteFrame(d.buf)
}

func (d *Display) drawText(text string, x, width int) {
	face := basicfont.Face7x13
	for font.MeasureString(face, text).Ceil() > width-8 && len(text) > 1 {
		text = text[:len(text)-1]
	}
	w := font.MeasureString(face, text).Ceil()

	(&font.Drawer{
		Dst:  d.img,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(x+(width-w)/2, face.Metrics().Ascent.Ceil()+4),
	}).DrawString(text)
}

func (d *Display) drawBorder(c color.Color, thickness int) {
	b := d.img.Bounds()
	draw.Draw(d.img, image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+thickness), &image.Uniform{c}, image.Point{}, draw.Src)
	draw.Draw(d.img, image.Rect(b.Min.X, b.Max.Y-thickness, b.Max.X, b.Max.Y), &image.Uniform{c}, image.Point{}, draw.Src)
	draw.Draw(d.img, image.Rect(b.Min.X, b.Min.Y, b.Min.X+thickness, b.Max.Y), &image.Uniform{c}, image.Point{}, draw.Src)
	draw.Draw(d.img, image.Rect(b.Max.X-thickness, b.Min.Y, b.Max.X, b.Max.Y), &image.Uniform{c}, image.Point{}, draw.Src)
}

// encode packs the RGBA image into the wire buffer: header, then each
// line as 960 little-endian 16-bit pixels (5-6-5) plus 128 filler
// bytes, the whole line XORed with the shaping pattern.
func (d *Display) encode() {
	copy(d.buf, displayHeader[:])

	for y := 0; y < DisplayHeight; y++ {
		line := d.buf[displayHeaderSize+y*displayLineSize:][:displayLineSize]
		for x := 0; x < DisplayWidth; x++ {
			o := d.img.PixOffset(x, y)
			px := rgbTo565(d.img.Pix[o], d.img.Pix[o+1], d.img.Pix[o+2])
			line[x*2] = byte(px) ^ displayXORPattern[(x*2)%4]
			line[x*2+1] = byte(px>>8) ^ displayXORPattern[(x*2+1)%4]
		}
		for i := DisplayWidth * 2; i < displayLineSize; i++ {
			line[i] = displayXORPattern[i%4]
		}
	}
}

func rgbTo565(r, g, b uint8) uint16 {
	return uint16(r&0xF8)<<8 | uint16(g&0xFC)<<3 | uint16(b)>>3
}
