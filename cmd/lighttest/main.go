package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gitlab.com/gomidi/midi/v2"

	"push2resolume/lib/push2"
)

type fileFrame struct {
	path string
}

func (f fileFrame) WriteFrame(frame []byte) error {
	return os.WriteFile(f.path, frame, 0o644)
}

func main() {
	for _, arg := range os.Args[1:] {
		if path, ok := strings.CutPrefix(arg, "--frame="); ok {
			d := push2.NewDisplay(fileFrame{path})
			labels := []string{"1", "2", "3", "4", "5", "6", "7", "8"}
			if err := d.Render(true, labels); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Wrote encoded frame to %s\n", path)
			return
		}
	}

	defer midi.CloseDriver()

	port, err := push2.FindOutPort("push 2")
	if err != nil {
		fmt.Println("Available MIDI output ports:")
		for _, p := range midi.GetOutPorts() {
			fmt.Printf("  %s\n", p)
		}
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		os.Exit(1)
	}

	out, err := push2.NewOutput(port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Connected to: %s\n", port)

	palette := push2.NewPalette(out)
	out.ClearPads()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	// Sweep a rainbow across the grid; 36 distinct hues keeps well
	// within the custom palette range.
	for step := 0; ; step++ {
		select {
		case <-sig:
			fmt.Println()
			out.ClearPads()
			return
		case <-ticker.C:
		}

		for row := 0; row < push2.PadRows; row++ {
			for col := 0; col < push2.PadCols; col++ {
				hue := float64(((col+row)*40 + step*10) % 360)
				idx := palette.ResolveRGB(push2.FromHSV(hue, 1, 1))
				note := push2.FirstPadNote + row*push2.PadCols + col
				if err := out.SetPadIndex(note, idx); err != nil {
					fmt.Fprintf(os.Stderr, "Error: %v\n", err)
					os.Exit(1)
				}
			}
		}
	}
}
