package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/docopt/docopt-go"
	"gitlab.com/gomidi/midi/v2"

	"push2resolume/lib/bridge"
	"push2resolume/lib/push2"
	"push2resolume/lib/resolume"
)

const version = "0.1.0"

const usage = `Push 2 control surface for Resolume Arena.

Point Resolume's OSC output at this machine on the listen port.

Usage:
    push2resolume [--host=<host>] [--port=<port>] [--listen=<port>]
        [--midi=<substr>] [--http=<addr>]

Options:
    -h --help        Show this screen.
    --version        Show version.
    --host=<host>    Resolume host [default: 127.0.0.1].
    --port=<port>    Resolume OSC input port [default: 7000].
    --listen=<port>  Local port for Resolume's OSC output [default: 7001].
    --midi=<substr>  MIDI port name substring [default: push 2].
    --http=<addr>    Serve the tracked state as JSON on this address.`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		panic(err)
	}

	flag.Set("logtostderr", "true")
	flag.CommandLine.Parse(nil)

	host, _ := opts.String("--host")
	port, _ := opts.Int("--port")
	listen, _ := opts.Int("--listen")
	midiName, _ := opts.String("--midi")
	httpAddr, _ := opts.String("--http")

	defer midi.CloseDriver()

	outPort, err := push2.FindOutPort(midiName)
	if err != nil {
		fmt.Println("Available MIDI output ports:")
		for _, p := range midi.GetOutPorts() {
			fmt.Printf("  %s\n", p)
		}
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		os.Exit(1)
	}
	inPort, err := push2.FindInPort(midiName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	output, err := push2.NewOutput(outPort)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	client, err := resolume.NewClient(host, port, listen)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	fmt.Printf("Resolume at %s:%d, updates on port %d\n", host, port, client.ListenPort())
	fmt.Printf("Push 2 on: %s\n", outPort)

	lights := push2.NewLights(output, push2.NewPalette(output))
	b := bridge.New(client, resolume.NewTracker(), lights)

	stop, err := midi.ListenTo(inPort, func(msg midi.Message, timestampms int32) {
		b.HandleMIDI(msg)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listening: %v\n", err)
		os.Exit(1)
	}
	defer stop()

	b.Start()
	defer b.Stop()

	if httpAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/api/state", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, b.Snapshot())
		})
		go func() {
			if err := http.ListenAndServe(httpAddr, mux); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		}()
		fmt.Printf("State endpoint on http://%s/api/state\n", httpAddr)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	fmt.Println()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
