package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"push2resolume/lib/resolume"
)

func main() {
	listen := resolume.DefaultPort + 1
	probe := ""
	for _, arg := range os.Args[1:] {
		if v, ok := strings.CutPrefix(arg, "--probe="); ok {
			probe = v
			continue
		}
		v, err := strconv.Atoi(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Usage: oscdump [--probe=<path>] [listen-port]\n")
			os.Exit(1)
		}
		listen = v
	}

	client, err := resolume.NewClient("127.0.0.1", resolume.DefaultPort, listen)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	if probe != "" {
		u, err := client.Query(probe, time.Second)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(u)
		return
	}

	fmt.Printf("Listening for OSC on port %d\n", client.ListenPort())

	go func() {
		for {
			u, ok := client.Pop()
			if !ok {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			fmt.Println(u)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	fmt.Println()
}
