// File: cmd/reactor-echo/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Binary entry point for the multi-reactor echo server.

package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	_ "go.uber.org/automaxprocs" // worker default honors container CPU quota

	"github.com/momentics/hioload-reactor/reactor"
)

func main() {
	addr := flag.String("addr", ":9100", "TCP listen address")
	// GOMAXPROCS is read after automaxprocs' init applied any container
	// CPU quota, so the default pool size respects the quota.
	workers := flag.Int("workers", runtime.GOMAXPROCS(0), "event-loop worker count")
	bufSize := flag.Int("bufsize", 64<<10, "per-connection buffer capacity in bytes")
	flag.Parse()

	srv, err := reactor.New(nil,
		reactor.WithAddr(*addr),
		reactor.WithWorkers(*workers),
		reactor.WithBufferSize(*bufSize),
	)
	if err != nil {
		log.Fatalf("[server] init: %v", err)
	}
	if err := srv.Start(); err != nil {
		log.Fatalf("[server] start: %v", err)
	}
	log.Printf("[server] listening on %s, workers=%d, bufsize=%d", srv.Addr(), *workers, *bufSize)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	got := <-sig
	log.Printf("[server] signal %s, shutting down", got)

	if err := srv.Shutdown(); err != nil {
		log.Printf("[server] shutdown: %v", err)
		os.Exit(1)
	}
	log.Printf("[server] clean shutdown")
}
