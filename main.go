// gohttpd - a connection-multiplexing HTTP/RTSP request server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gohttpd/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "gohttpd: %v\n", err)
		os.Exit(1)
	}
}
