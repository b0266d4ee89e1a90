/*
Demo application that drives the engine: one window, one triangle, colors
cycled through the shading-stage color table.
*/
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/aquila-gfx/aquila/engine"
	"github.com/aquila-gfx/aquila/testbed"
)

func main() {
	tb, err := testbed.NewTestGame()
	if err != nil {
		panic(err)
	}

	eng, err := engine.New(tb.Game)
	if err != nil {
		panic(err)
	}

	if err := eng.Initialize(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		<-sigCh
		_ = eng.Shutdown()
	}()

	if err := eng.Run(); err != nil {
		panic(err)
	}

	_ = eng.Shutdown()
}
