package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/jghoshh/trailhead/backend"
	"github.com/jghoshh/trailhead/frontend"
)

func main() {
	// Load the .env file
	err := godotenv.Load()
	if err != nil {
		fmt.Println("Error loading .env file")
	}

	// Setting up the signal interrupt handler so Ctrl-C outside the shell
	// still exits cleanly.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		fmt.Println()
		fmt.Println(sig)
		os.Exit(0)
	}()

	// Start the backend, then run the interactive shell in the foreground.
	backend.RunBackend()
	frontend.RunFrontend()
}
