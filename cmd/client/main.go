package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/game/physics"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/injector"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config; defaults are used when empty")
	name := flag.String("name", "", "player name, overrides client.player_name")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cl, cleanup, err := injector.InitializeClient(ctx, injector.ConfigPath(*configPath))
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error connecting:", err)
		os.Exit(1)
	}
	defer cleanup()

	player := *name
	if player == "" {
		player = cl.Config().Client.PlayerName
	}
	if err = cl.RequestSpawn(player, physics.Vec3{}); err != nil {
		fmt.Fprintln(os.Stderr, "Error requesting spawn:", err)
		cleanup()
		os.Exit(1)
	}

	if err = cl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "Error running client:", err)
		cleanup()
		os.Exit(1)
	}
}
