// The boardclient command connects a single player to a running boardhost
// and plays one seat until the game ends or the host declines.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"

	"github.com/dcrodman/boardhost/internal/client"
	"github.com/dcrodman/boardhost/internal/game"
	"github.com/dcrodman/boardhost/pkg/player"
	"github.com/dcrodman/boardhost/pkg/tictactoe"
)

var (
	addrFlag   = flag.String("addr", "127.0.0.1:4242", "Address of the board game host")
	gameFlag   = flag.String("game", "tictactoe", "Name of the game engine being hosted")
	playerFlag = flag.String("player", "human", "Player type: human or random")
	seedFlag   = flag.Int64("seed", 0, "Seed for the random player (0 seeds from the clock)")
	levelFlag  = flag.String("log-level", "warn", "Minimum log level")
)

var engines = map[string]game.Engine{
	"tictactoe": tictactoe.New(),
}

func main() {
	flag.Parse()

	engine, ok := engines[*gameFlag]
	if !ok {
		fmt.Printf("unknown game %q; available: %v\n", *gameFlag, engineNames())
		os.Exit(1)
	}

	var p client.Player
	switch *playerFlag {
	case "human":
		p = player.NewHumanPlayer(engine)
	case "random":
		p = player.NewRandomPlayer(engine, *seedFlag)
	default:
		fmt.Printf("unknown player type %q; available: human, random\n", *playerFlag)
		os.Exit(1)
	}

	logger := logrus.New()
	if level, err := logrus.ParseLevel(*levelFlag); err == nil {
		logger.SetLevel(level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
	}()

	pterm.Info.Printfln("Connecting to %s to play %s as a %s player", *addrFlag, *gameFlag, *playerFlag)

	driver := &client.Driver{
		Address: *addrFlag,
		Player:  p,
		Logger:  logger,
	}
	if err := driver.Run(ctx); err != nil {
		pterm.Error.Printfln("session ended with an error: %s", err)
		os.Exit(1)
	}
}

func engineNames() []string {
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
