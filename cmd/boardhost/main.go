// The boardhost command hosts one board game engine on a TCP address and
// arbitrates games between connecting clients until it is stopped.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/dcrodman/boardhost/internal/core"
	"github.com/dcrodman/boardhost/internal/core/data"
	"github.com/dcrodman/boardhost/internal/core/debug"
	"github.com/dcrodman/boardhost/internal/game"
	"github.com/dcrodman/boardhost/internal/server"
	"github.com/dcrodman/boardhost/internal/server/web"
	"github.com/dcrodman/boardhost/pkg/tictactoe"
)

var (
	configFlag = flag.String("config", "./", "Path to the directory containing the config file")
	gameFlag   = flag.String("game", "tictactoe", "Name of the game engine to host")
)

// engines is the explicit registry of game engines this binary can host.
// The server itself only ever sees the one resolved instance.
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

	config := core.LoadConfig(*configFlag)
	fmt.Println("using configuration file:", *configFlag)

	logger, err := core.NewLogger(config)
	if err != nil {
		fmt.Println("error initializing logger:", err)
		os.Exit(1)
	}

	if config.Debugging.PprofEnabled {
		debug.StartPprofServer(logger, config.Debugging.PprofPort)
	}

	// Bind everything to one top-level context so that we can shut down cleanly.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Register a SIGTERM handler so that Ctrl-C will shut the server down gracefully.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println("waiting to shut down gracefully...")
		cancel()
	}()

	var store *data.Store
	if config.Database.Engine != "" {
		db, err := data.Initialize(config, logger.IsLevelEnabled(logrus.DebugLevel))
		if err != nil {
			logger.Errorf("error initializing database: %s", err)
			os.Exit(1)
		}
		defer func() {
			if err := data.Shutdown(db); err != nil {
				logger.Warnf("error closing database: %s", err)
			}
		}()
		store = data.NewStore(db)
	}

	host := &server.Server{
		Address:  config.Address(),
		GameName: *gameFlag,
		Engine:   engine,
		Config:   config,
		Logger:   logger,
	}
	if store != nil {
		host.Recorder = store
	}

	var wg sync.WaitGroup
	if err := host.Start(ctx, &wg); err != nil {
		logger.Errorf("error starting server: %s", err)
		os.Exit(1)
	}

	if config.Web.HTTPPort != 0 {
		web.Start(ctx, config.Web.HTTPPort, web.NewHandler(host.Session(), store, logger), logger)
	}

	wg.Wait()
	fmt.Println("shut down")
}

func engineNames() []string {
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
