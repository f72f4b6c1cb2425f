package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/matheus3301/resort/internal/daemon"
	"github.com/matheus3301/resort/internal/session"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	levelFlag := flag.String("log-level", "", "log level: debug, info, warn, error (overrides RESORT_LOG_LEVEL)")
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	level := *levelFlag
	if level == "" {
		level = os.Getenv("RESORT_LOG_LEVEL")
	}

	app := fx.New(
		daemon.Module(daemon.Params{SessionName: sessionName, LogLevel: level}),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
	)

	app.Run()
}
