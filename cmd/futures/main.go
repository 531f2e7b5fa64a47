package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/joripage/futures-bot/config"
	"github.com/joripage/futures-bot/pkg/logging"
	"go.uber.org/zap"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: futures [-config-file path] <command> [args]")
	fmt.Fprintln(os.Stderr, "\ncommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %s\n", commands[name].usage)
	}
}

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	name, args := flag.Arg(0), flag.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	level := logging.ParseLevel(cfg.Log.Level)
	logger := logging.NewLogger(level)
	if cfg.Log.File != "" {
		if logger, err = logging.NewLoggerWithFile(level, cfg.Log.File); err != nil {
			fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
			os.Exit(1)
		}
	}
	zap.ReplaceGlobals(logger.Zap())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate(); err != nil {
		logger.Fatal(ctx, "invalid configuration", zap.Error(err))
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal(ctx, "init failed", zap.Error(err))
	}

	err = cmd.run(ctx, a, os.Stdout, args)
	a.close()
	if err != nil {
		var uerr *usageError
		if errors.As(err, &uerr) {
			fmt.Fprintln(os.Stderr, uerr.Error())
			os.Exit(2)
		}
		printError(os.Stderr, err)
		os.Exit(1)
	}
}
