// Package main provides the agentgraph CLI.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hupe1980/agentgraph"
	"github.com/hupe1980/agentgraph/config"
	"github.com/hupe1980/agentgraph/core"
	"github.com/hupe1980/agentgraph/logging"
	"github.com/hupe1980/agentgraph/server"
)

var version = "dev"

// defaultConfigFile is read when present and -config is not given.
const defaultConfigFile = "agentgraph.yaml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "serve":
		err = serveCmd(args)
	case "dispatch":
		err = dispatchCmd(args)
	case "agents":
		err = agentsCmd(args)
	case "version":
		fmt.Printf("agentgraph %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`agentgraph - configuration driven agent hierarchies

Usage:
  agentgraph <command> [options]

Commands:
  serve     Serve POST /api/agent over HTTP (SIGHUP reloads the registry)
  dispatch  Run one agent turn and print the result as JSON
  agents    List the dispatchable agents
  version   Print version information
  help      Show this help message

Run 'agentgraph <command> -h' for command options.`)
}

// setup loads configuration and assembles the graph.
func setup(configPath string) (*config.Config, *agentgraph.AgentGraph, func() error, error) {
	if configPath == "" && config.Exists(defaultConfigFile) {
		configPath = defaultConfigFile
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	logger := logging.NewSlogLogger(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, cfg.Log.AddSource)

	g, store, closer, err := agentgraph.FromConfig(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	go reloadOnHangup(store.Reload, logger)

	return cfg, g, closer.Close, nil
}

func reloadOnHangup(reload func() error, logger logging.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)
	for range sigChan {
		logger.Info("registry.reload.requested")
		_ = reload()
	}
}

func serveCmd(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to the YAML configuration file")
	addr := fs.String("addr", "", "Listen address (overrides configuration)")
	_ = fs.Parse(args)

	cfg, g, closeSinks, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer func() { _ = closeSinks() }()

	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}

	httpServer := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: g.Handler(func(o *server.Options) {
			o.AllowedOrigins = cfg.HTTP.AllowedOrigins
		}),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "agentgraph %s listening on %s\n", version, cfg.HTTP.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func dispatchCmd(args []string) error {
	fs := flag.NewFlagSet("dispatch", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to the YAML configuration file")
	agentName := fs.String("agent", "", "Agent id to dispatch to")
	message := fs.String("message", "", "User message")
	identifier := fs.String("identifier", "", "Caller identifier (user id)")
	contextJSON := fs.String("context", "", "Extra dispatch context as a JSON object")
	timeout := fs.Duration("timeout", 5*time.Minute, "Overall timeout")
	_ = fs.Parse(args)

	dctx := core.DispatchContext{}
	if *contextJSON != "" {
		if err := json.Unmarshal([]byte(*contextJSON), &dctx); err != nil {
			return fmt.Errorf("parse -context: %w", err)
		}
	}
	if *identifier != "" {
		dctx[core.KeyIdentifier] = *identifier
	}

	_, g, closeSinks, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer func() { _ = closeSinks() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	res := g.Dispatch(ctx, *agentName, *message, dctx)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	if res.Failed() {
		return errors.New(res.Error)
	}
	return nil
}

func agentsCmd(args []string) error {
	fs := flag.NewFlagSet("agents", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to the YAML configuration file")
	_ = fs.Parse(args)

	_, g, closeSinks, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer func() { _ = closeSinks() }()

	for _, id := range g.Agents() {
		fmt.Println(id)
	}
	return nil
}
