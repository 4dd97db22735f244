package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"domain-reputation/config"
	"domain-reputation/logging"
	"domain-reputation/reputation"
	"domain-reputation/vetting"
)

func main() {
	app := &cli.App{
		Name:  "domain-reputation",
		Usage: "score domains and IP addresses against DNS blacklists and threat intelligence",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "port", Usage: "listen port, overrides PORT"},
				},
				Action: serve,
			},
			{
				Name:      "check",
				Usage:     "check one domain or IP address",
				ArgsUsage: "<target>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "print the full report as JSON"},
				},
				Action: check,
			},
			{
				Name:   "catalog",
				Usage:  "list the configured blacklists",
				Action: catalog,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logging.New(cfg.App.LogLevel, cfg.App.LogPretty), nil
}

func serve(c *cli.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	if p := c.Int("port"); p > 0 {
		cfg.App.Port = p
	}
	eng, err := newEngine(cfg, log)
	if err != nil {
		return err
	}

	router := vetting.NewRouter(vetting.NewHandler(eng.aggregator, log), vetting.RouterOptions{
		Gatherer: eng.metrics,
	}, log)
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Int("port", cfg.App.Port).
			Int("blacklists", eng.aggregator.Registry().Len()).
			Strs("dns_servers", eng.dnsServers).
			Msg("domain-reputation listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func check(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: domain-reputation check <target>", 2)
	}
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	eng, err := newEngine(cfg, log)
	if err != nil {
		return err
	}

	report, err := eng.aggregator.Check(c.Context, reputation.Request{Target: c.Args().First()})
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(c.App.Writer, report)
	return nil
}

func catalog(c *cli.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	reg, err := loadRegistry(cfg, log)
	if err != nil {
		return err
	}
	printCatalog(c.App.Writer, reg)
	return nil
}
