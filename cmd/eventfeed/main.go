package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventfeed/internal/config"
	"eventfeed/internal/fetch"
	appLog "eventfeed/internal/log"
	"eventfeed/internal/refresh"
	"eventfeed/internal/transport"
	"eventfeed/internal/web"
)

const version = "0.1.0"

type flagConfig struct {
	configPath string
	listen     string
	endpoint   string
	once       bool
}

func main() {
	if err := run(); err != nil {
		appLog.Error("eventfeed failed", err)
		appLog.Flush(2 * time.Second)
		os.Exit(1)
	}
}

func run() error {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", flags.configPath, err)
	}

	// CLI flags override the config file when set.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.endpoint != "" {
		conf.Endpoint = flags.endpoint
	}
	if err := conf.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", flags.configPath, err)
	}

	level, _ := appLog.ParseLevel(conf.LogLevel)
	appLog.SetLevel(level)
	if err := appLog.EnableSentry(conf.SentryDSN, conf.Environment, version); err != nil {
		appLog.Warn("sentry disabled", "err", err)
	}
	defer appLog.Flush(2 * time.Second)

	appLog.Info("eventfeed starting",
		"version", version,
		"listen", conf.Listen,
		"endpoint", appLog.RedactURL(conf.Endpoint),
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"fetch_pictures", conf.FetchPictures,
		"once", flags.once,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := newService(conf)

	if flags.once {
		snap, err := svc.Refresh(ctx)
		printSnapshot(os.Stdout, snap)
		return err
	}

	if _, err := svc.Refresh(ctx); err != nil {
		appLog.Warn("initial refresh incomplete", "err", err)
	}
	if err := svc.Start(ctx, conf.RefreshCron); err != nil {
		return err
	}

	server := web.NewServer(conf, svc, svc.Humanizer())
	if err := server.ListenAndServe(ctx); err != nil {
		return err
	}

	appLog.Info("eventfeed exiting")
	return nil
}

func newService(conf *config.Config) *refresh.Service {
	tr := transport.NewHTTP(
		transport.WithTimeout(conf.RequestTimeout),
		transport.WithUserAgent(conf.UserAgent),
	)
	client := fetch.New(tr, conf.Endpoint)

	opts := []refresh.Option{refresh.WithLocation(conf.Location())}
	if conf.FetchPictures {
		opts = append(opts, refresh.WithPictures(conf.PictureWorkers))
	}
	if conf.ICSPath != "" {
		opts = append(opts, refresh.WithICSExport(conf.ICSPath))
	}
	return refresh.New(client, opts...)
}

// printSnapshot writes one line per event: label, title and a long-event marker.
func printSnapshot(w io.Writer, snap refresh.Snapshot) {
	if snap.Config != nil {
		fmt.Fprintf(w, "instance %s, %d categories\n", snap.Config.InstanceVersion, len(snap.Config.Categories))
	}
	for _, it := range snap.Items {
		marker := ""
		if it.Event.IsLong() {
			marker = fmt.Sprintf(" (%dh)", it.Event.DurationInHours())
		}
		fmt.Fprintf(w, "%-20s %s%s\n", it.Label, it.Event.Title, marker)
	}
	fmt.Fprintf(w, "%d decoded, %d failed, %d total\n", len(snap.Items), len(snap.Failures), snap.Total)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/eventfeed/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.endpoint, "endpoint", "", "GraphQL endpoint (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one refresh, print the events and exit")

	flag.Parse()

	return cfg
}
