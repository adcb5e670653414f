package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/crimson-sun/silverwatch/internal/config"
	"github.com/crimson-sun/silverwatch/internal/display"
	"github.com/crimson-sun/silverwatch/internal/display/saver"
	"github.com/crimson-sun/silverwatch/internal/engine"
	"github.com/crimson-sun/silverwatch/internal/engine/classifier"
	"github.com/crimson-sun/silverwatch/internal/engine/palette"
	"github.com/crimson-sun/silverwatch/internal/logging"
	"github.com/crimson-sun/silverwatch/internal/output"
	"github.com/crimson-sun/silverwatch/internal/output/async"
	"github.com/crimson-sun/silverwatch/internal/output/file"
	"github.com/crimson-sun/silverwatch/internal/output/kafka"
	"github.com/crimson-sun/silverwatch/internal/output/mqtt"
	"github.com/crimson-sun/silverwatch/internal/output/multi"
	"github.com/crimson-sun/silverwatch/internal/output/mysql"
	"github.com/crimson-sun/silverwatch/internal/output/redis"
	"github.com/crimson-sun/silverwatch/internal/output/sqlite"
	"github.com/crimson-sun/silverwatch/internal/output/stdout"
	"github.com/crimson-sun/silverwatch/internal/output/webhook"
	"github.com/crimson-sun/silverwatch/internal/pipeline"
	"github.com/crimson-sun/silverwatch/internal/source"

	// Register source implementations.
	_ "github.com/crimson-sun/silverwatch/internal/source/gst"
	_ "github.com/crimson-sun/silverwatch/internal/source/imagedir"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "silverwatch: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg := config.Load()

	fs := pflag.NewFlagSet("silverwatch", pflag.ContinueOnError)
	cfg.BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if cfg.ShowVersion {
		fmt.Printf("silverwatch %s\n", config.Version)
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	logging.Init(cfg.Output.HasSink(config.SinkStdout), logging.ParseLevel(cfg.LogLevel))

	// Classification.
	eng, err := buildEngine(cfg, fs.Changed("threshold"))
	if err != nil {
		return err
	}

	// Shutdown on SIGINT/SIGTERM. The loop stops between frames.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out, err := buildOutput(ctx, cfg)
	if err != nil {
		return err
	}

	disp, err := buildDisplay(cfg)
	if err != nil {
		out.Close()
		return err
	}

	ctor, err := source.Get(cfg.Source.Provider)
	if err != nil {
		out.Close()
		disp.Close()
		return fmt.Errorf("%w (available: %s)", err, strings.Join(source.Providers(), ", "))
	}
	src, err := ctor(source.Config{
		Provider: cfg.Source.Provider,
		URI:      cfg.Source.URI,
		Loop:     cfg.Source.Loop,
		Interval: cfg.Source.Interval,
	})
	if err != nil {
		out.Close()
		disp.Close()
		return fmt.Errorf("open source: %w", err)
	}

	p := pipeline.New(src, eng, out, pipeline.WithDisplay(disp))

	slog.Info("silverwatch starting",
		"version", config.Version,
		"source", cfg.Source.Provider,
		"uri", cfg.Source.URI,
		"outputs", strings.Join(cfg.Output.Sinks, ","),
		"threshold", eng.Classifier().Threshold(),
		"palette_entries", eng.Classifier().Palette().Len(),
	)

	runErr := p.Run(ctx)

	// Bound the drain of queued alerts and the close of every collaborator.
	closed := make(chan error, 1)
	go func() { closed <- p.Close() }()
	select {
	case err := <-closed:
		if err != nil {
			slog.Warn("shutdown errors", "error", err)
		}
	case <-time.After(cfg.ShutdownTimeout):
		slog.Warn("shutdown timed out", "timeout", cfg.ShutdownTimeout)
	}

	s := p.Stats()
	slog.Info("silverwatch stopped",
		"frames", s.Frames,
		"matched", s.Matched,
		"unmatched", s.Unmatched,
		"persist_failures", s.PersistFailures,
		"display_failures", s.DisplayFailures,
		"sample_failures", s.SampleFailures,
	)
	return runErr
}

// buildEngine loads the palette and threshold. A threshold stored in the
// palette file applies unless one was given by env or flag.
func buildEngine(cfg config.Config, thresholdFlag bool) (*engine.Engine, error) {
	pal := palette.Default()
	threshold := cfg.Engine.Threshold

	if cfg.Engine.PalettePath != "" {
		p, fileThreshold, err := palette.Load(cfg.Engine.PalettePath)
		if err != nil {
			return nil, err
		}
		pal = p
		_, thresholdEnv := os.LookupEnv("SILVERWATCH_THRESHOLD")
		if fileThreshold != nil && !thresholdFlag && !thresholdEnv {
			threshold = *fileThreshold
		}
	}

	cls, err := classifier.New(pal, threshold)
	if err != nil {
		return nil, err
	}
	return engine.New(cls), nil
}

// buildOutput opens every configured sink in order. If one fails, the ones
// already opened are closed.
func buildOutput(ctx context.Context, cfg config.Config) (output.Output, error) {
	oc := cfg.Output
	var sinks []multi.Sink
	fail := func(err error) (output.Output, error) {
		multi.New(sinks...).Close()
		return nil, err
	}

	for _, name := range oc.Sinks {
		var (
			o   output.Output
			err error
		)
		switch name {
		case config.SinkMySQL:
			var m *mysql.Output
			m, err = mysql.New(mysql.Config{
				Host:     oc.MySQL.Host,
				Port:     oc.MySQL.Port,
				User:     oc.MySQL.User,
				Password: oc.MySQL.Password,
				Database: oc.MySQL.Database,
				Table:    oc.MySQL.Table,
			})
			if err == nil && oc.MySQL.CreateTable {
				err = m.EnsureSchema(ctx)
			}
			o = m
		case config.SinkSQLite:
			o, err = sqlite.New(oc.SQLite.Path, oc.SQLite.Table)
		case config.SinkKafka:
			o, err = kafka.New(oc.Kafka.Brokers, oc.Kafka.Topic)
		case config.SinkMQTT:
			o, err = mqtt.New(mqtt.Config{
				Broker:   oc.MQTT.Broker,
				Topic:    oc.MQTT.Topic,
				ClientID: oc.MQTT.ClientID,
				Username: oc.MQTT.Username,
				Password: oc.MQTT.Password,
			})
		case config.SinkRedis:
			o, err = redis.New(redis.Options{
				Addr:     oc.Redis.Addr,
				Password: oc.Redis.Password,
				DB:       oc.Redis.DB,
				Stream:   oc.Redis.Stream,
			})
		case config.SinkWebhook:
			o = webhook.New(oc.Webhook.URL, webhook.WithTimeout(oc.Webhook.Timeout))
		case config.SinkFile:
			o, err = file.New(oc.File.Path, file.WithMaxSize(oc.File.MaxSize))
		case config.SinkStdout:
			o = stdout.New(os.Stdout, oc.Pretty)
		default:
			err = fmt.Errorf("unknown output %q", name)
		}
		if err != nil {
			return fail(fmt.Errorf("output %s: %w", name, err))
		}
		sinks = append(sinks, multi.Sink{Name: name, Output: o})
		slog.Debug("output ready", "output", name)
	}

	m := multi.New(sinks...)
	var out output.Output = m
	if len(sinks) == 1 {
		out = sinks[0].Output
	}
	if oc.Async {
		out = async.New(out,
			async.WithBufferSize(oc.AsyncBuffer),
			async.WithDrainTimeout(cfg.ShutdownTimeout),
		)
	}
	slog.Info("outputs ready", "outputs", strings.Join(m.Names(), ","), "async", oc.Async)
	return out, nil
}

func buildDisplay(cfg config.Config) (display.Display, error) {
	if cfg.Display.Dir == "" {
		return display.Discard, nil
	}
	s, err := saver.New(cfg.Display.Dir, cfg.Display.Format, cfg.Display.JPEGQuality, cfg.Display.Every)
	if err != nil {
		return nil, err
	}
	slog.Info("saving annotated frames", "dir", cfg.Display.Dir, "every", cfg.Display.Every)
	return s, nil
}
