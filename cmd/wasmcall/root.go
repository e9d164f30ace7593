package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/otelwasm/wasmcall/calltrace"
	"github.com/otelwasm/wasmcall/catalog"
	"github.com/otelwasm/wasmcall/config"
	"github.com/otelwasm/wasmcall/marshal"
	"github.com/otelwasm/wasmcall/wasmlib"
)

type rootOptions struct {
	configPath string
	library    string
	catalog    string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "wasmcall",
		Short:        "Call functions of a WebAssembly native library",
		SilenceUsage: true,
	}
	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "configuration file")
	flags.StringVar(&opts.library, "library", "", "WebAssembly library, overrides library.path")
	flags.StringVar(&opts.catalog, "catalog", "", "function catalog, overrides catalog")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level, overrides log.level")

	cmd.AddCommand(
		newCallCommand(opts),
		newListCommand(opts),
		newMangleCommand(),
	)
	return cmd
}

// load reads the configuration and applies command line overrides.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.library != "" {
		cfg.Library.Path = o.library
	}
	if o.catalog != "" {
		cfg.Catalog = o.catalog
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg, nil
}

// session is an open library with the catalog it serves.
type session struct {
	lib      *wasmlib.Library
	caller   *marshal.Caller
	recorder *calltrace.Recorder
	logger   *zap.Logger
	trace    config.TraceConfig
}

func (o *rootOptions) open(ctx context.Context) (*session, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := cfg.Log.Logger()
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Load(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	lib, err := wasmlib.Open(ctx, &cfg.Library, wasmlib.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	table, err := cat.Table(lib.ABI().ErrorAccessors())
	if err != nil {
		return nil, multierr.Append(err, lib.Close(ctx))
	}

	s := &session{lib: lib, logger: logger, trace: cfg.Trace}
	callerOpts := []marshal.CallerOption{marshal.WithLogger(logger)}
	if cfg.Trace.Output != "" {
		s.recorder = calltrace.NewRecorder(cfg.Trace.Service)
		callerOpts = append(callerOpts, marshal.WithObserver(s.recorder))
	}
	s.caller = marshal.NewCaller(lib, table, callerOpts...)
	return s, nil
}

// close writes the recorded traces and closes the library.
func (s *session) close(ctx context.Context) error {
	var err error
	if s.recorder != nil {
		data, merr := s.recorder.MarshalJSON()
		if merr == nil {
			merr = os.WriteFile(s.trace.Output, data, 0o644)
		}
		if merr != nil {
			err = multierr.Append(err, fmt.Errorf("writing traces: %w", merr))
		}
	}
	err = multierr.Append(err, s.lib.Close(ctx))
	_ = s.logger.Sync()
	return err
}
