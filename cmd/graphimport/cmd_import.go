// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianGraphImport/pkg/telemetry"
	"github.com/AleutianAI/AleutianGraphImport/pkg/ux"
	"github.com/AleutianAI/AleutianGraphImport/services/importer"
	"github.com/AleutianAI/AleutianGraphImport/services/importer/cancel"
	"github.com/AleutianAI/AleutianGraphImport/services/importer/connection"
	"github.com/AleutianAI/AleutianGraphImport/services/importer/progress"
	"github.com/AleutianAI/AleutianGraphImport/services/importer/traverse"
	"github.com/AleutianAI/AleutianGraphImport/services/importer/workspace"
)

// importFlags are shared by the local and remote commands.
type importFlags struct {
	output         string
	uniqueness     string
	metricsAddr    string
	traceExporter  string
	metricExporter string
}

func (f *importFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "write the imported project as JSON to this file (- for stdout)")
	cmd.Flags().StringVar(&f.uniqueness, "uniqueness", "", "traversal uniqueness: relationship or node")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the import")
	cmd.Flags().StringVar(&f.traceExporter, "trace-exporter", "", "trace exporter: otlp, stdout or none")
	cmd.Flags().StringVar(&f.metricExporter, "metric-exporter", "", "metric exporter: prometheus, stdout or none")
}

// importFunc starts one import on imp.
type importFunc func(ctx context.Context, imp *importer.Importer) (*importer.Result, error)

func (c *cli) localCommand() *cobra.Command {
	var flags importFlags
	cmd := &cobra.Command{
		Use:   "local <path>",
		Short: "Import an embedded graph store from disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			return c.runImport(cmd.Context(), flags, path, nil,
				func(ctx context.Context, imp *importer.Importer) (*importer.Result, error) {
					return imp.ImportLocal(ctx, path)
				})
		},
	}
	flags.register(cmd)
	return cmd
}

func (c *cli) remoteCommand() *cobra.Command {
	var (
		flags    importFlags
		login    string
		database string
		root     string
	)
	cmd := &cobra.Command{
		Use:   "remote <address>",
		Short: "Import a remote graph database over Bolt",
		Long: `Import a remote graph database over Bolt.

The address must include a scheme, e.g. neo4j://localhost:7687. When a
login is given the password is read from GRAPHIMPORT_PASSWORD.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			address := args[0]
			remote := c.cfg.Remote
			if cmd.Flags().Changed("login") {
				remote.Login = login
			}
			if cmd.Flags().Changed("database") {
				remote.Database = database
			}
			if cmd.Flags().Changed("root") {
				remote.Root = root
			}

			opts := []connection.Option{
				connection.WithDatabase(remote.Database),
				connection.WithRootElementID(remote.Root),
			}
			return c.runImport(cmd.Context(), flags, address, opts,
				func(ctx context.Context, imp *importer.Importer) (*importer.Result, error) {
					if remote.Login == "" {
						return imp.ImportRemote(ctx, address)
					}
					return imp.ImportRemoteWithCredentials(ctx, address, remote.Login, remote.Password)
				})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&login, "login", "", "login name for basic auth")
	cmd.Flags().StringVar(&database, "database", "", "database name on multi-database servers")
	cmd.Flags().StringVar(&root, "root", "", "element id of the traversal root (default: lowest node id)")
	return cmd
}

// runImport wires the importer, runs it alongside the optional metrics
// server and renders the result.
func (c *cli) runImport(ctx context.Context, flags importFlags, target string, connOpts []connection.Option, start importFunc) error {
	cfg := c.cfg
	logger := c.slog()

	uniqueness := cfg.Import.Uniqueness
	if flags.uniqueness != "" {
		uniqueness = flags.uniqueness
	}
	u, err := traverse.ParseUniqueness(uniqueness)
	if err != nil {
		return err
	}
	metricsAddr := cfg.MetricsAddr
	if flags.metricsAddr != "" {
		metricsAddr = flags.metricsAddr
	}

	tcfg := cfg.Telemetry
	tcfg.ServiceVersion = version
	if flags.traceExporter != "" {
		tcfg.TraceExporter = flags.traceExporter
	}
	if flags.metricExporter != "" {
		tcfg.MetricExporter = flags.metricExporter
	}
	tel, err := telemetry.Init(ctx, tcfg, telemetry.WithWriter(c.stderr))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancelShutdown()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	// Bind before starting so a bad address fails the command up front.
	var listener net.Listener
	if metricsAddr != "" {
		listener, err = net.Listen("tcp", metricsAddr)
		if err != nil {
			return fmt.Errorf("metrics listener: %w", err)
		}
	}

	env := workspace.NewController(
		workspace.WithMaxNodes(cfg.Import.MaxNodes),
		workspace.WithMaxEdges(cfg.Import.MaxEdges),
	)
	connector := connection.NewManager(append([]connection.Option{connection.WithLogger(logger)}, connOpts...)...)
	imp := importer.New(env,
		importer.WithConnector(connector),
		importer.WithLogger(logger),
		importer.WithProgressSink(c.progressSink()),
		importer.WithUniqueness(u),
		importer.WithProgressInterval(cfg.Import.ProgressInterval),
		importer.WithRecorder(tel.Recorder()),
	)

	done := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)

	sigs := make(chan os.Signal, 1)
	c.notifySignals(sigs)
	defer c.stopSignals(sigs)
	g.Go(func() error {
		select {
		case sig := <-sigs:
			logger.Info("cancelling import", slog.String("signal", sig.String()))
			imp.CancelWithReason(cancel.CancelReason{Type: cancel.CancelSignal, Message: sig.String()})
		case <-done:
		}
		return nil
	})

	if listener != nil {
		srv := &http.Server{Handler: metricsMux(tel.MetricsHandler()), ReadHeaderTimeout: 5 * time.Second}
		logger.Info("serving metrics", slog.String("addr", listener.Addr().String()))
		g.Go(func() error {
			if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-done
			return srv.Shutdown(context.WithoutCancel(ctx))
		})
	}

	var res *importer.Result
	g.Go(func() error {
		defer close(done)
		var err error
		res, err = start(gctx, imp)
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return c.render(target, res, flags.output)
}

// progressSink animates a spinner on a terminal and logs progress
// otherwise.
func (c *cli) progressSink() progress.Sink {
	if c.mode == ux.ModeRich {
		return ux.NewSpinnerMode(c.stderr, ux.ModeRich, "")
	}
	return progress.NewLogSink(c.slog())
}

// metricsMux serves /metrics from the telemetry exporter when it is
// enabled and from the default Prometheus registry otherwise.
func metricsMux(handler http.Handler) *http.ServeMux {
	if handler == nil {
		handler = promhttp.Handler()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	return mux
}

// render prints the summary and writes the optional JSON export.
func (c *cli) render(target string, res *importer.Result, output string) error {
	p := c.printer()
	summary := ux.ImportSummary{
		Source:        target,
		State:         res.State.String(),
		Relationships: res.Relationships,
		Nodes:         res.Nodes,
		Edges:         res.Edges,
		Duration:      res.Duration,
		CancelReason:  res.CancelReason,
	}
	if res.Project != nil {
		summary.Project = res.Project.Name()
	}
	p.Summary(summary)
	if res.State == importer.StateCancelled {
		p.Warning("import cancelled; the partial project was kept but not opened")
	}

	if output == "" {
		return nil
	}
	project, ok := res.Project.(*workspace.Project)
	if !ok {
		return fmt.Errorf("cannot export project of type %T", res.Project)
	}
	return writeExport(c.stdout, output, project)
}

func writeExport(stdout io.Writer, path string, project *workspace.Project) error {
	if path == "-" {
		return project.WriteJSON(stdout)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open export file: %w", err)
	}
	if err := project.WriteJSON(f); err != nil {
		f.Close()
		return fmt.Errorf("write export: %w", err)
	}
	return f.Close()
}
