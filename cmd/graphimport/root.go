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
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianGraphImport/cmd/graphimport/config"
	"github.com/AleutianAI/AleutianGraphImport/pkg/logging"
	"github.com/AleutianAI/AleutianGraphImport/pkg/ux"
)

// annotationConfig set to "skip" makes setup use the built-in defaults
// instead of reading the config file.
const annotationConfig = "config"

// cli holds the state shared by all commands of one invocation.
type cli struct {
	stdout io.Writer
	stderr io.Writer

	// Persistent flags
	configPath string
	logLevel   string
	outputMode string

	cfg    *config.Config
	logger *logging.Logger
	mode   ux.Mode

	// notifySignals and stopSignals wrap signal.Notify/Stop.
	notifySignals func(c chan<- os.Signal)
	stopSignals   func(c chan<- os.Signal)
}

func newCLI(stdout, stderr io.Writer) *cli {
	return &cli{
		stdout: stdout,
		stderr: stderr,
		mode:   ux.ModeFor(stderr),
		notifySignals: func(c chan<- os.Signal) {
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		},
		stopSignals: func(c chan<- os.Signal) {
			signal.Stop(c)
		},
	}
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "graphimport",
		Short: "Import a graph database into an in-memory project",
		Long: `graphimport walks a graph database depth-first from its root node and
copies every relationship it reaches, with both endpoints, into a new
project. Local stores are read from disk; remote stores are read over Bolt.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ~/.aleutian/graphimport.yaml)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&c.outputMode, "output-mode", "", "terminal output: auto, rich, machine")

	root.AddCommand(
		c.localCommand(),
		c.remoteCommand(),
		c.seedCommand(),
		c.configCommand(),
		c.versionCommand(),
	)
	return root
}

// setup loads the configuration and builds the logger. Flags override
// file values.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	var cfg *config.Config
	if cmd.Annotations[annotationConfig] == "skip" {
		d := config.DefaultConfig()
		d.ApplyEnv(os.Getenv)
		cfg = &d
	} else {
		loaded, err := config.Load(c.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.outputMode != "" {
		cfg.Output = c.outputMode
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	mode, err := ux.ParseMode(cfg.Output, c.stderr)
	if err != nil {
		return err
	}

	c.cfg = cfg
	c.mode = mode
	c.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Log.Dir,
		Service: logging.DefaultService,
		JSON:    cfg.Log.JSON,
		Output:  c.stderr,
	})
	c.logger.Debug("configuration loaded",
		slog.String("command", cmd.Name()),
		slog.String("log_level", level.String()))
	return nil
}

// close releases resources acquired by setup.
func (c *cli) close() {
	if c.logger != nil {
		if err := c.logger.Close(); err != nil {
			fmt.Fprintf(c.stderr, "close log file: %v\n", err)
		}
	}
}

// printer writes status messages to stderr.
func (c *cli) printer() *ux.Printer {
	return ux.NewPrinterMode(c.stderr, c.mode)
}

func (c *cli) slog() *slog.Logger {
	if c.logger == nil {
		return slog.Default()
	}
	return c.logger.Slog()
}

func (c *cli) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(c.stdout, "graphimport %s\n", version)
			return err
		},
	}
}
