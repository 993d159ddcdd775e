// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/AleutianAI/AleutianGraphImport/pkg/telemetry"
	"github.com/AleutianAI/AleutianGraphImport/services/importer/cancel"
	"github.com/AleutianAI/AleutianGraphImport/services/importer/convert"
	"github.com/AleutianAI/AleutianGraphImport/services/importer/destination"
	"github.com/AleutianAI/AleutianGraphImport/services/importer/progress"
	"github.com/AleutianAI/AleutianGraphImport/services/importer/source"
	"github.com/AleutianAI/AleutianGraphImport/services/importer/traverse"
)

// ImportLocal imports the embedded store at path.
//
// Outputs:
//
//	*Result - StateDone or StateCancelled summary.
//	error - *source.ConnectionError if the store cannot be opened, or a
//	transaction, traversal or destination error. State() is StateFailed.
func (i *Importer) ImportLocal(ctx context.Context, path string) (*Result, error) {
	return i.run(ctx, "local", path, DisplayNameLocal, func(ctx context.Context) (source.Store, error) {
		return i.connector.ConnectLocal(ctx, path)
	})
}

// ImportRemote imports a remote store without authentication.
//
// A malformed address fails with *source.AddressFormatError before any
// connection is attempted.
func (i *Importer) ImportRemote(ctx context.Context, address string) (*Result, error) {
	return i.run(ctx, "remote", address, DisplayNameRemote, func(ctx context.Context) (source.Store, error) {
		return i.connector.ConnectRemote(ctx, address)
	})
}

// ImportRemoteWithCredentials imports a remote store with basic auth.
func (i *Importer) ImportRemoteWithCredentials(ctx context.Context, address, login, password string) (*Result, error) {
	return i.run(ctx, "remote", address, DisplayNameRemote, func(ctx context.Context) (source.Store, error) {
		return i.connector.ConnectRemoteWithCredentials(ctx, address, login, password)
	})
}

type connectFunc func(ctx context.Context) (source.Store, error)

// run drives one import through its states.
//
// Description:
//
//	The caller's ctx bounds connecting. Once connected, ctx ending acts
//	as a cancellation request: the store work continues under a context
//	that is never cancelled, so the transaction and connection are always
//	released, and the walk stops at the next relationship boundary.
func (i *Importer) run(ctx context.Context, kind, target, displayName string, connect connectFunc) (*Result, error) {
	tok, sink, err := i.begin()
	if err != nil {
		return nil, err
	}
	defer i.end()

	start := time.Now()
	ctx, run := i.recorder.StartImport(ctx, kind, target)
	// A panic unwinding through the store defers must not leave the
	// importer in a working state.
	defer func() {
		if !i.State().Terminal() {
			i.setState(StateFailed)
			run.End(ctx, telemetry.ImportOutcome{State: StateFailed.String(), Err: errAborted})
		}
	}()
	logger := telemetry.LoggerWithTrace(ctx, i.logger).With(
		slog.String("kind", kind),
		slog.String("target", target),
	)

	sink.SetDisplayName(displayName)
	sink.Start()
	defer sink.Finish()

	stopWatch := tok.Watch(ctx)
	defer stopWatch()

	res := &Result{}
	fail := func(err error) (*Result, error) {
		i.setState(StateFailed)
		run.End(ctx, outcome(StateFailed, res, err))
		logger.Error("import failed", slog.String("error", err.Error()))
		return nil, err
	}

	i.setState(StateConnecting)
	store, err := connect(ctx)
	if err != nil {
		return fail(err)
	}

	workCtx := context.WithoutCancel(ctx)
	cancelled, err := i.importStore(workCtx, logger, store, tok, sink, res)
	if err != nil {
		return fail(err)
	}

	res.Duration = time.Since(start)
	if cancelled {
		reason, _ := tok.Reason()
		res.State = StateCancelled
		res.CancelReason = reason.String()
		i.setState(StateCancelled)
		logger.Warn("import cancelled",
			slog.String("reason", res.CancelReason),
			slog.Int("relationships", res.Relationships),
			slog.Int("nodes", res.Nodes),
			slog.Int("edges", res.Edges))
	} else {
		res.Workspace = i.showWorkspace(res)
		res.State = StateDone
		i.setState(StateDone)
		logger.Info("import complete",
			slog.Int("relationships", res.Relationships),
			slog.Int("nodes", res.Nodes),
			slog.Int("edges", res.Edges),
			slog.Duration("duration", res.Duration))
	}

	run.End(ctx, outcome(res.State, res, nil))
	return res, nil
}

// errAborted marks a run that left without reaching a terminal state.
var errAborted = errors.New("import aborted")

func outcome(state State, res *Result, err error) telemetry.ImportOutcome {
	return telemetry.ImportOutcome{
		State:         state.String(),
		Relationships: res.Relationships,
		Nodes:         res.Nodes,
		Edges:         res.Edges,
		Err:           err,
	}
}

// importStore runs the transactional part of an import and always shuts
// the store down.
func (i *Importer) importStore(ctx context.Context, logger *slog.Logger, store source.Store, tok *cancel.Token, sink progress.Sink, res *Result) (cancelled bool, err error) {
	defer func() {
		i.setState(StateClosing)
		if serr := store.Shutdown(ctx); serr != nil {
			logger.Warn("store shutdown failed", slog.String("error", serr.Error()))
		}
	}()

	tx, err := store.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	i.setState(StateTransactionOpen)

	// walked stays false while a panic unwinds, so the transaction is
	// rolled back.
	walked := false
	defer func() {
		i.setState(StateClosing)
		if walked && err == nil {
			tx.MarkSuccess()
		}
		if ferr := tx.Finish(ctx); ferr != nil {
			err = errors.Join(err, fmt.Errorf("finish transaction: %w", ferr))
		}
	}()

	project := i.env.CreateNewProject()
	res.Project = project
	conv := convert.New(project.Graph())

	i.setState(StateTraversing)
	cancelled, err = i.walk(ctx, logger, tx, conv, tok, sink, res)
	walked = true
	return cancelled, err
}

// walk converts relationships until the walk ends or the token fires.
func (i *Importer) walk(ctx context.Context, logger *slog.Logger, tx source.Tx, conv *convert.Convertor, tok *cancel.Token, sink progress.Sink, res *Result) (bool, error) {
	cur, err := traverse.New(tx, traverse.Options{Uniqueness: i.uniqueness, Logger: logger}).Relationships(ctx)
	if err != nil {
		return false, fmt.Errorf("traverse: %w", err)
	}

	report := rate.Sometimes{First: 1, Interval: i.progressEvery}
	defer func() {
		res.Nodes, res.Edges = conv.NodeCount(), conv.EdgeCount()
		progress.Report(sink, res.Relationships, res.Nodes, res.Edges)
	}()

	for {
		if tok.Cancelled() {
			return true, nil
		}
		if !cur.Next(ctx) {
			break
		}
		if _, err := conv.CreateEdge(cur.Relationship()); err != nil {
			return false, fmt.Errorf("convert relationship %s: %w", cur.Relationship().ID, err)
		}
		res.Relationships++

		report.Do(func() {
			progress.Report(sink, res.Relationships, conv.NodeCount(), conv.EdgeCount())
			logger.Debug("import progress",
				slog.Int("relationships", res.Relationships),
				slog.Int("nodes", conv.NodeCount()))
		})
	}
	if err := cur.Err(); err != nil {
		return false, fmt.Errorf("traverse: %w", err)
	}
	return false, nil
}

// showWorkspace opens the current workspace, creating one on the imported
// project if there is none.
func (i *Importer) showWorkspace(res *Result) destination.Workspace {
	ws := i.env.CurrentWorkspace()
	if ws == nil {
		ws = i.env.CreateWorkspace(res.Project)
	}
	i.env.OpenWorkspace(ws)
	return ws
}
