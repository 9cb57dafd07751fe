// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/jeranaias/mdsplit/internal/document"
	"github.com/jeranaias/mdsplit/internal/logging"
	"github.com/jeranaias/mdsplit/internal/server"
	"github.com/jeranaias/mdsplit/internal/watch"
)

// shutdownTimeout bounds the graceful shutdown of the preview server.
const shutdownTimeout = 5 * time.Second

func (a *app) serveCommand() *cobra.Command {
	var (
		port    int
		noWatch bool
	)

	cmd := &cobra.Command{
		Use:   "serve [file]",
		Short: "Serve a live preview of a Markdown file",
		Long: `Serve a rendered preview of a Markdown file on localhost.

Preview mode starts on. The page reloads itself when the document, its
modes or a diagram change; the file is reloaded when it changes on disk.`,
		Example: `  mdsplit serve notes.md
  mdsplit serve notes.md --port 9000`,
		Args: maxArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return a.runServe(cmd, path, port, noWatch)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default server.port)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not reload the file when it changes on disk")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command, path string, port int, noWatch bool) error {
	doc, err := a.loadDocument(path)
	if err != nil {
		return err
	}
	doc.SetPreviewMode(true)

	opts, err := a.exportOptions()
	if err != nil {
		return err
	}

	diagrams := a.newDiagramSet()
	if diagrams != nil {
		defer diagrams.Close()
	}

	server.Version = Version
	srv := server.NewServer(doc, a.newRenderer(), diagrams).
		WithConfig(a.cfg).
		WithExportOptions(opts)
	if cmd.Flags().Changed("port") {
		srv.WithPort(port)
	}

	var watcher watch.FileWatcher
	if doc.Path() != "" && a.cfg.Editor.WatchFile && !noWatch {
		watcher = a.watchDocument(doc)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	fmt.Fprintf(cmd.OutOrStdout(), "%s Serving %s at http://%s (Ctrl+C to stop)\n",
		SuccessStyle.Render("[OK]"), doc.Title(), srv.Addr())

	var startErr error
	stopped := false
	select {
	case startErr = <-errCh:
		stopped = true
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err = multierr.Combine(startErr, srv.Shutdown(shutdownCtx))
	if !stopped {
		select {
		case serr := <-errCh:
			err = multierr.Append(err, serr)
		case <-shutdownCtx.Done():
		}
	}
	if watcher != nil {
		err = multierr.Append(err, watcher.Close())
	}
	if err != nil {
		return NewCommandError("serve", srv.Addr(), err)
	}
	return nil
}

// watchDocument reloads doc when its file changes on disk. A dirty buffer
// is kept.
func (a *app) watchDocument(doc *document.Document) watch.FileWatcher {
	log := logging.Get()
	w := watch.New(doc.Path(), watch.DefaultDebounce, func(path string) {
		changed, err := doc.Reload(a.maxFileSize())
		switch {
		case errors.Is(err, document.ErrUnsavedChanges):
			log.Warn("file changed on disk; keeping unsaved edits", zap.String("path", path))
		case err != nil:
			log.Warn("reload failed", zap.String("path", path), zap.Error(err))
		case changed:
			log.Info("document reloaded", zap.String("path", path))
		}
	})
	if err := w.Watch(); err != nil {
		log.Warn("file watch unavailable", zap.String("path", doc.Path()), zap.Error(err))
		_ = w.Close()
		return nil
	}
	return w
}
