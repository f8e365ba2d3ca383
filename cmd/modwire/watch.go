package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/sghaida/modwire/internal/extract"
)

const debounceDelay = 300 * time.Millisecond

// watch runs a pass, then another one each time a declaration under the roots changes,
// until ctx is done. Diagnostics of a failed pass are printed and watching goes on.
func (g *generator) watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer w.Close()

	for _, root := range g.cfg.Roots {
		g.addTree(w, root)
	}

	if g.cfg.MetricsAddr != "" {
		srv := g.serveMetrics()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	g.runPass()

	trigger := make(chan struct{}, 1)
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			g.log.Info("watch stopped")
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			changed := extract.IsDeclaration(event.Name) &&
				event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
			if event.Op&fsnotify.Create != 0 {
				// declarations written before the directory is watched are only seen by a pass
				if st, err := os.Stat(event.Name); err == nil && st.IsDir() && !skipDir(st.Name()) {
					g.addTree(w, event.Name)
					changed = true
				}
			}
			if !changed {
				continue
			}
			g.log.Info("declaration changed", zap.String("file", event.Name), zap.String("operation", event.Op.String()))
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			g.log.Warn("watcher error", zap.Error(err))

		case <-trigger:
			g.runPass()
		}
	}
}

func (g *generator) runPass() {
	sum, err := g.pass()
	fields := []zap.Field{
		zap.Int("generated", sum.Generated),
		zap.Int("faulty", sum.Faulty),
		zap.Int("written", sum.Written),
	}
	if err != nil {
		g.log.Warn("pass failed", append(fields, zap.Error(err))...)
		return
	}
	g.log.Info("pass complete", fields...)
}

// addTree watches root and the directories below it that discovery does not skip.
func (g *generator) addTree(w *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && skipDir(d.Name()) {
			return fs.SkipDir
		}
		if err := w.Add(path); err != nil {
			g.log.Warn("failed to watch directory", zap.String("path", path), zap.Error(err))
		}
		return nil
	})
}

func (g *generator) serveMetrics() *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", g.metrics.Handler())
	srv := &http.Server{Addr: g.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.log.Error("metrics server failed", zap.Error(err))
		}
	}()
	g.log.Info("serving metrics", zap.String("addr", g.cfg.MetricsAddr))
	return srv
}
