package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v2"
)

var frameExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".bmp": true,
	".gif": true, ".tif": true, ".tiff": true, ".webp": true,
}

func watchAction(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return err
	}
	dir := c.String(flagFrames)
	s.logger.Info("watching for frames", "dir", dir, "settle", c.Duration(flagSettle))
	return watchFrames(c.Context, dir, c.Duration(flagSettle), nil, func(path string) {
		if err := s.process(path); err != nil {
			s.logger.Warn("frame skipped", "frame", path, "error", err)
		}
	})
}

// watchFrames calls handle for every image file created or written in dir
// until ctx is done. A file is handled once no event has been seen for it
// for settle, so the several writes that make up one file yield one call.
// ready, if set, is called once the watch is in place. handle runs on the
// calling goroutine.
func watchFrames(ctx context.Context, dir string, settle time.Duration, ready func(), handle func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	if ready != nil {
		ready()
	}

	type settledFile struct {
		name string
		gen  int
	}
	type pendingFile struct {
		timer *time.Timer
		gen   int
	}
	pending := make(map[string]pendingFile)
	settled := make(chan settledFile)
	done := make(chan struct{})
	defer func() {
		close(done)
		for _, p := range pending {
			p.timer.Stop()
		}
	}()

	gen := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !frameExts[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			if p, ok := pending[event.Name]; ok {
				p.timer.Stop()
			}
			gen++
			f := settledFile{name: event.Name, gen: gen}
			pending[f.name] = pendingFile{gen: f.gen, timer: time.AfterFunc(settle, func() {
				select {
				case settled <- f:
				case <-done:
				}
			})}
		case f := <-settled:
			// A later event for the same file restarted its timer.
			if p, ok := pending[f.name]; !ok || p.gen != f.gen {
				continue
			}
			delete(pending, f.name)
			handle(f.name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
}
