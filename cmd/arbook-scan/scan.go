package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/ironsheep/arbook-tracker/internal/book"
	"github.com/ironsheep/arbook-tracker/internal/config"
	"github.com/ironsheep/arbook-tracker/internal/imaging"
	"github.com/ironsheep/arbook-tracker/internal/tracker"
)

// session is a book loaded into a tracker.
type session struct {
	book    *book.Book
	tracker *tracker.Tracker
	logger  *slog.Logger
	out     *json.Encoder
}

func openSession(c *cli.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := config.NewLogger(c.App.ErrWriter, cfg.LogLevel)

	b, err := book.Open(c.String(flagBook))
	if err != nil {
		return nil, err
	}
	tr, err := cfg.NewTracker(logger)
	if err != nil {
		return nil, err
	}
	if err := b.LoadInto(tr, imaging.NewImageCache()); err != nil {
		logger.Warn("some pages could not be loaded", "error", err)
	}
	if tr.Len() == 0 {
		return nil, fmt.Errorf("book %q has no usable page images", b.Title)
	}
	logger.Info("book loaded", "title", b.Title, "pages", tr.Len(), "provider", cfg.Provider)

	return &session{book: b, tracker: tr, logger: logger, out: json.NewEncoder(c.App.Writer)}, nil
}

// record is one output line.
type record struct {
	Frame string `json:"frame"`
	tracker.Result
	Euler *[3]float64 `json:"euler,omitempty"`
	Media []string    `json:"media,omitempty"`
	Error string      `json:"error,omitempty"`
}

// process recognizes the page in the frame at path and writes a record.
func (s *session) process(path string) error {
	rec := record{Frame: path, Result: tracker.Result{Page: tracker.NoPage, Index: -1}}

	frame, err := imaging.LoadFrame(path)
	if err != nil {
		rec.Error = err.Error()
		return multierr.Append(err, s.out.Encode(rec))
	}
	rec.Result = s.tracker.ProcessFrame(frame)
	if rec.Found {
		x, y, z := rec.EulerAngles()
		rec.Euler = &[3]float64{x, y, z}
		for _, kind := range []string{book.MediaImage, book.MediaSound, book.MediaVideo} {
			if p, ok := s.book.MediaPath(kind, rec.Page); ok {
				rec.Media = append(rec.Media, p)
			}
		}
	}
	return s.out.Encode(rec)
}

func scanAction(c *cli.Context) error {
	frames := c.Args().Slice()
	if len(frames) == 0 {
		return fmt.Errorf("scan needs at least one FRAME")
	}
	s, err := openSession(c)
	if err != nil {
		return err
	}

	failed := 0
	for _, path := range frames {
		if err := s.process(path); err != nil {
			s.logger.Error("frame failed", "frame", path, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d frames failed", failed, len(frames))
	}
	return nil
}

func inspectAction(c *cli.Context) error {
	b, err := book.Open(c.String(flagBook))
	if err != nil {
		return err
	}
	w := c.App.Writer
	fmt.Fprint(w, b.Summary())

	if !c.Bool(flagAll) {
		return nil
	}
	s, err := openSession(c)
	if err != nil {
		return err
	}
	for _, info := range s.tracker.Images() {
		fmt.Fprintf(w, "page %d: %s (%dx%d, %d keypoints)\n",
			info.Page, pagePath(b, info.Page), info.Width, info.Height, info.Keypoints)
	}
	return nil
}

func pagePath(b *book.Book, page int) string {
	for _, p := range b.Pages {
		if p.Page == page {
			return p.Path
		}
	}
	return "?"
}
