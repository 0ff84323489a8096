package book

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/ironsheep/arbook-tracker/internal/imaging"
	"github.com/ironsheep/arbook-tracker/internal/tracker"
)

// LoadInto replaces the tracker's training set with the book's page images
// and finalizes it. Pages that fail to load are skipped; their errors are
// combined in the returned error, and the remaining pages stay usable.
func (b *Book) LoadInto(tr *tracker.Tracker, cache *imaging.ImageCache) error {
	tr.Clear()
	var errs error
	for _, p := range b.Pages {
		frame, err := cache.LoadFrame(p.Path)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("page %d: %w", p.Page, err))
			continue
		}
		if err := tr.Register(frame, p.Page); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("page %d: %w", p.Page, err))
		}
	}
	tr.Finalize()
	return errs
}
