package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/nbyapp/nbyapp/internal/app"
)

// Exporter writes the files of a generated app somewhere outside the store.
// Export failures never abort a generation.
type Exporter interface {
	// Export writes files under a location namespaced by appID and returns that location
	Export(ctx context.Context, appID string, files []app.File) (string, error)
	Name() string
}

// Multi runs exporters in order and joins their errors
type Multi []Exporter

// Name returns the exporter name
func (m Multi) Name() string {
	return "multi"
}

// Export runs every exporter even when an earlier one fails
func (m Multi) Export(ctx context.Context, appID string, files []app.File) (string, error) {
	var (
		first string
		errs  []error
	)
	for _, e := range m {
		loc, err := e.Export(ctx, appID, files)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
			continue
		}
		if first == "" {
			first = loc
		}
	}
	return first, errors.Join(errs...)
}
