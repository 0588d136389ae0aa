package links

import (
	"errors"

	"github.com/sgahlot/signalctx/internal/config"
)

// Set holds the link builders that are configured. Either field may be nil.
type Set struct {
	Console *Console
	Traces  *Traces
}

// FromConfig builds the configured link builders. Unset base URLs leave the
// matching builder nil; malformed ones are an error.
func FromConfig(cfg config.LinksConfig) (Set, error) {
	var s Set
	if cfg.ConsoleURL != "" {
		c, err := NewConsole(cfg.ConsoleURL)
		if err != nil {
			return Set{}, err
		}
		s.Console = c
	}
	t, err := NewTraces(TracesOptions{
		ViewerURL:    cfg.TraceViewerURL,
		DashboardURL: cfg.DashboardURL,
		Datasource:   cfg.TraceDatasource,
	})
	switch {
	case err == nil:
		s.Traces = t
	case !errors.Is(err, ErrNotConfigured):
		return Set{}, err
	}
	return s, nil
}
