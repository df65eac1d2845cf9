package property

import (
	"context"

	"github.com/rs/zerolog"
)

// Resolver merges configuration layers into the effective Config.
type Resolver struct {
	source Source
	log    zerolog.Logger
}

// NewResolver creates a resolver over the given source.
func NewResolver(source Source, log zerolog.Logger) *Resolver {
	return &Resolver{source: source, log: log}
}

// Resolve returns the effective configuration for an access code and property
// id. Precedence, lowest first: defaults, the propertyId entry, the code entry.
// Empty code or propertyId skip their layer. An unreadable store resolves to
// the defaults.
func (r *Resolver) Resolve(ctx context.Context, code, propertyID string) Config {
	if r == nil || r.source == nil {
		return Defaults()
	}

	doc, err := r.source.Load(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("property configuration unreadable, using defaults")
		return Defaults()
	}
	for _, entry := range doc.Skipped {
		r.log.Warn().Str("entry", entry).Msg("ignoring invalid property configuration entry")
	}

	return Merge(doc, code, propertyID)
}

// Merge applies the layering rules to a document snapshot. The document is
// not modified.
func Merge(doc Document, code, propertyID string) Config {
	merged := doc.Defaults
	if propertyID != "" {
		if layer, ok := doc.ByPropertyID[propertyID]; ok {
			merged = merged.Overlay(layer)
		}
	}
	if code != "" {
		if layer, ok := doc.ByCode[code]; ok {
			merged = merged.Overlay(layer)
		}
	}
	return merged.materialize()
}
