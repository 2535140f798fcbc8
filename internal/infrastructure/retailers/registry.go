package retailers

import (
	"fmt"
	"regexp"

	"github.com/thamani/backend/internal/domain"
	"github.com/thamani/backend/internal/infrastructure/antibot"
)

// Title cleanup patterns shared by extractors. Retail sites fold price,
// discount and review fragments into listing titles.
var (
	priceFragmentRegex   = regexp.MustCompile(`(?i)(KSh|KES)\s*[\d,]+(\.\d+)?`)
	percentFragmentRegex = regexp.MustCompile(`\d+%`)
	reviewFragmentRegex  = regexp.MustCompile(`\(\d+\)|\d+\s*out\s*of\s*\d+`)
)

type constructor func(rot *antibot.Rotator, opts Options) *Adapter

var constructors = map[string]constructor{
	"jumia":    NewJumia,
	"kilimall": NewKilimall,
	"jiji":     NewJiji,
	"masoko":   NewMasoko,
}

// New creates the adapter for a retailer by name.
func New(name string, rot *antibot.Rotator, opts Options) (domain.RetailerAdapter, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRetailer, name)
	}
	return ctor(rot, opts), nil
}

// FromNames creates adapters for the named retailers, preserving order.
func FromNames(names []string, rot *antibot.Rotator, opts Options) ([]domain.RetailerAdapter, error) {
	adapters := make([]domain.RetailerAdapter, 0, len(names))
	for _, name := range names {
		a, err := New(name, rot, opts)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}

// Known returns the names of all retailers with a registered adapter.
func Known() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	return names
}
