// Package compose arranges remote components into a host view. Every region
// is wrapped in its own suspension boundary, so regions show their fallback
// and resolve independently of one another.
package compose

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"fedhost/internal/data"
	"fedhost/internal/metrics"
	"fedhost/internal/ui"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Region is one independently suspending slot of the layout.
type Region struct {
	ID    string
	Ref   data.ComponentRef
	Props data.Props
	// Class is applied to the region's wrapper element.
	Class string
	// Fallback is shown while the region loads; nil uses DefaultFallback.
	Fallback ui.Renderable
}

// ErrorHandler receives each region failure exactly once.
type ErrorHandler interface {
	HandleRegionError(region string, ref data.ComponentRef, err error)
}

type ErrorHandlerFunc func(region string, ref data.ComponentRef, err error)

func (f ErrorHandlerFunc) HandleRegionError(region string, ref data.ComponentRef, err error) {
	f(region, ref, err)
}

// Root declares which components are composed and in what order. It has no
// network awareness; loading is delegated to the resolver.
type Root struct {
	resolver ui.Resolver
	regions  []Region
	class    string
	onError  ErrorHandler
	verbose  bool
	logger   *zap.Logger
	metrics  *metrics.Collector
	now      func() time.Time
	newID    func() string
}

type Option func(*Root)

// WithClass sets the class of the root element.
func WithClass(class string) Option {
	return func(r *Root) { r.class = class }
}

func WithErrorHandler(h ErrorHandler) Option {
	return func(r *Root) { r.onError = h }
}

// WithVerboseErrors shows full error text in failed regions.
func WithVerboseErrors(v bool) Option {
	return func(r *Root) { r.verbose = v }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Root) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithMetrics(m *metrics.Collector) Option {
	return func(r *Root) { r.metrics = m }
}

var regionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// NewRoot validates the layout. Region IDs must be unique and made of
// letters, digits, '-' and '_'.
func NewRoot(resolver ui.Resolver, regions []Region, opts ...Option) (*Root, error) {
	if resolver == nil {
		return nil, errors.New("compose: nil resolver")
	}
	seen := make(map[string]struct{}, len(regions))
	for i, reg := range regions {
		if reg.ID == "" {
			return nil, fmt.Errorf("compose: region %d has no id", i)
		}
		if !regionIDPattern.MatchString(reg.ID) {
			return nil, fmt.Errorf("compose: invalid region id %q", reg.ID)
		}
		if _, dup := seen[reg.ID]; dup {
			return nil, fmt.Errorf("compose: duplicate region %q", reg.ID)
		}
		seen[reg.ID] = struct{}{}
		if reg.Ref.Remote == "" || reg.Ref.Export == "" {
			return nil, fmt.Errorf("compose: region %q has an incomplete component reference", reg.ID)
		}
	}

	r := &Root{
		resolver: resolver,
		regions:  append([]Region(nil), regions...),
		class:    "p-4",
		logger:   zap.NewNop(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, apply := range opts {
		if apply != nil {
			apply(r)
		}
	}
	r.logger = r.logger.Named("compose")
	return r, nil
}

func (r *Root) Regions() []Region {
	return append([]Region(nil), r.regions...)
}

// DefaultFallback is a loading spinner.
func DefaultFallback() ui.Renderable {
	return ui.Element("div", map[string]string{"class": "flex justify-center p-4"},
		ui.Element("div", map[string]string{
			"class":      "animate-spin rounded-full h-8 w-8 border-b-2 border-gray-900",
			"role":       "status",
			"aria-label": "Loading",
		}),
	)
}
