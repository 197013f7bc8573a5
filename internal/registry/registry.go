// Package registry maps node types to the strategies that execute them.
package registry

import (
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"github.com/avi3tal/infograph/pkg/strategies"
	"github.com/avi3tal/infograph/pkg/types"
)

var (
	// ErrUnknownStrategyType is returned when no strategy is registered for a node type
	ErrUnknownStrategyType = errors.New("unknown strategy type")

	// ErrRegistrySealed is returned when registering after the registry was sealed
	ErrRegistrySealed = errors.New("registry is sealed")

	// ErrWrongVariant is returned when a factory is registered through the wrong method
	ErrWrongVariant = errors.New("wrong strategy variant for node type")

	// ErrNilFactory is returned when registering a nil factory
	ErrNilFactory = errors.New("nil strategy factory")
)

// Option configures a Registry
type Option func(*Registry)

// WithLogger sets the logger used for registration warnings
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// Registry is the table of strategy constructors. It is built before any
// execution and sealed once handed to a coordinator.
type Registry struct {
	mu             sync.RWMutex
	factories      map[types.NodeType]strategies.Factory
	crossReference strategies.CrossReferenceFactory
	sealed         bool
	logger         *slog.Logger
}

func New(opts ...Option) *Registry {
	r := &Registry{
		factories: make(map[types.NodeType]strategies.Factory),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register binds a factory to a non cross_reference node type. Registering a
// type twice replaces the earlier factory.
func (r *Registry) Register(nodeType types.NodeType, factory strategies.Factory) error {
	if !nodeType.Valid() {
		return errors.Wrapf(ErrUnknownStrategyType, "register %q", nodeType)
	}
	if nodeType == types.NodeTypeCrossReference {
		return errors.Wrap(ErrWrongVariant, "use RegisterCrossReference for cross_reference")
	}
	if factory == nil {
		return errors.Wrapf(ErrNilFactory, "register %s", nodeType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return errors.Wrapf(ErrRegistrySealed, "register %s", nodeType)
	}
	if _, exists := r.factories[nodeType]; exists {
		r.logger.Warn("Overwriting registered strategy.", "nodeType", nodeType)
	}
	r.factories[nodeType] = factory
	return nil
}

// RegisterCrossReference binds the factory for cross_reference nodes.
func (r *Registry) RegisterCrossReference(factory strategies.CrossReferenceFactory) error {
	if factory == nil {
		return errors.Wrapf(ErrNilFactory, "register %s", types.NodeTypeCrossReference)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return errors.Wrapf(ErrRegistrySealed, "register %s", types.NodeTypeCrossReference)
	}
	if r.crossReference != nil {
		r.logger.Warn("Overwriting registered strategy.", "nodeType", types.NodeTypeCrossReference)
	}
	r.crossReference = factory
	return nil
}

// Get constructs a strategy for nodeType.
func (r *Registry) Get(nodeType types.NodeType) (strategies.Strategy, error) {
	if nodeType == types.NodeTypeCrossReference {
		return nil, errors.Wrap(ErrWrongVariant, "use GetCrossReference for cross_reference")
	}

	r.mu.RLock()
	factory, ok := r.factories[nodeType]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.Wrapf(ErrUnknownStrategyType, "%q", nodeType)
	}
	return factory(), nil
}

// GetCrossReference constructs the cross_reference strategy.
func (r *Registry) GetCrossReference() (strategies.CrossReferenceStrategy, error) {
	r.mu.RLock()
	factory := r.crossReference
	r.mu.RUnlock()

	if factory == nil {
		return nil, errors.Wrapf(ErrUnknownStrategyType, "%q", types.NodeTypeCrossReference)
	}
	return factory(), nil
}

// Has reports whether a strategy is registered for nodeType.
func (r *Registry) Has(nodeType types.NodeType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if nodeType == types.NodeTypeCrossReference {
		return r.crossReference != nil
	}
	_, ok := r.factories[nodeType]
	return ok
}

// Validate checks that every required node type has a strategy. With no
// arguments every known node type is required.
func (r *Registry) Validate(required ...types.NodeType) error {
	if len(required) == 0 {
		required = types.AllNodeTypes()
	}

	var missing []types.NodeType
	for _, t := range required {
		if !r.Has(t) {
			missing = append(missing, t)
		}
	}
	if len(missing) > 0 {
		return errors.Wrapf(ErrUnknownStrategyType, "no strategy registered for %v", missing)
	}
	return nil
}

// Seal freezes the registry. Further registrations fail with ErrRegistrySealed.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}
