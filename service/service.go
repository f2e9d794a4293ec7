package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/storymesh/core"
	"github.com/hupe1980/storymesh/logging"
)

// Options configure the services.
type Options struct {
	Logger logging.Logger
	// Now stamps created entities and change rows; defaults to time.Now.
	Now func() time.Time
}

// Services bundles the entity services sharing one store.
type Services struct {
	Stories       *StoryService
	Characters    *CharacterService
	Locations     *LocationService
	Relationships *RelationshipService
	Events        *EventService
}

// New creates the services over store.
func New(store core.Store, optFns ...func(o *Options)) *Services {
	opts := Options{Logger: logging.NoOpLogger{}, Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	logger := logging.OrNoOp(opts.Logger)
	if sl, ok := logger.(*logging.StoryLogger); ok {
		logger = sl.WithComponent("service")
	}

	b := base{store: store, logger: logger, now: func() time.Time { return opts.Now().UTC() }}
	return &Services{
		Stories:       &StoryService{base: b},
		Characters:    &CharacterService{base: b},
		Locations:     &LocationService{base: b},
		Relationships: &RelationshipService{base: b},
		Events:        &EventService{base: b},
	}
}

type base struct {
	store  core.Store
	logger logging.Logger
	now    func() time.Time
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", core.ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid("%s is required", field)
	}
	return nil
}

// must loads an entity through get and turns absence into a NotFoundError.
func must[T any](ctx context.Context, entity, id string, get func(context.Context, string) (*T, error)) (*T, error) {
	v, err := get(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, core.NewNotFoundError(entity, id)
	}
	return v, nil
}
