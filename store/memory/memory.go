// Package memory provides a process-local core.Store. Committed state is an
// immutable snapshot: every write, transactional or not, copies the snapshot,
// applies the change to the copy and publishes it. Readers never block and a
// failed transaction simply drops its copy.
//
// Suitable for tests, examples and single-process deployments.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/storymesh/core"
)

type data struct {
	stories  map[string]*core.Story
	storyIDs []string

	sections map[string][]*core.StorySection // story id -> sections by order

	characters       map[string]*core.Character
	charactersBy     map[string][]string // story id -> character ids
	characterChanges map[string][]*core.CharacterChange

	locations       map[string]*core.Location
	locationsBy     map[string][]string
	locationChanges map[string][]*core.LocationChange

	relationships       map[string]*core.EntityRelationship
	relationshipsBy     map[string][]string
	relationshipChanges map[string][]*core.RelationshipChange

	events       map[string]*core.Event
	eventsBy     map[string][]string
	participants map[string][]*core.EventParticipant
}

func newData() *data {
	return &data{
		stories:             map[string]*core.Story{},
		sections:            map[string][]*core.StorySection{},
		characters:          map[string]*core.Character{},
		charactersBy:        map[string][]string{},
		characterChanges:    map[string][]*core.CharacterChange{},
		locations:           map[string]*core.Location{},
		locationsBy:         map[string][]string{},
		locationChanges:     map[string][]*core.LocationChange{},
		relationships:       map[string]*core.EntityRelationship{},
		relationshipsBy:     map[string][]string{},
		relationshipChanges: map[string][]*core.RelationshipChange{},
		events:              map[string]*core.Event{},
		eventsBy:            map[string][]string{},
		participants:        map[string][]*core.EventParticipant{},
	}
}

// clone copies the containers. Entities are never mutated in place once
// published, so they are shared.
func (d *data) clone() *data {
	return &data{
		stories:             maps.Clone(d.stories),
		storyIDs:            slices.Clip(d.storyIDs),
		sections:            maps.Clone(d.sections),
		characters:          maps.Clone(d.characters),
		charactersBy:        maps.Clone(d.charactersBy),
		characterChanges:    maps.Clone(d.characterChanges),
		locations:           maps.Clone(d.locations),
		locationsBy:         maps.Clone(d.locationsBy),
		locationChanges:     maps.Clone(d.locationChanges),
		relationships:       maps.Clone(d.relationships),
		relationshipsBy:     maps.Clone(d.relationshipsBy),
		relationshipChanges: maps.Clone(d.relationshipChanges),
		events:              maps.Clone(d.events),
		eventsBy:            maps.Clone(d.eventsBy),
		participants:        maps.Clone(d.participants),
	}
}

// appendCopy appends v without writing into a backing array another snapshot
// may share.
func appendCopy[T any](s []T, v T) []T {
	return append(slices.Clip(s), v)
}

// Store is the in-memory core.Store.
type Store struct {
	writeMu sync.Mutex
	cur     atomic.Pointer[data]
	now     func() time.Time
}

// Options configure the in-memory store.
type Options struct {
	// Now stamps entities created without a timestamp; defaults to time.Now.
	Now func() time.Time
}

// New creates an empty store.
func New(optFns ...func(o *Options)) *Store {
	opts := Options{Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	s := &Store{now: opts.Now}
	s.cur.Store(newData())
	return s
}

var _ core.Store = (*Store)(nil)

func (s *Store) view() *repo { return &repo{d: s.cur.Load(), now: s.now} }

// InTx runs fn against a private copy of the current snapshot and publishes
// the copy when fn succeeds. Transactions are serialised.
func (s *Store) InTx(ctx context.Context, fn func(r core.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	r := &repo{d: s.cur.Load().clone(), now: s.now}
	if err := fn(r); err != nil {
		return err
	}
	s.cur.Store(r.d)
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// CreateStory implements core.Repository.
func (s *Store) CreateStory(ctx context.Context, story *core.Story) error {
	return s.mutate(ctx, func(r *repo) error { return r.CreateStory(ctx, story) })
}

// GetStory implements core.Repository.
func (s *Store) GetStory(ctx context.Context, id string) (*core.Story, error) {
	return s.view().GetStory(ctx, id)
}

// ListStories implements core.Repository.
func (s *Store) ListStories(ctx context.Context) ([]*core.Story, error) {
	return s.view().ListStories(ctx)
}

// CreateSection implements core.Repository.
func (s *Store) CreateSection(ctx context.Context, section *core.StorySection) error {
	return s.mutate(ctx, func(r *repo) error { return r.CreateSection(ctx, section) })
}

// ListSections implements core.Repository.
func (s *Store) ListSections(ctx context.Context, storyID string) ([]*core.StorySection, error) {
	return s.view().ListSections(ctx, storyID)
}

// MaxSectionOrder implements core.Repository.
func (s *Store) MaxSectionOrder(ctx context.Context, storyID string) (int, error) {
	return s.view().MaxSectionOrder(ctx, storyID)
}

// CreateCharacter implements core.Repository.
func (s *Store) CreateCharacter(ctx context.Context, c *core.Character) error {
	return s.mutate(ctx, func(r *repo) error { return r.CreateCharacter(ctx, c) })
}

// GetCharacter implements core.Repository.
func (s *Store) GetCharacter(ctx context.Context, id string) (*core.Character, error) {
	return s.view().GetCharacter(ctx, id)
}

// ListCharacters implements core.Repository.
func (s *Store) ListCharacters(ctx context.Context, storyID string) ([]*core.Character, error) {
	return s.view().ListCharacters(ctx, storyID)
}

// UpdateCharacter implements core.Repository.
func (s *Store) UpdateCharacter(ctx context.Context, c *core.Character) error {
	return s.mutate(ctx, func(r *repo) error { return r.UpdateCharacter(ctx, c) })
}

// CreateCharacterChange implements core.Repository.
func (s *Store) CreateCharacterChange(ctx context.Context, ch *core.CharacterChange) error {
	return s.mutate(ctx, func(r *repo) error { return r.CreateCharacterChange(ctx, ch) })
}

// ListCharacterChanges implements core.Repository.
func (s *Store) ListCharacterChanges(ctx context.Context, characterID string, limit int) ([]*core.CharacterChange, error) {
	return s.view().ListCharacterChanges(ctx, characterID, limit)
}

// CreateLocation implements core.Repository.
func (s *Store) CreateLocation(ctx context.Context, l *core.Location) error {
	return s.mutate(ctx, func(r *repo) error { return r.CreateLocation(ctx, l) })
}

// GetLocation implements core.Repository.
func (s *Store) GetLocation(ctx context.Context, id string) (*core.Location, error) {
	return s.view().GetLocation(ctx, id)
}

// ListLocations implements core.Repository.
func (s *Store) ListLocations(ctx context.Context, storyID string) ([]*core.Location, error) {
	return s.view().ListLocations(ctx, storyID)
}

// UpdateLocation implements core.Repository.
func (s *Store) UpdateLocation(ctx context.Context, l *core.Location) error {
	return s.mutate(ctx, func(r *repo) error { return r.UpdateLocation(ctx, l) })
}

// CreateLocationChange implements core.Repository.
func (s *Store) CreateLocationChange(ctx context.Context, ch *core.LocationChange) error {
	return s.mutate(ctx, func(r *repo) error { return r.CreateLocationChange(ctx, ch) })
}

// ListLocationChanges implements core.Repository.
func (s *Store) ListLocationChanges(ctx context.Context, locationID string, limit int) ([]*core.LocationChange, error) {
	return s.view().ListLocationChanges(ctx, locationID, limit)
}

// CreateRelationship implements core.Repository.
func (s *Store) CreateRelationship(ctx context.Context, rel *core.EntityRelationship) error {
	return s.mutate(ctx, func(r *repo) error { return r.CreateRelationship(ctx, rel) })
}

// GetRelationship implements core.Repository.
func (s *Store) GetRelationship(ctx context.Context, id string) (*core.EntityRelationship, error) {
	return s.view().GetRelationship(ctx, id)
}

// ListRelationships implements core.Repository.
func (s *Store) ListRelationships(ctx context.Context, storyID string) ([]*core.EntityRelationship, error) {
	return s.view().ListRelationships(ctx, storyID)
}

// UpdateRelationship implements core.Repository.
func (s *Store) UpdateRelationship(ctx context.Context, rel *core.EntityRelationship) error {
	return s.mutate(ctx, func(r *repo) error { return r.UpdateRelationship(ctx, rel) })
}

// CreateRelationshipChange implements core.Repository.
func (s *Store) CreateRelationshipChange(ctx context.Context, ch *core.RelationshipChange) error {
	return s.mutate(ctx, func(r *repo) error { return r.CreateRelationshipChange(ctx, ch) })
}

// ListRelationshipChanges implements core.Repository.
func (s *Store) ListRelationshipChanges(ctx context.Context, relationshipID string, limit int) ([]*core.RelationshipChange, error) {
	return s.view().ListRelationshipChanges(ctx, relationshipID, limit)
}

// CreateEvent implements core.Repository.
func (s *Store) CreateEvent(ctx context.Context, e *core.Event) error {
	return s.mutate(ctx, func(r *repo) error { return r.CreateEvent(ctx, e) })
}

// GetEvent implements core.Repository.
func (s *Store) GetEvent(ctx context.Context, id string) (*core.Event, error) {
	return s.view().GetEvent(ctx, id)
}

// ListEvents implements core.Repository.
func (s *Store) ListEvents(ctx context.Context, storyID string) ([]*core.Event, error) {
	return s.view().ListEvents(ctx, storyID)
}

// AddEventParticipant implements core.Repository.
func (s *Store) AddEventParticipant(ctx context.Context, p *core.EventParticipant) error {
	return s.mutate(ctx, func(r *repo) error { return r.AddEventParticipant(ctx, p) })
}

// ListEventParticipants implements core.Repository.
func (s *Store) ListEventParticipants(ctx context.Context, eventID string) ([]*core.EventParticipant, error) {
	return s.view().ListEventParticipants(ctx, eventID)
}

func (s *Store) mutate(ctx context.Context, fn func(r *repo) error) error {
	return s.InTx(ctx, func(r core.Repository) error { return fn(r.(*repo)) })
}

// repo implements core.Repository over one snapshot. Inside InTx the snapshot
// is private to the transaction; outside it is read-only.
type repo struct {
	d   *data
	now func() time.Time
}

var _ core.Repository = (*repo)(nil)

func (r *repo) stamp(t *time.Time) {
	if t.IsZero() {
		*t = r.now().UTC()
	}
}

func duplicate(entity, id string) error {
	return core.NewStorageError("create "+entity, fmt.Errorf("duplicate id %q", id))
}

func (r *repo) CreateStory(_ context.Context, story *core.Story) error {
	if story.ID == "" {
		story.ID = core.NewID()
	}
	if _, ok := r.d.stories[story.ID]; ok {
		return duplicate("story", story.ID)
	}
	r.stamp(&story.CreatedAt)
	r.stamp(&story.UpdatedAt)
	cp := *story
	r.d.stories[story.ID] = &cp
	r.d.storyIDs = appendCopy(r.d.storyIDs, story.ID)
	return nil
}

func (r *repo) GetStory(_ context.Context, id string) (*core.Story, error) {
	st, ok := r.d.stories[id]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (r *repo) ListStories(_ context.Context) ([]*core.Story, error) {
	out := make([]*core.Story, 0, len(r.d.storyIDs))
	for _, id := range r.d.storyIDs {
		cp := *r.d.stories[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *repo) CreateSection(_ context.Context, section *core.StorySection) error {
	if section.ID == "" {
		section.ID = core.NewID()
	}
	existing := r.d.sections[section.StoryID]
	for _, s := range existing {
		if s.ID == section.ID {
			return duplicate("section", section.ID)
		}
		if s.Order == section.Order {
			return core.NewStorageError("create section", fmt.Errorf("story %q already has a section with order %d", section.StoryID, section.Order))
		}
	}
	r.stamp(&section.CreatedAt)
	cp := *section
	next := appendCopy(existing, &cp)
	sort.SliceStable(next, func(i, j int) bool { return next[i].Order < next[j].Order })
	r.d.sections[section.StoryID] = next
	return nil
}

func (r *repo) ListSections(_ context.Context, storyID string) ([]*core.StorySection, error) {
	src := r.d.sections[storyID]
	out := make([]*core.StorySection, len(src))
	for i, s := range src {
		cp := *s
		out[i] = &cp
	}
	return out, nil
}

func (r *repo) MaxSectionOrder(_ context.Context, storyID string) (int, error) {
	src := r.d.sections[storyID]
	if len(src) == 0 {
		return 0, nil
	}
	return src[len(src)-1].Order, nil
}

func (r *repo) CreateCharacter(_ context.Context, c *core.Character) error {
	if c.ID == "" {
		c.ID = core.NewID()
	}
	if _, ok := r.d.characters[c.ID]; ok {
		return duplicate("character", c.ID)
	}
	if c.Traits == nil {
		c.Traits = core.Traits{}
	}
	r.stamp(&c.CreatedAt)
	r.stamp(&c.UpdatedAt)
	r.d.characters[c.ID] = c.Clone()
	r.d.charactersBy[c.StoryID] = appendCopy(r.d.charactersBy[c.StoryID], c.ID)
	return nil
}

func (r *repo) GetCharacter(_ context.Context, id string) (*core.Character, error) {
	return r.d.characters[id].Clone(), nil
}

func (r *repo) ListCharacters(_ context.Context, storyID string) ([]*core.Character, error) {
	ids := r.d.charactersBy[storyID]
	out := make([]*core.Character, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.d.characters[id].Clone())
	}
	return out, nil
}

func (r *repo) UpdateCharacter(_ context.Context, c *core.Character) error {
	if _, ok := r.d.characters[c.ID]; !ok {
		return core.NewNotFoundError("character", c.ID)
	}
	c.UpdatedAt = r.now().UTC()
	r.d.characters[c.ID] = c.Clone()
	return nil
}

func (r *repo) CreateCharacterChange(_ context.Context, ch *core.CharacterChange) error {
	if ch.ID == "" {
		ch.ID = core.NewID()
	}
	r.stamp(&ch.CreatedAt)
	cp := *ch
	cp.PreviousTraits = ch.PreviousTraits.Clone()
	cp.NewTraits = ch.NewTraits.Clone()
	r.d.characterChanges[ch.CharacterID] = appendCopy(r.d.characterChanges[ch.CharacterID], &cp)
	return nil
}

func (r *repo) ListCharacterChanges(_ context.Context, characterID string, limit int) ([]*core.CharacterChange, error) {
	src := tail(r.d.characterChanges[characterID], limit)
	out := make([]*core.CharacterChange, len(src))
	for i, ch := range src {
		cp := *ch
		cp.PreviousTraits = ch.PreviousTraits.Clone()
		cp.NewTraits = ch.NewTraits.Clone()
		out[i] = &cp
	}
	return out, nil
}

func (r *repo) CreateLocation(_ context.Context, l *core.Location) error {
	if l.ID == "" {
		l.ID = core.NewID()
	}
	if _, ok := r.d.locations[l.ID]; ok {
		return duplicate("location", l.ID)
	}
	if l.Attributes == nil {
		l.Attributes = core.Attributes{}
	}
	r.stamp(&l.CreatedAt)
	r.stamp(&l.UpdatedAt)
	r.d.locations[l.ID] = l.Clone()
	r.d.locationsBy[l.StoryID] = appendCopy(r.d.locationsBy[l.StoryID], l.ID)
	return nil
}

func (r *repo) GetLocation(_ context.Context, id string) (*core.Location, error) {
	return r.d.locations[id].Clone(), nil
}

func (r *repo) ListLocations(_ context.Context, storyID string) ([]*core.Location, error) {
	ids := r.d.locationsBy[storyID]
	out := make([]*core.Location, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.d.locations[id].Clone())
	}
	return out, nil
}

func (r *repo) UpdateLocation(_ context.Context, l *core.Location) error {
	if _, ok := r.d.locations[l.ID]; !ok {
		return core.NewNotFoundError("location", l.ID)
	}
	l.UpdatedAt = r.now().UTC()
	r.d.locations[l.ID] = l.Clone()
	return nil
}

func (r *repo) CreateLocationChange(_ context.Context, ch *core.LocationChange) error {
	if ch.ID == "" {
		ch.ID = core.NewID()
	}
	r.stamp(&ch.CreatedAt)
	cp := *ch
	cp.PreviousAttributes = ch.PreviousAttributes.Clone()
	cp.NewAttributes = ch.NewAttributes.Clone()
	r.d.locationChanges[ch.LocationID] = appendCopy(r.d.locationChanges[ch.LocationID], &cp)
	return nil
}

func (r *repo) ListLocationChanges(_ context.Context, locationID string, limit int) ([]*core.LocationChange, error) {
	src := tail(r.d.locationChanges[locationID], limit)
	out := make([]*core.LocationChange, len(src))
	for i, ch := range src {
		cp := *ch
		cp.PreviousAttributes = ch.PreviousAttributes.Clone()
		cp.NewAttributes = ch.NewAttributes.Clone()
		out[i] = &cp
	}
	return out, nil
}

func (r *repo) CreateRelationship(_ context.Context, rel *core.EntityRelationship) error {
	if rel.ID == "" {
		rel.ID = core.NewID()
	}
	if _, ok := r.d.relationships[rel.ID]; ok {
		return duplicate("relationship", rel.ID)
	}
	if rel.Attributes == nil {
		rel.Attributes = core.Attributes{}
	}
	r.stamp(&rel.CreatedAt)
	r.stamp(&rel.UpdatedAt)
	r.d.relationships[rel.ID] = rel.Clone()
	r.d.relationshipsBy[rel.StoryID] = appendCopy(r.d.relationshipsBy[rel.StoryID], rel.ID)
	return nil
}

func (r *repo) GetRelationship(_ context.Context, id string) (*core.EntityRelationship, error) {
	return r.d.relationships[id].Clone(), nil
}

func (r *repo) ListRelationships(_ context.Context, storyID string) ([]*core.EntityRelationship, error) {
	ids := r.d.relationshipsBy[storyID]
	out := make([]*core.EntityRelationship, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.d.relationships[id].Clone())
	}
	return out, nil
}

func (r *repo) UpdateRelationship(_ context.Context, rel *core.EntityRelationship) error {
	if _, ok := r.d.relationships[rel.ID]; !ok {
		return core.NewNotFoundError("relationship", rel.ID)
	}
	rel.UpdatedAt = r.now().UTC()
	r.d.relationships[rel.ID] = rel.Clone()
	return nil
}

func (r *repo) CreateRelationshipChange(_ context.Context, ch *core.RelationshipChange) error {
	if ch.ID == "" {
		ch.ID = core.NewID()
	}
	r.stamp(&ch.CreatedAt)
	cp := *ch
	cp.PreviousAttributes = ch.PreviousAttributes.Clone()
	cp.NewAttributes = ch.NewAttributes.Clone()
	r.d.relationshipChanges[ch.RelationshipID] = appendCopy(r.d.relationshipChanges[ch.RelationshipID], &cp)
	return nil
}

func (r *repo) ListRelationshipChanges(_ context.Context, relationshipID string, limit int) ([]*core.RelationshipChange, error) {
	src := tail(r.d.relationshipChanges[relationshipID], limit)
	out := make([]*core.RelationshipChange, len(src))
	for i, ch := range src {
		cp := *ch
		cp.PreviousAttributes = ch.PreviousAttributes.Clone()
		cp.NewAttributes = ch.NewAttributes.Clone()
		out[i] = &cp
	}
	return out, nil
}

func (r *repo) CreateEvent(_ context.Context, e *core.Event) error {
	if e.ID == "" {
		e.ID = core.NewID()
	}
	if _, ok := r.d.events[e.ID]; ok {
		return duplicate("event", e.ID)
	}
	if e.Attributes == nil {
		e.Attributes = core.Attributes{}
	}
	r.stamp(&e.CreatedAt)
	r.d.events[e.ID] = e.Clone()
	r.d.eventsBy[e.StoryID] = appendCopy(r.d.eventsBy[e.StoryID], e.ID)
	return nil
}

func (r *repo) GetEvent(_ context.Context, id string) (*core.Event, error) {
	return r.d.events[id].Clone(), nil
}

func (r *repo) ListEvents(_ context.Context, storyID string) ([]*core.Event, error) {
	ids := r.d.eventsBy[storyID]
	out := make([]*core.Event, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.d.events[id].Clone())
	}
	return out, nil
}

func (r *repo) AddEventParticipant(_ context.Context, p *core.EventParticipant) error {
	if _, ok := r.d.events[p.EventID]; !ok {
		return core.NewNotFoundError("event", p.EventID)
	}
	if p.ID == "" {
		p.ID = core.NewID()
	}
	cp := *p
	r.d.participants[p.EventID] = appendCopy(r.d.participants[p.EventID], &cp)
	return nil
}

func (r *repo) ListEventParticipants(_ context.Context, eventID string) ([]*core.EventParticipant, error) {
	src := r.d.participants[eventID]
	out := make([]*core.EventParticipant, len(src))
	for i, p := range src {
		cp := *p
		out[i] = &cp
	}
	return out, nil
}

// tail returns the last n items, or all of them when n <= 0.
func tail[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[len(items)-n:]
	}
	return items
}
