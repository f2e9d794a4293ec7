// Package sqlstore implements core.Store on database/sql. The SQLite and
// Postgres backends share it and differ only in driver setup, schema
// migrations and placeholder syntax.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/storymesh/core"
)

// Options configure a Store.
type Options struct {
	// Now stamps entities created without a timestamp; defaults to time.Now.
	Now func() time.Time
	// TxOptions are passed to BeginTx by InTx.
	TxOptions *sql.TxOptions
	// OnClose runs after the database handle is closed, e.g. to release a
	// connection pool the handle was opened from.
	OnClose func()
	// IsDuplicate reports driver errors caused by a unique constraint. Such
	// errors are wrapped with ErrDuplicate.
	IsDuplicate func(err error) bool
}

// ErrDuplicate marks a write rejected by a unique constraint (duplicate id,
// or a second section with the same order).
var ErrDuplicate = errors.New("duplicate entry")

// Store is a core.Store backed by a *sql.DB.
type Store struct {
	*repo
	db      *sql.DB
	txOpts  *sql.TxOptions
	onClose func()
}

var _ core.Store = (*Store)(nil)

// New wraps an open, migrated database.
func New(db *sql.DB, dialect Dialect, optFns ...func(o *Options)) *Store {
	opts := Options{Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{
		repo:    &repo{q: db, dialect: dialect, now: opts.Now, isDuplicate: opts.IsDuplicate},
		db:      db,
		txOpts:  opts.TxOptions,
		onClose: opts.OnClose,
	}
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// InTx runs fn inside a database transaction. fn must only use repo; the
// store itself may be limited to a single connection.
func (s *Store) InTx(ctx context.Context, fn func(repo core.Repository) error) error {
	tx, err := s.db.BeginTx(ctx, s.txOpts)
	if err != nil {
		return core.NewStorageError("begin transaction", err)
	}
	if err := fn(&repo{q: tx, dialect: s.dialect, now: s.now, isDuplicate: s.isDuplicate}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return core.NewStorageError("commit transaction", err)
	}
	return nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	err := s.db.Close()
	if s.onClose != nil {
		s.onClose()
	}
	return err
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// repo implements core.Repository against either the pool or a transaction.
type repo struct {
	q           querier
	dialect     Dialect
	now         func() time.Time
	isDuplicate func(error) bool
}

var _ core.Repository = (*repo)(nil)

func (r *repo) stamp(t *time.Time) {
	if t.IsZero() {
		*t = r.now().UTC()
	}
}

func (r *repo) exec(ctx context.Context, op, query string, args ...any) (sql.Result, error) {
	res, err := r.q.ExecContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		if r.isDuplicate != nil && r.isDuplicate(err) {
			err = fmt.Errorf("%w: %w", ErrDuplicate, err)
		}
		return nil, core.NewStorageError(op, err)
	}
	return res, nil
}

// update runs an UPDATE and maps zero affected rows to NotFoundError.
func (r *repo) update(ctx context.Context, entity, id, query string, args ...any) error {
	op := "update " + entity
	res, err := r.exec(ctx, op, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.NewStorageError(op, err)
	}
	if n == 0 {
		return core.NewNotFoundError(entity, id)
	}
	return nil
}

func getOne[T any](ctx context.Context, r *repo, op, query string, scan func(scanner) (T, error), args ...any) (T, error) {
	v, err := scan(r.q.QueryRowContext(ctx, r.dialect.Rebind(query), args...))
	if errors.Is(err, sql.ErrNoRows) {
		var zero T
		return zero, nil
	}
	if err != nil {
		var zero T
		return zero, core.NewStorageError(op, err)
	}
	return v, nil
}

func queryAll[T any](ctx context.Context, r *repo, op, query string, scan func(scanner) (T, error), args ...any) ([]T, error) {
	rows, err := r.q.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, core.NewStorageError(op, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, core.NewStorageError(op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStorageError(op, err)
	}
	return out, nil
}

// recent builds a change-log query returning the newest limit rows in
// insertion order. A limit <= 0 returns every row.
func recent(columns, table, key string, id string, limit int) (string, []any) {
	if limit <= 0 {
		return fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY seq", columns, table, key), []any{id}
	}
	return fmt.Sprintf(
		"SELECT %[1]s FROM (SELECT seq, %[1]s FROM %[2]s WHERE %[3]s = ? ORDER BY seq DESC LIMIT ?) recent ORDER BY seq",
		columns, table, key,
	), []any{id, limit}
}

// Stories

const storyColumns = "id, title, genre, theme, setting, created_at, updated_at"

func scanStory(sc scanner) (*core.Story, error) {
	var (
		st                   core.Story
		createdAt, updatedAt int64
	)
	if err := sc.Scan(&st.ID, &st.Title, &st.Genre, &st.Theme, &st.Setting, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	st.CreatedAt, st.UpdatedAt = fromMillis(createdAt), fromMillis(updatedAt)
	return &st, nil
}

func (r *repo) CreateStory(ctx context.Context, story *core.Story) error {
	if story.ID == "" {
		story.ID = core.NewID()
	}
	r.stamp(&story.CreatedAt)
	r.stamp(&story.UpdatedAt)
	_, err := r.exec(ctx, "create story",
		"INSERT INTO stories ("+storyColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		story.ID, story.Title, story.Genre, story.Theme, story.Setting,
		toMillis(story.CreatedAt), toMillis(story.UpdatedAt))
	return err
}

func (r *repo) GetStory(ctx context.Context, id string) (*core.Story, error) {
	return getOne(ctx, r, "get story", "SELECT "+storyColumns+" FROM stories WHERE id = ?", scanStory, id)
}

func (r *repo) ListStories(ctx context.Context) ([]*core.Story, error) {
	return queryAll(ctx, r, "list stories", "SELECT "+storyColumns+" FROM stories ORDER BY seq", scanStory)
}

// Sections

const sectionColumns = "id, story_id, content, section_order, created_at"

func scanSection(sc scanner) (*core.StorySection, error) {
	var (
		s         core.StorySection
		createdAt int64
	)
	if err := sc.Scan(&s.ID, &s.StoryID, &s.Content, &s.Order, &createdAt); err != nil {
		return nil, err
	}
	s.CreatedAt = fromMillis(createdAt)
	return &s, nil
}

func (r *repo) CreateSection(ctx context.Context, section *core.StorySection) error {
	if section.ID == "" {
		section.ID = core.NewID()
	}
	r.stamp(&section.CreatedAt)
	_, err := r.exec(ctx, "create section",
		"INSERT INTO story_sections ("+sectionColumns+") VALUES (?, ?, ?, ?, ?)",
		section.ID, section.StoryID, section.Content, section.Order, toMillis(section.CreatedAt))
	return err
}

func (r *repo) ListSections(ctx context.Context, storyID string) ([]*core.StorySection, error) {
	return queryAll(ctx, r, "list sections",
		"SELECT "+sectionColumns+" FROM story_sections WHERE story_id = ? ORDER BY section_order", scanSection, storyID)
}

func (r *repo) MaxSectionOrder(ctx context.Context, storyID string) (int, error) {
	var maxOrder int64
	err := r.q.QueryRowContext(ctx,
		r.dialect.Rebind("SELECT COALESCE(MAX(section_order), 0) FROM story_sections WHERE story_id = ?"),
		storyID).Scan(&maxOrder)
	if err != nil {
		return 0, core.NewStorageError("max section order", err)
	}
	return int(maxOrder), nil
}

// Characters

const characterColumns = "id, story_id, name, description, traits, importance, created_at, updated_at"

func scanCharacter(sc scanner) (*core.Character, error) {
	var (
		c                    core.Character
		traits               string
		createdAt, updatedAt int64
	)
	if err := sc.Scan(&c.ID, &c.StoryID, &c.Name, &c.Description, &traits, &c.Importance, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	decoded, err := decodeMap[core.Traits](traits)
	if err != nil {
		return nil, fmt.Errorf("decode traits of %s: %w", c.ID, err)
	}
	c.Traits = decoded
	c.CreatedAt, c.UpdatedAt = fromMillis(createdAt), fromMillis(updatedAt)
	return &c, nil
}

func (r *repo) CreateCharacter(ctx context.Context, c *core.Character) error {
	if c.ID == "" {
		c.ID = core.NewID()
	}
	if c.Traits == nil {
		c.Traits = core.Traits{}
	}
	traits, err := encodeMap(c.Traits)
	if err != nil {
		return core.NewStorageError("create character", err)
	}
	r.stamp(&c.CreatedAt)
	r.stamp(&c.UpdatedAt)
	_, err = r.exec(ctx, "create character",
		"INSERT INTO characters ("+characterColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		c.ID, c.StoryID, c.Name, c.Description, traits, c.Importance,
		toMillis(c.CreatedAt), toMillis(c.UpdatedAt))
	return err
}

func (r *repo) GetCharacter(ctx context.Context, id string) (*core.Character, error) {
	return getOne(ctx, r, "get character", "SELECT "+characterColumns+" FROM characters WHERE id = ?", scanCharacter, id)
}

func (r *repo) ListCharacters(ctx context.Context, storyID string) ([]*core.Character, error) {
	return queryAll(ctx, r, "list characters",
		"SELECT "+characterColumns+" FROM characters WHERE story_id = ? ORDER BY seq", scanCharacter, storyID)
}

func (r *repo) UpdateCharacter(ctx context.Context, c *core.Character) error {
	traits, err := encodeMap(c.Traits)
	if err != nil {
		return core.NewStorageError("update character", err)
	}
	c.UpdatedAt = r.now().UTC()
	return r.update(ctx, "character", c.ID,
		"UPDATE characters SET name = ?, description = ?, traits = ?, importance = ?, updated_at = ? WHERE id = ?",
		c.Name, c.Description, traits, c.Importance, toMillis(c.UpdatedAt), c.ID)
}

const characterChangeColumns = "id, character_id, section_id, description, previous_traits, new_traits, created_at"

func scanCharacterChange(sc scanner) (*core.CharacterChange, error) {
	var (
		ch         core.CharacterChange
		prev, next string
		createdAt  int64
	)
	dest := []any{&ch.ID, &ch.CharacterID, &ch.SectionID, &ch.Description, &prev, &next, &createdAt}
	if err := sc.Scan(dest...); err != nil {
		return nil, err
	}
	var err error
	if ch.PreviousTraits, err = decodeMap[core.Traits](prev); err != nil {
		return nil, err
	}
	if ch.NewTraits, err = decodeMap[core.Traits](next); err != nil {
		return nil, err
	}
	ch.CreatedAt = fromMillis(createdAt)
	return &ch, nil
}

func (r *repo) CreateCharacterChange(ctx context.Context, ch *core.CharacterChange) error {
	if ch.ID == "" {
		ch.ID = core.NewID()
	}
	prev, err := encodeMap(ch.PreviousTraits)
	if err != nil {
		return core.NewStorageError("create character change", err)
	}
	next, err := encodeMap(ch.NewTraits)
	if err != nil {
		return core.NewStorageError("create character change", err)
	}
	r.stamp(&ch.CreatedAt)
	_, err = r.exec(ctx, "create character change",
		"INSERT INTO character_changes ("+characterChangeColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		ch.ID, ch.CharacterID, ch.SectionID, ch.Description, prev, next, toMillis(ch.CreatedAt))
	return err
}

func (r *repo) ListCharacterChanges(ctx context.Context, characterID string, limit int) ([]*core.CharacterChange, error) {
	query, args := recent(characterChangeColumns, "character_changes", "character_id", characterID, limit)
	return queryAll(ctx, r, "list character changes", query, scanCharacterChange, args...)
}

// Locations

const locationColumns = "id, story_id, name, description, attributes, created_at, updated_at"

func scanLocation(sc scanner) (*core.Location, error) {
	var (
		l                    core.Location
		attrs                string
		createdAt, updatedAt int64
	)
	if err := sc.Scan(&l.ID, &l.StoryID, &l.Name, &l.Description, &attrs, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	decoded, err := decodeMap[core.Attributes](attrs)
	if err != nil {
		return nil, fmt.Errorf("decode attributes of %s: %w", l.ID, err)
	}
	l.Attributes = decoded
	l.CreatedAt, l.UpdatedAt = fromMillis(createdAt), fromMillis(updatedAt)
	return &l, nil
}

func (r *repo) CreateLocation(ctx context.Context, l *core.Location) error {
	if l.ID == "" {
		l.ID = core.NewID()
	}
	if l.Attributes == nil {
		l.Attributes = core.Attributes{}
	}
	attrs, err := encodeMap(l.Attributes)
	if err != nil {
		return core.NewStorageError("create location", err)
	}
	r.stamp(&l.CreatedAt)
	r.stamp(&l.UpdatedAt)
	_, err = r.exec(ctx, "create location",
		"INSERT INTO locations ("+locationColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		l.ID, l.StoryID, l.Name, l.Description, attrs, toMillis(l.CreatedAt), toMillis(l.UpdatedAt))
	return err
}

func (r *repo) GetLocation(ctx context.Context, id string) (*core.Location, error) {
	return getOne(ctx, r, "get location", "SELECT "+locationColumns+" FROM locations WHERE id = ?", scanLocation, id)
}

func (r *repo) ListLocations(ctx context.Context, storyID string) ([]*core.Location, error) {
	return queryAll(ctx, r, "list locations",
		"SELECT "+locationColumns+" FROM locations WHERE story_id = ? ORDER BY seq", scanLocation, storyID)
}

func (r *repo) UpdateLocation(ctx context.Context, l *core.Location) error {
	attrs, err := encodeMap(l.Attributes)
	if err != nil {
		return core.NewStorageError("update location", err)
	}
	l.UpdatedAt = r.now().UTC()
	return r.update(ctx, "location", l.ID,
		"UPDATE locations SET name = ?, description = ?, attributes = ?, updated_at = ? WHERE id = ?",
		l.Name, l.Description, attrs, toMillis(l.UpdatedAt), l.ID)
}

const locationChangeColumns = "id, location_id, section_id, description, previous_attributes, new_attributes, created_at"

func scanLocationChange(sc scanner) (*core.LocationChange, error) {
	var (
		ch         core.LocationChange
		prev, next string
		createdAt  int64
	)
	dest := []any{&ch.ID, &ch.LocationID, &ch.SectionID, &ch.Description, &prev, &next, &createdAt}
	if err := sc.Scan(dest...); err != nil {
		return nil, err
	}
	var err error
	if ch.PreviousAttributes, err = decodeMap[core.Attributes](prev); err != nil {
		return nil, err
	}
	if ch.NewAttributes, err = decodeMap[core.Attributes](next); err != nil {
		return nil, err
	}
	ch.CreatedAt = fromMillis(createdAt)
	return &ch, nil
}

func (r *repo) CreateLocationChange(ctx context.Context, ch *core.LocationChange) error {
	if ch.ID == "" {
		ch.ID = core.NewID()
	}
	prev, err := encodeMap(ch.PreviousAttributes)
	if err != nil {
		return core.NewStorageError("create location change", err)
	}
	next, err := encodeMap(ch.NewAttributes)
	if err != nil {
		return core.NewStorageError("create location change", err)
	}
	r.stamp(&ch.CreatedAt)
	_, err = r.exec(ctx, "create location change",
		"INSERT INTO location_changes ("+locationChangeColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		ch.ID, ch.LocationID, ch.SectionID, ch.Description, prev, next, toMillis(ch.CreatedAt))
	return err
}

func (r *repo) ListLocationChanges(ctx context.Context, locationID string, limit int) ([]*core.LocationChange, error) {
	query, args := recent(locationChangeColumns, "location_changes", "location_id", locationID, limit)
	return queryAll(ctx, r, "list location changes", query, scanLocationChange, args...)
}

// Relationships

const relationshipColumns = "id, story_id, source_id, target_id, relationship_type, strength, attributes, created_at, updated_at"

func scanRelationship(sc scanner) (*core.EntityRelationship, error) {
	var (
		rel                  core.EntityRelationship
		relType, attrs       string
		createdAt, updatedAt int64
	)
	if err := sc.Scan(&rel.ID, &rel.StoryID, &rel.SourceID, &rel.TargetID, &relType, &rel.Strength, &attrs, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	decoded, err := decodeMap[core.Attributes](attrs)
	if err != nil {
		return nil, fmt.Errorf("decode attributes of %s: %w", rel.ID, err)
	}
	rel.Type = core.RelationshipType(relType)
	rel.Attributes = decoded
	rel.CreatedAt, rel.UpdatedAt = fromMillis(createdAt), fromMillis(updatedAt)
	return &rel, nil
}

func (r *repo) CreateRelationship(ctx context.Context, rel *core.EntityRelationship) error {
	if rel.ID == "" {
		rel.ID = core.NewID()
	}
	if rel.Attributes == nil {
		rel.Attributes = core.Attributes{}
	}
	attrs, err := encodeMap(rel.Attributes)
	if err != nil {
		return core.NewStorageError("create relationship", err)
	}
	r.stamp(&rel.CreatedAt)
	r.stamp(&rel.UpdatedAt)
	_, err = r.exec(ctx, "create relationship",
		"INSERT INTO relationships ("+relationshipColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		rel.ID, rel.StoryID, rel.SourceID, rel.TargetID, string(rel.Type), rel.Strength, attrs,
		toMillis(rel.CreatedAt), toMillis(rel.UpdatedAt))
	return err
}

func (r *repo) GetRelationship(ctx context.Context, id string) (*core.EntityRelationship, error) {
	return getOne(ctx, r, "get relationship", "SELECT "+relationshipColumns+" FROM relationships WHERE id = ?", scanRelationship, id)
}

func (r *repo) ListRelationships(ctx context.Context, storyID string) ([]*core.EntityRelationship, error) {
	return queryAll(ctx, r, "list relationships",
		"SELECT "+relationshipColumns+" FROM relationships WHERE story_id = ? ORDER BY seq", scanRelationship, storyID)
}

func (r *repo) UpdateRelationship(ctx context.Context, rel *core.EntityRelationship) error {
	attrs, err := encodeMap(rel.Attributes)
	if err != nil {
		return core.NewStorageError("update relationship", err)
	}
	rel.UpdatedAt = r.now().UTC()
	return r.update(ctx, "relationship", rel.ID,
		"UPDATE relationships SET relationship_type = ?, strength = ?, attributes = ?, updated_at = ? WHERE id = ?",
		string(rel.Type), rel.Strength, attrs, toMillis(rel.UpdatedAt), rel.ID)
}

const relationshipChangeColumns = "id, relationship_id, section_id, description, previous_type, new_type, " +
	"previous_strength, new_strength, previous_attributes, new_attributes, created_at"

func scanRelationshipChange(sc scanner) (*core.RelationshipChange, error) {
	var (
		ch                  core.RelationshipChange
		prevType, nextType  string
		prevAttrs, newAttrs string
		createdAt           int64
	)
	dest := []any{
		&ch.ID, &ch.RelationshipID, &ch.SectionID, &ch.Description, &prevType, &nextType,
		&ch.PreviousStrength, &ch.NewStrength, &prevAttrs, &newAttrs, &createdAt,
	}
	if err := sc.Scan(dest...); err != nil {
		return nil, err
	}
	var err error
	if ch.PreviousAttributes, err = decodeMap[core.Attributes](prevAttrs); err != nil {
		return nil, err
	}
	if ch.NewAttributes, err = decodeMap[core.Attributes](newAttrs); err != nil {
		return nil, err
	}
	ch.PreviousType = core.RelationshipType(prevType)
	ch.NewType = core.RelationshipType(nextType)
	ch.CreatedAt = fromMillis(createdAt)
	return &ch, nil
}

func (r *repo) CreateRelationshipChange(ctx context.Context, ch *core.RelationshipChange) error {
	if ch.ID == "" {
		ch.ID = core.NewID()
	}
	prev, err := encodeMap(ch.PreviousAttributes)
	if err != nil {
		return core.NewStorageError("create relationship change", err)
	}
	next, err := encodeMap(ch.NewAttributes)
	if err != nil {
		return core.NewStorageError("create relationship change", err)
	}
	r.stamp(&ch.CreatedAt)
	_, err = r.exec(ctx, "create relationship change",
		"INSERT INTO relationship_changes ("+relationshipChangeColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		ch.ID, ch.RelationshipID, ch.SectionID, ch.Description, string(ch.PreviousType), string(ch.NewType),
		ch.PreviousStrength, ch.NewStrength, prev, next, toMillis(ch.CreatedAt))
	return err
}

func (r *repo) ListRelationshipChanges(ctx context.Context, relationshipID string, limit int) ([]*core.RelationshipChange, error) {
	query, args := recent(relationshipChangeColumns, "relationship_changes", "relationship_id", relationshipID, limit)
	return queryAll(ctx, r, "list relationship changes", query, scanRelationshipChange, args...)
}

// Events

const eventColumns = "id, story_id, section_id, location_id, title, description, importance, attributes, created_at"

func scanEvent(sc scanner) (*core.Event, error) {
	var (
		e         core.Event
		attrs     string
		createdAt int64
	)
	if err := sc.Scan(&e.ID, &e.StoryID, &e.SectionID, &e.LocationID, &e.Title, &e.Description, &e.Importance, &attrs, &createdAt); err != nil {
		return nil, err
	}
	decoded, err := decodeMap[core.Attributes](attrs)
	if err != nil {
		return nil, fmt.Errorf("decode attributes of %s: %w", e.ID, err)
	}
	e.Attributes = decoded
	e.CreatedAt = fromMillis(createdAt)
	return &e, nil
}

func (r *repo) CreateEvent(ctx context.Context, e *core.Event) error {
	if e.ID == "" {
		e.ID = core.NewID()
	}
	if e.Attributes == nil {
		e.Attributes = core.Attributes{}
	}
	attrs, err := encodeMap(e.Attributes)
	if err != nil {
		return core.NewStorageError("create event", err)
	}
	r.stamp(&e.CreatedAt)
	_, err = r.exec(ctx, "create event",
		"INSERT INTO events ("+eventColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		e.ID, e.StoryID, e.SectionID, e.LocationID, e.Title, e.Description, e.Importance, attrs, toMillis(e.CreatedAt))
	return err
}

func (r *repo) GetEvent(ctx context.Context, id string) (*core.Event, error) {
	return getOne(ctx, r, "get event", "SELECT "+eventColumns+" FROM events WHERE id = ?", scanEvent, id)
}

func (r *repo) ListEvents(ctx context.Context, storyID string) ([]*core.Event, error) {
	return queryAll(ctx, r, "list events",
		"SELECT "+eventColumns+" FROM events WHERE story_id = ? ORDER BY seq", scanEvent, storyID)
}

const participantColumns = "id, event_id, character_id, role"

func scanParticipant(sc scanner) (*core.EventParticipant, error) {
	var p core.EventParticipant
	if err := sc.Scan(&p.ID, &p.EventID, &p.CharacterID, &p.Role); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repo) AddEventParticipant(ctx context.Context, p *core.EventParticipant) error {
	e, err := r.GetEvent(ctx, p.EventID)
	if err != nil {
		return err
	}
	if e == nil {
		return core.NewNotFoundError("event", p.EventID)
	}
	if p.ID == "" {
		p.ID = core.NewID()
	}
	_, err = r.exec(ctx, "add event participant",
		"INSERT INTO event_participants ("+participantColumns+") VALUES (?, ?, ?, ?)",
		p.ID, p.EventID, p.CharacterID, p.Role)
	return err
}

func (r *repo) ListEventParticipants(ctx context.Context, eventID string) ([]*core.EventParticipant, error) {
	return queryAll(ctx, r, "list event participants",
		"SELECT "+participantColumns+" FROM event_participants WHERE event_id = ? ORDER BY seq", scanParticipant, eventID)
}
