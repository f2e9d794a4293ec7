package core

import "context"

// Repository is the persistence accessor used by services, the orchestrator
// and the state updater. Lookups by id return (nil, nil) when the entity does
// not exist; callers decide whether absence is an error. Implementations wrap
// driver failures in StorageError.
//
// List* methods for change logs return the most recent limit entries in
// chronological order (oldest first). A limit <= 0 returns all entries.
type Repository interface {
	CreateStory(ctx context.Context, story *Story) error
	GetStory(ctx context.Context, id string) (*Story, error)
	ListStories(ctx context.Context) ([]*Story, error)

	CreateSection(ctx context.Context, section *StorySection) error
	ListSections(ctx context.Context, storyID string) ([]*StorySection, error)
	MaxSectionOrder(ctx context.Context, storyID string) (int, error)

	CreateCharacter(ctx context.Context, character *Character) error
	GetCharacter(ctx context.Context, id string) (*Character, error)
	ListCharacters(ctx context.Context, storyID string) ([]*Character, error)
	UpdateCharacter(ctx context.Context, character *Character) error
	CreateCharacterChange(ctx context.Context, change *CharacterChange) error
	ListCharacterChanges(ctx context.Context, characterID string, limit int) ([]*CharacterChange, error)

	CreateLocation(ctx context.Context, location *Location) error
	GetLocation(ctx context.Context, id string) (*Location, error)
	ListLocations(ctx context.Context, storyID string) ([]*Location, error)
	UpdateLocation(ctx context.Context, location *Location) error
	CreateLocationChange(ctx context.Context, change *LocationChange) error
	ListLocationChanges(ctx context.Context, locationID string, limit int) ([]*LocationChange, error)

	CreateRelationship(ctx context.Context, rel *EntityRelationship) error
	GetRelationship(ctx context.Context, id string) (*EntityRelationship, error)
	ListRelationships(ctx context.Context, storyID string) ([]*EntityRelationship, error)
	UpdateRelationship(ctx context.Context, rel *EntityRelationship) error
	CreateRelationshipChange(ctx context.Context, change *RelationshipChange) error
	ListRelationshipChanges(ctx context.Context, relationshipID string, limit int) ([]*RelationshipChange, error)

	CreateEvent(ctx context.Context, event *Event) error
	GetEvent(ctx context.Context, id string) (*Event, error)
	ListEvents(ctx context.Context, storyID string) ([]*Event, error)
	AddEventParticipant(ctx context.Context, participant *EventParticipant) error
	ListEventParticipants(ctx context.Context, eventID string) ([]*EventParticipant, error)
}

// Store is a Repository that can run a unit of work atomically.
type Store interface {
	Repository

	// InTx runs fn against a transactional view of the store. Every write
	// made through repo is committed when fn returns nil and discarded
	// otherwise. The error returned by fn is passed through unchanged.
	InTx(ctx context.Context, fn func(repo Repository) error) error

	// Close releases the underlying resources.
	Close() error
}
