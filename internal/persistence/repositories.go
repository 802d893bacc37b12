package persistence

import "context"

// Collection is a keyed record store. Every backend persists whole records;
// Put inserts or replaces and List preserves insertion order.
type Collection[T Record] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Put(ctx context.Context, record T) error
	Delete(ctx context.Context, id string) error
}

// Collection names shared by the backends.
const (
	CollectionUsers          = "users"
	CollectionClients        = "clients"
	CollectionLocations      = "locations"
	CollectionCategories     = "categories"
	CollectionChecklistTypes = "checklist-types"
	CollectionChecklists     = "checklists"
	CollectionExecutions     = "executions"
)

// Stores bundles the collections of one backend.
type Stores struct {
	Users          Collection[User]
	Clients        Collection[Client]
	Locations      Collection[Location]
	Categories     Collection[Term]
	ChecklistTypes Collection[Term]
	Checklists     Collection[Checklist]
	Executions     *ExecutionLog
}
