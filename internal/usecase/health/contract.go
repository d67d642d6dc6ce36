package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// CollectionLister lists collections of the provisioned database.
type CollectionLister interface {
	ListCollectionNames(ctx context.Context, filter any) ([]string, error)
}
