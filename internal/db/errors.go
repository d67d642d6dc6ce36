package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrCollectionNotFound = errors.New("db: collection not found")
	ErrInvalidIndex       = errors.New("db: invalid index")
)

// Op constants map to server command names for error context.
const (
	OpPing            = "ping"
	OpConnect         = "connect"
	OpDisconnect      = "endSessions"
	OpFind            = "find"
	OpUpdate          = "update"
	OpDelete          = "delete"
	OpFindAndModify   = "findAndModify"
	OpAggregate       = "aggregate"
	OpCreateIndexes   = "createIndexes"
	OpDropIndexes     = "dropIndexes"
	OpListCollections = "listCollections"
	OpCreate          = "create"
	OpCollMod         = "collMod"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
