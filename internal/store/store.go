package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/mattjoyce/msgwebhook/internal/message"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
	// TopSenders caps Stats.TopSenders.
	TopSenders = 10
)

// InsertResult reports what Insert did with a message.
type InsertResult int

const (
	Created InsertResult = iota + 1
	Duplicate
)

func (r InsertResult) String() string {
	switch r {
	case Created:
		return "created"
	case Duplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Store is the message persistence contract.
type Store interface {
	// Insert persists msg unless a message with the same ID exists.
	// Concurrent inserts of one ID yield exactly one Created.
	Insert(ctx context.Context, msg message.Message) (InsertResult, error)
	List(ctx context.Context, q ListQuery) (Page, error)
	Stats(ctx context.Context) (Stats, error)
	Ping(ctx context.Context) error
	Close() error
}

// ListQuery selects a page of messages. Empty filters are ignored.
type ListQuery struct {
	Limit  int
	Offset int
	From   string
	Since  string
	Q      string
}

// Normalize applies the pagination fallbacks: a limit outside
// [1, MaxLimit] becomes DefaultLimit and a negative offset becomes 0.
func (q ListQuery) Normalize() ListQuery {
	if q.Limit < 1 || q.Limit > MaxLimit {
		q.Limit = DefaultLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// Page is one slice of the filtered, ordered message set.
type Page struct {
	Items []message.Message
	// Total is the size of the filtered set before pagination.
	Total  int
	Limit  int
	Offset int
}

type SenderCount struct {
	FromMSISDN string `json:"from_msisdn"`
	Count      int    `json:"count"`
}

// Stats summarises the whole message table.
type Stats struct {
	TotalMessages int
	SendersCount  int
	TopSenders    []SenderCount
	// FirstTS and LastTS are nil when no messages exist.
	FirstTS *string
	LastTS  *string
}

// Open returns the Store named by databaseURL.
//
//	memory://              in-process map
//	sqlite:///rel/app.db   SQLite file relative to the working directory
//	sqlite:////abs/app.db  SQLite file at an absolute path
//	anything else          treated as a SQLite file path
func Open(ctx context.Context, databaseURL string) (Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database url is empty")
	}
	if databaseURL == "memory://" || databaseURL == "memory" {
		return NewMemory(), nil
	}
	return OpenSQLite(ctx, SQLitePath(databaseURL))
}

// SQLitePath extracts the filesystem path from a sqlite:/// URL.
func SQLitePath(databaseURL string) string {
	if rest, ok := strings.CutPrefix(databaseURL, "sqlite:///"); ok {
		return rest
	}
	if rest, ok := strings.CutPrefix(databaseURL, "file:"); ok {
		return rest
	}
	return databaseURL
}
