package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
)

// busyTimeoutMillis bounds how long a writer waits on a locked database
// before the driver reports SQLITE_BUSY.
const busyTimeoutMillis = 5000

// FoldFunc names the SQL function that lowercases with Go's Unicode rules.
// The built-in LOWER only folds ASCII.
const FoldFunc = "go_lower"

func init() {
	if err := sqlite.RegisterDeterministicScalarFunction(FoldFunc, 1, foldText); err != nil {
		panic(fmt.Sprintf("register %s: %v", FoldFunc, err))
	}
}

func foldText(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// OpenSQLite opens (and creates if needed) the SQLite database at path and
// ensures the messages table exists.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if strings.ContainsAny(path, "?#") {
		return nil, fmt.Errorf("sqlite path %q: query parameters and fragments are not supported", path)
	}
	if err := checkDatabaseDisk(path); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := BootstrapSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// dsn carries the pragmas in the connection string so every pooled
// connection gets them, not only the first one.
func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMillis))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	return "file:" + pathEscaper.Replace(path) + "?" + q.Encode()
}

// pathEscaper keeps a literal % in a file name from being read as a URI
// escape. OpenSQLite has already rejected ? and #.
var pathEscaper = strings.NewReplacer("%", "%25")

// BootstrapSQLite creates tables/indexes if missing. There is no migration
// step beyond this.
func BootstrapSQLite(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS messages (
  message_id  TEXT PRIMARY KEY,
  from_msisdn TEXT NOT NULL,
  to_msisdn   TEXT NOT NULL,
  ts          TEXT NOT NULL,
  text        TEXT,
  created_at  TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS messages_from_msisdn_idx ON messages(from_msisdn);`,
		`CREATE INDEX IF NOT EXISTS messages_ts_message_id_idx ON messages(ts, message_id);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap sqlite: %w", err)
		}
	}
	return nil
}
