package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mattjoyce/msgwebhook/internal/message"
	"github.com/mattjoyce/msgwebhook/internal/storage"
)

// SQLiteStore keeps messages in a SQLite table. The primary key on
// message_id is what makes Insert idempotent.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens the database file at path and bootstraps the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := storage.OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	return NewSQLite(db), nil
}

// NewSQLite wraps an already bootstrapped database.
func NewSQLite(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// withConn runs fn on a connection held for the duration of the call.
func (s *SQLiteStore) withConn(ctx context.Context, fn func(*sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()
	return fn(conn)
}

func (s *SQLiteStore) Insert(ctx context.Context, msg message.Message) (InsertResult, error) {
	var result InsertResult
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		var text any
		if msg.Text != nil {
			text = *msg.Text
		}
		createdAt := s.now().UTC().Format(time.RFC3339Nano)

		res, err := conn.ExecContext(ctx, `
INSERT INTO messages(message_id, from_msisdn, to_msisdn, ts, text, created_at)
VALUES(?, ?, ?, ?, ?, ?)
ON CONFLICT(message_id) DO NOTHING;
`, msg.ID, msg.FromMSISDN, msg.ToMSISDN, msg.TS, text, createdAt)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert message rows affected: %w", err)
		}
		if n == 0 {
			result = Duplicate
			return nil
		}
		result = Created
		return nil
	})
	if err != nil {
		return 0, err
	}
	return result, nil
}

func (s *SQLiteStore) List(ctx context.Context, q ListQuery) (Page, error) {
	q = q.Normalize()
	page := Page{Items: []message.Message{}, Limit: q.Limit, Offset: q.Offset}

	where, args := listFilter(q)
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		// Count and page read the same snapshot.
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages"+where+";", args...).Scan(&page.Total); err != nil {
			return fmt.Errorf("count messages: %w", err)
		}

		rows, err := tx.QueryContext(ctx, `
SELECT message_id, from_msisdn, to_msisdn, ts, text, created_at
FROM messages`+where+`
ORDER BY ts ASC, message_id ASC
LIMIT ? OFFSET ?;
`, append(args, q.Limit, q.Offset)...)
		if err != nil {
			return fmt.Errorf("list messages: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				m    message.Message
				text sql.NullString
			)
			if err := rows.Scan(&m.ID, &m.FromMSISDN, &m.ToMSISDN, &m.TS, &text, &m.CreatedAt); err != nil {
				return fmt.Errorf("scan message: %w", err)
			}
			if text.Valid {
				m.Text = &text.String
			}
			page.Items = append(page.Items, m)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate messages: %w", err)
		}
		return tx.Commit()
	})
	if err != nil {
		return Page{}, err
	}
	return page, nil
}

// listFilter renders the WHERE clause for q. All filters are ANDed.
func listFilter(q ListQuery) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if q.From != "" {
		clauses = append(clauses, "from_msisdn = ?")
		args = append(args, q.From)
	}
	if q.Since != "" {
		clauses = append(clauses, "ts >= ?")
		args = append(args, q.Since)
	}
	if q.Q != "" {
		clauses = append(clauses, storage.FoldFunc+`(text) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(q.Q))+"%")
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	st := Stats{TopSenders: []SenderCount{}}

	err := s.withConn(ctx, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var first, last sql.NullString
		err = tx.QueryRowContext(ctx, `
SELECT COUNT(*), COUNT(DISTINCT from_msisdn), MIN(ts), MAX(ts)
FROM messages;
`).Scan(&st.TotalMessages, &st.SendersCount, &first, &last)
		if err != nil {
			return fmt.Errorf("aggregate messages: %w", err)
		}
		if first.Valid {
			st.FirstTS = &first.String
		}
		if last.Valid {
			st.LastTS = &last.String
		}

		rows, err := tx.QueryContext(ctx, `
SELECT from_msisdn, COUNT(*) AS n
FROM messages
GROUP BY from_msisdn
ORDER BY n DESC, from_msisdn ASC
LIMIT ?;
`, TopSenders)
		if err != nil {
			return fmt.Errorf("top senders: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var sc SenderCount
			if err := rows.Scan(&sc.FromMSISDN, &sc.Count); err != nil {
				return fmt.Errorf("scan sender: %w", err)
			}
			st.TopSenders = append(st.TopSenders, sc)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate senders: %w", err)
		}
		return tx.Commit()
	})
	if err != nil {
		return Stats{}, err
	}
	return st, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		var one int
		if err := conn.QueryRowContext(ctx, "SELECT 1;").Scan(&one); err != nil {
			return fmt.Errorf("ping sqlite: %w", err)
		}
		return nil
	})
}
