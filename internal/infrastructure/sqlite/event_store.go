package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/zjrosen/contentgraph/internal/contentstream"
	"github.com/zjrosen/contentgraph/internal/log"
)

const streamColumns = `id, version, status, source_id, source_version, created_at`

const eventColumns = `stream_id, sequence_number, event_type, payload, metadata, recorded_at`

// EventStore implements contentstream.Store on SQLite. Every write runs in
// an immediate transaction, so version checks and inserts are serialized.
type EventStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ contentstream.Store = (*EventStore)(nil)

func newEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db, now: time.Now}
}

func scanStream(scanner interface{ Scan(...any) error }) (*StreamModel, error) {
	var m StreamModel
	err := scanner.Scan(&m.ID, &m.Version, &m.Status, &m.SourceID, &m.SourceVersion, &m.CreatedAt)
	return &m, err
}

func scanEvent(scanner interface{ Scan(...any) error }) (*EventModel, error) {
	var m EventModel
	err := scanner.Scan(&m.StreamID, &m.SequenceNumber, &m.EventType, &m.Payload, &m.Metadata, &m.RecordedAt)
	return &m, err
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func findStream(ctx context.Context, q querier, id contentstream.ID) (*StreamModel, error) {
	row := q.QueryRowContext(ctx, `SELECT `+streamColumns+` FROM content_streams WHERE id = ?`, string(id))
	m, err := scanStream(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", contentstream.ErrStreamNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find content stream: %w", err)
	}
	return m, nil
}

func streamExists(ctx context.Context, q querier, id contentstream.ID) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM content_streams WHERE id = ?`, string(id)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check content stream: %w", err)
	}
	return n > 0, nil
}

// inTx runs fn in a transaction, committing when fn succeeds.
func (s *EventStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *EventStore) Create(ctx context.Context, id contentstream.ID) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		exists, err := streamExists(ctx, tx, id)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", contentstream.ErrStreamExists, id)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO content_streams (id, version, status, created_at) VALUES (?, 0, ?, ?)`,
			string(id), string(contentstream.StatusOpen), s.now().UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert content stream: %w", err)
		}
		return nil
	})
}

// Fork copies the source rows into target inside one transaction.
func (s *EventStore) Fork(ctx context.Context, source, target contentstream.ID) (int64, error) {
	var version int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		src, err := findStream(ctx, tx, source)
		if err != nil {
			return err
		}
		exists, err := streamExists(ctx, tx, target)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", contentstream.ErrStreamExists, target)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO content_streams (id, version, status, source_id, source_version, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			string(target), src.Version, string(contentstream.StatusOpen), src.ID, src.Version, s.now().UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert content stream: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO events (`+eventColumns+`)
			 SELECT ?, sequence_number, event_type, payload, metadata, recorded_at
			 FROM events WHERE stream_id = ? AND sequence_number <= ?`,
			string(target), src.ID, src.Version,
		)
		if err != nil {
			return fmt.Errorf("failed to copy events: %w", err)
		}
		version = src.Version
		return nil
	})
	if err != nil {
		return 0, err
	}
	log.Debug(log.CatStore, "Forked content stream", "source", source, "target", target, "version", version)
	return version, nil
}

func (s *EventStore) Append(ctx context.Context, id contentstream.ID, expectedVersion int64, events []contentstream.Event) (int64, error) {
	var version int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		st, err := findStream(ctx, tx, id)
		if err != nil {
			return err
		}
		if contentstream.Status(st.Status) == contentstream.StatusClosed {
			return fmt.Errorf("%w: %s", contentstream.ErrStreamClosed, id)
		}
		if expectedVersion != contentstream.AnyVersion && expectedVersion != st.Version {
			return &contentstream.ConcurrencyConflictError{StreamID: id, Expected: expectedVersion, Actual: st.Version}
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare event insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		now := s.now().UnixNano()
		version = st.Version
		for _, e := range events {
			version++
			var metadata *string
			if len(e.Metadata) > 0 {
				m := string(e.Metadata)
				metadata = &m
			}
			if _, err := stmt.ExecContext(ctx, string(id), version, e.Type, string(e.Payload), metadata, now); err != nil {
				return fmt.Errorf("failed to insert event: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE content_streams SET version = ? WHERE id = ?`, version, string(id)); err != nil {
			return fmt.Errorf("failed to update stream version: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (s *EventStore) Load(ctx context.Context, id contentstream.ID, after int64) ([]contentstream.Record, error) {
	if _, err := findStream(ctx, s.db, id); err != nil {
		return nil, err
	}
	if after < 0 {
		after = 0
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE stream_id = ? AND sequence_number > ? ORDER BY sequence_number`,
		string(id), after,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []contentstream.Record
	for rows.Next() {
		m, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		out = append(out, m.toRecord())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return out, nil
}

func (s *EventStore) Close(ctx context.Context, id contentstream.ID) error {
	return s.setStatus(ctx, id, contentstream.StatusClosed)
}

func (s *EventStore) Reopen(ctx context.Context, id contentstream.ID) error {
	return s.setStatus(ctx, id, contentstream.StatusOpen)
}

func (s *EventStore) setStatus(ctx context.Context, id contentstream.ID, status contentstream.Status) error {
	result, err := s.db.ExecContext(ctx, `UPDATE content_streams SET status = ? WHERE id = ?`, string(status), string(id))
	if err != nil {
		return fmt.Errorf("failed to update stream status: %w", err)
	}
	return requireAffected(result, id)
}

// Remove deletes the stream; its events go with it through ON DELETE CASCADE.
func (s *EventStore) Remove(ctx context.Context, id contentstream.ID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM content_streams WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to delete content stream: %w", err)
	}
	return requireAffected(result, id)
}

func requireAffected(result sql.Result, id contentstream.ID) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", contentstream.ErrStreamNotFound, id)
	}
	return nil
}

func (s *EventStore) Info(ctx context.Context, id contentstream.ID) (contentstream.Info, error) {
	m, err := findStream(ctx, s.db, id)
	if err != nil {
		return contentstream.Info{}, err
	}
	return m.toInfo(), nil
}

func (s *EventStore) Streams(ctx context.Context) ([]contentstream.Info, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+streamColumns+` FROM content_streams ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list content streams: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []contentstream.Info{}
	for rows.Next() {
		m, err := scanStream(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content stream: %w", err)
		}
		out = append(out, m.toInfo())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate content streams: %w", err)
	}
	return out, nil
}
