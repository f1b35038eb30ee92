package sqlite

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/fdg312/sourdough-hub/internal/storage"
)

func (s *SQLiteStorage) CreateEntry(ctx context.Context, text string) (storage.Entry, error) {
	now := time.Now().UTC().Truncate(time.Second)
	e := storage.Entry{Text: text, CreatedAt: now}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO entries (text, created_at) VALUES (?, ?) RETURNING id`,
		text, formatTime(now),
	).Scan(&e.ID)
	if err != nil {
		return storage.Entry{}, eris.Wrap(err, "sqlite: create entry")
	}
	return e, nil
}

func (s *SQLiteStorage) LatestEntries(ctx context.Context, limit int) ([]storage.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, created_at FROM entries ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest entries")
	}
	defer rows.Close()

	out := make([]storage.Entry, 0, limit)
	for rows.Next() {
		var (
			e       storage.Entry
			created string
		)
		if err := rows.Scan(&e.ID, &e.Text, &created); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan entry")
		}
		if e.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: latest entries")
	}
	return out, nil
}
