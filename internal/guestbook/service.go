package guestbook

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fdg312/sourdough-hub/internal/storage"
)

var ErrInvalidText = errors.New("text must be between 1 and 280 characters")

const (
	MaxTextLength = 280
	DefaultLimit  = 10
	MaxLimit      = 50
)

type Entry struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type Service struct {
	store storage.EntriesStorage
}

func NewService(store storage.EntriesStorage) *Service {
	return &Service{store: store}
}

func (s *Service) Create(ctx context.Context, text string) (Entry, error) {
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n == 0 || n > MaxTextLength {
		return Entry{}, ErrInvalidText
	}

	e, err := s.store.CreateEntry(ctx, text)
	if err != nil {
		return Entry{}, err
	}
	return Entry(e), nil
}

// Latest returns the newest entries first. limit is clamped to 1..MaxLimit,
// zero meaning DefaultLimit.
func (s *Service) Latest(ctx context.Context, limit int) ([]Entry, error) {
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	rows, err := s.store.LatestEntries(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rows))
	for _, e := range rows {
		out = append(out, Entry(e))
	}
	return out, nil
}
