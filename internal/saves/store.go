package saves

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/fdg312/sourdough-hub/internal/blob"
	"github.com/fdg312/sourdough-hub/internal/recipe"
)

// ErrNameRequired is returned by Save for an empty or blank name.
var ErrNameRequired = errors.New("name is required")

const keyPrefix = "saved_calculations/"

// SavedCalculation is one named recipe snapshot. Snapshot stays raw JSON so
// a single bad entry does not poison the whole list; it is validated on Load.
type SavedCalculation struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Snapshot  json.RawMessage `json:"snapshot"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type SaveOptions struct {
	Overwrite bool
}

type ListResult struct {
	Entries                 []SavedCalculation `json:"entries"`
	RecoveredFromCorruption bool               `json:"recoveredFromCorruption"`
}

// Store persists each client's saves as one JSON array in a blob.
type Store struct {
	blobs blob.Store
	mu    sync.Mutex
	now   func() time.Time
	newID func() string
}

func NewStore(blobs blob.Store) *Store {
	return &Store{
		blobs: blobs,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

func blobKey(clientID string) string {
	return keyPrefix + clientID + ".json"
}

// read loads the client's list. Invalid JSON or a non-array is replaced
// by an empty list and reported through the recovered flag.
func (s *Store) read(ctx context.Context, clientID string) ([]SavedCalculation, bool, error) {
	data, err := s.blobs.GetObject(ctx, blobKey(clientID))
	if errors.Is(err, blob.ErrNotFound) {
		return []SavedCalculation{}, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "saves: read")
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []SavedCalculation{}, false, nil
	}

	var entries []SavedCalculation
	if trimmed[0] != '[' || json.Unmarshal(trimmed, &entries) != nil {
		if err := s.write(ctx, clientID, []SavedCalculation{}); err != nil {
			return nil, false, err
		}
		return []SavedCalculation{}, true, nil
	}
	if entries == nil {
		entries = []SavedCalculation{}
	}
	return entries, false, nil
}

func (s *Store) write(ctx context.Context, clientID string, entries []SavedCalculation) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return eris.Wrap(err, "saves: marshal")
	}
	if _, err := s.blobs.PutObject(ctx, blobKey(clientID), data, "application/json"); err != nil {
		return eris.Wrap(err, "saves: write")
	}
	return nil
}

func snapshotJSON(state recipe.State) (json.RawMessage, error) {
	data, err := json.Marshal(recipe.ToSnapshot(state))
	if err != nil {
		return nil, eris.Wrap(err, "saves: marshal snapshot")
	}
	return data, nil
}

func indexByID(entries []SavedCalculation, id string) int {
	for i := range entries {
		if entries[i].ID == id {
			return i
		}
	}
	return -1
}

// Save stores state under name. With Overwrite the first entry whose name
// matches case-insensitively is replaced in place, keeping its id and
// creation time. Without it a new entry is always appended, even when
// the name is already taken.
func (s *Store) Save(ctx context.Context, clientID, name string, state recipe.State, opts SaveOptions) (SavedCalculation, error) {
	name = NormalizeName(name)
	if name == "" {
		return SavedCalculation{}, ErrNameRequired
	}
	snap, err := snapshotJSON(state)
	if err != nil {
		return SavedCalculation{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, _, err := s.read(ctx, clientID)
	if err != nil {
		return SavedCalculation{}, err
	}
	now := s.now()

	if opts.Overwrite {
		for i := range entries {
			if !sameName(entries[i].Name, name) {
				continue
			}
			entries[i].Name = name
			entries[i].Snapshot = snap
			entries[i].UpdatedAt = now
			if err := s.write(ctx, clientID, entries); err != nil {
				return SavedCalculation{}, err
			}
			return entries[i], nil
		}
	}

	created := SavedCalculation{
		ID:        s.newID(),
		Name:      name,
		Snapshot:  snap,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.write(ctx, clientID, append(entries, created)); err != nil {
		return SavedCalculation{}, err
	}
	return created, nil
}

func (s *Store) List(ctx context.Context, clientID string) ([]SavedCalculation, error) {
	res, err := s.ListWithStatus(ctx, clientID)
	return res.Entries, err
}

func (s *Store) ListWithStatus(ctx context.Context, clientID string) (ListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, recovered, err := s.read(ctx, clientID)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Entries: entries, RecoveredFromCorruption: recovered}, nil
}

// Get returns the raw entry.
func (s *Store) Get(ctx context.Context, clientID, id string) (SavedCalculation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, _, err := s.read(ctx, clientID)
	if err != nil {
		return SavedCalculation{}, false, err
	}
	i := indexByID(entries, id)
	if i < 0 {
		return SavedCalculation{}, false, nil
	}
	return entries[i], true, nil
}

// Load restores the state of an entry. found is false for an unknown id;
// a malformed snapshot yields the default state with OK=false.
func (s *Store) Load(ctx context.Context, clientID, id string) (recipe.LoadResult, bool, error) {
	entry, found, err := s.Get(ctx, clientID, id)
	if err != nil || !found {
		return recipe.LoadResult{}, false, err
	}
	return recipe.DecodeSnapshot(entry.Snapshot), true, nil
}

func (s *Store) Overwrite(ctx context.Context, clientID, id string, state recipe.State) (SavedCalculation, bool, error) {
	snap, err := snapshotJSON(state)
	if err != nil {
		return SavedCalculation{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, _, err := s.read(ctx, clientID)
	if err != nil {
		return SavedCalculation{}, false, err
	}
	i := indexByID(entries, id)
	if i < 0 {
		return SavedCalculation{}, false, nil
	}
	entries[i].Snapshot = snap
	entries[i].UpdatedAt = s.now()
	if err := s.write(ctx, clientID, entries); err != nil {
		return SavedCalculation{}, false, err
	}
	return entries[i], true, nil
}

// Rename returns false for a blank name, an unknown id, or a name already
// used by another entry.
func (s *Store) Rename(ctx context.Context, clientID, id, name string) (bool, error) {
	name = NormalizeName(name)
	if name == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, _, err := s.read(ctx, clientID)
	if err != nil {
		return false, err
	}
	i := indexByID(entries, id)
	if i < 0 {
		return false, nil
	}
	for j := range entries {
		if j != i && sameName(entries[j].Name, name) {
			return false, nil
		}
	}

	entries[i].Name = name
	entries[i].UpdatedAt = s.now()
	if err := s.write(ctx, clientID, entries); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Delete(ctx context.Context, clientID, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, _, err := s.read(ctx, clientID)
	if err != nil {
		return false, err
	}
	i := indexByID(entries, id)
	if i < 0 {
		return false, nil
	}
	next := append(entries[:i:i], entries[i+1:]...)
	if err := s.write(ctx, clientID, next); err != nil {
		return false, err
	}
	return true, nil
}

// Clear empties the client's list.
func (s *Store) Clear(ctx context.Context, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx, clientID, []SavedCalculation{})
}
