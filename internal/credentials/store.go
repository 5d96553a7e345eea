package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mailgate/internal/secrets"
)

// ErrNotFound indicates no credential record exists for the subject.
var ErrNotFound = errors.New("credential record not found")

// Store persists credential records through the key-value secret contract.
// It is the single owner of persisted credentials; token caches elsewhere
// are rehydrated from here, never the other way around.
type Store struct {
	backend secrets.Store
}

func NewStore(backend secrets.Store) *Store {
	return &Store{backend: backend}
}

// Get loads the record for (subjectID, provider).
func (s *Store) Get(ctx context.Context, subjectID, provider string) (*Record, error) {
	data, err := s.backend.Get(ctx, subjectID, provider)
	if err != nil {
		if errors.Is(err, secrets.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode credential record for %s/%s: %w", subjectID, provider, err)
	}

	return &rec, nil
}

// Save writes the record, stamping UpdatedAt.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	rec.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode credential record: %w", err)
	}

	return s.backend.Put(ctx, rec.SubjectID, rec.Provider, data)
}

// SaveMerged folds the incoming record into any existing one and persists
// the result. A missing existing record is not an error; the incoming record
// is stored as-is.
func (s *Store) SaveMerged(ctx context.Context, incoming *Record) (*Record, error) {
	existing, err := s.Get(ctx, incoming.SubjectID, incoming.Provider)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	rec := incoming
	if existing != nil {
		rec = merge(existing, incoming)
	} else if rec.ConnectedAt.IsZero() {
		rec.ConnectedAt = time.Now().UTC()
	}

	if err := s.Save(ctx, rec); err != nil {
		return nil, err
	}

	return rec, nil
}

// Delete removes the record. Deleting an absent record succeeds.
func (s *Store) Delete(ctx context.Context, subjectID, provider string) error {
	return s.backend.Delete(ctx, subjectID, provider)
}
