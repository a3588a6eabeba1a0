package store

import "time"

// NopStore is a no-op store used in dry-run mode. It never marks postings as
// seen, so every posting appears new on each collection pass.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) HasSeen(id string) (bool, error)       { return false, nil }
func (s *NopStore) MarkSeen(id string) error              { return nil }
func (s *NopStore) Cleanup(olderThan time.Duration) error { return nil }
func (s *NopStore) IsEmpty() (bool, error)                { return false, nil }
