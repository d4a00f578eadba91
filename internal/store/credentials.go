package store

import "context"

// AuthToken returns the persisted auth token, or "" when signed out.
// Reads go to the database every time so the freshest value wins.
func (s *Store) AuthToken(ctx context.Context) (string, error) {
	value, _, err := s.Get(ctx, KeyAuthToken)
	return value, err
}

// APIKey returns the persisted personal API key, or "" when none is set.
func (s *Store) APIKey(ctx context.Context) (string, error) {
	value, _, err := s.Get(ctx, KeyAPIKey)
	return value, err
}
