package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/toko-pricing/internal/settings"
)

const settingSQL = `SELECT value FROM site_settings WHERE key = $1`

// Setting returns the raw JSON value stored under key.
func (s *Store) Setting(ctx context.Context, key string) (json.RawMessage, error) {
	var raw []byte
	if err := s.db.QueryRow(ctx, settingSQL, key).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, settings.ErrNotFound
		}
		return nil, fmt.Errorf("get setting %s: %w", key, err)
	}
	return json.RawMessage(raw), nil
}
