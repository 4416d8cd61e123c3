// ABOUTME: Settings storage: raw JSON key/value rows plus typed accessors
// ABOUTME: Home-feed capture settings fall back to the older captureFromHome boolean

package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/harper/xvault/internal/models"
)

const (
	HomeFeedKey        = "homeFeedSettings"
	CaptureFromHomeKey = "captureFromHome"
	AssistantKey       = "assistant"
)

type settingRow struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

func (r *settingRow) setting() models.Setting {
	return models.Setting{Key: r.Key, Value: json.RawMessage(r.Value)}
}

// GetSetting returns the raw JSON value for key, or nil if unset.
func (s *Store) GetSetting(ctx context.Context, key string) (json.RawMessage, error) {
	db, err := s.reader(ctx)
	if err != nil {
		return nil, err
	}
	row, err := Get[settingRow](ctx, db, Settings, key)
	if err != nil || row == nil {
		return nil, err
	}
	return json.RawMessage(row.Value), nil
}

// PutSetting stores value under key as JSON.
func (s *Store) PutSetting(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		return Put(ctx, tx, Settings, &settingRow{Key: key, Value: string(data)})
	})
}

// DeleteSetting removes key.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		return Delete(ctx, tx, Settings, key)
	})
}

// ListSettings returns every setting ordered by key.
func (s *Store) ListSettings(ctx context.Context) ([]models.Setting, error) {
	db, err := s.reader(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := Collect(Scan[settingRow](ctx, db, Settings, Query{}))
	if err != nil {
		return nil, err
	}
	out := make([]models.Setting, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.setting())
	}
	return out, nil
}

// getJSON decodes key into dst and reports whether it was set.
func (s *Store) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := s.GetSetting(ctx, key)
	if err != nil || raw == nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.logger.Warn("ignoring malformed setting", "key", key, "err", err)
		return false, nil
	}
	return true, nil
}

// HomeFeed returns the home-feed capture settings. Defaults are disabled
// with no thresholds.
func (s *Store) HomeFeed(ctx context.Context) (models.HomeFeedSettings, error) {
	var hf models.HomeFeedSettings
	found, err := s.getJSON(ctx, HomeFeedKey, &hf)
	if err != nil || found {
		return hf, err
	}

	var legacy bool
	if _, err := s.getJSON(ctx, CaptureFromHomeKey, &legacy); err != nil {
		return hf, err
	}
	hf.Enabled = legacy
	return hf, nil
}

// SetHomeFeed stores the home-feed settings, keeping the older boolean in step.
func (s *Store) SetHomeFeed(ctx context.Context, hf models.HomeFeedSettings) error {
	if hf.MinLikes < 0 || hf.MinImpressions < 0 {
		return fmt.Errorf("%w: thresholds must not be negative", ErrInvalidRecord)
	}
	if err := s.PutSetting(ctx, HomeFeedKey, hf); err != nil {
		return err
	}
	return s.PutSetting(ctx, CaptureFromHomeKey, hf.Enabled)
}

// CaptureFromHome reports whether home-feed capture is enabled.
func (s *Store) CaptureFromHome(ctx context.Context) (bool, error) {
	hf, err := s.HomeFeed(ctx)
	return hf.Enabled, err
}

// SetCaptureFromHome toggles home-feed capture, keeping the thresholds.
func (s *Store) SetCaptureFromHome(ctx context.Context, enabled bool) error {
	hf, err := s.HomeFeed(ctx)
	if err != nil {
		return err
	}
	hf.Enabled = enabled
	return s.SetHomeFeed(ctx, hf)
}

// Assistant returns the assistant settings.
func (s *Store) Assistant(ctx context.Context) (models.AssistantSettings, error) {
	var a models.AssistantSettings
	_, err := s.getJSON(ctx, AssistantKey, &a)
	return a, err
}

// SetAssistant stores the assistant settings.
func (s *Store) SetAssistant(ctx context.Context, a models.AssistantSettings) error {
	return s.PutSetting(ctx, AssistantKey, a)
}
