// SPDX-License-Identifier: MIT

package streamcache

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/renameio/v2"
)

// The snapshot is a JSON object mapping media identifier to a
// [location, expiresAtEpochSeconds] pair, the same layout the original
// deployment persisted so existing snapshot files keep loading.

// LoadFile reads a snapshot from path. A missing file yields an empty map
// and no error; malformed records are skipped.
func LoadFile(path string) (map[string]Entry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	var raw map[string][]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}

	entries := make(map[string]Entry, len(raw))
	for id, pair := range raw {
		if len(pair) != 2 {
			continue
		}
		var location string
		var epoch float64
		if err := json.Unmarshal(pair[0], &location); err != nil {
			continue
		}
		if err := json.Unmarshal(pair[1], &epoch); err != nil {
			continue
		}
		if location == "" {
			continue
		}
		sec := int64(epoch)
		nsec := int64((epoch - float64(sec)) * float64(time.Second))
		entries[id] = Entry{
			Location:  location,
			ExpiresAt: time.Unix(sec, nsec),
		}
	}
	return entries, nil
}

// SaveFile atomically writes a snapshot to path.
func SaveFile(path string, entries map[string]Entry) error {
	raw := make(map[string][2]any, len(entries))
	for id, e := range entries {
		raw[id] = [2]any{e.Location, float64(e.ExpiresAt.UnixNano()) / float64(time.Second)}
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending snapshot %s: %w", path, err)
	}
	defer func() {
		_ = pending.Cleanup()
	}()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace snapshot %s: %w", path, err)
	}
	return nil
}
