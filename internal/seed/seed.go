// Package seed ships the initial dataset of every application. A collection
// falls back to its seed when storage holds nothing for it.
package seed

import (
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"deskcore/pkg/domain"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var files embed.FS

// Raw returns the embedded YAML document of app.
func Raw(app string) ([]byte, error) {
	data, err := files.ReadFile("data/" + app + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("seed for %q: %w", app, err)
	}
	return data, nil
}

// Load decodes the seed dataset of the catalog's app. Records without
// timestamps are stamped with now.
func Load(catalog *domain.Catalog, now time.Time) (domain.Snapshot, error) {
	data, err := Raw(catalog.App())
	if err != nil {
		return nil, err
	}
	return Parse(catalog, data, now)
}

// Parse decodes a seed document keyed by collection storage key.
func Parse(catalog *domain.Catalog, data []byte, now time.Time) (domain.Snapshot, error) {
	var doc map[string][]map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	snapshot := make(domain.Snapshot, len(doc))
	for _, d := range catalog.Descriptors() {
		entries, ok := doc[d.Key()]
		if !ok {
			snapshot[d.Entity()] = []domain.Record{}
			continue
		}
		payload, err := json.Marshal(entries)
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", d.Key(), err)
		}
		records, err := d.Decode(payload)
		if err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
		for _, rec := range records {
			meta := rec.Meta()
			if meta.CreatedAt.IsZero() {
				meta.CreatedAt = now.UTC()
			}
			if meta.UpdatedAt.IsZero() {
				meta.UpdatedAt = meta.CreatedAt
			}
			if err := d.ValidateRecord(rec); err != nil {
				return nil, fmt.Errorf("seed %s %s: %w", d.Key(), meta.ID, err)
			}
		}
		snapshot[d.Entity()] = records
	}
	for key := range doc {
		if _, ok := catalog.ByKey(key); !ok {
			return nil, fmt.Errorf("seed: %w: collection %q", domain.ErrUnknownEntity, key)
		}
	}
	return snapshot, nil
}
