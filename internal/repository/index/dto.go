package index

import (
	"encoding/json"
	"fmt"
	"strconv"

	domidx "github.com/kailas-cloud/tensordex/internal/domain/index"
	"github.com/kailas-cloud/tensordex/internal/domain/index/field"
)

// fieldRow is the JSON-serializable representation of a registry entry.
type fieldRow struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// indexToHash converts a domain Index to a map for HSET.
func indexToHash(idx domidx.Index) (map[string]string, error) {
	settingsJSON, err := json.Marshal(idx.Settings())
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}

	rows := make([]fieldRow, len(idx.Fields()))
	for i, f := range idx.Fields() {
		rows[i] = fieldRow{Name: f.Name(), Type: string(f.Type())}
	}
	fieldsJSON, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}

	return map[string]string{
		"name":          idx.Name(),
		"settings_json": string(settingsJSON),
		"fields_json":   string(fieldsJSON),
		"revision":      strconv.Itoa(idx.Revision()),
		"created_at":    strconv.FormatInt(idx.CreatedAt(), 10),
		"updated_at":    strconv.FormatInt(idx.UpdatedAt(), 10),
	}, nil
}

// registryToHash converts only the mutable registry part for incremental HSET.
func registryToHash(idx domidx.Index) (map[string]string, error) {
	rows := make([]fieldRow, len(idx.Fields()))
	for i, f := range idx.Fields() {
		rows[i] = fieldRow{Name: f.Name(), Type: string(f.Type())}
	}
	fieldsJSON, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}
	return map[string]string{
		"fields_json": string(fieldsJSON),
		"revision":    strconv.Itoa(idx.Revision()),
		"updated_at":  strconv.FormatInt(idx.UpdatedAt(), 10),
	}, nil
}

// indexFromHash hydrates a domain Index from an HGETALL result map.
func indexFromHash(m map[string]string) (domidx.Index, error) {
	name := m["name"]

	var settings domidx.Settings
	if raw := m["settings_json"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &settings); err != nil {
			return domidx.Index{}, fmt.Errorf("unmarshal settings: %w", err)
		}
	}

	var rows []fieldRow
	if raw := m["fields_json"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &rows); err != nil {
			return domidx.Index{}, fmt.Errorf("unmarshal fields: %w", err)
		}
	}
	fields := make([]field.Field, len(rows))
	for i, r := range rows {
		fields[i] = field.Reconstruct(r.Name, field.Type(r.Type))
	}

	createdAt, err := strconv.ParseInt(m["created_at"], 10, 64)
	if err != nil {
		return domidx.Index{}, fmt.Errorf("invalid created_at: %w", err)
	}

	updatedAt := createdAt
	if raw, ok := m["updated_at"]; ok && raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			updatedAt = parsed
		}
	}

	revision := 1
	if raw, ok := m["revision"]; ok && raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			revision = parsed
		}
	}

	return domidx.Reconstruct(name, settings, fields, revision, createdAt, updatedAt), nil
}
