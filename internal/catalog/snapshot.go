package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Snapshot is the on-disk interchange form of a catalog, used to seed the database.
type Snapshot struct {
	Items      []*Item      `json:"items"`
	Characters []*Character `json:"characters"`
}

// ReadSnapshot decodes a snapshot and rejects entries the catalog could not index.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	for i, it := range s.Items {
		if it == nil || it.Code == 0 {
			return nil, fmt.Errorf("snapshot item %d: missing code", i)
		}
		if (it.MakeMaterial1 == 0) != (it.MakeMaterial2 == 0) {
			return nil, fmt.Errorf("snapshot item %d: recipe needs both materials", it.Code)
		}
	}
	for i, ch := range s.Characters {
		if ch == nil || ch.Code == 0 {
			return nil, fmt.Errorf("snapshot character %d: missing code", i)
		}
		for _, w := range ch.WeaponTypes {
			if !IsWeaponType(w) {
				return nil, fmt.Errorf("snapshot character %d: %w %q", ch.Code, ErrUnknownWeaponType, w)
			}
		}
	}
	return &s, nil
}

// ReadSnapshotFile opens path and reads a snapshot from it.
func ReadSnapshotFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSnapshot(f)
}

// Items returns all items ordered by code.
func (c *Catalog) Items() []*Item {
	out := make([]*Item, 0, len(c.codes))
	for _, code := range c.codes {
		out = append(out, c.items[code])
	}
	return out
}
