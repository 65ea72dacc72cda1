package db

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"lumia-router/internal/catalog"
)

// SaveItems replaces the item catalog and its drop tables.
func (d *DB) SaveItems(items []*catalog.Item) error {
	tx, err := d.sql.Begin()
	if err != nil {
		return fmt.Errorf("save items: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM item_drops"); err != nil {
		return fmt.Errorf("save items: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM items"); err != nil {
		return fmt.Errorf("save items: %w", err)
	}

	itemStmt, err := tx.Prepare(`INSERT OR REPLACE INTO items (
		code, name, item_type, grade, make_material_1, make_material_2, initial_count, common
	) VALUES (?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("save items prepare: %w", err)
	}
	defer itemStmt.Close()
	dropStmt, err := tx.Prepare("INSERT OR REPLACE INTO item_drops (item_code, area_code, count) VALUES (?,?,?)")
	if err != nil {
		return fmt.Errorf("save items prepare: %w", err)
	}
	defer dropStmt.Close()

	for _, it := range items {
		if _, err := itemStmt.Exec(
			it.Code, it.Name, it.ItemType, it.Grade,
			it.MakeMaterial1, it.MakeMaterial2, it.InitialCount, it.Common,
		); err != nil {
			return fmt.Errorf("save item %d: %w", it.Code, err)
		}
		for area, n := range it.AreaItemCounts {
			if n <= 0 {
				continue
			}
			if _, err := dropStmt.Exec(it.Code, area, n); err != nil {
				return fmt.Errorf("save drops for item %d: %w", it.Code, err)
			}
		}
	}
	return tx.Commit()
}

// SaveCharacters replaces the character table and every starting kit.
func (d *DB) SaveCharacters(chars []*catalog.Character) error {
	tx, err := d.sql.Begin()
	if err != nil {
		return fmt.Errorf("save characters: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM character_start_items"); err != nil {
		return fmt.Errorf("save characters: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM characters"); err != nil {
		return fmt.Errorf("save characters: %w", err)
	}

	charStmt, err := tx.Prepare("INSERT OR REPLACE INTO characters (code, name, weapon_types) VALUES (?,?,?)")
	if err != nil {
		return fmt.Errorf("save characters prepare: %w", err)
	}
	defer charStmt.Close()
	kitStmt, err := tx.Prepare(`INSERT OR REPLACE INTO character_start_items (
		character_code, weapon_type, item_code, count
	) VALUES (?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("save characters prepare: %w", err)
	}
	defer kitStmt.Close()

	for _, ch := range chars {
		weapons, _ := json.Marshal(ch.WeaponTypes)
		if ch.WeaponTypes == nil {
			weapons = []byte("[]")
		}
		if _, err := charStmt.Exec(ch.Code, ch.Name, string(weapons)); err != nil {
			return fmt.Errorf("save character %d: %w", ch.Code, err)
		}
		for weapon, kit := range ch.StartItems {
			for code, n := range kit {
				if _, err := kitStmt.Exec(ch.Code, weapon, code, n); err != nil {
					return fmt.Errorf("save kit %d/%s: %w", ch.Code, weapon, err)
				}
			}
		}
	}
	return tx.Commit()
}

// LoadCatalog reads the four catalog tables concurrently and builds a catalog.
func (d *DB) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	var (
		items []*catalog.Item
		drops []dropRow
		chars []*catalog.Character
		kits  []kitRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		items, err = d.loadItems(gctx)
		return err
	})
	g.Go(func() (err error) {
		drops, err = d.loadDrops(gctx)
		return err
	})
	g.Go(func() (err error) {
		chars, err = d.loadCharacters(gctx)
		return err
	})
	g.Go(func() (err error) {
		kits, err = d.loadKits(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	byCode := make(map[int32]*catalog.Item, len(items))
	for _, it := range items {
		byCode[it.Code] = it
	}
	for _, r := range drops {
		it, ok := byCode[r.item]
		if !ok {
			continue
		}
		if it.AreaItemCounts == nil {
			it.AreaItemCounts = make(map[int32]int)
		}
		it.AreaItemCounts[r.area] = r.count
	}

	charByCode := make(map[int32]*catalog.Character, len(chars))
	for _, ch := range chars {
		charByCode[ch.Code] = ch
	}
	for _, r := range kits {
		ch, ok := charByCode[r.character]
		if !ok {
			continue
		}
		if ch.StartItems == nil {
			ch.StartItems = make(map[string]catalog.ItemCounts)
		}
		kit := ch.StartItems[r.weapon]
		if kit == nil {
			kit = make(catalog.ItemCounts)
			ch.StartItems[r.weapon] = kit
		}
		kit.Add(r.item, r.count)
	}

	return catalog.New(items, chars), nil
}

type dropRow struct {
	item, area int32
	count      int
}

type kitRow struct {
	character int32
	weapon    string
	item      int32
	count     int
}

func (d *DB) loadItems(ctx context.Context) ([]*catalog.Item, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT code, name, item_type, grade, make_material_1, make_material_2, initial_count, common
		FROM items ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*catalog.Item
	for rows.Next() {
		it := &catalog.Item{}
		if err := rows.Scan(
			&it.Code, &it.Name, &it.ItemType, &it.Grade,
			&it.MakeMaterial1, &it.MakeMaterial2, &it.InitialCount, &it.Common,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (d *DB) loadDrops(ctx context.Context) ([]dropRow, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT item_code, area_code, count FROM item_drops")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []dropRow
	for rows.Next() {
		var r dropRow
		if err := rows.Scan(&r.item, &r.area, &r.count); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *DB) loadCharacters(ctx context.Context) ([]*catalog.Character, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT code, name, weapon_types FROM characters ORDER BY code")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*catalog.Character
	for rows.Next() {
		ch := &catalog.Character{}
		var weapons string
		if err := rows.Scan(&ch.Code, &ch.Name, &weapons); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(weapons), &ch.WeaponTypes); err != nil {
			return nil, fmt.Errorf("character %d weapon types: %w", ch.Code, err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (d *DB) loadKits(ctx context.Context) ([]kitRow, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT character_code, weapon_type, item_code, count FROM character_start_items")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []kitRow
	for rows.Next() {
		var r kitRow
		if err := rows.Scan(&r.character, &r.weapon, &r.item, &r.count); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
