package catalog

import (
	"errors"
	"fmt"
)

// WeaponTypes lists the weapon-mastery tags a character can start with.
var WeaponTypes = []string{
	"OneHandSword",
	"TwoHandSword",
	"Axe",
	"DualSword",
	"Pistol",
	"AssaultRifle",
	"SniperRifle",
	"Rapier",
	"Spear",
	"Hammer",
	"Bat",
	"HighAngleFire",
	"DirectFire",
	"Bow",
	"CrossBow",
	"Glove",
	"Tonfa",
	"Guitar",
	"Nunchaku",
	"Whip",
}

var weaponTypeSet = func() map[string]bool {
	m := make(map[string]bool, len(WeaponTypes))
	for _, w := range WeaponTypes {
		m[w] = true
	}
	return m
}()

// IsWeaponType reports whether tag is a known weapon type.
func IsWeaponType(tag string) bool {
	return weaponTypeSet[tag]
}

var (
	ErrUnknownCharacter  = errors.New("unknown character")
	ErrUnknownWeaponType = errors.New("unknown weapon type")
)

// Character is a playable character and its starting loadouts.
type Character struct {
	Code        int32    `json:"code"`
	Name        string   `json:"name"`
	WeaponTypes []string `json:"weapon_types"`
	// StartItems maps weapon type -> starting inventory for that loadout.
	StartItems map[string]ItemCounts `json:"start_items"`
}

// Characters returns all characters ordered by code.
func (c *Catalog) Characters() []*Character {
	out := make([]*Character, 0, len(c.charCodes))
	for _, code := range c.charCodes {
		out = append(out, c.characters[code])
	}
	return out
}

// FindCharacter looks up a character by code.
func (c *Catalog) FindCharacter(code int32) (*Character, bool) {
	ch, ok := c.characters[code]
	return ch, ok
}

// StartItemCounts resolves a (character, weapon type) pair into a fresh starting inventory.
func (c *Catalog) StartItemCounts(characterCode int32, weaponType string) (ItemCounts, error) {
	ch, ok := c.characters[characterCode]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCharacter, characterCode)
	}
	if !IsWeaponType(weaponType) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWeaponType, weaponType)
	}
	allowed := false
	for _, w := range ch.WeaponTypes {
		if w == weaponType {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s cannot start with %q", ErrUnknownWeaponType, ch.Name, weaponType)
	}
	return ch.StartItems[weaponType].Clone(), nil
}
