package backend

import (
	"context"
	"encoding/json"
	"fmt"
)

// Status fetches the backend initialization status.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var s Status
	if err := c.getJSON(ctx, "/system/initialization/status/", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ImportCharacter loads the save at filePath and returns its character.
func (c *Client) ImportCharacter(ctx context.Context, filePath string) (*Character, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path required")
	}
	var ch Character
	if err := c.postJSON(ctx, "/characters/import/", ImportRequest{FilePath: filePath}, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// GetCharacter fetches the root record of a loaded character.
func (c *Client) GetCharacter(ctx context.Context, id int64) (*Character, error) {
	var ch Character
	if err := c.getJSON(ctx, characterPath(id, ""), nil, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// GetSubsystem fetches one subsystem document of a character. The
// payload is returned as-is once it is known to be a JSON object or array.
func (c *Client) GetSubsystem(ctx context.Context, id int64, subsystem string) (json.RawMessage, error) {
	if subsystem == "" {
		return nil, fmt.Errorf("subsystem required")
	}
	var raw rawSubsystem
	if err := c.getJSON(ctx, characterPath(id, subsystem+"/"), nil, &raw); err != nil {
		return nil, err
	}
	return raw.data, nil
}

// AddFeat grants a feat.
func (c *Client) AddFeat(ctx context.Context, id int64, featID int) (*MutationResult, error) {
	return c.mutate(ctx, "add feat", characterPath(id, "feats/add/"), FeatRequest{FeatID: featID})
}

// RemoveFeat removes a feat.
func (c *Client) RemoveFeat(ctx context.Context, id int64, featID int) (*MutationResult, error) {
	return c.mutate(ctx, "remove feat", characterPath(id, "feats/remove/"), FeatRequest{FeatID: featID})
}

// AddSpell adds a known spell.
func (c *Client) AddSpell(ctx context.Context, id int64, req SpellRequest) (*MutationResult, error) {
	return c.mutate(ctx, "add spell", characterPath(id, "spells/add/"), req)
}

// RemoveSpell removes a known spell.
func (c *Client) RemoveSpell(ctx context.Context, id int64, req SpellRequest) (*MutationResult, error) {
	return c.mutate(ctx, "remove spell", characterPath(id, "spells/remove/"), req)
}

// EquipItem equips an inventory item.
func (c *Client) EquipItem(ctx context.Context, id int64, req EquipRequest) (*MutationResult, error) {
	return c.mutate(ctx, "equip item", characterPath(id, "inventory/equip/"), req)
}

// UnequipItem empties an equipment slot.
func (c *Client) UnequipItem(ctx context.Context, id int64, slot string) (*MutationResult, error) {
	return c.mutate(ctx, "unequip item", characterPath(id, "inventory/unequip/"), UnequipRequest{Slot: slot})
}

// DeleteItem removes an inventory item.
func (c *Client) DeleteItem(ctx context.Context, id int64, inventoryIndex int) (*MutationResult, error) {
	return c.mutate(ctx, "delete item", characterPath(id, "inventory/delete/"), DeleteItemRequest{InventoryIndex: inventoryIndex})
}

// UpdateGold sets the character's gold.
func (c *Client) UpdateGold(ctx context.Context, id int64, gold int64) (*MutationResult, error) {
	if gold < 0 {
		return nil, fmt.Errorf("gold must not be negative, got %d", gold)
	}
	return c.mutate(ctx, "update gold", characterPath(id, "gold/"), GoldRequest{Gold: gold})
}

// SaveCharacter writes the character back to its save file.
func (c *Client) SaveCharacter(ctx context.Context, id int64, createBackup bool) (*MutationResult, error) {
	return c.mutate(ctx, "save character", characterPath(id, "save/"), SaveRequest{CreateBackup: createBackup})
}

// ListSaves lists a page of the saves directory.
func (c *Client) ListSaves(ctx context.Context, q ListQuery) (*FileList, error) {
	var l FileList
	if err := c.getJSON(ctx, "/saves/", q.Values(), &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// ListBackups lists a page of the backups directory.
func (c *Client) ListBackups(ctx context.Context, q ListQuery) (*FileList, error) {
	var l FileList
	if err := c.getJSON(ctx, "/saves/backups/", q.Values(), &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// mutate posts a mutation and turns success=false into a MutationError.
func (c *Client) mutate(ctx context.Context, action, path string, payload any) (*MutationResult, error) {
	var res MutationResult
	if err := c.postJSON(ctx, path, payload, &res); err != nil {
		return nil, err
	}
	if !res.Success {
		return &res, &MutationError{Action: action, Message: res.Message, Warnings: res.Warnings}
	}
	return &res, nil
}

func characterPath(id int64, suffix string) string {
	return fmt.Sprintf("/characters/%d/%s", id, suffix)
}
