package character

import (
	"context"
	"fmt"

	"savesmith/internal/backend"

	"go.uber.org/zap"
)

// mutate runs call against the open character. On success the subsystems
// listed for action are invalidated and the dirty flag updated. On failure
// nothing changes locally.
func (s *Session) mutate(ctx context.Context, action Action, call func(ctx context.Context, id int64) (*backend.MutationResult, error), apply func(c *backend.Character)) (*backend.MutationResult, error) {
	s.mu.Lock()
	if s.character == nil {
		s.mu.Unlock()
		return nil, ErrNoCharacter
	}
	id, epoch := s.character.ID, s.epoch
	s.mu.Unlock()

	res, err := call(ctx, id)
	if err != nil {
		s.logger.Warn("mutation failed", zap.String("action", string(action)), zap.Error(err))
		return res, fmt.Errorf("%s: %w", action, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return res, ErrSessionClosed
	}

	s.invalidateLocked(Dependencies[action]...)
	if apply != nil {
		apply(s.character)
	}
	s.dirty = action != ActionSaveCharacter
	s.character.HasUnsavedChanges = s.dirty

	s.logger.Info("mutation applied",
		zap.String("action", string(action)),
		zap.Int64("character_id", id),
		zap.Strings("warnings", res.Warnings))
	return res, nil
}

// AddFeat grants featID.
func (s *Session) AddFeat(ctx context.Context, featID int) (*backend.MutationResult, error) {
	return s.mutate(ctx, ActionAddFeat, func(ctx context.Context, id int64) (*backend.MutationResult, error) {
		return s.backend.AddFeat(ctx, id, featID)
	}, nil)
}

// RemoveFeat removes featID.
func (s *Session) RemoveFeat(ctx context.Context, featID int) (*backend.MutationResult, error) {
	return s.mutate(ctx, ActionRemoveFeat, func(ctx context.Context, id int64) (*backend.MutationResult, error) {
		return s.backend.RemoveFeat(ctx, id, featID)
	}, nil)
}

// AddSpell adds a known spell.
func (s *Session) AddSpell(ctx context.Context, req backend.SpellRequest) (*backend.MutationResult, error) {
	return s.mutate(ctx, ActionAddSpell, func(ctx context.Context, id int64) (*backend.MutationResult, error) {
		return s.backend.AddSpell(ctx, id, req)
	}, nil)
}

// RemoveSpell removes a known spell.
func (s *Session) RemoveSpell(ctx context.Context, req backend.SpellRequest) (*backend.MutationResult, error) {
	return s.mutate(ctx, ActionRemoveSpell, func(ctx context.Context, id int64) (*backend.MutationResult, error) {
		return s.backend.RemoveSpell(ctx, id, req)
	}, nil)
}

// EquipItem equips the inventory item at req.InventoryIndex.
func (s *Session) EquipItem(ctx context.Context, req backend.EquipRequest) (*backend.MutationResult, error) {
	return s.mutate(ctx, ActionEquipItem, func(ctx context.Context, id int64) (*backend.MutationResult, error) {
		return s.backend.EquipItem(ctx, id, req)
	}, nil)
}

// UnequipItem empties slot.
func (s *Session) UnequipItem(ctx context.Context, slot string) (*backend.MutationResult, error) {
	return s.mutate(ctx, ActionUnequipItem, func(ctx context.Context, id int64) (*backend.MutationResult, error) {
		return s.backend.UnequipItem(ctx, id, slot)
	}, nil)
}

// DeleteItem removes the inventory item at index.
func (s *Session) DeleteItem(ctx context.Context, index int) (*backend.MutationResult, error) {
	return s.mutate(ctx, ActionDeleteItem, func(ctx context.Context, id int64) (*backend.MutationResult, error) {
		return s.backend.DeleteItem(ctx, id, index)
	}, nil)
}

// UpdateGold sets the character's gold.
func (s *Session) UpdateGold(ctx context.Context, gold int64) (*backend.MutationResult, error) {
	return s.mutate(ctx, ActionUpdateGold, func(ctx context.Context, id int64) (*backend.MutationResult, error) {
		return s.backend.UpdateGold(ctx, id, gold)
	}, func(c *backend.Character) {
		c.Gold = gold
	})
}

// Save writes the character to its save file and clears the dirty flag.
func (s *Session) Save(ctx context.Context, createBackup bool) (*backend.MutationResult, error) {
	return s.mutate(ctx, ActionSaveCharacter, func(ctx context.Context, id int64) (*backend.MutationResult, error) {
		return s.backend.SaveCharacter(ctx, id, createBackup)
	}, func(c *backend.Character) {
		c.HasUnsavedChanges = false
	})
}
