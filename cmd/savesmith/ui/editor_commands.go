package ui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"savesmith/internal/backend"
	"savesmith/internal/character"
)

var errEmptyCommand = errors.New("empty command")

// editCommand is a parsed ":" command line.
type editCommand struct {
	action  character.Action
	summary string
	run     func(ctx context.Context, s *character.Session) (*backend.MutationResult, error)
}

const commandHelp = "feat add|remove ID • spell add|remove ID [CLASS [LEVEL]] • equip INDEX SLOT • unequip SLOT • delete INDEX • gold AMOUNT • save"

// parseCommand parses an edit command. The leading "item" of item
// commands is optional.
func parseCommand(input string, createBackup bool) (editCommand, error) {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(input), ":"))
	if len(fields) == 0 {
		return editCommand{}, errEmptyCommand
	}
	if fields[0] == "item" {
		fields = fields[1:]
		if len(fields) == 0 {
			return editCommand{}, usage("item equip|unequip|delete ...")
		}
	}

	switch fields[0] {
	case "feat":
		if len(fields) != 3 {
			return editCommand{}, usage("feat add|remove ID")
		}
		id, err := intField("feat id", fields[2])
		if err != nil {
			return editCommand{}, err
		}
		switch fields[1] {
		case "add":
			return editCommand{
				action:  character.ActionAddFeat,
				summary: fmt.Sprintf("add feat %d", id),
				run: func(ctx context.Context, s *character.Session) (*backend.MutationResult, error) {
					return s.AddFeat(ctx, id)
				},
			}, nil
		case "remove", "rm":
			return editCommand{
				action:  character.ActionRemoveFeat,
				summary: fmt.Sprintf("remove feat %d", id),
				run: func(ctx context.Context, s *character.Session) (*backend.MutationResult, error) {
					return s.RemoveFeat(ctx, id)
				},
			}, nil
		}
		return editCommand{}, usage("feat add|remove ID")

	case "spell":
		if len(fields) < 3 || len(fields) > 5 {
			return editCommand{}, usage("spell add|remove ID [CLASS [LEVEL]]")
		}
		nums := make([]int, 3)
		labels := []string{"spell id", "class index", "spell level"}
		for i, f := range fields[2:] {
			n, err := intField(labels[i], f)
			if err != nil {
				return editCommand{}, err
			}
			nums[i] = n
		}
		req := backend.SpellRequest{SpellID: nums[0], ClassIndex: nums[1], SpellLevel: nums[2]}
		switch fields[1] {
		case "add":
			return editCommand{
				action:  character.ActionAddSpell,
				summary: fmt.Sprintf("add spell %d", req.SpellID),
				run: func(ctx context.Context, s *character.Session) (*backend.MutationResult, error) {
					return s.AddSpell(ctx, req)
				},
			}, nil
		case "remove", "rm":
			return editCommand{
				action:  character.ActionRemoveSpell,
				summary: fmt.Sprintf("remove spell %d", req.SpellID),
				run: func(ctx context.Context, s *character.Session) (*backend.MutationResult, error) {
					return s.RemoveSpell(ctx, req)
				},
			}, nil
		}
		return editCommand{}, usage("spell add|remove ID [CLASS [LEVEL]]")

	case "equip":
		if len(fields) != 3 {
			return editCommand{}, usage("equip INDEX SLOT")
		}
		idx, err := intField("inventory index", fields[1])
		if err != nil {
			return editCommand{}, err
		}
		req := backend.EquipRequest{InventoryIndex: idx, Slot: fields[2]}
		return editCommand{
			action:  character.ActionEquipItem,
			summary: fmt.Sprintf("equip item %d to %s", idx, req.Slot),
			run: func(ctx context.Context, s *character.Session) (*backend.MutationResult, error) {
				return s.EquipItem(ctx, req)
			},
		}, nil

	case "unequip":
		if len(fields) != 2 {
			return editCommand{}, usage("unequip SLOT")
		}
		slot := fields[1]
		return editCommand{
			action:  character.ActionUnequipItem,
			summary: "unequip " + slot,
			run: func(ctx context.Context, s *character.Session) (*backend.MutationResult, error) {
				return s.UnequipItem(ctx, slot)
			},
		}, nil

	case "delete":
		if len(fields) != 2 {
			return editCommand{}, usage("delete INDEX")
		}
		idx, err := intField("inventory index", fields[1])
		if err != nil {
			return editCommand{}, err
		}
		return editCommand{
			action:  character.ActionDeleteItem,
			summary: fmt.Sprintf("delete item %d", idx),
			run: func(ctx context.Context, s *character.Session) (*backend.MutationResult, error) {
				return s.DeleteItem(ctx, idx)
			},
		}, nil

	case "gold":
		if len(fields) != 2 {
			return editCommand{}, usage("gold AMOUNT")
		}
		gold, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil || gold < 0 {
			return editCommand{}, fmt.Errorf("gold must be a non-negative integer, got %q", fields[1])
		}
		return editCommand{
			action:  character.ActionUpdateGold,
			summary: fmt.Sprintf("set gold to %d", gold),
			run: func(ctx context.Context, s *character.Session) (*backend.MutationResult, error) {
				return s.UpdateGold(ctx, gold)
			},
		}, nil

	case "save", "w":
		if len(fields) != 1 {
			return editCommand{}, usage("save")
		}
		return saveCommand(createBackup), nil
	}

	return editCommand{}, fmt.Errorf("unknown command %q (%s)", fields[0], commandHelp)
}

func saveCommand(createBackup bool) editCommand {
	return editCommand{
		action:  character.ActionSaveCharacter,
		summary: "save",
		run: func(ctx context.Context, s *character.Session) (*backend.MutationResult, error) {
			return s.Save(ctx, createBackup)
		},
	}
}

func usage(form string) error {
	return fmt.Errorf("usage: %s", form)
}

func intField(label, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", label, s)
	}
	return n, nil
}
