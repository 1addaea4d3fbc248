package main

import (
	"context"
	"fmt"
	"strconv"

	"savesmith/internal/backend"
	"savesmith/internal/character"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	noSave       bool
	createBackup bool
	spellClass   int
	spellLevel   int
)

// featCmd groups feat edits
var featCmd = &cobra.Command{
	Use:   "feat",
	Short: "Add or remove feats",
}

var featAddCmd = &cobra.Command{
	Use:   "add <save> <feat-id>",
	Short: "Grant a feat",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		featID, err := parseIntArg("feat-id", args[1])
		if err != nil {
			return err
		}
		return runMutation(cmd, args[0], func(ctx context.Context, s *character.Session) (*backend.MutationResult, error) {
			return s.AddFeat(ctx, featID)
		})
	},
}

var featRemoveCmd = &cobra.Command{
	Use:   "remove <save> <feat-id>",
	Short: "Remove a feat",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		featID, err := parseIntArg("feat-id", args[1])
		if err != nil {
			return err
		}
		return runMutation(cmd, args[0], func(ctx context.Context, s *character.Session) (*backend.MutationResult, error) {
			return s.RemoveFeat(ctx, featID)
		})
	},
}

// spellCmd groups spell edits
var spellCmd = &cobra.Command{
	Use:   "spell",
	Short: "Add or remove known spells",
}

var spellAddCmd = &cobra.Command{
	Use:   "add <save> <spell-id>",
	Short: "Add a known spell",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := spellRequest(args[1])
		if err != nil {
			return err
		}
		return runMutation(cmd, args[0], func(ctx context.Context, s *character.Session) (*backend.MutationResult, error) {
			return s.AddSpell(ctx, req)
		})
	},
}

var spellRemoveCmd = &cobra.Command{
	Use:   "remove <save> <spell-id>",
	Short: "Remove a known spell",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := spellRequest(args[1])
		if err != nil {
			return err
		}
		return runMutation(cmd, args[0], func(ctx context.Context, s *character.Session) (*backend.MutationResult, error) {
			return s.RemoveSpell(ctx, req)
		})
	},
}

// itemCmd groups inventory edits
var itemCmd = &cobra.Command{
	Use:   "item",
	Short: "Equip, unequip or delete inventory items",
}

var itemEquipCmd = &cobra.Command{
	Use:   "equip <save> <inventory-index> <slot>",
	Short: "Equip an inventory item into a slot",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseIntArg("inventory-index", args[1])
		if err != nil {
			return err
		}
		req := backend.EquipRequest{InventoryIndex: index, Slot: args[2]}
		return runMutation(cmd, args[0], func(ctx context.Context, s *character.Session) (*backend.MutationResult, error) {
			return s.EquipItem(ctx, req)
		})
	},
}

var itemUnequipCmd = &cobra.Command{
	Use:   "unequip <save> <slot>",
	Short: "Empty an equipment slot",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		slot := args[1]
		return runMutation(cmd, args[0], func(ctx context.Context, s *character.Session) (*backend.MutationResult, error) {
			return s.UnequipItem(ctx, slot)
		})
	},
}

var itemDeleteCmd = &cobra.Command{
	Use:   "delete <save> <inventory-index>",
	Short: "Delete an inventory item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseIntArg("inventory-index", args[1])
		if err != nil {
			return err
		}
		return runMutation(cmd, args[0], func(ctx context.Context, s *character.Session) (*backend.MutationResult, error) {
			return s.DeleteItem(ctx, index)
		})
	},
}

// goldCmd sets the character's gold
var goldCmd = &cobra.Command{
	Use:   "gold <save> <amount>",
	Short: "Set the character's gold",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		gold, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || gold < 0 {
			return fmt.Errorf("invalid amount %q: must be a non-negative integer", args[1])
		}
		return runMutation(cmd, args[0], func(ctx context.Context, s *character.Session) (*backend.MutationResult, error) {
			return s.UpdateGold(ctx, gold)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{featCmd, spellCmd, itemCmd, goldCmd} {
		c.PersistentFlags().BoolVar(&noSave, "no-save", false, "Apply the edit without writing the save file")
		c.PersistentFlags().BoolVar(&createBackup, "backup", true, "Back up the save file before writing it")
	}
	spellCmd.PersistentFlags().IntVar(&spellClass, "class-index", 0, "Index of the casting class")
	spellCmd.PersistentFlags().IntVar(&spellLevel, "level", 0, "Spell level")

	featCmd.AddCommand(featAddCmd, featRemoveCmd)
	spellCmd.AddCommand(spellAddCmd, spellRemoveCmd)
	itemCmd.AddCommand(itemEquipCmd, itemUnequipCmd, itemDeleteCmd)
}

func parseIntArg(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, value)
	}
	return n, nil
}

func spellRequest(arg string) (backend.SpellRequest, error) {
	id, err := parseIntArg("spell-id", arg)
	if err != nil {
		return backend.SpellRequest{}, err
	}
	return backend.SpellRequest{SpellID: id, ClassIndex: spellClass, SpellLevel: spellLevel}, nil
}

// runMutation opens savePath, applies edit and saves unless --no-save.
func runMutation(cmd *cobra.Command, savePath string, edit func(context.Context, *character.Session) (*backend.MutationResult, error)) error {
	ctx, cancel := commandContext()
	defer cancel()

	session, c, err := openSave(ctx, savePath)
	if err != nil {
		return err
	}
	defer session.Close()

	out := cmd.OutOrStdout()
	res, err := edit(ctx, session)
	if err != nil {
		return err
	}
	printResult(cmd, res)

	if noSave {
		fmt.Fprintf(out, "Not saved (--no-save); %s has unsaved changes in the backend.\n", c.Name)
		return nil
	}

	saved, err := session.Save(ctx, createBackup)
	if err != nil {
		return fmt.Errorf("edit applied but save failed: %w", err)
	}
	printResult(cmd, saved)
	logger.Info("save written", zap.String("path", savePath), zap.Bool("backup", createBackup))
	return nil
}

func printResult(cmd *cobra.Command, res *backend.MutationResult) {
	out := cmd.OutOrStdout()
	if res.Message != "" {
		fmt.Fprintln(out, res.Message)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
}
