package ui

import (
	"errors"
	"testing"

	"savesmith/internal/character"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		input   string
		action  character.Action
		summary string
	}{
		{"feat add 42", character.ActionAddFeat, "add feat 42"},
		{":feat remove 7", character.ActionRemoveFeat, "remove feat 7"},
		{"feat rm 7", character.ActionRemoveFeat, "remove feat 7"},
		{"spell add 101", character.ActionAddSpell, "add spell 101"},
		{"spell remove 101 1 3", character.ActionRemoveSpell, "remove spell 101"},
		{"equip 3 right_hand", character.ActionEquipItem, "equip item 3 to right_hand"},
		{"item equip 3 right_hand", character.ActionEquipItem, "equip item 3 to right_hand"},
		{"unequip head", character.ActionUnequipItem, "unequip head"},
		{"item delete 4", character.ActionDeleteItem, "delete item 4"},
		{"gold 1500", character.ActionUpdateGold, "set gold to 1500"},
		{"save", character.ActionSaveCharacter, "save"},
		{"  w  ", character.ActionSaveCharacter, "save"},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			cmd, err := parseCommand(tc.input, true)
			require.NoError(t, err)
			assert.Equal(t, tc.action, cmd.action)
			assert.Equal(t, tc.summary, cmd.summary)
			assert.NotNil(t, cmd.run)
		})
	}
}

func TestParseCommand_Errors(t *testing.T) {
	cases := map[string]string{
		"feat add":          "usage: feat add|remove ID",
		"feat grant 3":      "usage: feat add|remove ID",
		"feat add x":        "feat id must be a non-negative integer",
		"spell add 1 2 3 4": "usage: spell add|remove ID [CLASS [LEVEL]]",
		"spell add 1 two":   "class index must be",
		"equip 3":           "usage: equip INDEX SLOT",
		"delete -1":         "inventory index must be",
		"gold -5":           "gold must be a non-negative integer",
		"item":              "usage: item",
		"save now":          "usage: save",
		"levelup":           `unknown command "levelup"`,
	}
	for input, want := range cases {
		t.Run(input, func(t *testing.T) {
			_, err := parseCommand(input, false)
			require.Error(t, err)
			assert.Contains(t, err.Error(), want)
		})
	}

	_, err := parseCommand("  :  ", false)
	assert.True(t, errors.Is(err, errEmptyCommand))
}
