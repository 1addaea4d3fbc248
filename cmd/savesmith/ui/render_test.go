package ui

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"savesmith/internal/backend"
	"savesmith/internal/character"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestTitleCase(t *testing.T) {
	cases := map[string]string{
		"armor_class":     "Armor Class",
		"baseAttackBonus": "Base Attack Bonus",
		"abilityScores":   "Ability Scores",
		"will":            "Will",
		"spell-level":     "Spell Level",
		"":                "",
	}
	for in, want := range cases {
		assert.Equal(t, want, titleCase(in), in)
	}
}

func TestRenderDocument(t *testing.T) {
	styles := NewStyles(LightTheme())
	data := json.RawMessage(`{
		"armor_class": 18,
		"alignment": {"law_chaos": 85, "good_evil": 90},
		"domains": ["War", "Strength"],
		"items": [
			{"name": "Longsword", "slot": "right_hand", "properties": [{"type": "enhancement"}]},
			{"name": "Tower Shield", "slot": "left_hand"}
		]
	}`)

	view := renderDocument(styles, "Inventory", data, "")
	for _, want := range []string{"Armor Class", "18", "Alignment Law Chaos", "War, Strength", "Items", "Longsword", "Tower Shield", "Slot"} {
		assert.Contains(t, view, want)
	}
	assert.NotContains(t, view, "enhancement", "nested lists are not flattened into columns")

	filtered := renderDocument(styles, "Inventory", data, "shield")
	assert.Contains(t, filtered, "Tower Shield")
	assert.NotContains(t, filtered, "Longsword")

	assert.Contains(t, renderDocument(styles, "", data, "no such thing"), "Nothing matches.")
	assert.Contains(t, renderDocument(styles, "", nil, ""), "No data.")
}

func TestRenderDocument_TopLevelArray(t *testing.T) {
	view := renderDocument(NewStyles(LightTheme()), "Skills", json.RawMessage(`[{"name":"Diplomacy","rank":4},{"name":"Lore","rank":9}]`), "")
	assert.Contains(t, view, "Diplomacy")
	assert.Contains(t, view, "Rank")

	scalars := renderDocument(NewStyles(LightTheme()), "", json.RawMessage(`["Alertness","Toughness"]`), "")
	assert.Contains(t, scalars, "Toughness")
}

func TestTableFromArrayCapsColumns(t *testing.T) {
	doc := `[{"a":1,"b":2,"c":3,"d":4,"e":5,"f":6,"g":7,"h":8}]`
	table := tableFromArray("Wide", gjson.Parse(doc))
	assert.Len(t, table.Headers, MaxTableColumns)
}

func TestOverviewMarkdown(t *testing.T) {
	c := &backend.Character{ID: 7, Name: "Aribeth", Gold: 250, FilePath: "/saves/000002 - Keep/resgff.zip"}
	snaps := map[character.Name]character.Snapshot{
		character.AbilityScores: {Name: character.AbilityScores, State: character.StateReady, Data: json.RawMessage(`{"strength":16}`)},
		character.Feats:         {Name: character.Feats, State: character.StateReady, Data: json.RawMessage(`{"feats":[{"id":1},{"id":2}]}`)},
		character.Skills: {
			Name:  character.Skills,
			State: character.StateFailed,
			Data:  json.RawMessage(`{"total":12}`),
			Err:   errors.New("timeout"),
		},
		character.Combat: {Name: character.Combat, State: character.StateFailed, Err: errors.New("boom")},
		character.Saves:  {Name: character.Saves, State: character.StateLoading},
	}
	names := []character.Name{character.AbilityScores, character.Combat, character.Skills, character.Feats, character.Saves, character.Classes}

	md := overviewMarkdown(c, true, snaps, names)
	assert.True(t, strings.HasPrefix(md, "# Aribeth\n"))
	assert.Contains(t, md, "**Gold:** 250")
	assert.Contains(t, md, "*unsaved changes*")
	assert.Contains(t, md, "## Ability Scores")
	assert.Contains(t, md, "| Strength | 16 |")
	assert.Contains(t, md, "- Feats: 2")
	assert.Contains(t, md, "> Failed to load: boom")
	assert.Contains(t, md, "| Total | 12 |")
	assert.Contains(t, md, "refresh failed: timeout")
	assert.Contains(t, md, "## Saves\n\n_Loading…_")
	assert.Contains(t, md, "## Classes\n\n_Loading…_")
}

func TestSummaryMarkdownEscapesPipes(t *testing.T) {
	md := summaryMarkdown(json.RawMessage(`{"note":"a|b"}`))
	assert.Contains(t, md, `a\|b`)
}
