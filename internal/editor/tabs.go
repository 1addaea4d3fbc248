package editor

import "savesmith/internal/character"

// Tab identifies an editor tab.
type Tab string

const (
	TabOverview  Tab = "overview"
	TabAbilities Tab = "abilities"
	TabClasses   Tab = "classes"
	TabSkills    Tab = "skills"
	TabFeats     Tab = "feats"
	TabSpells    Tab = "spells"
	TabInventory Tab = "inventory"
	TabCombat    Tab = "combat"
)

// Tabs lists every tab in display order.
var Tabs = []Tab{TabOverview, TabAbilities, TabClasses, TabSkills, TabFeats, TabSpells, TabInventory, TabCombat}

// tabSubsystems maps each tab to the subsystems it renders.
var tabSubsystems = map[Tab][]character.Name{
	TabOverview: {
		character.AbilityScores,
		character.Combat,
		character.Skills,
		character.Feats,
		character.Saves,
		character.Classes,
	},
	TabAbilities: {character.AbilityScores},
	TabClasses:   {character.Classes},
	TabSkills:    {character.Skills},
	TabFeats:     {character.Feats},
	TabSpells:    {character.Spells},
	TabInventory: {character.Inventory},
	TabCombat:    {character.Combat, character.Saves},
}

// Subsystems returns the subsystems rendered by t, or nil for an unknown tab.
func (t Tab) Subsystems() []character.Name {
	names := tabSubsystems[t]
	if names == nil {
		return nil
	}
	out := make([]character.Name, len(names))
	copy(out, names)
	return out
}

// Valid reports whether t is a known tab.
func (t Tab) Valid() bool {
	_, ok := tabSubsystems[t]
	return ok
}

// Title returns the label shown in the tab bar.
func (t Tab) Title() string {
	switch t {
	case TabOverview:
		return "Overview"
	case TabAbilities:
		return "Abilities"
	case TabClasses:
		return "Classes"
	case TabSkills:
		return "Skills"
	case TabFeats:
		return "Feats"
	case TabSpells:
		return "Spells"
	case TabInventory:
		return "Inventory"
	case TabCombat:
		return "Combat"
	}
	return string(t)
}

// ParseTab resolves a tab name.
func ParseTab(s string) (Tab, bool) {
	t := Tab(s)
	return t, t.Valid()
}
