package character

// Action names a backend mutation.
type Action string

const (
	ActionAddFeat       Action = "add_feat"
	ActionRemoveFeat    Action = "remove_feat"
	ActionAddSpell      Action = "add_spell"
	ActionRemoveSpell   Action = "remove_spell"
	ActionEquipItem     Action = "equip_item"
	ActionUnequipItem   Action = "unequip_item"
	ActionDeleteItem    Action = "delete_item"
	ActionUpdateGold    Action = "update_gold"
	ActionSaveCharacter Action = "save_character"
)

// Feats grant ability bonuses, attack and AC modifiers, save bonuses and
// skill bonuses. Equipment does the same through item properties.
var (
	featEffects = []Name{Feats, AbilityScores, Combat, Saves, Skills}
	itemEffects = []Name{Inventory, AbilityScores, Combat, Saves, Skills}
)

// Dependencies maps each mutation to the subsystems whose cached data it
// makes stale. Saving writes the file but changes no derived data.
var Dependencies = map[Action][]Name{
	ActionAddFeat:       featEffects,
	ActionRemoveFeat:    featEffects,
	ActionAddSpell:      {Spells},
	ActionRemoveSpell:   {Spells},
	ActionEquipItem:     itemEffects,
	ActionUnequipItem:   itemEffects,
	ActionDeleteItem:    itemEffects,
	ActionUpdateGold:    {Inventory},
	ActionSaveCharacter: nil,
}

// Affected returns a copy of the subsystems invalidated by action.
func Affected(action Action) []Name {
	deps := Dependencies[action]
	out := make([]Name, len(deps))
	copy(out, deps)
	return out
}
