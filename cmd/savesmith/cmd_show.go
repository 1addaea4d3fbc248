package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"savesmith/internal/character"
	"savesmith/internal/editor"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

var showQuery string

// showCmd prints character data
var showCmd = &cobra.Command{
	Use:   "show <save> [subsystem|tab ...]",
	Short: "Open a save and print character data as JSON",
	Long: `Opens a save and prints the requested subsystems. Arguments may name
subsystems (skills, classes, abilityScores, feats, combat, saves, spells,
inventory) or editor tabs (overview, abilities, ...). Without arguments the
overview tab is printed.

Use --query to extract a field from every document with a gjson path:
  savesmith show ./save/player.bic feats --query "feats.#.name"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVarP(&showQuery, "query", "q", "", "gjson path applied to each subsystem document")
}

// resolveSubsystems expands tab and subsystem names into subsystems,
// preserving order and dropping duplicates.
func resolveSubsystems(args []string) ([]character.Name, error) {
	if len(args) == 0 {
		return editor.TabOverview.Subsystems(), nil
	}
	seen := make(map[character.Name]bool)
	var out []character.Name
	add := func(n character.Name) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	for _, arg := range args {
		if n, ok := character.ParseName(arg); ok {
			add(n)
			continue
		}
		if t, ok := editor.ParseTab(arg); ok {
			for _, n := range t.Subsystems() {
				add(n)
			}
			continue
		}
		return nil, fmt.Errorf("%w: %q is neither a subsystem nor a tab", editor.ErrUnknownTab, arg)
	}
	return out, nil
}

func runShow(cmd *cobra.Command, args []string) error {
	names, err := resolveSubsystems(args[1:])
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	session, c, err := openSave(ctx, args[0])
	if err != nil {
		return err
	}
	defer session.Close()

	docs, failed := loadAll(ctx, session, names)

	result := map[string]any{"character": c}
	for name, data := range docs {
		if showQuery != "" {
			res := gjson.GetBytes(data, showQuery)
			if !res.Exists() {
				result[string(name)] = nil
				continue
			}
			result[string(name)] = json.RawMessage(res.Raw)
			continue
		}
		result[string(name)] = data
	}
	if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
		return err
	}

	if len(failed) > 0 {
		keys := make([]string, 0, len(failed))
		for n, err := range failed {
			keys = append(keys, fmt.Sprintf("%s: %v", n, err))
		}
		sort.Strings(keys)
		return fmt.Errorf("failed to load %d subsystem(s):\n  %s", len(failed), strings.Join(keys, "\n  "))
	}
	return nil
}

// loadAll loads names through a tab router so independent subsystems load in
// parallel and one failure does not hide the others.
func loadAll(ctx context.Context, session *character.Session, names []character.Name) (map[character.Name]json.RawMessage, map[character.Name]error) {
	docs := make(map[character.Name]json.RawMessage, len(names))
	failed := make(map[character.Name]error)

	router := editor.NewRouter(session, editor.WithLogger(logger.Named("editor")))
	sel := router.LoadNames(ctx, names)
	for _, n := range names {
		if err, ok := sel.Errors[n]; ok {
			failed[n] = err
			continue
		}
		docs[n] = sel.Snapshots[n].Data
	}
	return docs, failed
}
