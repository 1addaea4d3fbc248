package main

import (
	"fmt"
	"strconv"

	"savesmith/internal/backend"
	"savesmith/internal/saves"
	"savesmith/internal/store"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	listBackups bool
	listLimit   int
	listOffset  int
)

// savesCmd lists save files
var savesCmd = &cobra.Command{
	Use:   "saves [path]",
	Short: "List save files (or backups with --backups)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSaves,
}

// recentCmd lists recently opened saves
var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recently opened saves",
	Args:  cobra.NoArgs,
	RunE:  runRecent,
}

func init() {
	savesCmd.Flags().BoolVar(&listBackups, "backups", false, "List backups instead of saves")
	savesCmd.Flags().IntVar(&listLimit, "limit", 0, "Entries per page (default: saves.page_size)")
	savesCmd.Flags().IntVar(&listOffset, "offset", 0, "Index of the first entry")
}

func runSaves(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	client, err := newClient()
	if err != nil {
		return err
	}

	q := backend.ListQuery{Limit: listLimit, Offset: listOffset}
	if q.Limit <= 0 {
		q.Limit = cfg.Saves.PageSize
	}
	if len(args) == 1 {
		q.Path = args[0]
	}

	kind := saves.KindSaves
	var list *backend.FileList
	if listBackups {
		kind = saves.KindBackups
		list, err = client.ListBackups(ctx, q)
	} else {
		list, err = client.ListSaves(ctx, q)
	}
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", kind, err)
	}

	out := cmd.OutOrStdout()
	if len(list.Files) == 0 {
		fmt.Fprintf(out, "No %s found in %s.\n", kind, list.CurrentPath)
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NAME", "CHARACTER", "SIZE", "MODIFIED")
	for _, f := range list.Files {
		name := f.Name
		if f.IsDirectory {
			name += "/"
		}
		t.Row(name, f.CharacterName, humanize.Bytes(uint64(f.Size)), humanize.Time(f.Modified))
	}
	fmt.Fprintln(out, list.CurrentPath)
	fmt.Fprintln(out, t.Render())

	page := saves.Page{Offset: q.Offset, Limit: q.Limit, Total: list.TotalCount, Files: list.Files}
	fmt.Fprintf(out, "Page %d of %d (%d %s)\n", page.PageNumber(), page.PageCount(), list.TotalCount, kind)
	if page.HasNext() {
		fmt.Fprintf(out, "Next page: savesmith saves --offset %s\n", strconv.Itoa(q.Offset+q.Limit))
	}
	return nil
}

func runRecent(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	recent, err := store.OpenRecentStore(cfg.GetDatabasePath())
	if err != nil {
		return err
	}
	defer recent.Close()

	entries, err := recent.List(ctx, cfg.Store.RecentLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No recently opened saves.")
		return nil
	}
	for i, e := range entries {
		who := e.CharacterName
		if who == "" {
			who = "?"
		}
		fmt.Fprintf(out, "%2d. %-24s %-20s %s\n", i+1, e.Name, who, humanize.Time(e.OpenedAt))
		fmt.Fprintf(out, "    %s\n", e.Path)
	}
	return nil
}
