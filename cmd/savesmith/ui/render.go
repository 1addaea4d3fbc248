package ui

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"savesmith/internal/backend"
	"savesmith/internal/character"

	"github.com/tidwall/gjson"
)

// renderDocument renders a subsystem document: top-level scalars as a
// field table, arrays of objects as tables of their scalar fields, nested
// objects flattened one level. filter narrows every table.
func renderDocument(styles Styles, title string, data json.RawMessage, filter string) string {
	if len(data) == 0 {
		return styles.Muted.Render("No data.")
	}
	doc := gjson.ParseBytes(data)

	if doc.IsArray() {
		return orEmpty(styles, tableFromArray(title, doc).Filter(filter).View(styles))
	}

	fields := NewSimpleTable(title, []string{"Field", "Value"})
	var lists []*SimpleTable
	doc.ForEach(func(key, value gjson.Result) bool {
		switch {
		case value.IsArray() && isObjectArray(value):
			lists = append(lists, tableFromArray(titleCase(key.String()), value))
		case value.IsArray():
			fields.AddRow(titleCase(key.String()), joinScalars(value))
		case value.IsObject():
			value.ForEach(func(sub, v gjson.Result) bool {
				if !v.IsObject() && !v.IsArray() {
					fields.AddRow(titleCase(key.String())+" "+titleCase(sub.String()), v.String())
				}
				return true
			})
		default:
			fields.AddRow(titleCase(key.String()), value.String())
		}
		return true
	})

	var sb strings.Builder
	sb.WriteString(fields.Filter(filter).View(styles))
	for _, t := range lists {
		if view := t.Filter(filter).View(styles); view != "" {
			sb.WriteString("\n")
			sb.WriteString(view)
		}
	}
	return orEmpty(styles, sb.String())
}

func orEmpty(styles Styles, s string) string {
	if strings.TrimSpace(s) == "" {
		return styles.Muted.Render("Nothing matches.")
	}
	return s
}

func isObjectArray(arr gjson.Result) bool {
	first := arr.Get("0")
	return first.Exists() && first.IsObject()
}

// tableFromArray builds a table whose columns are the scalar fields of the
// first element, capped at MaxTableColumns.
func tableFromArray(title string, arr gjson.Result) *SimpleTable {
	var keys []string
	first := arr.Get("0")
	if first.IsObject() {
		first.ForEach(func(k, v gjson.Result) bool {
			if !v.IsObject() && !v.IsArray() {
				keys = append(keys, k.String())
			}
			return len(keys) < MaxTableColumns
		})
	}
	if len(keys) == 0 {
		t := NewSimpleTable(title, []string{"Value"})
		arr.ForEach(func(_, v gjson.Result) bool {
			t.AddRow(v.String())
			return true
		})
		return t
	}

	headers := make([]string, len(keys))
	for i, k := range keys {
		headers[i] = titleCase(k)
	}
	t := NewSimpleTable(title, headers)
	arr.ForEach(func(_, item gjson.Result) bool {
		row := make([]string, len(keys))
		for i, k := range keys {
			row[i] = item.Get(gjson.Escape(k)).String()
		}
		t.AddRow(row...)
		return true
	})
	return t
}

func joinScalars(arr gjson.Result) string {
	var parts []string
	arr.ForEach(func(_, v gjson.Result) bool {
		if v.IsObject() || v.IsArray() {
			parts = append(parts, "…")
			return false
		}
		parts = append(parts, v.String())
		return true
	})
	return strings.Join(parts, ", ")
}

// titleCase turns snake_case and camelCase keys into "Title Case".
func titleCase(key string) string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	prevLower := false
	for _, r := range key {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
			prevLower = false
			continue
		case unicode.IsUpper(r) && prevLower:
			flush()
		}
		cur = append(cur, r)
		prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
	}
	flush()

	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// overviewMarkdown summarizes the character and the overview subsystems as
// markdown for glamour.
func overviewMarkdown(c *backend.Character, dirty bool, snaps map[character.Name]character.Snapshot, names []character.Name) string {
	var sb strings.Builder
	if c != nil {
		fmt.Fprintf(&sb, "# %s\n\n", c.Name)
		fmt.Fprintf(&sb, "**Gold:** %d", c.Gold)
		if c.FilePath != "" {
			fmt.Fprintf(&sb, " · **Save:** `%s`", c.FilePath)
		}
		if dirty {
			sb.WriteString(" · *unsaved changes*")
		}
		sb.WriteString("\n\n")
	}

	for _, n := range names {
		snap, ok := snaps[n]
		fmt.Fprintf(&sb, "## %s\n\n", titleCase(string(n)))
		switch {
		case !ok || (!snap.HasData() && snap.Loading()):
			sb.WriteString("_Loading…_\n\n")
			continue
		case !snap.HasData() && snap.Err != nil:
			fmt.Fprintf(&sb, "> Failed to load: %v\n\n", snap.Err)
			continue
		case !snap.HasData():
			sb.WriteString("_No data._\n\n")
			continue
		}
		sb.WriteString(summaryMarkdown(snap.Data))
		if snap.Err != nil {
			fmt.Fprintf(&sb, "> Showing cached data; refresh failed: %v\n\n", snap.Err)
		}
	}
	return sb.String()
}

// summaryMarkdown renders the scalar fields of a document as a markdown
// table and counts its lists.
func summaryMarkdown(data json.RawMessage) string {
	doc := gjson.ParseBytes(data)
	if doc.IsArray() {
		return fmt.Sprintf("%d entries\n\n", len(doc.Array()))
	}

	var rows, counts []string
	doc.ForEach(func(key, value gjson.Result) bool {
		switch {
		case value.IsArray():
			counts = append(counts, fmt.Sprintf("- %s: %d", titleCase(key.String()), len(value.Array())))
		case value.IsObject():
			value.ForEach(func(sub, v gjson.Result) bool {
				if !v.IsObject() && !v.IsArray() {
					rows = append(rows, fmt.Sprintf("| %s %s | %s |", titleCase(key.String()), titleCase(sub.String()), escapeCell(v.String())))
				}
				return true
			})
		default:
			rows = append(rows, fmt.Sprintf("| %s | %s |", titleCase(key.String()), escapeCell(value.String())))
		}
		return true
	})

	var sb strings.Builder
	if len(rows) > 0 {
		sb.WriteString("| Field | Value |\n| --- | --- |\n")
		sb.WriteString(strings.Join(rows, "\n"))
		sb.WriteString("\n\n")
	}
	if len(counts) > 0 {
		sort.Strings(counts)
		sb.WriteString(strings.Join(counts, "\n"))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
