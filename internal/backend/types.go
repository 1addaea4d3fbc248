package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// =============================================================================
// INITIALIZATION STATUS
// =============================================================================

// Stage is the backend initialization stage.
type Stage string

const (
	StageInitializing    Stage = "initializing"
	StageIconCache       Stage = "icon_cache"
	StageGameData        Stage = "game_data"
	StageResourceManager Stage = "resource_manager"
	StageReady           Stage = "ready"
)

// Known reports whether s is one of the stages the backend emits.
func (s Stage) Known() bool {
	switch s {
	case StageInitializing, StageIconCache, StageGameData, StageResourceManager, StageReady:
		return true
	}
	return false
}

// Message returns the text shown to the user while in stage s.
func (s Stage) Message() string {
	switch s {
	case StageInitializing:
		return "Initializing backend..."
	case StageIconCache:
		return "Building icon cache..."
	case StageGameData:
		return "Loading game data..."
	case StageResourceManager:
		return "Starting resource manager..."
	case StageReady:
		return "Ready"
	}
	return "Waiting for backend..."
}

// Status is the body of GET /system/initialization/status/.
type Status struct {
	Stage    Stage   `json:"stage"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`
}

// Ready reports whether the backend finished initializing.
func (s *Status) Ready() bool {
	return s.Stage == StageReady
}

// Validate checks the status payload.
func (s *Status) Validate() error {
	if !s.Stage.Known() {
		return fmt.Errorf("unknown stage %q", s.Stage)
	}
	if s.Progress < 0 || s.Progress > 100 {
		return fmt.Errorf("progress %v out of range [0,100]", s.Progress)
	}
	return nil
}

// =============================================================================
// CHARACTER
// =============================================================================

// Character is the root record of a loaded save.
type Character struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Portrait          string `json:"portrait,omitempty"`
	Gold              int64  `json:"gold"`
	FilePath          string `json:"file_path,omitempty"`
	HasUnsavedChanges bool   `json:"has_unsaved_changes"`
}

// Validate checks the character payload.
func (c *Character) Validate() error {
	if c.ID <= 0 {
		return fmt.Errorf("character id must be positive, got %d", c.ID)
	}
	if c.Gold < 0 {
		return fmt.Errorf("gold must not be negative, got %d", c.Gold)
	}
	return nil
}

// rawSubsystem holds an opaque subsystem document.
type rawSubsystem struct {
	data json.RawMessage
}

func (r *rawSubsystem) UnmarshalJSON(b []byte) error {
	r.data = append(r.data[:0], b...)
	return nil
}

// Validate accepts JSON objects and arrays only.
func (r *rawSubsystem) Validate() error {
	for _, ch := range r.data {
		switch ch {
		case ' ', '\t', '\r', '\n':
			continue
		case '{', '[':
			return nil
		default:
			return errors.New("subsystem payload must be a JSON object or array")
		}
	}
	return errors.New("empty subsystem payload")
}

// =============================================================================
// MUTATIONS
// =============================================================================

// MutationResult is the minimum body every mutation endpoint returns.
type MutationResult struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message"`
	Warnings []string `json:"warnings,omitempty"`
}

// UnmarshalJSON requires the success field to be present.
func (m *MutationResult) UnmarshalJSON(b []byte) error {
	var wire struct {
		Success  *bool    `json:"success"`
		Message  string   `json:"message"`
		Warnings []string `json:"warnings"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	if wire.Success == nil {
		return errors.New("missing success field")
	}
	m.Success = *wire.Success
	m.Message = wire.Message
	m.Warnings = wire.Warnings
	return nil
}

// Validate is a no-op; UnmarshalJSON enforces the schema.
func (m *MutationResult) Validate() error { return nil }

// ImportRequest opens a save file.
type ImportRequest struct {
	FilePath string `json:"file_path"`
}

// FeatRequest adds or removes a feat.
type FeatRequest struct {
	FeatID int `json:"feat_id"`
}

// SpellRequest adds or removes a known spell.
type SpellRequest struct {
	SpellID    int `json:"spell_id"`
	ClassIndex int `json:"class_index"`
	SpellLevel int `json:"spell_level"`
}

// EquipRequest moves an inventory item into an equipment slot.
type EquipRequest struct {
	InventoryIndex int    `json:"inventory_index"`
	Slot           string `json:"slot"`
}

// UnequipRequest empties an equipment slot.
type UnequipRequest struct {
	Slot string `json:"slot"`
}

// DeleteItemRequest removes an inventory item.
type DeleteItemRequest struct {
	InventoryIndex int `json:"inventory_index"`
}

// GoldRequest sets the character's gold.
type GoldRequest struct {
	Gold int64 `json:"gold"`
}

// SaveRequest writes the character back to its save file.
type SaveRequest struct {
	CreateBackup bool `json:"create_backup"`
}

// =============================================================================
// FILES
// =============================================================================

// FileInfo describes one entry in a saves or backups directory.
type FileInfo struct {
	Name          string    `json:"name"`
	Path          string    `json:"path"`
	Size          int64     `json:"size"`
	Modified      time.Time `json:"modified"`
	IsDirectory   bool      `json:"is_directory"`
	CharacterName string    `json:"character_name,omitempty"`
}

// FileList is the body of the file listing endpoints.
type FileList struct {
	Files       []FileInfo `json:"files"`
	TotalCount  int        `json:"total_count"`
	CurrentPath string     `json:"current_path"`
}

// Validate checks the listing payload.
func (l *FileList) Validate() error {
	if l.TotalCount < 0 {
		return fmt.Errorf("negative total_count %d", l.TotalCount)
	}
	if len(l.Files) > l.TotalCount {
		return fmt.Errorf("total_count %d smaller than page of %d files", l.TotalCount, len(l.Files))
	}
	for i, f := range l.Files {
		if f.Name == "" || f.Path == "" {
			return fmt.Errorf("file %d missing name or path", i)
		}
	}
	return nil
}

// ListQuery selects a page of a directory listing.
type ListQuery struct {
	Path   string
	Limit  int
	Offset int
}

// Values encodes the query for the listing endpoints.
func (q ListQuery) Values() url.Values {
	v := url.Values{}
	if q.Path != "" {
		v.Set("path", q.Path)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	return v
}
