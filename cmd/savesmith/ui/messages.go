package ui

import (
	"savesmith/internal/backend"
	"savesmith/internal/character"
	"savesmith/internal/editor"
	"savesmith/internal/readiness"
	"savesmith/internal/saves"
	"savesmith/internal/store"
)

// Messages exchanged between the pages and their async commands. Results
// that depend on the open character carry the session epoch they were
// started under so late arrivals from a previous character are dropped.

type readinessMsg struct {
	handle *readiness.Handle
	update readiness.Update
}

type readinessDoneMsg struct {
	handle *readiness.Handle
	err    error
}

type pageLoadedMsg struct {
	page *saves.Page
	err  error
}

type recentLoadedMsg struct {
	recents []store.RecentSave
	err     error
}

type savesChangedMsg struct {
	event saves.Event
}

type characterOpenedMsg struct {
	path      string
	character *backend.Character
	epoch     uint64
	err       error
}

type tabLoadedMsg struct {
	epoch uint64
	sel   editor.Selection
}

type mutationDoneMsg struct {
	epoch   uint64
	action  character.Action
	summary string
	result  *backend.MutationResult
	err     error
}

type toastExpiredMsg struct {
	id int
}

// closeCharacterMsg asks the model to return to the browser.
type closeCharacterMsg struct{}

// openRequestMsg asks the model to open a save file.
type openRequestMsg struct {
	path string
}
