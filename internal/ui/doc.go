// Package ui provides the terminal user interface for teedee.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program rendered with Lipgloss. It owns no todo
// data: every screen is drawn from the latest state.Snapshot, and every user
// action becomes a Store intent (Refresh, Add, Modify, Remove, Toggle) run as
// a tea.Cmd so network calls never block the update loop.
//
// # Package Structure
//
//   - ui.go: Model, Update dispatch, messages, commands and Run
//   - view.go: header, status line, todo list, delete confirmation, footer
//   - form.go: add/edit form built from two textinput fields
//   - logs.go: log overlay backed by logging.Tail
//   - help.go: help overlay generated from the key map
//   - keys.go: key bindings
//   - theme.go: color themes (Nightfox, Kanagawa, Slate)
//
// # Data Flow
//
//	store.Subscribe(deliver) ──> feed (latest snapshot wins)
//	                               │
//	waitForSnapshot cmd <──────────┘
//	      │
//	      └──> snapshotMsg ──> Model.snapshot ──> View()
//
//	key press ──> intent cmd ──> store.Add/Modify/... (blocks off-loop)
//	                                 │
//	                                 └──> listeners ──> feed
//
// The subscription listener never blocks: the feed channel holds one
// snapshot, and a newer snapshot replaces an undelivered older one.
//
// # Error Handling
//
// Store failures surface as the snapshot's Error string, shown in the status
// line with a hint to press r. The retry is a plain Refresh. Form validation
// (empty title) is local and keeps the form open.
//
// # Preferences
//
// T cycles the theme and h hides completed todos. Both are written back to
// prefs.toml through prefs.Save.
package ui
