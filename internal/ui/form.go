package ui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/teedee/internal/todoapi"
)

type formMode int

const (
	formAdd formMode = iota
	formEdit
)

const (
	fieldTitle = iota
	fieldDescription
	fieldCount
)

// todoForm edits the title and description of one todo. In edit mode the
// original record supplies the id and completion flag.
type todoForm struct {
	mode   formMode
	base   todoapi.Todo
	inputs [fieldCount]textinput.Model
	focus  int
	err    string
}

func newForm(mode formMode, base todoapi.Todo) todoForm {
	title := textinput.New()
	title.Prompt = "Title       > "
	title.Placeholder = "What needs doing?"
	title.CharLimit = 200

	desc := textinput.New()
	desc.Prompt = "Description > "
	desc.Placeholder = "Optional details"
	desc.CharLimit = 1000

	if mode == formEdit {
		title.SetValue(base.Title)
		if base.Description != "" {
			desc.SetValue(base.Description)
		}
		title.CursorEnd()
	}

	f := todoForm{mode: mode, base: base.Clone(), inputs: [fieldCount]textinput.Model{title, desc}}
	f.inputs[fieldTitle].Focus()
	return f
}

func (f *todoForm) setFocus(idx int) tea.Cmd {
	f.focus = (idx + fieldCount) % fieldCount
	var cmd tea.Cmd
	for i := range f.inputs {
		if i == f.focus {
			cmd = f.inputs[i].Focus()
		} else {
			f.inputs[i].Blur()
		}
	}
	return cmd
}

func (f *todoForm) next() tea.Cmd { return f.setFocus(f.focus + 1) }
func (f *todoForm) prev() tea.Cmd { return f.setFocus(f.focus - 1) }

// record builds the todo to submit. Titles are trimmed and must not be empty.
func (f todoForm) record() (todoapi.Todo, error) {
	draft, err := todoapi.NewDraft(f.inputs[fieldTitle].Value(), f.inputs[fieldDescription].Value())
	if err != nil {
		return todoapi.Todo{}, err
	}
	if f.mode == formEdit {
		draft.ID = f.base.ID
		draft.Completed = f.base.Completed
	}
	return draft, nil
}

func (f todoForm) update(msg tea.Msg) (todoForm, tea.Cmd) {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	if f.err != "" && strings.TrimSpace(f.inputs[fieldTitle].Value()) != "" {
		f.err = ""
	}
	return f, cmd
}

func (f todoForm) heading() string {
	if f.mode == formEdit {
		return "Edit todo"
	}
	return "New todo"
}

func formError(err error) string {
	if errors.Is(err, todoapi.ErrEmptyTitle) {
		return "Title cannot be empty"
	}
	return err.Error()
}

func (f todoForm) view(styles Styles, width int) string {
	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render(f.heading()))
	b.WriteString("\n\n")
	for i := range f.inputs {
		b.WriteString(f.inputs[i].View())
		b.WriteString("\n")
	}
	if f.err != "" {
		b.WriteString("\n")
		b.WriteString(styles.DangerText.Render(f.err))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("enter save · tab next field · esc cancel"))

	panel := styles.FocusPanel
	if width > 4 {
		panel = panel.Width(width - 4)
	}
	return panel.Render(b.String())
}
