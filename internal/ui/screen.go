// Package ui draws the playground in a terminal and turns key events
// into session operations.
//
// The screen has six panes: preset selector, plugin checkboxes, option
// form, input editor, and an output pane that switches to the export
// view. The bottom row shows status messages and prompts.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/esplay/internal/form"
	"github.com/dshills/esplay/internal/optree"
	"github.com/dshills/esplay/internal/plugin"
	"github.com/dshills/esplay/internal/renderer/backend"
	"github.com/dshills/esplay/internal/renderer/core"
	"github.com/dshills/esplay/internal/renderer/highlight"
	"github.com/dshills/esplay/internal/session"
)

// Pane identifies a focusable pane.
type Pane int

const (
	PanePresets Pane = iota
	PanePlugins
	PaneForm
	PaneInput
	PaneOutput
	paneCount
)

// String returns the pane name.
func (p Pane) String() string {
	switch p {
	case PanePresets:
		return "presets"
	case PanePlugins:
		return "plugins"
	case PaneForm:
		return "options"
	case PaneInput:
		return "input"
	case PaneOutput:
		return "output"
	default:
		return "unknown"
	}
}

// Actions are the operations the screen delegates to its host, usually
// because they run in the background.
type Actions struct {
	Format        func()
	ImportScript  func(path string)
	ImportOptions func(path string)
	// ToggleFollow starts or stops reloading the imported script when it
	// changes on disk and returns the new state.
	ToggleFollow func() (bool, error)
	Quit         func()
}

const helpText = "Tab focus  ^F format  ^O open script  ^L load options  ^E export  ^X export view  ^W watch  ^R reset  ^Q quit"

// Screen is the playground UI.
type Screen struct {
	ctx     context.Context
	sess    *session.Session
	theme   Theme
	actions Actions

	focus      Pane
	showExport bool

	presetIdx int
	pluginIdx int

	fold    *form.Fold
	root    *form.Node
	formErr error
	rows    []form.Row
	formIdx int
	formTop int

	input  *textArea
	output viewer
	export viewer

	editing *fieldEdit
	prompt  *prompt

	status    string
	statusErr bool
}

type fieldEdit struct {
	node *form.Node
	edit *lineEdit
}

type prompt struct {
	label    string
	edit     *lineEdit
	onSubmit func(string)
}

// New creates a screen for sess. ctx bounds the session operations the
// screen performs directly.
func New(ctx context.Context, sess *session.Session, theme Theme, actions Actions) *Screen {
	s := &Screen{
		ctx:     ctx,
		sess:    sess,
		theme:   theme,
		actions: actions,
		focus:   PaneInput,
		fold:    form.NewFold(),
		input:   newTextArea(highlight.JavaScript()),
		output:  viewer{lexer: highlight.JavaScript()},
		export:  viewer{lexer: highlight.JSON()},
	}
	s.input.SetText(sess.Source())
	s.Refresh()
	return s
}

// Focus returns the focused pane.
func (s *Screen) Focus() Pane { return s.focus }

// Status returns the status message and whether it is an error.
func (s *Screen) Status() (string, bool) { return s.status, s.statusErr }

// SetStatus shows a message on the status line.
func (s *Screen) SetStatus(msg string) {
	s.status, s.statusErr = msg, false
}

// SetError shows err on the status line.
func (s *Screen) SetError(err error) {
	s.status, s.statusErr = err.Error(), true
}

// SetInput replaces the input text, as after a script import.
func (s *Screen) SetInput(src string) {
	s.input.SetText(src)
	s.sess.SetSource(src)
}

// Refresh re-reads the form, output and export view from the session.
func (s *Screen) Refresh() {
	s.root, s.formErr = s.sess.Form()
	s.rows = form.Flatten(s.root, s.fold)
	s.formIdx = min(s.formIdx, max(0, len(s.rows)-1))

	if s.editing != nil {
		if n, ok := form.Lookup(s.root, s.editing.node.Path); ok && !n.IsGroup() {
			s.editing.node = n
		} else {
			s.editing = nil
		}
	}

	out, err := s.sess.Output()
	if err != nil {
		s.output.SetText("error: "+err.Error(), true)
	} else {
		s.output.SetText(out, false)
	}
	if export, err := s.sess.Export(); err != nil {
		s.export.SetText("error: "+err.Error(), true)
	} else {
		s.export.SetText(export, false)
	}
}

// HandleEvent processes one terminal event.
func (s *Screen) HandleEvent(ev backend.Event) {
	if ev.Type != backend.EventKey {
		return
	}
	if s.prompt != nil {
		s.handlePrompt(ev)
		return
	}
	if s.editing != nil {
		s.handleFieldEdit(ev)
		return
	}
	if s.handleGlobal(ev) {
		return
	}

	switch s.focus {
	case PanePresets:
		s.handlePresets(ev)
	case PanePlugins:
		s.handlePlugins(ev)
	case PaneForm:
		s.handleForm(ev)
	case PaneInput:
		if s.input.handle(ev) {
			s.sess.SetSource(s.input.Text())
		}
	case PaneOutput:
		if s.showExport {
			s.export.handle(ev)
		} else {
			s.output.handle(ev)
		}
	}
}

func (s *Screen) handleGlobal(ev backend.Event) bool {
	switch ev.Key {
	case backend.KeyCtrlQ:
		if s.actions.Quit != nil {
			s.actions.Quit()
		}
	case backend.KeyTab:
		if s.focus == PaneInput {
			return false
		}
		s.focus = (s.focus + 1) % paneCount
	case backend.KeyBacktab:
		s.focus = (s.focus + paneCount - 1) % paneCount
	case backend.KeyEscape:
		if s.focus == PaneInput {
			s.focus = PaneOutput
		}
	case backend.KeyCtrlF:
		if s.actions.Format != nil {
			s.SetStatus("formatting…")
			s.actions.Format()
		}
	case backend.KeyCtrlO:
		s.ask("open script: ", func(path string) {
			if s.actions.ImportScript != nil {
				s.actions.ImportScript(path)
			}
		})
	case backend.KeyCtrlL:
		s.ask("load options: ", func(path string) {
			if s.actions.ImportOptions != nil {
				s.actions.ImportOptions(path)
			}
		})
	case backend.KeyCtrlE:
		s.ask("export options to: ", func(path string) {
			if err := s.sess.ExportFile(path); err != nil {
				s.SetError(err)
				return
			}
			s.SetStatus("exported to " + path)
		})
	case backend.KeyCtrlX:
		s.showExport = !s.showExport
	case backend.KeyCtrlW:
		if s.actions.ToggleFollow == nil {
			return true
		}
		on, err := s.actions.ToggleFollow()
		switch {
		case err != nil:
			s.SetError(err)
		case on:
			s.SetStatus("watching script for changes")
		default:
			s.SetStatus("stopped watching script")
		}
	case backend.KeyCtrlR:
		s.ask("reset all options? (y/n) ", func(answer string) {
			if !strings.EqualFold(strings.TrimSpace(answer), "y") {
				return
			}
			if err := s.sess.Reset(s.ctx); err != nil {
				s.SetError(err)
				return
			}
			s.SetStatus("options reset")
			s.Refresh()
		})
	default:
		return false
	}
	return true
}

func (s *Screen) ask(label string, onSubmit func(string)) {
	s.prompt = &prompt{label: label, edit: newLineEdit(""), onSubmit: onSubmit}
}

func (s *Screen) handlePrompt(ev backend.Event) {
	p := s.prompt
	switch ev.Key {
	case backend.KeyEscape, backend.KeyCtrlC:
		s.prompt = nil
	case backend.KeyEnter:
		s.prompt = nil
		if text := strings.TrimSpace(p.edit.String()); text != "" {
			p.onSubmit(text)
		}
	default:
		p.edit.handle(ev)
	}
}

func (s *Screen) handlePresets(ev backend.Event) {
	names := s.sess.Presets().Names()
	switch ev.Key {
	case backend.KeyUp:
		s.presetIdx = max(0, s.presetIdx-1)
	case backend.KeyDown:
		s.presetIdx = min(len(names)-1, s.presetIdx+1)
	case backend.KeyEnter, backend.KeyRune:
		if ev.Key == backend.KeyRune && ev.Rune != ' ' {
			return
		}
		if s.presetIdx < 0 || s.presetIdx >= len(names) {
			return
		}
		name := names[s.presetIdx]
		if err := s.sess.SelectPreset(s.ctx, name); err != nil {
			s.SetError(err)
			return
		}
		s.SetStatus("preset " + name)
		s.Refresh()
	}
}

func (s *Screen) handlePlugins(ev backend.Event) {
	descs := s.sess.Plugins().Descriptors()
	switch ev.Key {
	case backend.KeyUp:
		s.pluginIdx = max(0, s.pluginIdx-1)
	case backend.KeyDown:
		s.pluginIdx = min(len(descs)-1, s.pluginIdx+1)
	case backend.KeyEnter, backend.KeyRune:
		if ev.Key == backend.KeyRune && ev.Rune != ' ' {
			return
		}
		if s.pluginIdx < 0 || s.pluginIdx >= len(descs) {
			return
		}
		name := descs[s.pluginIdx].DisplayName
		on := !s.sess.Plugins().Enabled(name)
		if err := s.sess.TogglePlugin(name, on); err != nil {
			s.SetError(err)
		}
	}
}

func (s *Screen) handleForm(ev backend.Event) {
	if len(s.rows) == 0 && ev.Rune != '+' {
		return
	}
	switch ev.Key {
	case backend.KeyUp:
		s.formIdx = max(0, s.formIdx-1)
	case backend.KeyDown:
		s.formIdx = min(len(s.rows)-1, s.formIdx+1)
	case backend.KeyPageUp:
		s.formIdx = max(0, s.formIdx-10)
	case backend.KeyPageDown:
		s.formIdx = min(len(s.rows)-1, s.formIdx+10)
	case backend.KeyHome:
		s.formIdx = 0
	case backend.KeyEnd:
		s.formIdx = len(s.rows) - 1
	case backend.KeyEnter:
		n := s.rows[s.formIdx].Node
		if n.IsGroup() {
			s.fold.Toggle(n.Path)
			s.rows = form.Flatten(s.root, s.fold)
			return
		}
		s.editing = &fieldEdit{node: n, edit: newLineEdit(n.Field.Value)}
	case backend.KeyDelete, backend.KeyBackspace:
		n := s.rows[s.formIdx].Node
		if n.IsGroup() || !n.Field.Overridden {
			return
		}
		s.apply(n.Path, n.Field.Type, "")
	case backend.KeyRune:
		switch ev.Rune {
		case '+':
			s.addOption()
		case '-':
			s.fold.CollapseAll(s.root)
			s.rows = form.Flatten(s.root, s.fold)
			s.formIdx = min(s.formIdx, len(s.rows)-1)
		case '=':
			s.fold.ExpandAll()
			s.rows = form.Flatten(s.root, s.fold)
		}
	}
}

// addOption prompts for a path not yet in the form and its value.
func (s *Screen) addOption() {
	s.ask("new option path (a/b): ", func(path string) {
		p := optree.ParsePath(path)
		if !p.Valid() {
			s.SetError(fmt.Errorf("%w: %s", optree.ErrInvalidPath, path))
			return
		}
		s.ask(path+" = ", func(value string) {
			s.apply(p, "", value)
		})
	})
}

func (s *Screen) handleFieldEdit(ev backend.Event) {
	e := s.editing
	switch ev.Key {
	case backend.KeyEscape:
		s.editing = nil
	case backend.KeyEnter:
		if s.apply(e.node.Path, e.node.Field.Type, e.edit.String()) {
			s.editing = nil
		}
	default:
		e.edit.handle(ev)
	}
}

// apply writes a form edit and reports whether it was accepted.
func (s *Screen) apply(path optree.Path, typ form.FieldType, input string) bool {
	if err := s.sess.Edit(s.ctx, path, typ, input); err != nil {
		s.SetError(err)
		return false
	}
	if input == "" {
		s.SetStatus("cleared " + path.String())
	} else {
		s.SetStatus("set " + path.String())
	}
	s.Refresh()
	return true
}

// Draw renders the whole screen.
func (s *Screen) Draw(b backend.Backend) {
	w, h := b.Size()
	b.Clear()
	c := canvas{b: b, clip: core.RectFromSize(0, 0, h, w)}
	cursorX, cursorY := -1, -1

	main, statusRow := c.clip.SplitV(h - 1)
	leftWidth := min(max(w/3, 24), w)
	left, right := main.SplitH(leftWidth)

	names := s.sess.Presets().Names()
	presetsRect, rest := left.SplitV(min(len(names)+2, 8))
	descs := s.sess.Plugins().Descriptors()
	pluginsRect, formRect := rest.SplitV(min(len(descs)+2, 8))
	inputRect, outputRect := right.SplitV(right.Height() / 2)

	s.drawPresets(c, presetsRect, names)
	s.drawPlugins(c, pluginsRect, descs)
	if x, y, ok := s.drawForm(c, formRect); ok {
		cursorX, cursorY = x, y
	}

	inner := c.box(inputRect, "Input", s.frame(PaneInput), s.title(PaneInput))
	x, y := s.input.draw(c.within(inner), inner, s.theme.Text, s.theme.Syntax)
	if s.focus == PaneInput && s.editing == nil {
		cursorX, cursorY = x, y
	}

	title, style, pal := "Output", s.theme.Text, s.theme.Syntax
	view := &s.output
	switch {
	case s.showExport:
		title, view = "Export", &s.export
	case s.sess.Stale():
		title += " (stale)"
	}
	if _, err := s.sess.Output(); err != nil && !s.showExport {
		style, pal = s.theme.Error, nil
	}
	inner = c.box(outputRect, title, s.frame(PaneOutput), s.title(PaneOutput))
	view.draw(c.within(inner), inner, style, pal)

	if x, y, ok := s.drawStatus(c, statusRow); ok {
		cursorX, cursorY = x, y
	}

	if cursorX >= 0 {
		b.ShowCursor(cursorX, cursorY)
	} else {
		b.HideCursor()
	}
	b.Show()
}

func (s *Screen) frame(p Pane) core.Style {
	if s.focus == p {
		return s.theme.Focused
	}
	return s.theme.Muted
}

func (s *Screen) title(p Pane) core.Style {
	if s.focus == p {
		return s.theme.Focused
	}
	return s.theme.Title
}

func (s *Screen) drawPresets(c canvas, r core.Rect, names []string) {
	inner := c.box(r, "Preset", s.frame(PanePresets), s.title(PanePresets))
	ic := c.within(inner)
	current := s.sess.Store().Preset()
	top := scrollTop(s.presetIdx, 0, inner.Height())
	for i := top; i < len(names) && i-top < inner.Height(); i++ {
		mark := "○ "
		if names[i] == current {
			mark = "● "
		}
		style := s.theme.Text
		if s.focus == PanePresets && i == s.presetIdx {
			style = s.theme.Selected
		}
		ic.text(inner.Left, inner.Top+i-top, mark+names[i], style)
	}
}

func (s *Screen) drawPlugins(c canvas, r core.Rect, descs []plugin.Descriptor) {
	inner := c.box(r, "Plugins", s.frame(PanePlugins), s.title(PanePlugins))
	ic := c.within(inner)
	top := scrollTop(s.pluginIdx, 0, inner.Height())
	for i := top; i < len(descs) && i-top < inner.Height(); i++ {
		box := "[ ] "
		if s.sess.Plugins().Enabled(descs[i].DisplayName) {
			box = "[x] "
		}
		style := s.theme.Text
		if s.focus == PanePlugins && i == s.pluginIdx {
			style = s.theme.Selected
		}
		ic.text(inner.Left, inner.Top+i-top, box+descs[i].DisplayName, style)
	}
}

func (s *Screen) drawForm(c canvas, r core.Rect) (int, int, bool) {
	inner := c.box(r, "Options", s.frame(PaneForm), s.title(PaneForm))
	ic := c.within(inner)
	if s.formErr != nil {
		ic.text(inner.Left, inner.Top, s.formErr.Error(), s.theme.Error)
		inner = inner.Inset(1, 0, 0, 0)
		ic = c.within(inner)
	}

	s.formTop = scrollTop(s.formIdx, s.formTop, inner.Height())
	cursorX, cursorY, hasCursor := 0, 0, false
	for i := s.formTop; i < len(s.rows) && i-s.formTop < inner.Height(); i++ {
		row := s.rows[i]
		y := inner.Top + i - s.formTop
		x := inner.Left + 2*row.Depth
		selected := s.focus == PaneForm && i == s.formIdx

		n := row.Node
		if n.IsGroup() {
			arrow := "▾ "
			if s.fold.Collapsed(n.Path) {
				arrow = "▸ "
			}
			style := s.theme.Title
			if selected {
				style = s.theme.Selected
			}
			ic.text(x, y, arrow+n.Key, style)
			continue
		}

		keyStyle := s.theme.Text
		if selected {
			keyStyle = s.theme.Selected
		}
		x = ic.text(x, y, n.Key+":", keyStyle) + 1

		if s.editing != nil && s.editing.node == n {
			cursorX = s.editing.edit.draw(ic, x, y, inner.Right-x, s.theme.Focused)
			cursorY, hasCursor = y, true
			continue
		}
		if n.Field.Overridden {
			ic.text(x, y, n.Field.Value, s.theme.Overridden)
		} else {
			ic.text(x, y, n.Field.Placeholder, s.theme.Muted)
		}
	}
	return cursorX, cursorY, hasCursor
}

func (s *Screen) drawStatus(c canvas, r core.Rect) (int, int, bool) {
	c.fill(r, s.theme.Status)
	if s.prompt != nil {
		x := c.text(r.Left, r.Top, s.prompt.label, s.theme.Status.Bold())
		return s.prompt.edit.draw(c, x, r.Top, r.Right-x, s.theme.Status), r.Top, true
	}
	switch {
	case s.status != "" && s.statusErr:
		c.text(r.Left, r.Top, s.status, s.theme.Error.WithBackground(s.theme.Status.Background))
	case s.status != "":
		c.text(r.Left, r.Top, s.status, s.theme.Status)
	default:
		c.text(r.Left, r.Top, helpText, s.theme.Status)
	}
	return 0, 0, false
}

// scrollTop returns the first visible row that keeps idx on screen.
func scrollTop(idx, top, height int) int {
	if height <= 0 {
		return 0
	}
	if idx < top {
		return idx
	}
	if idx >= top+height {
		return idx - height + 1
	}
	return top
}
