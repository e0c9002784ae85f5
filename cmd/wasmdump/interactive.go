package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-decoder/wasm"
)

var (
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(lipgloss.Color("#666666")).
			PaddingRight(1)
)

const listWidth = 30

type interactiveModel struct {
	err      error
	dumper   *dumper
	filename string
	opts     wasm.Options
	sections []wasm.Section
	view     viewport.Model
	selected int
	ready    bool
	validate bool
}

func newInteractiveModel(filename string, opts wasm.Options, validate bool) *interactiveModel {
	return &interactiveModel{
		filename: filename,
		opts:     opts,
		validate: validate,
	}
}

type loadedMsg struct {
	err    error
	module *wasm.Module
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadModule
}

func (m *interactiveModel) loadModule() tea.Msg {
	data, err := os.ReadFile(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}
	var mod *wasm.Module
	if m.validate {
		mod, err = wasm.DecodeAndValidate(data, m.opts)
	} else {
		mod, err = wasm.DecodeModuleWithOptions(data, m.opts)
	}
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{module: mod}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.selected > 0 {
				m.selected--
				m.refresh()
			}
			return m, nil

		case "down", "j":
			if m.selected < len(m.sections)-1 {
				m.selected++
				m.refresh()
			}
			return m, nil

		case "c":
			if m.dumper != nil {
				m.dumper.showCode = !m.dumper.showCode
				m.refresh()
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		w, h := msg.Width-listWidth-2, msg.Height-4
		if !m.ready {
			m.view = viewport.New(w, h)
			m.ready = true
		} else {
			m.view.Width, m.view.Height = w, h
		}
		if m.dumper != nil {
			m.dumper.width = w
		}
		m.refresh()
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		width := 80
		if m.ready {
			width = m.view.Width
		}
		m.dumper = newDumper(msg.module, width, false)
		m.sections = msg.module.Sections()
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.view, cmd = m.view.Update(msg)
	return m, cmd
}

// refresh renders the selected section into the viewport.
func (m *interactiveModel) refresh() {
	if !m.ready || m.dumper == nil || len(m.sections) == 0 {
		return
	}
	var b strings.Builder
	s := m.sections[m.selected]
	fmt.Fprintf(&b, "%s %s\n\n", sectionStyle.Render(m.dumper.title(s)), offsetStyle.Render(m.dumper.location(s)))
	m.dumper.writeSection(&b, s)
	m.view.SetContent(b.String())
	m.view.GotoTop()
}

func (m *interactiveModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.dumper == nil || !m.ready {
		return "Decoding module..."
	}

	var list strings.Builder
	for i, s := range m.sections {
		line := m.dumper.title(s)
		if i == m.selected {
			list.WriteString(selectedStyle.Render("> " + line))
		} else {
			list.WriteString("  " + line)
		}
		list.WriteString("\n")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("wasmdump"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		paneStyle.Width(listWidth).Render(list.String()),
		m.view.View(),
	))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ section • pgup/pgdn scroll • c toggle code • q quit"))
	return b.String()
}

func runInteractive(filename string, opts wasm.Options, validate bool) error {
	// The TUI owns the terminal; decoder logs would corrupt it.
	opts.Logger = zap.NewNop()
	p := tea.NewProgram(newInteractiveModel(filename, opts, validate), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
