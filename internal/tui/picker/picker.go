// Package picker is a filterable terminal list for choosing a workspace
// project.
package picker

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned when the user leaves without choosing.
var ErrCancelled = errors.New("selection cancelled")

var (
	titleStyle      = lipgloss.NewStyle().MarginLeft(2).Bold(true).Foreground(lipgloss.Color("#61AFEF"))
	paginationStyle = list.DefaultStyles().PaginationStyle.PaddingLeft(4)
	helpStyle       = list.DefaultStyles().HelpStyle.PaddingLeft(4).PaddingBottom(1)
	doneStyle       = lipgloss.NewStyle().Margin(1, 0, 1, 4)
	chosenStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
)

type keyMap struct {
	Choose key.Binding
	Cancel key.Binding
}

var keys = keyMap{
	Choose: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "choose")),
	Cancel: key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "cancel")),
}

// Item is one choice. Detail is shown under the name.
type Item struct {
	Name   string
	Detail string
}

func (i Item) Title() string       { return i.Name }
func (i Item) Description() string { return i.Detail }
func (i Item) FilterValue() string { return i.Name }

type model struct {
	list      list.Model
	choice    string
	cancelled bool
}

func newModel(title string, items []Item) model {
	listItems := make([]list.Item, 0, len(items))
	for _, it := range items {
		listItems = append(listItems, it)
	}

	l := list.New(listItems, list.NewDefaultDelegate(), 60, 20)
	l.Title = title
	l.Styles.Title = titleStyle
	l.Styles.PaginationStyle = paginationStyle
	l.Styles.HelpStyle = helpStyle
	l.SetShowStatusBar(len(items) > 0)
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Choose, keys.Cancel}
	}
	return model{list: l}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)

	case tea.KeyMsg:
		// While typing a filter, keys belong to the filter input.
		if m.list.FilterState() == list.Filtering && msg.String() != "ctrl+c" {
			break
		}
		switch {
		case key.Matches(msg, keys.Cancel):
			if m.list.FilterState() == list.FilterApplied && msg.String() == "esc" {
				break
			}
			m.cancelled = true
			return m, tea.Quit

		case key.Matches(msg, keys.Choose):
			if it, ok := m.list.SelectedItem().(Item); ok {
				m.choice = it.Name
				return m, tea.Quit
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	switch {
	case m.cancelled:
		return doneStyle.Render("Cancelled.")
	case m.choice != "":
		return doneStyle.Render("Selected " + chosenStyle.Render(m.choice))
	}
	return "\n" + m.list.View()
}

// Run shows the picker on the terminal and returns the chosen name.
func Run(title string, items []Item) (string, error) {
	return run(title, items, os.Stdin, os.Stderr)
}

func run(title string, items []Item, in io.Reader, out io.Writer) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("nothing to pick from")
	}
	final, err := tea.NewProgram(newModel(title, items), tea.WithInput(in), tea.WithOutput(out)).Run()
	if err != nil {
		return "", fmt.Errorf("run picker: %w", err)
	}
	m, ok := final.(model)
	if !ok || m.cancelled || m.choice == "" {
		return "", ErrCancelled
	}
	return m.choice, nil
}
