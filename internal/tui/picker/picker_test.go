package picker

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func sampleItems() []Item {
	return []Item{
		{Name: "web", Detail: "apps/web"},
		{Name: "api", Detail: "apps/api"},
		{Name: "shared-ui", Detail: "libs/shared/ui"},
	}
}

func press(m model, msg tea.KeyMsg) (model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(model), cmd
}

func TestEnterChoosesHighlightedItem(t *testing.T) {
	m := newModel("Pick", sampleItems())

	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "web", m.choice)
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "web")
}

func TestDownThenEnter(t *testing.T) {
	m := newModel("Pick", sampleItems())

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "api", m.choice)
}

func TestEscCancels(t *testing.T) {
	m := newModel("Pick", sampleItems())

	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, m.cancelled)
	assert.Empty(t, m.choice)
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Cancelled")
}

func TestCtrlCCancels(t *testing.T) {
	m := newModel("Pick", sampleItems())

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, m.cancelled)
}

func TestWindowResize(t *testing.T) {
	m := newModel("Pick", sampleItems())
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	assert.Equal(t, 100, next.(model).list.Width())
}

func TestRunRejectsEmptyList(t *testing.T) {
	_, err := Run("Pick", nil)
	assert.Error(t, err)
}

func TestItemFilterValue(t *testing.T) {
	it := Item{Name: "web", Detail: "apps/web"}
	assert.Equal(t, "web", it.FilterValue())
	assert.Equal(t, "web", it.Title())
	assert.Equal(t, "apps/web", it.Description())
}
