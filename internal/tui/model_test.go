package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratsdok/internal/agent"
)

type fakeConversation struct {
	result agent.Result
	err    error
	asked  []string
	resets int
}

func (f *fakeConversation) Ask(_ context.Context, question string) (agent.Result, error) {
	f.asked = append(f.asked, question)
	return f.result, f.err
}

func (f *fakeConversation) Reset() { f.resets++ }

func sized(m Model) Model {
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

func typeText(m Model, text string) Model {
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return updated.(Model)
}

func pressEnter(m Model) (Model, tea.Cmd) {
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return updated.(Model), cmd
}

func TestEnterRunsConversation(t *testing.T) {
	conv := &fakeConversation{result: agent.Result{Answer: "Antwort."}}
	m := sized(New(conv))
	m = typeText(m, "Wie hoch ist der Haushalt?")

	m, cmd := pressEnter(m)
	require.NotNil(t, cmd)
	assert.True(t, m.busy)
	assert.Empty(t, m.input.Value())

	msg := cmd()
	answer, ok := msg.(answerMsg)
	require.True(t, ok)
	require.NoError(t, answer.err)
	assert.Equal(t, []string{"Wie hoch ist der Haushalt?"}, conv.asked)

	updated, _ := m.Update(answer)
	m = updated.(Model)
	assert.False(t, m.busy)
	require.Len(t, m.messages, 2)
	assert.Equal(t, "user", m.messages[0].role)
	assert.Equal(t, "assistant", m.messages[1].role)
	assert.Equal(t, "Antwort.", m.messages[1].content)
}

func TestEnterIgnoredWhileBusy(t *testing.T) {
	conv := &fakeConversation{result: agent.Result{Answer: "Antwort."}}
	m := sized(New(conv))
	m = typeText(m, "Frage eins")
	m, _ = pressEnter(m)

	m = typeText(m, "Frage zwei")
	_, cmd := pressEnter(m)
	assert.Nil(t, cmd, "no second request while one is in flight")
}

func TestAnswerErrorShowsStatus(t *testing.T) {
	conv := &fakeConversation{err: errors.New("qdrant unreachable")}
	m := sized(New(conv))
	m = typeText(m, "Frage")
	m, cmd := pressEnter(m)

	updated, _ := m.Update(cmd())
	m = updated.(Model)
	assert.False(t, m.busy)
	assert.Contains(t, m.status, "qdrant unreachable")
	require.Len(t, m.messages, 1, "only the user message stays")
}

func TestCtrlLClearsChat(t *testing.T) {
	conv := &fakeConversation{result: agent.Result{Answer: "Antwort."}}
	m := sized(New(conv))
	m = typeText(m, "Frage")
	m, cmd := pressEnter(m)
	updated, _ := m.Update(cmd())
	m = updated.(Model)
	require.NotEmpty(t, m.messages)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	m = updated.(Model)
	assert.Empty(t, m.messages)
	assert.Equal(t, 1, conv.resets)
}

func TestRenderSourcesNumbersAndMarksContext(t *testing.T) {
	out := renderSources([]agent.Source{
		{Filename: "vorlage.pdf", Page: 2, Score: 0.871, AccessURL: "https://ris.example.de/files/vorlage.pdf"},
		{Filename: "vorlage.pdf", Page: 2, Score: 0},
	})
	assert.Contains(t, out, "1. vorlage.pdf (Seite 2, Score 0.871)")
	assert.Contains(t, out, "https://ris.example.de/files/vorlage.pdf")
	assert.Contains(t, out, "2. vorlage.pdf (Seite 2, Kontext)")
}

func TestAbortedAnswerStillRendered(t *testing.T) {
	conv := &fakeConversation{result: agent.Result{Answer: "Bitte stelle eine spezifischere Frage.", Aborted: true}}
	m := sized(New(conv))
	m = typeText(m, "Frage")
	m, cmd := pressEnter(m)
	updated, _ := m.Update(cmd())
	m = updated.(Model)

	require.Len(t, m.messages, 2)
	assert.Contains(t, m.messages[1].content, "spezifischere Frage")
	assert.Equal(t, "Abgebrochen.", m.status)
}
