// Package chat provides the question and answer view for the TUI.
package chat

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/qms-rag/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/qms-rag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/qms-rag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/qms-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/qms-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/qms-rag/internal/core/domain"
	"github.com/custodia-labs/qms-rag/internal/core/ports/driving"
)

// Turn is one question and, once it arrives, its answer or error.
type Turn struct {
	Question string
	Answer   *domain.Answer
	Err      error
}

// Pending reports whether the turn is still waiting for an answer.
func (t *Turn) Pending() bool {
	return t.Answer == nil && t.Err == nil
}

// View represents the chat view with a transcript, input and status bar.
type View struct {
	styles     *styles.Styles
	keymap     *keymap.KeyMap
	input      *input.QuestionInput
	transcript viewport.Model
	statusbar  *status.Bar

	askService driving.AskService
	opts       driving.RetrieveOptions
	ctx        context.Context

	turns  []Turn
	width  int
	height int
	ready  bool
}

// NewView creates a new chat view.
func NewView(s *styles.Styles, km *keymap.KeyMap, askService driving.AskService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:     s,
		keymap:     km,
		input:      input.NewQuestionInput(s),
		transcript: viewport.New(80, 14),
		statusbar:  status.NewBar(s, km),
		askService: askService,
		ctx:        context.Background(),
		width:      80,
		height:     24,
	}
}

// WithContext sets the context passed to the ask service.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// WithOptions sets the retrieval overrides used for every question.
func (v *View) WithOptions(opts driving.RetrieveOptions) *View {
	v.opts = opts
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AnswerReceived:
		v.handleAnswer(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil
	}

	var cmd tea.Cmd
	v.statusbar, cmd = v.statusbar.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	key := msg.String()

	switch {
	case keymap.Matches(key, v.keymap.Back):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}

	case keymap.Matches(key, v.keymap.Submit):
		return v, v.submit()

	case keymap.Matches(key, v.keymap.Clear):
		if !v.Pending() {
			v.turns = nil
			v.statusbar.Clear()
			v.refresh()
		}
		return v, nil

	case keymap.Matches(key, v.keymap.ScrollUp), keymap.Matches(key, v.keymap.ScrollDown):
		var cmd tea.Cmd
		v.transcript, cmd = v.transcript.Update(msg)
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit starts answering the typed question. Only one question is in
// flight at a time.
func (v *View) submit() tea.Cmd {
	question := strings.TrimSpace(v.input.Value())
	if question == "" || v.Pending() {
		return nil
	}

	v.turns = append(v.turns, Turn{Question: question})
	v.input.Reset()
	v.refresh()

	return tea.Batch(v.statusbar.SetState(status.StateThinking), v.ask(question))
}

func (v *View) ask(question string) tea.Cmd {
	svc, ctx, opts := v.askService, v.ctx, v.opts
	return func() tea.Msg {
		if svc == nil {
			return messages.AnswerReceived{Question: question, Err: ErrNoAskService}
		}
		res, err := svc.Ask(ctx, question, opts)
		return messages.AnswerReceived{Question: question, Result: res, Err: err}
	}
}

func (v *View) handleAnswer(msg messages.AnswerReceived) {
	if len(v.turns) == 0 {
		return
	}
	turn := &v.turns[len(v.turns)-1]
	if !turn.Pending() || turn.Question != msg.Question {
		return
	}

	switch {
	case msg.Err != nil:
		turn.Err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
	case msg.Result == nil || msg.Result.Answer == nil:
		turn.Answer = &domain.Answer{Question: msg.Question, Text: domain.FallbackAnswer, Fallback: true}
		v.statusbar.SetAnswer("", 0)
	default:
		turn.Answer = msg.Result.Answer
		v.statusbar.SetMessage("")
		v.statusbar.SetAnswer(string(turn.Answer.Path), len(turn.Answer.Sources))
	}
	v.refresh()
}

// refresh re-renders the transcript and keeps the newest turn in view.
func (v *View) refresh() {
	v.transcript.SetContent(v.renderTranscript())
	v.transcript.GotoBottom()
}

func (v *View) renderTranscript() string {
	if len(v.turns) == 0 {
		return v.styles.Muted.Render("Ask a question about the indexed ISO 13485 documentation.")
	}

	wrap := max(v.width-6, 20)
	blocks := make([]string, 0, len(v.turns))
	for i := range v.turns {
		blocks = append(blocks, v.renderTurn(&v.turns[i], wrap))
	}
	return strings.Join(blocks, "\n\n")
}

func (v *View) renderTurn(t *Turn, wrap int) string {
	lines := []string{v.styles.Question.Render("You: " + t.Question)}

	switch {
	case t.Err != nil:
		lines = append(lines, v.styles.Error.Render("  Error: "+t.Err.Error()))
	case t.Answer == nil:
		lines = append(lines, v.styles.Muted.Render("  Thinking..."))
	case t.Answer.Fallback:
		lines = append(lines, v.styles.Fallback.Width(wrap).Render(t.Answer.Text))
	default:
		lines = append(lines, v.styles.Answer.Width(wrap).Render(t.Answer.Text))
		if len(t.Answer.Sources) > 0 {
			lines = append(lines, v.styles.Muted.Render("  Sources:"))
			for _, src := range t.Answer.Sources {
				lines = append(lines, v.styles.Citation.Render("- "+src))
			}
		}
	}
	return strings.Join(lines, "\n")
}

// View renders the chat view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		v.styles.Title.Render("QMS RAG"),
		"",
		v.transcript.View(),
		"",
		v.input.View(),
		v.statusbar.View(),
	)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	// Title, spacers, bordered input and status bar.
	v.transcript.Width = width
	v.transcript.Height = max(height-8, 3)
	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.refresh()
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Question returns the text currently typed.
func (v *View) Question() string {
	return v.input.Value()
}

// SetQuestion sets the typed text.
func (v *View) SetQuestion(q string) {
	v.input.SetValue(q)
}

// Turns returns the transcript.
func (v *View) Turns() []Turn {
	return v.turns
}

// Pending reports whether a question is awaiting its answer.
func (v *View) Pending() bool {
	return len(v.turns) > 0 && v.turns[len(v.turns)-1].Pending()
}

// Status returns the status bar state.
func (v *View) Status() status.State {
	return v.statusbar.State()
}

// Reset focuses the input and clears any typed text. The transcript is kept.
func (v *View) Reset() {
	v.input.SetValue("")
	v.input.Focus()
}
