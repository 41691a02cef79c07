package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/tale-engine/internal/services"
	"github.com/jwebster45206/tale-engine/internal/session"
	"github.com/jwebster45206/tale-engine/pkg/scenario"
	"github.com/jwebster45206/tale-engine/pkg/state"
)

const (
	AgentName       = "Narrator"
	PlaceHolderText = "What do you do?"
	gameOverText    = "The adventure is over. Type restart for a new one, or quit to leave."
)

// backendStatus is satisfied by services.Gateway.
type backendStatus interface {
	Mode() services.Mode
	Active() string
}

type entryKind int

const (
	entryNarrator entryKind = iota
	entryPlayer
	entrySystem
	entryError
)

type entry struct {
	kind entryKind
	text string
}

// ConsoleUI is the BubbleTea model that runs the game.
// https://github.com/charmbracelet/bubbletea
//
// The session is only touched from commands, and at most one command is in
// flight at a time; the model renders from copies carried by replyMsg.
type ConsoleUI struct {
	ctx      context.Context
	sess     *session.Session
	backend  backendStatus
	scenario *scenario.Scenario

	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	loading      bool

	transcript []entry
	ws         *state.WorldState
	last       string
	gameOver   bool
	notice     string

	showQuitModal bool
	farewell      string

	progressTick int
}

type replyMsg struct {
	reply session.Reply
	err   error
	ws    *state.WorldState
	last  string
}

type downgradeMsg struct {
	event services.DowngradeEvent
}

type clipboardMsg struct {
	err error
}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)
)

// NewConsoleUI creates the model. sc may be nil to use the session default.
func NewConsoleUI(ctx context.Context, sess *session.Session, backend backendStatus, sc *scenario.Scenario) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 1000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		ctx:          ctx,
		sess:         sess,
		backend:      backend,
		scenario:     sc,
		textarea:     ta,
		chatViewport: chatVp,
		metaViewport: metaVp,
		loading:      true,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.start(), progressTick())
}

func (m ConsoleUI) start() tea.Cmd {
	sess, ctx, sc := m.sess, m.ctx, m.scenario
	return func() tea.Msg {
		reply, err := sess.Start(ctx, sc)
		return replyMsg{reply: reply, err: err, ws: sess.State(), last: sess.LastNarration()}
	}
}

func (m ConsoleUI) send(input string) tea.Cmd {
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		reply, err := sess.HandleInput(ctx, input)
		return replyMsg{reply: reply, err: err, ws: sess.State(), last: sess.LastNarration()}
	}
}

func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		return clipboardMsg{err: clipboard.WriteAll(text)}
	}
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		m.writeChatContent()
		m.metaViewport.SetContent(writeMetadata(m.ws, m.backend))

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyCtrlY:
			if m.last == "" {
				m.notice = "Nothing to copy yet."
				return m, nil
			}
			return m, copyToClipboard(m.last)
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}

			m.textarea.Reset()
			m.loading = true
			m.notice = ""
			m.progressTick = 0
			m.transcript = append(m.transcript, entry{kind: entryPlayer, text: input})
			m.writeChatContent()
			return m, tea.Batch(m.send(input), progressTick())
		}

	case replyMsg:
		m.loading = false
		if quit := m.applyReply(msg); quit {
			return m, tea.Quit
		}
		m.writeChatContent()
		m.metaViewport.SetContent(writeMetadata(m.ws, m.backend))
		return m, nil

	case downgradeMsg:
		m.notice = fmt.Sprintf("%s is unavailable, continuing with %s.", msg.event.From, msg.event.To)
		m.metaViewport.SetContent(writeMetadata(m.ws, m.backend))
		m.writeChatContent()
		return m, nil

	case clipboardMsg:
		if msg.err != nil {
			m.notice = "Copy failed: " + msg.err.Error()
		} else {
			m.notice = "Copied the last narration to the clipboard."
		}
		m.writeChatContent()
		return m, nil

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeChatContent()
			return m, progressTick()
		}
		return m, nil
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

// applyReply folds a session reply into the transcript and reports whether
// the program should exit.
func (m *ConsoleUI) applyReply(msg replyMsg) bool {
	if msg.ws != nil {
		m.ws = msg.ws
	}
	m.last = msg.last
	reply := msg.reply

	if msg.err != nil {
		if errors.Is(msg.err, session.ErrSessionAborted) || errors.Is(msg.err, session.ErrSessionClosed) {
			m.farewell = reply.Text
			if m.farewell == "" {
				m.farewell = session.GoodbyeText
			}
			return true
		}
		m.transcript = append(m.transcript, entry{kind: entryError, text: "Error: " + msg.err.Error()})
		return false
	}

	wasOver := m.gameOver
	m.gameOver = reply.GameOver

	switch reply.Kind {
	case session.ReplyQuit:
		m.farewell = reply.Text
		return true
	case session.ReplyRestart:
		m.transcript = []entry{{kind: entryNarrator, text: reply.Text}}
		wasOver = false
	case session.ReplyNarration:
		m.transcript = append(m.transcript, entry{kind: entryNarrator, text: reply.Text})
	case session.ReplyCommand:
		m.transcript = append(m.transcript, entry{kind: entrySystem, text: reply.Text})
	case session.ReplyError:
		m.transcript = append(m.transcript, entry{kind: entryError, text: reply.Text})
	}

	if m.gameOver && !wasOver {
		m.transcript = append(m.transcript, entry{kind: entrySystem, text: gameOverText})
	}
	return false
}

func (m *ConsoleUI) layout() {
	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
}

// writeChatContent rebuilds the transcript for the current viewport width.
func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6 // Account for left(3) + right(3) padding
	if chatWidth < 20 {
		chatWidth = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("TALE ENGINE") + "\n\n")
	content.WriteString("Type an action and press Enter. Ctrl+Y copies the last narration.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", chatWidth)) + "\n\n")

	for _, e := range m.transcript {
		content.WriteString(formatEntry(e, chatWidth) + "\n\n")
	}

	if m.notice != "" {
		content.WriteString(systemStyle.Render(wordwrap.String(m.notice, chatWidth)) + "\n\n")
	}
	if m.loading {
		content.WriteString(m.renderProgressBar())
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func formatEntry(e entry, width int) string {
	switch e.kind {
	case entryPlayer:
		prefix := "You: "
		return userStyle.Render(prefix) + wordwrap.String(e.text, width-len(prefix))
	case entrySystem:
		return systemStyle.Render(wordwrap.String(e.text, width))
	case entryError:
		return errorStyle.Render(wordwrap.String(e.text, width))
	default:
		return formatNarration(e.text, width)
	}
}

// formatNarration wraps narration and labels it with the narrator's name.
func formatNarration(text string, width int) string {
	prefix := AgentName + ": "
	wrapped := wordwrap.String(strings.TrimSpace(text), width-len(prefix))
	return narratorStyle.Render(prefix) + wrapped
}

func writeMetadata(ws *state.WorldState, backend backendStatus) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("WORLD") + "\n\n")

	if ws == nil {
		content.WriteString("Setting the scene...\n\n")
	} else {
		content.WriteString("Time:\n" + ws.Clock + "\n\n")
		content.WriteString("Location:\n" + orNone(ws.Player.Location) + "\n\n")
		content.WriteString("Objective:\n" + orNone(ws.Objective) + "\n\n")
		content.WriteString("Status:\n" + string(ws.Status) + "\n\n")

		content.WriteString("Inventory:\n")
		if len(ws.Player.Inventory) == 0 {
			content.WriteString("Empty\n")
		}
		for _, item := range ws.Player.Inventory {
			content.WriteString("• " + item.Name + "\n")
		}
		content.WriteString("\n")

		if effects := ws.ActiveEffects(); len(effects) > 0 {
			content.WriteString("Effects:\n")
			for _, e := range effects {
				content.WriteString("• " + e.Description + "\n")
			}
			content.WriteString("\n")
		}
	}

	if backend != nil {
		content.WriteString("Backend:\n")
		content.WriteString(fmt.Sprintf("%s (%s)\n\n", backend.Active(), backend.Mode()))
	}

	content.WriteString("Commands:\n")
	content.WriteString("• look, inventory\n")
	content.WriteString("• restart, debug\n")
	content.WriteString("• quit\n")
	content.WriteString("• Ctrl+Y: Copy\n")
	content.WriteString("• Ctrl+C: Quit\n")

	return content.String()
}

func orNone(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()

	case replyMsg:
		// A turn finished while the modal was open.
		m.loading = false
		if quit := m.applyReply(msg); quit {
			return m, tea.Quit
		}
		m.writeChatContent()
		m.metaViewport.SetContent(writeMetadata(m.ws, m.backend))

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEnter:
			m.farewell = session.GoodbyeText
			return m, tea.Quit
		case tea.KeyEsc:
			m.showQuitModal = false
			m.textarea.Focus()
			return m, textarea.Blink
		default:
			switch msg.String() {
			case "y", "Y":
				m.farewell = session.GoodbyeText
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Your progress is saved after every turn.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(chatWidth-4, 0))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar draws an animated bar while a turn is in flight.
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
	if usable <= 0 {
		usable = 30
	}
	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓")
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
