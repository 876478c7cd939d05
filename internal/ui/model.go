// Package ui renders the live workflow dashboard: the node graph with the
// executing-node marker, the execution log, per-node debug snapshots, and a
// chat input. It observes the workflow store and the connection manager
// through their brokers; it never mutates workflow state itself.
package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/finchley/flowdeck/internal/api"
	"github.com/finchley/flowdeck/internal/conn"
	"github.com/finchley/flowdeck/internal/config"
	"github.com/finchley/flowdeck/internal/log"
	"github.com/finchley/flowdeck/internal/pubsub"
	"github.com/finchley/flowdeck/internal/state"
)

// chatMessage is one entry in the chat transcript.
type chatMessage struct {
	fromUser bool
	text     string
}

// chatReplyMsg carries the backend's chat response into the update loop.
type chatReplyMsg struct {
	reply string
	err   error
}

// configReloadedMsg signals that the config file changed on disk.
type configReloadedMsg struct{}

// Model is the root Bubble Tea model.
type Model struct {
	ctx   context.Context
	store *state.WorkflowStore
	mgr   *conn.Manager
	chat  *api.Client
	cfg   config.UIConfig

	stateListener *pubsub.Listener[state.Change]
	connListener  *pubsub.Listener[conn.State]
	logTail       *log.TailListener // nil when logging is not initialized
	reloadCh      <-chan struct{}

	input    textinput.Model
	logView  viewport.Model
	renderer *glamour.TermRenderer

	connState  conn.State
	transcript []chatMessage
	tailLines  []string
	showTail   bool
	waiting    bool
	width      int
	height     int
	ready      bool
}

// Options bundle the collaborators the model observes and drives.
type Options struct {
	Store    *state.WorkflowStore
	Manager  *conn.Manager
	Chat     *api.Client
	UI       config.UIConfig
	ReloadCh <-chan struct{} // optional; nil disables live config reload
}

// New creates the dashboard model. ctx scopes the broker subscriptions;
// cancel it when the program exits.
func New(ctx context.Context, opts Options) *Model {
	input := textinput.New()
	input.Placeholder = "Ask the workflow to do something..."
	input.Focus()

	return &Model{
		ctx:           ctx,
		store:         opts.Store,
		mgr:           opts.Manager,
		chat:          opts.Chat,
		cfg:           opts.UI,
		stateListener: pubsub.NewListener(ctx, opts.Store.Broker()),
		connListener:  pubsub.NewListener(ctx, opts.Manager.Broker()),
		logTail:       log.NewTailListener(ctx),
		reloadCh:      opts.ReloadCh,
		input:         input,
		connState:     opts.Manager.State(),
	}
}

// Init starts the broker listeners and the cursor blink.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.stateListener.Listen(),
		m.connListener.Listen(),
		textinput.Blink,
	}
	if m.logTail != nil {
		cmds = append(cmds, m.logTail.Listen())
	}
	if m.reloadCh != nil {
		cmds = append(cmds, m.listenReload())
	}
	return tea.Batch(cmds...)
}

func (m *Model) listenReload() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
			return nil
		case _, ok := <-m.reloadCh:
			if !ok {
				return nil
			}
			return configReloadedMsg{}
		}
	}
}

// sendChat posts the message off the update loop.
func (m *Model) sendChat(text string) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.chat.SendChat(m.ctx, text)
		if err != nil {
			return chatReplyMsg{err: err}
		}
		return chatReplyMsg{reply: resp.Reply}
	}
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.refreshLog()
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+l":
			m.showTail = !m.showTail
			return m, nil
		case "enter":
			text := m.input.Value()
			if text == "" || m.waiting {
				return m, nil
			}
			m.transcript = append(m.transcript, chatMessage{fromUser: true, text: text})
			m.input.SetValue("")
			m.waiting = true
			m.refreshLog()
			return m, m.sendChat(text)
		}

	case pubsub.Event[state.Change]:
		m.refreshLog()
		return m, m.stateListener.Listen()

	case pubsub.Event[conn.State]:
		m.connState = msg.Payload
		return m, m.connListener.Listen()

	case log.Line:
		m.appendTailLine(msg.Payload)
		if m.logTail != nil {
			return m, m.logTail.Listen()
		}
		return m, nil

	case chatReplyMsg:
		m.waiting = false
		if msg.err != nil {
			log.ErrorErr(log.CatUI, "chat request failed", msg.err)
			m.transcript = append(m.transcript, chatMessage{text: fmt.Sprintf("(error: %v)", msg.err)})
		} else if msg.reply != "" {
			m.transcript = append(m.transcript, chatMessage{text: msg.reply})
		}
		m.refreshLog()
		return m, nil

	case configReloadedMsg:
		log.Info(log.CatUI, "config file changed, reloading ui options")
		m.reloadConfig()
		return m, m.listenReload()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// reloadConfig re-reads UI options after the watcher fired.
func (m *Model) reloadConfig() {
	cfg, err := config.Load()
	if err != nil {
		log.ErrorErr(log.CatUI, "config reload failed", err)
		return
	}
	m.cfg = cfg.UI
	m.renderer = nil // rebuilt lazily with the new style
	m.layout()
	m.refreshLog()
}

// layout recomputes pane sizes after a resize or reload.
func (m *Model) layout() {
	logWidth := m.width - nodePaneWidth - 6
	if logWidth < 20 {
		logWidth = 20
	}
	logHeight := m.height - 8
	if logHeight < 3 {
		logHeight = 3
	}
	m.logView = viewport.New(logWidth, logHeight)

	r, err := newMarkdownRenderer(m.cfg.MarkdownStyle, logWidth)
	if err == nil {
		m.renderer = r
	}
}

// refreshLog rebuilds the log viewport content and scrolls to the bottom.
func (m *Model) refreshLog() {
	m.logView.SetContent(m.renderTranscript())
	m.logView.GotoBottom()
}
