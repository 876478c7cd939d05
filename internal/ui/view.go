package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/finchley/flowdeck/internal/conn"
	"github.com/finchley/flowdeck/internal/state"
)

const nodePaneWidth = 32

// log tail pane sizing: lines shown when visible / lines kept in memory.
const (
	tailVisibleLines = 8
	tailKeepLines    = 100
)

// View renders the full dashboard.
func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderNodePane(),
		m.renderLogPane(),
	)

	sections := []string{
		m.renderStatusBar(),
		top,
	}
	if m.cfg.ShowDebugPane {
		sections = append(sections, m.renderDebugPane())
	}
	if m.showTail {
		sections = append(sections, m.renderLogTail())
	}
	sections = append(sections, m.input.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderStatusBar shows the connection state and execution indicator.
func (m *Model) renderStatusBar() string {
	var connPart string
	switch m.connState {
	case conn.StateOpen:
		connPart = statusOpenStyle.Render("● connected")
	case conn.StateConnecting:
		connPart = subtleStyle.Render("◌ connecting...")
	default:
		connPart = statusDownStyle.Render("○ disconnected (retrying)")
	}

	execPart := ""
	if m.store.IsExecuting() {
		execPart = executingStyle.Render(" ▶ executing")
		if id := m.store.ExecutingNodeID(); id != "" {
			execPart += executingStyle.Render(" " + id)
		}
	}

	return titleStyle.Render("flowdeck") + "  " + connPart + execPart
}

// renderNodePane lists the workflow nodes, marking the executing one.
func (m *Model) renderNodePane() string {
	nodes := m.store.Nodes()
	executing := m.store.ExecutingNodeID()

	var b strings.Builder
	if len(nodes) == 0 {
		b.WriteString(subtleStyle.Render("no workflow yet"))
	}
	for _, n := range nodes {
		label := n.ID
		if n.Type != "" {
			label += subtleStyle.Render(" (" + n.Type + ")")
		}
		label = runewidth.Truncate(label, nodePaneWidth-4, "…")
		if n.ID == executing {
			b.WriteString(executingStyle.Render("▶ " + label))
		} else {
			b.WriteString("  " + label)
		}
		b.WriteString("\n")
	}
	b.WriteString(subtleStyle.Render(fmt.Sprintf("\n%d nodes / %d edges", len(nodes), len(m.store.Edges()))))

	return paneStyle.Width(nodePaneWidth).Render(b.String())
}

// renderLogPane shows the chat transcript and execution log viewport.
func (m *Model) renderLogPane() string {
	return paneStyle.Render(m.logView.View())
}

// renderTranscript builds the combined execution log + chat content.
func (m *Model) renderTranscript() string {
	width := m.logView.Width
	if width <= 0 {
		width = 60
	}

	var b strings.Builder

	entries := m.store.ExecutionLog()
	if max := m.cfg.MaxLogLines; max > 0 && len(entries) > max {
		entries = entries[len(entries)-max:]
	}
	for _, e := range entries {
		b.WriteString(renderLogEntry(e))
		b.WriteString("\n")
	}

	for _, msg := range m.transcript {
		b.WriteString("\n")
		if msg.fromUser {
			b.WriteString(executingStyle.Render("you: "))
			b.WriteString(wordwrap.String(msg.text, width-6))
		} else {
			b.WriteString(renderMarkdown(m.renderer, msg.text))
		}
		b.WriteString("\n")
	}

	if m.waiting {
		b.WriteString(subtleStyle.Render("\nwaiting for reply..."))
	}

	return b.String()
}

// renderLogEntry formats one execution-log line.
func renderLogEntry(e state.ExecutionLogEntry) string {
	var status string
	switch e.Status {
	case state.StatusRunning:
		status = runningStyle.Render("RUN ")
	case state.StatusSuccess:
		status = successStyle.Render("OK  ")
	case state.StatusError:
		status = errorStyle.Render("ERR ")
	}

	line := fmt.Sprintf("%s %s", status, e.NodeID)
	if e.Duration > 0 {
		line += subtleStyle.Render(fmt.Sprintf(" %dms", e.Duration))
	}
	if e.Error != "" {
		line += " " + errorStyle.Render(e.Error)
	}
	return line
}

// appendTailLine records one logger output line for the tail pane.
func (m *Model) appendTailLine(line string) {
	line = strings.TrimRight(line, "\n")
	if line == "" {
		return
	}
	m.tailLines = append(m.tailLines, line)
	if len(m.tailLines) > tailKeepLines {
		m.tailLines = m.tailLines[len(m.tailLines)-tailKeepLines:]
	}
}

// renderLogTail shows the most recent logger output. Toggled with ctrl+l;
// only populated when debug logging is on.
func (m *Model) renderLogTail() string {
	lines := m.tailLines
	if len(lines) > tailVisibleLines {
		lines = lines[len(lines)-tailVisibleLines:]
	}

	width := m.width - 6
	if width < 20 {
		width = 20
	}

	var b strings.Builder
	if len(lines) == 0 {
		b.WriteString(subtleStyle.Render("log tail: no output yet (is --debug on?)"))
	}
	for i, l := range lines {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(subtleStyle.Render(runewidth.Truncate(l, width, "…")))
	}
	return paneStyle.Width(width + 2).Render(b.String())
}

// renderDebugPane shows the snapshot for the executing (or last) node.
func (m *Model) renderDebugPane() string {
	nodeID := m.store.ExecutingNodeID()
	if nodeID == "" {
		if entries := m.store.ExecutionLog(); len(entries) > 0 {
			nodeID = entries[len(entries)-1].NodeID
		}
	}
	if nodeID == "" {
		return ""
	}

	snap, ok := m.store.NodeDebugData(nodeID)
	if !ok {
		return ""
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s [%s]", snap.NodeID, snap.Status))
	if len(snap.Inputs) > 0 {
		b.WriteString(subtleStyle.Render(fmt.Sprintf("  in: %v", snap.Inputs)))
	}
	if len(snap.Output) > 0 {
		b.WriteString(subtleStyle.Render(fmt.Sprintf("  out: %v", snap.Output)))
	}
	if snap.Error != "" {
		b.WriteString("  " + errorStyle.Render(snap.Error))
	}

	width := m.width - 4
	if width < 20 {
		width = 20
	}
	return paneStyle.Width(width).Render(runewidth.Truncate(b.String(), width*2, "…"))
}
