package pubsub

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Listener bridges a broker subscription into the Bubble Tea update loop.
// Each Listen command yields at most one event as a tea.Msg; the update
// handler calls Listen again after consuming it to re-arm the wait.
type Listener[T any] struct {
	ctx context.Context
	ch  <-chan Event[T]
}

// NewListener subscribes to the broker for the life of ctx.
func NewListener[T any](ctx context.Context, broker *Broker[T]) *Listener[T] {
	return &Listener[T]{
		ctx: ctx,
		ch:  broker.Subscribe(ctx),
	}
}

// Listen returns a command that waits for the next event. It yields nil
// when ctx is cancelled or the broker closes, which ends the listen loop.
func (l *Listener[T]) Listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-l.ctx.Done():
			return nil
		case event, ok := <-l.ch:
			if !ok {
				return nil
			}
			return event
		}
	}
}
