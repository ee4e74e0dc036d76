package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/push"
)

// stateChangedMsg tells the model to re-read the engine snapshot.
type stateChangedMsg struct{}

// pushStateMsg carries a push channel state transition.
type pushStateMsg push.State

// activityMsg carries the most recent recorded push notification.
type activityMsg struct {
	text string
}

// waitForChange blocks until the engine signals a change. It returns nil
// once the engine is closed, ending the listen loop.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return stateChangedMsg{}
	}
}

func waitForPushState(ch <-chan push.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return pushStateMsg(s)
	}
}

// primeAndRefresh shows the cached snapshot, if any, and then replaces it
// with fresh server state.
func (m Model) primeAndRefresh() tea.Cmd {
	if m.cache == nil {
		return m.refresh()
	}
	return tea.Sequence(m.prime(), m.refresh())
}

func (m Model) prime() tea.Cmd {
	e, cache, ctx, log := m.engine, m.cache, m.ctx, m.log
	return func() tea.Msg {
		last, err := cache.LastBoard(ctx)
		if err != nil {
			log.WithError(err).Warn("reading last board from cache")
		}
		if last != "" {
			e.Prefer(last)
		}

		boards, err := cache.LoadBoards(ctx)
		if err != nil {
			log.WithError(err).Warn("reading boards from cache")
		}
		if len(boards) > 0 {
			selected := boards[0].ID
			for _, b := range boards {
				if b.ID == last {
					selected = last
				}
			}
			cards, err := cache.LoadCards(ctx, selected)
			if err != nil {
				log.WithError(err).Warn("reading cards from cache")
			}
			e.Prime(boards, selected, cards)
		}

		recent, err := cache.RecentActivity(ctx, 1)
		if err != nil || len(recent) == 0 {
			return nil
		}
		a := recent[0]
		return activityMsg{text: describeEvent(
			model.PushEvent{Type: a.Type, BoardID: a.BoardID, Timestamp: a.EventTime},
			a.ReceivedAt.Local(),
		)}
	}
}
