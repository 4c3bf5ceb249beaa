package session

import "github.com/robalobadob/memory/internal/game"

// EventType names a change pushed to subscribers.
type EventType string

const (
	EventRevealed   EventType = "revealed"
	EventMatched    EventType = "matched"
	EventMismatched EventType = "mismatched"
	EventConcealed  EventType = "concealed"
	EventWon        EventType = "won"
	EventLost       EventType = "lost"
)

// Event is what subscribers receive. Cells carries the affected cells as the client may see them.
type Event struct {
	Type           EventType       `json:"type"`
	Cells          []game.CellView `json:"cells,omitempty"`
	Status         string          `json:"status"`
	Mistakes       int             `json:"mistakes"`
	ElapsedSeconds int64           `json:"elapsedSeconds,omitempty"`
}

const subscriberBuffer = 32

// Subscribe returns a channel of events and a cancel func. The channel is closed
// on cancel or when the session closes. Slow subscribers drop events rather than
// block the game.
func (s *Session) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Event, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

func (s *Session) eventLocked(t EventType, cells ...game.CellView) Event {
	st := s.eng.Status()
	ev := Event{Type: t, Cells: cells, Status: st.Kind.String(), Mistakes: s.eng.Mistakes()}
	if st.Kind == game.StatusWon {
		ev.ElapsedSeconds = st.ElapsedSeconds()
	}
	return ev
}

func (s *Session) publishResultLocked(res game.Result) {
	switch res.Kind {
	case game.ResultRevealed:
		s.publishLocked(s.eventLocked(EventRevealed, game.ViewOf(res.First)))
	case game.ResultMatched:
		s.publishLocked(s.eventLocked(EventMatched, game.ViewOf(res.First), game.ViewOf(res.Second)))
		if res.Status.Kind == game.StatusWon {
			s.publishLocked(s.eventLocked(EventWon))
		}
	case game.ResultMismatched:
		cells := []game.CellView{game.ViewOf(res.First)}
		if res.Second.Coord != res.First.Coord {
			cells = append(cells, game.ViewOf(res.Second))
		}
		s.publishLocked(s.eventLocked(EventMismatched, cells...))
	}
}

func (s *Session) publishLocked(ev Event) {
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
