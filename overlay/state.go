package overlay

import (
	"sync"
	"time"
)

const (
	maxNotifications = 6
	notificationTTL  = 8 * time.Second
)

type notification struct {
	text string
	at   time.Time
}

// State is the process-local surface the pipelines write and the
// render loop reads. It never touches game memory.
type State struct {
	mu         sync.RWMutex
	connection string
	itemGet    string
	notes      []notification
}

func NewState() *State {
	return &State{connection: "Disconnected"}
}

func (s *State) Notify(text string) {
	if text == "" {
		return
	}
	s.mu.Lock()
	s.notes = append(s.notes, notification{text: text, at: time.Now()})
	if len(s.notes) > maxNotifications {
		s.notes = s.notes[len(s.notes)-maxNotifications:]
	}
	s.mu.Unlock()
}

func (s *State) SetConnection(text string) {
	s.mu.Lock()
	s.connection = text
	s.mu.Unlock()
}

func (s *State) SetItemGet(text string) {
	s.mu.Lock()
	s.itemGet = text
	s.mu.Unlock()
}

func (s *State) ClearItemGet() {
	s.mu.Lock()
	s.itemGet = ""
	s.mu.Unlock()
}

// Lines renders the current state as overlay text. Expired
// notifications fall off here rather than on a timer.
func (s *State) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-notificationTTL)
	live := s.notes[:0]
	for _, n := range s.notes {
		if n.at.After(cutoff) {
			live = append(live, n)
		}
	}
	s.notes = live

	lines := []string{s.connection}
	if s.itemGet != "" {
		lines = append(lines, "Item: "+s.itemGet)
	}
	for _, n := range s.notes {
		lines = append(lines, n.text)
	}
	return lines
}
