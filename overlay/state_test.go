package overlay

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLinesDefault(t *testing.T) {
	s := NewState()
	assert.Equal(t, []string{"Disconnected"}, s.Lines())
}

func TestLinesComposition(t *testing.T) {
	s := NewState()
	s.SetConnection("Connected: Dante @ seed1")
	s.SetItemGet("Sent Piece of Eden to Lady")
	s.Notify("Received Cerberus from Lady")

	lines := s.Lines()
	assert.Equal(t, "Connected: Dante @ seed1", lines[0])
	assert.Equal(t, "Item: Sent Piece of Eden to Lady", lines[1])
	assert.Equal(t, "Received Cerberus from Lady", lines[2])

	s.ClearItemGet()
	lines = s.Lines()
	assert.Len(t, lines, 2)
	assert.Equal(t, "Received Cerberus from Lady", lines[1])
}

func TestNotifyIgnoresEmpty(t *testing.T) {
	s := NewState()
	s.Notify("")
	assert.Len(t, s.Lines(), 1)
}

func TestNotificationRingCaps(t *testing.T) {
	s := NewState()
	for i := 0; i < 10; i++ {
		s.Notify(fmt.Sprintf("note %d", i))
	}
	lines := s.Lines()
	assert.Len(t, lines, 1+maxNotifications)
	assert.Equal(t, "note 4", lines[1], "oldest notes fall off first")
	assert.Equal(t, "note 9", lines[len(lines)-1])
}

func TestNotificationsExpire(t *testing.T) {
	s := NewState()
	s.Notify("stale")
	s.mu.Lock()
	s.notes[0].at = time.Now().Add(-notificationTTL - time.Second)
	s.mu.Unlock()

	assert.Equal(t, []string{"Disconnected"}, s.Lines())
	s.mu.Lock()
	assert.Empty(t, s.notes, "expired notes are dropped, not just hidden")
	s.mu.Unlock()
}
