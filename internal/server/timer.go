package server

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// TimerService keeps at most one pending turn deadline per game. Arming
// a game that already has a timer replaces it; a cancelled or replaced
// timer never fires its callback through the service.
type TimerService struct {
	mu     sync.Mutex
	clock  quartz.Clock
	logger *log.Logger
	timers map[string]*quartz.Timer
}

// NewTimerService creates an empty timer service
func NewTimerService(clock quartz.Clock, logger *log.Logger) *TimerService {
	return &TimerService{
		clock:  clock,
		logger: logger.WithPrefix("timer"),
		timers: make(map[string]*quartz.Timer),
	}
}

// Arm schedules onExpire to run after d, replacing any pending timer
// for the game. onExpire runs on the clock's timer goroutine; it is
// expected to re-check game state before acting, since a user action
// can race the expiry.
func (t *TimerService) Arm(gameID string, d time.Duration, onExpire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.timers[gameID]; ok {
		prev.Stop()
	}

	var timer *quartz.Timer
	timer = t.clock.AfterFunc(d, func() {
		t.mu.Lock()
		if t.timers[gameID] == timer {
			delete(t.timers, gameID)
		}
		t.mu.Unlock()
		onExpire()
	}, "timer", gameID)
	t.timers[gameID] = timer

	t.logger.Debug("Armed turn timer", "game_id", gameID, "timeout", d)
}

// Cancel stops and clears any pending timer for the game
func (t *TimerService) Cancel(gameID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if timer, ok := t.timers[gameID]; ok {
		timer.Stop()
		delete(t.timers, gameID)
	}
}

// Len returns the number of pending timers
func (t *TimerService) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.timers)
}
