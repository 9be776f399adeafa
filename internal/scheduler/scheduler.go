// scheduler — отложенные продолжения, ключованные по пользователю.
//
// На ключ держится не более одного ожидающего вызова: новый Schedule заменяет старый.
// Каждый вызов несёт поколение (generation), с которым он был запланирован;
// сработавший таймер, вытесненный более новым, ничего не делает.
package scheduler

import (
	"sync"
	"time"

	"github.com/pribylovaa/match-bot/internal/clock"
)

// Func — продолжение; gen — поколение на момент планирования.
type Func func(gen uint64)

type entry struct {
	gen   uint64
	timer clock.Timer
}

// Scheduler — потокобезопасная таблица таймеров.
type Scheduler struct {
	clock   clock.Clock
	mu      sync.Mutex
	entries map[int64]*entry
	stopped bool
}

// New создаёт планировщик поверх clk.
func New(clk clock.Clock) *Scheduler {
	return &Scheduler{
		clock:   clk,
		entries: make(map[int64]*entry),
	}
}

// Schedule планирует fn(gen) через d для key, отменяя предыдущий вызов этого ключа.
// Не блокирует: fn выполняется в горутине таймера.
func (s *Scheduler) Schedule(key int64, gen uint64, d time.Duration, fn Func) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	if prev, ok := s.entries[key]; ok {
		prev.timer.Stop()
	}

	e := &entry{gen: gen}
	e.timer = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		cur, ok := s.entries[key]
		if !ok || cur != e {
			s.mu.Unlock()
			return
		}
		delete(s.entries, key)
		s.mu.Unlock()

		fn(e.gen)
	})
	s.entries[key] = e
}

// Cancel отменяет ожидающий вызов key. Возвращает true, если что-то было отменено.
func (s *Scheduler) Cancel(key int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return false
	}

	delete(s.entries, key)
	e.timer.Stop()

	return true
}

// Stop отменяет все вызовы и запрещает новые (graceful shutdown).
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for key, e := range s.entries {
		e.timer.Stop()
		delete(s.entries, key)
	}
}
