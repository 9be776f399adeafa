// clock абстрагирует время: в проде Real(), в тестах Fake с ручным продвижением.
package clock

import "time"

// Clock — источник времени и таймеров.
type Clock interface {
	Now() time.Time
	// AfterFunc вызывает f через d в отдельной горутине (Real) или внутри Advance (Fake).
	AfterFunc(d time.Duration, f func()) Timer
	// NewTicker — периодические тики; d > 0.
	NewTicker(d time.Duration) Ticker
}

// Timer — отменяемый отложенный вызов.
type Timer interface {
	// Stop отменяет вызов; false — если он уже выполнен или отменён.
	Stop() bool
}

// Ticker — периодический таймер.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realClock struct{}

// Real возвращает Clock поверх пакета time.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

func (realClock) NewTicker(d time.Duration) Ticker { return realTicker{time.NewTicker(d)} }

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }
