package state

import "sync"

// Locker — мьютекс на пользователя: события одного пользователя выполняются по очереди,
// разных — параллельно. Записи удаляются, когда их никто не держит и не ждёт.
type Locker struct {
	mu    sync.Mutex
	locks map[int64]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewLocker создаёт пустую таблицу блокировок.
func NewLocker() *Locker {
	return &Locker{locks: make(map[int64]*keyLock)}
}

// Lock захватывает блокировку userID и возвращает функцию освобождения.
func (l *Locker) Lock(userID int64) (unlock func()) {
	l.mu.Lock()
	kl, ok := l.locks[userID]
	if !ok {
		kl = &keyLock{}
		l.locks[userID] = kl
	}
	kl.refs++
	l.mu.Unlock()

	kl.mu.Lock()

	return func() {
		kl.mu.Unlock()

		l.mu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}

// Len — число ключей в таблице.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.locks)
}
