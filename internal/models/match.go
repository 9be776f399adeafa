package models

import (
	"fmt"
	"time"
)

// Match — запись о взаимном лайке. Ключ — неупорядоченная пара.
type Match struct {
	Pair      string    `bson:"pair"`
	UserA     int64     `bson:"userA"`
	UserB     int64     `bson:"userB"`
	CreatedAt time.Time `bson:"createdAt"`
}

// PairKey — ключ неупорядоченной пары: меньший id всегда первый.
func PairKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}

	return fmt.Sprintf("%d:%d", a, b)
}

// NewMatch собирает запись о совпадении в каноническом порядке.
func NewMatch(a, b int64, now time.Time) Match {
	if a > b {
		a, b = b, a
	}

	return Match{Pair: PairKey(a, b), UserA: a, UserB: b, CreatedAt: now}
}
