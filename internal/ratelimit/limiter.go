// Package ratelimit реализует счётчик запросов с фиксированным окном на клиента.
// Состояние живёт в памяти процесса и не переживает перезапуск.
package ratelimit

import (
	"sync"
	"time"
)

const sweepInterval = 60 * time.Second

// Options задаёт лимит для окна.
type Options struct {
	MaxRequests int
	Window      time.Duration
}

// Result содержит решение лимитера по одному запросу.
type Result struct {
	Allowed   bool
	Remaining int
	ResetTime time.Time
}

type entry struct {
	count     int
	resetTime time.Time
}

// Limiter считает запросы по ключу в фиксированных окнах.
type Limiter struct {
	mu        sync.Mutex
	entries   map[string]*entry
	lastSweep time.Time
	now       func() time.Time
}

// New создаёт пустой лимитер.
func New() *Limiter {
	return &Limiter{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Check учитывает запрос клиента и сообщает, укладывается ли он в лимит.
// Новое окно открывается лениво, на первом запросе после истечения предыдущего.
func (l *Limiter) Check(key string, opts Options) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	e, ok := l.entries[key]
	if !ok || !now.Before(e.resetTime) {
		e = &entry{count: 0, resetTime: now.Add(opts.Window)}
		l.entries[key] = e
	}

	if e.count >= opts.MaxRequests {
		return Result{Allowed: false, Remaining: 0, ResetTime: e.resetTime}
	}

	e.count++
	return Result{
		Allowed:   true,
		Remaining: opts.MaxRequests - e.count,
		ResetTime: e.resetTime,
	}
}

// Len возвращает число отслеживаемых клиентов.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// sweep удаляет истёкшие окна не чаще раза в минуту. Вызывается под мьютексом.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < sweepInterval {
		return
	}
	l.lastSweep = now
	for k, e := range l.entries {
		if !now.Before(e.resetTime) {
			delete(l.entries, k)
		}
	}
}
