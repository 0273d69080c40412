//     Copyright (C) 2025, mashb1t
//
//     This file is part of dns-txt-ollama-server.
//
//     dns-txt-ollama-server is free software: you can redistribute it and/or modify
//     it under the terms of the GNU General Public License as published by
//     the Free Software Foundation, either version 3 of the License, or
//     (at your option) any later version.
//
//     dns-txt-ollama-server is distributed in the hope that it will be useful,
//     but WITHOUT ANY WARRANTY; without even the implied warranty of
//     MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//     GNU General Public License for more details.
//
//     You should have received a copy of the GNU General Public License
//     along with this program.  If not, see <https://www.gnu.org/licenses/>.

package ratelimit

import (
	"net"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"
)

const defaultMaxEntries = 10000

// Limiter is a per-client token bucket. Each client gets tokensPerMinute
// tokens, refilled continuously over a minute, and spends one per allowed
// query. A client never seen before starts with a full bucket.
//
// Client buckets live in two generations of maps. When the active
// generation reaches maxEntries it becomes the previous one and a fresh map
// takes over, lookups fall back to the previous generation and promote, so
// active clients keep their bucket state while idle ones age out.
type Limiter struct {
	limit rate.Limit
	burst int

	// rotation threshold for the active generation
	maxEntries int64

	rotateMu sync.Mutex
	current  atomic.Pointer[sync.Map] // ip -> *rate.Limiter
	previous atomic.Pointer[sync.Map]
	count    int64
}

// New returns a Limiter allowing tokensPerMinute queries per minute per
// client.
func New(tokensPerMinute int) *Limiter {
	l := &Limiter{
		limit:      rate.Limit(float64(tokensPerMinute) / 60),
		burst:      tokensPerMinute,
		maxEntries: defaultMaxEntries,
	}
	l.current.Store(new(sync.Map))
	l.previous.Store(new(sync.Map))
	return l
}

// Allow reports whether one more query from addr may proceed. addr may be
// "ip:port" or a bare ip, the port is ignored for accounting.
func (l *Limiter) Allow(addr string) bool {
	ip := addr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		ip = host
	}

	if atomic.LoadInt64(&l.count) >= l.maxEntries {
		l.rotate()
	}

	current := l.current.Load()
	if v, ok := current.Load(ip); ok {
		return v.(*rate.Limiter).Allow()
	}

	if v, ok := l.previous.Load().Load(ip); ok {
		v, loaded := current.LoadOrStore(ip, v)
		if !loaded {
			atomic.AddInt64(&l.count, 1)
		}
		return v.(*rate.Limiter).Allow()
	}

	v, loaded := current.LoadOrStore(ip, rate.NewLimiter(l.limit, l.burst))
	if !loaded {
		atomic.AddInt64(&l.count, 1)
	}
	return v.(*rate.Limiter).Allow()
}

func (l *Limiter) rotate() {
	l.rotateMu.Lock()
	defer l.rotateMu.Unlock()

	if atomic.LoadInt64(&l.count) < l.maxEntries {
		return // another caller already rotated
	}
	l.previous.Store(l.current.Load())
	l.current.Store(new(sync.Map))
	atomic.StoreInt64(&l.count, 0)
}
