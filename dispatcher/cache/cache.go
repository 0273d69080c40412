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

package cache

import (
	"sync"
	"time"

	"github.com/miekg/dns"
)

// Cache keeps finished answer records keyed by their question. Entries
// expire by wall clock, the remaining lifetime is written back into the
// record's TTL on Get.
type Cache struct {
	l            sync.RWMutex
	size         int
	writeCounter int

	m map[dns.Question]*elem
}

type elem struct {
	expiredAt time.Time
	rr        dns.RR
}

func New(size int) *Cache {
	return &Cache{
		size: size,
		m:    make(map[dns.Question]*elem, size),
	}
}

// Add adds a copy of rr to the cache.
func (c *Cache) Add(q dns.Question, rr dns.RR, expireAt time.Time) {
	if rr == nil || !expireAt.After(time.Now()) {
		return
	}

	c.l.Lock()
	defer c.l.Unlock()

	if c.writeCounter >= c.size/2 {
		c.scanAndEvict()
	}
	empty := c.size - len(c.m)
	if empty < 1 {
		c.evict(1 - empty)
	}

	c.m[q] = &elem{rr: dns.Copy(rr), expiredAt: expireAt}
	c.writeCounter++
}

// Get returns a copy of the cached record for q with its TTL set to the
// remaining lifetime, or nil.
func (c *Cache) Get(q dns.Question) dns.RR {
	c.l.RLock()
	e, ok := c.m[q]
	c.l.RUnlock()

	if !ok {
		return nil
	}

	ttl := time.Until(e.expiredAt)
	if ttl < time.Second { // expired
		c.l.Lock()
		delete(c.m, q)
		c.l.Unlock()
		return nil
	}

	rr := dns.Copy(e.rr)
	rr.Header().Ttl = uint32(ttl / time.Second)
	return rr
}

func (c *Cache) Len() int {
	c.l.RLock()
	defer c.l.RUnlock()

	return len(c.m)
}

func (c *Cache) Reset() {
	c.l.Lock()
	defer c.l.Unlock()

	c.writeCounter = 0
	c.m = make(map[dns.Question]*elem, c.size)
}

func (c *Cache) evict(n int) {
	for k := range c.m {
		if n <= 0 {
			break
		}
		delete(c.m, k)
		n--
	}
}

func (c *Cache) scanAndEvict() {
	now := time.Now()
	for k, e := range c.m {
		if now.After(e.expiredAt) {
			delete(c.m, k)
		}
	}
	c.writeCounter = 0
}
