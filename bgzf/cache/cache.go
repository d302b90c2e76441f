// Copyright ©2015 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cache provides bounded caches of decompressed BGZF blocks for
// use by bgzf.Reader.SetCache.
package cache

import (
	"math/rand"
	"sync"

	"github.com/alignio/hts/bgzf"
)

var (
	_ Cache = (*LRU)(nil)
	_ Cache = (*FIFO)(nil)
	_ Cache = (*Random)(nil)
)

// Cache is an extension of bgzf.Cache that allows inspection and
// manipulation of the cache.
type Cache interface {
	bgzf.Cache

	// Len returns the number of blocks held by the cache.
	Len() int

	// Cap returns the maximum number of blocks that can be held by
	// the cache.
	Cap() int

	// Resize changes the capacity of the cache to n, dropping excess
	// blocks if n is less than the number of cached blocks.
	Resize(n int)

	// Drop evicts n blocks from the cache according to the cache's
	// eviction policy.
	Drop(n int)
}

// Free attempts to drop as many blocks from c as needed to allow n
// successful Put calls on c. It reports whether n slots were made
// available.
func Free(n int, c Cache) bool {
	empty := c.Cap() - c.Len()
	if n <= empty {
		return true
	}
	c.Drop(n - empty)
	return c.Cap()-c.Len() >= n
}

type entry struct {
	key  int64
	data []byte

	next, prev *entry
}

func insertAfter(pos, n *entry) {
	n.prev = pos
	pos.next, n.next, pos.next.prev = n, pos.next, n
}

func unlink(n *entry, table map[int64]*entry) {
	delete(table, n.key)
	n.prev.next = n.next
	n.next.prev = n.prev
	n.next = nil
	n.prev = nil
}

// NewLRU returns an LRU cache with n slots. If n is less than 1, nil is
// returned.
func NewLRU(n int) Cache {
	if n < 1 {
		return nil
	}
	c := &LRU{table: make(map[int64]*entry, n), cap: n}
	c.root.next = &c.root
	c.root.prev = &c.root
	return c
}

// LRU is a bounded cache of decompressed BGZF blocks with least
// recently used eviction.
type LRU struct {
	mu    sync.Mutex
	root  entry
	table map[int64]*entry
	cap   int
}

func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.table)
}

func (c *LRU) Cap() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cap
}

func (c *LRU) Resize(n int) {
	c.mu.Lock()
	if n < len(c.table) {
		c.drop(len(c.table) - n)
	}
	c.cap = n
	c.mu.Unlock()
}

func (c *LRU) Drop(n int) {
	c.mu.Lock()
	c.drop(n)
	c.mu.Unlock()
}

func (c *LRU) drop(n int) {
	for ; n > 0 && len(c.table) > 0; n-- {
		unlink(c.root.prev, c.table)
	}
}

// Get returns the cached payload for block, promoting it to most
// recently used.
func (c *LRU) Get(block bgzf.Offset) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.table[block.File]
	if !ok {
		return nil, false
	}
	unlink(n, c.table)
	insertAfter(&c.root, n)
	c.table[block.File] = n
	return n.data, true
}

// Put inserts data for block into the cache, evicting the least
// recently used entry if the cache is at capacity.
func (c *LRU) Put(block bgzf.Offset, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.table[block.File]; ok {
		n.data = data
		unlink(n, c.table)
		insertAfter(&c.root, n)
		c.table[block.File] = n
		return
	}
	if len(c.table) == c.cap {
		c.drop(1)
	}
	n := &entry{key: block.File, data: data}
	c.table[block.File] = n
	insertAfter(&c.root, n)
}

// NewFIFO returns a FIFO cache with n slots. If n is less than 1, nil is
// returned.
func NewFIFO(n int) Cache {
	if n < 1 {
		return nil
	}
	c := &FIFO{table: make(map[int64]*entry, n), cap: n}
	c.root.next = &c.root
	c.root.prev = &c.root
	return c
}

// FIFO is a bounded cache of decompressed BGZF blocks with first-in,
// first-out eviction.
type FIFO struct {
	mu    sync.Mutex
	root  entry
	table map[int64]*entry
	cap   int
}

func (c *FIFO) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.table)
}

func (c *FIFO) Cap() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cap
}

func (c *FIFO) Resize(n int) {
	c.mu.Lock()
	if n < len(c.table) {
		c.drop(len(c.table) - n)
	}
	c.cap = n
	c.mu.Unlock()
}

func (c *FIFO) Drop(n int) {
	c.mu.Lock()
	c.drop(n)
	c.mu.Unlock()
}

func (c *FIFO) drop(n int) {
	for ; n > 0 && len(c.table) > 0; n-- {
		unlink(c.root.prev, c.table)
	}
}

func (c *FIFO) Get(block bgzf.Offset) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.table[block.File]
	if !ok {
		return nil, false
	}
	return n.data, true
}

func (c *FIFO) Put(block bgzf.Offset, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.table[block.File]; ok {
		n.data = data
		return
	}
	if len(c.table) == c.cap {
		c.drop(1)
	}
	n := &entry{key: block.File, data: data}
	c.table[block.File] = n
	insertAfter(&c.root, n)
}

// NewRandom returns a cache with n slots that evicts a random entry when
// full. If n is less than 1, nil is returned.
func NewRandom(n int) Cache {
	if n < 1 {
		return nil
	}
	return &Random{table: make(map[int64][]byte, n), cap: n}
}

// Random is a bounded cache of decompressed BGZF blocks with random
// eviction.
type Random struct {
	mu    sync.Mutex
	table map[int64][]byte
	cap   int
}

func (c *Random) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.table)
}

func (c *Random) Cap() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cap
}

func (c *Random) Resize(n int) {
	c.mu.Lock()
	if n < len(c.table) {
		c.drop(len(c.table) - n)
	}
	c.cap = n
	c.mu.Unlock()
}

func (c *Random) Drop(n int) {
	c.mu.Lock()
	c.drop(n)
	c.mu.Unlock()
}

func (c *Random) drop(n int) {
	for k := range c.table {
		if n <= 0 {
			return
		}
		delete(c.table, k)
		n--
	}
}

func (c *Random) Get(block bgzf.Offset) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.table[block.File]
	return data, ok
}

func (c *Random) Put(block bgzf.Offset, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.table[block.File]; !ok && len(c.table) == c.cap {
		// Evict one pseudo-random entry to make room.
		skip := rand.Intn(len(c.table))
		for k := range c.table {
			if skip == 0 {
				delete(c.table, k)
				break
			}
			skip--
		}
	}
	c.table[block.File] = data
}

// StatsRecorder wraps a Cache, recording get, miss and put counts.
type StatsRecorder struct {
	Cache

	mu    sync.Mutex
	stats Stats
}

// Stats holds usage counters for a cache wrapped by StatsRecorder.
type Stats struct {
	Gets   int
	Misses int
	Puts   int
}

// Stats returns the current statistics.
func (s *StatsRecorder) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Reset zeros the statistics kept by the StatsRecorder.
func (s *StatsRecorder) Reset() {
	s.mu.Lock()
	s.stats = Stats{}
	s.mu.Unlock()
}

// Get implements bgzf.Cache, updating the gets/misses statistics.
func (s *StatsRecorder) Get(block bgzf.Offset) ([]byte, bool) {
	s.mu.Lock()
	s.stats.Gets++
	data, ok := s.Cache.Get(block)
	if !ok {
		s.stats.Misses++
	}
	s.mu.Unlock()
	return data, ok
}

// Put implements bgzf.Cache, updating the puts statistic.
func (s *StatsRecorder) Put(block bgzf.Offset, data []byte) {
	s.mu.Lock()
	s.stats.Puts++
	s.Cache.Put(block, data)
	s.mu.Unlock()
}
