// Package history keeps the bounded, newest-first cache of retained room
// messages. Nodes live in an index-addressed arena with explicit next/prev
// links, so eviction and history splicing are plain index rewrites.
package history

import (
	"github.com/lumastream/chat-client/internal/domain"
)

// none marks an absent link.
const none = -1

type node struct {
	msg *domain.Message
	// next points toward older messages, prev toward newer.
	next int
	prev int
}

// Cache is a bounded doubly-linked sequence of retained messages, newest
// first. It is not safe for concurrent use; the session event loop owns it.
type Cache struct {
	nodes  []node
	free   []int
	newest int
	oldest int
	count  int
	max    int
}

// New creates a cache retaining at most max messages. A max of zero or
// less disables retention entirely.
func New(max int) *Cache {
	return &Cache{newest: none, oldest: none, max: max}
}

// Len returns the number of retained messages.
func (c *Cache) Len() int { return c.count }

// Max returns the retention bound.
func (c *Cache) Max() int { return c.max }

// Push links m as the new newest message, evicting the oldest when the
// bound is exceeded. Whispers are never retained.
func (c *Cache) Push(m *domain.Message) {
	if c.max <= 0 || m.Whisper {
		return
	}

	idx := c.alloc(m)
	c.nodes[idx].next = c.newest
	if c.newest != none {
		c.nodes[c.newest].prev = idx
	}
	c.newest = idx
	c.count++

	if c.oldest == none {
		c.oldest = idx
	} else if c.count > c.max {
		evicted := c.oldest
		c.oldest = c.nodes[evicted].prev
		if c.oldest != none {
			c.nodes[c.oldest].next = none
		}
		c.release(evicted)
		c.count--
	}
}

// DeleteWhere walks newest to oldest once, tombstoning and unlinking every
// message the predicate matches. It returns the number of removed nodes.
// The predicate sees each live message exactly once.
func (c *Cache) DeleteWhere(pred func(*domain.Message) bool) int {
	removed := 0
	for i := c.newest; i != none; {
		next := c.nodes[i].next
		if m := c.nodes[i].msg; pred(m) {
			m.Tombstone()
			c.unlink(i)
			removed++
		}
		i = next
	}
	return removed
}

// Recent returns up to n messages, newest first. A negative n returns all
// retained messages. The returned slice is a snapshot.
func (c *Cache) Recent(n int) []*domain.Message {
	var out []*domain.Message
	for i := c.newest; i != none && (n < 0 || len(out) < n); i = c.nodes[i].next {
		out = append(out, c.nodes[i].msg)
	}
	return out
}

// Merge reconciles late-arriving server history, reported oldest first,
// with whatever has already accumulated locally. Server entries are pushed
// against a budget of max minus the local count so the merge never exceeds
// the combined bound. Where the server chain contains the local oldest
// message id, the local copy wins and the superseded server nodes are
// discarded; otherwise the local chain is concatenated in front.
func (c *Cache) Merge(serverOldestFirst []*domain.Message) {
	localNewest, localOldest := c.newest, c.oldest
	localCount, localMax := c.count, c.max
	c.newest, c.oldest = none, none
	c.count = 0
	c.max = localMax - localCount

	for _, m := range serverOldestFirst {
		c.Push(m)
	}

	if c.newest == none {
		// Nothing from the server survived the budget; restore the
		// local chain untouched.
		c.newest, c.oldest = localNewest, localOldest
		c.count = localCount
		c.max = localMax
		return
	}

	if localOldest == none {
		// No local history; adopt the server chain verbatim.
		c.max = localMax
		return
	}

	dupID := c.nodes[localOldest].msg.ID
	scan := c.newest
	dupes := 0
	for scan != none {
		dupes++
		if c.nodes[scan].msg.ID == dupID {
			break
		}
		scan = c.nodes[scan].next
	}

	if scan != none {
		after := c.nodes[scan].next
		for i := c.newest; ; {
			next := c.nodes[i].next
			c.release(i)
			if i == scan {
				break
			}
			i = next
		}
		c.nodes[localOldest].next = after
		if after != none {
			c.nodes[after].prev = localOldest
		} else {
			c.oldest = localOldest
		}
		c.count -= dupes
	} else {
		c.nodes[localOldest].next = c.newest
		c.nodes[c.newest].prev = localOldest
	}

	c.newest = localNewest
	c.count += localCount
	c.max = localMax
}

func (c *Cache) alloc(m *domain.Message) int {
	if n := len(c.free); n > 0 {
		idx := c.free[n-1]
		c.free = c.free[:n-1]
		c.nodes[idx] = node{msg: m, next: none, prev: none}
		return idx
	}
	c.nodes = append(c.nodes, node{msg: m, next: none, prev: none})
	return len(c.nodes) - 1
}

func (c *Cache) release(idx int) {
	c.nodes[idx] = node{next: none, prev: none}
	c.free = append(c.free, idx)
}

func (c *Cache) unlink(idx int) {
	n := c.nodes[idx]
	if idx == c.newest {
		c.newest = n.next
	}
	if idx == c.oldest {
		c.oldest = n.prev
	}
	if n.next != none {
		c.nodes[n.next].prev = n.prev
	}
	if n.prev != none {
		c.nodes[n.prev].next = n.next
	}
	c.release(idx)
	c.count--
}
