package history

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumastream/chat-client/internal/domain"
)

func mid(n int) uuid.UUID {
	return uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012d", n))
}

func msg(n int, sender *domain.User) *domain.Message {
	m := domain.NewMessage(mid(n), sender)
	m.AppendFragment(fmt.Sprintf("message %d", n))
	return m
}

func ids(msgs []*domain.Message) []int {
	var out []int
	for _, m := range msgs {
		var n int
		fmt.Sscanf(m.ID.String(), "00000000-0000-0000-0000-%012d", &n)
		out = append(out, n)
	}
	return out
}

// checkLinks verifies the doubly-linked invariants: mutual neighbor
// consistency, count agreement, and endpoint correctness.
func checkLinks(t *testing.T, c *Cache) {
	t.Helper()

	if c.count == 0 {
		assert.Equal(t, none, c.newest)
		assert.Equal(t, none, c.oldest)
		return
	}
	require.NotEqual(t, none, c.newest)
	require.NotEqual(t, none, c.oldest)
	assert.Equal(t, none, c.nodes[c.newest].prev)
	assert.Equal(t, none, c.nodes[c.oldest].next)

	walked := 0
	last := none
	for i := c.newest; i != none; i = c.nodes[i].next {
		walked++
		require.LessOrEqual(t, walked, c.count, "chain longer than count")
		if next := c.nodes[i].next; next != none {
			assert.Equal(t, i, c.nodes[next].prev, "neighbors inconsistent")
		}
		last = i
	}
	assert.Equal(t, c.count, walked)
	assert.Equal(t, c.oldest, last)
}

func TestPushEvictsOldest(t *testing.T) {
	u := domain.NewUser(1, "alice")
	c := New(3)

	for n := 1; n <= 4; n++ {
		c.Push(msg(n, u))
		assert.LessOrEqual(t, c.Len(), 3)
		checkLinks(t, c)
	}

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []int{4, 3, 2}, ids(c.Recent(-1)))
}

func TestPushSkipsWhispers(t *testing.T) {
	u := domain.NewUser(1, "alice")
	c := New(5)

	w := msg(1, u)
	w.FlagAsWhisper()
	c.Push(w)
	c.Push(msg(2, u))

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, []int{2}, ids(c.Recent(-1)))
}

func TestPushDisabledCache(t *testing.T) {
	u := domain.NewUser(1, "alice")
	c := New(0)

	c.Push(msg(1, u))
	assert.Equal(t, 0, c.Len())
	checkLinks(t, c)
}

func TestDeleteWhereAll(t *testing.T) {
	u := domain.NewUser(1, "alice")
	c := New(10)
	for n := 1; n <= 5; n++ {
		c.Push(msg(n, u))
	}

	kept := c.Recent(-1)
	removed := c.DeleteWhere(func(*domain.Message) bool { return true })

	assert.Equal(t, 5, removed)
	assert.Equal(t, 0, c.Len())
	checkLinks(t, c)

	// Tombstoned, not destroyed: external holders still see id and sender.
	for _, m := range kept {
		assert.True(t, m.Moderated)
		assert.Empty(t, m.Body)
		assert.NotEqual(t, uuid.Nil, m.ID)
		assert.Same(t, u, m.Sender)
	}
}

func TestDeleteWhereAbsentIDIsNoop(t *testing.T) {
	u := domain.NewUser(1, "alice")
	c := New(10)
	for n := 1; n <= 3; n++ {
		c.Push(msg(n, u))
	}

	target := mid(99)
	removed := c.DeleteWhere(func(m *domain.Message) bool { return m.ID == target })

	assert.Equal(t, 0, removed)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []int{3, 2, 1}, ids(c.Recent(-1)))
}

func TestDeleteWhereRelinksEndpoints(t *testing.T) {
	u := domain.NewUser(1, "alice")

	for _, target := range []int{1, 2, 3} {
		t.Run(fmt.Sprintf("delete %d", target), func(t *testing.T) {
			c := New(10)
			for n := 1; n <= 3; n++ {
				c.Push(msg(n, u))
			}

			id := mid(target)
			removed := c.DeleteWhere(func(m *domain.Message) bool { return m.ID == id })

			assert.Equal(t, 1, removed)
			assert.Equal(t, 2, c.Len())
			assert.NotContains(t, ids(c.Recent(-1)), target)
			checkLinks(t, c)
		})
	}
}

func TestDeleteWhereBySender(t *testing.T) {
	alice := domain.NewUser(1, "alice")
	bob := domain.NewUser(2, "bob")
	c := New(10)
	c.Push(msg(1, alice))
	c.Push(msg(2, bob))
	c.Push(msg(3, alice))
	c.Push(msg(4, bob))

	removed := c.DeleteWhere(func(m *domain.Message) bool { return m.Sender.ID == bob.ID })

	assert.Equal(t, 2, removed)
	assert.Equal(t, []int{3, 1}, ids(c.Recent(-1)))
	checkLinks(t, c)
}

func TestRecentBounded(t *testing.T) {
	u := domain.NewUser(1, "alice")
	c := New(10)
	for n := 1; n <= 5; n++ {
		c.Push(msg(n, u))
	}

	assert.Equal(t, []int{5, 4}, ids(c.Recent(2)))
	assert.Equal(t, []int{5, 4, 3, 2, 1}, ids(c.Recent(-1)))
	assert.Empty(t, c.Recent(0))
	assert.Equal(t, 5, c.Len(), "read-only traversal")
}

func TestArenaReusesFreedSlots(t *testing.T) {
	u := domain.NewUser(1, "alice")
	c := New(2)
	for n := 1; n <= 10; n++ {
		c.Push(msg(n, u))
	}
	// 2 live nodes plus at most 1 transient slot before eviction.
	assert.LessOrEqual(t, len(c.nodes), 3)
}

func TestMergeServerHistoryDisjoint(t *testing.T) {
	u := domain.NewUser(1, "alice")
	c := New(10)
	c.Push(msg(8, u))
	c.Push(msg(9, u))

	c.Merge([]*domain.Message{msg(1, u), msg(2, u), msg(3, u)})

	assert.Equal(t, 5, c.Len())
	assert.Equal(t, 10, c.Max())
	assert.Equal(t, []int{9, 8, 3, 2, 1}, ids(c.Recent(-1)))
	assert.Equal(t, "message 9", c.Recent(1)[0].Body)
	checkLinks(t, c)
}

func TestMergeServerHistoryOverlapPrefersLocal(t *testing.T) {
	u := domain.NewUser(1, "alice")
	c := New(10)
	local3 := msg(3, u)
	local3.AppendFragment(" (local copy)")
	c.Push(local3)
	c.Push(msg(4, u))

	// Server also reports 3 (plus newer dupe 4 is absent here): everything
	// from the duplicate toward the server-side newest is superseded.
	c.Merge([]*domain.Message{msg(1, u), msg(2, u), msg(3, u)})

	assert.Equal(t, 4, c.Len())
	assert.Equal(t, []int{4, 3, 2, 1}, ids(c.Recent(-1)))
	assert.Equal(t, "message 3 (local copy)", c.Recent(-1)[1].Body, "local data wins on conflict")
	checkLinks(t, c)
}

func TestMergeServerHistoryIntoEmptyLocal(t *testing.T) {
	u := domain.NewUser(1, "alice")
	c := New(10)

	c.Merge([]*domain.Message{msg(1, u), msg(2, u), msg(3, u)})

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, 10, c.Max())
	assert.Equal(t, []int{3, 2, 1}, ids(c.Recent(-1)))
	checkLinks(t, c)
}

func TestMergeServerHistoryFullOverlap(t *testing.T) {
	u := domain.NewUser(1, "alice")
	c := New(10)
	c.Push(msg(1, u))
	c.Push(msg(2, u))

	// Every server entry is already covered by the local chain.
	c.Merge([]*domain.Message{msg(1, u)})

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []int{2, 1}, ids(c.Recent(-1)))
	checkLinks(t, c)
}

func TestMergeServerHistoryRespectsBudget(t *testing.T) {
	u := domain.NewUser(1, "alice")
	c := New(3)
	c.Push(msg(9, u))

	// Budget for server entries is 3-1=2, so only the two newest survive.
	c.Merge([]*domain.Message{msg(1, u), msg(2, u), msg(3, u), msg(4, u)})

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, 3, c.Max())
	assert.Equal(t, []int{9, 4, 3}, ids(c.Recent(-1)))
	checkLinks(t, c)
}

func TestMergeServerHistoryAtCapacity(t *testing.T) {
	u := domain.NewUser(1, "alice")
	c := New(2)
	c.Push(msg(1, u))
	c.Push(msg(2, u))

	c.Merge([]*domain.Message{msg(7, u), msg(8, u)})

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 2, c.Max())
	assert.Equal(t, []int{2, 1}, ids(c.Recent(-1)), "no budget left for server entries")
	checkLinks(t, c)
}

func TestMergeServerHistoryLocalOverBudget(t *testing.T) {
	u := domain.NewUser(1, "alice")
	c := New(3)
	for n := 1; n <= 3; n++ {
		c.Push(msg(n, u))
	}
	// Shrink the bound below the accumulated backlog; the merge budget goes
	// negative and every server entry is dropped.
	c.max = 1

	c.Merge([]*domain.Message{msg(7, u), msg(8, u)})

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, 1, c.Max())
	assert.Equal(t, []int{3, 2, 1}, ids(c.Recent(-1)))
	checkLinks(t, c)
}
