package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_PushPop(t *testing.T) {
	q := New[int]()
	assert.True(t, q.Empty())

	q.Push(1, 2)
	q.Push(3)
	assert.Equal(t, 3, q.Len())

	v, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	q.Pop()
	q.Pop()
	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestQueue_Drain(t *testing.T) {
	q := New[string]()
	q.Push("a", "b", "c", "d")

	assert.Equal(t, []string{"a", "b"}, q.Drain(2))
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, []string{"c", "d"}, q.Drain(10))
	assert.True(t, q.Empty())

	q.Push("e")
	assert.Equal(t, []string{"e"}, q.Drain(0))
}

func TestQueue_DrainDoesNotAlias(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3)
	first := q.Drain(1)
	q.Push(4)
	assert.Equal(t, []int{1}, first)
	assert.Equal(t, []int{2, 3, 4}, q.Drain(0))
}

func TestQueue_Clear(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3)
	q.Clear()
	assert.True(t, q.Empty())
}

func TestQueue_Concurrent(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Push(n*100 + j)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1000, q.Len())
	assert.Len(t, q.Drain(0), 1000)
}
