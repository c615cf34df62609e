package ringbuffer

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/ringkit/errors"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		wantErr  bool
	}{
		{"zero capacity", 0, true},
		{"negative capacity", -3, true},
		{"capacity one", 1, false},
		{"capacity many", 1024, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rb, err := New[int](tc.capacity)
			if tc.wantErr {
				require.Error(t, err)
				assert.Nil(t, rb)
				assert.ErrorIs(t, err, errors.ErrInvalidArgument)
				assert.True(t, errors.IsInvalid(err))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.capacity, rb.Cap())
			assert.Equal(t, 0, rb.Len())
			assert.True(t, rb.Empty())
			assert.False(t, rb.Full())
			assert.Equal(t, 0, rb.head)
			assert.Equal(t, 0, rb.tail)
		})
	}
}

func TestMustNewPanicsOnZeroCapacity(t *testing.T) {
	assert.Panics(t, func() { MustNew[string](0) })
	assert.NotPanics(t, func() { MustNew[string](1) })
}

func TestConcreteScenario(t *testing.T) {
	rb := MustNew[int](3)

	rb.Push(1)
	rb.Push(2)
	rb.Push(3)
	assert.True(t, rb.Full())
	assert.Equal(t, 3, rb.Len())

	rb.Push(4)
	front, err := rb.Front()
	require.NoError(t, err)
	assert.Equal(t, 2, front)
	for i, want := range []int{2, 3, 4} {
		got, err := rb.At(i)
		require.NoError(t, err)
		assert.Equal(t, want, got, "at(%d)", i)
	}

	v, err := rb.Pop()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, rb.Len())

	assert.True(t, rb.TryPush(5))
	assert.Equal(t, []int{3, 4, 5}, slices.Collect(rb.Values()))
}

func TestFIFOOrdering(t *testing.T) {
	rb := MustNew[string](8)
	in := []string{"a", "b", "c", "d", "e"}
	for _, s := range in {
		rb.Push(s)
	}

	var out []string
	for !rb.Empty() {
		s, err := rb.Pop()
		require.NoError(t, err)
		out = append(out, s)
	}
	assert.Equal(t, in, out)
}

func TestOverwriteKeepsLastCapacityElements(t *testing.T) {
	for _, capacity := range []int{1, 2, 3, 7} {
		for k := 1; k <= 2*capacity+1; k++ {
			t.Run(fmt.Sprintf("cap=%d/extra=%d", capacity, k), func(t *testing.T) {
				rb := MustNew[int](capacity)
				total := capacity + k
				for i := 0; i < total; i++ {
					rb.Push(i)
				}
				require.LessOrEqual(t, rb.Len(), rb.Cap())

				var drained []int
				for {
					v, ok := rb.TryPop()
					if !ok {
						break
					}
					drained = append(drained, v)
				}

				var want []int
				for i := total - capacity; i < total; i++ {
					want = append(want, i)
				}
				assert.Equal(t, want, drained)
			})
		}
	}
}

func TestPushEvictReturnsDisplacedElement(t *testing.T) {
	rb := MustNew[int](2)

	_, ok := rb.PushEvict(1)
	assert.False(t, ok)
	_, ok = rb.PushEvict(2)
	assert.False(t, ok)

	evicted, ok := rb.PushEvict(3)
	assert.True(t, ok)
	assert.Equal(t, 1, evicted)

	evicted, ok = rb.PushEvict(4)
	assert.True(t, ok)
	assert.Equal(t, 2, evicted)

	assert.Equal(t, []int{3, 4}, rb.Slice())
}

func TestCapacityOneOverwrite(t *testing.T) {
	rb := MustNew[int](1)
	for i := 0; i < 5; i++ {
		rb.Push(i)
		assert.True(t, rb.Full())
		front, err := rb.Front()
		require.NoError(t, err)
		assert.Equal(t, i, front)
		assert.Equal(t, rb.head, rb.tail)
	}
}

func TestTryPushRejectsWhenFull(t *testing.T) {
	rb := MustNew[int](3)
	require.True(t, rb.TryPush(10))
	require.True(t, rb.TryPush(20))
	require.True(t, rb.TryPush(30))

	before := rb.Slice()
	head, tail := rb.head, rb.tail

	assert.False(t, rb.TryPush(40))
	assert.Equal(t, 3, rb.Len())
	front, err := rb.Front()
	require.NoError(t, err)
	assert.Equal(t, 10, front)
	for i := range before {
		got, err := rb.At(i)
		require.NoError(t, err)
		assert.Equal(t, before[i], got)
	}
	assert.Equal(t, head, rb.head)
	assert.Equal(t, tail, rb.tail)
}

func TestEmplace(t *testing.T) {
	type point struct {
		X, Y int
		Tags []string
	}

	rb := MustNew[point](2)
	rb.Emplace(func(p *point) {
		p.X, p.Y = 1, 2
		p.Tags = append(p.Tags, "first")
	})
	rb.Emplace(nil)

	first, err := rb.At(0)
	require.NoError(t, err)
	assert.Equal(t, point{X: 1, Y: 2, Tags: []string{"first"}}, first)

	second, err := rb.At(1)
	require.NoError(t, err)
	assert.Equal(t, point{}, second)

	// Overwrite mode: the slot of the evicted element is reset before init runs.
	rb.Emplace(func(p *point) {
		assert.Equal(t, point{}, *p)
		p.X = 3
	})
	assert.Equal(t, []point{{}, {X: 3}}, rb.Slice())

	called := false
	assert.False(t, rb.TryEmplace(func(*point) { called = true }))
	assert.False(t, called)

	_, _ = rb.TryPop()
	assert.True(t, rb.TryEmplace(func(p *point) { p.Y = 9 }))
	assert.Equal(t, []point{{X: 3}, {Y: 9}}, rb.Slice())
}

func TestEmptyBufferFailures(t *testing.T) {
	rb := MustNew[int](4)

	_, err := rb.Pop()
	assert.ErrorIs(t, err, errors.ErrEmptyBuffer)
	assert.True(t, errors.IsInvalid(err))

	_, err = rb.Front()
	assert.ErrorIs(t, err, errors.ErrEmptyBuffer)

	_, ok := rb.TryPop()
	assert.False(t, ok)
	_, ok = rb.TryFront()
	assert.False(t, ok)

	out := 42
	assert.False(t, rb.TryPopInto(&out))
	assert.Equal(t, 42, out)

	assert.Equal(t, 0, rb.Len())
	assert.Equal(t, rb.head, rb.tail)
}

func TestTryPopInto(t *testing.T) {
	rb := MustNew[string](2)
	rb.Push("x")

	var out string
	require.True(t, rb.TryPopInto(&out))
	assert.Equal(t, "x", out)
	assert.True(t, rb.Empty())
}

func TestPopReleasesSlot(t *testing.T) {
	rb := MustNew[*int](2)
	v := 7
	rb.Push(&v)

	got, err := rb.Pop()
	require.NoError(t, err)
	assert.Same(t, &v, got)
	for _, slot := range rb.items {
		assert.Nil(t, slot)
	}
}

func TestIndexBounds(t *testing.T) {
	const capacity = 5
	for size := 0; size <= capacity; size++ {
		t.Run(fmt.Sprintf("size=%d", size), func(t *testing.T) {
			rb := MustNew[int](capacity)
			// Rotate head away from zero so wrap-around is exercised.
			for i := 0; i < 3; i++ {
				rb.Push(-1)
				_, _ = rb.TryPop()
			}
			for i := 0; i < size; i++ {
				rb.Push(i * 10)
			}

			for i := 0; i < size; i++ {
				got, err := rb.At(i)
				require.NoError(t, err)
				assert.Equal(t, i*10, got)
			}
			for _, bad := range []int{-1, size, size + 1, capacity} {
				_, err := rb.At(bad)
				assert.ErrorIs(t, err, errors.ErrIndexOutOfBounds, "index %d", bad)
				_, err = rb.Ref(bad)
				assert.ErrorIs(t, err, errors.ErrIndexOutOfBounds, "index %d", bad)
			}
		})
	}
}

func TestRefMutatesInPlace(t *testing.T) {
	rb := MustNew[int](3)
	rb.Push(1)
	rb.Push(2)

	p, err := rb.Ref(1)
	require.NoError(t, err)
	*p = 20

	got, err := rb.At(1)
	require.NoError(t, err)
	assert.Equal(t, 20, got)
	assert.Equal(t, 2, rb.Len())
}

func TestClear(t *testing.T) {
	rb := MustNew[string](3)
	rb.Push("a")
	rb.Push("b")
	rb.Push("c")
	rb.Push("d")

	rb.Clear()
	assert.True(t, rb.Empty())
	assert.Equal(t, 0, rb.Len())
	assert.Equal(t, 3, rb.Cap())
	assert.Equal(t, 0, rb.head)
	assert.Equal(t, 0, rb.tail)
	assert.Len(t, rb.items, 3)
	assert.Empty(t, slices.Collect(rb.Values()))

	rb.Clear()
	assert.True(t, rb.Empty())

	rb.Push("e")
	front, err := rb.Front()
	require.NoError(t, err)
	assert.Equal(t, "e", front)
}

func TestTraversal(t *testing.T) {
	rb := MustNew[int](4)
	for i := 1; i <= 6; i++ {
		rb.Push(i)
	}

	var indices, values []int
	for i, v := range rb.All() {
		indices = append(indices, i)
		values = append(values, v)
	}
	assert.Equal(t, []int{0, 1, 2, 3}, indices)
	assert.Equal(t, []int{3, 4, 5, 6}, values)

	var back []int
	for _, v := range rb.Backward() {
		back = append(back, v)
	}
	assert.Equal(t, []int{6, 5, 4, 3}, back)

	// Early termination.
	var firstTwo []int
	for v := range rb.Values() {
		if len(firstTwo) == 2 {
			break
		}
		firstTwo = append(firstTwo, v)
	}
	assert.Equal(t, []int{3, 4}, firstTwo)

	// Each traversal is independent and restartable.
	seq := rb.Values()
	assert.Equal(t, slices.Collect(seq), slices.Collect(seq))
}

func TestTraversalIsSnapshotOfIndices(t *testing.T) {
	rb := MustNew[int](3)
	rb.Push(1)
	rb.Push(2)

	seq := rb.Values()
	rb.Push(3)

	// Length was captured at creation: the new element is not visited.
	assert.Equal(t, []int{1, 2}, slices.Collect(seq))

	// Values are read through shared storage, so an overwrite shows through.
	seq = rb.Values()
	rb.Push(4)
	assert.Len(t, slices.Collect(seq), 3)
	assert.NotPanics(t, func() {
		rb.Clear()
		slices.Collect(seq)
	})
}

func TestAppendToAndSlice(t *testing.T) {
	rb := MustNew[int](4)
	assert.Empty(t, rb.Slice())
	assert.Equal(t, []int{9}, rb.AppendTo([]int{9}))

	for i := 0; i < 6; i++ {
		rb.Push(i)
	}
	assert.Equal(t, []int{2, 3, 4, 5}, rb.Slice())
	assert.Equal(t, []int{-1, 2, 3, 4, 5}, rb.AppendTo([]int{-1}))

	// Slice returns a copy.
	s := rb.Slice()
	s[0] = 100
	front, err := rb.Front()
	require.NoError(t, err)
	assert.Equal(t, 2, front)
}

func TestString(t *testing.T) {
	rb := MustNew[int](4)
	rb.Push(1)
	assert.Equal(t, "RingBuffer[1/4]", rb.String())
}

// checkInvariants asserts the index relations that must hold after every operation.
func checkInvariants[T any](t *testing.T, rb *RingBuffer[T]) {
	t.Helper()
	require.GreaterOrEqual(t, rb.size, 0)
	require.LessOrEqual(t, rb.size, rb.capacity)
	require.GreaterOrEqual(t, rb.head, 0)
	require.Less(t, rb.head, rb.capacity)
	require.GreaterOrEqual(t, rb.tail, 0)
	require.Less(t, rb.tail, rb.capacity)
	require.Equal(t, (rb.head+rb.size)%rb.capacity, rb.tail)
	require.Len(t, rb.items, rb.capacity)
}
