package ringbuffer

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/eapache/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/ringkit/errors"
)

// TestRandomOperationsAgainstQueue drives a RingBuffer and an unbounded reference
// queue with the same random operations. In overwrite mode the reference drops
// its head by hand, so both must agree on contents after every step.
func TestRandomOperationsAgainstQueue(t *testing.T) {
	for _, capacity := range []int{1, 2, 3, 5, 16} {
		t.Run(fmt.Sprintf("cap_%d", capacity), func(t *testing.T) {
			rng := rand.New(rand.NewSource(int64(capacity) * 7919))
			rb := MustNew[int](capacity)
			ref := queue.New()
			next := 0

			for step := 0; step < 2000; step++ {
				switch op := rng.Intn(7); op {
				case 0, 1: // overwrite push
					evicted, ok := rb.PushEvict(next)
					if ref.Length() == capacity {
						require.True(t, ok, "step %d", step)
						require.Equal(t, ref.Remove().(int), evicted, "step %d", step)
					} else {
						require.False(t, ok, "step %d", step)
					}
					ref.Add(next)
					next++

				case 2: // reject push
					stored := rb.TryPush(next)
					require.Equal(t, ref.Length() < capacity, stored, "step %d", step)
					if stored {
						ref.Add(next)
					}
					next++

				case 3: // pop
					v, err := rb.Pop()
					if ref.Length() == 0 {
						require.ErrorIs(t, err, errors.ErrEmptyBuffer)
					} else {
						require.NoError(t, err)
						require.Equal(t, ref.Remove().(int), v, "step %d", step)
					}

				case 4: // try pop
					v, ok := rb.TryPop()
					require.Equal(t, ref.Length() > 0, ok)
					if ok {
						require.Equal(t, ref.Remove().(int), v, "step %d", step)
					}

				case 5: // random access
					if ref.Length() > 0 {
						i := rng.Intn(ref.Length())
						v, err := rb.At(i)
						require.NoError(t, err)
						require.Equal(t, ref.Get(i).(int), v)
					}
					_, err := rb.At(ref.Length())
					require.ErrorIs(t, err, errors.ErrIndexOutOfBounds)

				case 6:
					if rng.Intn(20) == 0 {
						rb.Clear()
						for ref.Length() > 0 {
							ref.Remove()
						}
					}
				}

				checkInvariants(t, rb)
				require.Equal(t, capacity, rb.Cap())
				require.Equal(t, ref.Length(), rb.Len())
				require.Equal(t, ref.Length() == 0, rb.Empty())
				require.Equal(t, ref.Length() == capacity, rb.Full())
				if ref.Length() > 0 {
					front, err := rb.Front()
					require.NoError(t, err)
					require.Equal(t, ref.Peek().(int), front)
				}
			}

			var want []int
			for i := 0; i < ref.Length(); i++ {
				want = append(want, ref.Get(i).(int))
			}
			var got []int
			for v := range rb.Values() {
				got = append(got, v)
			}
			assert.Equal(t, want, got)
		})
	}
}
