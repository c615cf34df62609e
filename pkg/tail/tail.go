package tail

import (
	"bufio"
	"fmt"
	"io"

	"github.com/c360/ringkit/errors"
	"github.com/c360/ringkit/pkg/ringbuffer"
)

// MaxLineLength is the longest line Last and Follower accept.
const MaxLineLength = 1 << 20

// Last returns the final n lines of r, oldest first. Fewer lines are returned when
// r holds fewer than n. Memory use is bounded by n lines regardless of input size.
//
// On a read error the lines collected so far are returned with the error.
func Last(r io.Reader, n int) ([]string, error) {
	lines, _, err := LastCounted(r, n)
	return lines, err
}

// LastCounted is Last that also reports how many lines were read in total,
// including those that fell out of the window.
func LastCounted(r io.Reader, n int) ([]string, int, error) {
	if n <= 0 {
		return nil, 0, errors.WrapInvalid(errors.ErrInvalidArgument, "tail", "Last",
			fmt.Sprintf("line count must be positive, got %d", n))
	}

	window, err := ringbuffer.New[string](n)
	if err != nil {
		return nil, 0, err
	}

	var read int
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineLength)
	for scanner.Scan() {
		window.Push(scanner.Text())
		read++
	}

	if err := scanner.Err(); err != nil {
		return window.Slice(), read, errors.WrapTransient(err, "tail", "Last", "scan lines")
	}
	return window.Slice(), read, nil
}
