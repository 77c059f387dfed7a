// Package testutil provides test helpers: deterministic dice sources and a
// ready-to-use engine with an observable logger.
package testutil

import (
	"fmt"
	"sync"
	"testing"
)

// QueueSource returns predetermined faces in order. Each queued value is the
// face that should come up, so Intn returns face-1.
//
// Exhaustion or an out-of-range face fails the test and panics, which the
// engine reports as an evaluation failure.
type QueueSource struct {
	t     testing.TB
	mu    sync.Mutex
	faces []int
	next  int
}

// Faces creates a QueueSource over faces.
//
// Postcondition: Returns a source that yields exactly len(faces) values.
func Faces(t testing.TB, faces ...int) *QueueSource {
	t.Helper()
	return &QueueSource{t: t, faces: faces}
}

// Intn pops the next queued face.
func (q *QueueSource) Intn(n int) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.next >= len(q.faces) {
		msg := fmt.Sprintf("QueueSource: exhausted after %d faces", len(q.faces))
		q.t.Error(msg)
		panic(msg)
	}
	f := q.faces[q.next]
	q.next++
	if f < 1 || f > n {
		msg := fmt.Sprintf("QueueSource: face %d out of range for d%d", f, n)
		q.t.Error(msg)
		panic(msg)
	}
	return f - 1
}

// Remaining reports how many queued faces have not been drawn.
func (q *QueueSource) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.faces) - q.next
}

// FixedSource always rolls the same face, clamped to the die size.
type FixedSource struct {
	Face int
}

// Intn returns Face-1, clamped to [0, n).
func (f FixedSource) Intn(n int) int {
	return max(0, min(f.Face, n)-1)
}

// MaxSource always rolls the highest face of every die.
type MaxSource struct{}

// Intn returns n-1.
func (MaxSource) Intn(n int) int { return n - 1 }
