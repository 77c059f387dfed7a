package dice_test

import "fmt"

// queueSource returns predetermined faces in order. Each queued value is the
// face that should come up, so Intn returns face-1.
type queueSource struct {
	faces []int
	i     int
}

func faces(f ...int) *queueSource { return &queueSource{faces: f} }

func (q *queueSource) Intn(n int) int {
	if q.i >= len(q.faces) {
		panic(fmt.Sprintf("queueSource: exhausted after %d faces", len(q.faces)))
	}
	f := q.faces[q.i]
	q.i++
	if f < 1 || f > n {
		panic(fmt.Sprintf("queueSource: face %d out of range for d%d", f, n))
	}
	return f - 1
}
