package logserver

import "sync"

// recentLines is a fixed-size ring of the newest log lines.
type recentLines struct {
	mu    sync.Mutex
	lines []string
	next  int
	full  bool
}

func newRecentLines(capacity int) *recentLines {
	if capacity <= 0 {
		capacity = 1
	}
	return &recentLines{lines: make([]string, capacity)}
}

func (r *recentLines) add(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[r.next] = line
	r.next = (r.next + 1) % len(r.lines)
	if r.next == 0 {
		r.full = true
	}
}

// last returns up to n lines, oldest first.
func (r *recentLines) last(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	size := r.next
	if r.full {
		size = len(r.lines)
	}
	if n < 0 {
		n = 0
	}
	if n > size {
		n = size
	}
	out := make([]string, 0, n)
	start := (r.next - n + len(r.lines)) % len(r.lines)
	for i := 0; i < n; i++ {
		out = append(out, r.lines[(start+i)%len(r.lines)])
	}
	return out
}
