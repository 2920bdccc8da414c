package console

import (
	"fmt"
	"strings"
	"sync"
)

// Recorder is an in-memory Sink that records every call for assertion in
// tests, the console-side counterpart to the teacher's MockBackend call-
// tracking idiom (used by the "Exit visibility" and "Starvation panic"
// scenarios of spec §8).
type Recorder struct {
	mu       sync.Mutex
	lines    []string
	putsN    int
	putxvalN int
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Puts implements Sink.
func (r *Recorder) Puts(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, s)
	r.putsN++
}

// Putxval implements Sink, recording the formatted hex string as a line.
func (r *Recorder) Putxval(val uint64, width int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var s string
	if width <= 0 {
		s = fmt.Sprintf("%x", val)
	} else {
		s = fmt.Sprintf("%0*x", width, val)
	}
	r.lines = append(r.lines, s)
	r.putxvalN++
}

// Output returns every string passed to Puts/Putxval, concatenated in
// call order.
func (r *Recorder) Output() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.lines, "")
}

// Lines returns a copy of every individual Puts/Putxval call.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// Contains reports whether substr appears anywhere in the recorded
// output, in call order.
func (r *Recorder) Contains(substr string) bool {
	return strings.Contains(r.Output(), substr)
}

// CallCounts returns how many times each method was called, mirroring
// the teacher's MockBackend.CallCounts.
func (r *Recorder) CallCounts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return map[string]int{
		"puts":    r.putsN,
		"putxval": r.putxvalN,
	}
}

// Reset clears all recorded output and counters.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = nil
	r.putsN = 0
	r.putxvalN = 0
}

var _ Sink = (*Recorder)(nil)
