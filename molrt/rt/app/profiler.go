package app

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Profiler keeps the last CPU duration of each named frame scope plus a few
// counters. It is only touched under the App lock.
type Profiler struct {
	now func() time.Time

	scopes map[string]time.Duration
	starts map[string]time.Time
	counts map[string]int
	order  []string
}

func NewProfiler() *Profiler {
	return newProfilerWithClock(time.Now)
}

func newProfilerWithClock(now func() time.Time) *Profiler {
	return &Profiler{
		now:    now,
		scopes: make(map[string]time.Duration),
		starts: make(map[string]time.Time),
		counts: make(map[string]int),
	}
}

func (p *Profiler) BeginScope(name string) {
	p.starts[name] = p.now()
	if _, seen := p.scopes[name]; !seen {
		p.order = append(p.order, name)
		p.scopes[name] = 0
	}
}

func (p *Profiler) EndScope(name string) {
	if start, ok := p.starts[name]; ok {
		p.scopes[name] = p.now().Sub(start)
		delete(p.starts, name)
	}
}

func (p *Profiler) Scope(name string) time.Duration { return p.scopes[name] }

func (p *Profiler) SetCount(name string, count int) {
	p.counts[name] = count
}

func (p *Profiler) Count(name string) int { return p.counts[name] }

// Reset zeroes durations but keeps the scope order stable.
func (p *Profiler) Reset() {
	for k := range p.scopes {
		p.scopes[k] = 0
	}
}

// String renders scopes in first-seen order, then counters by name.
func (p *Profiler) String() string {
	var sb strings.Builder

	sb.WriteString("frame:")
	for _, name := range p.order {
		ms := float64(p.scopes[name].Microseconds()) / 1000.0
		fmt.Fprintf(&sb, " %s=%.2fms", name, ms)
	}

	keys := make([]string, 0, len(p.counts))
	for k := range p.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%d", k, p.counts[k])
	}
	return sb.String()
}
