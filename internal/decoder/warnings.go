package decoder

import (
	"fmt"
	"strings"
)

const warningExampleCap = 3

// warningCollector accumulates row/point-level issues during a decode. Each
// distinct problem is reported once with an occurrence count and a few
// examples, so a thousand bad rows do not produce a thousand warnings.
type warningCollector struct {
	order    []string
	counts   map[string]int
	examples map[string][]string
}

func newWarningCollector() *warningCollector {
	return &warningCollector{
		counts:   make(map[string]int),
		examples: make(map[string][]string),
	}
}

// Add records one occurrence of a warning kind with an identifying example
// (row number, point index, line content).
func (w *warningCollector) Add(kind, example string) {
	if _, seen := w.counts[kind]; !seen {
		w.order = append(w.order, kind)
	}
	w.counts[kind]++
	if len(w.examples[kind]) < warningExampleCap {
		w.examples[kind] = append(w.examples[kind], example)
	}
}

// Empty reports whether nothing was collected.
func (w *warningCollector) Empty() bool {
	return len(w.order) == 0
}

// Messages renders the collected warnings in insertion order.
func (w *warningCollector) Messages() []string {
	if w.Empty() {
		return nil
	}
	msgs := make([]string, 0, len(w.order))
	for _, kind := range w.order {
		msg := fmt.Sprintf("%s (%d occurrences; e.g. %s)",
			kind, w.counts[kind], strings.Join(w.examples[kind], ", "))
		if w.counts[kind] == 1 {
			msg = fmt.Sprintf("%s (%s)", kind, w.examples[kind][0])
		}
		msgs = append(msgs, msg)
	}
	return msgs
}
