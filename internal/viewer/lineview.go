package viewer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/orrn/queueview/internal/core"
)

// LineView prints table changes as lines, for terminals and logs:
//
//	+ 42     hanna        duplex   alice      report.pdf     pending
//	~ 42     hanna        duplex   alice      report.pdf     processing
//	- 42     hanna        duplex   alice      report.pdf     completed
//	printers: dali[busy] hanna[idle]
//
// A reset reprints every displayed job with "=".
type LineView struct {
	mu sync.Mutex
	w  io.Writer
}

func NewLineView(w io.Writer) *LineView {
	return &LineView{w: w}
}

// Run prints changes until the channel is closed or ctx is done.
func (v *LineView) Run(ctx context.Context, changes <-chan Change) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-changes:
			if !ok {
				return nil
			}
			if err := v.Print(c); err != nil {
				return err
			}
		}
	}
}

func (v *LineView) Print(c Change) error {
	line := formatChange(c)
	if line == "" {
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	_, err := fmt.Fprintln(v.w, line)
	return err
}

func formatChange(c Change) string {
	var mark string
	switch c.Kind {
	case ChangeAdd:
		mark = "+"
	case ChangeUpdate:
		mark = "~"
	case ChangeRemove:
		mark = "-"
	case ChangeStatus:
		parts := make([]string, 0, len(c.Status))
		for _, s := range c.Status {
			parts = append(parts, fmt.Sprintf("%s[%s]", s.Name, s.Status))
		}
		return "printers: " + strings.Join(parts, " ")
	case ChangeReset:
		lines := make([]string, 0, len(c.Jobs))
		for i := range c.Jobs {
			lines = append(lines, formatJob("=", &c.Jobs[i]))
		}
		return strings.Join(lines, "\n")
	default:
		return ""
	}

	if c.Job == nil {
		return mark + " " + c.RowID
	}
	return formatJob(mark, c.Job)
}

func formatJob(mark string, j *core.Job) string {
	return strings.TrimRight(fmt.Sprintf("%s %-6d %-12s %-8s %-10s %-14s %s",
		mark, j.ID, j.PhysicalDest, j.Finisher, j.Owner, j.Title, j.State), " ")
}
