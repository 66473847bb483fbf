package viewer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orrn/queueview/internal/core"
)

//go:embed templates/*.html
var templateFS embed.FS

var fragments = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type RowState int

const (
	RowVisible RowState = iota
	RowFadingIn
	RowFadingOut
)

func (s RowState) String() string {
	switch s {
	case RowFadingIn:
		return "fading-in"
	case RowFadingOut:
		return "fading-out"
	default:
		return "visible"
	}
}

type Order string

const (
	OrderAscending   Order = "ascending"
	OrderNewestFirst Order = "newest_first"
)

// Row is one rendered job. Deadline is when the current transition ends.
type Row struct {
	Job      core.Job
	State    RowState
	Deadline time.Time
}

func (r Row) RowID() string   { return r.Job.ID.RowID() }
func (r Row) FadingIn() bool  { return r.State == RowFadingIn }
func (r Row) FadingOut() bool { return r.State == RowFadingOut }

type ChangeKind string

const (
	ChangeAdd     ChangeKind = "add"
	ChangeUpdate  ChangeKind = "update"
	ChangeRemove  ChangeKind = "remove"
	ChangePurge   ChangeKind = "purge"
	ChangeStatus  ChangeKind = "status"
	ChangeLoading ChangeKind = "loading"
	ChangeReset   ChangeKind = "reset"
)

// Change is one mutation of the table as streamed to subscribers. HTML holds
// the rendered row for add and update, the status list for status and the
// whole table for reset. A reset also lists the displayed jobs in Jobs.
type Change struct {
	Kind    ChangeKind           `json:"kind"`
	RowID   string               `json:"row_id,omitempty"`
	Job     *core.Job            `json:"job,omitempty"`
	Jobs    []core.Job           `json:"jobs,omitempty"`
	Index   int                  `json:"index"`
	HTML    string               `json:"html,omitempty"`
	FadeMS  int64                `json:"fade_ms,omitempty"`
	Status  []core.PrinterStatus `json:"status,omitempty"`
	Visible bool                 `json:"visible"`
}

const subscriberBuffer = 64

type TableConfig struct {
	Clock        Clock
	FadeDuration time.Duration
	Order        Order
	Logger       *slog.Logger
}

// Table is the rendered job list: rows keyed by job id with their fade
// transitions, the printer status list and the loading bar.
type Table struct {
	mu      sync.Mutex
	clock   Clock
	fade    time.Duration
	order   Order
	log     *slog.Logger
	rows    map[core.JobID]*Row
	status  []core.PrinterStatus
	loading bool
	subs    map[string]chan Change
}

func NewTable(cfg TableConfig) *Table {
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	if cfg.Order == "" {
		cfg.Order = OrderAscending
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Table{
		clock: cfg.Clock,
		fade:  cfg.FadeDuration,
		order: cfg.Order,
		log:   cfg.Logger.With("component", "table"),
		rows:  make(map[core.JobID]*Row),
		subs:  make(map[string]chan Change),
	}
}

// Insert adds a row that fades in. A row still fading out under the same id
// is brought back instead.
func (t *Table) Insert(job core.Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.insert(job)
}

func (t *Table) insert(job core.Job) {
	if row, ok := t.rows[job.ID]; ok {
		t.replace(row, job)
		return
	}

	row := &Row{Job: job, State: RowVisible}
	if t.fade > 0 {
		row.State = RowFadingIn
		row.Deadline = t.clock.Now().Add(t.fade)
		t.clock.AfterFunc(t.fade, t.Sweep)
	}
	t.rows[job.ID] = row

	t.emit(Change{
		Kind:   ChangeAdd,
		RowID:  row.RowID(),
		Job:    &job,
		Index:  t.indexOf(job.ID),
		HTML:   t.render("row", *row),
		FadeMS: t.fade.Milliseconds(),
	})
}

// Update replaces the content of a row in place. A row that is still fading
// in keeps its transition.
func (t *Table) Update(job core.Job) {
	t.mu.Lock()
	defer t.mu.Unlock()

	row, ok := t.rows[job.ID]
	if !ok {
		t.insert(job)
		return
	}
	t.replace(row, job)
}

func (t *Table) replace(row *Row, job core.Job) {
	row.Job = job
	if row.State == RowFadingOut {
		row.State = RowVisible
		row.Deadline = time.Time{}
	}
	t.emit(Change{
		Kind:  ChangeUpdate,
		RowID: row.RowID(),
		Job:   &job,
		Index: t.indexOf(job.ID),
		HTML:  t.render("row", *row),
	})
}

// Remove fades a row out. Sweep drops it once the fade is over.
func (t *Table) Remove(id core.JobID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	row, ok := t.rows[id]
	if !ok || row.State == RowFadingOut {
		return
	}

	if t.fade <= 0 {
		job := row.Job
		delete(t.rows, id)
		t.emit(Change{Kind: ChangeRemove, RowID: id.RowID(), Job: &job})
		t.emit(Change{Kind: ChangePurge, RowID: id.RowID()})
		return
	}

	row.State = RowFadingOut
	row.Deadline = t.clock.Now().Add(t.fade)
	t.clock.AfterFunc(t.fade, t.Sweep)

	job := row.Job
	t.emit(Change{Kind: ChangeRemove, RowID: id.RowID(), Job: &job, FadeMS: t.fade.Milliseconds()})
}

// Sweep completes every transition whose deadline has passed.
func (t *Table) Sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	for _, id := range t.sortedIDs() {
		row := t.rows[id]
		if row.State == RowVisible || row.Deadline.After(now) {
			continue
		}
		switch row.State {
		case RowFadingIn:
			row.State = RowVisible
			row.Deadline = time.Time{}
		case RowFadingOut:
			delete(t.rows, id)
			t.emit(Change{Kind: ChangePurge, RowID: id.RowID()})
		}
	}
}

// Settle ends every transition at once. Rows fading in become visible and
// rows fading out are dropped.
func (t *Table) Settle() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, id := range t.sortedIDs() {
		row := t.rows[id]
		switch row.State {
		case RowFadingIn:
			row.State = RowVisible
			row.Deadline = time.Time{}
			job := row.Job
			t.emit(Change{
				Kind:  ChangeUpdate,
				RowID: row.RowID(),
				Job:   &job,
				Index: t.indexOf(id),
				HTML:  t.render("row", *row),
			})
		case RowFadingOut:
			delete(t.rows, id)
			t.emit(Change{Kind: ChangePurge, RowID: id.RowID()})
		}
	}
}

// SetStatus replaces the printer status list. The list is rendered in the
// order given.
func (t *Table) SetStatus(status []core.PrinterStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status = append([]core.PrinterStatus(nil), status...)
	t.emit(Change{
		Kind:   ChangeStatus,
		Status: t.status,
		HTML:   t.render("statuslist", t.status),
	})
}

func (t *Table) SetLoading(visible bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.loading == visible {
		return
	}
	t.loading = visible

	c := Change{Kind: ChangeLoading, Visible: visible}
	if !visible {
		c.FadeMS = LoadingFade.Milliseconds()
	}
	t.emit(c)
}

// Rows returns every rendered row, including those fading out, in
// presentation order.
func (t *Table) Rows() []Row {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.orderedRows()
}

// IDs returns the ids of rows that are not on their way out, ascending.
func (t *Table) IDs() []core.JobID {
	t.mu.Lock()
	defer t.mu.Unlock()

	var ids []core.JobID
	for _, id := range t.sortedIDs() {
		if t.rows[id].State != RowFadingOut {
			ids = append(ids, id)
		}
	}
	return ids
}

func (t *Table) Row(id core.JobID) (Row, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	row, ok := t.rows[id]
	if !ok {
		return Row{}, false
	}
	return *row, true
}

func (t *Table) Status() []core.PrinterStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]core.PrinterStatus(nil), t.status...)
}

func (t *Table) Loading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loading
}

type tableView struct {
	Rows    []Row
	Status  []core.PrinterStatus
	Loading bool
}

// Render writes the loading bar, the status list and the job table.
func (t *Table) Render(w io.Writer) error {
	t.mu.Lock()
	view := t.view()
	t.mu.Unlock()

	if err := fragments.ExecuteTemplate(w, "queue", view); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}

// HTML is Render for embedding in a page template.
func (t *Table) HTML() (template.HTML, error) {
	var buf bytes.Buffer
	if err := t.Render(&buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// Subscribe streams changes, starting with a reset carrying the whole table.
// When a subscriber falls behind, its backlog is replaced by a single reset.
// The channel is closed only by cancel.
func (t *Table) Subscribe() (string, <-chan Change, func()) {
	id := uuid.NewString()
	ch := make(chan Change, subscriberBuffer)

	t.mu.Lock()
	ch <- t.reset()
	t.subs[id] = ch
	t.mu.Unlock()

	cancel := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if c, ok := t.subs[id]; ok {
			delete(t.subs, id)
			close(c)
		}
	}
	return id, ch, cancel
}

func (t *Table) Subscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

func (t *Table) emit(c Change) {
	for id, ch := range t.subs {
		select {
		case ch <- c:
		default:
			t.resync(id, ch)
		}
	}
}

// resync swaps the backlog of a lagging subscriber for a reset. The table
// state already includes the change that did not fit.
func (t *Table) resync(id string, ch chan Change) {
	for drained := false; !drained; {
		select {
		case <-ch:
		default:
			drained = true
		}
	}
	// only emit sends, under t.mu, so the drained buffer has room
	ch <- t.reset()
	t.log.Debug("subscriber fell behind, resyncing", "subscriber", id)
}

func (t *Table) reset() Change {
	var jobs []core.Job
	for _, row := range t.orderedRows() {
		if row.State != RowFadingOut {
			jobs = append(jobs, row.Job)
		}
	}
	return Change{
		Kind:    ChangeReset,
		HTML:    t.render("queue", t.view()),
		Jobs:    jobs,
		Status:  append([]core.PrinterStatus(nil), t.status...),
		Visible: t.loading,
	}
}

func (t *Table) view() tableView {
	return tableView{
		Rows:    t.orderedRows(),
		Status:  append([]core.PrinterStatus(nil), t.status...),
		Loading: t.loading,
	}
}

func (t *Table) render(name string, data any) string {
	var buf bytes.Buffer
	if err := fragments.ExecuteTemplate(&buf, name, data); err != nil {
		t.log.Error("failed to render fragment", "template", name, "error", err)
		return ""
	}
	return buf.String()
}

func (t *Table) sortedIDs() []core.JobID {
	ids := make([]core.JobID, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (t *Table) orderedRows() []Row {
	ids := t.sortedIDs()
	if t.order == OrderNewestFirst {
		for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
			ids[i], ids[j] = ids[j], ids[i]
		}
	}

	rows := make([]Row, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, *t.rows[id])
	}
	return rows
}

func (t *Table) indexOf(id core.JobID) int {
	for i, row := range t.orderedRows() {
		if row.Job.ID == id {
			return i
		}
	}
	return -1
}
