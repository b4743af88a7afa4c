package report

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/pondokpesantren/sipondok/core"
	"github.com/pondokpesantren/sipondok/core/academic"
	"github.com/pondokpesantren/sipondok/core/attendance"
	"github.com/pondokpesantren/sipondok/core/santri"
)

type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateLoaded
	StateSaving
	StatePrinting
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateSaving:
		return "saving"
	case StatePrinting:
		return "printing"
	}
	return "unknown"
}

var (
	ErrSuperseded = errors.New("filters changed while loading")
	ErrBusy       = errors.New("another action is in progress")
	ErrNotLoaded  = errors.New("no reports loaded")
	ErrUnknownRow = errors.New("santri is not in the loaded class")
)

// Filters are the screen filters. Program, academic year and semester are required to load; class is optional.
type Filters struct {
	Program      string
	Class        string
	AcademicYear string
	Semester     string
}

func (f Filters) Complete() bool {
	return !academic.IsNoFilter(f.Program) && !academic.IsNoFilter(f.AcademicYear) && !academic.IsNoFilter(f.Semester)
}

type RosterFinder interface {
	Query(ctx context.Context, filter santri.Filter) ([]santri.Santri, error)
}

// Row is one santri of the loaded class with its edit buffer.
type Row struct {
	Santri            santri.Santri
	Behavior          map[string]string
	Notes             string
	Saved             bool               // a report was stored for the period
	AttendanceSummary attendance.Summary // as of the last save
	UpdatedAt         time.Time
}

func (r *Row) clone() Row {
	c := *r
	c.Behavior = make(map[string]string, len(r.Behavior))
	for k, v := range r.Behavior {
		c.Behavior[k] = v
	}
	return c
}

// Manager drives the report entry screen: it loads a class for a period, buffers the edits of each row,
// and saves or prints them. A load started before the last filter change is discarded when it completes.
type Manager struct {
	roster  RosterFinder
	upserts *UpsertService
	printer *Printer

	mu      sync.Mutex
	state   State
	gen     uint64
	filters Filters
	period  Period
	rows    []*Row
	index   map[string]*Row
}

func NewManager(roster RosterFinder, upserts *UpsertService, printer *Printer) *Manager {
	return &Manager{roster: roster, upserts: upserts, printer: printer}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Filters() Filters {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filters
}

// Period is the period of the loaded rows.
func (m *Manager) Period() Period {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.period
}

// Rows returns a copy of the loaded rows.
func (m *Manager) Rows() []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]Row, len(m.rows))
	for i, r := range m.rows {
		rows[i] = r.clone()
	}
	return rows
}

// SetFilters drops the loaded rows and, when the filters are complete, loads the class for the new period.
// It returns ErrSuperseded when the filters changed again before the load completed.
func (m *Manager) SetFilters(ctx context.Context, f Filters) error {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.filters = f
	m.state = StateUnloaded
	m.rows, m.index = nil, nil
	if !f.Complete() {
		m.mu.Unlock()
		return nil
	}
	period := Period{
		Program:      academic.Program(f.Program),
		AcademicYear: f.AcademicYear,
		Semester:     academic.Semester(f.Semester),
	}
	if err := period.Validate(); err != nil {
		m.mu.Unlock()
		return err
	}
	m.state = StateLoading
	m.mu.Unlock()

	rows, err := m.load(ctx, period, academic.FilterValue(f.Class))

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return ErrSuperseded
	}
	if err != nil {
		m.state = StateUnloaded
		return err
	}
	m.period = period
	m.rows = rows
	m.index = make(map[string]*Row, len(rows))
	for _, r := range rows {
		m.index[r.Santri.ID] = r
	}
	m.state = StateLoaded
	return nil
}

func (m *Manager) load(ctx context.Context, period Period, class string) ([]*Row, error) {
	roster, err := m.roster.Query(ctx, santri.Filter{Program: period.Program, Class: class, Status: santri.StatusActive})
	if err != nil {
		return nil, errors.Wrap(err, "loading santri")
	}
	saved, err := m.upserts.Query(ctx, ListFilter{
		Program:      string(period.Program),
		Class:        class,
		AcademicYear: period.AcademicYear,
		Semester:     string(period.Semester),
	})
	if err != nil {
		return nil, errors.Wrap(err, "loading saved reports")
	}
	bySantri := make(map[string]StudentReport, len(saved))
	for _, r := range saved {
		bySantri[r.SantriID] = r
	}

	rows := make([]*Row, 0, len(roster))
	for _, s := range roster {
		row := &Row{Santri: s, Behavior: EmptyBehavior(period.Program).Values()}
		if r, ok := bySantri[s.ID]; ok {
			if r.Behavior != nil {
				row.Behavior = r.Behavior.Values()
			}
			row.Notes = r.Notes.String
			row.Saved = true
			row.AttendanceSummary = r.AttendanceSummary
			row.UpdatedAt = r.UpdatedAt
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (m *Manager) editableRow(santriID string) (*Row, error) {
	if m.rows == nil {
		return nil, ErrNotLoaded
	}
	row, ok := m.index[core.CleanString(santriID, true /* lower */)]
	if !ok {
		return nil, ErrUnknownRow
	}
	return row, nil
}

// Edit sets one behavior rating in the buffer of a row.
func (m *Manager) Edit(santriID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, err := m.editableRow(santriID)
	if err != nil {
		return err
	}
	key = core.CleanString(key, true /* lower */)
	if !IsBehaviorKey(m.period.Program, key) {
		return core.NewFieldValidationError("behavior", "unknown behavior rating "+key)
	}
	row.Behavior[key] = value
	return nil
}

// SetNotes sets the notes in the buffer of a row.
func (m *Manager) SetNotes(santriID, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, err := m.editableRow(santriID)
	if err != nil {
		return err
	}
	row.Notes = notes
	return nil
}

// begin moves a loaded manager into a transient state.
func (m *Manager) begin(s State) (uint64, error) {
	switch m.state {
	case StateLoaded:
		m.state = s
		return m.gen, nil
	case StateSaving, StatePrinting:
		return 0, ErrBusy
	}
	return 0, ErrNotLoaded
}

// end returns to Loaded unless the filters changed in the meantime.
func (m *Manager) end(gen uint64, saved []StudentReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}
	m.state = StateLoaded
	for _, r := range saved {
		if row, ok := m.index[r.SantriID]; ok {
			row.Saved = true
			row.AttendanceSummary = r.AttendanceSummary
			row.UpdatedAt = r.UpdatedAt
		}
	}
}

// SaveAll saves every loaded row in one batch.
func (m *Manager) SaveAll(ctx context.Context) error {
	m.mu.Lock()
	gen, err := m.begin(StateSaving)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	in := BulkInput{Period: m.period, Entries: make([]Entry, 0, len(m.rows))}
	for _, r := range m.rows {
		c := r.clone()
		in.Entries = append(in.Entries, Entry{SantriID: c.Santri.ID, Behavior: c.Behavior, Notes: c.Notes})
	}
	m.mu.Unlock()

	saved, err := m.upserts.SaveBulk(ctx, in)
	m.end(gen, saved)
	return err
}

// Print saves the buffer of one row, then renders its report card to w.
// When the save fails nothing is rendered. The row is marked saved as soon as the save succeeds.
func (m *Manager) Print(ctx context.Context, santriID string, w io.Writer) (Bundle, error) {
	m.mu.Lock()
	row, err := m.editableRow(santriID)
	if err != nil {
		m.mu.Unlock()
		return Bundle{}, err
	}
	gen, err := m.begin(StatePrinting)
	if err != nil {
		m.mu.Unlock()
		return Bundle{}, err
	}
	c := row.clone()
	in := SingleInput{Period: m.period, SantriID: c.Santri.ID, Behavior: c.Behavior, Notes: c.Notes}
	m.mu.Unlock()

	saved, b, err := m.printer.saveAndPrint(ctx, in, w)
	var rows []StudentReport
	if saved.SantriID != "" {
		rows = []StudentReport{saved}
	}
	m.end(gen, rows)
	return b, err
}
