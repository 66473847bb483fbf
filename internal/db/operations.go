package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/orrn/queueview/internal/core"
)

var (
	ErrJobNotFound     = errors.New("job not found")
	ErrPrinterNotFound = errors.New("printer not found")
)

type JobOperations struct {
	conn *sql.DB
}

func (o *JobOperations) UpsertJob(ctx context.Context, j *core.SpoolJob) error {
	_, err := o.conn.ExecContext(ctx, UpsertJob,
		j.ID, j.Dest, j.Size, int(j.State), j.Title, j.User, j.ActualPrinterURI)
	if err != nil {
		return fmt.Errorf("failed to upsert job %d: %w", j.ID, err)
	}
	return nil
}

func (o *JobOperations) GetJobByID(ctx context.Context, id int64) (*core.SpoolJob, error) {
	j, err := scanJob(o.conn.QueryRowContext(ctx, GetJobByID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return j, nil
}

func (o *JobOperations) ListJobs(ctx context.Context) ([]*core.SpoolJob, error) {
	rows, err := o.conn.QueryContext(ctx, ListJobs)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*core.SpoolJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (o *JobOperations) UpdateJobState(ctx context.Context, id int64, state core.JobState) error {
	result, err := o.conn.ExecContext(ctx, UpdateJobState, int(state), id)
	if err != nil {
		return fmt.Errorf("failed to update job state: %w", err)
	}
	return expectAffected(result, ErrJobNotFound)
}

func (o *JobOperations) DeleteJob(ctx context.Context, id int64) error {
	result, err := o.conn.ExecContext(ctx, DeleteJob, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return expectAffected(result, ErrJobNotFound)
}

// PruneFinished drops finished jobs last touched more than days ago.
func (o *JobOperations) PruneFinished(ctx context.Context, days int) (int64, error) {
	result, err := o.conn.ExecContext(ctx, DeleteFinishedJobsBefore, fmt.Sprintf("-%d days", days))
	if err != nil {
		return 0, fmt.Errorf("failed to prune jobs: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*core.SpoolJob, error) {
	j := &core.SpoolJob{}
	var state int
	if err := row.Scan(&j.ID, &j.Dest, &j.Size, &state, &j.Title, &j.User, &j.ActualPrinterURI); err != nil {
		return nil, err
	}
	j.State = core.JobState(state)
	return j, nil
}

type PrinterOperations struct {
	conn *sql.DB
}

func (o *PrinterOperations) UpsertPrinter(ctx context.Context, name string, state core.PrinterState) error {
	_, err := o.conn.ExecContext(ctx, UpsertPrinter, name, int(state))
	if err != nil {
		return fmt.Errorf("failed to upsert printer %s: %w", name, err)
	}
	return nil
}

func (o *PrinterOperations) GetPrinterByName(ctx context.Context, name string) (*core.Printer, error) {
	p, err := scanPrinter(o.conn.QueryRowContext(ctx, GetPrinterByName, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPrinterNotFound
		}
		return nil, fmt.Errorf("failed to get printer: %w", err)
	}
	return p, nil
}

func (o *PrinterOperations) ListPrinters(ctx context.Context) ([]*core.Printer, error) {
	rows, err := o.conn.QueryContext(ctx, ListPrinters)
	if err != nil {
		return nil, fmt.Errorf("failed to list printers: %w", err)
	}
	defer rows.Close()
	return scanPrinters(rows)
}

// ListPrintersByName returns the known printers among names, sorted by name.
func (o *PrinterOperations) ListPrintersByName(ctx context.Context, names []string) ([]*core.Printer, error) {
	if len(names) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")
	args := make([]any, 0, len(names))
	for _, n := range names {
		args = append(args, n)
	}

	query := "SELECT name, state, updated_at FROM printers WHERE name IN (" + placeholders + ") ORDER BY name ASC"
	rows, err := o.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list printers: %w", err)
	}
	defer rows.Close()
	return scanPrinters(rows)
}

func (o *PrinterOperations) DeletePrinter(ctx context.Context, name string) error {
	result, err := o.conn.ExecContext(ctx, DeletePrinter, name)
	if err != nil {
		return fmt.Errorf("failed to delete printer: %w", err)
	}
	return expectAffected(result, ErrPrinterNotFound)
}

func scanPrinter(row rowScanner) (*core.Printer, error) {
	p := &core.Printer{}
	var state int
	if err := row.Scan(&p.Name, &state, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.State = core.PrinterState(state)
	return p, nil
}

func scanPrinters(rows *sql.Rows) ([]*core.Printer, error) {
	var printers []*core.Printer
	for rows.Next() {
		p, err := scanPrinter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan printer: %w", err)
		}
		printers = append(printers, p)
	}
	return printers, rows.Err()
}

type ClassOperations struct {
	conn *sql.DB
}

func (o *ClassOperations) Members(ctx context.Context, class string) ([]string, error) {
	rows, err := o.conn.QueryContext(ctx, ListClassMembers, class)
	if err != nil {
		return nil, fmt.Errorf("failed to list class members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("failed to scan class member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// QueueNames lists every printer and class name.
func (o *ClassOperations) QueueNames(ctx context.Context) ([]string, error) {
	rows, err := o.conn.QueryContext(ctx, ListQueueNames)
	if err != nil {
		return nil, fmt.Errorf("failed to list queues: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan queue name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// SetMembers replaces the member list of class. An empty list removes the
// class.
func (o *ClassOperations) SetMembers(ctx context.Context, class string, members []string) error {
	tx, err := o.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, DeleteClassMembers, class); err != nil {
		return fmt.Errorf("failed to clear class %s: %w", class, err)
	}

	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		if _, err := tx.ExecContext(ctx, InsertClassMember, class, m); err != nil {
			return fmt.Errorf("failed to add %s to class %s: %w", m, class, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit class %s: %w", class, err)
	}
	return nil
}

func expectAffected(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
