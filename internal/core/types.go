package core

import (
	"context"
	"strconv"
	"time"
)

// JobID identifies a print job for as long as the server reports it.
type JobID int64

// RowID is the element id a rendered row carries.
func (id JobID) RowID() string {
	return "job-" + strconv.FormatInt(int64(id), 10)
}

// Job is a print job as published in a snapshot.
type Job struct {
	ID           JobID  `json:"id"`
	PhysicalDest string `json:"physicaldest"`
	Finisher     string `json:"finisher"`
	Owner        string `json:"owner"`
	Title        string `json:"title"`
	State        string `json:"state"`
	Source       string `json:"source,omitempty"`
}

// PrinterStatus is one entry of the printer status list.
type PrinterStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Printer is a queue member as kept by the store.
type Printer struct {
	Name      string
	State     PrinterState
	UpdatedAt time.Time
}

// QueueStore is what a PrintQueue reads from.
type QueueStore interface {
	ListJobs(ctx context.Context) ([]*SpoolJob, error)
	ListPrinters(ctx context.Context, names []string) ([]*Printer, error)
	ClassMembers(ctx context.Context, class string) ([]string, error)
}
