// Package ingest reads the raw CSV extracts at the pipeline's input
// boundary: the events log and the experiment assignment table.
//
// Readers are deliberately forgiving about content (blank optional columns,
// unparsable purchase fields) because the Event Normalizer owns per-record
// validation; they are strict about structure (header present, consistent
// column count) because a malformed extract is an operational error, not a
// data-quality one.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/saumya-sinha01/ecommerce-product-analytics-poc/pkg/abpipeline"
)

// Assignment extract columns.
const (
	colExperiment   = "experiment_name"
	colUserID       = "user_id"
	colVariant      = "variant"
	colAssignmentTS = "assignment_ts"
)

// Timestamp layouts accepted from the assignment extract.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ReadEvents reads a raw events CSV into RawEvent records keyed by header
// column name. Blank cells are omitted from the record so the normalizer
// sees them as absent fields.
func ReadEvents(r io.Reader) ([]abpipeline.RawEvent, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("events extract: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("events extract: read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var raws []abpipeline.RawEvent
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("events extract: line %d: %w", line, err)
		}
		raw := make(abpipeline.RawEvent, len(header))
		for i, col := range header {
			if v := strings.TrimSpace(record[i]); v != "" {
				raw[col] = v
			}
		}
		raws = append(raws, raw)
	}
	return raws, nil
}

// ReadEventsFile reads a raw events CSV from disk.
func ReadEventsFile(path string) ([]abpipeline.RawEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open events extract: %w", err)
	}
	defer f.Close()
	return ReadEvents(f)
}

// ReadAssignments reads the experiment assignment CSV. Unlike events,
// assignment rows are structural input: any unparsable row fails the read
// because a missing assignment silently shrinks an experiment arm.
func ReadAssignments(r io.Reader) ([]abpipeline.Assignment, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("assignment extract: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("assignment extract: read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.TrimSpace(col)] = i
	}
	for _, col := range []string{colExperiment, colUserID, colVariant, colAssignmentTS} {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("assignment extract: missing column %q", col)
		}
	}

	var assignments []abpipeline.Assignment
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("assignment extract: line %d: %w", line, err)
		}

		userID, err := strconv.ParseInt(strings.TrimSpace(record[index[colUserID]]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("assignment extract: line %d: parse user_id: %w", line, err)
		}
		assignedAt, err := parseTimestamp(record[index[colAssignmentTS]])
		if err != nil {
			return nil, fmt.Errorf("assignment extract: line %d: parse assignment_ts: %w", line, err)
		}

		assignments = append(assignments, abpipeline.Assignment{
			Experiment: strings.TrimSpace(record[index[colExperiment]]),
			UserID:     userID,
			Variant:    abpipeline.Variant(strings.TrimSpace(record[index[colVariant]])),
			AssignedAt: assignedAt,
		})
	}
	return assignments, nil
}

// ReadAssignmentsFile reads the assignment CSV from disk.
func ReadAssignmentsFile(path string) ([]abpipeline.Assignment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open assignment extract: %w", err)
	}
	defer f.Close()
	return ReadAssignments(f)
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
