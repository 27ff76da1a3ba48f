// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/acmlab/bmcfleet/lib/atomicfile"
	"github.com/acmlab/bmcfleet/lib/codec"
	"github.com/acmlab/bmcfleet/lib/fleet"
)

// Report is the serializable record of one run.
type Report struct {
	RunID string `json:"run_id"`
	// Operation names what the run did, e.g. "config-import".
	Operation string    `json:"operation,omitempty"`
	Mode      string    `json:"mode"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
	// Counts maps each outcome that occurred to its machine count.
	Counts map[string]int `json:"counts"`
	// Active is the active-set size after each round.
	Active   []int     `json:"active,omitempty"`
	Machines []Machine `json:"machines"`
}

// Machine is one machine's line in a Report.
type Machine struct {
	Name         string    `json:"name"`
	Outcome      string    `json:"outcome"`
	Phase        string    `json:"phase"`
	Reason       string    `json:"reason,omitempty"`
	Error        string    `json:"error,omitempty"`
	CleanupError string    `json:"cleanup_error,omitempty"`
	JobID        string    `json:"job_id,omitempty"`
	TaskState    string    `json:"task_state,omitempty"`
	TaskStatus   string    `json:"task_status,omitempty"`
	Percent      int       `json:"percent,omitempty"`
	MessageID    string    `json:"message_id,omitempty"`
	Message      string    `json:"message,omitempty"`
	Started      time.Time `json:"started"`
	Finished     time.Time `json:"finished"`
}

// OK reports whether the machine succeeded or was skipped.
func (m Machine) OK() bool {
	return m.Outcome == string(fleet.Succeeded) || m.Outcome == string(fleet.Skipped)
}

// FromSummary flattens summary. operation may be empty.
func FromSummary(operation string, summary *fleet.Summary) *Report {
	report := &Report{
		RunID:     summary.RunID,
		Operation: operation,
		Mode:      string(summary.Mode),
		Started:   summary.Started,
		Finished:  summary.Finished,
		Counts:    make(map[string]int),
		Active:    append([]int(nil), summary.Active...),
		Machines:  make([]Machine, 0, len(summary.Results)),
	}
	for _, result := range summary.Results {
		machine := Machine{
			Name:     result.Machine,
			Outcome:  string(result.Outcome),
			Phase:    string(result.Phase),
			Reason:   result.Reason(),
			JobID:    result.JobID,
			Started:  result.Started,
			Finished: result.Finished,
		}
		if result.Err != nil {
			machine.Error = result.Err.Error()
		}
		if result.CleanupErr != nil {
			machine.CleanupError = result.CleanupErr.Error()
		}
		if task := result.Task; task != nil {
			machine.TaskState = string(task.State)
			machine.TaskStatus = string(task.Status)
			machine.Percent = task.PercentComplete
			machine.MessageID = task.MessageID
			machine.Message = task.Message
		}
		report.Counts[machine.Outcome]++
		report.Machines = append(report.Machines, machine)
	}
	return report
}

// OK reports whether every machine succeeded or was skipped.
func (r *Report) OK() bool {
	for _, machine := range r.Machines {
		if !machine.OK() {
			return false
		}
	}
	return true
}

// Elapsed is the run's wall-clock duration.
func (r *Report) Elapsed() time.Duration {
	if r.Finished.Before(r.Started) {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// Format selects a Write encoding.
type Format string

const (
	Text Format = "text"
	JSON Format = "json"
	CBOR Format = "cbor"
)

// ParseFormat validates name. Empty means Text.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(name)) {
	case "", Text:
		return Text, nil
	case JSON:
		return JSON, nil
	case CBOR:
		return CBOR, nil
	}
	return "", fmt.Errorf("report: unknown format %q (want text, json, or cbor)", name)
}

// FormatForPath picks the format from a file extension: .json, .cbor,
// and anything else as text.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON
	case ".cbor":
		return CBOR
	}
	return Text
}

// Write encodes r to w in format.
func (r *Report) Write(w io.Writer, format Format) error {
	switch format {
	case Text, "":
		return r.WriteText(w)
	case JSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(r); err != nil {
			return fmt.Errorf("report: encoding JSON: %w", err)
		}
		return nil
	case CBOR:
		if err := codec.NewEncoder(w).Encode(r); err != nil {
			return fmt.Errorf("report: encoding CBOR: %w", err)
		}
		return nil
	}
	return fmt.Errorf("report: unknown format %q", format)
}

// WriteFile atomically writes r to path in the format its extension
// names.
func (r *Report) WriteFile(path string) error {
	format := FormatForPath(path)
	return atomicfile.WriteFunc(path, 0o644, func(w io.Writer) error {
		return r.Write(w, format)
	})
}

// Read decodes a report written in JSON or CBOR.
func Read(data []byte, format Format) (*Report, error) {
	var report Report
	switch format {
	case JSON:
		if err := json.Unmarshal(data, &report); err != nil {
			return nil, fmt.Errorf("report: decoding JSON: %w", err)
		}
	case CBOR:
		if err := codec.Unmarshal(data, &report); err != nil {
			return nil, fmt.Errorf("report: decoding CBOR: %w", err)
		}
	default:
		return nil, fmt.Errorf("report: %s reports cannot be read back", format)
	}
	return &report, nil
}
