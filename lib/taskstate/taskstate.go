// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package taskstate maps BMC job resources onto one canonical task
// model.
//
// Standard Redfish Task resources carry a TaskState from the DMTF
// enumeration and are mapped directly. Dell Lifecycle Controller jobs
// (#DellJob) have no TaskState; they report a JobState plus a message
// id, and "Completed" alone does not say whether the job succeeded.
// [Normalizer.Adjust] fills in a DMTF TaskState and TaskStatus for
// such jobs using observed iDRAC behavior:
//
//   - Scheduled, New, Queued: Pending
//   - Running, Downloading, Scheduling: Running
//   - Paused: Paused
//   - Completed: Completed/OK only when the message id is in the
//     success allow-list, otherwise Failed/Critical
//   - CompletedWithErrors, Failed: Failed/Critical
//   - anything else: Unknown, logged
//
// This is a compatibility shim derived from observation, not from a
// published contract. An unrecognized completion message is treated as
// failure: reporting a failed job as successful is worse than the
// reverse for an operations tool.
package taskstate

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/acmlab/bmcfleet/lib/redfish"
)

// State is a canonical task state.
type State string

const (
	Pending   State = "Pending"
	Running   State = "Running"
	Paused    State = "Paused"
	Completed State = "Completed"
	Cancelled State = "Cancelled"
	Failed    State = "Failed"
	Unknown   State = "Unknown"
)

// Terminal reports whether no further transitions are expected.
func (s State) Terminal() bool {
	return s == Completed || s == Cancelled || s == Failed
}

// Status is the health of a task: OK, Warning, or Critical. Empty when
// the BMC does not report one.
type Status string

const (
	StatusOK       Status = "OK"
	StatusWarning  Status = "Warning"
	StatusCritical Status = "Critical"
)

// ErrUnrecognized is returned for resources that are neither standard
// tasks nor a known vendor job shape.
var ErrUnrecognized = redfish.ErrUnrecognized

// DefaultSuccessMessageIDs are the Dell message keys that mean a
// completed job succeeded: RED001 "Job completed successfully",
// JCP007 "The job completed successfully", PR19 "Job completed
// successfully", SYS053 "Successfully imported and applied Server
// Configuration Profile", SUP018 "Firmware update job completed".
var DefaultSuccessMessageIDs = []string{"RED001", "JCP007", "PR19", "SYS053", "SUP018"}

// Task is a job resource in canonical form.
type Task struct {
	// ID is the job resource id.
	ID string
	// State is the canonical state.
	State State
	// Status is the reported or derived health.
	Status Status
	// PercentComplete is 0..100. Meaningless once terminal.
	PercentComplete int
	// VendorState is the state text the BMC reported (TaskState or
	// Dell JobState), e.g. "Starting" or "Scheduled".
	VendorState string
	Message     string
	MessageID   string
	// Raw is the resource as returned by the BMC.
	Raw redfish.Resource
}

// Succeeded reports whether the task reached Completed.
func (t *Task) Succeeded() bool {
	return t != nil && t.State == Completed
}

func (t *Task) String() string {
	if t == nil {
		return "<no task>"
	}
	if t.State.Terminal() {
		if t.Status != "" {
			return fmt.Sprintf("%s/%s", t.State, t.Status)
		}
		return string(t.State)
	}
	return fmt.Sprintf("%s (%d%%)", t.State, t.PercentComplete)
}

// Config configures a Normalizer.
type Config struct {
	// SuccessMessageIDs lists message keys (see redfish.MessageKey)
	// meaning a Dell job completed successfully. Nil means
	// DefaultSuccessMessageIDs.
	SuccessMessageIDs []string
	// Logger is used for structured logging. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Normalizer converts job resources to Tasks. Safe for concurrent use.
type Normalizer struct {
	success map[string]bool
	logger  *slog.Logger
}

// New creates a Normalizer.
func New(config Config) *Normalizer {
	ids := config.SuccessMessageIDs
	if ids == nil {
		ids = DefaultSuccessMessageIDs
	}
	success := make(map[string]bool, len(ids))
	for _, id := range ids {
		success[redfish.MessageKey(id)] = true
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{success: success, logger: logger}
}

var defaultNormalizer = New(Config{})

// Normalize converts resource with the default allow-list.
func Normalize(resource redfish.Resource) (Task, error) {
	return defaultNormalizer.Normalize(resource)
}

// Adjust fills in a DMTF TaskState for vendor jobs with the default
// allow-list.
func Adjust(resource redfish.Resource) (redfish.Resource, error) {
	return defaultNormalizer.Adjust(resource)
}

// Adjust returns resource in DMTF Task form. A resource that already
// carries a non-empty TaskState is returned as is: the same map, with
// no keys touched. Vendor jobs are returned as a modified copy; the
// input is never mutated.
func (n *Normalizer) Adjust(resource redfish.Resource) (redfish.Resource, error) {
	if resource.String("TaskState") != "" {
		return resource, nil
	}

	// iDRAC sometimes returns a DMTF Task with an empty TaskState (for
	// example for configuration import jobs) and puts the real state
	// under Oem.Dell.
	if _, hasTaskState := resource["TaskState"]; hasTaskState {
		dell := resource.Object("Oem", "Dell")
		if dell.String("JobState") == "" {
			return nil, fmt.Errorf("taskstate: %s has an empty TaskState and no Dell JobState: %w", describe(resource), ErrUnrecognized)
		}
		return n.adjustDellJob(resource, dell), nil
	}

	if strings.HasPrefix(resource.Type(), "#DellJob.") || resource.String("JobState") != "" {
		return n.adjustDellJob(resource, resource), nil
	}

	return nil, fmt.Errorf("taskstate: %s is neither a task nor a known job: %w", describe(resource), ErrUnrecognized)
}

// adjustDellJob maps job (the Dell job properties, which may be the
// resource itself or its Oem.Dell object) onto a copy of resource.
func (n *Normalizer) adjustDellJob(resource, job redfish.Resource) redfish.Resource {
	adjusted := make(redfish.Resource, len(resource)+2)
	for key, value := range resource {
		adjusted[key] = value
	}

	jobState := job.String("JobState")
	messageID := job.String("MessageId")

	var taskState, taskStatus string
	switch jobState {
	case "Scheduled", "New", "Queued":
		taskState = "Pending"
	case "Running", "Downloading", "Scheduling":
		taskState = "Running"
	case "Paused":
		taskState = "Suspended"
	case "Completed":
		if n.success[redfish.MessageKey(messageID)] {
			taskState, taskStatus = "Completed", string(StatusOK)
		} else {
			taskState, taskStatus = "Exception", string(StatusCritical)
		}
	case "CompletedWithErrors", "Failed":
		taskState, taskStatus = "Exception", string(StatusCritical)
	default:
		taskState = string(Unknown)
		n.logger.Warn("unrecognized Dell job state",
			"job", describe(resource),
			"job_state", jobState,
			"message_id", messageID,
			"message", job.String("Message"),
		)
	}

	adjusted["TaskState"] = taskState
	if taskStatus != "" {
		adjusted["TaskStatus"] = taskStatus
	}
	if _, ok := adjusted["PercentComplete"]; !ok {
		if percent, ok := job["PercentComplete"]; ok {
			adjusted["PercentComplete"] = percent
		}
	}
	if adjusted.String("MessageId") == "" && messageID != "" {
		adjusted["MessageId"] = messageID
	}
	if adjusted.String("Message") == "" && job.String("Message") != "" {
		adjusted["Message"] = job.String("Message")
	}
	adjusted[vendorStateKey] = jobState
	return adjusted
}

// vendorStateKey records the Dell JobState on adjusted copies.
const vendorStateKey = "@bmcfleet.VendorState"

// Normalize converts resource into a Task.
func (n *Normalizer) Normalize(resource redfish.Resource) (Task, error) {
	adjusted, err := n.Adjust(resource)
	if err != nil {
		return Task{}, err
	}

	taskState := adjusted.String("TaskState")
	status := Status(adjusted.String("TaskStatus"))
	task := Task{
		ID:          resource.String("Id"),
		State:       mapDMTF(taskState, status),
		Status:      status,
		VendorState: taskState,
		Raw:         resource,
	}
	if task.ID == "" {
		task.ID = resource.ID()
	}
	if vendor := adjusted.String(vendorStateKey); vendor != "" {
		task.VendorState = vendor
	}
	if percent, ok := adjusted.Int("PercentComplete"); ok {
		task.PercentComplete = clampPercent(percent)
	}
	task.Message, task.MessageID = messageOf(adjusted)
	if task.State == Completed && task.Status == "" {
		task.Status = StatusOK
	}
	return task, nil
}

// mapDMTF maps a DMTF TaskState onto the canonical set.
func mapDMTF(taskState string, status Status) State {
	switch taskState {
	case "New", "Pending", "Starting", "Service":
		return Pending
	case "Running", "Stopping", "Cancelling", "Verifying":
		return Running
	case "Suspended", "Interrupted":
		return Paused
	case "Completed":
		if status == StatusCritical {
			return Failed
		}
		return Completed
	case "Killed", "Cancelled":
		return Cancelled
	case "Exception":
		return Failed
	default:
		return Unknown
	}
}

// messageOf returns the job's message and id: top-level Message and
// MessageId (Dell jobs), or the first entry of Messages (DMTF tasks).
func messageOf(resource redfish.Resource) (string, string) {
	message, messageID := resource.String("Message"), resource.String("MessageId")
	if message != "" || messageID != "" {
		return message, messageID
	}
	if messages, ok := resource["Messages"].([]any); ok && len(messages) > 0 {
		if first, ok := messages[0].(map[string]any); ok {
			entry := redfish.Resource(first)
			return entry.String("Message"), entry.String("MessageId")
		}
	}
	return "", ""
}

func clampPercent(percent int) int {
	switch {
	case percent < 0:
		return 0
	case percent > 100:
		return 100
	default:
		return percent
	}
}

func describe(resource redfish.Resource) string {
	if id := resource.ID(); id != "" {
		return id
	}
	return "job resource"
}
