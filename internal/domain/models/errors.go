package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTransientRemote     = errors.New("transient remote error")
	ErrPermanentRemote     = errors.New("permanent remote error")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrAggregationFailed   = errors.New("aggregation failed")
	ErrPartialAggregation  = errors.New("partial aggregation")
	ErrBatchFailed         = errors.New("batch failed")
	ErrCancelled           = errors.New("cancelled")
	ErrInvalidTransition   = errors.New("invalid batch transition")
)

// PartialAggregationError lists the fields left out of an otherwise valid view.
type PartialAggregationError struct {
	Omitted []string
}

func (e *PartialAggregationError) Error() string {
	return fmt.Sprintf("partial aggregation: omitted %s", strings.Join(e.Omitted, ","))
}

func (e *PartialAggregationError) Is(target error) bool {
	return target == ErrPartialAggregation
}

// BatchFailedError carries the cause of a failed publish batch.
type BatchFailedError struct {
	BatchID string
	Group   string
	Cause   error
}

func (e *BatchFailedError) Error() string {
	return fmt.Sprintf("batch %s (%s) failed: %v", e.BatchID, e.Group, e.Cause)
}

func (e *BatchFailedError) Is(target error) bool {
	return target == ErrBatchFailed
}

func (e *BatchFailedError) Unwrap() error { return e.Cause }

// RemoteError is a failure returned by the remote surface.
type RemoteError struct {
	Op        string
	Status    int
	Message   string
	Transient bool
}

func (e *RemoteError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("remote %s: status %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("remote %s: %s", e.Op, e.Message)
}

func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrTransientRemote:
		return e.Transient
	case ErrPermanentRemote:
		return !e.Transient
	}
	return false
}

// ClassifyStatus builds a RemoteError from an HTTP status: 429 and 5xx are transient.
func ClassifyStatus(op string, status int, msg string) *RemoteError {
	return &RemoteError{
		Op:        op,
		Status:    status,
		Message:   msg,
		Transient: status == 429 || status >= 500,
	}
}
