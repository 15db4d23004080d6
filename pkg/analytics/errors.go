package analytics

import "fmt"

// TriggerError means the backend did not accept a job.
// StatusCode is zero when no response was received.
type TriggerError struct {
	Epoch      int
	StatusCode int
	Err        error
}

func (e *TriggerError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("trigger job for epoch %d: http %d: %v", e.Epoch, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("trigger job for epoch %d: %v", e.Epoch, e.Err)
}

func (e *TriggerError) Unwrap() error { return e.Err }

// TimeoutError means polling used up its attempt budget without a finished result.
type TimeoutError struct {
	ResultURL string
	Attempts  int
	LastErr   error
}

func (e *TimeoutError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("job %s not finished after %d attempts: %v", e.ResultURL, e.Attempts, e.LastErr)
	}
	return fmt.Sprintf("job %s not finished after %d attempts", e.ResultURL, e.Attempts)
}

func (e *TimeoutError) Unwrap() error { return e.LastErr }

// DecodeError means a response body did not match any known result shape.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode job result: %s: %v", e.Reason, e.Err)
	}
	return "decode job result: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// PendingError is the per-attempt outcome of a job that has not finished yet.
type PendingError struct {
	Status string
}

func (e *PendingError) Error() string {
	return fmt.Sprintf("job status %q", e.Status)
}
