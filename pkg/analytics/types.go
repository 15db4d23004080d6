package analytics

import "encoding/json"

// StatusFinished is the execution status of a completed query job.
const StatusFinished = "FINISHED"

// jobRequest is the trigger body. Arrays are sent as SQL literals because the
// backend substitutes them into the query text.
type jobRequest struct {
	EpochStart  string `json:"epochStart"`
	EpochEnd    string `json:"epochEnd"`
	LPTokens    string `json:"lpTokens"`
	RewardRates string `json:"rewardRates"`
}

type triggerResponse struct {
	AsyncResponse *struct {
		ResultURL string `json:"resultUrl"`
	} `json:"asyncResponse"`
}

// pollResponse is the union of the two result shapes the backend returns.
// Exactly one of SQLQueryResult and Result is expected.
type pollResponse struct {
	SQLQueryResult *sqlQueryResult `json:"sqlQueryResult"`
	Result         *resultSet      `json:"result"`
}

type sqlQueryResult struct {
	ExecutionInfo *executionInfo `json:"executionInfo"`
}

type executionInfo struct {
	Status string     `json:"status"`
	Result *resultSet `json:"result"`
}

type resultSet struct {
	Columns []string          `json:"columns"`
	Rows    []json.RawMessage `json:"rows"`
}

// outcome validates the union and returns the job status with its rows.
// The status-less shape is only served for completed jobs.
func (r pollResponse) outcome() (string, *resultSet, error) {
	switch {
	case r.SQLQueryResult != nil:
		info := r.SQLQueryResult.ExecutionInfo
		if info == nil {
			return "", nil, &DecodeError{Reason: "sqlQueryResult without executionInfo"}
		}
		if info.Status != StatusFinished {
			return info.Status, nil, nil
		}
		if info.Result == nil || info.Result.Rows == nil {
			return "", nil, &DecodeError{Reason: "finished job without result rows"}
		}
		return info.Status, info.Result, nil
	case r.Result != nil:
		if r.Result.Rows == nil {
			return "", nil, &DecodeError{Reason: "result without rows"}
		}
		return StatusFinished, r.Result, nil
	default:
		return "", nil, &DecodeError{Reason: "unrecognised response shape"}
	}
}
