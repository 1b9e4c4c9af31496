package protocol

import "fmt"

// Result is a typed status/error code exchanged between the engine and its
// callers, mirroring the original's ERR_* enumeration. A Result of OK is
// not an error in the errors.Is sense (Result.Error() still renders a
// string, but callers compare against the sentinels below rather than nil).
type Result int

// Result codes, in the order enumerated by spec.md §6.
const (
	OK Result = iota
	ErrDeviceNotRegistered
	ErrSendFuncNotRegistered
	ErrReceiveFuncNotRegistered
	ErrSendDataLenAboveLimit
	ErrSendIO
	ErrSendBadArguments
	ErrSendNoAckRcvd
	TaskCreatedOK
	ErrUnableToCreateTask
	ErrUnknownTaskID
	ErrUndefined
	TaskUnderway
	ErrTimeout
)

var resultStrings = map[Result]string{
	OK:                          "ok",
	ErrDeviceNotRegistered:      "device not registered",
	ErrSendFuncNotRegistered:    "send function not registered",
	ErrReceiveFuncNotRegistered: "receive function not registered",
	ErrSendDataLenAboveLimit:    "send data length above limit",
	ErrSendIO:                   "send I/O error",
	ErrSendBadArguments:         "bad arguments",
	ErrSendNoAckRcvd:            "no ack received",
	TaskCreatedOK:               "task created",
	ErrUnableToCreateTask:       "unable to create task: pool exhausted",
	ErrUnknownTaskID:            "unknown task id",
	ErrUndefined:                "undefined",
	TaskUnderway:                "task underway",
	ErrTimeout:                  "timeout",
}

// Error implements the error interface so a Result can be returned and
// compared wherever Go idiom expects an error, while still round-tripping
// through the original enumeration's exact vocabulary via GetErrString.
func (r Result) Error() string {
	if s, ok := resultStrings[r]; ok {
		return s
	}
	return fmt.Sprintf("protocol: unknown result code %d", int(r))
}

// GetErrString returns the human-readable string for a Result, restoring
// the original's get_err_string diagnostic helper.
func GetErrString(r Result) string { return r.Error() }

// IsOK reports whether r represents a successful outcome (OK or
// TaskCreatedOK — the two non-error terminal codes in the enumeration).
func (r Result) IsOK() bool { return r == OK || r == TaskCreatedOK }
