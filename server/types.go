package server

import "fmt"

type TransferState int

const (
	StateAwaitingHeader TransferState = iota
	StateHeaderParsed
	StateReceivingPayload
	StateComplete
	StateFailed

	StateConnecting
	StateTransferring
	StateCompleted
	StateError
)

var stateNames = map[TransferState]string{
	StateAwaitingHeader:   "awaiting-header",
	StateHeaderParsed:     "header-parsed",
	StateReceivingPayload: "receiving-payload",
	StateComplete:         "complete",
	StateFailed:           "failed",
	StateConnecting:       "connecting",
	StateTransferring:     "transferring",
	StateCompleted:        "completed",
	StateError:            "error",
}

func (s TransferState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("TransferState(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s TransferState) Terminal() bool {
	switch s {
	case StateComplete, StateFailed, StateCompleted, StateError:
		return true
	}
	return false
}

type SendProgress struct {
	State      TransferState
	Speed      float64
	BytesSent  int64
	TotalBytes int64
	Filename   string
	Error      error
}
