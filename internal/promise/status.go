package promise

import "fmt"

type StatusKind int

const (
	StatusIdle StatusKind = iota
	StatusLoading
	StatusSuccess
	StatusError
	StatusFailed
)

func (k StatusKind) String() string {
	switch k {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

func (k StatusKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *StatusKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle", "":
		*k = StatusIdle
	case "loading":
		*k = StatusLoading
	case "success":
		*k = StatusSuccess
	case "error":
		*k = StatusError
	case "failed":
		*k = StatusFailed
	default:
		return fmt.Errorf("unknown status kind %q", b)
	}
	return nil
}

// RequestStatus is what the panel displays about its last request.
type RequestStatus struct {
	Kind    StatusKind `json:"kind"`
	Code    int        `json:"code,omitempty"`
	Message string     `json:"message,omitempty"`
}

func (s RequestStatus) String() string {
	switch s.Kind {
	case StatusLoading:
		return "Fetching..."
	case StatusSuccess:
		return fmt.Sprintf("Success: %d", s.Code)
	case StatusError:
		return fmt.Sprintf("Error: %d", s.Code)
	case StatusFailed:
		return "Failed: " + s.Message
	default:
		return ""
	}
}

func statusForCode(code int) RequestStatus {
	if code >= 200 && code < 300 {
		return RequestStatus{Kind: StatusSuccess, Code: code}
	}
	return RequestStatus{Kind: StatusError, Code: code}
}
