// ============================================================================
// Wire Messages - Hand-Marshaled Protobuf-Shaped Requests/Responses
// ============================================================================
//
// Package: internal/rpcgateway
// File: messages.go
// Purpose: The four messages taskqueue.proto describes, marshaled with
//          google.golang.org/protobuf/encoding/protowire instead of
//          protoc-gen-go output. See codec.go for how these plug into
//          gRPC, and DESIGN.md for why this module hand-writes the wire
//          format rather than shipping a generated package.
//
// ============================================================================

package rpcgateway

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// wireMessage is what the custom gRPC codec requires of a request or
// response type.
type wireMessage interface {
	Marshal() ([]byte, error)
	Unmarshal([]byte) error
}

// SubmitTaskRequest submits one task to the gateway's WorkerSet.
// RoutingKey empty means round-robin; non-empty means hash affinity.
type SubmitTaskRequest struct {
	TaskType   string
	RoutingKey string
	Payload    []byte
}

func (m *SubmitTaskRequest) Marshal() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, m.TaskType)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, m.RoutingKey)
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendBytes(b, m.Payload)
	return b, nil
}

func (m *SubmitTaskRequest) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.TaskType = v
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.RoutingKey = v
			b = b[n:]
		case 3:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.Payload = append([]byte(nil), v...)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}

// SubmitTaskResponse reports whether Worker.Execute accepted the task.
type SubmitTaskResponse struct {
	Accepted bool
	TaskID   uint64
	Message  string
}

func (m *SubmitTaskResponse) Marshal() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeBool(m.Accepted))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, m.TaskID)
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendString(b, m.Message)
	return b, nil
}

func (m *SubmitTaskResponse) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.Accepted = protowire.DecodeBool(v)
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.TaskID = v
			b = b[n:]
		case 3:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.Message = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}

// GetStatusRequest carries no fields; it exists so the RPC has a typed
// input.
type GetStatusRequest struct{}

func (m *GetStatusRequest) Marshal() ([]byte, error)   { return nil, nil }
func (m *GetStatusRequest) Unmarshal(b []byte) error { return nil }

// WorkerStatus is one WorkerSet member's diagnostic snapshot.
type WorkerStatus struct {
	Index   int32
	Pending int64
	Total   uint64
	Traces  []string
}

// GetStatusResponse is the aggregate + per-worker diagnostic payload
// behind the `taskqueued status` CLI command.
type GetStatusResponse struct {
	WorkerCount   int32
	TotalAccepted uint64
	Pending       int64
	Workers       []WorkerStatus
}

func (m *GetStatusResponse) Marshal() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.WorkerCount))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, m.TotalAccepted)
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Pending))
	for _, w := range m.Workers {
		wb, _ := marshalWorkerStatus(w)
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, wb)
	}
	return b, nil
}

func marshalWorkerStatus(w WorkerStatus) ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(w.Index))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(w.Pending))
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, w.Total)
	for _, trace := range w.Traces {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendString(b, trace)
	}
	return b, nil
}

func unmarshalWorkerStatus(b []byte) (WorkerStatus, error) {
	var w WorkerStatus
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return w, protowire.ParseError(n)
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return w, protowire.ParseError(n)
			}
			w.Index = int32(v)
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return w, protowire.ParseError(n)
			}
			w.Pending = int64(v)
			b = b[n:]
		case 3:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return w, protowire.ParseError(n)
			}
			w.Total = v
			b = b[n:]
		case 4:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return w, protowire.ParseError(n)
			}
			w.Traces = append(w.Traces, v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return w, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return w, nil
}

func (m *GetStatusResponse) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.WorkerCount = int32(v)
			b = b[n:]
		case 2:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.TotalAccepted = v
			b = b[n:]
		case 3:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.Pending = int64(v)
			b = b[n:]
		case 4:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			w, err := unmarshalWorkerStatus(v)
			if err != nil {
				return fmt.Errorf("rpcgateway: worker status: %w", err)
			}
			m.Workers = append(m.Workers, w)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}
