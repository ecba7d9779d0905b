package hub

import (
	"encoding/json"
	"time"

	"github.com/blueplan/linviz-go/internal/linviz/geometry"
	"github.com/blueplan/linviz-go/internal/linviz/linalg"
	"github.com/blueplan/linviz-go/internal/linviz/probe"
	"github.com/blueplan/linviz-go/internal/linviz/router"
	"github.com/blueplan/linviz-go/internal/linviz/session"
)

// Client event types
const (
	EventProbe       = "probe"
	EventMatrix      = "matrix"
	EventAgent       = "agent"
	EventGroundTruth = "ground_truth"
	EventFormalize   = "formalize"
	EventPing        = "ping"
)

// Server event types
const (
	EventSession     = "session"
	EventProbeResult = "probe_result"
	EventInstruction = "instruction"
	EventCard        = "card"
	EventNotice      = "notice"
	EventLeanCode    = "lean_code"
	EventPong        = "pong"
	EventError       = "error"
)

// Inbound is a message received from a client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Envelope is the standard server message.
type Envelope struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp"`
}

func envelope(typ, sessionID string, data any) Envelope {
	return Envelope{
		Type:      typ,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// ErrorData is the payload of an error event.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ProbeData is the payload of a probe_result event.
type ProbeData struct {
	Revision uint64           `json:"revision"`
	Result   probe.Result     `json:"result"`
	Geometry []geometry.Shape `json:"geometry"`
}

// GroundTruthData is the payload of a ground_truth event.
type GroundTruthData struct {
	Revision     uint64        `json:"revision"`
	Matrix       linalg.Mat2   `json:"matrix"`
	Eigenvectors []linalg.Vec2 `json:"eigenvectors"`
}

// InstructionData is the payload of an instruction event.
type InstructionData struct {
	Operation   string                          `json:"operation"`
	Explanation string                          `json:"explanation,omitempty"`
	Instruction router.VisualizationInstruction `json:"instruction"`
}

func probeData(st session.State, res probe.Result) ProbeData {
	return ProbeData{
		Revision: st.Revision,
		Result:   res,
		Geometry: geometry.ProbeView(res.X, res.Ax, st.GroundTruth),
	}
}

// outcomeEvents 把一个路由结果展开为按顺序发送的事件
func outcomeEvents(sessionID string, out router.Outcome) []Envelope {
	var events []Envelope
	if inst, ok := out.Visualization.Get(); ok {
		events = append(events, envelope(EventInstruction, sessionID, InstructionData{
			Operation:   out.Operation,
			Explanation: out.Explanation,
			Instruction: inst,
		}))
	}
	if card, ok := out.Card.Get(); ok {
		events = append(events, envelope(EventCard, sessionID, card))
	}
	for _, n := range out.Notices {
		events = append(events, envelope(EventNotice, sessionID, n))
	}
	return events
}
