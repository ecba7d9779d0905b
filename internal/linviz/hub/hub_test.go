package hub

import (
	"context"
	"encoding/json"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/blueplan/linviz-go/internal/linviz/formal"
	logx "github.com/blueplan/linviz-go/internal/linviz/log"
	"github.com/blueplan/linviz-go/internal/linviz/probe"
	"github.com/blueplan/linviz-go/internal/linviz/router"
	"github.com/blueplan/linviz-go/internal/linviz/services"
	"github.com/blueplan/linviz-go/internal/linviz/session"
	"github.com/gorilla/websocket"
)

type received struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	Data      json.RawMessage `json:"data"`
}

type probePayload struct {
	Revision uint64 `json:"revision"`
	Result   struct {
		IsEigen bool     `json:"is_eigen"`
		Cross   float64  `json:"cross"`
		Ratio   *float64 `json:"ratio"`
	} `json:"result"`
	Geometry []json.RawMessage `json:"geometry"`
}

func newTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	logger := logx.Discard()
	mgr := session.NewManager(session.NewMemoryStore(time.Hour), probe.DefaultThresholds(), logger)
	h := New(mgr, logger)

	req := services.NewRequester(mgr, services.LocalEigen{}, formal.Template{}, time.Second, logger, h.OnServiceEvent)
	h.UseRequester(req)
	seq := router.NewSequencer(router.New(logger), 16, h.DeliverOutcome)
	h.UseSubmitter(seq)

	ctx, cancel := context.WithCancel(context.Background())
	go seq.Run(ctx)
	go h.Run()

	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		srv.Close()
		h.Stop()
		cancel()
		req.Wait()
	})
	return h, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "data": data}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil skips events of other types; async service events interleave with replies.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) received {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg received
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		if msg.Type == typ {
			return msg
		}
	}
}

// settle consumes the initial ground truth and the probe view it refreshes.
func settle(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	readUntil(t, conn, EventGroundTruth)
	readUntil(t, conn, EventProbeResult)
}

func TestConnectCreatesSession(t *testing.T) {
	h, srv := newTestServer(t)
	conn := dial(t, srv)

	msg := readUntil(t, conn, EventSession)
	var st session.State
	if err := json.Unmarshal(msg.Data, &st); err != nil {
		t.Fatal(err)
	}
	if st.ID == "" || st.ID != msg.SessionID {
		t.Errorf("session id = %q, envelope %q", st.ID, msg.SessionID)
	}
	if st.Matrix != session.DefaultMatrix || st.Revision != 1 {
		t.Errorf("state = %+v", st)
	}

	var p probePayload
	json.Unmarshal(readUntil(t, conn, EventProbeResult).Data, &p)
	if p.Result.IsEigen || p.Result.Cross != 1 {
		t.Errorf("default probe = %+v", p.Result)
	}

	var gt GroundTruthData
	json.Unmarshal(readUntil(t, conn, EventGroundTruth).Data, &gt)
	if len(gt.Eigenvectors) != 2 || gt.Revision != 1 {
		t.Errorf("ground truth = %+v", gt)
	}

	if n := h.ClientCount(); n != 1 {
		t.Errorf("ClientCount = %d", n)
	}
}

func TestProbeEvent(t *testing.T) {
	_, srv := newTestServer(t)
	conn := dial(t, srv)
	settle(t, conn)

	send(t, conn, EventProbe, map[string]any{"vector": []float64{1, 0}})
	var p probePayload
	json.Unmarshal(readUntil(t, conn, EventProbeResult).Data, &p)
	if !p.Result.IsEigen || p.Result.Ratio == nil || math.Abs(*p.Result.Ratio-2) > 1e-9 {
		t.Errorf("probe (1,0) = %+v", p.Result)
	}
	if len(p.Geometry) == 0 {
		t.Error("expected probe geometry")
	}

	send(t, conn, EventProbe, map[string]any{"vector": map[string]any{"x": 0, "y": 0}})
	p = probePayload{}
	json.Unmarshal(readUntil(t, conn, EventProbeResult).Data, &p)
	if p.Result.IsEigen || p.Result.Ratio != nil {
		t.Errorf("probe zero = %+v", p.Result)
	}

	send(t, conn, EventProbe, map[string]any{"vector": "nope"})
	var e ErrorData
	json.Unmarshal(readUntil(t, conn, EventError).Data, &e)
	if e.Code != "invalid_vector" {
		t.Errorf("error code = %q", e.Code)
	}
}

func TestOutOfRangeInputsAreRejected(t *testing.T) {
	_, srv := newTestServer(t)
	conn := dial(t, srv)
	settle(t, conn)

	tests := []struct {
		event    string
		data     map[string]any
		wantCode string
	}{
		{EventMatrix, map[string]any{"matrix": [][]float64{{1e308, 0}, {0, 1}}}, "invalid_matrix"},
		{EventProbe, map[string]any{"vector": []float64{1e200, 0}}, "invalid_vector"},
	}
	for _, tt := range tests {
		send(t, conn, tt.event, tt.data)
		var e ErrorData
		json.Unmarshal(readUntil(t, conn, EventError).Data, &e)
		if e.Code != tt.wantCode {
			t.Errorf("%s: error code = %q, want %q", tt.event, e.Code, tt.wantCode)
		}
	}

	// the session still answers with finite values
	send(t, conn, EventProbe, map[string]any{"vector": []float64{1, 0}})
	var p probePayload
	if err := json.Unmarshal(readUntil(t, conn, EventProbeResult).Data, &p); err != nil {
		t.Fatal(err)
	}
	if p.Revision != 1 {
		t.Errorf("revision = %d, want 1 (rejected matrix must not apply)", p.Revision)
	}
}

func TestMatrixEventRefreshesGroundTruth(t *testing.T) {
	_, srv := newTestServer(t)
	conn := dial(t, srv)
	settle(t, conn)

	send(t, conn, EventMatrix, map[string]any{"matrix": [][]float64{{2, 1}, {1, 2}}})
	var p probePayload
	json.Unmarshal(readUntil(t, conn, EventProbeResult).Data, &p)
	if p.Revision != 2 || !p.Result.IsEigen {
		t.Errorf("after matrix change = %+v", p)
	}

	var gt GroundTruthData
	json.Unmarshal(readUntil(t, conn, EventGroundTruth).Data, &gt)
	if gt.Revision != 2 {
		t.Errorf("ground truth revision = %d, want 2", gt.Revision)
	}
	for _, v := range gt.Eigenvectors {
		if math.Abs(math.Abs(v.X)-math.Abs(v.Y)) > 1e-9 {
			t.Errorf("eigenvector %+v not on a diagonal", v)
		}
	}
}

func TestComplexSpectrumSendsNotice(t *testing.T) {
	_, srv := newTestServer(t)
	conn := dial(t, srv)
	readUntil(t, conn, EventGroundTruth)

	send(t, conn, EventMatrix, map[string]any{"matrix": [][]float64{{0, -1}, {1, 0}}})
	var n router.Notice
	json.Unmarshal(readUntil(t, conn, EventNotice).Data, &n)
	if !strings.Contains(n.Message, "no ground truth") {
		t.Errorf("notice = %+v", n)
	}
}

func TestAgentEvents(t *testing.T) {
	_, srv := newTestServer(t)
	conn := dial(t, srv)
	readUntil(t, conn, EventSession)

	send(t, conn, EventAgent, map[string]any{"message": map[string]any{
		"operation":   "eigen",
		"explanation": "寻找特征向量",
	}})
	var inst InstructionData
	json.Unmarshal(readUntil(t, conn, EventInstruction).Data, &inst)
	if inst.Operation != "eigen" || !inst.Instruction.EigenView || inst.Explanation != "寻找特征向量" {
		t.Errorf("instruction = %+v", inst)
	}

	send(t, conn, EventAgent, map[string]any{"message": map[string]any{
		"operation": "lean_statement",
		"lean":      map[string]any{"statement_cn": "证明 1 + 1 = 2", "lean_code": "example : 1 + 1 = 2 := by rfl"},
	}})
	var card router.Card
	json.Unmarshal(readUntil(t, conn, EventCard).Data, &card)
	if card.Statement != "证明 1 + 1 = 2" {
		t.Errorf("card = %+v", card)
	}

	send(t, conn, EventAgent, map[string]any{"message": map[string]any{"operation": "teleport"}})
	var n router.Notice
	json.Unmarshal(readUntil(t, conn, EventNotice).Data, &n)
	if n.Code != router.NoticeUnknownOperation {
		t.Errorf("notice = %+v", n)
	}
}

func TestFormalizeEvent(t *testing.T) {
	_, srv := newTestServer(t)
	conn := dial(t, srv)
	readUntil(t, conn, EventSession)

	send(t, conn, EventFormalize, nil)
	var payload struct {
		LeanCode string `json:"lean_code"`
	}
	json.Unmarshal(readUntil(t, conn, EventLeanCode).Data, &payload)
	if !strings.Contains(payload.LeanCode, "Eigenvalues of [[2,0],[0,3]]") {
		t.Errorf("lean code = %q", payload.LeanCode)
	}
}

func TestPingAndErrors(t *testing.T) {
	_, srv := newTestServer(t)
	conn := dial(t, srv)
	readUntil(t, conn, EventSession)

	send(t, conn, EventPing, nil)
	readUntil(t, conn, EventPong)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	var e ErrorData
	json.Unmarshal(readUntil(t, conn, EventError).Data, &e)
	if e.Code != "invalid_json" {
		t.Errorf("code = %q", e.Code)
	}

	send(t, conn, "dance", nil)
	e = ErrorData{}
	json.Unmarshal(readUntil(t, conn, EventError).Data, &e)
	if e.Code != "unknown_type" {
		t.Errorf("code = %q", e.Code)
	}
}

func TestDisconnectRemovesClient(t *testing.T) {
	h, srv := newTestServer(t)
	conn := dial(t, srv)
	readUntil(t, conn, EventSession)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client not removed after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestUnscopedOutcomeIsBroadcast(t *testing.T) {
	h, srv := newTestServer(t)
	a := dial(t, srv)
	b := dial(t, srv)
	readUntil(t, a, EventSession)
	readUntil(t, b, EventSession)

	h.DeliverOutcome(context.Background(), router.Outcome{
		Kind:    router.OutcomeUnknownOperation,
		Notices: []router.Notice{{Level: "warning", Code: router.NoticeUnknownOperation, Message: "x"}},
	})
	readUntil(t, a, EventNotice)
	readUntil(t, b, EventNotice)
}
