package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/blueplan/linviz-go/internal/linviz/linalg"
	logx "github.com/blueplan/linviz-go/internal/linviz/log"
	"github.com/spf13/cobra"
)

func TestParseMatrix(t *testing.T) {
	tests := []struct {
		in      string
		want    linalg.Mat2
		wantErr bool
	}{
		{"2,0,0,3", linalg.Mat2{A: 2, D: 3}, false},
		{" 1, -1 , 1, 1", linalg.Mat2{A: 1, B: -1, C: 1, D: 1}, false},
		{"[[0,-1],[1,0]]", linalg.Mat2{B: -1, C: 1}, false},
		{"1,2,3", linalg.Mat2{}, true},
		{"[[1,2]]", linalg.Mat2{}, true},
		{"a,b,c,d", linalg.Mat2{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseMatrix(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseVector(t *testing.T) {
	v, err := parseVector("1.5,-2")
	if err != nil || v != (linalg.Vec2{X: 1.5, Y: -2}) {
		t.Errorf("parseVector = %v, %v", v, err)
	}
	if _, err := parseVector("1"); err == nil {
		t.Error("expected error for a single number")
	}
}

func TestRouteMessageAcceptsFencedReply(t *testing.T) {
	logx.SetGlobalLogger(logx.Discard())
	jsonOutput = true
	defer func() { jsonOutput = false }()

	tests := []struct {
		name     string
		in       string
		wantKind string
		wantErr  bool
	}{
		{"plain", `{"operation": "eigen"}`, "visualization", false},
		{"fenced", "```json\n{\"operation\": \"lean_intro\", \"lean\": {\"statement_cn\": \"引言\"}}\n```", "instructional", false},
		{"missing operation", `{"inputs": {}}`, "invalid_message", false},
		{"not json", "hello", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			cmd := &cobra.Command{}
			cmd.SetIn(strings.NewReader(tt.in))
			cmd.SetOut(&out)
			cmd.SetContext(context.Background())

			err := routeMessage(cmd, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			var got struct {
				Kind string `json:"kind"`
			}
			if err := json.Unmarshal(out.Bytes(), &got); err != nil {
				t.Fatalf("output is not JSON: %s", out.String())
			}
			if got.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", got.Kind, tt.wantKind)
			}
		})
	}
}
