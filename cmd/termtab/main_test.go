package main

import (
	"strings"
	"testing"

	"github.com/1broseidon/termtab/internal/config"
	"github.com/1broseidon/termtab/internal/ipc"
)

func TestParseTabRef(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		args    []string
		wantID  string
		wantIdx int
		rest    int
		wantErr bool
	}{
		{name: "id", id: "abc", args: []string{"label"}, wantID: "abc", wantIdx: -1, rest: 1},
		{name: "index", args: []string{"2", "label"}, wantIdx: 2, rest: 1},
		{name: "missing", wantErr: true},
		{name: "negative", args: []string{"-1"}, wantErr: true},
		{name: "not a number", args: []string{"two"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, rest, err := parseTabRef(3, tt.id, tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseTabRef() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if ref.Window != 3 || ref.ID != tt.wantID || len(rest) != tt.rest {
				t.Fatalf("parseTabRef() = %+v, rest %v", ref, rest)
			}
			if tt.wantIdx < 0 {
				if ref.Index != nil {
					t.Fatalf("unexpected index %d", *ref.Index)
				}
			} else if ref.Index == nil || *ref.Index != tt.wantIdx {
				t.Fatalf("index = %v, want %d", ref.Index, tt.wantIdx)
			}
		})
	}
}

func TestFormatSource(t *testing.T) {
	tests := []struct {
		src  config.Source
		want string
	}{
		{config.Source{Kind: config.SourceFile, File: "/c.yaml", Line: 3, Column: 5}, "file:/c.yaml:3:5"},
		{config.Source{Kind: config.SourceFile, File: "/c.yaml"}, "file:/c.yaml"},
		{config.Source{Kind: config.SourceDefault, Name: "defaults"}, "default:defaults"},
		{config.Source{Kind: config.SourceDefault}, "default"},
	}
	for _, tt := range tests {
		if got := formatSource(tt.src); got != tt.want {
			t.Errorf("formatSource(%+v) = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestRenderTabsTable(t *testing.T) {
	out := renderTabsTable([]ipc.TabData{
		{ID: "a1", Index: 0, Label: "vim", Command: "xterm", PID: 10, State: "running"},
		{ID: "b2", Index: 1, Label: "logs", Command: "xterm", PID: 11, State: "running", Current: true},
	})
	for _, want := range []string{"LABEL", "vim", "logs", "*1", "b2"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	if parseLogLevel("DEBUG").String() != "DEBUG" || parseLogLevel("bogus").String() != "INFO" {
		t.Fatal("unexpected log level mapping")
	}
}
