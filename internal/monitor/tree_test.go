package monitor

import (
	"testing"

	"github.com/paneboard/paneboard/internal/detect"
)

func TestTreeSessions(t *testing.T) {
	tree := &Tree{Agents: []Agent{
		{UniqueID: "a:0.0#1", Session: "a"},
		{UniqueID: "a:0.1#2", Session: "a"},
		{UniqueID: "b:0.0#3", Session: "b"},
	}}

	groups := tree.Sessions()
	if len(groups) != 2 {
		t.Fatalf("groups = %d", len(groups))
	}
	if groups[0].Name != "a" || len(groups[0].Agents) != 2 {
		t.Errorf("group a = %+v", groups[0])
	}
	if groups[1].Name != "b" || len(groups[1].Agents) != 1 {
		t.Errorf("group b = %+v", groups[1])
	}
}

func TestTreeSummarize(t *testing.T) {
	tree := &Tree{Agents: []Agent{
		{IsAgent: true, Status: detect.Status{Kind: detect.StatusProcessing}},
		{IsAgent: true, Status: detect.Status{Kind: detect.StatusAwaitingApproval}},
		{IsAgent: true, Status: detect.Status{Kind: detect.StatusError}},
		{IsAgent: true, Status: detect.Status{Kind: detect.StatusIdle}},
		{IsAgent: false, Status: detect.Status{Kind: detect.StatusProcessing}},
	}}

	s := tree.Summarize()
	if s.Panes != 5 {
		t.Errorf("panes = %d", s.Panes)
	}
	if s.Agents != 4 {
		t.Errorf("agents = %d", s.Agents)
	}
	if s.Working != 1 {
		t.Errorf("working = %d", s.Working)
	}
	if s.Attention != 2 {
		t.Errorf("attention = %d", s.Attention)
	}
}
