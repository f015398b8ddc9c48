package config

import "testing"

func TestAgentSource_UpdateReplacesDefinitions(t *testing.T) {
	src := NewAgentSource(&Config{Agents: []AgentDef{{ID: "a-one", Name: "one"}}})

	agents, err := src.LoadAgents()
	if err != nil {
		t.Fatalf("LoadAgents() error = %v", err)
	}
	if len(agents) != 1 || agents[0].ID != "a-one" {
		t.Fatalf("LoadAgents() = %+v, want one agent a-one", agents)
	}

	src.Update(&Config{Agents: []AgentDef{{ID: "a-two", Name: "two"}}})

	agents, err = src.LoadAgents()
	if err != nil {
		t.Fatalf("LoadAgents() error = %v", err)
	}
	if len(agents) != 1 || agents[0].ID != "a-two" {
		t.Fatalf("LoadAgents() after Update = %+v, want one agent a-two", agents)
	}
}
