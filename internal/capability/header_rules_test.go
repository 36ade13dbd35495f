package capability_test

import (
	"testing"

	"github.com/n9te9/federation-core/internal/capability"
)

func TestApplyHeaderRulesNoRulesForwardsEverything(t *testing.T) {
	incoming := map[string]string{"authorization": "Bearer xyz", "x-trace-id": "abc"}
	out := capability.ApplyHeaderRules(nil, incoming)
	if out["authorization"] != "Bearer xyz" || out["x-trace-id"] != "abc" {
		t.Fatalf("expected every incoming header forwarded unchanged, got %v", out)
	}
}

func TestApplyHeaderRulesRemove(t *testing.T) {
	incoming := map[string]string{"authorization": "Bearer xyz", "cookie": "session=1"}
	rules := []capability.HeaderRule{{Name: "cookie", Op: "remove"}}
	out := capability.ApplyHeaderRules(rules, incoming)
	if _, ok := out["cookie"]; ok {
		t.Fatalf("expected cookie removed, got %v", out)
	}
	if out["authorization"] != "Bearer xyz" {
		t.Fatalf("expected unrelated header left alone, got %v", out)
	}
}

func TestApplyHeaderRulesRename(t *testing.T) {
	incoming := map[string]string{"x-client-token": "abc"}
	rules := []capability.HeaderRule{{Name: "x-client-token", Op: "rename", Rename: "authorization"}}
	out := capability.ApplyHeaderRules(rules, incoming)
	if out["authorization"] != "abc" {
		t.Fatalf("expected renamed header to carry the original value, got %v", out)
	}
	if _, ok := out["x-client-token"]; ok {
		t.Fatalf("expected original header name removed after rename, got %v", out)
	}
}

func TestApplyHeaderRulesInsertOverridesIncoming(t *testing.T) {
	incoming := map[string]string{"x-subgraph-secret": "client-supplied"}
	rules := []capability.HeaderRule{{Name: "x-subgraph-secret", Op: "insert", Value: "server-side"}}
	out := capability.ApplyHeaderRules(rules, incoming)
	if out["x-subgraph-secret"] != "server-side" {
		t.Fatalf("expected insert to override the client-supplied value, got %v", out)
	}
}

func TestApplyHeaderRulesDoesNotMutateIncoming(t *testing.T) {
	incoming := map[string]string{"cookie": "session=1"}
	rules := []capability.HeaderRule{{Name: "cookie", Op: "remove"}}
	capability.ApplyHeaderRules(rules, incoming)
	if _, ok := incoming["cookie"]; !ok {
		t.Fatalf("expected the caller's incoming map left untouched")
	}
}
