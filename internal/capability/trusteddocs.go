package capability

import (
	"context"
	"fmt"
	"sync"
)

// StaticTrustedDocuments is a fixed, in-memory TrustedDocuments store —
// the shape a deployment-time manifest of persisted documents takes when
// no external document store is configured (spec §3.2 "persisted/
// trusted documents").
type StaticTrustedDocuments struct {
	mu        sync.RWMutex
	documents map[string]map[string]string // clientName -> documentID -> text
}

// NewStaticTrustedDocuments builds an empty store; call Register to
// populate it.
func NewStaticTrustedDocuments() *StaticTrustedDocuments {
	return &StaticTrustedDocuments{documents: map[string]map[string]string{}}
}

// Register adds or replaces one document for a client.
func (s *StaticTrustedDocuments) Register(clientName, documentID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.documents[clientName] == nil {
		s.documents[clientName] = map[string]string{}
	}
	s.documents[clientName][documentID] = text
}

func (s *StaticTrustedDocuments) Fetch(_ context.Context, clientName, documentID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs, ok := s.documents[clientName]
	if !ok {
		return "", fmt.Errorf("capability: unknown trusted-document client %q", clientName)
	}
	text, ok := docs[documentID]
	if !ok {
		return "", fmt.Errorf("capability: unknown trusted document %q for client %q", documentID, clientName)
	}
	return text, nil
}

// NoopExtensionHost is the default ExtensionHost when no extension
// runtime is configured: every hook fails closed, since a schema that
// declares extension directives but has no host wired has a deployment
// error, not a per-request one (spec §3.1's "ExtensionHost capability
// (§6.4) is the abstract invocation point — no WASM runtime ships in
// this module").
type NoopExtensionHost struct{}

func (NoopExtensionHost) Invoke(_ context.Context, inv ExtensionInvocation) (map[string]interface{}, error) {
	return nil, fmt.Errorf("capability: no ExtensionHost configured for directive %q", inv.Directive)
}
