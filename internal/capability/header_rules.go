package capability

// HeaderRule rewrites one header on the outbound subgraph request (spec
// §6.5's per-subgraph header_rules). Op is one of "forward" (default,
// no-op once the header is already present), "insert" (always sets
// Value), "remove", or "rename" (moves the incoming value under a new
// name).
type HeaderRule struct {
	Name   string
	Op     string
	Value  string
	Rename string
}

// ApplyHeaderRules derives the header set forwarded to one subgraph
// from the client's incoming request headers. No rules forwards every
// incoming header unchanged; a non-empty rule set starts from that same
// copy and then applies each rule in order, so "forward" only needs to
// be spelled out when a later rule would otherwise have removed or
// renamed the header.
func ApplyHeaderRules(rules []HeaderRule, incoming map[string]string) map[string]string {
	out := make(map[string]string, len(incoming))
	for k, v := range incoming {
		out[k] = v
	}
	for _, r := range rules {
		switch r.Op {
		case "insert":
			out[r.Name] = r.Value
		case "remove":
			delete(out, r.Name)
		case "rename":
			if v, ok := out[r.Name]; ok {
				delete(out, r.Name)
				out[r.Rename] = v
			}
		case "forward", "":
			// already present from incoming; nothing to do.
		}
	}
	return out
}
