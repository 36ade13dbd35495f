// Package solver implements the query-solving algorithm of spec §4.3: it
// turns a bound Operation plus a Schema into an executable plan.Plan by
// finding a minimum-cost set of resolver traversals that covers every
// requested field (a Steiner-tree-style cover over the candidate graph of
// query fields, typenames, resolvers and providable fields).
//
// Grounded on federation/graph/weighted_graph.go: this file generalizes
// the teacher's string-keyed WeightedDirectedGraph/Dijkstra
// implementation (node key "{SubGraph}:{Type}.{Field}", container/heap
// priority queue, zero-cost ShortCut edges for @provides) to operate on
// dense NodeID values addressing solver Node values instead of strings.
package solver

import "container/heap"

// NodeID addresses one Node in a Graph. Dense and zero-based, matching
// the arena-id convention used throughout internal/schema and
// internal/operation.
type NodeID uint32

// edge is one outgoing traversal from a node, with its integer cost
// (spec §4.3 "Cost model": 1 per resolver traversal, 0 within a
// subgraph, small positive for a @provides-reachable field).
type edge struct {
	to   NodeID
	cost int
}

// Graph is a weighted directed graph over solver Nodes, grounded on the
// teacher's WeightedDirectedGraph but keyed by NodeID instead of a
// "SubGraph:Type.Field" string.
type Graph struct {
	Nodes []Node
	edges []map[NodeID]int // parallel to Nodes; edges[i][j] = cost of i->j
	// shortcuts are always-zero-cost edges representing a @provides path
	// that lets a later resolver skip an otherwise-required traversal
	// (grounded on weighted_graph.go's AddShortCut/ShortCut map).
	shortcuts []map[NodeID]bool

	index map[nodeKey]NodeID
}

// nodeKey is the graph's dedup key, generalizing the teacher's
// "{SubGraph}:{Type}.{Field}" string into a struct of schema ids so two
// logically identical nodes (same kind/subgraph/type/field) always
// resolve to the same NodeID.
type nodeKey struct {
	kind     NodeKind
	subgraph uint32
	typ      uint32
	field    uint32
	resolver uint32
}

// NewGraph builds an empty graph.
func NewGraph() *Graph {
	return &Graph{index: make(map[nodeKey]NodeID)}
}

// AddNode inserts n if an equal node is not already present and returns
// its NodeID either way (teacher's AddNode dedup-by-key behavior).
func (g *Graph) AddNode(n Node) NodeID {
	k := n.key()
	if id, ok := g.index[k]; ok {
		return id
	}
	id := NodeID(len(g.Nodes))
	g.Nodes = append(g.Nodes, n)
	g.edges = append(g.edges, map[NodeID]int{})
	g.shortcuts = append(g.shortcuts, map[NodeID]bool{})
	g.index[k] = id
	return id
}

// Lookup returns the NodeID for an already-inserted node matching n's key.
func (g *Graph) Lookup(n Node) (NodeID, bool) {
	id, ok := g.index[n.key()]
	return id, ok
}

// AddEdge adds a directed edge from -> to with the given cost, keeping
// the minimum cost on duplicate insertion (grounded on AddEdge's
// min-weight semantics in weighted_graph.go).
func (g *Graph) AddEdge(from, to NodeID, cost int) {
	if existing, ok := g.edges[from][to]; !ok || cost < existing {
		g.edges[from][to] = cost
	}
}

// AddShortcut marks from -> to as a zero-cost shortcut (a @provides path).
func (g *Graph) AddShortcut(from, to NodeID) {
	g.shortcuts[from][to] = true
}

// dijkstraItem is one entry of the priority queue, grounded on
// weighted_graph.go's dijkstraItem/dijkstraPQ.
type dijkstraItem struct {
	node NodeID
	dist int
}

type dijkstraPQ []dijkstraItem

func (pq dijkstraPQ) Len() int            { return len(pq) }
func (pq dijkstraPQ) Less(i, j int) bool  { return pq[i].dist < pq[j].dist }
func (pq dijkstraPQ) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *dijkstraPQ) Push(x interface{}) { *pq = append(*pq, x.(dijkstraItem)) }
func (pq *dijkstraPQ) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// DijkstraResult holds shortest-path distances and predecessors from a
// multi-source Dijkstra run (grounded on weighted_graph.go's
// DijkstraResult).
type DijkstraResult struct {
	Dist map[NodeID]int
	Prev map[NodeID]NodeID
	has  map[NodeID]bool // whether Prev[n] is meaningful (n has a predecessor)
}

// Dijkstra runs a multi-source shortest path search from entryPoints,
// honoring both normal edges and always-zero-cost shortcut edges
// (grounded on weighted_graph.go's Dijkstra).
func (g *Graph) Dijkstra(entryPoints []NodeID) *DijkstraResult {
	res := &DijkstraResult{
		Dist: make(map[NodeID]int),
		Prev: make(map[NodeID]NodeID),
		has:  make(map[NodeID]bool),
	}
	pq := &dijkstraPQ{}
	heap.Init(pq)
	for _, ep := range entryPoints {
		if _, seen := res.Dist[ep]; !seen {
			res.Dist[ep] = 0
			heap.Push(pq, dijkstraItem{node: ep, dist: 0})
		}
	}
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(dijkstraItem)
		if cur.dist > res.Dist[cur.node] {
			continue
		}
		for to, cost := range g.edges[cur.node] {
			nd := cur.dist + cost
			if d, ok := res.Dist[to]; !ok || nd < d {
				res.Dist[to] = nd
				res.Prev[to] = cur.node
				res.has[to] = true
				heap.Push(pq, dijkstraItem{node: to, dist: nd})
			}
		}
		for to := range g.shortcuts[cur.node] {
			nd := cur.dist
			if d, ok := res.Dist[to]; !ok || nd < d {
				res.Dist[to] = nd
				res.Prev[to] = cur.node
				res.has[to] = true
				heap.Push(pq, dijkstraItem{node: to, dist: nd})
			}
		}
	}
	return res
}

// ReconstructPath walks Prev back from dst to an entry point, grounded
// on weighted_graph.go's ReconstructPath.
func (r *DijkstraResult) ReconstructPath(dst NodeID) []NodeID {
	var path []NodeID
	cur := dst
	for {
		path = append([]NodeID{cur}, path...)
		if !r.has[cur] {
			break
		}
		cur = r.Prev[cur]
	}
	return path
}

// ZeroPathCost zeroes the cost of every edge along path, implementing
// spec §4.3's greedy terminal-absorption rule: "after a terminal is
// absorbed, zero out the cost of every edge on its path so later
// terminals prefer the resolvers already selected".
func (g *Graph) ZeroPathCost(path []NodeID) {
	for i := 0; i+1 < len(path); i++ {
		from, to := path[i], path[i+1]
		if _, ok := g.edges[from][to]; ok {
			g.edges[from][to] = 0
		}
	}
}
