package preprocess

import "github.com/dd0wney/cluso-riskgraph/pkg/graph"

// detectModules stamps DFS visit times on every node and marks gates
// whose whole sub-DAG is visited strictly inside the gate's own
// enter/exit window. Such a gate is reachable only through itself and
// can be analysed in isolation by the cut-set generator.
func detectModules(g *graph.Graph) {
	if g.IsVariable(g.Root()) || g.IsConstant(g.Root()) {
		return
	}

	for _, node := range g.Gates() {
		node.EnterTime, node.ExitTime, node.LastVisit = 0, 0, 0
		node.Module = false
	}
	varEnter := make([]int, g.VarCount()+1)
	varLast := make([]int, g.VarCount()+1)

	t := 0
	var visit func(ref int32)
	visit = func(ref int32) {
		t++
		if g.IsVariable(ref) {
			idx := ref
			if idx < 0 {
				idx = -idx
			}
			if varEnter[idx] == 0 {
				varEnter[idx] = t
			}
			varLast[idx] = t
			return
		}
		node := g.Gate(ref)
		if node.EnterTime != 0 {
			node.LastVisit = t
			return
		}
		node.EnterTime = t
		for _, arg := range node.Args {
			visit(arg)
		}
		t++
		node.ExitTime = t
		node.LastVisit = t
	}
	visit(g.Root())

	// Aggregate each gate's descendant visit-time window.
	type window struct{ min, max int }
	memo := make(map[int32]window)
	var agg func(node *graph.Gate) window
	agg = func(node *graph.Gate) window {
		if w, ok := memo[node.Index]; ok {
			return w
		}
		w := window{min: node.ExitTime, max: 0}
		for _, arg := range node.Args {
			if g.IsVariable(arg) {
				idx := arg
				if idx < 0 {
					idx = -idx
				}
				if varEnter[idx] < w.min {
					w.min = varEnter[idx]
				}
				if varLast[idx] > w.max {
					w.max = varLast[idx]
				}
				continue
			}
			child := g.Gate(arg)
			cw := agg(child)
			if child.EnterTime < w.min {
				w.min = child.EnterTime
			}
			if cw.min < w.min {
				w.min = cw.min
			}
			if child.LastVisit > w.max {
				w.max = child.LastVisit
			}
			if cw.max > w.max {
				w.max = cw.max
			}
		}
		memo[node.Index] = w
		return w
	}

	for _, node := range g.Gates() {
		w := agg(node)
		node.Module = w.min > node.EnterTime && w.max < node.ExitTime
	}
	// The top gate owns the whole graph by definition.
	if root := g.Gate(g.Root()); root != nil {
		root.Module = true
	}
}
