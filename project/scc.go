package project

import "sort"

// StronglyConnectedComponents groups nodes into strongly connected
// components using Tarjan's algorithm. Components are returned in the order
// they close, so every component comes after the components it depends on.
// Members of a component are sorted. adjacency may return nodes outside
// nodes; they are visited as well.
func StronglyConnectedComponents(nodes []string, adjacency func(string) []string) [][]string {
	index := 0
	stack := make([]string, 0, len(nodes))
	onStack := make(map[string]bool, len(nodes))
	indexByNode := make(map[string]int, len(nodes))
	lowLink := make(map[string]int, len(nodes))
	components := make([][]string, 0)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indexByNode[v] = index
		lowLink[v] = index
		index++

		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adjacency(v) {
			if _, seen := indexByNode[w]; !seen {
				strongConnect(w)
				if lowLink[w] < lowLink[v] {
					lowLink[v] = lowLink[w]
				}
			} else if onStack[w] && indexByNode[w] < lowLink[v] {
				lowLink[v] = indexByNode[w]
			}
		}

		if lowLink[v] != indexByNode[v] {
			return
		}

		var component []string
		for {
			last := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[last] = false
			component = append(component, last)
			if last == v {
				break
			}
		}
		sort.Strings(component)
		components = append(components, component)
	}

	for _, node := range nodes {
		if _, seen := indexByNode[node]; !seen {
			strongConnect(node)
		}
	}
	return components
}

// Cycles returns the groups of mutually dependent targets. Each group has
// at least two members.
func (p *Project) Cycles() [][]string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := p.targetNamesLocked()
	var cycles [][]string
	for _, component := range StronglyConnectedComponents(names, p.dependsOnLocked) {
		if len(component) > 1 {
			cycles = append(cycles, component)
		}
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}
