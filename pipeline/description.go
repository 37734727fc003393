package pipeline

// NodeDescription declaratively describes one node of a graph: the type
// tag to instantiate, the unique name to give it, and the properties to
// apply. The zero value is the designated "absent" marker: builders skip
// it silently, which lets callers express platform-conditional topology
// without branching.
type NodeDescription struct {
	Type       string
	Name       string
	Properties map[string]any
}

// Absent reports whether this entry is the absent marker.
func (d NodeDescription) Absent() bool {
	return d.Type == ""
}

// GraphDescription is an ordered sequence of node descriptions. For linear
// topologies the declaration order is the link order.
type GraphDescription []NodeDescription

// Names returns the names of the present entries in declaration order.
func (g GraphDescription) Names() []string {
	names := make([]string, 0, len(g))
	for _, d := range g {
		if d.Absent() {
			continue
		}
		names = append(names, d.Name)
	}
	return names
}
