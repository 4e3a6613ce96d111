package server

import (
	"sort"

	"github.com/platinummonkey/depsane/pkg/analyzer"
	"github.com/platinummonkey/depsane/pkg/report"
	"github.com/platinummonkey/depsane/pkg/usage"
)

// Node types
const (
	NodeFile          = "file"
	NodeDependency    = "dependency"
	NodeDevDependency = "devDependency"
	NodeMissing       = "missing"
	NodeUnused        = "unused"
	NodeUndeclared    = "undeclared"
)

// Edge types
const (
	EdgeProduction  = "production"
	EdgeDevelopment = "development"
)

// CytoscapeNode represents a node in Cytoscape.js format
type CytoscapeNode struct {
	Data CytoscapeNodeData `json:"data"`
}

// CytoscapeNodeData contains node data for Cytoscape.js
type CytoscapeNodeData struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	Type    string `json:"type"`
}

// CytoscapeEdge represents an edge in Cytoscape.js format
type CytoscapeEdge struct {
	Data CytoscapeEdgeData `json:"data"`
}

// CytoscapeEdgeData contains edge data for Cytoscape.js
type CytoscapeEdgeData struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// CytoscapeGraph represents the complete graph in Cytoscape.js format
type CytoscapeGraph struct {
	Nodes []CytoscapeNode `json:"nodes"`
	Edges []CytoscapeEdge `json:"edges"`
}

func fileID(rel string) string     { return "file:" + rel }
func packageID(name string) string { return "pkg:" + name }

// BuildGraph converts a result into a usage graph. Every declared or used
// package becomes a node typed by its verdict, every file that references a
// package becomes a node, and each reference becomes an edge typed by the
// usage kind. Output order is deterministic.
func BuildGraph(r *analyzer.Result) CytoscapeGraph {
	g := CytoscapeGraph{Nodes: []CytoscapeNode{}, Edges: []CytoscapeEdge{}}
	if r == nil {
		return g
	}

	types := packageTypes(r)
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		version := r.Dependencies[name]
		if version == "" {
			version = r.DevDependencies[name]
		}
		g.Nodes = append(g.Nodes, CytoscapeNode{Data: CytoscapeNodeData{
			ID:      packageID(name),
			Name:    name,
			Version: version,
			Type:    types[name],
		}})
	}

	files := make(map[string]bool)
	addEdges := func(m *usage.Map, edgeType string) {
		if m == nil {
			return
		}
		for _, name := range m.Names() {
			for _, file := range m.Files(name) {
				rel := report.Relative(r.Root, file)
				files[rel] = true
				g.Edges = append(g.Edges, CytoscapeEdge{Data: CytoscapeEdgeData{
					ID:     edgeType + ":" + rel + "->" + name,
					Source: fileID(rel),
					Target: packageID(name),
					Type:   edgeType,
				}})
			}
		}
	}
	addEdges(r.UsedDependencies, EdgeProduction)
	addEdges(r.UsedDevDependencies, EdgeDevelopment)

	rels := make([]string, 0, len(files))
	for rel := range files {
		rels = append(rels, rel)
	}
	sort.Strings(rels)
	for _, rel := range rels {
		g.Nodes = append(g.Nodes, CytoscapeNode{Data: CytoscapeNodeData{
			ID:   fileID(rel),
			Name: rel,
			Type: NodeFile,
		}})
	}

	return g
}

// packageTypes assigns each package a node type. Missing wins over unused,
// which wins over the declaration.
func packageTypes(r *analyzer.Result) map[string]string {
	types := make(map[string]string)
	for name := range r.Dependencies {
		types[name] = NodeDependency
	}
	for name := range r.DevDependencies {
		if _, ok := types[name]; !ok {
			types[name] = NodeDevDependency
		}
	}
	for _, m := range []*usage.Map{r.UsedDependencies, r.UsedDevDependencies} {
		if m == nil {
			continue
		}
		for _, name := range m.Names() {
			if _, ok := types[name]; !ok {
				types[name] = NodeUndeclared
			}
		}
	}

	v := r.Verdict
	for _, name := range v.UnusedDependencies {
		types[name] = NodeUnused
	}
	for _, name := range v.UnusedDevDependencies {
		types[name] = NodeUnused
	}
	for _, m := range v.MissingDependencies {
		types[m.Name] = NodeMissing
	}
	for _, m := range v.MissingDevDependencies {
		types[m.Name] = NodeMissing
	}
	return types
}
