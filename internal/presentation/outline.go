package presentation

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/zjrosen/contentgraph/internal/dimensionspace"
	"github.com/zjrosen/contentgraph/internal/graph"
	"github.com/zjrosen/contentgraph/internal/model"
)

// Outline renders every node visible at p as one line per node, indented by
// depth below its root, properties sorted by name. Two outlines of the same
// content are byte-identical, which makes them suitable for diffing.
func Outline(g *graph.ContentGraph, p dimensionspace.Point, visibility graph.VisibilityConstraints) string {
	sub := g.Subgraph(p, visibility)

	roots := g.FindRootNodeAggregates()
	slices.SortFunc(roots, func(a, b *graph.NodeAggregate) int { return strings.Compare(string(a.ID), string(b.ID)) })

	var b strings.Builder
	for _, root := range roots {
		sub.Walk(root.ID, func(n *graph.Node, depth int) bool {
			b.WriteString(strings.Repeat("  ", depth))
			b.WriteString(outlineLine(n))
			b.WriteByte('\n')
			return true
		})
	}
	return b.String()
}

func outlineLine(n *graph.Node) string {
	label := string(n.AggregateID)
	if n.Name != "" {
		label = fmt.Sprintf("%s (%s)", n.Name, n.AggregateID)
	}
	parts := []string{label, string(n.NodeTypeName)}

	names := make([]string, 0, len(n.Properties))
	for name := range n.Properties {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		value, err := json.Marshal(n.Properties[name])
		if err != nil {
			value = []byte(fmt.Sprintf("%v", n.Properties[name]))
		}
		parts = append(parts, fmt.Sprintf("%s=%s", name, value))
	}

	refNames := make([]string, 0, len(n.References))
	for name := range n.References {
		refNames = append(refNames, string(name))
	}
	slices.Sort(refNames)
	for _, name := range refNames {
		var targets []string
		for _, ref := range n.References[model.ReferenceName(name)] {
			targets = append(targets, string(ref.Target))
		}
		parts = append(parts, fmt.Sprintf("%s->[%s]", name, strings.Join(targets, ",")))
	}
	return strings.Join(parts, " ")
}
