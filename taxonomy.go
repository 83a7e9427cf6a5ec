package starcat

import (
	"cmp"
	"encoding/json"
	"slices"
)

// TaxonomyNode is one category label in the taxonomy forest.
//
// Count is the number of (record, path) pairs passing through the node.
// Entries holds, in first-seen order, the IDs of records for which this node
// is the terminal label of a path. A node may be both interior for some paths
// and terminal for others; the two are tracked independently.
type TaxonomyNode struct {
	Label    string          `json:"label"`
	Count    int             `json:"count"`
	Entries  []string        `json:"entries"`
	Children []*TaxonomyNode `json:"children"`

	children map[string]*TaxonomyNode
	members  map[string]bool
}

func newTaxonomyNode(label string) *TaxonomyNode {
	return &TaxonomyNode{
		Label:    label,
		Entries:  []string{},
		Children: []*TaxonomyNode{},
		children: make(map[string]*TaxonomyNode),
		members:  make(map[string]bool),
	}
}

// Child returns the direct child with the given label, or nil.
func (n *TaxonomyNode) Child(label string) *TaxonomyNode {
	return n.children[label]
}

func (n *TaxonomyNode) child(label string) *TaxonomyNode {
	c, ok := n.children[label]
	if !ok {
		c = newTaxonomyNode(label)
		n.children[label] = c
		n.Children = append(n.Children, c)
	}
	return c
}

func (n *TaxonomyNode) addEntry(id string) {
	if n.members[id] {
		return
	}
	n.members[id] = true
	n.Entries = append(n.Entries, id)
}

// Taxonomy is the count-annotated category forest built from a record set.
type Taxonomy struct {
	root *TaxonomyNode
}

// BuildTaxonomy folds every taxonomy path of every record into a forest.
// Paths are truncated to MaxTaxonomyDepth and paths shorter than
// MinTaxonomyDepth are skipped. Siblings are ordered by
// descending count, ties broken by label.
func BuildTaxonomy(records []*Record) *Taxonomy {
	root := newTaxonomyNode("")
	for _, r := range records {
		for _, path := range r.Taxonomy {
			if len(path) < MinTaxonomyDepth {
				continue
			}
			if len(path) > MaxTaxonomyDepth {
				path = path[:MaxTaxonomyDepth]
			}
			n := root
			for _, label := range path {
				n = n.child(label)
				n.Count++
			}
			n.addEntry(r.ID)
		}
	}

	stack := []*TaxonomyNode{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		slices.SortFunc(n.Children, compareNodes)
		stack = append(stack, n.Children...)
	}
	return &Taxonomy{root: root}
}

func compareNodes(a, b *TaxonomyNode) int {
	if c := cmp.Compare(b.Count, a.Count); c != 0 {
		return c
	}
	return cmp.Compare(a.Label, b.Label)
}

// Roots returns the top-level nodes in display order.
func (t *Taxonomy) Roots() []*TaxonomyNode {
	return t.root.Children
}

// Find returns the node at the given label path, or nil if absent.
func (t *Taxonomy) Find(labels ...string) *TaxonomyNode {
	if len(labels) == 0 || len(labels) > MaxTaxonomyDepth {
		return nil
	}
	n := t.root
	for _, l := range labels {
		if n = n.Child(l); n == nil {
			return nil
		}
	}
	return n
}

// Walk visits nodes depth-first in display order, passing each node's full
// path. Returning false from fn skips the node's children.
func (t *Taxonomy) Walk(fn func(path TaxonomyPath, n *TaxonomyNode) bool) {
	type frame struct {
		path TaxonomyPath
		node *TaxonomyNode
	}

	stack := make([]frame, 0, len(t.root.Children))
	for i := len(t.root.Children) - 1; i >= 0; i-- {
		c := t.root.Children[i]
		stack = append(stack, frame{path: TaxonomyPath{c.Label}, node: c})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(f.path, f.node) || len(f.path) >= MaxTaxonomyDepth {
			continue
		}
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			c := f.node.Children[i]
			path := append(slices.Clip(f.path), c.Label)
			stack = append(stack, frame{path: path, node: c})
		}
	}
}

// MarshalJSON encodes the forest as its ordered list of roots.
func (t *Taxonomy) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.root.Children)
}

// PathFrequencies counts every prefix of every taxonomy path across the
// record set, keyed by the rendered prefix. The table supports "top
// categories at depth N" queries without walking the tree.
func PathFrequencies(records []*Record) FrequencyTable {
	counts := make(map[string]int)
	for _, r := range records {
		for _, path := range r.Taxonomy {
			if len(path) < MinTaxonomyDepth {
				continue
			}
			if len(path) > MaxTaxonomyDepth {
				path = path[:MaxTaxonomyDepth]
			}
			for i := 1; i <= len(path); i++ {
				counts[path[:i].String()]++
			}
		}
	}
	return NewFrequencyTable(counts)
}
