package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Top-level expense categories. Anything else is routed under custom.
var Categories = []string{"inference", "runtime", "faculty", "skill", "agent", "custom"}

// IsCategory reports whether name is one of the fixed top-level categories.
func IsCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

// ExpenseNode is either a leaf amount or a branch of named children.
// A nil Children map marks a leaf.
type ExpenseNode struct {
	Amount   float64
	Children map[string]*ExpenseNode
}

// Leaf returns a leaf node holding amount.
func Leaf(amount float64) *ExpenseNode {
	return &ExpenseNode{Amount: amount}
}

// Branch returns a branch node with zero-valued leaves for each key.
func Branch(keys ...string) *ExpenseNode {
	n := &ExpenseNode{Children: make(map[string]*ExpenseNode, len(keys))}
	for _, k := range keys {
		n.Children[k] = Leaf(0)
	}
	return n
}

// IsLeaf reports whether n holds a flat amount.
func (n *ExpenseNode) IsLeaf() bool {
	return n.Children == nil
}

// Sum returns the recursive sum of all numeric leaves under n.
func (n *ExpenseNode) Sum() float64 {
	if n == nil {
		return 0
	}
	if n.IsLeaf() {
		return n.Amount
	}
	var total float64
	for _, child := range n.Children {
		total += child.Sum()
	}
	return total
}

// ExpenseLeaf is one non-zero leaf under a branch, addressed by its
// dotted account path.
type ExpenseLeaf struct {
	Path   string  `json:"path"`
	Amount float64 `json:"amount"`
}

// Leaves flattens the non-zero leaves under n in key order. prefix is the
// path of n itself. A leaf node has no sub-accounts and yields nothing.
func (n *ExpenseNode) Leaves(prefix string) []ExpenseLeaf {
	if n == nil || n.IsLeaf() {
		return nil
	}
	keys := make([]string, 0, len(n.Children))
	for k := range n.Children {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []ExpenseLeaf
	for _, key := range keys {
		child := n.Children[key]
		path := prefix + "." + key
		if child.IsLeaf() {
			if child.Amount != 0 {
				out = append(out, ExpenseLeaf{Path: path, Amount: child.Amount})
			}
			continue
		}
		out = append(out, child.Leaves(path)...)
	}
	return out
}

// Clone returns a deep copy of n.
func (n *ExpenseNode) Clone() *ExpenseNode {
	if n == nil {
		return nil
	}
	if n.IsLeaf() {
		return Leaf(n.Amount)
	}
	c := &ExpenseNode{Children: make(map[string]*ExpenseNode, len(n.Children))}
	for k, child := range n.Children {
		c.Children[k] = child.Clone()
	}
	return c
}

// MarshalJSON writes a leaf as a number and a branch as an object.
func (n *ExpenseNode) MarshalJSON() ([]byte, error) {
	if n == nil {
		return []byte("0"), nil
	}
	if n.IsLeaf() {
		return json.Marshal(n.Amount)
	}
	return json.Marshal(n.Children)
}

// UnmarshalJSON accepts either a number or an object of nested nodes.
// Non-numeric scalars decode as a zero leaf.
func (n *ExpenseNode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var children map[string]*ExpenseNode
		if err := json.Unmarshal(data, &children); err != nil {
			return err
		}
		for k, v := range children {
			if v == nil {
				children[k] = Leaf(0)
			}
		}
		n.Children = children
		n.Amount = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		f = 0
	}
	n.Amount = f
	n.Children = nil
	return nil
}

// Expenses is the period expense tree plus its derived total.
type Expenses struct {
	Categories map[string]*ExpenseNode
	Total      float64
}

// DefaultExpenses returns the initial expense tree.
func DefaultExpenses() Expenses {
	return Expenses{
		Categories: map[string]*ExpenseNode{
			"inference": {Children: map[string]*ExpenseNode{
				"llm": Branch("input", "output", "thinking"),
			}},
			"runtime": Branch("compute", "storage", "bandwidth"),
			"faculty": Leaf(0),
			"skill":   Leaf(0),
			"agent":   Branch("acn", "a2a"),
			"custom":  Leaf(0),
		},
	}
}

// Category returns the named top-level node, or nil.
func (e Expenses) Category(name string) *ExpenseNode {
	return e.Categories[name]
}

// Sum recursively sums every category; Total itself is never an input.
func (e Expenses) Sum() float64 {
	var total float64
	for _, name := range e.sortedKeys() {
		total += e.Categories[name].Sum()
	}
	return total
}

// Clone returns a deep copy of e.
func (e Expenses) Clone() Expenses {
	c := Expenses{Total: e.Total, Categories: make(map[string]*ExpenseNode, len(e.Categories))}
	for k, v := range e.Categories {
		c.Categories[k] = v.Clone()
	}
	return c
}

func (e Expenses) sortedKeys() []string {
	keys := make([]string, 0, len(e.Categories))
	for k := range e.Categories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON flattens categories and the derived total into one object.
func (e Expenses) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Categories)+1)
	for k, v := range e.Categories {
		out[k] = v
	}
	out["total"] = e.Total
	return json.Marshal(out)
}

// UnmarshalJSON reads categories and drops any persisted total; callers
// recompute it.
func (e *Expenses) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding expenses: %w", err)
	}
	e.Categories = make(map[string]*ExpenseNode, len(raw))
	for k, v := range raw {
		if k == "total" {
			continue
		}
		node := &ExpenseNode{}
		if err := node.UnmarshalJSON(v); err != nil {
			return fmt.Errorf("decoding expenses.%s: %w", k, err)
		}
		e.Categories[k] = node
	}
	e.Total = 0
	return nil
}
