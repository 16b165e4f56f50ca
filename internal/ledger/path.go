// Package ledger records deposits, costs, and income against an economic
// state and keeps its aggregates derived.
package ledger

import (
	"strings"

	"github.com/ACNet-AI/OpenPersona-sub000/internal/model"
)

// otherKey collects amounts written to a node that is already a branch.
const otherKey = "other"

// ResolvePath splits a dot-separated account path into the segments used
// to route an expense. Paths whose first segment is not a known category
// are coerced into a single custom leaf. The result has at most three
// segments; deeper paths join the remainder into the leaf key.
func ResolvePath(channel string) []string {
	var segs []string
	for _, s := range strings.Split(strings.ToLower(strings.TrimSpace(channel)), ".") {
		if s = strings.TrimSpace(s); s != "" {
			segs = append(segs, s)
		}
	}
	if len(segs) == 0 {
		return nil
	}

	if !model.IsCategory(segs[0]) {
		return []string{"custom", sanitize(strings.Join(segs, "_"))}
	}

	switch len(segs) {
	case 1, 2:
		return segs
	default:
		return []string{segs[0], segs[1], strings.Join(segs[2:], "_")}
	}
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return otherKey
	}
	return b.String()
}

// addExpense adds amount at path, converting leaves into branches as
// needed. A leaf that becomes a branch keeps its amount under "other".
func addExpense(exp *model.Expenses, path []string, amount float64) {
	if exp.Categories == nil {
		exp.Categories = make(map[string]*model.ExpenseNode)
	}
	node, ok := exp.Categories[path[0]]
	if !ok || node == nil {
		node = model.Leaf(0)
		exp.Categories[path[0]] = node
	}

	for _, key := range path[1:] {
		if node.IsLeaf() {
			toBranch(node)
		}
		child, ok := node.Children[key]
		if !ok || child == nil {
			child = model.Leaf(0)
			node.Children[key] = child
		}
		node = child
	}

	if !node.IsLeaf() {
		other, ok := node.Children[otherKey]
		if !ok || other == nil || !other.IsLeaf() {
			other = model.Leaf(other.Sum())
			node.Children[otherKey] = other
		}
		node = other
	}
	node.Amount = model.RoundAmount(node.Amount + amount)
}

func toBranch(n *model.ExpenseNode) {
	prev := n.Amount
	n.Amount = 0
	n.Children = make(map[string]*model.ExpenseNode)
	if prev != 0 {
		n.Children[otherKey] = model.Leaf(prev)
	}
}
