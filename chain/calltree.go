package chain

import (
	"fmt"
	"strings"

	"github.com/fortressi/entrypoint/dag"
)

// CallKind classifies a node of the call tree.
type CallKind string

const (
	CallExecute     CallKind = "execute"
	CallInstantiate CallKind = "instantiate"
	CallMigrate     CallKind = "migrate"
	CallBank        CallKind = "bank"
	CallReply       CallKind = "reply"
)

// CallStatus is the outcome of one call.
type CallStatus string

const (
	CallRunning   CallStatus = "running"
	CallSucceeded CallStatus = "succeeded"
	CallFailed    CallStatus = "failed"
	// CallReverted marks a call that succeeded but whose effects were
	// discarded because an enclosing sub-message failed.
	CallReverted CallStatus = "reverted"
)

// CallRecord tracks a single dispatched call.
type CallRecord struct {
	Seq     int
	Depth   int
	Kind    CallKind
	Sender  string
	Target  string
	ReplyID uint64
	ReplyOn ReplyOn
	Status  CallStatus
	Error   string
}

func (r CallRecord) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%03d %s%s %s -> %s", r.Seq, strings.Repeat("  ", r.Depth), r.Kind, r.Sender, r.Target)
	if r.Kind == CallReply || r.ReplyOn != ReplyNever {
		fmt.Fprintf(&b, " [id=%d reply_on=%s]", r.ReplyID, r.ReplyOn)
	}
	fmt.Fprintf(&b, " %s", r.Status)
	if r.Error != "" {
		fmt.Fprintf(&b, ": %s", r.Error)
	}
	return b.String()
}

// CallTree is the nested record of every call made by one transaction.
type CallTree struct {
	graph   *dag.Graph
	records []CallRecord
	nodes   []*dag.Node
	parents []int
}

func newCallTree() *CallTree {
	return &CallTree{graph: dag.New()}
}

// begin records a call under parent (-1 for the root) and returns its
// index.
func (t *CallTree) begin(parent int, rec CallRecord) int {
	var parentNode *dag.Node
	if parent >= 0 {
		parentNode = t.nodes[parent]
		rec.Depth = t.records[parent].Depth + 1
	}
	rec.Seq = len(t.records)
	rec.Status = CallRunning
	t.records = append(t.records, rec)
	t.nodes = append(t.nodes, t.graph.Add(parentNode, rec.label()))
	t.parents = append(t.parents, parent)
	return rec.Seq
}

func (t *CallTree) finish(idx int, err error) {
	rec := &t.records[idx]
	if err != nil {
		rec.Status = CallFailed
		rec.Error = err.Error()
		t.nodes[idx].SetColor("red")
	} else {
		rec.Status = CallSucceeded
		t.nodes[idx].SetColor("darkgreen")
	}
}

// revert marks every successful descendant of idx as reverted.
func (t *CallTree) revert(idx int) {
	for i := idx + 1; i < len(t.records); i++ {
		if !t.descends(i, idx) {
			continue
		}
		if t.records[i].Status == CallSucceeded {
			t.records[i].Status = CallReverted
			t.nodes[i].SetColor("gray")
		}
	}
}

func (t *CallTree) descends(i, ancestor int) bool {
	for p := t.parents[i]; p >= 0; p = t.parents[p] {
		if p == ancestor {
			return true
		}
	}
	return false
}

// Records returns the calls in dispatch order.
func (t *CallTree) Records() []CallRecord {
	out := make([]CallRecord, len(t.records))
	copy(out, t.records)
	return out
}

// Find returns the records matching kind and target in dispatch order.
func (t *CallTree) Find(kind CallKind, target string) []CallRecord {
	var out []CallRecord
	for _, r := range t.records {
		if r.Kind == kind && r.Target == target {
			out = append(out, r)
		}
	}
	return out
}

func (t *CallTree) String() string {
	lines := make([]string, len(t.records))
	for i, r := range t.records {
		lines[i] = r.String()
	}
	return strings.Join(lines, "\n")
}

// DOT renders the tree in Graphviz format.
func (t *CallTree) DOT(name string) (string, error) {
	return t.graph.ExportToDot(name)
}

func (r CallRecord) label() string {
	switch r.Kind {
	case CallReply:
		return fmt.Sprintf("reply %d\n%s", r.ReplyID, r.Target)
	case CallBank:
		return fmt.Sprintf("bank send\n%s -> %s", r.Sender, r.Target)
	default:
		return fmt.Sprintf("%s\n%s -> %s", r.Kind, r.Sender, r.Target)
	}
}
