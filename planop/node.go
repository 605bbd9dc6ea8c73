// Package planop defines the capability set the fragmenter needs from an
// already-optimized, distribution-annotated plan tree (spec.md §6), plus a
// small set of concrete operators exercising it.
//
// This package is the input side only: it has no notion of stages or
// exchange boundaries beyond exposing the Exchange type's Distribution.
// Splitting that tree into stages is package fragment's job.
package planop

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/vantagedb/vantage/distprop"
	"github.com/vantagedb/vantage/fragerr"
)

// ID is the plan-operator identifier carried over from the optimizer. It is
// opaque to this subsystem: used only for diagnostics, never for lookups.
type ID uint64

// NodeType tags the operator kind. Exchange is the only variant the
// fragmenter itself branches on (spec.md §4.3/§9); every other value is
// meaningful only to the executor that runs the node.
type NodeType int

const (
	SeqScanType NodeType = iota
	ProjectType
	FilterType
	HashJoinType
	SortType
	LimitType
	ExchangeType
)

func (t NodeType) String() string {
	switch t {
	case SeqScanType:
		return "SeqScan"
	case ProjectType:
		return "Project"
	case FilterType:
		return "Filter"
	case HashJoinType:
		return "HashJoin"
	case SortType:
		return "Sort"
	case LimitType:
		return "Limit"
	case ExchangeType:
		return "Exchange"
	default:
		return "Unknown"
	}
}

// NodeBody is the operator's type-specific payload. The fragmenter treats it
// as opaque and preserves it verbatim (spec.md §3); concrete operators
// populate it with whatever the executor needs to re-run this one node.
type NodeBody interface {
	isNodeBody()
}

// Node is the capability set spec.md §6 requires of an input plan operator:
// identity, tagged type, its serializable body, its output schema, and its
// ordered inputs. Exchange nodes additionally implement Exchanger.
type Node interface {
	PlanBase() ID
	NodeType() NodeType
	ToBatchBody() NodeBody
	Schema() Schema
	Inputs() []Node
}

// Exchanger is the extra capability an exchange operator exposes: a
// redistribution descriptor convertible to a wire ExchangeInfo given a
// target parallelism (spec.md §6). Modeling it as a separate interface
// rather than requiring the concrete *Exchange type lets the fragmenter
// accept any tagged-Exchange implementation — including malformed ones
// used by tests to exercise the arity check (spec.md §9: "Model plan nodes
// as a tagged variant... or as an interface/trait exposing those
// operations").
type Exchanger interface {
	Distribution() distprop.Distribution
}

// base is embedded by every concrete operator to supply PlanBase/Schema.
type base struct {
	id     ID
	schema Schema
}

func (b base) PlanBase() ID   { return b.id }
func (b base) Schema() Schema { return b.schema }

// SeqScan reads every row of a table; it has no inputs.
type SeqScan struct {
	base
	Table string
}

func NewSeqScan(id ID, table string, schema Schema) *SeqScan {
	return &SeqScan{base: base{id: id, schema: schema}, Table: table}
}

func (s *SeqScan) NodeType() NodeType    { return SeqScanType }
func (s *SeqScan) ToBatchBody() NodeBody { return SeqScanBody{Table: s.Table} }
func (s *SeqScan) Inputs() []Node        { return nil }

type SeqScanBody struct{ Table string }

func (SeqScanBody) isNodeBody() {}

// Project evaluates a list of expressions over its single input.
type Project struct {
	base
	Exprs []string
	Input Node
}

func NewProject(id ID, exprs []string, input Node, schema Schema) *Project {
	return &Project{base: base{id: id, schema: schema}, Exprs: exprs, Input: input}
}

func (p *Project) NodeType() NodeType    { return ProjectType }
func (p *Project) ToBatchBody() NodeBody { return ProjectBody{Exprs: p.Exprs} }
func (p *Project) Inputs() []Node        { return []Node{p.Input} }

type ProjectBody struct{ Exprs []string }

func (ProjectBody) isNodeBody() {}

// Filter keeps rows matching Predicate.
type Filter struct {
	base
	Predicate string
	Input     Node
}

func NewFilter(id ID, predicate string, input Node, schema Schema) *Filter {
	return &Filter{base: base{id: id, schema: schema}, Predicate: predicate, Input: input}
}

func (f *Filter) NodeType() NodeType    { return FilterType }
func (f *Filter) ToBatchBody() NodeBody { return FilterBody{Predicate: f.Predicate} }
func (f *Filter) Inputs() []Node        { return []Node{f.Input} }

type FilterBody struct{ Predicate string }

func (FilterBody) isNodeBody() {}

// HashJoin joins Build and Probe on an equi-join predicate. Input order is
// significant: Build is inputs()[0], Probe is inputs()[1].
type HashJoin struct {
	base
	JoinType string
	Build    Node
	Probe    Node
}

func NewHashJoin(id ID, joinType string, build, probe Node, schema Schema) *HashJoin {
	return &HashJoin{base: base{id: id, schema: schema}, JoinType: joinType, Build: build, Probe: probe}
}

func (h *HashJoin) NodeType() NodeType    { return HashJoinType }
func (h *HashJoin) ToBatchBody() NodeBody { return HashJoinBody{JoinType: h.JoinType} }
func (h *HashJoin) Inputs() []Node        { return []Node{h.Build, h.Probe} }

type HashJoinBody struct{ JoinType string }

func (HashJoinBody) isNodeBody() {}

// Sort orders its input by Keys.
type Sort struct {
	base
	Keys  []string
	Input Node
}

func NewSort(id ID, keys []string, input Node, schema Schema) *Sort {
	return &Sort{base: base{id: id, schema: schema}, Keys: keys, Input: input}
}

func (s *Sort) NodeType() NodeType    { return SortType }
func (s *Sort) ToBatchBody() NodeBody { return SortBody{Keys: s.Keys} }
func (s *Sort) Inputs() []Node        { return []Node{s.Input} }

type SortBody struct{ Keys []string }

func (SortBody) isNodeBody() {}

// Limit caps the number of rows returned by its input.
type Limit struct {
	base
	Count  uint64
	Offset uint64
	Input  Node
}

func NewLimit(id ID, count, offset uint64, input Node, schema Schema) *Limit {
	return &Limit{base: base{id: id, schema: schema}, Count: count, Offset: offset, Input: input}
}

func (l *Limit) NodeType() NodeType    { return LimitType }
func (l *Limit) ToBatchBody() NodeBody { return LimitBody{Count: l.Count, Offset: l.Offset} }
func (l *Limit) Inputs() []Node        { return []Node{l.Input} }

type LimitBody struct {
	Count  uint64
	Offset uint64
}

func (LimitBody) isNodeBody() {}

// Exchange redistributes its single input's rows across the parent stage's
// parallel units. It is the only operator the fragmenter treats specially
// (spec.md §4.3/§9): visiting one always terminates the current stage.
type Exchange struct {
	base
	Dist  distprop.Distribution
	Input Node
}

func NewExchange(id ID, dist distprop.Distribution, input Node, schema Schema) *Exchange {
	return &Exchange{base: base{id: id, schema: schema}, Dist: dist, Input: input}
}

func (e *Exchange) NodeType() NodeType    { return ExchangeType }
func (e *Exchange) ToBatchBody() NodeBody { return ExchangeBody{} }
func (e *Exchange) Inputs() []Node        { return []Node{e.Input} }

// Distribution returns the redistribution descriptor this exchange was
// annotated with by the optimizer (spec.md §6).
func (e *Exchange) Distribution() distprop.Distribution { return e.Dist }

type ExchangeBody struct{}

func (ExchangeBody) isNodeBody() {}

// Validate walks the whole tree up front and collects every structural
// defect it finds, rather than failing on the first one the way
// Fragmenter.Split does. It is a best-effort diagnostic for tooling (see
// cmd/vantage-fragment) and is never called by Split itself, which must
// remain fail-fast per spec.md §7.
func Validate(root Node) error {
	var result *multierror.Error
	var walk func(n Node)
	walk = func(n Node) {
		if n == nil {
			result = multierror.Append(result, fragerr.ErrMalformedPlan.New("nil node in plan tree"))
			return
		}
		if n.NodeType() == ExchangeType {
			ex, ok := n.(Exchanger)
			if !ok {
				result = multierror.Append(result, fragerr.ErrMalformedPlan.New(
					fmt.Sprintf("node %d: tagged Exchange but does not implement Exchanger", n.PlanBase())))
				return
			}
			if ex.Distribution() == nil {
				result = multierror.Append(result, fragerr.ErrMalformedPlan.New(
					fmt.Sprintf("exchange %d: missing distribution descriptor", n.PlanBase())))
			}
		}
		if n.Schema() == nil {
			result = multierror.Append(result, fragerr.ErrMalformedPlan.New(
				fmt.Sprintf("node %d: missing schema", n.PlanBase())))
		}
		inputs := n.Inputs()
		if n.NodeType() == ExchangeType && len(inputs) != 1 {
			result = multierror.Append(result, fragerr.ErrMalformedPlan.New(
				fmt.Sprintf("exchange %d: expected exactly 1 input, got %d", n.PlanBase(), len(inputs))))
		}
		for _, child := range inputs {
			walk(child)
		}
	}
	walk(root)
	if result != nil {
		result.ErrorFormat = func(errs []error) string {
			msgs := make([]string, len(errs))
			for i, e := range errs {
				msgs[i] = e.Error()
			}
			return fmt.Sprintf("%d plan validation error(s): %s", len(errs), msgs)
		}
		return result.ErrorOrNil()
	}
	return nil
}
