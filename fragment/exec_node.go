package fragment

import (
	"github.com/vantagedb/vantage/distprop"
	"github.com/vantagedb/vantage/planop"
)

// StageID is a non-negative, dense, monotonically-assigned integer, unique
// only within the enclosing Query. The root stage always has id 0.
type StageID uint32

// ExecutionPlanNode mirrors a single operator of the input plan, plus an
// optional child-stage reference when the operator is an exchange
// boundary. It is immutable once its enclosing stage is finalized
// (spec.md §4.1).
//
// Invariants (spec.md §3):
//   - PlanNodeType == planop.ExchangeType  =>  StageID is set, Children is empty.
//   - PlanNodeType != planop.ExchangeType  =>  StageID is unset.
type ExecutionPlanNode struct {
	PlanNodeID   planop.ID
	PlanNodeType planop.NodeType
	NodeBody     planop.NodeBody
	Schema       planop.Schema
	Children     []*ExecutionPlanNode

	// StageID names the child stage that feeds this exchange. Populated
	// only when PlanNodeType == planop.ExchangeType.
	StageID  StageID
	hasStage bool
}

// newExecutionPlanNode copies a plan operator's identity and payload,
// leaving Children empty and StageID unset; the caller populates Children
// during the downward walk (spec.md §4.1's construction contract).
func newExecutionPlanNode(n planop.Node) *ExecutionPlanNode {
	return &ExecutionPlanNode{
		PlanNodeID:   n.PlanBase(),
		PlanNodeType: n.NodeType(),
		NodeBody:     n.ToBatchBody(),
		Schema:       n.Schema(),
	}
}

// HasStageID reports whether StageID was populated. Exchange nodes always
// report true; every other node always reports false.
func (e *ExecutionPlanNode) HasStageID() bool { return e.hasStage }

func (e *ExecutionPlanNode) setStageID(id StageID) {
	e.StageID = id
	e.hasStage = true
}

// ExchangeInfo describes how a stage distributes its output to its parent.
// Re-exported for convenience so callers need not import distprop directly
// just to read a Stage's ExchangeInfo.
type ExchangeInfo = distprop.ExchangeInfo
