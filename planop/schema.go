package planop

// Field describes one output column of a plan operator, preserved verbatim
// from the optimizer's output through to the executor. Grounded in the
// teacher's sql.Column (see sql/plan/exchange_test.go's partitionable.Schema,
// which returns a sql.Schema of {Name, Type, Source} columns).
type Field struct {
	Name     string
	Type     string
	Nullable bool
}

// Schema is an ordered sequence of output field descriptors.
type Schema []Field
