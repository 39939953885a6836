package sim

// TraceSource is a typed list of callbacks. Models expose trace sources for
// the events they want observers (trace writers, flow monitors, loggers) to see.
// The zero value is ready to use.
type TraceSource[T any] struct {
	sinks []func(T)
}

// Connect registers fn to be called on every Fire.
func (ts *TraceSource[T]) Connect(fn func(T)) {
	ts.sinks = append(ts.sinks, fn)
}

// Fire invokes all connected callbacks in connection order.
func (ts *TraceSource[T]) Fire(v T) {
	for _, fn := range ts.sinks {
		fn(v)
	}
}

// Connected reports whether any callback is registered. Models use it to skip
// building trace records nobody listens to.
func (ts *TraceSource[T]) Connected() bool {
	return len(ts.sinks) > 0
}
