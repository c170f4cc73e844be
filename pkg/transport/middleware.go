package transport

// compose builds the dispatch function from the registered factories.
// Composition is right-to-left: compose([a, b, c], h) produces a(b(c(h))).
// Factories are called once, in reverse registration order, and each one
// receives a guarded next.
func compose(factories []Middleware, terminal Handler) Handler {
	next := terminal
	for i := len(factories) - 1; i >= 0; i-- {
		next = factories[i](guard(next))
	}
	return guard(next)
}

// Chain composes middleware into a single middleware applying them in
// order: Chain(a, b, c) produces a(b(c(next))). Like the stack's own
// composition, every layer receives a guarded next.
func Chain(middlewares ...Middleware) Middleware {
	return func(next Handler) Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](guard(next))
		}
		return next
	}
}
