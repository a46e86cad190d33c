// Package breaker implements the provider circuit breaker.
//
// The breaker tracks consecutive discovery failures and, once the threshold
// is reached, suspends every active market with one circuit_breaker event
// per market. The next successful discovery resumes them. Transitions are
// edge-triggered: repeated requests in the same direction emit nothing.
//
// The in-play anomaly breaker is separate (see package inplay) and does not
// touch this state.
package breaker
