// Package discovery implements the Discovery Loop.
//
// Once started, the loop polls the series provider, feeds results to the
// market tracker and in-play provider, and reports every outcome to the
// provider breaker. Errors never leave the loop; they are logged and counted.
package discovery
