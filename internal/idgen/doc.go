// Package idgen wraps the UUID generator used for allocation cycle and event
// message identifiers so that it can be stubbed in tests.  Record identifiers
// (resources, requests, allocations) are assigned by the store, not here.
package idgen
