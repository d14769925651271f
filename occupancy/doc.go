// Package occupancy keeps aggregated request and resource counters for the
// allocator.  Every component holding the tracker can apply a Delta without
// a global registry, observers are notified through OnChange.
package occupancy
