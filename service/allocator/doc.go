// Package allocator owns the resource inventory, the request queue and the
// allocation ledger.  It is the only service allowed to move a resource
// between free and in use: the allocation cycle matches queued requests to
// free resources by aged priority, and release returns a resource to the
// free pool.  Both run under the allocation lock held by the Service.
package allocator
