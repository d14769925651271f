// Package carealloc provides a priority-aging allocator for scarce critical
// care resources such as ICU beds and ventilators.
//
// Requests are queued with a base priority (1 most urgent, 5 least urgent).
// The longer a request waits, the more urgent it becomes, so low priority
// requests cannot starve.  A scheduler periodically matches queued requests to
// free resources; releasing an allocation returns its resource to the pool.
//
// The engine is embedded through the Service façade exposed by the root
// package:
//
//	srv, _ := carealloc.New(ctx, carealloc.WithConfig(carealloc.DefaultConfig()))
//	rt := srv.Runtime()
//	_, _ = rt.Seed(ctx)
//	req, _ := rt.Submit(ctx, "Bed 4 transfer", 2, 90)
//	_ = rt.Start(ctx)
//	defer rt.Shutdown(ctx)
//
// rt.Handler() serves the JSON API and /metrics.  See cmd/carealloc for a
// standalone process.
package carealloc
