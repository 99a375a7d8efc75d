// Package warmup fills a response cache ahead of demand.
//
// A Warmer fetches a list of URLs through a caching client with a bounded
// worker pool. Responses that are storable and fresh end up in the cache;
// each URL gets a Result describing how long it will stay fresh.
//
// Usage:
//
//	warmer := warmup.NewWarmer(httpcacheClient, warmup.DefaultConfig())
//	results, err := warmer.Warm(ctx, urls)
//	for _, r := range results {
//		if r.Err == nil && r.Fresh {
//			fmt.Printf("%s cached for %s\n", r.URL, r.TTL)
//		}
//	}
package warmup
