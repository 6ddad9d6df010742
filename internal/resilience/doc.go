// Package resilience groups the fault tolerance helpers used by the outbound
// clients.
//
//   - circuitbreaker: per-dependency breakers on top of sony/gobreaker
//   - retry: exponential backoff with jitter, aware of HTTP status codes
//     and Retry-After
//
// Clients wrap the breaker inside the retry loop:
//
//	err := retry.WithBackoff(ctx, retry.PageFetchConfig(), func() error {
//	    page, err = circuitbreaker.Do(cb, func() (*extract.Page, error) {
//	        return doRequest(ctx)
//	    })
//	    return err
//	})
package resilience
