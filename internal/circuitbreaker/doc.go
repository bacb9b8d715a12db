// Package circuitbreaker guards the HTTP origin binding.
//
// A breaker has three states:
//
//   - CLOSED: requests reach the origin
//   - OPEN: the origin keeps failing, requests are rejected with ErrOpen
//   - HALF-OPEN: a single probe request is let through
//
// Usage:
//
//	cb := circuitbreaker.New(5, 30*time.Second)
//	if err := cb.Allow(); err != nil {
//	    return nil, err
//	}
//	resp, err := client.Do(req)
//	cb.Record(err == nil && resp.StatusCode < 500)
package circuitbreaker
