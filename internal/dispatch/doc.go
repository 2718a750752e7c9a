// Package dispatch is the throttled delivery pipeline between "a reminder
// decided to fire" and "the notification was actually sent".
//
// A single worker drains an unbounded FIFO strictly in submission order.
// After every attempt it pauses for a fixed pacing interval to stay under
// provider rate limits. A send rejected for rate is retried exactly once
// after a fixed backoff; any other failure is logged and dropped. Delivery
// is explicitly not guaranteed.
package dispatch
