// Package ratelimit provides the global request governor that spaces
// every outbound request, across all identities, by at least 1/qps
// seconds plus a small randomized jitter. It is the single system-wide
// ban-avoidance throttle; per-operation retry backoff is layered on top
// by the retry package and the two delays are independent.
package ratelimit
