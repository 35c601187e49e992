// Package notify implements the observer fan-out for job notifications.
//
// Observers connect with interest in one job id and receive every message
// broadcast for that job. The hub is transport agnostic: anything that can
// send a Message and be closed can subscribe. Delivery failures disconnect
// the failing observer and never surface to the broadcaster.
package notify
