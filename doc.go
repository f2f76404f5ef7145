// Package chatrelay forwards chat messages from a persistent outbox to an external messaging sink.
//
// Typical flow:
//  1. An upstream writer inserts inbound chat messages into the outbox with sent=false
//     (see the mysql and gormstore packages for storage backends).
//  2. A Runner fires a Scheduler tick on a fixed interval. Ticks never overlap.
//  3. Each tick fetches unsent messages oldest first, hands each one to a Sink and flips its
//     sent flag once the sink confirms delivery. Failed messages stay unsent and are retried
//     on the next tick.
//
// The webhook package provides an HTTP Sink, redisledger an optional Ledger that remembers
// confirmed deliveries whose sent flag could not be written yet.
package chatrelay
