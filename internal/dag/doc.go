// Package dag is a small, concurrency-safe directed graph of string IDs used
// to order definitions that reference each other, such as sequentials that
// append other sequentials. It detects reference cycles and yields a
// deterministic dependency-first order.
package dag
