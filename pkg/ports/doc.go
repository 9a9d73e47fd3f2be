// Package ports defines the interfaces between the dialogue engine and
// the outside world: persistence stores, distributed locking, and
// outbound delivery. Adapters live under internal/adapters.
package ports
