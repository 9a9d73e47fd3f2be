// Package domain holds the core types of the dialogue graph: exchanges,
// session state, tangents, and transcript entries. It has no dependencies
// on storage or transport.
package domain
