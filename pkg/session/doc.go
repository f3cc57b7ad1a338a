// Package session manages the lifecycle of distributed sessions on one node.
//
// A Manager hands out request-scoped Session handles. Each handle owns a
// batch (a backend transaction in transactional mode) and a fine-grained
// attribute view; closing the handle flushes the view, records the access
// and commits the batch.
//
// Attribute name tables are shared between the handles of the same session
// that are open concurrently on this node. The shared table is loaded once
// per burst of concurrent requests and dropped when the last handle closes,
// so a later request observes ids allocated by other nodes.
package session
