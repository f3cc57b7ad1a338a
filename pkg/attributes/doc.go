// Package attributes implements fine-grained session attributes.
//
// Each attribute of a session is stored as its own backend entry keyed by
// (session id, attribute id). Names maps attribute names to ids and is
// shared by every view of a session on this node. FineSessionAttributes is
// the request-scoped view: it reads and writes entries through an
// AttributeCache and records, per name, whether the value must be written
// again when the view is closed:
//
//	passive   a backend transaction already persists the value at commit
//	deferred  the value is mutable and may be changed in place by the caller
//
// Close flushes every deferred mutation. A view must be closed on every
// exit path, including failed requests, or in-place changes are lost.
package attributes
