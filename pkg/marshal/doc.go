// Package marshal converts session attribute values to and from the bytes
// stored in the attribute cache.
//
// Values are written inside a small envelope:
//
//	+---------+-------------+-------+---------------------+---------+
//	| version | compression | codec | uvarint name length | name    |
//	+---------+-------------+-------+---------------------+---------+
//	| payload (codec output, optionally compressed)                 |
//	+---------------------------------------------------------------+
//
// The type name comes from a Registry: only registered types are
// marshallable, mirroring a "serializable" capability. The codec and
// compression identifiers are recorded per value, so a deployment can change
// either setting without losing the ability to read existing entries.
package marshal
