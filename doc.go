// Ipatlas converts heterogeneous IP-range intelligence sources into
// compact binary databases and serves sub-millisecond point lookups
// against them.
//
// You feed it range-based tabular sources (geolocation, ASN, ISP and
// proxy-type data) plus a third-party binary geo database, and it
// answers the question "given an IP address, what do we know about
// it".
//
// Tool itself is organized into the following logical parts:
//
// Rangedb
//
// rangedb is the binary database engine: the canonical sorted range
// table, the varint/delta record codec with string interning, the
// encoder, the loader and the binary-search lookup. Everything else
// is plumbing around this package.
//
// Sources
//
// sources knows how to parse the raw tabular files into canonical
// tables, how to fill geolocation gaps from the third-party database
// and how to finalize the per-dataset tables for encoding.
//
// Builder
//
// builder runs the whole build: eight independent pipelines in
// parallel, then encoding and the atomic replacement of the database
// files.
//
// Atlas
//
// atlas is the serve-time facade: it loads the four databases, owns
// them as one immutable snapshot and fans a single lookup out to all
// of them.
//
// A main package itself is an example of how to wire everything. The
// resulting binary rebuilds databases and starts an http server, so
// you can use it in your infrastructure as is.
package main
