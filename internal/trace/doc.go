// Package trace records resolver activity for diagnosing slow or stuck runs.
//
//	tpcheck resolve --trace=run.ndjson --trace-level=detail decls.toml
//
// The driver opens one span per run, per pass and per declaration group.
// Groups add a point each time they advance a stage. Events go to a stream,
// to an in-memory ring dumped on exit or panic, or to both.
package trace
