// Package journal persists sorting runs and per-file outcomes in SQLite.
//
// The Store manages the database connection, schema initialization, and the
// queries behind the history and check commands. A run row records the
// invocation; run_files rows record what happened to each file, so label
// totals are derived with GROUP BY instead of duplicated counters.
//
// The database is operational history, not an archive. Schema changes bump
// the version in schema.go; journals carrying an older version are rejected
// and must be deleted to adopt the new schema.
package journal
