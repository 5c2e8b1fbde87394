package db

// Importing modernc.org/sqlite registers the "sqlite" database/sql
// driver name Open's parseURI dials into — a pure-Go driver so relq
// never requires cgo, grounded on sqldef-sqldef's use of the same
// driver for its own SQLite backend.
import _ "modernc.org/sqlite"
