// Package sqlite provides a file-based checkpoint store on mattn/go-sqlite3.
//
// Rows are keyed by (thread_id, step). The state, pending and metadata columns hold
// JSON text. The store needs cgo.
//
//	st, err := sqlite.NewSqliteCheckpointStore(sqlite.SqliteOptions{Path: "./threads.db"})
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
package sqlite
