// Package postgres provides a PostgreSQL checkpoint store on pgx v5.
//
// Rows are keyed by (thread_id, step), state and pending are JSONB columns.
// Call InitSchema once at startup to create the table.
//
//	st, err := postgres.NewPostgresCheckpointStore(ctx, postgres.PostgresOptions{
//	    ConnString: os.Getenv("DATABASE_URL"),
//	})
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//	if err := st.InitSchema(ctx); err != nil {
//	    return err
//	}
package postgres
