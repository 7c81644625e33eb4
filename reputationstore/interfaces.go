package reputationstore

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
