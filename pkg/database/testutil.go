package database

import (
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

// NewMockPool returns a pgxmock pool that satisfies DBTX, for repository
// tests. Queries are matched with the default regexp matcher; call
// ExpectationsWereMet at the end of each test.
func NewMockPool() (pgxmock.PgxPoolIface, error) {
	pool, err := pgxmock.NewPool()
	if err != nil {
		return nil, err
	}
	return pool, nil
}
