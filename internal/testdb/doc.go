//go:build integration

// Package testdb provides helpers for tests that run against a live
// PostgreSQL database.
//
// Tests using it are compiled only with the integration build tag and skip
// themselves unless SKILLFORGE_TEST_DATABASE_URL (or DATABASE_URL) is set:
//
//	func TestJobStoreIntegration(t *testing.T) {
//	    db := testdb.Open(t)
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        // queries on tx are rolled back when fn returns
//	    })
//	}
//
// Open applies the embedded goose migrations once per process and truncates
// every application table when the test finishes, so stores that manage
// their own transactions can be tested too.
package testdb
