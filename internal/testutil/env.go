package testutil

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
)

const (
	EnvMongoURI    = "TEST_MONGO_URI"
	EnvDatabaseURL = "TEST_DATABASE_URL"
)

// MongoURI returns the test server URI or skips t. Transactions need a replica
// set, e.g. mongodb://localhost:27017/?replicaSet=rs0.
func MongoURI(t *testing.T) string {
	t.Helper()
	uri := os.Getenv(EnvMongoURI)
	if uri == "" {
		t.Skipf("%s not set, skipping Mongo integration test", EnvMongoURI)
	}
	return uri
}

// DatabaseURL returns the Postgres DSN or skips t.
func DatabaseURL(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv(EnvDatabaseURL)
	if dsn == "" {
		t.Skipf("%s not set, skipping Postgres integration test", EnvDatabaseURL)
	}
	return dsn
}

// UniqueName builds a per-test database or schema name.
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, strings.ReplaceAll(uuid.NewString()[:8], "-", ""))
}
