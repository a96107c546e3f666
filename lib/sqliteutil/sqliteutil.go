package sqliteutil

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// OpenDB opens a local sqlite database at path and applies the given
// schema. A re-applied schema is tolerated so runs can share a store.
func OpenDB(schema, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenRemoteDB opens a libsql database over a url, with an optional
// auth token.
func OpenRemoteDB(dbUrl, authToken string) (*sql.DB, error) {
	if dbUrl == "" {
		return nil, fmt.Errorf("a database url was not specified")
	}
	values := url.Values{}
	if authToken != "" {
		values.Add("authToken", authToken)
	}
	return sql.Open("libsql", dbUrl+"?"+values.Encode())
}
