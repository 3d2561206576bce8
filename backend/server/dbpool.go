package server

import (
	"database/sql"
	"sync"

	"mangrovewatch/common"
)

var (
	serverDBOnce sync.Once
	serverDB     *sql.DB
	serverDBErr  error

	// connectDB is swapped out by handler tests.
	connectDB = common.DBConnect
)

func getServerDB() (*sql.DB, error) {
	serverDBOnce.Do(func() {
		serverDB, serverDBErr = connectDB()
	})
	return serverDB, serverDBErr
}

func closeServerDB() {
	if serverDB != nil {
		_ = serverDB.Close()
	}
}
