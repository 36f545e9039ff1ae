//go:build windows

package storage

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// SQLite is not compiled into windows builds, so only MySQL driver errors
// need mapping here.
func normalizeDBError(driverErr error, mappedError map[uint16]error) (err error) {
	err = driverErr
	var mysqlErr *mysql.MySQLError
	if errors.As(driverErr, &mysqlErr) {
		err = lookup(mysqlErr.Number, mappedError, mysqlErr)
	}
	return err
}

func lookup(number uint16, mappedError map[uint16]error, defaultErr error) (err error) {
	err = defaultErr
	if mappedErr, ok := mappedError[number]; ok {
		err = mappedErr
	}
	return err
}
