//go:build !windows

package storage

import (
	"github.com/go-sql-driver/mysql"
	sqlite "github.com/mattn/go-sqlite3"
)

// mysqlDuplicateEntryErrNo is the MySQL error number the error map is keyed by;
// equivalent SQLite constraint violations are folded onto the same key.
const mysqlDuplicateEntryErrNo uint16 = 1062

func normalizeDBError(driverErr error, mappedError map[uint16]error) (err error) {
	err = driverErr
	switch typedErr := driverErr.(type) {
	case *mysql.MySQLError:
		err = lookup(typedErr.Number, mappedError, typedErr)
	case sqlite.Error:
		if typedErr.Code == sqlite.ErrConstraint {
			err = lookup(mysqlDuplicateEntryErrNo, mappedError, typedErr)
		}
	case *sqlite.ErrNo:
		if *typedErr == sqlite.ErrConstraint {
			err = lookup(mysqlDuplicateEntryErrNo, mappedError, typedErr)
		}
	case *sqlite.ErrNoExtended:
		if *typedErr == sqlite.ErrConstraintUnique || *typedErr == sqlite.ErrConstraintPrimaryKey {
			err = lookup(mysqlDuplicateEntryErrNo, mappedError, typedErr)
		}
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
