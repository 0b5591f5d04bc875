package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicate はユニーク制約違反により作成できなかったことを示す。
var ErrDuplicate = errors.New("duplicate record")

// uniqueViolation はPostgreSQLのunique_violationのSQLSTATE。
const uniqueViolation = "23505"

// isUniqueViolation はエラーがユニーク制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}
