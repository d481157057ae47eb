package store

import (
	"context"
	"database/sql"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// builder renders statements in SQLite syntax.
var builder = entsql.Dialect(dialect.SQLite)

type scanner interface {
	Scan(dest ...any) error
}

func execStmt(ctx context.Context, drv dialect.ExecQuerier, stmt entsql.Querier) (sql.Result, error) {
	query, args := stmt.Query()
	var res sql.Result
	if err := drv.Exec(ctx, query, args, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func queryRows(ctx context.Context, drv dialect.ExecQuerier, stmt entsql.Querier) (*entsql.Rows, error) {
	query, args := stmt.Query()
	rows := &entsql.Rows{}
	if err := drv.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// queryOne scans the first row of stmt. It reports false when stmt
// matched nothing.
func queryOne(ctx context.Context, drv dialect.ExecQuerier, stmt entsql.Querier, scan func(scanner) error) (bool, error) {
	rows, err := queryRows(ctx, drv, stmt)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	if !rows.Next() {
		return false, rows.Err()
	}
	if err := scan(rows); err != nil {
		return false, err
	}
	return true, nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
