package repository

import (
	"context"
	"database/sql"
)

// ActivityRepo handles the local transaction journal.
type ActivityRepo struct {
	db *sql.DB
}

func NewActivityRepo(db *sql.DB) *ActivityRepo { return &ActivityRepo{db: db} }

func (r *ActivityRepo) Insert(ctx context.Context, a Activity) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO activity(id, kind, loan_id, amount_wei, tx_hash, created_at)
	VALUES(?, ?, ?, ?, ?, ?);
	`, a.ID, a.Kind, a.LoanID, a.AmountWei, a.TxHash, a.CreatedAt)
	return err
}

// List returns journal rows newest first, capped at limit (0 = all).
func (r *ActivityRepo) List(ctx context.Context, limit int) ([]Activity, error) {
	query := `SELECT id, kind, loan_id, amount_wei, tx_hash, created_at FROM activity ORDER BY created_at DESC, id DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.Kind, &a.LoanID, &a.AmountWei, &a.TxHash, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
