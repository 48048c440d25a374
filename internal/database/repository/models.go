package repository

import "time"

// Activity kinds.
const (
	ActivityKindRequest   = "request"
	ActivityKindRepayment = "repayment"
)

// Activity is one journaled transaction submission. The chain is the
// source of truth for loan state; this row only records that this
// client sent something and when.
type Activity struct {
	ID        string
	Kind      string
	LoanID    string
	AmountWei string
	TxHash    string
	CreatedAt time.Time
}
