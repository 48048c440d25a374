package lending

import "math/big"

// Loan is an active loan as stored by the contract. EndTime is unix
// seconds; all amounts are wei.
type Loan struct {
	ID       *big.Int
	Borrower string
	Amount   *big.Int
	Stake    *big.Int
	Rate     *big.Int
	EndTime  *big.Int
}

// Request is a pending loan request awaiting a lender. Collateral is
// wei; DurationDays is the requested term.
type Request struct {
	ID           *big.Int
	Borrower     string
	Amount       *big.Int
	Collateral   *big.Int
	Rate         *big.Int
	DurationDays *big.Int
}

// Book is one consistent snapshot of both contract read sets.
type Book struct {
	Active   []Loan
	Requests []Request
}
