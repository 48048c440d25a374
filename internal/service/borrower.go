package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mkell/chainlend/internal/chain"
	"github.com/mkell/chainlend/internal/database/repository"
	"github.com/mkell/chainlend/internal/lending"
)

// Client-side validation limits. The contract is authoritative; these
// only stop obviously bad input before it reaches the network.
const (
	MinInterestRate = 0
	MaxInterestRate = 7
)

var (
	ErrDateNotFuture = errors.New("due date must be in the future")
	ErrBadAmount     = errors.New("amount must be a positive ether value")
	ErrBadRate       = fmt.Errorf("interest rate must be between %d and %d", MinInterestRate, MaxInterestRate)
	ErrNotConnected  = errors.New("wallet not connected")
	ErrNotBound      = errors.New("contract not bound")
)

// LoanState is the lifecycle state a row is tagged with. The contract
// owns the transitions; the view only labels what it read.
type LoanState string

const (
	StatePending LoanState = "PENDING"
	StateActive  LoanState = "ACTIVE"
)

// LoanRow is the common view-model both read sets map into. Rebuilt in
// full on every refresh, never diffed.
type LoanRow struct {
	ID       *big.Int
	Borrower string
	Amount   *big.Int
	Stake    *big.Int
	Rate     int64
	State    LoanState
	// Term is the end date (local date string) for active loans and
	// the raw duration in days for pending requests.
	Term string
}

// FormInput is the transient loan-request form state.
type FormInput struct {
	Amount     string
	Collateral string
	Rate       string
	DueDate    string // 2006-01-02
}

// SubmitResult reports a confirmed loan-request transaction.
type SubmitResult struct {
	TxHash       string
	AmountWei    *big.Int
	DurationDays int64
	Rate         int64
}

// RepayResult reports a confirmed repayment.
type RepayResult struct {
	TxHash       string
	TotalWei     *big.Int
	FiatEstimate float64
	FiatCurrency string
}

// ContractClient is the contract surface the service consumes,
// satisfied by *lending.Client and by fakes in tests.
type ContractClient interface {
	Book(ctx context.Context) (lending.Book, error)
	Loan(ctx context.Context, id *big.Int) (lending.Loan, error)
	CreateRequest(ctx context.Context, from string, amount, durationDays, rate, collateral *big.Int) (string, error)
	Repay(ctx context.Context, from string, id, total *big.Int) (string, error)
}

// PriceSource provides a fiat spot price for ether.
type PriceSource interface {
	EtherSpot(ctx context.Context, currency string) (float64, error)
}

// BorrowerService drives the three borrower flows: submit a request,
// list loans, repay. It holds no loan state of its own.
type BorrowerService struct {
	Contract ContractClient
	Prices   PriceSource
	Journal  *repository.ActivityRepo // optional
	Currency string
	Now      func() time.Time // nil = time.Now
}

func (s *BorrowerService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ValidRateInput reports whether a partially typed interest-rate string
// is acceptable. Used per keystroke: a rejected rune keeps the prior
// buffer. Empty and a bare trailing dot are allowed while typing.
func ValidRateInput(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "."), 64)
	if err != nil {
		return false
	}
	return v >= MinInterestRate && v <= MaxInterestRate
}

// DurationDays returns the loan term as whole days, rounding up the
// gap between due and now.
func DurationDays(due, now time.Time) int64 {
	return int64(math.Ceil(due.Sub(now).Hours() / 24))
}

// RepaymentTotal computes principal + floor(principal*rate/100) in wei.
func RepaymentTotal(principal, rate *big.Int) *big.Int {
	interest := new(big.Int).Mul(principal, rate)
	interest.Div(interest, big.NewInt(100))
	return interest.Add(interest, principal)
}

// MergeForBorrower maps both read sets into rows, active first then
// pending in source order, keeping only rows whose borrower matches
// addr case-insensitively.
func MergeForBorrower(book lending.Book, addr string, loc *time.Location) []LoanRow {
	if loc == nil {
		loc = time.Local
	}
	rows := make([]LoanRow, 0, len(book.Active)+len(book.Requests))
	for _, l := range book.Active {
		if !chain.EqualAddress(l.Borrower, addr) {
			continue
		}
		end := time.Unix(l.EndTime.Int64(), 0).In(loc).Format("2006-01-02")
		rows = append(rows, LoanRow{
			ID:       l.ID,
			Borrower: l.Borrower,
			Amount:   l.Amount,
			Stake:    l.Stake,
			Rate:     l.Rate.Int64(),
			State:    StateActive,
			Term:     end,
		})
	}
	for _, r := range book.Requests {
		if !chain.EqualAddress(r.Borrower, addr) {
			continue
		}
		rows = append(rows, LoanRow{
			ID:       r.ID,
			Borrower: r.Borrower,
			Amount:   r.Amount,
			Stake:    r.Collateral,
			Rate:     r.Rate.Int64(),
			State:    StatePending,
			Term:     fmt.Sprintf("%sd", r.DurationDays),
		})
	}
	return rows
}

// LoanRows fetches a fresh snapshot filtered to the connected address.
func (s *BorrowerService) LoanRows(ctx context.Context, addr string, loc *time.Location) ([]LoanRow, error) {
	if s.Contract == nil {
		return nil, ErrNotBound
	}
	book, err := s.Contract.Book(ctx)
	if err != nil {
		return nil, err
	}
	return MergeForBorrower(book, addr, loc), nil
}

// SubmitRequest validates and converts the form, then sends a single
// createLoanRequest transaction with the collateral attached as value.
// All validation failures happen before any network call.
func (s *BorrowerService) SubmitRequest(ctx context.Context, from string, in FormInput) (SubmitResult, error) {
	if s.Contract == nil {
		return SubmitResult{}, ErrNotBound
	}
	if from == "" {
		return SubmitResult{}, ErrNotConnected
	}

	amountWei, err := chain.ParseEther(in.Amount)
	if err != nil || amountWei.Sign() <= 0 {
		return SubmitResult{}, ErrBadAmount
	}
	collateralWei, err := chain.ParseEther(in.Collateral)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("collateral: %w", err)
	}

	rateF, err := strconv.ParseFloat(strings.TrimSpace(in.Rate), 64)
	if err != nil || rateF < MinInterestRate || rateF > MaxInterestRate {
		return SubmitResult{}, ErrBadRate
	}
	rate := int64(math.Floor(rateF))

	due, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(in.DueDate), s.now().Location())
	if err != nil {
		return SubmitResult{}, fmt.Errorf("due date: %w", err)
	}
	duration := DurationDays(due, s.now())
	if duration <= 0 {
		return SubmitResult{}, ErrDateNotFuture
	}

	hash, err := s.Contract.CreateRequest(ctx, from, amountWei,
		big.NewInt(duration), big.NewInt(rate), collateralWei)
	if err != nil {
		return SubmitResult{}, err
	}

	s.journal(ctx, repository.ActivityKindRequest, "", amountWei, hash)
	return SubmitResult{TxHash: hash, AmountWei: amountWei, DurationDays: duration, Rate: rate}, nil
}

// RepayLoan reads the loan, fetches the fiat spot price, then sends a
// repayLoan transaction carrying principal plus interest as value. A
// failed price fetch aborts before any transaction is attempted; the
// price itself never changes the amount due, it only feeds the fiat
// estimate on the result.
func (s *BorrowerService) RepayLoan(ctx context.Context, from string, id *big.Int) (RepayResult, error) {
	if s.Contract == nil {
		return RepayResult{}, ErrNotBound
	}
	if from == "" {
		return RepayResult{}, ErrNotConnected
	}

	loan, err := s.Contract.Loan(ctx, id)
	if err != nil {
		return RepayResult{}, err
	}

	currency := s.Currency
	if currency == "" {
		currency = "usd"
	}
	spot, err := s.Prices.EtherSpot(ctx, currency)
	if err != nil {
		return RepayResult{}, fmt.Errorf("price fetch: %w", err)
	}

	total := RepaymentTotal(loan.Amount, loan.Rate)
	hash, err := s.Contract.Repay(ctx, from, id, total)
	if err != nil {
		return RepayResult{}, err
	}

	s.journal(ctx, repository.ActivityKindRepayment, id.String(), total, hash)
	return RepayResult{
		TxHash:       hash,
		TotalWei:     total,
		FiatEstimate: etherValue(total) * spot,
		FiatCurrency: currency,
	}, nil
}

func (s *BorrowerService) journal(ctx context.Context, kind, loanID string, amount *big.Int, txHash string) {
	if s.Journal == nil {
		return
	}
	// Journal failures never fail the flow; the chain already holds the truth.
	_ = s.Journal.Insert(ctx, repository.Activity{
		ID:        uuid.NewString(),
		Kind:      kind,
		LoanID:    loanID,
		AmountWei: amount.String(),
		TxHash:    txHash,
		CreatedAt: s.now().UTC(),
	})
}

func etherValue(wei *big.Int) float64 {
	f, _ := new(big.Float).Quo(
		new(big.Float).SetInt(wei),
		big.NewFloat(1e18),
	).Float64()
	return f
}
