package service

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mkell/chainlend/internal/lending"
)

const (
	borrowerAddr = "0x00112233445566778899aabbccddeeff00112233"
	otherAddr    = "0xffeeddccbbaa99887766554433221100ffeeddcc"
)

type fakeContract struct {
	book    lending.Book
	bookErr error
	loan    lending.Loan
	loanErr error

	createCalls int
	createdWith []*big.Int // amount, duration, rate, collateral
	createErr   error

	repayCalls int
	repaidWith []*big.Int // id, total
	repayErr   error
}

func (f *fakeContract) Book(context.Context) (lending.Book, error) { return f.book, f.bookErr }

func (f *fakeContract) Loan(context.Context, *big.Int) (lending.Loan, error) {
	return f.loan, f.loanErr
}

func (f *fakeContract) CreateRequest(_ context.Context, _ string, amount, durationDays, rate, collateral *big.Int) (string, error) {
	f.createCalls++
	if f.createErr != nil {
		return "", f.createErr
	}
	f.createdWith = []*big.Int{amount, durationDays, rate, collateral}
	return "0xcreated", nil
}

func (f *fakeContract) Repay(_ context.Context, _ string, id, total *big.Int) (string, error) {
	f.repayCalls++
	if f.repayErr != nil {
		return "", f.repayErr
	}
	f.repaidWith = []*big.Int{id, total}
	return "0xrepaid", nil
}

type fakePrice struct {
	spot  float64
	err   error
	calls int
}

func (f *fakePrice) EtherSpot(context.Context, string) (float64, error) {
	f.calls++
	return f.spot, f.err
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func newService(contract *fakeContract, prices *fakePrice) *BorrowerService {
	return &BorrowerService{Contract: contract, Prices: prices, Currency: "usd", Now: fixedNow}
}

func TestValidRateInput(t *testing.T) {
	t.Parallel()

	for _, ok := range []string{"", "0", "3", "7", "3.5", "3.", "0.01"} {
		require.True(t, ValidRateInput(ok), ok)
	}
	for _, bad := range []string{"8", "7.1", "-1", "abc", "3..5", "1e3"} {
		require.False(t, ValidRateInput(bad), bad)
	}
}

func TestDurationDaysRoundsUp(t *testing.T) {
	t.Parallel()

	now := fixedNow()
	require.EqualValues(t, 10, DurationDays(now.Add(10*24*time.Hour), now))
	require.EqualValues(t, 10, DurationDays(now.Add(9*24*time.Hour+time.Hour), now))
	require.EqualValues(t, 0, DurationDays(now, now))
	require.Negative(t, DurationDays(now.Add(-48*time.Hour), now))
}

func TestRepaymentTotal(t *testing.T) {
	t.Parallel()

	// 2 ether at 5% -> 2.1 ether
	principal, _ := new(big.Int).SetString("2000000000000000000", 10)
	total := RepaymentTotal(principal, big.NewInt(5))
	require.Equal(t, "2100000000000000000", total.String())

	// zero rate repays exactly the principal
	total = RepaymentTotal(principal, big.NewInt(0))
	require.Zero(t, total.Cmp(principal))

	// interest floors: 3 wei at 5% adds nothing
	total = RepaymentTotal(big.NewInt(3), big.NewInt(5))
	require.EqualValues(t, 3, total.Int64())
}

func TestSubmitRequest(t *testing.T) {
	t.Parallel()

	contract := &fakeContract{}
	svc := newService(contract, &fakePrice{spot: 2000})

	res, err := svc.SubmitRequest(context.Background(), borrowerAddr, FormInput{
		Amount:     "1",
		Collateral: "2",
		Rate:       "5",
		DueDate:    "2026-03-11", // 10 days out from the fixed clock
	})
	require.NoError(t, err)
	require.Equal(t, "0xcreated", res.TxHash)
	require.EqualValues(t, 10, res.DurationDays)
	require.EqualValues(t, 5, res.Rate)
	require.Equal(t, "1000000000000000000", res.AmountWei.String())

	require.Equal(t, 1, contract.createCalls)
	require.Equal(t, "1000000000000000000", contract.createdWith[0].String())
	require.EqualValues(t, 10, contract.createdWith[1].Int64())
	require.EqualValues(t, 5, contract.createdWith[2].Int64())
	require.Equal(t, "2000000000000000000", contract.createdWith[3].String())
}

func TestSubmitRequestFloorsFractionalRate(t *testing.T) {
	t.Parallel()

	contract := &fakeContract{}
	svc := newService(contract, &fakePrice{spot: 2000})

	res, err := svc.SubmitRequest(context.Background(), borrowerAddr, FormInput{
		Amount: "1", Collateral: "2", Rate: "5.9", DueDate: "2026-03-11",
	})
	require.NoError(t, err)
	require.EqualValues(t, 5, res.Rate)
}

func TestSubmitRequestValidationBeforeNetwork(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   FormInput
		want error
	}{
		{"bad amount", FormInput{Amount: "x", Collateral: "2", Rate: "5", DueDate: "2026-03-11"}, ErrBadAmount},
		{"zero amount", FormInput{Amount: "0", Collateral: "2", Rate: "5", DueDate: "2026-03-11"}, ErrBadAmount},
		{"rate too high", FormInput{Amount: "1", Collateral: "2", Rate: "8", DueDate: "2026-03-11"}, ErrBadRate},
		{"rate negative", FormInput{Amount: "1", Collateral: "2", Rate: "-1", DueDate: "2026-03-11"}, ErrBadRate},
		{"past date", FormInput{Amount: "1", Collateral: "2", Rate: "5", DueDate: "2026-02-01"}, ErrDateNotFuture},
		{"same day", FormInput{Amount: "1", Collateral: "2", Rate: "5", DueDate: "2026-03-01"}, ErrDateNotFuture},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			contract := &fakeContract{}
			svc := newService(contract, &fakePrice{spot: 2000})

			_, err := svc.SubmitRequest(context.Background(), borrowerAddr, tc.in)
			require.ErrorIs(t, err, tc.want)
			require.Zero(t, contract.createCalls, "no network call on invalid input")
		})
	}
}

func TestSubmitRequestNotConnected(t *testing.T) {
	t.Parallel()

	contract := &fakeContract{}
	svc := newService(contract, &fakePrice{spot: 2000})

	_, err := svc.SubmitRequest(context.Background(), "", FormInput{
		Amount: "1", Collateral: "2", Rate: "5", DueDate: "2026-03-11",
	})
	require.ErrorIs(t, err, ErrNotConnected)
	require.Zero(t, contract.createCalls)
}

func TestRepayLoan(t *testing.T) {
	t.Parallel()

	principal, _ := new(big.Int).SetString("2000000000000000000", 10)
	contract := &fakeContract{
		loan: lending.Loan{ID: big.NewInt(4), Borrower: borrowerAddr, Amount: principal, Rate: big.NewInt(5)},
	}
	prices := &fakePrice{spot: 2000}
	svc := newService(contract, prices)

	res, err := svc.RepayLoan(context.Background(), borrowerAddr, big.NewInt(4))
	require.NoError(t, err)
	require.Equal(t, "0xrepaid", res.TxHash)
	require.Equal(t, "2100000000000000000", res.TotalWei.String())
	require.InDelta(t, 2.1*2000, res.FiatEstimate, 1e-6)
	require.Equal(t, "usd", res.FiatCurrency)

	require.Equal(t, 1, prices.calls)
	require.Equal(t, 1, contract.repayCalls)
	require.EqualValues(t, 4, contract.repaidWith[0].Int64())
}

func TestRepayTotalUnaffectedBySpotPrice(t *testing.T) {
	t.Parallel()

	principal, _ := new(big.Int).SetString("2000000000000000000", 10)
	loan := lending.Loan{ID: big.NewInt(4), Borrower: borrowerAddr, Amount: principal, Rate: big.NewInt(5)}

	var totals []string
	for _, spot := range []float64{1, 1800, 99999} {
		contract := &fakeContract{loan: loan}
		svc := newService(contract, &fakePrice{spot: spot})
		res, err := svc.RepayLoan(context.Background(), borrowerAddr, big.NewInt(4))
		require.NoError(t, err)
		totals = append(totals, res.TotalWei.String())
	}
	require.Equal(t, totals[0], totals[1])
	require.Equal(t, totals[1], totals[2])
}

func TestRepayAbortsOnPriceFailure(t *testing.T) {
	t.Parallel()

	contract := &fakeContract{
		loan: lending.Loan{ID: big.NewInt(4), Borrower: borrowerAddr, Amount: big.NewInt(1000), Rate: big.NewInt(5)},
	}
	svc := newService(contract, &fakePrice{err: errors.New("api down")})

	_, err := svc.RepayLoan(context.Background(), borrowerAddr, big.NewInt(4))
	require.Error(t, err)
	require.Contains(t, err.Error(), "price fetch")
	require.Zero(t, contract.repayCalls, "no transaction after a failed price fetch")
}

func TestRepayLoanReadFailure(t *testing.T) {
	t.Parallel()

	prices := &fakePrice{spot: 2000}
	contract := &fakeContract{loanErr: errors.New("no such loan")}
	svc := newService(contract, prices)

	_, err := svc.RepayLoan(context.Background(), borrowerAddr, big.NewInt(99))
	require.Error(t, err)
	require.Zero(t, prices.calls)
	require.Zero(t, contract.repayCalls)
}

func TestMergeForBorrower(t *testing.T) {
	t.Parallel()

	endTime := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	book := lending.Book{
		Active: []lending.Loan{
			{ID: big.NewInt(1), Borrower: borrowerAddr, Amount: big.NewInt(1000), Stake: big.NewInt(2500), Rate: big.NewInt(5), EndTime: big.NewInt(endTime.Unix())},
			{ID: big.NewInt(2), Borrower: otherAddr, Amount: big.NewInt(9999), Stake: big.NewInt(1), Rate: big.NewInt(1), EndTime: big.NewInt(endTime.Unix())},
		},
		Requests: []lending.Request{
			{ID: big.NewInt(3), Borrower: borrowerAddr, Amount: big.NewInt(500), Collateral: big.NewInt(1200), Rate: big.NewInt(4), DurationDays: big.NewInt(30)},
		},
	}

	rows := MergeForBorrower(book, borrowerAddr, time.UTC)
	require.Len(t, rows, 2)

	require.Equal(t, StateActive, rows[0].State)
	require.EqualValues(t, 1, rows[0].ID.Int64())
	require.Equal(t, "2026-04-01", rows[0].Term)

	require.Equal(t, StatePending, rows[1].State)
	require.EqualValues(t, 3, rows[1].ID.Int64())
	require.EqualValues(t, 1200, rows[1].Stake.Int64())
	require.Equal(t, "30d", rows[1].Term)
}

func TestMergeForBorrowerCaseInsensitive(t *testing.T) {
	t.Parallel()

	book := lending.Book{
		Active: []lending.Loan{
			{ID: big.NewInt(1), Borrower: "0x00112233445566778899AABBCCDDEEFF00112233", Amount: big.NewInt(1), Stake: big.NewInt(1), Rate: big.NewInt(1), EndTime: big.NewInt(0)},
		},
	}
	rows := MergeForBorrower(book, borrowerAddr, time.UTC)
	require.Len(t, rows, 1)
}

func TestLoanRowsUnbound(t *testing.T) {
	t.Parallel()

	svc := &BorrowerService{}
	_, err := svc.LoanRows(context.Background(), borrowerAddr, time.UTC)
	require.ErrorIs(t, err, ErrNotBound)
}
