package lending

import (
	"context"
	"fmt"
	"math/big"

	"github.com/mkell/chainlend/internal/chain"
)

// Backend is the slice of the RPC client the contract handle needs.
type Backend interface {
	EthCall(ctx context.Context, to string, calldata []byte) ([]byte, error)
	PendingNonceAt(ctx context.Context, addr string) (uint64, error)
	SendTransaction(ctx context.Context, tx chain.Tx) (string, error)
	WaitMined(ctx context.Context, hash string) (*chain.Receipt, error)
}

// Client is a typed handle to the lending contract at a fixed address.
// Construction is pure setup; every method round-trips to the node.
type Client struct {
	backend Backend
	address string
}

func NewClient(backend Backend, address string) *Client {
	return &Client{backend: backend, address: address}
}

// Address returns the bound contract address.
func (c *Client) Address() string { return c.address }

// ActiveLoans reads the contract's active-loan set as parallel arrays
// and zips them into records.
func (c *Client) ActiveLoans(ctx context.Context) ([]Loan, error) {
	data, err := c.backend.EthCall(ctx, c.address, chain.EncodeGetActiveLoans())
	if err != nil {
		return nil, fmt.Errorf("getActiveLoans: %w", err)
	}
	ids, err := chain.DecodeUint256Slice(data, 0)
	if err != nil {
		return nil, fmt.Errorf("getActiveLoans ids: %w", err)
	}
	borrowers, err := chain.DecodeAddressSlice(data, 1)
	if err != nil {
		return nil, fmt.Errorf("getActiveLoans borrowers: %w", err)
	}
	amounts, err := chain.DecodeUint256Slice(data, 2)
	if err != nil {
		return nil, fmt.Errorf("getActiveLoans amounts: %w", err)
	}
	stakes, err := chain.DecodeUint256Slice(data, 3)
	if err != nil {
		return nil, fmt.Errorf("getActiveLoans stakes: %w", err)
	}
	rates, err := chain.DecodeUint256Slice(data, 4)
	if err != nil {
		return nil, fmt.Errorf("getActiveLoans rates: %w", err)
	}
	endTimes, err := chain.DecodeUint256Slice(data, 5)
	if err != nil {
		return nil, fmt.Errorf("getActiveLoans endTimes: %w", err)
	}
	if err := sameLength(len(ids), len(borrowers), len(amounts), len(stakes), len(rates), len(endTimes)); err != nil {
		return nil, fmt.Errorf("getActiveLoans: %w", err)
	}

	loans := make([]Loan, 0, len(ids))
	for i := range ids {
		loans = append(loans, Loan{
			ID:       ids[i],
			Borrower: borrowers[i],
			Amount:   amounts[i],
			Stake:    stakes[i],
			Rate:     rates[i],
			EndTime:  endTimes[i],
		})
	}
	return loans, nil
}

// LoanRequests reads the pending-request set.
func (c *Client) LoanRequests(ctx context.Context) ([]Request, error) {
	data, err := c.backend.EthCall(ctx, c.address, chain.EncodeGetLoanRequests())
	if err != nil {
		return nil, fmt.Errorf("getLoanRequests: %w", err)
	}
	ids, err := chain.DecodeUint256Slice(data, 0)
	if err != nil {
		return nil, fmt.Errorf("getLoanRequests ids: %w", err)
	}
	borrowers, err := chain.DecodeAddressSlice(data, 1)
	if err != nil {
		return nil, fmt.Errorf("getLoanRequests borrowers: %w", err)
	}
	amounts, err := chain.DecodeUint256Slice(data, 2)
	if err != nil {
		return nil, fmt.Errorf("getLoanRequests amounts: %w", err)
	}
	collaterals, err := chain.DecodeUint256Slice(data, 3)
	if err != nil {
		return nil, fmt.Errorf("getLoanRequests collaterals: %w", err)
	}
	rates, err := chain.DecodeUint256Slice(data, 4)
	if err != nil {
		return nil, fmt.Errorf("getLoanRequests rates: %w", err)
	}
	durations, err := chain.DecodeUint256Slice(data, 5)
	if err != nil {
		return nil, fmt.Errorf("getLoanRequests durations: %w", err)
	}
	if err := sameLength(len(ids), len(borrowers), len(amounts), len(collaterals), len(rates), len(durations)); err != nil {
		return nil, fmt.Errorf("getLoanRequests: %w", err)
	}

	reqs := make([]Request, 0, len(ids))
	for i := range ids {
		reqs = append(reqs, Request{
			ID:           ids[i],
			Borrower:     borrowers[i],
			Amount:       amounts[i],
			Collateral:   collaterals[i],
			Rate:         rates[i],
			DurationDays: durations[i],
		})
	}
	return reqs, nil
}

// Book reads both sets. The two reads are not atomic; the list view
// fully replaces its state on every refresh so a skewed snapshot only
// lasts until the next one.
func (c *Client) Book(ctx context.Context) (Book, error) {
	active, err := c.ActiveLoans(ctx)
	if err != nil {
		return Book{}, err
	}
	requests, err := c.LoanRequests(ctx)
	if err != nil {
		return Book{}, err
	}
	return Book{Active: active, Requests: requests}, nil
}

// Loan reads a single active loan by id.
func (c *Client) Loan(ctx context.Context, id *big.Int) (Loan, error) {
	data, err := c.backend.EthCall(ctx, c.address, chain.EncodeGetLoan(id))
	if err != nil {
		return Loan{}, fmt.Errorf("getLoan %s: %w", id, err)
	}
	borrower, err := chain.DecodeAddressAt(data, 0)
	if err != nil {
		return Loan{}, fmt.Errorf("getLoan %s: %w", id, err)
	}
	amount, err := chain.DecodeUint256At(data, 1)
	if err != nil {
		return Loan{}, fmt.Errorf("getLoan %s: %w", id, err)
	}
	stake, err := chain.DecodeUint256At(data, 2)
	if err != nil {
		return Loan{}, fmt.Errorf("getLoan %s: %w", id, err)
	}
	rate, err := chain.DecodeUint256At(data, 3)
	if err != nil {
		return Loan{}, fmt.Errorf("getLoan %s: %w", id, err)
	}
	endTime, err := chain.DecodeUint256At(data, 4)
	if err != nil {
		return Loan{}, fmt.Errorf("getLoan %s: %w", id, err)
	}
	return Loan{ID: id, Borrower: borrower, Amount: amount, Stake: stake, Rate: rate, EndTime: endTime}, nil
}

// CreateRequest submits createLoanRequest with the collateral attached
// as value and waits for the receipt.
func (c *Client) CreateRequest(ctx context.Context, from string, amount, durationDays, rate, collateral *big.Int) (string, error) {
	return c.send(ctx, from, collateral, chain.GasLimitCreateRequest,
		chain.EncodeCreateLoanRequest(amount, durationDays, rate))
}

// Repay submits repayLoan with the full amount due attached as value
// and waits for the receipt.
func (c *Client) Repay(ctx context.Context, from string, id, total *big.Int) (string, error) {
	return c.send(ctx, from, total, chain.GasLimitRepay, chain.EncodeRepayLoan(id))
}

func (c *Client) send(ctx context.Context, from string, value *big.Int, gas uint64, calldata []byte) (string, error) {
	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("fetch nonce: %w", err)
	}
	hash, err := c.backend.SendTransaction(ctx, chain.Tx{
		From:  from,
		To:    c.address,
		Value: value,
		Gas:   gas,
		Nonce: nonce,
		Data:  calldata,
	})
	if err != nil {
		return "", err
	}
	if _, err := c.backend.WaitMined(ctx, hash); err != nil {
		return hash, err
	}
	return hash, nil
}

func sameLength(lengths ...int) error {
	for _, n := range lengths[1:] {
		if n != lengths[0] {
			return fmt.Errorf("parallel arrays disagree on length")
		}
	}
	return nil
}
