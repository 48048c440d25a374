package wallet

import (
	"context"
	"errors"
	"math/big"

	"github.com/mkell/chainlend/internal/chain"
)

// ErrNoAccounts is returned when the node exposes no signing accounts,
// the moral equivalent of the user rejecting the authorization prompt.
var ErrNoAccounts = errors.New("wallet: no accounts authorized")

// Session is the connected-wallet state the view renders.
type Session struct {
	Address    string
	BalanceWei *big.Int
}

// Balance returns the session balance as a decimal ether string.
func (s Session) Balance() string {
	return chain.FormatEther(s.BalanceWei)
}

// Provider reads accounts and balances from a wallet-bearing node.
type Provider interface {
	Accounts(ctx context.Context) ([]string, error)
	BalanceAt(ctx context.Context, addr string) (*big.Int, error)
}

// Connector requests account access and tracks the primary account.
type Connector struct {
	provider Provider
}

func NewConnector(p Provider) *Connector {
	return &Connector{provider: p}
}

// Connect asks the node for its accounts and returns a session for the
// first one with its current balance. No retry on failure.
func (c *Connector) Connect(ctx context.Context) (Session, error) {
	accounts, err := c.provider.Accounts(ctx)
	if err != nil {
		return Session{}, err
	}
	if len(accounts) == 0 {
		return Session{}, ErrNoAccounts
	}
	return c.sessionFor(ctx, accounts[0])
}

// PrimaryAccount returns the node's current first account, or "" when
// none is authorized. Used by the account-change poller.
func (c *Connector) PrimaryAccount(ctx context.Context) (string, error) {
	accounts, err := c.provider.Accounts(ctx)
	if err != nil {
		return "", err
	}
	if len(accounts) == 0 {
		return "", nil
	}
	return accounts[0], nil
}

// Refresh re-reads the balance for addr, used after a confirmed
// transaction or an account change.
func (c *Connector) Refresh(ctx context.Context, addr string) (Session, error) {
	return c.sessionFor(ctx, addr)
}

func (c *Connector) sessionFor(ctx context.Context, addr string) (Session, error) {
	balance, err := c.provider.BalanceAt(ctx, addr)
	if err != nil {
		return Session{}, err
	}
	return Session{Address: addr, BalanceWei: balance}, nil
}
