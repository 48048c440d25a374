package wallet

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	accounts    []string
	accountsErr error
	balances    map[string]*big.Int
	balanceErr  error
}

func (f *fakeProvider) Accounts(context.Context) ([]string, error) {
	return f.accounts, f.accountsErr
}

func (f *fakeProvider) BalanceAt(_ context.Context, addr string) (*big.Int, error) {
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	return f.balances[addr], nil
}

func TestConnect(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{
		accounts: []string{"0xaaa", "0xbbb"},
		balances: map[string]*big.Int{"0xaaa": big.NewInt(1_500_000_000_000_000_000)},
	}
	c := NewConnector(p)

	session, err := c.Connect(context.Background())
	require.NoError(t, err)
	require.Equal(t, "0xaaa", session.Address)
	require.Equal(t, "1.5000", session.Balance())
}

func TestConnectNoAccounts(t *testing.T) {
	t.Parallel()

	c := NewConnector(&fakeProvider{})
	_, err := c.Connect(context.Background())
	require.ErrorIs(t, err, ErrNoAccounts)
}

func TestConnectProviderFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("node down")
	c := NewConnector(&fakeProvider{accountsErr: boom})
	_, err := c.Connect(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestPrimaryAccount(t *testing.T) {
	t.Parallel()

	c := NewConnector(&fakeProvider{accounts: []string{"0xccc"}})
	addr, err := c.PrimaryAccount(context.Background())
	require.NoError(t, err)
	require.Equal(t, "0xccc", addr)

	c = NewConnector(&fakeProvider{})
	addr, err = c.PrimaryAccount(context.Background())
	require.NoError(t, err)
	require.Empty(t, addr)
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{balances: map[string]*big.Int{"0xaaa": big.NewInt(42)}}
	c := NewConnector(p)

	session, err := c.Refresh(context.Background(), "0xaaa")
	require.NoError(t, err)
	require.Equal(t, "0xaaa", session.Address)
	require.EqualValues(t, 42, session.BalanceWei.Int64())
}
