package chain

// Deployment constants for the peer-to-peer lending contract.
const (
	// LendingContractAddress is the fixed mainnet-fork deployment the
	// borrower view talks to. Override via config for other networks.
	LendingContractAddress = "0x9Fc3dA866e7DF3a1c57adE1a97c9f00a70f010c4"

	// EtherDecimals is the number of base-unit digits in one ether (wei).
	EtherDecimals = 18

	// Gas ceilings for the two write paths. Both transactions are small;
	// the ceiling only bounds the worst case, unused gas is refunded.
	GasLimitCreateRequest uint64 = 3_000_000
	GasLimitRepay         uint64 = 1_000_000

	// DefaultRPCURL is a local node with an unlocked borrower account.
	DefaultRPCURL = "http://127.0.0.1:8545"
)
