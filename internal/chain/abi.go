package chain

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// Pre-computed function selectors (first 4 bytes of keccak256 of signature).
var (
	SelectorCreateLoanRequest = mustDecodeHex("f7a22d43") // createLoanRequest(uint256,uint256,uint256)
	SelectorRepayLoan         = mustDecodeHex("a9a04a63") // repayLoan(uint256)
	SelectorGetActiveLoans    = mustDecodeHex("8b2ff5e1") // getActiveLoans()
	SelectorGetLoanRequests   = mustDecodeHex("3c28e0c5") // getLoanRequests()
	SelectorGetLoan           = mustDecodeHex("e1ec3c68") // getLoan(uint256)
)

const wordSize = 32

func mustDecodeHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(fmt.Sprintf("invalid hex: %s", s))
	}
	return b
}

// encodeAddress pads a 20-byte Ethereum address to 32 bytes.
func encodeAddress(addr string) []byte {
	addr = strings.TrimPrefix(addr, "0x")
	b, _ := hex.DecodeString(addr)
	padded := make([]byte, wordSize)
	copy(padded[wordSize-len(b):], b)
	return padded
}

// encodeUint256 encodes a big.Int as a 32-byte left-padded value.
func encodeUint256(n *big.Int) []byte {
	padded := make([]byte, wordSize)
	b := n.Bytes()
	copy(padded[wordSize-len(b):], b)
	return padded
}

func decodeUint256(word []byte) *big.Int {
	return new(big.Int).SetBytes(word)
}

// word returns the i-th 32-byte word of data, or nil when out of range.
func word(data []byte, i int) []byte {
	start := i * wordSize
	if start+wordSize > len(data) {
		return nil
	}
	return data[start : start+wordSize]
}

// DecodeAddressAt reads the i-th return word as a 0x-prefixed address.
func DecodeAddressAt(data []byte, i int) (string, error) {
	w := word(data, i)
	if w == nil {
		return "", fmt.Errorf("abi: return data too short for word %d", i)
	}
	return "0x" + hex.EncodeToString(w[wordSize-20:]), nil
}

// DecodeUint256At reads the i-th return word as a big.Int.
func DecodeUint256At(data []byte, i int) (*big.Int, error) {
	w := word(data, i)
	if w == nil {
		return nil, fmt.Errorf("abi: return data too short for word %d", i)
	}
	return decodeUint256(w), nil
}

// DecodeUint256Slice follows the offset stored in head word headIndex and
// decodes the dynamic uint256[] found there.
func DecodeUint256Slice(data []byte, headIndex int) ([]*big.Int, error) {
	w := word(data, headIndex)
	if w == nil {
		return nil, fmt.Errorf("abi: return data too short for head word %d", headIndex)
	}
	offset := decodeUint256(w)
	if !offset.IsInt64() {
		return nil, fmt.Errorf("abi: array offset out of range")
	}
	base := int(offset.Int64())
	if base < 0 || base+wordSize > len(data) {
		return nil, fmt.Errorf("abi: truncated array at offset %d", base)
	}
	n := decodeUint256(data[base : base+wordSize])
	if !n.IsInt64() {
		return nil, fmt.Errorf("abi: array length out of range")
	}
	count := int(n.Int64())
	out := make([]*big.Int, 0, count)
	for i := 0; i < count; i++ {
		start := base + wordSize + i*wordSize
		if start+wordSize > len(data) {
			return nil, fmt.Errorf("abi: truncated array element %d", i)
		}
		out = append(out, decodeUint256(data[start:start+wordSize]))
	}
	return out, nil
}

// DecodeAddressSlice is DecodeUint256Slice for address[] payloads.
func DecodeAddressSlice(data []byte, headIndex int) ([]string, error) {
	raw, err := DecodeUint256Slice(data, headIndex)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		b := make([]byte, wordSize)
		vb := v.Bytes()
		copy(b[wordSize-len(vb):], vb)
		out = append(out, "0x"+hex.EncodeToString(b[wordSize-20:]))
	}
	return out, nil
}

// EncodeCreateLoanRequest builds calldata for
// createLoanRequest(amount, durationDays, interestRate).
func EncodeCreateLoanRequest(amount, durationDays, interestRate *big.Int) []byte {
	data := make([]byte, 0, 4+3*wordSize)
	data = append(data, SelectorCreateLoanRequest...)
	data = append(data, encodeUint256(amount)...)
	data = append(data, encodeUint256(durationDays)...)
	data = append(data, encodeUint256(interestRate)...)
	return data
}

// EncodeRepayLoan builds calldata for repayLoan(id).
func EncodeRepayLoan(id *big.Int) []byte {
	data := make([]byte, 0, 4+wordSize)
	data = append(data, SelectorRepayLoan...)
	data = append(data, encodeUint256(id)...)
	return data
}

// EncodeGetActiveLoans builds calldata for getActiveLoans().
func EncodeGetActiveLoans() []byte {
	return append([]byte(nil), SelectorGetActiveLoans...)
}

// EncodeGetLoanRequests builds calldata for getLoanRequests().
func EncodeGetLoanRequests() []byte {
	return append([]byte(nil), SelectorGetLoanRequests...)
}

// EncodeGetLoan builds calldata for getLoan(id).
func EncodeGetLoan(id *big.Int) []byte {
	data := make([]byte, 0, 4+wordSize)
	data = append(data, SelectorGetLoan...)
	data = append(data, encodeUint256(id)...)
	return data
}

// ParseEther converts a human-readable ether amount (e.g. "1.5") to wei.
func ParseEther(amount string) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("empty amount")
	}
	parts := strings.Split(amount, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("invalid ether amount: %s", amount)
	}
	whole := parts[0]
	frac := ""
	if len(parts) == 2 {
		frac = parts[1]
	}
	if len(frac) > EtherDecimals {
		return nil, fmt.Errorf("too many decimal places: %s", amount)
	}
	for len(frac) < EtherDecimals {
		frac += "0"
	}
	result, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid ether amount: %s", amount)
	}
	if result.Sign() < 0 {
		return nil, fmt.Errorf("negative amount: %s", amount)
	}
	return result, nil
}

// FormatEther converts wei to a human-readable ether string with four
// decimal places, enough for balances and loan rows.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0.0000"
	}
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(EtherDecimals), nil)
	whole := new(big.Int).Div(wei, divisor)
	remainder := new(big.Int).Mod(wei, divisor)
	fracStr := fmt.Sprintf("%018s", remainder.String())
	return fmt.Sprintf("%s.%s", whole.String(), fracStr[:4])
}

// HexEncode returns 0x-prefixed hex encoding of data.
func HexEncode(data []byte) string {
	return "0x" + hex.EncodeToString(data)
}

// EqualAddress compares two hex addresses case-insensitively.
func EqualAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimPrefix(a, "0x"), strings.TrimPrefix(b, "0x"))
}
