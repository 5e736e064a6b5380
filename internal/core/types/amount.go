package types

import (
	"fmt"
	"strconv"
)

// Amount is the compact amount representation used by ledger entries: a
// signed value of some issue. Native amounts are integral drops; issued
// amounts carry the value at a fixed notional scale. The ledger core treats
// amounts as opaque payloads; arithmetic lives with the transaction engine.
type Amount struct {
	Issue Issue
	Value int64
}

// NativeAmount builds an amount of the native asset.
func NativeAmount(drops int64) Amount {
	return Amount{Value: drops}
}

// IssuedAmount builds an amount of an issued asset.
func IssuedAmount(value int64, issue Issue) Amount {
	return Amount{Issue: issue, Value: value}
}

// IsNative reports whether the amount is in the native asset.
func (a Amount) IsNative() bool {
	return a.Issue.IsNative()
}

// IsZero reports whether the value is zero.
func (a Amount) IsZero() bool {
	return a.Value == 0
}

// String formats the amount with its issue.
func (a Amount) String() string {
	if a.IsNative() {
		return strconv.FormatInt(a.Value, 10)
	}
	return fmt.Sprintf("%d %s", a.Value, a.Issue)
}
