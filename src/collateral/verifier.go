package collateral

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mosaicnetworks/servicenode/src/common"
)

// ReasonCode identifies which collateral check failed.
type ReasonCode int

const (
	// OK means every check passed.
	OK ReasonCode = iota
	// NotFound means the output does not exist.
	NotFound
	// Spent means the output exists but was spent.
	Spent
	// WrongValue means the output does not hold the exact collateral amount.
	WrongValue
	// TooFewConfirmations means the output is not buried deep enough yet.
	TooFewConfirmations
	// KeyMismatch means the output is not controlled by the expected key.
	KeyMismatch
	// LookupFailed means the output source returned an unexpected error.
	LookupFailed
)

// ReasonInputTooNew is the reason reported for TooFewConfirmations.
const ReasonInputTooNew = "input too new"

// OutputSource looks collateral outputs up. The wallet implements it.
type OutputSource interface {
	GetCollateralOutput(ctx context.Context, ref Outpoint) (Output, error)
}

// Result is the outcome of a verification. Only the first failing check is
// reported.
type Result struct {
	Valid  bool
	Code   ReasonCode
	Reason string
}

// Verifier checks that a collateral output qualifies a node.
type Verifier struct {
	source           OutputSource
	amount           int64
	minConfirmations int
}

// NewVerifier creates a Verifier requiring outputs of exactly amount with at
// least minConfirmations confirmations.
func NewVerifier(source OutputSource, amount int64, minConfirmations int) *Verifier {
	return &Verifier{
		source:           source,
		amount:           amount,
		minConfirmations: minConfirmations,
	}
}

// MinConfirmations returns the configured confirmation depth.
func (v *Verifier) MinConfirmations() int {
	return v.minConfirmations
}

// Verify runs the checks in order: existence and unspent, exact value,
// confirmation depth, and, when expectedKey is not nil, the controlling key.
// It has no side effects.
func (v *Verifier) Verify(ctx context.Context, ref Outpoint, expectedKey []byte) Result {
	out, err := v.source.GetCollateralOutput(ctx, ref)
	if err != nil {
		if common.Is(err, common.KeyNotFound) {
			return fail(NotFound, "collateral output not found")
		}
		return fail(LookupFailed, fmt.Sprintf("collateral lookup failed: %v", err))
	}

	if out.Spent {
		return fail(Spent, "collateral output is spent")
	}

	if out.Value != v.amount {
		return fail(WrongValue,
			fmt.Sprintf("collateral value %d does not equal required %d", out.Value, v.amount))
	}

	if out.Confirmations < v.minConfirmations {
		return fail(TooFewConfirmations, ReasonInputTooNew)
	}

	if expectedKey != nil && !bytes.Equal(out.ControllingKey, expectedKey) {
		return fail(KeyMismatch, "collateral is not controlled by the node key")
	}

	return Result{Valid: true, Code: OK}
}

func fail(code ReasonCode, reason string) Result {
	return Result{Valid: false, Code: code, Reason: reason}
}
