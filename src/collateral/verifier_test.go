package collateral

import (
	"context"
	"errors"
	"testing"

	"github.com/mosaicnetworks/servicenode/src/common"
)

type mapSource map[Outpoint]Output

func (m mapSource) GetCollateralOutput(ctx context.Context, ref Outpoint) (Output, error) {
	out, ok := m[ref]
	if !ok {
		return Output{}, common.NewErr("Output", common.KeyNotFound, ref.String())
	}
	return out, nil
}

type brokenSource struct{}

func (brokenSource) GetCollateralOutput(ctx context.Context, ref Outpoint) (Output, error) {
	return Output{}, errors.New("disk on fire")
}

func TestVerify(t *testing.T) {
	nodeKey := []byte{4, 1, 2, 3}
	otherKey := []byte{4, 9, 9, 9}

	good := Outpoint{TxID: "aa", Index: 0}
	spent := Outpoint{TxID: "bb", Index: 1}
	wrongValue := Outpoint{TxID: "cc", Index: 0}
	young := Outpoint{TxID: "dd", Index: 2}
	foreign := Outpoint{TxID: "ee", Index: 0}
	spentAndYoung := Outpoint{TxID: "ff", Index: 0}

	source := mapSource{
		good:          {Value: 1000, Confirmations: 15, ControllingKey: nodeKey},
		spent:         {Value: 1000, Confirmations: 20, ControllingKey: nodeKey, Spent: true},
		wrongValue:    {Value: 999, Confirmations: 20, ControllingKey: nodeKey},
		young:         {Value: 1000, Confirmations: 5, ControllingKey: nodeKey},
		foreign:       {Value: 1000, Confirmations: 20, ControllingKey: otherKey},
		spentAndYoung: {Value: 1, Confirmations: 1, ControllingKey: otherKey, Spent: true},
	}

	v := NewVerifier(source, 1000, 15)

	cases := []struct {
		name   string
		ref    Outpoint
		key    []byte
		code   ReasonCode
		reason string
	}{
		{"valid", good, nodeKey, OK, ""},
		{"valid without key check", foreign, nil, OK, ""},
		{"missing", Outpoint{TxID: "zz"}, nodeKey, NotFound, "collateral output not found"},
		{"spent", spent, nodeKey, Spent, "collateral output is spent"},
		{"wrong value", wrongValue, nodeKey, WrongValue, "collateral value 999 does not equal required 1000"},
		{"too new", young, nodeKey, TooFewConfirmations, ReasonInputTooNew},
		{"foreign key", foreign, nodeKey, KeyMismatch, "collateral is not controlled by the node key"},
		{"first failure wins", spentAndYoung, nodeKey, Spent, "collateral output is spent"},
	}

	for _, c := range cases {
		res := v.Verify(context.Background(), c.ref, c.key)
		if res.Code != c.code {
			t.Fatalf("%s: code should be %d, not %d", c.name, c.code, res.Code)
		}
		if res.Valid != (c.code == OK) {
			t.Fatalf("%s: Valid should be %v", c.name, c.code == OK)
		}
		if res.Reason != c.reason {
			t.Fatalf("%s: reason should be %q, not %q", c.name, c.reason, res.Reason)
		}
	}
}

func TestVerifyLookupFailure(t *testing.T) {
	v := NewVerifier(brokenSource{}, 1000, 15)

	res := v.Verify(context.Background(), Outpoint{TxID: "aa"}, nil)
	if res.Valid || res.Code != LookupFailed {
		t.Fatalf("lookup errors should be reported as LookupFailed, got %+v", res)
	}
}

func TestParseOutpoint(t *testing.T) {
	o := Outpoint{TxID: "4f2a-beef", Index: 7}

	p, err := ParseOutpoint(o.String())
	if err != nil {
		t.Fatal(err)
	}
	if p != o {
		t.Fatalf("ParseOutpoint should return %v, not %v", o, p)
	}

	for _, bad := range []string{"", "abc", "-1", "abc-", "abc-x"} {
		if _, err := ParseOutpoint(bad); err == nil {
			t.Fatalf("ParseOutpoint(%q) should fail", bad)
		}
	}
}
