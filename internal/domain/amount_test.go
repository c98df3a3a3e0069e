package domain

import (
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "integer", input: "1", want: "1"},
		{name: "fraction", input: "0.5", want: "0.5"},
		{name: "surrounding spaces", input: " 0.25 ", want: "0.25"},
		{name: "eighteen places", input: "0.000000000000000001", want: "0.000000000000000001"},
		{name: "nineteen places", input: "0.0000000000000000001", wantErr: ErrAmountPrecision},
		{name: "zero", input: "0", wantErr: ErrInvalidAmount},
		{name: "negative", input: "-1", wantErr: ErrInvalidAmount},
		{name: "empty", input: "", wantErr: ErrInvalidAmount},
		{name: "garbage", input: "abc", wantErr: ErrInvalidAmount},
		{name: "leading dot", input: ".5", want: "0.5"},
		{name: "exponent", input: "1e3", wantErr: ErrInvalidAmount},
		{name: "negative exponent", input: "5E-1", wantErr: ErrInvalidAmount},
		{name: "huge exponent", input: "1e20000", wantErr: ErrInvalidAmount},
		{name: "explicit sign", input: "+1", wantErr: ErrInvalidAmount},
		{name: "lone dot", input: ".", wantErr: ErrInvalidAmount},
		{name: "inner space", input: "1 000", wantErr: ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestWeiConversion(t *testing.T) {
	t.Parallel()

	wei := ToWei(decimal.RequireFromString("0.5"))
	want, _ := new(big.Int).SetString("500000000000000000", 10)
	if wei.Cmp(want) != 0 {
		t.Fatalf("expected %s wei, got %s", want, wei)
	}

	back := FromWei(wei)
	if !back.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("expected 0.5 after round trip, got %s", back)
	}

	if !FromWei(nil).IsZero() {
		t.Fatal("expected nil wei to convert to zero")
	}
}
