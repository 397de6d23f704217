package storage

import (
	"errors"
	"testing"
)

func ptr(v Value) *Value { return &v }

func TestFilterMatches(t *testing.T) {
	chunkMeta := Metadata{
		"section": String("intro"),
		"page":    Int(4),
		"score":   Float(0.75),
	}
	docMeta := Metadata{
		"author":  String("ada"),
		"section": String("appendix"), // shadowed by the chunk
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{
			name:   "equality match",
			filter: Filter{"section": {Op: OpEq, Value: String("intro")}},
			want:   true,
		},
		{
			name:   "equality mismatch",
			filter: Filter{"section": {Op: OpEq, Value: String("body")}},
			want:   false,
		},
		{
			name:   "chunk shadows document",
			filter: Filter{"section": {Op: OpEq, Value: String("appendix")}},
			want:   false,
		},
		{
			name:   "document fallback",
			filter: Filter{"author": {Op: OpEq, Value: String("ada")}},
			want:   true,
		},
		{
			name:   "membership match",
			filter: Filter{"section": {Op: OpIn, Values: []Value{String("body"), String("intro")}}},
			want:   true,
		},
		{
			name:   "membership mismatch",
			filter: Filter{"section": {Op: OpIn, Values: []Value{String("body")}}},
			want:   false,
		},
		{
			name:   "range inclusive bounds",
			filter: Filter{"page": {Op: OpRange, Min: ptr(Int(4)), Max: ptr(Int(4))}},
			want:   true,
		},
		{
			name:   "range open low side",
			filter: Filter{"score": {Op: OpRange, Max: ptr(Float(0.8))}},
			want:   true,
		},
		{
			name:   "range open high side",
			filter: Filter{"score": {Op: OpRange, Min: ptr(Float(0.8))}},
			want:   false,
		},
		{
			name:   "range numeric across kinds",
			filter: Filter{"page": {Op: OpRange, Min: ptr(Float(3.5)), Max: ptr(Float(4.5))}},
			want:   true,
		},
		{
			name:   "missing field fails",
			filter: Filter{"missing": {Op: OpEq, Value: String("x")}},
			want:   false,
		},
		{
			name:   "missing field allowed with null",
			filter: Filter{"missing": {Op: OpEq, Value: String("x"), AllowNull: true}},
			want:   true,
		},
		{
			name: "conjunction needs every clause",
			filter: Filter{
				"section": {Op: OpEq, Value: String("intro")},
				"page":    {Op: OpEq, Value: Int(5)},
			},
			want: false,
		},
		{
			name:   "empty filter matches",
			filter: Filter{},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(chunkMeta, docMeta); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterValidate(t *testing.T) {
	tests := []struct {
		name    string
		filter  Filter
		wantErr bool
	}{
		{name: "valid eq", filter: Filter{"a": {Op: OpEq, Value: Int(1)}}},
		{name: "valid in", filter: Filter{"a": {Op: OpIn, Values: []Value{Int(1)}}}},
		{name: "valid range", filter: Filter{"a": {Op: OpRange, Min: ptr(Int(0))}}},
		{name: "empty in set", filter: Filter{"a": {Op: OpIn}}, wantErr: true},
		{name: "range with no bounds", filter: Filter{"a": {Op: OpRange}}, wantErr: true},
		{
			name:    "range with incomparable bounds",
			filter:  Filter{"a": {Op: OpRange, Min: ptr(String("x")), Max: ptr(Int(3))}},
			wantErr: true,
		},
		{name: "unknown op", filter: Filter{"a": {Op: PredicateOp("regex")}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalid) {
					t.Errorf("Validate() error = %v, want ErrInvalid", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}
