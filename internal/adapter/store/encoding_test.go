package store

import (
	"database/sql/driver"
	"testing"
)

func TestVectorEncoding(t *testing.T) {
	vec := []float32{0.1, -2.5, 3.75, 0}
	decoded, err := DecodeVector(EncodeVector(vec))
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != len(vec) {
		t.Fatalf("expected %d values, got %d", len(vec), len(decoded))
	}
	for i := range vec {
		if decoded[i] != vec[i] {
			t.Errorf("value %d: expected %f, got %f", i, vec[i], decoded[i])
		}
	}
}

func TestVectorEncoding_Empty(t *testing.T) {
	if b := EncodeVector(nil); b != nil {
		t.Errorf("expected nil blob for empty vector, got %v", b)
	}
	vec, err := DecodeVector(nil)
	if err != nil || vec != nil {
		t.Errorf("expected nil vector for empty blob, got %v, %v", vec, err)
	}
}

func TestDecodeVector_RejectsTruncated(t *testing.T) {
	if _, err := DecodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for blob not divisible by 4")
	}
}

func TestVecCosine(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			val, err := vecCosineImpl(nil, []driver.Value{
				driver.Value(EncodeVector(tc.a)),
				driver.Value(EncodeVector(tc.b)),
			})
			if err != nil {
				t.Fatal(err)
			}
			got, ok := val.(float64)
			if !ok {
				t.Fatalf("expected float64, got %T", val)
			}
			if diff := got - tc.want; diff > 1e-6 || diff < -1e-6 {
				t.Errorf("expected %f, got %f", tc.want, got)
			}
		})
	}
}
