package price

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1.299,90", 1299.90},
		{"1,299.90", 1299.90},
		{"S/ 45.00", 45.00},
		{"S/. 1,299.90", 1299.90},
		{"1299.9", 1299.9},
		{"1299", 1299},
		{"US$ 12,50", 12.50},
		{"€ 4.99", 4.99},
		{"Antes: S/ 2.499,00", 2499.00},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Normalize(tt.in)
			if err != nil {
				t.Fatalf("Normalize(%q) returned error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeRejects(t *testing.T) {
	for _, in := range []string{"", "gratis", "S/ ", "..,,"} {
		t.Run(fmt.Sprintf("%q", in), func(t *testing.T) {
			if _, err := Normalize(in); !errors.Is(err, ErrNotAPrice) {
				t.Errorf("Normalize(%q) error = %v, want ErrNotAPrice", in, err)
			}
		})
	}
}

// Normalizing the string form of a normalized price must not change it.
func TestNormalizeIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 100; i++ {
		cents := rng.Int63n(10_000_000)
		raw := float64(cents) / 100

		var in string
		switch i % 3 {
		case 0:
			in = latinFormat(raw) // 1.299,90
		case 1:
			in = "S/ " + strconv.FormatFloat(raw, 'f', 2, 64)
		default:
			in = strconv.FormatFloat(raw, 'f', -1, 64)
		}

		first, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q) returned error: %v", in, err)
		}
		second, err := Normalize(strconv.FormatFloat(first, 'f', -1, 64))
		if err != nil {
			t.Fatalf("re-Normalize of %v returned error: %v", first, err)
		}
		if first != second {
			t.Fatalf("not idempotent for %q: first %v, second %v", in, first, second)
		}
	}
}

// latinFormat renders a value as "1.299,90".
func latinFormat(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	intPart := s[:len(s)-3]
	frac := s[len(s)-2:]
	var grouped string
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped += "."
		}
		grouped += string(d)
	}
	return grouped + "," + frac
}

func TestPctOff(t *testing.T) {
	tests := []struct {
		list, cur, want float64
	}{
		{100, 20, 80},
		{100, 40, 60},
		{1299.90, 433.30, 66.67},
		{100, 100, 0},
		{100, 120, 0},
		{0, 50, 0},
	}
	for _, tt := range tests {
		if got := PctOff(tt.list, tt.cur); got != tt.want {
			t.Errorf("PctOff(%v, %v) = %v, want %v", tt.list, tt.cur, got, tt.want)
		}
	}
}
