package payload

import "testing"

func TestReadingFormat(t *testing.T) {
	r := Reading{Code: "C", Lat: 48.1889, Lng: 16.3763}
	if got := r.Format(); got != "C|48.1889|16.3763" {
		t.Fatalf("unexpected plaintext %q", got)
	}
	if got := (Reading{Code: "000123", Lat: -33.5, Lng: 151}).Format(); got != "000123|-33.5|151" {
		t.Fatalf("unexpected plaintext %q", got)
	}
}

func TestParseReading(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Reading
		ok    bool
	}{
		{name: "valid", input: "123456|48.1889|16.3763", want: Reading{Code: "123456", Lat: 48.1889, Lng: 16.3763}, ok: true},
		{name: "integers", input: "123456|48|16", want: Reading{Code: "123456", Lat: 48, Lng: 16}, ok: true},
		{name: "python repr exponent", input: "123456|1e-05|-2.5", want: Reading{Code: "123456", Lat: 0.00001, Lng: -2.5}, ok: true},
		{name: "two fields", input: "123456|48.1", ok: false},
		{name: "four fields", input: "123456|48.1|16.3|x", ok: false},
		{name: "non numeric", input: "123456|north|16.3", ok: false},
		{name: "nan", input: "123456|NaN|16.3", ok: false},
		{name: "infinite", input: "123456|48.1|+Inf", ok: false},
		{name: "empty", input: "", ok: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseReading(tc.input)
			if tc.ok {
				if err != nil {
					t.Fatalf("parse: %v", err)
				}
				if got != tc.want {
					t.Fatalf("expected %+v, got %+v", tc.want, got)
				}
				return
			}
			if err != ErrInvalidFormat {
				t.Fatalf("expected ErrInvalidFormat, got %v (%+v)", err, got)
			}
		})
	}
}
