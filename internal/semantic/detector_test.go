package semantic

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func strs(vals ...string) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func TestDetectEmailThreshold(t *testing.T) {
	d := NewDetector(nil)

	got, conf := d.Detect(strs("a@example.com", "b@example.com", "plain", "words", "here", "too"))
	assert.Equal(t, None, got)
	assert.Equal(t, 0.0, conf)

	got, conf = d.Detect(strs("a@example.com", "b@example.org", "c.d@mail.co", "x+y@host.io"))
	assert.Equal(t, Email, got)
	assert.Equal(t, 1.0, conf)
}

func TestDetectEmptyInput(t *testing.T) {
	d := NewDetector(nil)
	got, conf := d.Detect(nil)
	assert.Equal(t, None, got)
	assert.Equal(t, 0.0, conf)

	got, conf = d.Detect([]any{nil, nil})
	assert.Equal(t, None, got)
	assert.Equal(t, 0.0, conf)
}

func TestDetectBuiltinPatterns(t *testing.T) {
	tests := []struct {
		want Type
		vals []string
	}{
		{UUID, []string{"550e8400-e29b-41d4-a716-446655440000", "6ba7b810-9dad-11d1-80b4-00c04fd430c8"}},
		{URL, []string{"https://example.com", "http://test.org/path?x=1", "https://a.b.c:8080/"}},
		{CreditCard, []string{"4111 1111 1111 1111", "************1234", "5500-0000-0000-0004"}},
		{IPv4, []string{"192.168.1.1", "10.0.0.255", "8.8.8.8"}},
		{IPv6, []string{"2001:0db8:85a3:0000:0000:8a2e:0370:7334", "fe80::1:2"}},
		{ISODate, []string{"2024-01-15", "2024-02-20T10:30:00Z", "2023-12-31T23:59:59.123+02:00"}},
		{USDate, []string{"01/15/2024", "12/31/2023", "6/1/2022"}},
		{EUDate, []string{"15/01/2024", "31.12.2023", "25-06-2022"}},
		{PostalCodeUS, []string{"12345", "90210-1234", "10001"}},
		{PostalCodeUK, []string{"SW1A 1AA", "ec1a1bb", "M1 1AE"}},
		{PostalCodeCA, []string{"K1A 0B1", "m5v3l9", "H0H 0H0"}},
		{Percentage, []string{"12%", "-3.5%", "100%"}},
		{Currency, []string{"$1,234.56", "€99", "£ 12.00"}},
		{BooleanText, []string{"true", "FALSE", "Yes", "n"}},
		{Phone, []string{"+1 (555) 123-4567", "555.123.4567", "+44 20 7946 0958"}},
	}
	d := NewDetector(nil)
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			got, conf := d.Detect(strs(tt.vals...))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 1.0, conf)
		})
	}
}

func TestDetectFirstMatchWins(t *testing.T) {
	// "12345" qualifies as a US postal code and as a phone number; the
	// postal code is evaluated first.
	d := NewDetector(nil)
	got, _ := d.Detect([]any{int64(12345), int64(90210), int64(10001)})
	assert.Equal(t, PostalCodeUS, got)

	order := []Type{Phone, PostalCodeUS}
	lib, err := NewLibrary(order)
	require.NoError(t, err)
	got, _ = NewDetector(lib).Detect([]any{int64(12345), int64(90210)})
	assert.Equal(t, Phone, got)
}

func TestDetectCaseHandlingAndCustomMatchers(t *testing.T) {
	d := NewDetector(nil)
	got, _ := d.Detect(strs("TRUE", "False", "YES"))
	assert.Equal(t, BooleanText, got)

	lib := NewCustomLibrary(Pattern{Name: "upper", Match: func(s string) bool { return s == strings.ToUpper(s) }})
	got, conf := NewDetector(lib).Detect(strs("ABC", "DEF", "ghi"))
	assert.Equal(t, None, got)
	assert.Equal(t, 0.0, conf)
}

func TestDetectSamplesBoundedPrefix(t *testing.T) {
	vals := make([]any, 0, 1200)
	for i := 0; i < 500; i++ {
		vals = append(vals, fmt.Sprintf("user%d@example.com", i))
	}
	for i := 0; i < 700; i++ {
		vals = append(vals, "not an email")
	}
	got, conf := NewDetector(nil).Detect(vals)
	assert.Equal(t, Email, got)
	assert.Equal(t, 1.0, conf)

	// Larger samples are clamped, so the tail is never inspected.
	d := NewDetector(nil, WithSampleSize(1000))
	assert.Equal(t, MaxSampleSize, d.sampleSize)
	got, conf = d.Detect(vals)
	assert.Equal(t, Email, got)
	assert.Equal(t, 1.0, conf)

	got, _ = NewDetector(nil, WithSampleSize(600)).Detect(vals)
	assert.Equal(t, Email, got)
	assert.Equal(t, 20, NewDetector(nil, WithSampleSize(20)).sampleSize)
}

func TestDetectSkipsPanickingMatcher(t *testing.T) {
	lib := NewCustomLibrary(
		Pattern{Name: "broken", Match: func(string) bool { panic("boom") }},
		Pattern{Name: "any", Match: func(string) bool { return true }},
	)
	got, conf := NewDetector(lib, WithLogger(zap.NewNop())).Detect(strs("x", "y"))
	assert.Equal(t, Type("any"), got)
	assert.Equal(t, 1.0, conf)
}

func TestDetectThresholdBoundary(t *testing.T) {
	vals := strs("a@x.io", "b@x.io", "c@x.io", "d@x.io", "e@x.io", "f@x.io", "g@x.io", "no", "no", "no")
	got, conf := NewDetector(nil).Detect(vals)
	assert.Equal(t, Email, got)
	assert.InDelta(t, 0.7, conf, 1e-12)

	got, _ = NewDetector(nil, WithThreshold(0.9)).Detect(vals)
	assert.Equal(t, None, got)
}

func TestParseOrderAndLibrary(t *testing.T) {
	order, err := ParseOrder([]string{"Email", " uuid "})
	require.NoError(t, err)
	assert.Equal(t, []Type{Email, UUID}, order)

	_, err = ParseOrder([]string{"email", "zipcode"})
	require.ErrorIs(t, err, ErrUnknownPattern)

	_, err = NewLibrary([]Type{Email, Email})
	require.Error(t, err)

	lib := DefaultLibrary()
	pats := lib.Patterns()
	require.Len(t, pats, len(DefaultOrder))
	assert.Equal(t, UUID, pats[0].Name)
	assert.Equal(t, Phone, pats[len(pats)-1].Name)
	p, ok := lib.Lookup(Currency)
	require.True(t, ok)
	assert.Equal(t, 13, p.Priority)
}

func TestTypeJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Type `json:"a"`
		B Type `json:"b"`
	}{A: None, B: Email})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":null,"b":"email"}`, string(b))

	var got struct {
		A Type `json:"a"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":null}`), &got))
	assert.Equal(t, None, got.A)
	assert.True(t, USDate.IsDate())
	assert.False(t, Email.IsDate())
}
