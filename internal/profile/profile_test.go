package profile

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KaramelBytes/tablescope/internal/classify"
	"github.com/KaramelBytes/tablescope/internal/table"
)

func col(vals ...any) *table.Column { return table.NewColumn("c", vals) }

func TestNumericOutliers(t *testing.T) {
	st := Numeric(col(1, 2, 3, 4, 5, 100))
	require.Equal(t, 6, st.Count)
	assert.Equal(t, 1, st.Outliers)
	assert.InDelta(t, 100.0/6.0, st.OutlierPct, 1e-9)
	require.NotNil(t, st.TypicalMin)
	require.NotNil(t, st.TypicalMax)
	assert.Equal(t, 1.0, *st.TypicalMin)
	assert.Equal(t, 5.0, *st.TypicalMax)
	assert.Equal(t, 100.0, *st.Max)
	assert.InDelta(t, 2.25, *st.Q25, 1e-12)
	assert.InDelta(t, 4.75, *st.Q75, 1e-12)
	assert.InDelta(t, 3.5, *st.Median, 1e-12)
	assert.Equal(t, ShapeHighRightSkew, st.DistributionShape)
}

func TestNumericSkewAndShape(t *testing.T) {
	st := Numeric(col(1, 1, 1, 1, 10))
	require.NotNil(t, st.Skewness)
	assert.InDelta(t, math.Sqrt(20)/3*1.5, *st.Skewness, 1e-9)
	assert.Equal(t, ShapeHighRightSkew, st.DistributionShape)

	st = Numeric(col(1, 2, 3))
	require.NotNil(t, st.Skewness)
	assert.Equal(t, 0.0, *st.Skewness)
	assert.Equal(t, ShapeNormal, st.DistributionShape)

	st = Numeric(col(7, 7, 7))
	assert.Equal(t, 0.0, *st.Skewness)
	assert.Equal(t, 0.0, *st.Std)

	st = Numeric(col(4, nil))
	assert.Nil(t, st.Skewness)
	assert.Nil(t, st.Std)
	assert.Equal(t, ShapeUnknown, st.DistributionShape)
	assert.Equal(t, 1, st.Missing)
}

func TestNumericZerosNegativesAndInfinity(t *testing.T) {
	st := Numeric(col(-2, 0, 0, 3, "4"))
	assert.Equal(t, 5, st.Count)
	assert.Equal(t, 2, st.Zeros)
	assert.Equal(t, 1, st.Negatives)

	st = Numeric(col(1.0, math.Inf(1), 2.0))
	assert.Nil(t, st.Max)
	assert.Nil(t, st.Mean)
	b, err := json.Marshal(st)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"max":null`)
}

func TestCategoricalVeryHighCardinality(t *testing.T) {
	vals := make([]any, 150)
	for i := range vals {
		vals[i] = fmt.Sprintf("v%03d", i)
	}
	st := Categorical(col(vals...))
	assert.Equal(t, 150, st.Unique)
	assert.Len(t, st.ValueCounts, 10)
	assert.Equal(t, 140, st.RemainingCategories)
	assert.Equal(t, CardinalityVeryHigh, st.CardinalityLevel)
	assert.Equal(t, "Very high diversity (might be ID/text)", st.Diversity)
	assert.Equal(t, "v000", st.ValueCounts[0].Value)
	assert.Equal(t, "v009", st.ValueCounts[9].Value)
}

func TestCategoricalTiers(t *testing.T) {
	tests := []struct {
		unique, display, chart int
		level                  string
	}{
		{3, 3, 3, CardinalityLow},
		{10, 10, 10, CardinalityLow},
		{11, 11, 11, CardinalityMedium},
		{12, 12, 12, CardinalityMedium},
		{14, 14, 12, CardinalityMedium},
		{15, 15, 12, CardinalityMedium},
		{20, 15, 12, CardinalityMedium},
		{31, 10, 10, CardinalityHigh},
		{100, 10, 10, CardinalityHigh},
	}
	for _, tt := range tests {
		vals := make([]any, tt.unique)
		for i := range vals {
			vals[i] = i + 1000
		}
		st := Categorical(col(vals...))
		assert.Len(t, st.ValueCounts, tt.display, tt.unique)
		assert.Equal(t, tt.chart, st.ChartLimit, tt.unique)
		assert.Equal(t, tt.level, st.CardinalityLevel, tt.unique)
		assert.Equal(t, tt.unique-tt.display, st.RemainingCategories, tt.unique)
		for _, vc := range st.ValueCounts {
			assert.Positive(t, vc.Count, tt.unique)
		}
	}
}

func TestCategoricalSingleValueAndOrdering(t *testing.T) {
	st := Categorical(col("a", nil, "a"))
	require.NotNil(t, st.Mode)
	assert.Equal(t, "a", *st.Mode)
	assert.Equal(t, 2, st.ModeFreq)
	assert.Equal(t, 100.0, st.ModePct)
	assert.Equal(t, 1, st.Missing)
	assert.Equal(t, []ValueCount{{"a", 2}}, st.ValueCounts)

	st = Categorical(col("x", "y", "y", "z", "x", "y"))
	assert.Equal(t, []ValueCount{{"y", 3}, {"x", 2}, {"z", 1}}, st.ValueCounts)
	assert.Equal(t, "High diversity", st.Diversity)
}

func TestTextProfile(t *testing.T) {
	st := Text(col("a@x.io", "b@y.org", "nope", "c@z.com", nil))
	assert.Equal(t, "Email addresses", st.PatternHint)
	assert.Equal(t, 4, st.Count)
	assert.Equal(t, 1, st.Missing)
	assert.Equal(t, 4, st.MinLength)
	assert.Equal(t, 7, st.MaxLength)

	st = Text(col("ABC_1", "XY-2", "free text"))
	assert.Equal(t, "IDs/Codes", st.PatternHint)

	st = Text(col("héllo", "wörld", "hi", "hi", "a", "b", "c"))
	assert.Equal(t, "Free text", st.PatternHint)
	assert.Equal(t, 5, st.MaxLength)
	assert.Equal(t, []string{"héllo", "wörld", "hi", "a", "b"}, st.Samples)
	assert.Equal(t, 6, st.Unique)
}

func TestDatetimeProfile(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC) }
	st := Datetime(col(d(1), d(11), nil, d(1)))
	assert.Equal(t, 3, st.Count)
	assert.Equal(t, 2, st.Unique)
	assert.Equal(t, 1, st.Missing)
	assert.Equal(t, 10, st.RangeDays)
	assert.Equal(t, "2024-01-01 00:00:00", *st.MinDate)
	assert.Equal(t, "2024-01-11 00:00:00", *st.MaxDate)
	assert.Equal(t, "2024-01-01 00:00:00", *st.MostCommon)
}

func TestIdentifierProfile(t *testing.T) {
	st := Identifier(col(1, 2, 3, 4, 5))
	assert.True(t, st.IsUnique)
	assert.True(t, st.PotentialPrimaryKey)
	assert.Equal(t, "Sequential numeric", st.FormatType)
	assert.Equal(t, 1.0, *st.Min)
	assert.Equal(t, 5.0, *st.Max)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, st.Samples)

	st = Identifier(col(10, 20, 20, nil))
	assert.False(t, st.IsUnique)
	assert.False(t, st.PotentialPrimaryKey)
	assert.Equal(t, "Numeric", st.FormatType)
	assert.Equal(t, []ValueCount{{"20", 2}}, st.Duplicates)
	assert.InDelta(t, 200.0/3.0, st.UniquenessPct, 1e-9)

	st = Identifier(col("USR-001", "USR-002", "USR-003"))
	assert.Equal(t, "Prefixed code", st.FormatType)
	assert.Nil(t, st.Min)

	st = Identifier(col("abc-def", "ghi-jkl-9", "Mixed Up"))
	assert.Equal(t, "Lowercase with dashes", st.FormatType)

	st = Identifier(col("a b", "c d"))
	assert.Equal(t, "Mixed", st.FormatType)
}

func TestZeroRowsEveryType(t *testing.T) {
	p := New(zap.NewNop())
	for _, kind := range classify.BaseTypes() {
		b := p.Profile(table.NewColumn("empty", nil), classify.Classification{BaseType: kind})
		require.NotNil(t, b, kind)
		assert.Equal(t, kind, b.Kind)
		assert.Equal(t, 0, b.Count(), kind)
		assert.Equal(t, 0, b.Missing(), kind)
		_, err := json.Marshal(b)
		require.NoError(t, err)
	}
	st := Numeric(table.NewColumn("e", []any{nil, nil}))
	assert.Equal(t, NotAvailable, st.DistributionShape)
	assert.Equal(t, 2, st.Missing)
	assert.Nil(t, st.Mean)
}

func TestProfileDispatch(t *testing.T) {
	p := New(nil)
	b := p.Profile(col(1, 2, 3), classify.Classification{BaseType: classify.Numeric})
	require.NotNil(t, b.Numeric)
	assert.Nil(t, b.Categorical)

	b = p.Profile(col("a"), classify.Classification{BaseType: classify.BaseType("bogus")})
	assert.Equal(t, classify.Text, b.Kind)
	require.NotNil(t, b.Text)
}
