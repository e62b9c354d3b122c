package freshness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestClassify(t *testing.T) {
	now := time.Date(2024, time.January, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		expiry   *time.Time
		label    Label
		severity Severity
	}{
		{"absent", nil, Unknown, SeverityNeutral},
		{"yesterday", date(2024, time.January, 9), Expired, SeverityHigh},
		{"long ago", date(2023, time.March, 1), Expired, SeverityHigh},
		{"today", date(2024, time.January, 10), ExpiringSoon, SeverityMedium},
		{"tomorrow", date(2024, time.January, 11), ExpiringSoon, SeverityMedium},
		{"seven days", date(2024, time.January, 17), ExpiringSoon, SeverityMedium},
		{"eight days", date(2024, time.January, 18), Fresh, SeverityLow},
		{"next year", date(2025, time.January, 1), Fresh, SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.expiry, now)
			assert.Equal(t, tt.label, got.Label)
			assert.Equal(t, tt.severity, got.Severity)
		})
	}
}

func TestClassifyIgnoresTimeOfDay(t *testing.T) {
	lateNight := time.Date(2024, time.January, 10, 23, 59, 0, 0, time.UTC)
	early := time.Date(2024, time.January, 10, 0, 1, 0, 0, time.UTC)
	expiry := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, ExpiringSoon, Classify(&expiry, lateNight).Label)
	assert.Equal(t, ExpiringSoon, Classify(&expiry, early).Label)
}

func TestDaysUntilAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	now := time.Date(2024, time.March, 9, 12, 0, 0, 0, loc)
	expiry := time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 2, DaysUntil(expiry, now))
}

func TestClassifyString(t *testing.T) {
	now := time.Date(2024, time.January, 10, 8, 0, 0, 0, time.UTC)

	s := "2024/01/12"
	assert.Equal(t, ExpiringSoon, ClassifyString(&s, now).Label)

	iso := "2024-02-20"
	assert.Equal(t, Fresh, ClassifyString(&iso, now).Label)

	bad := "soon"
	assert.Equal(t, Unknown, ClassifyString(&bad, now).Label)
	assert.Equal(t, Unknown, ClassifyString(nil, now).Label)
}

func TestNormalizeDate(t *testing.T) {
	got, err := NormalizeDate("2024-01-05")
	require.NoError(t, err)
	assert.Equal(t, "2024/01/05", got)

	_, err = NormalizeDate("05/01/2024")
	assert.Error(t, err)
}

func TestSeverityText(t *testing.T) {
	b, err := SeverityHigh.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "high", string(b))
	assert.Equal(t, "neutral", SeverityNeutral.String())
}
