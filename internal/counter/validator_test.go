package counter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodTR = `{
	"Report_Header": {
		"Created": "2024-03-01T00:00:00Z",
		"Report_ID": "TR",
		"Release": "5"
	},
	"Report_Items": [{"Title": "Journal", "Platform": "P", "Performance": []}]
}`

func TestValidateAcceptsConformingReport(t *testing.T) {
	v := NewValidator("5")
	rpt, err := v.Validate([]byte(goodTR), "TR")
	require.NoError(t, err)
	assert.Equal(t, "TR", rpt.Header.ReportID)
	assert.Len(t, rpt.Items, 1)
}

func TestValidateReportIDCaseInsensitive(t *testing.T) {
	v := NewValidator("5")
	body := `{
		"Report_Header": {"Created": "2024-03-01T00:00:00Z", "Report_ID": "tr", "Release": "5"},
		"Report_Items": [{"Title": "Journal"}]
	}`
	_, err := v.Validate([]byte(body), "TR")
	assert.NoError(t, err)
}

func TestValidateEmptyReportWithNoUsageException(t *testing.T) {
	v := NewValidator("5")
	body := `{
		"Report_Header": {
			"Created": "2024-03-01T00:00:00Z",
			"Report_ID": "TR",
			"Release": "5",
			"Exceptions": [{"Code": 3030, "Severity": "Warning", "Message": "No Usage Available for Requested Dates"}]
		},
		"Report_Items": []
	}`
	rpt, err := v.Validate([]byte(body), "TR")
	require.NoError(t, err, "3030 legitimizes an empty report")
	assert.Empty(t, rpt.Items)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{
			"not json",
			`<html>nope</html>`,
			errNotJSON,
		},
		{
			"missing header",
			`{"Report_Items": []}`,
			errMissingHeader,
		},
		{
			"wrong release",
			`{"Report_Header": {"Created": "2024-03-01T00:00:00Z", "Report_ID": "TR", "Release": "4"}, "Report_Items": [{"Title": "x"}]}`,
			errWrongRelease,
		},
		{
			"wrong report",
			`{"Report_Header": {"Created": "2024-03-01T00:00:00Z", "Report_ID": "DR", "Release": "5"}, "Report_Items": [{"Title": "x"}]}`,
			errWrongReport,
		},
		{
			"missing created",
			`{"Report_Header": {"Report_ID": "TR", "Release": "5"}, "Report_Items": [{"Title": "x"}]}`,
			errMissingCreated,
		},
		{
			"empty without exception",
			`{"Report_Header": {"Created": "2024-03-01T00:00:00Z", "Report_ID": "TR", "Release": "5"}, "Report_Items": []}`,
			errNoItems,
		},
	}

	v := NewValidator("5")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate([]byte(tt.raw), "TR")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestValidateDefaultsToReleaseFive(t *testing.T) {
	v := NewValidator("")
	_, err := v.Validate([]byte(goodTR), "TR")
	assert.NoError(t, err)
}
