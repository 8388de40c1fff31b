package source

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier(0, nil)

	tests := []struct {
		name    string
		url     string
		wantExt string
		wantErr bool
	}{
		{"cloud spreadsheet", "https://docs.example.com/spreadsheets/d/abc123/edit", "xlsx", false},
		{"file hosting", "https://host/file/d/abc123/view", "csv", false},
		{"unknown marker", "https://host/document/d/abc123/view", "", true},
		{"marker in wrong position", "https://host/d/file/abc123", "", true},
		{"too few segments", "https://host", "", true},
		{"empty string", "", "", true},
		{"case sensitive", "https://host/File/d/abc", "", true},
		{"no scheme shifts segments", "host/file/d/abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, err := c.Classify(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnsupportedSourceType))
				assert.Empty(t, ext)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantExt, ext)
		})
	}
}

func TestClassifier_CustomRules(t *testing.T) {
	c := NewClassifier(4, []Rule{{Marker: "sheets", Extension: "xlsx"}})

	ext, err := c.Classify("https://host/v1/sheets/abc")
	require.NoError(t, err)
	assert.Equal(t, "xlsx", ext)

	_, err = c.Classify("https://host/file/d/abc/view")
	assert.ErrorIs(t, err, ErrUnsupportedSourceType)
}

func TestClassifier_RulesAreCopied(t *testing.T) {
	rules := []Rule{{Marker: "file", Extension: "csv"}}
	c := NewClassifier(0, rules)
	rules[0].Marker = "changed"

	ext, err := c.Classify("https://host/file/d/abc")
	require.NoError(t, err)
	assert.Equal(t, "csv", ext)
	assert.Equal(t, "file", c.Rules()[0].Marker)
}

func TestBlobName(t *testing.T) {
	assert.Equal(t, "data.csv", BlobName("csv"))
	assert.Equal(t, "data.xlsx", BlobName("xlsx"))
}

func TestMediaTypeFor(t *testing.T) {
	assert.Equal(t, "text/csv", MediaTypeFor("csv"))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", MediaTypeFor("xlsx"))
	assert.Equal(t, "application/vnd.ms-excel", MediaTypeFor("XLS"))
	assert.Equal(t, "application/octet-stream", MediaTypeFor("pdf"))
}
