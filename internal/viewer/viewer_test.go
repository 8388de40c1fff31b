package viewer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

func TestPretty(t *testing.T) {
	got, err := Pretty(json.RawMessage(`[{"a":1,"b":[true,null]}]`))
	require.NoError(t, err)

	want := "[\n  {\n    \"a\": 1,\n    \"b\": [\n      true,\n      null\n    ]\n  }\n]"
	assert.Equal(t, want, got)

	_, err = Pretty(json.RawMessage(`{`))
	assert.Error(t, err)
}

func TestFilenameStem(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"people.csv", "people"},
		{"report.final.xlsx", "report"},
		{"README", "README"},
		{"", ""},
		{".hidden", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilenameStem(tt.name))
		})
	}
}

func TestDownloadName(t *testing.T) {
	assert.Equal(t, "people.json", DownloadName("people", "json"))
	assert.Equal(t, "json_data.json", DownloadName("", "json"))
	assert.Equal(t, "json_data.yaml", DownloadName("", "yaml"))
}

func TestNewView(t *testing.T) {
	view, err := NewView(json.RawMessage(`{"k":"v"}`), "sheet.xlsx")
	require.NoError(t, err)

	assert.Equal(t, "sheet", view.Name)
	assert.Equal(t, "{\n  \"k\": \"v\"\n}", view.Src)
}

func TestEncode(t *testing.T) {
	doc := json.RawMessage(`[{"id":9007199254740993,"name":"Ann","score":1.5}]`)

	t.Run("json by default", func(t *testing.T) {
		enc, err := Encode(doc, "")
		require.NoError(t, err)
		assert.Equal(t, "application/json", enc.ContentType)
		assert.Equal(t, "json", enc.Extension)
		assert.JSONEq(t, string(doc), string(enc.Data))
	})

	t.Run("yaml", func(t *testing.T) {
		enc, err := Encode(doc, "YAML")
		require.NoError(t, err)
		assert.Equal(t, "application/yaml", enc.ContentType)
		assert.Equal(t, "yaml", enc.Extension)

		var back []map[string]interface{}
		require.NoError(t, yaml.Unmarshal(enc.Data, &back))
		require.Len(t, back, 1)
		assert.Equal(t, "Ann", back[0]["name"])
		assert.Equal(t, 9007199254740993, back[0]["id"])
		assert.Equal(t, 1.5, back[0]["score"])
	})

	t.Run("msgpack", func(t *testing.T) {
		enc, err := Encode(doc, "msgpack")
		require.NoError(t, err)
		assert.Equal(t, "application/msgpack", enc.ContentType)

		var back []map[string]interface{}
		require.NoError(t, msgpack.Unmarshal(enc.Data, &back))
		require.Len(t, back, 1)
		assert.Equal(t, "Ann", back[0]["name"])
		assert.EqualValues(t, int64(9007199254740993), back[0]["id"])
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := Encode(doc, "xml")
		assert.ErrorIs(t, err, ErrUnknownFormat)
	})

	t.Run("invalid document", func(t *testing.T) {
		_, err := Encode(json.RawMessage(`nope`), "yaml")
		assert.Error(t, err)
	})
}
