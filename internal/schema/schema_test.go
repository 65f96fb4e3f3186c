package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	s := Default()

	assert.Len(t, s.Columns, 13)
	assert.Equal(t, []string{"detailed_summary"}, s.Collections)
	assert.True(t, s.HasColumn("school_name"))
	assert.True(t, s.HasCollection("detailed_summary"))
	assert.False(t, s.HasCollection("school_name"))
}

func TestSourceKey(t *testing.T) {
	assert.Equal(t, "SchoolName", SourceKey("school_name"))
	assert.Equal(t, "Age", SourceKey("age"))
	assert.Equal(t, "PreferredJobType", SourceKey("preferred_job_type"))
}

func TestValidate_SourceKeyMapping(t *testing.T) {
	s := &Schema{Columns: []Column{
		{Name: "school_name", Type: "String", Length: 512},
		{Name: "detailed_summary", Type: "Text"},
	}}

	require.NoError(t, s.Validate())

	col, ok := s.ColumnForSourceKey("SchoolName")
	require.True(t, ok)
	assert.Equal(t, "school_name", col)

	_, ok = s.ColumnForSourceKey("Unknown")
	assert.False(t, ok)

	// Types are normalized and string lengths defaulted.
	assert.Equal(t, TypeString, s.Columns[0].Type)
	assert.Equal(t, TypeText, s.Columns[1].Type)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		schema Schema
	}{
		{"empty", Schema{}},
		{"bad name", Schema{Columns: []Column{{Name: "SchoolName", Type: TypeString}}}},
		{"reserved id", Schema{Columns: []Column{{Name: "id", Type: TypeString}}}},
		{"duplicate column", Schema{Columns: []Column{
			{Name: "age", Type: TypeString},
			{Name: "age", Type: TypeString},
		}}},
		{"unknown type", Schema{Columns: []Column{{Name: "age", Type: "Integer"}}}},
		{"collection not a column", Schema{
			Columns:     []Column{{Name: "age", Type: TypeString}},
			Collections: []string{"detailed_summary"},
		}},
		{"duplicate collection", Schema{
			Columns:     []Column{{Name: "summary", Type: TypeText}},
			Collections: []string{"summary", "summary"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.schema.Validate())
		})
	}
}

func TestValidate_StringLengthDefault(t *testing.T) {
	s := &Schema{Columns: []Column{{Name: "age", Type: TypeString}}}
	require.NoError(t, s.Validate())
	assert.Equal(t, defaultStringLength, s.Columns[0].Length)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.yaml")

	content := []byte(`
columns:
  - name: file_name
    type: string
    length: 512
  - name: summary
    type: text
collections:
  - summary
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"file_name", "summary"}, s.ColumnNames())
	assert.True(t, s.HasCollection("summary"))
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
