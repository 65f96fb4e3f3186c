package normalizer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talenthub/hub/internal/huberrors"
	"github.com/talenthub/hub/internal/idgen"
	"github.com/talenthub/hub/internal/schema"
)

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()

	ids, err := idgen.New(1)
	require.NoError(t, err)

	s := &schema.Schema{
		Columns: []schema.Column{
			{Name: "file_name", Type: schema.TypeString, Length: 255},
			{Name: "school_name", Type: schema.TypeString, Length: 255},
			{Name: "skill_set", Type: schema.TypeString, Length: 255},
			{Name: "detailed_summary", Type: schema.TypeText},
		},
		Collections: []string{"detailed_summary"},
	}
	require.NoError(t, s.Validate())

	return New(s, ids)
}

func TestNormalize_KeyedDocument(t *testing.T) {
	n := newTestNormalizer(t)

	payload := []byte(`{
		"resume_a.pdf": {
			"DetailedSummary": "Experienced backend engineer",
			"CategoricalValues": {"SchoolName": "MIT"}
		},
		"resume_b.pdf": {
			"DetailedSummary": "Data scientist",
			"CategoricalValues": {"SchoolName": "CMU", "SkillSet": ["python", "sql"]}
		}
	}`)

	rows, err := n.Normalize(payload)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Record keys are processed in sorted order.
	assert.Equal(t, "resume_a.pdf", rows[0].Fields["file_name"])
	assert.Equal(t, "MIT", rows[0].Fields["school_name"])
	assert.Equal(t, "", rows[0].Fields["skill_set"])
	assert.Equal(t, "Experienced backend engineer", rows[0].Fields["detailed_summary"])

	assert.Equal(t, "resume_b.pdf", rows[1].Fields["file_name"])
	assert.Equal(t, "python; sql", rows[1].Fields["skill_set"])

	assert.NotZero(t, rows[0].ID)
	assert.NotEqual(t, rows[0].ID, rows[1].ID)
}

func TestNormalize_KeyedDocument_MissingCategoricalValues(t *testing.T) {
	n := newTestNormalizer(t)

	rows, err := n.Normalize([]byte(`{"r1": {"DetailedSummary": "summary only"}}`))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "r1", rows[0].Fields["file_name"])
	assert.Equal(t, "", rows[0].Fields["school_name"])
	assert.Equal(t, "summary only", rows[0].Fields["detailed_summary"])
}

func TestNormalize_KeyedDocument_IgnoresUnknownCategoricals(t *testing.T) {
	n := newTestNormalizer(t)

	rows, err := n.Normalize([]byte(`{
		"r1": {
			"DetailedSummary": "s",
			"CategoricalValues": {"SchoolName": "MIT", "FavoriteColor": "blue"}
		}
	}`))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "MIT", rows[0].Fields["school_name"])
	_, hasExtra := rows[0].Fields["favorite_color"]
	assert.False(t, hasExtra)
}

func TestNormalize_KeyedDocument_CategoricalValuesOnly(t *testing.T) {
	n := newTestNormalizer(t)

	rows, err := n.Normalize([]byte(`{"r1": {"CategoricalValues": {"SchoolName": "MIT"}}}`))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "r1", rows[0].Fields["file_name"])
	assert.Equal(t, "MIT", rows[0].Fields["school_name"])
	assert.Equal(t, "", rows[0].Fields["detailed_summary"])
}

func TestNormalize_Line_ObjectCellsStayOnLinePath(t *testing.T) {
	n := newTestNormalizer(t)

	// A single flat line whose cells are all objects parses as a top-level
	// object of objects, but none of them carries the record shape, so it must
	// take the line path and keep its top-level keys as column names.
	rows, err := n.Normalize([]byte(`{"skill_set": {"primary": "go"}, "detailed_summary": {"text": "x"}}`))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, `{"primary":"go"}`, rows[0].Fields["skill_set"])
	assert.Equal(t, `{"text":"x"}`, rows[0].Fields["detailed_summary"])
	assert.Equal(t, "", rows[0].Fields["file_name"])
}

func TestNormalize_Lines(t *testing.T) {
	n := newTestNormalizer(t)

	payload := []byte(`{"file_name": "a.pdf", "school_name": "MIT", "detailed_summary": "one"}
{"file_name": "b.pdf", "detailed_summary": "two"}
`)

	rows, err := n.Normalize(payload)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "a.pdf", rows[0].Fields["file_name"])
	assert.Equal(t, "MIT", rows[0].Fields["school_name"])
	assert.Equal(t, "b.pdf", rows[1].Fields["file_name"])
	assert.Equal(t, "", rows[1].Fields["school_name"])
	assert.Equal(t, "two", rows[1].Fields["detailed_summary"])
}

func TestNormalize_Lines_SkipsBlankLines(t *testing.T) {
	n := newTestNormalizer(t)

	payload := []byte("\n{\"file_name\": \"a.pdf\"}\n\n{\"file_name\": \"b.pdf\"}\n\n")

	rows, err := n.Normalize(payload)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestNormalize_Lines_UnknownColumn(t *testing.T) {
	n := newTestNormalizer(t)

	_, err := n.Normalize([]byte(`{"file_name": "a.pdf", "shcool_name": "typo"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, huberrors.ErrNormalization))
	assert.Contains(t, err.Error(), "shcool_name")
}

func TestNormalize_StringifiesScalars(t *testing.T) {
	n := newTestNormalizer(t)

	rows, err := n.Normalize([]byte(`{"file_name": "a.pdf", "school_name": 42, "skill_set": true}`))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "42", rows[0].Fields["school_name"])
	assert.Equal(t, "true", rows[0].Fields["skill_set"])
}

func TestNormalize_EmptyPayload(t *testing.T) {
	n := newTestNormalizer(t)

	for _, payload := range [][]byte{nil, []byte(""), []byte("   \n  ")} {
		_, err := n.Normalize(payload)
		require.Error(t, err)
		assert.True(t, errors.Is(err, huberrors.ErrNormalization))
	}
}

func TestNormalize_MalformedPayload(t *testing.T) {
	n := newTestNormalizer(t)

	_, err := n.Normalize([]byte(`{"r1": {`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, huberrors.ErrNormalization))
}

func TestNormalize_MalformedLine_NoPartialRows(t *testing.T) {
	n := newTestNormalizer(t)

	payload := []byte(`{"file_name": "a.pdf"}
not json at all`)

	rows, err := n.Normalize(payload)
	require.Error(t, err)
	assert.Nil(t, rows)
}
