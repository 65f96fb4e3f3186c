// Package schema defines the configured profile schema: the ordered column set
// of the relational table and the embeddable columns ("collections") whose text
// is also projected into the vector index.
//
// The schema is loaded once at startup and validated there; request-time code
// never derives column names dynamically. Uploaded keyed documents use
// word-capitalized source keys (e.g. SchoolName); the mapping to snake_case
// column names is built and checked here, and any column whose source key
// cannot be derived unambiguously is rejected at load time.
package schema

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"
)

// ColumnType is the declared relational type of a column.
type ColumnType string

// Supported column types. String columns carry a max length; Text is unbounded.
const (
	TypeString ColumnType = "string"
	TypeText   ColumnType = "text"
)

// defaultStringLength applies when a string column omits length.
const defaultStringLength = 255

// Column is one configured schema column.
type Column struct {
	Name   string     `yaml:"name"`
	Type   ColumnType `yaml:"type"`
	Length int        `yaml:"length,omitempty"`
}

// Schema is the ordered column list plus the embeddable column names.
type Schema struct {
	Columns     []Column `yaml:"columns"`
	Collections []string `yaml:"collections"`

	// sourceKeys maps the word-capitalized upload key to its column name,
	// e.g. "SchoolName" -> "school_name". Built by Validate.
	sourceKeys map[string]string
}

var columnNameRe = regexp.MustCompile(`^[a-z][a-z0-9]*(_[a-z0-9]+)*$`)

// Load reads and validates a schema YAML file.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}

	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema file: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

// Default returns the built-in applicant-profile schema, used when no schema
// file is configured.
func Default() *Schema {
	s := &Schema{
		Columns: []Column{
			{Name: "file_name", Type: TypeString, Length: 512},
			{Name: "name", Type: TypeString, Length: 512},
			{Name: "age", Type: TypeString, Length: 512},
			{Name: "nationality", Type: TypeString, Length: 512},
			{Name: "school_name", Type: TypeString, Length: 512},
			{Name: "education_level", Type: TypeString, Length: 512},
			{Name: "field_of_study", Type: TypeString, Length: 512},
			{Name: "preferred_position", Type: TypeString, Length: 512},
			{Name: "experience", Type: TypeString, Length: 512},
			{Name: "technical_skills", Type: TypeString, Length: 2048},
			{Name: "language_proficiency", Type: TypeString, Length: 512},
			{Name: "preferred_job_type", Type: TypeString, Length: 512},
			{Name: "detailed_summary", Type: TypeText},
		},
		Collections: []string{"detailed_summary"},
	}

	if err := s.Validate(); err != nil {
		// The built-in schema is constant; a validation failure is a bug.
		panic(fmt.Sprintf("schema: invalid default schema: %v", err))
	}

	return s
}

// Validate checks the schema and builds the source-key mapping. It must be
// called before any other method; Load and Default call it.
func (s *Schema) Validate() error {
	if len(s.Columns) == 0 {
		return fmt.Errorf("schema: no columns configured")
	}

	names := make(map[string]struct{}, len(s.Columns))
	s.sourceKeys = make(map[string]string, len(s.Columns))

	for i := range s.Columns {
		col := &s.Columns[i]

		if !columnNameRe.MatchString(col.Name) {
			return fmt.Errorf("schema: column %q is not a valid snake_case name", col.Name)
		}

		if col.Name == "id" {
			return fmt.Errorf("schema: column \"id\" is reserved for the primary key")
		}

		if _, dup := names[col.Name]; dup {
			return fmt.Errorf("schema: duplicate column %q", col.Name)
		}
		names[col.Name] = struct{}{}

		switch ColumnType(strings.ToLower(string(col.Type))) {
		case TypeString:
			col.Type = TypeString
			if col.Length <= 0 {
				col.Length = defaultStringLength
			}
		case TypeText:
			col.Type = TypeText
			col.Length = 0
		default:
			return fmt.Errorf("schema: column %q has unsupported type %q", col.Name, col.Type)
		}

		key := SourceKey(col.Name)
		if prev, clash := s.sourceKeys[key]; clash {
			return fmt.Errorf("schema: columns %q and %q both map to source key %q", prev, col.Name, key)
		}
		s.sourceKeys[key] = col.Name
	}

	seen := make(map[string]struct{}, len(s.Collections))

	for _, name := range s.Collections {
		if _, ok := names[name]; !ok {
			return fmt.Errorf("schema: collection %q is not a configured column", name)
		}

		if _, dup := seen[name]; dup {
			return fmt.Errorf("schema: duplicate collection %q", name)
		}
		seen[name] = struct{}{}
	}

	return nil
}

// SourceKey derives the word-capitalized upload key for a snake_case column
// name, e.g. "school_name" -> "SchoolName".
func SourceKey(column string) string {
	parts := strings.Split(column, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}

	return strings.Join(parts, "")
}

// ColumnNames returns the column names in declaration order.
func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		names[i] = col.Name
	}

	return names
}

// ColumnForSourceKey maps an upload key (e.g. "SchoolName") to its column name.
func (s *Schema) ColumnForSourceKey(key string) (string, bool) {
	name, ok := s.sourceKeys[key]

	return name, ok
}

// HasColumn reports whether name is a configured column.
func (s *Schema) HasColumn(name string) bool {
	_, ok := s.sourceKeys[SourceKey(name)]

	return ok && s.sourceKeys[SourceKey(name)] == name
}

// HasCollection reports whether name is a configured embeddable column.
func (s *Schema) HasCollection(name string) bool {
	for _, c := range s.Collections {
		if c == name {
			return true
		}
	}

	return false
}
