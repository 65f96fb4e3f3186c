// Package normalizer converts uploaded applicant payloads into uniform rows
// over the configured schema.
//
// Two payload shapes are accepted: a keyed document mapping record keys (e.g.
// filenames) to objects with a free-text summary and nested categorical
// values, and newline-delimited flat objects that use column names directly.
package normalizer

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/talenthub/hub/internal/huberrors"
	"github.com/talenthub/hub/internal/idgen"
	"github.com/talenthub/hub/internal/models"
	"github.com/talenthub/hub/internal/schema"
)

// recordKeyColumn receives the record key of a keyed document, when configured.
const recordKeyColumn = "file_name"

// categoricalValuesKey nests the categorical key/value pairs inside each keyed
// document record.
const categoricalValuesKey = "CategoricalValues"

// listJoinDelimiter joins list-typed values into a single cell.
const listJoinDelimiter = "; "

// Normalizer turns raw upload payloads into rows with assigned ids.
type Normalizer struct {
	schema *schema.Schema
	ids    *idgen.Generator
}

// New creates a Normalizer over the given schema and id generator.
func New(s *schema.Schema, ids *idgen.Generator) *Normalizer {
	return &Normalizer{schema: s, ids: ids}
}

// Normalize parses the payload and returns one row per input record, each
// covering every configured column (missing values become "") plus a freshly
// assigned id. Malformed input returns a NormalizationError and no rows.
func (n *Normalizer) Normalize(payload []byte) ([]models.Row, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, huberrors.NewNormalizationError("empty payload", nil)
	}

	if records, ok := n.decodeKeyedDocument(trimmed); ok {
		return n.normalizeKeyed(records)
	}

	return n.normalizeLines(trimmed)
}

// decodeKeyedDocument reports whether the payload is a keyed document: a
// single JSON object whose values are all objects, at least one of which
// carries the record shape (a CategoricalValues block or a known source key).
// The shape check keeps a lone NDJSON line with object-typed cells from being
// misread as a keyed document.
func (n *Normalizer) decodeKeyedDocument(payload []byte) (map[string]map[string]json.RawMessage, bool) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(payload, &top); err != nil || len(top) == 0 {
		return nil, false
	}

	records := make(map[string]map[string]json.RawMessage, len(top))
	recordShaped := false

	for key, raw := range top {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, false
		}

		for field := range obj {
			if field == categoricalValuesKey {
				recordShaped = true

				break
			}

			if _, ok := n.schema.ColumnForSourceKey(field); ok {
				recordShaped = true

				break
			}
		}

		records[key] = obj
	}

	if !recordShaped {
		return nil, false
	}

	return records, true
}

// normalizeKeyed converts a keyed document. Record keys are processed in
// sorted order so id assignment and batch attribution are deterministic.
func (n *Normalizer) normalizeKeyed(records map[string]map[string]json.RawMessage) ([]models.Row, error) {
	keys := make([]string, 0, len(records))
	for key := range records {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([]models.Row, 0, len(records))

	for _, key := range keys {
		obj := records[key]

		categorical := map[string]json.RawMessage{}
		if rawCat, ok := obj[categoricalValuesKey]; ok {
			if err := json.Unmarshal(rawCat, &categorical); err != nil {
				return nil, huberrors.NewNormalizationError(
					fmt.Sprintf("record %q: %s is not an object", key, categoricalValuesKey), err)
			}
		}

		fields := make(map[string]string, len(n.schema.Columns))

		for _, col := range n.schema.Columns {
			if col.Name == recordKeyColumn {
				fields[col.Name] = key

				continue
			}

			sourceKey := schema.SourceKey(col.Name)

			raw, ok := obj[sourceKey]
			if !ok {
				raw, ok = categorical[sourceKey]
			}

			if !ok {
				fields[col.Name] = ""

				continue
			}

			value, err := stringifyValue(raw)
			if err != nil {
				return nil, huberrors.NewNormalizationError(
					fmt.Sprintf("record %q: field %s", key, sourceKey), err)
			}

			fields[col.Name] = value
		}

		rows = append(rows, models.Row{ID: n.ids.Next(), Fields: fields})
	}

	return rows, nil
}

// normalizeLines converts newline-delimited flat objects. Keys must be
// configured column names; an unknown key fails the whole call so typos
// surface instead of silently dropping data.
func (n *Normalizer) normalizeLines(payload []byte) ([]models.Row, error) {
	var rows []models.Row

	scanner := bufio.NewScanner(bytes.NewReader(payload))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var obj map[string]json.RawMessage
		if err := json.Unmarshal(line, &obj); err != nil {
			return nil, huberrors.NewNormalizationError(fmt.Sprintf("line %d is not a JSON object", lineNo), err)
		}

		for key := range obj {
			if key != "id" && !n.schema.HasColumn(key) {
				return nil, huberrors.NewNormalizationError(
					fmt.Sprintf("line %d: unknown column %q", lineNo, key), nil)
			}
		}

		fields := make(map[string]string, len(n.schema.Columns))

		for _, col := range n.schema.Columns {
			raw, ok := obj[col.Name]
			if !ok {
				fields[col.Name] = ""

				continue
			}

			value, err := stringifyValue(raw)
			if err != nil {
				return nil, huberrors.NewNormalizationError(
					fmt.Sprintf("line %d: field %s", lineNo, col.Name), err)
			}

			fields[col.Name] = value
		}

		rows = append(rows, models.Row{ID: n.ids.Next(), Fields: fields})
	}

	if err := scanner.Err(); err != nil {
		return nil, huberrors.NewNormalizationError("read payload", err)
	}

	if len(rows) == 0 {
		return nil, huberrors.NewNormalizationError("payload contains no records", nil)
	}

	return rows, nil
}

// stringifyValue coerces a JSON value to its cell representation: strings
// pass through, lists join with "; ", scalars format plainly, and structured
// values keep their compact JSON encoding.
func stringifyValue(raw json.RawMessage) (string, error) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", fmt.Errorf("decode value: %w", err)
	}

	return stringify(value), nil
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = stringify(item)
		}

		return strings.Join(parts, listJoinDelimiter)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(encoded)
	}
}
