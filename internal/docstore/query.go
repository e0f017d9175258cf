package docstore

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Filter is an equality test on a (possibly dotted) field path.
type Filter struct {
	Field string
	Value any
}

// Where builds an equality filter.
func Where(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// Query selects documents from one collection.
type Query struct {
	Where   []Filter
	OrderBy string // field path; empty orders by insertion time
	Desc    bool
	Limit   int // 0 means unlimited
}

var fieldPathRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

func jsonPath(field string) (string, error) {
	if !fieldPathRe.MatchString(field) {
		return "", fmt.Errorf("invalid field path %q", field)
	}
	return "$." + field, nil
}

// Find runs q against collection.
func (s *Store) Find(ctx context.Context, collection string, q Query) ([]Document, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT id, data FROM documents WHERE collection = ?`)
	args = append(args, collection)

	for _, f := range q.Where {
		path, err := jsonPath(f.Field)
		if err != nil {
			return nil, err
		}
		if b, ok := f.Value.(bool); ok {
			// JSON booleans extract as 1/0.
			sb.WriteString(` AND json_extract(data, ?) = ?`)
			args = append(args, path, boolInt(b))
			continue
		}
		sb.WriteString(` AND json_extract(data, ?) = ?`)
		args = append(args, path, f.Value)
	}

	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	if q.OrderBy != "" {
		path, err := jsonPath(q.OrderBy)
		if err != nil {
			return nil, err
		}
		sb.WriteString(` ORDER BY json_extract(data, ?) ` + dir + `, created_at ` + dir)
		args = append(args, path)
	} else {
		sb.WriteString(` ORDER BY created_at ` + dir + `, id ` + dir)
	}
	if q.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		doc, err := decodeDoc(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
		out = append(out, Document{ID: id, Data: doc})
	}
	return out, rows.Err()
}

// Count returns the number of documents in a collection matching filters.
func (s *Store) Count(ctx context.Context, collection string, filters ...Filter) (int, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT COUNT(*) FROM documents WHERE collection = ?`)
	args = append(args, collection)
	for _, f := range filters {
		path, err := jsonPath(f.Field)
		if err != nil {
			return 0, err
		}
		v := f.Value
		if b, ok := v.(bool); ok {
			v = boolInt(b)
		}
		sb.WriteString(` AND json_extract(data, ?) = ?`)
		args = append(args, path, v)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, sb.String(), args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
