package reconcile

import "fmt"

// ColumnKind is the logical type of a unified schema column.
type ColumnKind int

const (
	KindString ColumnKind = iota
	KindTime
	KindFloat
)

// Column is one column of the unified schema.
type Column struct {
	Name  string
	Kind  ColumnKind
	Group string
}

// fieldGroups declares the columns each source contributes. The key columns
// come first so every row shares the identity prefix; the remaining groups
// follow in source order. BuildSchema folds these into one fixed column list.
var fieldGroups = [][]Column{
	{
		{Name: "session_id", Kind: KindString, Group: "key"},
		{Name: "user_id", Kind: KindString, Group: "key"},
		{Name: "captured_at", Kind: KindTime, Group: "key"},
	},
	{
		{Name: "video_reference", Kind: KindString, Group: "vlog"},
		{Name: "duration_seconds", Kind: KindFloat, Group: "vlog"},
	},
	{
		{Name: "emotion_label", Kind: KindString, Group: "emotion"},
		{Name: "emotion_score", Kind: KindFloat, Group: "emotion"},
	},
	{
		{Name: "latitude", Kind: KindFloat, Group: "gps"},
		{Name: "longitude", Kind: KindFloat, Group: "gps"},
	},
}

// BuildSchema computes the unified column schema from the union of field
// groups. It is recomputed per reconciliation pass so the schema is an
// immutable per-request value, and it fails with ErrSchemaConflict if two
// groups declare the same column name with different kinds.
func BuildSchema() ([]Column, error) {
	seen := make(map[string]Column)
	schema := make([]Column, 0, 9)
	for _, group := range fieldGroups {
		for _, col := range group {
			if prev, ok := seen[col.Name]; ok {
				if prev.Kind != col.Kind {
					return nil, fmt.Errorf("column %q declared as both kind %d and %d: %w", col.Name, prev.Kind, col.Kind, ErrSchemaConflict)
				}
				continue
			}
			seen[col.Name] = col
			schema = append(schema, col)
		}
	}
	return schema, nil
}
