package db

import (
	"context"
	"fmt"
	"slices"
)

// ExportTableNames lists tables included in spreadsheet exports, in sheet order.
var ExportTableNames = []string{
	"services",
	"team_members",
	"team_member_services",
	"working_hours",
	"special_days",
	"appointments",
}

// GetTableNames returns the exportable tables.
func (db *DB) GetTableNames(ctx context.Context) ([]string, error) {
	return slices.Clone(ExportTableNames), nil
}

// GetTableData reads a whole exportable table. Rows are keyed by column name;
// columns keep their schema order.
func (db *DB) GetTableData(ctx context.Context, tableName string) ([]map[string]interface{}, []string, error) {
	if !slices.Contains(ExportTableNames, tableName) {
		return nil, nil, fmt.Errorf("table %q is not exportable", tableName)
	}

	// tableName is one of the constants above
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+tableName)
	if err != nil {
		return nil, nil, fmt.Errorf("select %s: %w", tableName, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	data := make([]map[string]interface{}, 0)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("scan %s: %w", tableName, err)
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		data = append(data, row)
	}
	return data, columns, rows.Err()
}
