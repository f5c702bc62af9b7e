package report

import (
	"context"
	"fmt"
	"io"

	"agenda/internal/availability"
	"agenda/internal/slots"
)

var slotColumns = []string{"Fecha", "Inicio", "Fin", "UTC", "Duración"}

// WriteAvailability renders an availability result with one sheet per team
// member, preceded by a summary sheet.
func WriteAvailability(out io.Writer, res *availability.Result) error {
	if res == nil {
		return fmt.Errorf("nil availability result")
	}

	wb := NewWorkbook()
	defer wb.Close()

	if err := wb.AddSheet("Resumen"); err != nil {
		return err
	}
	if err := wb.WriteHeader([]string{"Servicio", "Profesional", "Cupos", "Zona horaria"}); err != nil {
		return err
	}
	for _, m := range res.TeamMembers {
		if err := wb.WriteRow([]any{res.ServiceName, m.Name, len(m.Slots), res.TimeZone}); err != nil {
			return err
		}
	}

	used := map[string]int{"Resumen": 1}
	duration := slots.FormatDuration(res.DurationMinutes)
	for _, m := range res.TeamMembers {
		name := uniqueSheet(used, m.Name)
		if err := wb.AddSheet(name); err != nil {
			return err
		}
		if err := wb.WriteHeader(slotColumns); err != nil {
			return err
		}
		for _, s := range m.Slots {
			if err := wb.WriteRow([]any{s.Date, s.Start, s.End, s.UTCOffset, duration}); err != nil {
				return fmt.Errorf("write slot row: %w", err)
			}
		}
	}

	return wb.Save(out)
}

func uniqueSheet(used map[string]int, name string) string {
	name = sheetName(name)
	n := used[name]
	used[name] = n + 1
	if n == 0 {
		return name
	}
	suffix := fmt.Sprintf(" (%d)", n+1)
	base := []rune(name)
	if len(base)+len(suffix) > maxSheetName {
		base = base[:maxSheetName-len(suffix)]
	}
	return string(base) + suffix
}

// TableSource lists and reads database tables.
type TableSource interface {
	GetTableNames(ctx context.Context) ([]string, error)
	GetTableData(ctx context.Context, tableName string) ([]map[string]interface{}, []string, error)
}

// ExportTables dumps every table of src into its own sheet and returns the
// number of exported tables.
func ExportTables(ctx context.Context, src TableSource, out io.Writer) (int, error) {
	tables, err := src.GetTableNames(ctx)
	if err != nil {
		return 0, fmt.Errorf("get table names: %w", err)
	}
	if len(tables) == 0 {
		return 0, nil
	}

	wb := NewWorkbook()
	defer wb.Close()

	for _, table := range tables {
		data, columns, err := src.GetTableData(ctx, table)
		if err != nil {
			return 0, fmt.Errorf("get data for %s: %w", table, err)
		}
		if err := wb.AddSheet(table); err != nil {
			return 0, err
		}
		if err := wb.WriteHeader(columns); err != nil {
			return 0, err
		}
		for _, row := range data {
			values := make([]any, len(columns))
			for i, col := range columns {
				values[i] = cellValue(row[col])
			}
			if err := wb.WriteRow(values); err != nil {
				return 0, err
			}
		}
	}

	if err := wb.Save(out); err != nil {
		return 0, err
	}
	return len(tables), nil
}

func cellValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
