package table

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// csvRow renders one record aligned with the schema's source headers,
// quoting cells that would otherwise split (currency values carry commas).
func csvRow(cells map[string]string) string {
	fields := make([]string, len(Schema))
	for i, spec := range Schema {
		v := cells[spec.Name]
		if strings.ContainsAny(v, ",\"\n") {
			v = `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
		}
		fields[i] = v
	}
	return strings.Join(fields, ",")
}

func csvHeader() string {
	headers := make([]string, len(Schema))
	for i, spec := range Schema {
		headers[i] = spec.Source
	}
	return strings.Join(headers, ",")
}

func writeCSV(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.csv")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeCSV(t,
		csvHeader(),
		csvRow(map[string]string{
			ColUserID:      "u1",
			ColInstallTime: "2025-01-01",
			ColEventTime:   "2025-01-10 12:00:00",
			ColUserLevel:   "10",
			ColProductID:   "com.gamebrain.hexasort.tinyhexpack",
			ColUSDValue:    "$1,234.56",
			ColCountry:     "US",
		}),
		// Unparseable usd value: dropped for coercion.
		csvRow(map[string]string{
			ColUserID:    "u2",
			ColUserLevel: "5",
			ColUSDValue:  "abc",
		}),
		// Missing user level: dropped as a malformed event stub.
		csvRow(map[string]string{
			ColUserID:   "u3",
			ColUSDValue: "1.00",
		}),
		// Percent decoration on a float cell.
		csvRow(map[string]string{
			ColUserID:        "u4",
			ColUserLevel:     "7",
			ColStackVelocity: "45%",
		}),
	)

	snap, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV() error = %v", err)
	}
	if snap.Table.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", snap.Table.Len())
	}
	if snap.RowsRead != 4 {
		t.Errorf("RowsRead = %d, want 4", snap.RowsRead)
	}
	if snap.RowsDropped != 2 {
		t.Errorf("RowsDropped = %d, want 2", snap.RowsDropped)
	}
	if snap.Source != path {
		t.Errorf("Source = %q, want %q", snap.Source, path)
	}
	if snap.SourceMtime.IsZero() {
		t.Error("SourceMtime not set")
	}

	usd, valid, err := snap.Table.Floats(ColUSDValue)
	if err != nil {
		t.Fatalf("Floats(usd_value) error = %v", err)
	}
	if !valid[0] || usd[0] != 1234.56 {
		t.Errorf("usd_value[0] = %v (valid=%v), want 1234.56", usd[0], valid[0])
	}
	if valid[1] {
		t.Error("usd_value[1] should be null")
	}

	velocity, vValid, err := snap.Table.Floats(ColStackVelocity)
	if err != nil {
		t.Fatalf("Floats(stack_velocity) error = %v", err)
	}
	if !vValid[1] || velocity[1] != 45 {
		t.Errorf("stack_velocity[1] = %v (valid=%v), want 45", velocity[1], vValid[1])
	}

	events, eValid, err := snap.Table.Times(ColEventTime)
	if err != nil {
		t.Fatalf("Times(event_time) error = %v", err)
	}
	if !eValid[0] || events[0].Year() != 2025 || events[0].Hour() != 12 {
		t.Errorf("event_time[0] = %v (valid=%v), want 2025-01-10 12:00:00", events[0], eValid[0])
	}
}

func TestLoadCSVMissingColumns(t *testing.T) {
	// Header without the last schema column.
	headers := make([]string, 0, len(Schema)-1)
	for _, spec := range Schema[:len(Schema)-1] {
		headers = append(headers, spec.Source)
	}
	path := writeCSV(t, strings.Join(headers, ","))

	_, err := LoadCSV(path)
	var missing *MissingColumnError
	if !errors.As(err, &missing) {
		t.Fatalf("LoadCSV() error = %v, want MissingColumnError", err)
	}
	want := Schema[len(Schema)-1].Source
	if len(missing.Columns) != 1 || missing.Columns[0] != want {
		t.Errorf("Columns = %v, want [%s]", missing.Columns, want)
	}
}

func TestLoadCSVShortRows(t *testing.T) {
	// A truncated record treats the tail as null; the row survives as long
	// as the user level made it in.
	row := csvRow(map[string]string{ColUserID: "u1", ColUserLevel: "3"})
	fields := strings.Split(row, ",")
	levelIdx := 0
	for i, spec := range Schema {
		if spec.Name == ColUserLevel {
			levelIdx = i
		}
	}
	short := strings.Join(fields[:levelIdx+1], ",")

	path := writeCSV(t, csvHeader(), short)
	snap, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV() error = %v", err)
	}
	if snap.Table.Len() != 1 {
		t.Errorf("Len() = %d, want 1", snap.Table.Len())
	}
	if _, valid, _ := snap.Table.Strings(ColCountry); valid[0] {
		t.Error("country should be null on a short row")
	}
}

func TestLoadCSVMissingFile(t *testing.T) {
	if _, err := LoadCSV(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Error("LoadCSV() expected error for missing file")
	}
}
