// Package export provides the flattened row model, dataset assembly, output
// naming, and the file serializer for export runs.
package export

import (
	"sort"
	"strconv"

	"github.com/target/dms-export/internal/domain/model"
)

// Row is one flattened output row: a fixed identity/audit part plus an
// extension map of custom-field values keyed by field name.
type Row struct {
	RecordID    string
	RecordName  string
	Version     string
	Activity    string
	Actor       string
	Status      string
	CompletedAt string
	Comment     string
	Fields      map[string]string
}

// standardHeader is the fixed column set; custom field names follow it sorted
// alphabetically.
var standardHeader = []string{
	"Record ID",
	"Record Name",
	"Version",
	"Activity",
	"Actor",
	"Status",
	"Completed At",
	"Comment",
}

// FlattenRecord expands one record's fetched detail into output rows.
// Instances are ordered by descending version; each step yields one row.
// A record with no steps at all yields a single NO_HISTORY placeholder, and a
// record whose detail fetch failed yields a single FETCH_ERROR placeholder.
// Every row inherits the record's custom-field values verbatim.
func FlattenRecord(rec model.Record, instances []model.HistoryInstance, fetchFailed bool) []Row {
	if fetchFailed {
		return []Row{placeholderRow(rec, model.ActivityFetchError)}
	}

	sorted := make([]model.HistoryInstance, len(instances))
	copy(sorted, instances)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Version > sorted[j].Version
	})

	var rows []Row
	for _, inst := range sorted {
		for _, step := range inst.Steps {
			rows = append(rows, Row{
				RecordID:    rec.ID,
				RecordName:  rec.Name,
				Version:     strconv.Itoa(inst.Version),
				Activity:    step.Name,
				Actor:       step.Actor,
				Status:      step.Status,
				CompletedAt: step.CompletedAt,
				Comment:     step.Comment,
				Fields:      rec.Fields,
			})
		}
	}

	if len(rows) == 0 {
		rows = append(rows, placeholderRow(rec, model.ActivityNoHistory))
	}
	return rows
}

func placeholderRow(rec model.Record, activity string) Row {
	return Row{
		RecordID:   rec.ID,
		RecordName: rec.Name,
		Activity:   activity,
		Fields:     rec.Fields,
	}
}

// BuildDataset renders rows into a dataset whose header is the fixed columns
// followed by the sorted union of all custom field names seen in this run.
func BuildDataset(name string, rows []Row) model.Dataset {
	fieldSet := make(map[string]struct{})
	for _, row := range rows {
		for k := range row.Fields {
			fieldSet[k] = struct{}{}
		}
	}

	fields := make([]string, 0, len(fieldSet))
	for k := range fieldSet {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	header := make([]string, 0, len(standardHeader)+len(fields))
	header = append(header, standardHeader...)
	header = append(header, fields...)

	rendered := make([][]string, 0, len(rows))
	for _, row := range rows {
		out := make([]string, 0, len(header))
		out = append(out,
			row.RecordID,
			row.RecordName,
			row.Version,
			row.Activity,
			row.Actor,
			row.Status,
			row.CompletedAt,
			row.Comment,
		)
		for _, f := range fields {
			out = append(out, row.Fields[f])
		}
		rendered = append(rendered, out)
	}

	return model.Dataset{Name: name, Header: header, Rows: rendered}
}
