// Package export renders availability overviews as xlsx workbooks.
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"studiobook/internal/aggregate"
	"studiobook/internal/models"
)

const overviewSheet = "Overview"

// WriteOverview writes an overview workbook: one row per hour on the Overview
// sheet, then one sheet per engineer listing the hours they are free.
// engineers fixes sheet order and display names; IDs missing from it are
// listed under their ID after the known ones.
func WriteOverview(out io.Writer, hours map[string][]string, engineers []models.Resource) error {
	w, err := newSheetWriter()
	if err != nil {
		return err
	}
	defer w.close()

	names := make(map[string]string, len(engineers))
	order := make([]string, 0, len(engineers))
	for _, e := range engineers {
		if _, dup := names[e.ID]; dup {
			continue
		}
		names[e.ID] = displayName(e)
		order = append(order, e.ID)
	}

	keys := make([]string, 0, len(hours))
	perEngineer := make(map[string][]string)
	var extra []string
	for key, ids := range hours {
		keys = append(keys, key)
		for _, id := range ids {
			if _, known := names[id]; !known {
				names[id] = id
				extra = append(extra, id)
			}
			perEngineer[id] = append(perEngineer[id], key)
		}
	}
	sort.Strings(keys)
	sort.Strings(extra)
	order = append(order, extra...)

	if err := w.addSheet(overviewSheet); err != nil {
		return err
	}
	if err := w.writeHeader("Date", "Hour", "Engineers free", "Level", "Engineers"); err != nil {
		return err
	}
	for _, key := range keys {
		ids := hours[key]
		date, hour := splitKey(key)
		labels := make([]string, len(ids))
		for i, id := range ids {
			labels[i] = names[id]
		}
		if err := w.writeRow(date, hour, len(ids), string(aggregate.LevelOf(len(ids))), strings.Join(labels, ", ")); err != nil {
			return fmt.Errorf("overview row %s: %w", key, err)
		}
	}

	for _, id := range order {
		if err := w.addSheet(names[id]); err != nil {
			return err
		}
		if err := w.writeHeader("Date", "Hour"); err != nil {
			return err
		}
		free := perEngineer[id]
		sort.Strings(free)
		for _, key := range free {
			date, hour := splitKey(key)
			if err := w.writeRow(date, hour); err != nil {
				return fmt.Errorf("engineer %s row %s: %w", id, key, err)
			}
		}
	}

	return w.save(out)
}

func displayName(e models.Resource) string {
	if e.Name != "" {
		return e.Name
	}
	return e.ID
}

func splitKey(key string) (date, hour string) {
	date, hour, ok := strings.Cut(key, " ")
	if !ok {
		return key, ""
	}
	return date, hour
}
