package metrics

import "sort"

// StatusRow is one line of the status-code distribution.
type StatusRow struct {
	Code  int
	Count int64
}

// ErrorRow is one line of the error distribution.
type ErrorRow struct {
	Message string
	Count   int64
}

// StatusRows flattens a status-code map into rows sorted by ascending code.
func StatusRows(codes map[int]int64) []StatusRow {
	if len(codes) == 0 {
		return nil
	}
	rows := make([]StatusRow, 0, len(codes))
	for code, count := range codes {
		rows = append(rows, StatusRow{Code: code, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Code < rows[j].Code
	})
	return rows
}

// ErrorRows flattens an error map into rows sorted by descending count, then
// by message for stability.
func ErrorRows(errs map[string]int64) []ErrorRow {
	if len(errs) == 0 {
		return nil
	}
	rows := make([]ErrorRow, 0, len(errs))
	for msg, count := range errs {
		rows = append(rows, ErrorRow{Message: msg, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Message < rows[j].Message
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
