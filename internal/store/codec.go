package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Set-valued reference fields are stored as JSON arrays so a save rewrites
// the whole document field, the same way the rows are read back.

func encodeIDs(ids []int64) (string, error) {
	if ids == nil {
		ids = []int64{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("failed to encode ids: %w", err)
	}
	return string(b), nil
}

func decodeIDs(raw string) ([]int64, error) {
	ids := []int64{}
	if raw == "" {
		return ids, nil
	}
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("failed to decode ids: %w", err)
	}
	return ids, nil
}

func encodeDow(days []time.Weekday) (string, error) {
	vals := make([]int, 0, len(days))
	for _, d := range days {
		vals = append(vals, int(d))
	}
	sort.Ints(vals)
	b, err := json.Marshal(vals)
	if err != nil {
		return "", fmt.Errorf("failed to encode dow: %w", err)
	}
	return string(b), nil
}

func decodeDow(raw string) ([]time.Weekday, error) {
	var vals []int
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &vals); err != nil {
			return nil, fmt.Errorf("failed to decode dow: %w", err)
		}
	}
	days := make([]time.Weekday, 0, len(vals))
	for _, v := range vals {
		days = append(days, time.Weekday(v))
	}
	return days, nil
}
