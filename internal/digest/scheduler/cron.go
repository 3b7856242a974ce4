// Marquee - Movie Catalog and Release Notification Backend
// Copyright 2026 Marquee Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

// Package scheduler drives the daily release-digest run.
package scheduler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CronExpression is a parsed standard 5-field cron expression:
// minute hour day-of-month month day-of-week.
type CronExpression struct {
	Minutes     []int // 0-59
	Hours       []int // 0-23
	DaysOfMonth []int // 1-31
	Months      []int // 1-12
	DaysOfWeek  []int // 0-6 (0 = Sunday)
}

// ParseCron parses a standard 5-field cron expression.
//
// Supported syntax per field: "*", "n", "n-m", "n,m,o", "*/s", "n-m/s".
// Day 7 in the day-of-week field is normalized to Sunday (0).
//
// Examples:
//   - "0 8 * * *"  - daily at 08:00
//   - "30 9 * * 1" - Mondays at 09:30
func ParseCron(expr string) (*CronExpression, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("cron expression must have 5 fields, got %d", len(fields))
	}

	minutes, err := parseField(fields[0], 0, 59)
	if err != nil {
		return nil, fmt.Errorf("invalid minute field: %w", err)
	}
	hours, err := parseField(fields[1], 0, 23)
	if err != nil {
		return nil, fmt.Errorf("invalid hour field: %w", err)
	}
	daysOfMonth, err := parseField(fields[2], 1, 31)
	if err != nil {
		return nil, fmt.Errorf("invalid day-of-month field: %w", err)
	}
	months, err := parseField(fields[3], 1, 12)
	if err != nil {
		return nil, fmt.Errorf("invalid month field: %w", err)
	}
	daysOfWeek, err := parseField(fields[4], 0, 7)
	if err != nil {
		return nil, fmt.Errorf("invalid day-of-week field: %w", err)
	}

	normalized := make([]int, 0, len(daysOfWeek))
	for _, d := range daysOfWeek {
		if d == 7 {
			d = 0
		}
		normalized = append(normalized, d)
	}

	return &CronExpression{
		Minutes:     minutes,
		Hours:       hours,
		DaysOfMonth: daysOfMonth,
		Months:      months,
		DaysOfWeek:  uniqueSorted(normalized),
	}, nil
}

// NextRun returns the first time strictly after the given time that matches
// the expression, evaluated in loc. If loc is nil, UTC is used.
func (c *CronExpression) NextRun(after time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t := after.In(loc).Add(time.Minute)
	t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, loc)

	// Bounded scan; four years of minutes covers any valid expression.
	maxIterations := 365 * 24 * 60 * 4
	for i := 0; i < maxIterations; i++ {
		if c.matches(t) {
			return t
		}
		t = t.Add(time.Minute)
	}
	return time.Time{}
}

// matches reports whether t satisfies the expression.
func (c *CronExpression) matches(t time.Time) bool {
	if !containsInt(c.Minutes, t.Minute()) ||
		!containsInt(c.Hours, t.Hour()) ||
		!containsInt(c.Months, int(t.Month())) {
		return false
	}

	// Day-of-month and day-of-week are OR'd when both are restricted,
	// matching standard cron behavior.
	domMatch := containsInt(c.DaysOfMonth, t.Day())
	dowMatch := containsInt(c.DaysOfWeek, int(t.Weekday()))
	domWildcard := len(c.DaysOfMonth) == 31
	dowWildcard := len(c.DaysOfWeek) == 7

	switch {
	case domWildcard && dowWildcard:
		return true
	case domWildcard:
		return dowMatch
	case dowWildcard:
		return domMatch
	default:
		return domMatch || dowMatch
	}
}

// parseField parses one cron field into the sorted set of matching values.
func parseField(field string, minVal, maxVal int) ([]int, error) {
	if field == "*" {
		return rangeInts(minVal, maxVal), nil
	}

	if strings.Contains(field, ",") {
		var result []int
		for _, part := range strings.Split(field, ",") {
			values, err := parseFieldPart(part, minVal, maxVal)
			if err != nil {
				return nil, err
			}
			result = append(result, values...)
		}
		return uniqueSorted(result), nil
	}

	return parseFieldPart(field, minVal, maxVal)
}

// parseFieldPart parses a single non-list part of a cron field.
func parseFieldPart(part string, minVal, maxVal int) ([]int, error) {
	if strings.Contains(part, "/") {
		pieces := strings.SplitN(part, "/", 2)
		step, err := strconv.Atoi(pieces[1])
		if err != nil || step <= 0 {
			return nil, fmt.Errorf("invalid step value: %s", pieces[1])
		}

		start, end := minVal, maxVal
		switch {
		case pieces[0] == "*":
		case strings.Contains(pieces[0], "-"):
			bounds := strings.SplitN(pieces[0], "-", 2)
			if start, err = strconv.Atoi(bounds[0]); err != nil {
				return nil, fmt.Errorf("invalid range start: %s", bounds[0])
			}
			if end, err = strconv.Atoi(bounds[1]); err != nil {
				return nil, fmt.Errorf("invalid range end: %s", bounds[1])
			}
		default:
			if start, err = strconv.Atoi(pieces[0]); err != nil {
				return nil, fmt.Errorf("invalid value: %s", pieces[0])
			}
		}

		var result []int
		for i := start; i <= end; i += step {
			if i >= minVal && i <= maxVal {
				result = append(result, i)
			}
		}
		return result, nil
	}

	if strings.Contains(part, "-") {
		bounds := strings.SplitN(part, "-", 2)
		start, err := strconv.Atoi(bounds[0])
		if err != nil {
			return nil, fmt.Errorf("invalid range start: %s", bounds[0])
		}
		end, err := strconv.Atoi(bounds[1])
		if err != nil {
			return nil, fmt.Errorf("invalid range end: %s", bounds[1])
		}
		if start > end || start < minVal || end > maxVal {
			return nil, fmt.Errorf("invalid range: %d-%d (min=%d, max=%d)", start, end, minVal, maxVal)
		}
		return rangeInts(start, end), nil
	}

	val, err := strconv.Atoi(part)
	if err != nil {
		return nil, fmt.Errorf("invalid value: %s", part)
	}
	if val < minVal || val > maxVal {
		return nil, fmt.Errorf("value out of range: %d (min=%d, max=%d)", val, minVal, maxVal)
	}
	return []int{val}, nil
}

func rangeInts(start, end int) []int {
	result := make([]int, end-start+1)
	for i := range result {
		result[i] = start + i
	}
	return result
}

func containsInt(values []int, val int) bool {
	for _, v := range values {
		if v == val {
			return true
		}
	}
	return false
}

func uniqueSorted(values []int) []int {
	seen := make(map[int]bool, len(values))
	var result []int
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			result = append(result, v)
		}
	}
	sort.Ints(result)
	return result
}
