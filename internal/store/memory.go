package store

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"
)

// Memory is an in-process Destination for dry runs and tests. Column
// comparison is on the value's fmt.Sprint form, matching how the REST
// gateway filters with eq.
type Memory struct {
	mu     sync.Mutex
	tables map[string][]Row
}

// NewMemory creates an empty Memory destination.
func NewMemory() *Memory {
	return &Memory{tables: make(map[string][]Row)}
}

func tableKey(schema, table string) string {
	return schema + "." + table
}

// Rows returns a copy of every row stored in schema.table.
func (m *Memory) Rows(schema, table string) []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.tables[tableKey(schema, table)]
	out := make([]Row, len(src))
	for i, r := range src {
		out[i] = maps.Clone(r)
	}
	return out
}

func (m *Memory) SelectEq(_ context.Context, schema, table, fields, column, value string) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var cols []string
	if strings.TrimSpace(fields) != "" && fields != "*" {
		for _, f := range strings.Split(fields, ",") {
			cols = append(cols, strings.TrimSpace(f))
		}
	}

	var out []Row
	for _, r := range m.tables[tableKey(schema, table)] {
		if !matches(r, column, value) {
			continue
		}
		if cols == nil {
			out = append(out, maps.Clone(r))
			continue
		}
		proj := make(Row, len(cols))
		for _, c := range cols {
			if v, ok := r[c]; ok {
				proj[c] = v
			}
		}
		out = append(out, proj)
	}
	return out, nil
}

func (m *Memory) Insert(_ context.Context, schema, table string, row Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := tableKey(schema, table)
	m.tables[k] = append(m.tables[k], maps.Clone(row))
	return nil
}

func (m *Memory) Upsert(_ context.Context, schema, table string, row Row, onConflict string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertLocked(tableKey(schema, table), row, onConflict)
	return nil
}

func (m *Memory) UpsertMany(_ context.Context, schema, table string, rows []Row, onConflict string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := tableKey(schema, table)
	for _, r := range rows {
		m.upsertLocked(k, r, onConflict)
	}
	return nil
}

func (m *Memory) upsertLocked(key string, row Row, onConflict string) {
	rows := m.tables[key]
	keys := conflictKeys(onConflict)
	for _, existing := range rows {
		if sameKey(existing, row, keys) {
			maps.Copy(existing, row)
			return
		}
	}
	m.tables[key] = append(rows, maps.Clone(row))
}

func sameKey(a, b Row, keys []string) bool {
	if len(keys) == 0 {
		return false
	}
	for _, k := range keys {
		v, ok := b[k]
		if !ok || !matches(a, k, fmt.Sprint(v)) {
			return false
		}
	}
	return true
}

func (m *Memory) UpdateEq(_ context.Context, schema, table string, patch Row, column, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.tables[tableKey(schema, table)] {
		if matches(r, column, value) {
			maps.Copy(r, patch)
		}
	}
	return nil
}

func matches(r Row, column, value string) bool {
	v, ok := r[column]
	return ok && fmt.Sprint(v) == value
}
