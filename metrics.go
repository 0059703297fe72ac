package bfasm

import (
	"sort"

	"golang.org/x/xerrors"
)

// HistoryMetrics holds aggregate counts over the compilation history.
type HistoryMetrics struct {
	Total        uint
	ByStatus     map[CompilationStatus]uint
	ByErrorKind  map[string]uint
	DistinctSrcs uint
}

type statusRow struct {
	Status    CompilationStatus
	ErrorKind string
	Count     uint
}

func (p *Persistence) QueryMetrics() (*HistoryMetrics, error) {
	var rows []statusRow
	result := p.DB.Model(&Compilation{}).
		Select("status, error_kind, count(*) as count").
		Group("status, error_kind").
		Scan(&rows)
	if result.Error != nil {
		return nil, xerrors.Errorf("Failed to query history metrics: %w", result.Error)
	}

	m := &HistoryMetrics{
		ByStatus:    make(map[CompilationStatus]uint),
		ByErrorKind: make(map[string]uint),
	}
	for _, r := range rows {
		m.Total += r.Count
		m.ByStatus[r.Status] += r.Count
		if r.ErrorKind != "" {
			m.ByErrorKind[r.ErrorKind] += r.Count
		}
	}

	var distinct int64
	if result := p.DB.Model(&Compilation{}).Distinct("source_hash").Count(&distinct); result.Error != nil {
		return nil, xerrors.Errorf("Failed to count distinct sources: %w", result.Error)
	}
	m.DistinctSrcs = uint(distinct)

	return m, nil
}

// Statuses lists the statuses present, in a stable order.
func (m *HistoryMetrics) Statuses() []CompilationStatus {
	out := make([]CompilationStatus, 0, len(m.ByStatus))
	for s := range m.ByStatus {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
