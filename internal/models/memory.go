package models

import (
	"time"

	"ramwatch/internal/format"
)

// MemoryStatus is the presentation view of a snapshot's byte quantities.
// It is always derived from the integer fields, never stored independently.
type MemoryStatus struct {
	Total     string `json:"total"`
	Available string `json:"available"`
	Used      string `json:"used"`
	Free      string `json:"free"`
}

// MemorySnapshot represents one point-in-time reading of host memory.
// Keys ending in _f hold the formatted view of the byte field before them.
type MemorySnapshot struct {
	TotalBytes         uint64    `json:"total_mem"`
	TotalFormatted     string    `json:"total_mem_f"`
	AvailableBytes     uint64    `json:"available_mem"`
	AvailableFormatted string    `json:"available_mem_f"`
	UsedBytes          uint64    `json:"used_mem"`
	UsedFormatted      string    `json:"used_mem_f"`
	FreeBytes          uint64    `json:"free_mem"`
	FreeFormatted      string    `json:"free_mem_f"`
	PercentUsed        float64   `json:"percent_mem"`
	SampledAt          time.Time `json:"sampled_at"`
}

// NewMemorySnapshot builds a snapshot from host-reported values and fills in
// the formatted views.
func NewMemorySnapshot(total, available, used, free uint64, percent float64, sampledAt time.Time) *MemorySnapshot {
	s := &MemorySnapshot{
		TotalBytes:     total,
		AvailableBytes: available,
		UsedBytes:      used,
		FreeBytes:      free,
		PercentUsed:    percent,
		SampledAt:      sampledAt,
	}
	view := s.Formatted()
	s.TotalFormatted = view.Total
	s.AvailableFormatted = view.Available
	s.UsedFormatted = view.Used
	s.FreeFormatted = view.Free
	return s
}

// Formatted recomputes the formatted views from the byte fields.
func (s *MemorySnapshot) Formatted() MemoryStatus {
	return MemoryStatus{
		Total:     format.FormatSize(s.TotalBytes, ""),
		Available: format.FormatSize(s.AvailableBytes, ""),
		Used:      format.FormatSize(s.UsedBytes, ""),
		Free:      format.FormatSize(s.FreeBytes, ""),
	}
}
