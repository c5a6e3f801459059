// Package schedule derives pending vaccination obligations from the
// stored vaccination events and a fixed immunization schedule.
//
// The schedule uses an age-offset rule: each vaccine is expected a
// fixed number of days after the child's birth date. It is loaded once
// at startup and never mutated afterwards.
package schedule

import (
	"encoding/json"
	"fmt"
	"os"
)

// Entry is one expected vaccine: due AgeDays after birth.
type Entry struct {
	Vaccine string `json:"vaccine"`
	AgeDays int    `json:"age_days"`
}

// Schedule is the full immunization plan, ordered by age.
type Schedule []Entry

// Default returns the built-in childhood immunization schedule.
func Default() Schedule {
	return Schedule{
		{Vaccine: "BCG", AgeDays: 0},
		{Vaccine: "OPV-0", AgeDays: 0},
		{Vaccine: "Hepatitis B-1", AgeDays: 0},
		{Vaccine: "DTP-1", AgeDays: 42},
		{Vaccine: "OPV-1", AgeDays: 42},
		{Vaccine: "Hepatitis B-2", AgeDays: 42},
		{Vaccine: "DTP-2", AgeDays: 70},
		{Vaccine: "OPV-2", AgeDays: 70},
		{Vaccine: "DTP-3", AgeDays: 98},
		{Vaccine: "OPV-3", AgeDays: 98},
		{Vaccine: "Hepatitis B-3", AgeDays: 98},
		{Vaccine: "Measles-1", AgeDays: 270},
		{Vaccine: "MMR-1", AgeDays: 365},
	}
}

// Load reads a schedule from a JSON file: an array of
// {"vaccine": ..., "age_days": ...} entries.
func Load(path string) (Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedule: %w", err)
	}
	var s Schedule
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schedule: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s Schedule) validate() error {
	if len(s) == 0 {
		return fmt.Errorf("schedule is empty")
	}
	seen := make(map[string]bool, len(s))
	for _, e := range s {
		if e.Vaccine == "" {
			return fmt.Errorf("schedule entry has no vaccine name")
		}
		if e.AgeDays < 0 {
			return fmt.Errorf("schedule entry %s has negative age offset", e.Vaccine)
		}
		if seen[e.Vaccine] {
			return fmt.Errorf("schedule lists %s twice", e.Vaccine)
		}
		seen[e.Vaccine] = true
	}
	return nil
}
