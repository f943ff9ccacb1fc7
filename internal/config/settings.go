package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"taxman/internal/core"
)

type (
	// Settings is the per-platform configuration loaded from the YAML
	// settings file: SKU remap tables, exclusion cutoffs and payout
	// cadence offsets. Vendors rename SKUs and launch mid-year, so this
	// lives in config rather than code.
	Settings struct {
		// Titles maps platform name -> raw vendor SKU -> canonical title.
		Titles map[string]map[string]string `yaml:"titles"`

		// Platforms holds per-platform tuning.
		Platforms map[string]PlatformSettings `yaml:"platforms"`
	}

	PlatformSettings struct {
		// ExcludeBefore marks months before the cutoff as intentionally
		// absent (pre-launch), format YYYY-MM.
		ExcludeBefore string `yaml:"exclude_before"`

		// MonthOffset shifts the sub-ledger's months before merging,
		// e.g. +1 for earnings paid one month in arrears.
		MonthOffset int `yaml:"month_offset"`

		// BankToleranceDays bounds the payout/bank date match.
		BankToleranceDays int `yaml:"bank_tolerance_days"`
	}
)

// LoadSettings reads and validates the YAML settings file. A missing
// file yields empty settings: every knob has a workable zero value.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Settings{}, nil
		}
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("settings %s: %w", path, err)
	}
	return &s, nil
}

func (s *Settings) validate() error {
	for name, p := range s.Platforms {
		if p.ExcludeBefore == "" {
			continue
		}
		if _, err := core.ParseTaxMonth(p.ExcludeBefore); err != nil {
			return fmt.Errorf("platform %s: exclude_before: %w", name, err)
		}
	}
	return nil
}

// TitleMap returns the SKU remap table for a platform. Never nil.
func (s *Settings) TitleMap(platform string) map[string]string {
	if m, ok := s.Titles[platform]; ok {
		return m
	}
	return map[string]string{}
}

// ExcludeBefore returns the exclusion cutoff for a platform, if set.
func (s *Settings) ExcludeBefore(platform string) (core.TaxMonth, bool) {
	p, ok := s.Platforms[platform]
	if !ok || p.ExcludeBefore == "" {
		return core.TaxMonth{}, false
	}
	m, err := core.ParseTaxMonth(p.ExcludeBefore)
	if err != nil {
		// validate() rejects malformed cutoffs at load time
		return core.TaxMonth{}, false
	}
	return m, true
}

// MonthOffset returns the payout cadence offset for a platform.
func (s *Settings) MonthOffset(platform string) int {
	return s.Platforms[platform].MonthOffset
}

// BankToleranceDays returns the bank match tolerance for a platform,
// defaulting to 20 days when unset.
func (s *Settings) BankToleranceDays(platform string) int {
	if d := s.Platforms[platform].BankToleranceDays; d > 0 {
		return d
	}
	return 20
}
