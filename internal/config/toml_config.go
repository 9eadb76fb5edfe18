package config

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"github.com/opensquiggly/spinach-sub000/internal/errors"
	"github.com/opensquiggly/spinach-sub000/internal/types"
)

// tomlConfig mirrors the KDL layout. Pointer fields distinguish "unset"
// from zero so a file only overrides what it names.
type tomlConfig struct {
	Version *int `toml:"version"`
	Project struct {
		Root *string `toml:"root"`
		Name *string `toml:"name"`
	} `toml:"project"`
	Search struct {
		MaxDocSize        any     `toml:"max_doc_size"`
		LargeDocThreshold any     `toml:"large_doc_threshold"`
		DocMatchType      *string `toml:"doc_match_type"`
		CaseSensitive     *bool   `toml:"case_sensitive"`
		MaxResults        *int    `toml:"max_results"`
		AllowFullScan     *bool   `toml:"allow_full_scan"`
	} `toml:"search"`
	Cache struct {
		Users        *int `toml:"users"`
		Repositories *int `toml:"repositories"`
		Documents    *int `toml:"documents"`
	} `toml:"cache"`
	Index struct {
		MaxFileSize            any   `toml:"max_file_size"`
		TimeSliceMs            *int  `toml:"time_slice_ms"`
		Workers                *int  `toml:"workers"`
		RespectBinaryDetection *bool `toml:"respect_binary_detection"`
		RespectGitignore       *bool `toml:"respect_gitignore"`
		WatchDebounceMs        *int  `toml:"watch_debounce_ms"`
	} `toml:"index"`
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
}

func applyTOML(cfg *Config, content []byte, configDir string) error {
	var tc tomlConfig
	if err := toml.Unmarshal(content, &tc); err != nil {
		return fmt.Errorf("failed to parse TOML config: %w", err)
	}

	setInt(&cfg.Version, tc.Version)
	if tc.Project.Root != nil {
		cfg.Project.Root = resolveRoot(*tc.Project.Root, configDir)
	}
	if tc.Project.Name != nil {
		cfg.Project.Name = *tc.Project.Name
	}

	if err := setSize(&cfg.Search.MaxDocSize, tc.Search.MaxDocSize, "search.max_doc_size"); err != nil {
		return err
	}
	if err := setSize(&cfg.Search.LargeDocThreshold, tc.Search.LargeDocThreshold, "search.large_doc_threshold"); err != nil {
		return err
	}
	if tc.Search.DocMatchType != nil {
		mt, ok := types.ParseDocMatchType(*tc.Search.DocMatchType)
		if !ok {
			return errors.NewConfigError("search.doc_match_type", *tc.Search.DocMatchType, fmt.Errorf("expected \"first\" or \"all\""))
		}
		cfg.Search.DocMatchType = mt
	}
	setBool(&cfg.Search.CaseSensitive, tc.Search.CaseSensitive)
	setInt(&cfg.Search.MaxResults, tc.Search.MaxResults)
	setBool(&cfg.Search.AllowFullScan, tc.Search.AllowFullScan)

	setInt(&cfg.Cache.Users, tc.Cache.Users)
	setInt(&cfg.Cache.Repositories, tc.Cache.Repositories)
	setInt(&cfg.Cache.Documents, tc.Cache.Documents)

	if err := setSize(&cfg.Index.MaxFileSize, tc.Index.MaxFileSize, "index.max_file_size"); err != nil {
		return err
	}
	setInt(&cfg.Index.TimeSliceMs, tc.Index.TimeSliceMs)
	setInt(&cfg.Index.Workers, tc.Index.Workers)
	setBool(&cfg.Index.RespectBinaryDetection, tc.Index.RespectBinaryDetection)
	setBool(&cfg.Index.RespectGitignore, tc.Index.RespectGitignore)
	setInt(&cfg.Index.WatchDebounceMs, tc.Index.WatchDebounceMs)

	if tc.Include != nil {
		cfg.Include = tc.Include
	}
	if len(tc.Exclude) > 0 {
		cfg.Exclude = DeduplicatePatterns(append(cfg.Exclude, tc.Exclude...))
	}
	return nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// setSize accepts an integer or a size string such as "4MB".
func setSize(dst *int64, v any, field string) error {
	switch x := v.(type) {
	case nil:
		return nil
	case int64:
		*dst = x
	case float64:
		*dst = int64(x)
	case string:
		sz, err := parseSize(x)
		if err != nil {
			return errors.NewConfigError(field, x, err)
		}
		*dst = sz
	default:
		return errors.NewConfigError(field, fmt.Sprint(v), fmt.Errorf("expected a number or size string, got %T", v))
	}
	return nil
}
