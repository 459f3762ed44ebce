package weather

import (
	"context"
	"fmt"
	"maps"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/tabot/internal/domain"
	"github.com/alejandrodnm/tabot/internal/ports"
)

// Change overrides some categories' conditions from At onwards.
type Change struct {
	At         time.Time         `yaml:"at"`
	Conditions map[string]string `yaml:"conditions"`
}

// ScheduleFile is the on-disk form of a condition timeline.
type ScheduleFile struct {
	Default map[string]string `yaml:"default"`
	Changes []Change          `yaml:"changes"`
}

// Schedule replays a condition timeline against the clock, so a backtest can
// exercise condition changes deterministically.
type Schedule struct {
	clock   ports.TimeSource
	initial map[string]string
	changes []Change
}

func NewSchedule(clock ports.TimeSource, f ScheduleFile) *Schedule {
	changes := append([]Change(nil), f.Changes...)
	sort.SliceStable(changes, func(i, j int) bool { return changes[i].At.Before(changes[j].At) })
	return &Schedule{clock: clock, initial: maps.Clone(f.Default), changes: changes}
}

// LoadSchedule reads a ScheduleFile from YAML.
func LoadSchedule(path string) (ScheduleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ScheduleFile{}, fmt.Errorf("weather.LoadSchedule: read %q: %w", path, err)
	}
	var f ScheduleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return ScheduleFile{}, fmt.Errorf("weather.LoadSchedule: parse YAML: %w", err)
	}
	return f, nil
}

func (s *Schedule) All(_ context.Context) (map[string]string, error) {
	now := s.clock.Now()
	out := maps.Clone(s.initial)
	if out == nil {
		out = make(map[string]string)
	}
	for _, c := range s.changes {
		if c.At.After(now) {
			break
		}
		maps.Copy(out, c.Conditions)
	}
	return out, nil
}

func (s *Schedule) One(ctx context.Context, category string) (string, error) {
	all, _ := s.All(ctx)
	c, ok := all[category]
	if !ok {
		return "", fmt.Errorf("weather.Schedule: %s: %w", category, domain.ErrUnknownCategory)
	}
	return c, nil
}

var _ ports.ConditionReader = (*Schedule)(nil)
