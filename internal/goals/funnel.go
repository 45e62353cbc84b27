package goals

import "math"

// FunnelStep is the evaluated result of one step in an ordered funnel.
// DropOff is nil for the first step.
type FunnelStep struct {
	Name           string   `json:"name"`
	Sessions       int      `json:"sessions"`
	ConversionRate float64  `json:"conversionRate"`
	DropOffRate    *float64 `json:"dropOffRate,omitempty"`
}

// AnalyzeFunnel computes per-step conversion and drop-off for an ordered
// list of steps. sessionsPerStep[i] is the number of sessions that reached
// steps[i]; conversion is always measured against the first step.
func AnalyzeFunnel(steps []Goal, sessionsPerStep []int) []FunnelStep {
	if len(steps) == 0 || len(steps) != len(sessionsPerStep) {
		return nil
	}

	entered := sessionsPerStep[0]
	results := make([]FunnelStep, 0, len(steps))
	for i, step := range steps {
		reached := sessionsPerStep[i]

		conversion := 0.0
		if entered > 0 {
			conversion = roundPercent(float64(reached) / float64(entered) * 100)
		}

		result := FunnelStep{
			Name:           step.Name,
			Sessions:       reached,
			ConversionRate: conversion,
		}
		if i > 0 {
			previous := sessionsPerStep[i-1]
			dropOff := 0.0
			if previous > 0 {
				dropOff = roundPercent(float64(previous-reached) / float64(previous) * 100)
			}
			result.DropOffRate = &dropOff
		}
		results = append(results, result)
	}
	return results
}

func roundPercent(v float64) float64 {
	return math.Round(v*100) / 100
}
