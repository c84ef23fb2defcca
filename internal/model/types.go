// Package model defines shared data structures.
package model

import "time"

// RunKind classifies a stored run.
type RunKind string

const (
	KindAnalyze  RunKind = "analyze"
	KindConverge RunKind = "converge"
	KindBench    RunKind = "bench"
)

// AnalyzeConfig defines settings for a key search.
type AnalyzeConfig struct {
	Algorithm          string
	Iterations         int
	Restarts           int
	Alpha              float64
	InitialTemperature float64
	FinalTemperature   float64
	Seed               int64
	RandomStart        bool
}

// ConvergeConfig defines a budget sweep.
type ConvergeConfig struct {
	Budgets    []int
	Trials     int
	Workers    int
	MinLetters int
	Timeout    time.Duration
}

// BenchConfig defines a benchmark run.
type BenchConfig struct {
	Cases      int
	MinLetters int
	Workers    int
	Timeout    time.Duration
	Algorithms []string
	Exec       []string
}

// RunFilter narrows ListRuns.
type RunFilter struct {
	Kind  RunKind
	Since *time.Time
	Last  int
}

// RunRecord is one persisted run of any kind.
type RunRecord struct {
	ID        string
	Kind      RunKind
	Algorithm string
	CreatedAt time.Time
	Params    string
	Key       string
	Plaintext string
	Score     float64
	ElapsedMs int64
	Status    string
}

// ConvergencePoint is the stored aggregate for one budget.
type ConvergencePoint struct {
	Budget          int
	Trials          int
	Completed       int
	MeanScore       float64
	StdScore        float64
	MeanAccuracy    float64
	StdAccuracy     float64
	MeanKeyAccuracy *float64
	NoData          bool
}

// BenchRecord is one stored benchmark trial.
type BenchRecord struct {
	CaseIdx      int
	Algorithm    string
	Status       string
	TextAccuracy *float64
	KeyAccuracy  *float64
	ElapsedMs    int64
	ExitCode     int
	Stderr       string
}
