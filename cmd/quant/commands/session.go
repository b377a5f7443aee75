package commands

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/aidanvyas/asset-pricing-code/internal/audit"
	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/internal/factors"
	"github.com/aidanvyas/asset-pricing-code/internal/industry"
	"github.com/aidanvyas/asset-pricing-code/internal/report"
	"github.com/aidanvyas/asset-pricing-code/internal/s0_data"
	"github.com/aidanvyas/asset-pricing-code/internal/studyconfig"
	"github.com/aidanvyas/asset-pricing-code/internal/transitions"
)

// session runs jobs against one loaded dataset and exports every result
// ⭐ SSOT: 단일 커맨드와 run 커맨드가 같은 작업 경로를 사용
type session struct {
	deps      *deps
	ds        *s0_data.Dataset
	runID     string
	window    contracts.Window
	exporter  *report.Exporter
	precision int

	runner     *factors.Runner
	summarizer *audit.Summarizer
	analyzer   *transitions.Analyzer
	regressor  *audit.Regressor
	describer  *audit.Describer

	replication *factors.Replication // 필요할 때 한 번만 계산
}

func newSession(d *deps, ds *s0_data.Dataset, runID string, window contracts.Window, formats []string, precision int) *session {
	runner := factors.NewRunner(d.log)
	if cache := d.resultCache(); cache != nil {
		runner = runner.WithCache(cache, runID)
	}
	return &session{
		deps:       d,
		ds:         ds,
		runID:      runID,
		window:     window,
		exporter:   d.exporter(formats),
		precision:  precision,
		runner:     runner,
		summarizer: audit.NewSummarizer(d.log),
		analyzer:   transitions.NewAnalyzer(d.log),
		regressor:  audit.NewRegressor(d.log),
		describer:  audit.NewDescriber(d.log, d.cfg.Workers),
	}
}

// record persists the run record of one job when persistence is enabled
func (s *session) record(ctx context.Context, job string, jobConfig interface{}, started time.Time) error {
	if s.deps.repo == nil {
		return nil
	}
	rec, err := studyconfig.NewRunRecord(s.runID, job, jobConfig, started)
	if err != nil {
		return err
	}
	return s.deps.repo.SaveRun(ctx, rec)
}

// sort runs one quantile sort: wide returns + summary table
func (s *session) sort(ctx context.Context, cfg contracts.SortConfig) error {
	started := time.Now()
	out, err := s.runner.Sort(ctx, s.ds, cfg, s.window)
	if err != nil {
		return fmt.Errorf("sort %s: %w", cfg.Name(), err)
	}
	summaries, err := s.summarizer.SummarizeSort(out, s.ds.Benchmark)
	if err != nil {
		return fmt.Errorf("summarize %s: %w", cfg.Name(), err)
	}

	name := factors.JobName(cfg)
	if err := s.exporter.Export(name,
		report.Pivot("returns", out.Table, out.LongShort),
		report.SummaryTable("summary", summaries, s.precision),
	); err != nil {
		return err
	}

	if s.deps.repo != nil {
		if err := s.deps.repo.SaveReturns(ctx, s.runID, name, out.Table); err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}
	}
	return s.record(ctx, name, cfg, started)
}

// transition runs one transition study: matrix, corner returns and per-industry matrices
func (s *session) transition(ctx context.Context, job studyconfig.TransitionJob) error {
	started := time.Now()
	opts := transitions.Options{
		Variant: transitions.Variant(job.VariantOrDefault()),
		Span:    job.Span,
		Window:  s.window,
	}
	if job.Industries != 0 {
		scheme, err := industry.ParseScheme(job.Industries)
		if err != nil {
			return err
		}
		opts.Scheme = scheme
	}

	res, err := s.analyzer.Run(s.ds, job.Sort, opts)
	if err != nil {
		return fmt.Errorf("transitions %s: %w", job.Sort.Name(), err)
	}

	tables := []report.Table{
		report.MatrixTable("matrix", res.Matrix, s.precision),
		report.CornerTable("corners", res.Corners, s.precision),
	}
	names := make([]string, 0, len(res.ByIndustry))
	for n := range res.ByIndustry {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		tables = append(tables, report.MatrixTable("matrix_"+n, res.ByIndustry[n], s.precision))
	}

	name := transitions.JobName(job.Sort, res.Variant)
	if err := s.exporter.Export(name, tables...); err != nil {
		return err
	}

	if s.deps.repo != nil {
		if err := s.deps.repo.SaveMatrix(ctx, s.runID, name, res.Matrix); err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}
	}
	return s.record(ctx, name, job, started)
}

// replicate builds the Fama-French factors once per session
func (s *session) replicate() (*factors.Replication, error) {
	if s.replication != nil {
		return s.replication, nil
	}
	rep, err := factors.NewReplicator(s.deps.log).Replicate(s.ds, s.window)
	if err != nil {
		return nil, fmt.Errorf("replicate factors: %w", err)
	}
	s.replication = rep
	return rep, nil
}

// factors replicates, summarizes and compares the Fama-French factors
func (s *session) factors(ctx context.Context, compareFrom time.Time) error {
	started := time.Now()
	rep, err := s.replicate()
	if err != nil {
		return err
	}

	summaries := make([]audit.Summary, 0, len(rep.Factors))
	for _, f := range rep.Factors {
		sum, err := s.summarizer.Summarize(f, s.ds.Benchmark, math.NaN())
		if err != nil {
			s.deps.log.WithError(err).WithField("factor", f.Name).Warn("Skipping factor summary")
			continue
		}
		summaries = append(summaries, sum)
	}
	comparisons := factors.NewComparer(s.deps.log).Compare(rep, s.ds.Benchmark, compareFrom)

	tables := []report.Table{
		report.SeriesTable("factors", rep.Factors...),
		report.SummaryTable("summary", summaries, s.precision),
		report.ComparisonTable("comparison", comparisons, s.precision),
	}
	legs := make([]string, 0, len(rep.Legs))
	for n := range rep.Legs {
		legs = append(legs, n)
	}
	sort.Strings(legs)
	for _, n := range legs {
		tables = append(tables, report.Pivot("legs_"+n, rep.Legs[n]))
	}

	const name = "factors/replication"
	if err := s.exporter.Export(name, tables...); err != nil {
		return err
	}
	return s.record(ctx, name, map[string]interface{}{"compare_from": compareFrom}, started)
}

// factorSeries resolves a factor by name: published benchmark first, then the replication
func (s *session) factorSeries(name string) (contracts.Series, error) {
	if f, err := s.ds.Benchmark.Factor(name); err == nil {
		return f.Window(s.window), nil
	}
	rep, err := s.replicate()
	if err != nil {
		return contracts.Series{}, err
	}
	if f, ok := rep.Factor(name); ok {
		return f, nil
	}
	return contracts.Series{}, fmt.Errorf("%w: %q is neither a benchmark column nor a replicated factor", contracts.ErrUnknownFactor, name)
}

// famaMacBeth runs one cross-sectional regression job
func (s *session) famaMacBeth(ctx context.Context, job studyconfig.FamaMacBethJob) error {
	started := time.Now()
	panel, err := s.regressor.Prepare(s.ds, job.Predictors)
	if err != nil {
		return err
	}
	panel = panel.Filter(func(i int) bool { return s.window.Contains(panel.Row(i).Date) })

	variables := append(audit.Controls(), job.Predictors...)
	res, err := s.regressor.FamaMacBeth(panel, s0_data.ColReturn, variables)
	if err != nil {
		return fmt.Errorf("fama-macbeth %s: %w", job.Name, err)
	}

	name := "regress/fama_macbeth/" + job.Name
	if err := s.exporter.Export(name, report.FamaMacBethTable("coefficients", res, s.precision)); err != nil {
		return err
	}
	return s.record(ctx, name, job, started)
}

// spanning regresses one factor on a set of factors
func (s *session) spanning(ctx context.Context, job studyconfig.SpanningJob) error {
	started := time.Now()
	y, err := s.factorSeries(job.Factor)
	if err != nil {
		return err
	}
	xs := make([]contracts.Series, len(job.On))
	for j, n := range job.On {
		if xs[j], err = s.factorSeries(n); err != nil {
			return err
		}
	}

	res, err := s.regressor.Spanning(y, xs)
	if err != nil {
		return err
	}

	name := "regress/spanning/" + job.Factor
	if err := s.exporter.Export(name, report.SpanningTable("coefficients", res, s.precision)); err != nil {
		return err
	}
	return s.record(ctx, name, job, started)
}

// describe computes time-averaged cross-sectional statistics of the regression panel
func (s *session) describe(ctx context.Context, job studyconfig.DescribeJob) error {
	started := time.Now()
	percentiles := job.Percentiles
	if len(percentiles) == 0 {
		percentiles = audit.DefaultPercentiles
	}

	panel, err := s.regressor.Prepare(s.ds, extraPredictors(job.Variables))
	if err != nil {
		return err
	}
	panel = panel.Filter(func(i int) bool { return s.window.Contains(panel.Row(i).Date) })

	rows, err := s.describer.Describe(ctx, panel, job.Variables, percentiles)
	if err != nil {
		return err
	}

	const name = "describe"
	if err := s.exporter.Export(name, report.DescribeTable("statistics", rows, percentiles, s.precision)); err != nil {
		return err
	}
	return s.record(ctx, name, job, started)
}

// extraPredictors drops the variables the regression panel already carries
func extraPredictors(variables []string) []string {
	have := map[string]bool{}
	for _, c := range audit.Controls() {
		have[c] = true
	}
	var out []string
	for _, v := range variables {
		if !have[v] {
			have[v] = true
			out = append(out, v)
		}
	}
	return out
}
