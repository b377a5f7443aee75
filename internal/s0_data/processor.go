package s0_data

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aidanvyas/asset-pricing-code/internal/contracts"
	"github.com/aidanvyas/asset-pricing-code/pkg/config"
	"github.com/aidanvyas/asset-pricing-code/pkg/logger"
)

// Processor turns the raw WRDS extracts into the monthly panel and the June snapshot
// ⭐ SSOT: 원천 데이터 가공 파이프라인 (Compustat → CRSP → CCM)
type Processor struct {
	loader    *Loader
	compustat *CompustatProcessor
	crsp      *CRSPProcessor
	links     *LinkMerger
	writer    *Writer
	logger    *logger.Logger
}

// NewProcessor creates a processor for the CRSP date window of cfg
func NewProcessor(log *logger.Logger, cfg config.DataConfig) *Processor {
	return &Processor{
		loader:    NewLoader(log),
		compustat: NewCompustatProcessor(log),
		crsp:      NewCRSPProcessor(log, contracts.Window{Start: cfg.CRSPStart, End: cfg.CRSPEnd}),
		links:     NewLinkMerger(log),
		writer:    NewWriter(log),
		logger:    log,
	}
}

type rawInputs struct {
	fundamentals []Fundamental
	stocks       []StockMonth
	names        []NameSpan
	delistings   []Delisting
	links        []Link
}

// read loads the five raw files concurrently
func (p *Processor) read(ctx context.Context, files RawFiles) (*rawInputs, error) {
	in := &rawInputs{}
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		in.fundamentals, err = p.loader.ReadFundamentals(files.Fundamentals)
		return err
	})
	g.Go(func() (err error) {
		in.stocks, err = p.loader.ReadStockMonths(files.StockMonths)
		return err
	})
	g.Go(func() (err error) {
		in.names, err = p.loader.ReadNames(files.Names)
		return err
	})
	g.Go(func() (err error) {
		in.delistings, err = p.loader.ReadDelistings(files.Delistings)
		return err
	})
	g.Go(func() (err error) {
		in.links, err = p.loader.ReadLinks(files.Links)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("read raw files: %w", err)
	}
	return in, nil
}

// build derives the monthly panel and the CCM-merged June snapshot
func (p *Processor) build(in *rawInputs) (monthly, snapshot *Panel) {
	funda := p.compustat.Process(in.fundamentals)
	monthly, june := p.crsp.Process(in.stocks, in.names, in.delistings)
	snapshot = p.links.Merge(june, funda, in.links)
	return monthly, snapshot
}

// Run reads, derives and writes the processed panels to cfg.MonthlyFile and cfg.SnapshotFile
func (p *Processor) Run(ctx context.Context, files RawFiles, cfg config.DataConfig) (*Dataset, error) {
	start := time.Now()
	p.logger.WithStage(contracts.StageData).Info("Processing raw data")

	in, err := p.read(ctx, files)
	if err != nil {
		return nil, err
	}
	monthly, snapshot := p.build(in)

	if err := p.writer.WritePanel(cfg.MonthlyFile, monthly); err != nil {
		return nil, err
	}
	if err := p.writer.WritePanel(cfg.SnapshotFile, snapshot); err != nil {
		return nil, err
	}

	p.logger.WithStage(contracts.StageData).Timed(start, "Processed raw data")
	return &Dataset{Monthly: monthly, Snapshot: snapshot}, nil
}
