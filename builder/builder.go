package builder

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/juju/errors"

	"github.com/ipatlas/ipatlas/config"
	"github.com/ipatlas/ipatlas/rangedb"
	"github.com/ipatlas/ipatlas/sources"
)

// crossCheckStride: cross-checking every record against the secondary
// geo source would dominate the build, so only every Nth is sampled.
const crossCheckStride = 1000

// Builder turns the raw tabular sources into the four binary
// databases. Per-dataset, per-family pipelines share no mutable state
// and run fully in parallel.
type Builder struct {
	fs   afero.Fs
	conf *config.BuildConfig
}

func New(fs afero.Fs, conf *config.BuildConfig) *Builder {
	return &Builder{fs: fs, conf: conf}
}

type pipeline struct {
	dataset rangedb.Dataset
	family  rangedb.Family
	file    string
	makeRow sources.RowFunc
}

type pipelineResult struct {
	pipeline pipeline
	table    *rangedb.Table
	stats    *sources.RowStats
	err      error
}

// Report summarizes one build run.
type Report struct {
	Stats []*sources.RowStats
	Files []string
}

// Build runs normalization, augmentation, merging and encoding, and
// atomically replaces the database files in the output directory.
func (b *Builder) Build() (*Report, error) {
	if err := b.fs.MkdirAll(b.conf.OutputDirectory, 0o755); err != nil {
		return nil, errors.Annotate(err, "Cannot create output directory")
	}

	results, err := b.normalizeAll()
	if err != nil {
		return nil, err
	}

	tables := map[rangedb.Dataset]map[rangedb.Family]*rangedb.Table{}
	report := &Report{}

	for _, res := range results {
		if tables[res.pipeline.dataset] == nil {
			tables[res.pipeline.dataset] = map[rangedb.Family]*rangedb.Table{}
		}

		tables[res.pipeline.dataset][res.pipeline.family] = res.table
		report.Stats = append(report.Stats, res.stats)
	}

	if err := b.augmentGeo(tables[rangedb.DatasetGeo]); err != nil {
		return nil, err
	}

	for _, dataset := range rangedb.Datasets() {
		merged, err := sources.Merge(dataset,
			tables[dataset][rangedb.FamilyIPv4],
			tables[dataset][rangedb.FamilyIPv6])
		if err != nil {
			return nil, err
		}

		path := filepath.Join(b.conf.OutputDirectory, rangedb.FileName(dataset))

		if err := rangedb.WriteDatabase(b.fs, path, dataset, merged.V4, merged.V6); err != nil {
			return nil, errors.Annotatef(err, "Cannot write %s database", dataset)
		}

		report.Files = append(report.Files, path)

		log.WithFields(log.Fields{
			"dataset": dataset.String(),
			"path":    path,
			"records": merged.Records,
		}).Info("Database written")
	}

	return report, nil
}

// normalizeAll runs the eight independent (dataset, family) pipelines
// on a worker pool.
func (b *Builder) normalizeAll() ([]*pipelineResult, error) {
	pipelines := b.pipelines()
	results := make([]*pipelineResult, len(pipelines))

	pool, err := ants.NewPool(runtime.NumCPU())
	if err != nil {
		return nil, errors.Annotate(err, "Cannot create worker pool")
	}

	defer pool.Release()

	wg := &sync.WaitGroup{}

	for i, pl := range pipelines {
		i, pl := i, pl

		wg.Add(1)

		submitErr := pool.Submit(func() {
			defer wg.Done()

			table, stats, err := b.normalize(pl)
			results[i] = &pipelineResult{pipeline: pl, table: table, stats: stats, err: err}
		})
		if submitErr != nil {
			wg.Done()

			return nil, errors.Annotate(submitErr, "Cannot submit pipeline")
		}
	}

	wg.Wait()

	for _, res := range results {
		if res == nil {
			continue
		}

		if res.err != nil {
			return nil, errors.Annotatef(res.err, "Cannot normalize %s %s",
				res.pipeline.dataset, res.pipeline.family)
		}
	}

	return results, nil
}

func (b *Builder) normalize(pl pipeline) (*rangedb.Table, *sources.RowStats, error) {
	path := filepath.Join(b.conf.SourceDirectory, pl.file)

	filefp, err := b.fs.Open(path)
	if err != nil {
		return nil, nil, errors.Annotatef(err, "Cannot open source %s", path)
	}

	defer filefp.Close()

	return sources.Normalize(filefp, pl.dataset, pl.family, pl.makeRow)
}

func (b *Builder) pipelines() []pipeline {
	v4, v6 := rangedb.FamilyIPv4, rangedb.FamilyIPv6

	return []pipeline{
		{rangedb.DatasetGeo, v4, b.conf.Geo.IPv4, sources.GeoRow(v4)},
		{rangedb.DatasetGeo, v6, b.conf.Geo.IPv6, sources.GeoRow(v6)},
		{rangedb.DatasetASN, v4, b.conf.ASN.IPv4, sources.ASNRow(v4)},
		{rangedb.DatasetASN, v6, b.conf.ASN.IPv6, sources.ASNRow(v6)},
		{rangedb.DatasetISP, v4, b.conf.Proxy.IPv4, sources.ISPRow(v4)},
		{rangedb.DatasetISP, v6, b.conf.Proxy.IPv6, sources.ISPRow(v6)},
		{rangedb.DatasetProxy, v4, b.conf.Proxy.IPv4, sources.ProxyRow(v4)},
		{rangedb.DatasetProxy, v6, b.conf.Proxy.IPv6, sources.ProxyRow(v6)},
	}
}

// augmentGeo fills the tabular geo tables from the third-party
// database. A missing database is not an error: the tabular source
// alone is a valid, just less complete, build.
func (b *Builder) augmentGeo(geo map[rangedb.Family]*rangedb.Table) error {
	path := filepath.Join(b.conf.SourceDirectory, b.conf.MaxMindDatabase)

	if _, err := b.fs.Stat(path); err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			log.WithFields(log.Fields{
				"path": path,
			}).Warn("No maxmind database, skipping geo augmentation")

			return nil
		}

		return errors.Annotatef(err, "Cannot stat %s", path)
	}

	maxmind, err := sources.OpenMaxMind(b.fs, path)
	if err != nil {
		return errors.Annotate(err, "Cannot open maxmind database")
	}

	defer maxmind.Close()

	for _, family := range []rangedb.Family{rangedb.FamilyIPv4, rangedb.FamilyIPv6} {
		ranges, err := maxmind.Ranges(family)
		if err != nil {
			return errors.Annotatef(err, "Cannot traverse maxmind %s ranges", family)
		}

		sources.AugmentGeo(geo[family], ranges)

		if b.conf.CrossCheck {
			sources.CrossCheckGeo(geo[family], maxmind, crossCheckStride)
		}
	}

	return nil
}
