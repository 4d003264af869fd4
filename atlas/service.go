package atlas

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
	"github.com/spf13/afero"

	"github.com/ipatlas/ipatlas/rangedb"
)

const DefaultCacheSize = 4096

// Options configures a Service.
type Options struct {
	// Directory holds the four database files.
	Directory string

	// Fs defaults to the OS filesystem.
	Fs afero.Fs

	// Logger defaults to a no-op.
	Logger Logger

	// Strict makes LoadAll all-or-nothing: any failing database fails
	// the whole load instead of serving partial capability.
	Strict bool

	// CacheSize bounds the aggregate lookup cache. Negative disables
	// caching, zero means DefaultCacheSize.
	CacheSize int
}

// Service owns the loaded databases and answers lookups against them.
// It is an explicit context object: several services (say, old and new
// during a rollout) coexist without interference because loaded
// databases are immutable.
//
// Lookups and LoadAll may race freely: a snapshot is swapped in as one
// atomic pointer, so an in-flight lookup sees either entirely the old
// or entirely the new databases.
type Service struct {
	fs        afero.Fs
	directory string
	logger    Logger
	strict    bool
	cacheSize int
	current   atomic.Pointer[snapshot]
}

// snapshot is one immutable generation of loaded databases plus the
// cache keyed by them. Reload replaces the whole snapshot, cache
// included, so stale aggregates cannot survive a swap.
type snapshot struct {
	databases map[rangedb.Dataset]*rangedb.Database
	cache     *lru.Cache
}

func (s *snapshot) db(dataset rangedb.Dataset) *rangedb.Database {
	if s == nil {
		return nil
	}

	return s.databases[dataset]
}

func New(opts Options) *Service {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}

	if opts.Logger == nil {
		opts.Logger = NoopLogger{}
	}

	if opts.CacheSize == 0 {
		opts.CacheSize = DefaultCacheSize
	}

	return &Service{
		fs:        opts.Fs,
		directory: opts.Directory,
		logger:    opts.Logger,
		strict:    opts.Strict,
		cacheSize: opts.CacheSize,
	}
}

// LoadAll loads the four databases in parallel and swaps them in as
// the current snapshot. It doubles as reload: the previous snapshot
// keeps serving until the swap and is then dropped.
func (s *Service) LoadAll(ctx context.Context) (LoadResult, error) {
	type outcome struct {
		dataset rangedb.Dataset
		db      *rangedb.Database
		err     error
	}

	datasets := rangedb.Datasets()
	outcomes := make([]outcome, len(datasets))
	wg := &sync.WaitGroup{}

	for i, dataset := range datasets {
		i, dataset := i, dataset

		wg.Add(1)

		go func() {
			defer wg.Done()

			path := filepath.Join(s.directory, rangedb.FileName(dataset))
			db, err := rangedb.OpenDatabase(s.fs, path, dataset)
			outcomes[i] = outcome{dataset: dataset, db: db, err: err}
		}()
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return LoadResult{}, err
	}

	result := LoadResult{Datasets: map[string]DatasetState{}}
	next := &snapshot{databases: map[rangedb.Dataset]*rangedb.Database{}}

	failed := 0

	for _, out := range outcomes {
		name := out.dataset.String()

		if out.err != nil {
			failed++
			result.Datasets[name] = DatasetState{Error: out.err.Error()}
			s.logger.LoadError(name, out.err)

			continue
		}

		next.databases[out.dataset] = out.db
		result.Datasets[name] = DatasetState{Loaded: true, Records: out.db.Records()}
		s.logger.LoadInfo(name, out.db.Records())
	}

	if s.strict && failed > 0 {
		return result, fmt.Errorf("%w: %d of %d failed", ErrLoadFailed, failed, len(datasets))
	}

	if s.cacheSize > 0 {
		next.cache, _ = lru.New(s.cacheSize)
	}

	s.current.Store(next)

	return result, nil
}

func (s *Service) LookupGeo(ip string) (*GeoResult, error) {
	payload, err := s.lookup(ip, rangedb.DatasetGeo)
	if err != nil || payload == nil {
		return nil, err
	}

	geo := payload.(rangedb.GeoPayload)

	return &GeoResult{Latitude: geo.Latitude, Longitude: geo.Longitude}, nil
}

func (s *Service) LookupASN(ip string) (*ASNResult, error) {
	payload, err := s.lookup(ip, rangedb.DatasetASN)
	if err != nil || payload == nil {
		return nil, err
	}

	asn := payload.(rangedb.ASNPayload)

	return &ASNResult{CIDR: asn.CIDR, ASN: asn.ASN, ASName: asn.ASName}, nil
}

func (s *Service) LookupISP(ip string) (*ISPResult, error) {
	payload, err := s.lookup(ip, rangedb.DatasetISP)
	if err != nil || payload == nil {
		return nil, err
	}

	isp := payload.(rangedb.ISPPayload)

	return &ISPResult{ISP: isp.ISP, Domain: isp.Domain, Provider: isp.Provider}, nil
}

func (s *Service) LookupProxyType(ip string) (*ProxyResult, error) {
	payload, err := s.lookup(ip, rangedb.DatasetProxy)
	if err != nil || payload == nil {
		return nil, err
	}

	proxy := payload.(rangedb.ProxyPayload)

	return &ProxyResult{ProxyType: proxy.ProxyType}, nil
}

// LookupAll fans one address out to every loaded dataset and keeps
// only the fields that resolved. Datasets missing from the snapshot
// are skipped, not errors: partial capability still answers.
func (s *Service) LookupAll(ip string) (Result, error) {
	parsed, err := parseIP(ip)
	if err != nil {
		s.logger.LookupError(ip, err)

		return Result{}, err
	}

	snap := s.current.Load()
	if snap == nil {
		return Result{}, ErrNotLoaded
	}

	key := parsed.String()

	if snap.cache != nil {
		if cached, ok := snap.cache.Get(key); ok {
			return cached.(Result), nil
		}
	}

	result := Result{IP: key}

	if db := snap.db(rangedb.DatasetGeo); db != nil {
		if payload, ok := db.Lookup(parsed); ok {
			geo := payload.(rangedb.GeoPayload)
			result.Geo = &GeoResult{Latitude: geo.Latitude, Longitude: geo.Longitude}
		}
	}

	if db := snap.db(rangedb.DatasetASN); db != nil {
		if payload, ok := db.Lookup(parsed); ok {
			asn := payload.(rangedb.ASNPayload)
			result.ASN = &ASNResult{CIDR: asn.CIDR, ASN: asn.ASN, ASName: asn.ASName}
		}
	}

	if db := snap.db(rangedb.DatasetISP); db != nil {
		if payload, ok := db.Lookup(parsed); ok {
			isp := payload.(rangedb.ISPPayload)
			result.ISP = &ISPResult{ISP: isp.ISP, Domain: isp.Domain, Provider: isp.Provider}
		}
	}

	if db := snap.db(rangedb.DatasetProxy); db != nil {
		if payload, ok := db.Lookup(parsed); ok {
			proxy := payload.(rangedb.ProxyPayload)
			result.Proxy = &ProxyResult{ProxyType: proxy.ProxyType}
		}
	}

	if snap.cache != nil {
		snap.cache.Add(key, result)
	}

	return result, nil
}

// Loaded reports the current snapshot's state, dataset by dataset.
func (s *Service) Loaded() LoadResult {
	result := LoadResult{Datasets: map[string]DatasetState{}}
	snap := s.current.Load()

	for _, dataset := range rangedb.Datasets() {
		state := DatasetState{}

		if db := snap.db(dataset); db != nil {
			state.Loaded = true
			state.Records = db.Records()
		}

		result.Datasets[dataset.String()] = state
	}

	return result
}

func (s *Service) lookup(ip string, dataset rangedb.Dataset) (rangedb.Payload, error) {
	parsed, err := parseIP(ip)
	if err != nil {
		s.logger.LookupError(ip, err)

		return nil, err
	}

	db := s.current.Load().db(dataset)
	if db == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotLoaded, dataset)
	}

	payload, ok := db.Lookup(parsed)
	if !ok {
		return nil, nil
	}

	return payload, nil
}

func parseIP(ip string) (net.IP, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformedIP, ip)
	}

	return parsed, nil
}
