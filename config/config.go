package config

import (
	"io"
	"io/ioutil"

	"github.com/BurntSushi/toml"
	"github.com/juju/errors"
)

const (
	DefaultListen    = "127.0.0.1:8080"
	DefaultCacheSize = 4096
)

// SourceFiles names the raw tabular inputs of one dataset, relative to
// the source directory. Defaults match the upstream LITE bundles.
type SourceFiles struct {
	IPv4 string `toml:"ipv4"`
	IPv6 string `toml:"ipv6"`
}

type BuildConfig struct {
	SourceDirectory string      `toml:"source_directory"`
	OutputDirectory string      `toml:"output_directory"`
	MaxMindDatabase string      `toml:"maxmind_database"`
	CrossCheck      bool        `toml:"cross_check"`
	Geo             SourceFiles `toml:"geo"`
	ASN             SourceFiles `toml:"asn"`
	Proxy           SourceFiles `toml:"proxy"`
}

type ServeConfig struct {
	Listen            string `toml:"listen"`
	DatabaseDirectory string `toml:"database_directory"`
	CacheSize         int    `toml:"cache_size"`
	Strict            bool   `toml:"strict"`
}

type Config struct {
	Build BuildConfig `toml:"build"`
	Serve ServeConfig `toml:"serve"`
}

func Parse(filefp io.Reader) (*Config, error) {
	conf := &Config{}

	buf, err := ioutil.ReadAll(filefp)
	if err != nil {
		return nil, errors.Annotate(err, "Cannot read config file")
	}

	if _, err := toml.Decode(string(buf), conf); err != nil {
		return nil, errors.Annotate(err, "Cannot parse config file")
	}

	setDefaults(conf)

	if err := validate(conf); err != nil {
		return nil, errors.Annotate(err, "Invalid value")
	}

	return conf, nil
}

func setDefaults(conf *Config) {
	build := &conf.Build

	if build.SourceDirectory == "" {
		build.SourceDirectory = "data"
	}

	if build.OutputDirectory == "" {
		build.OutputDirectory = "db"
	}

	if build.MaxMindDatabase == "" {
		build.MaxMindDatabase = "GeoLite2-City.mmdb"
	}

	if build.Geo.IPv4 == "" {
		build.Geo.IPv4 = "DB5LITECSV.CSV"
	}

	if build.Geo.IPv6 == "" {
		build.Geo.IPv6 = "DB5LITECSVIPV6.CSV"
	}

	if build.ASN.IPv4 == "" {
		build.ASN.IPv4 = "DBASNLITE.CSV"
	}

	if build.ASN.IPv6 == "" {
		build.ASN.IPv6 = "DBASNLITEIPV6.CSV"
	}

	if build.Proxy.IPv4 == "" {
		build.Proxy.IPv4 = "PX12LITECSV.CSV"
	}

	if build.Proxy.IPv6 == "" {
		build.Proxy.IPv6 = "PX12LITECSVIPV6.CSV"
	}

	if conf.Serve.Listen == "" {
		conf.Serve.Listen = DefaultListen
	}

	if conf.Serve.DatabaseDirectory == "" {
		conf.Serve.DatabaseDirectory = conf.Build.OutputDirectory
	}

	if conf.Serve.CacheSize == 0 {
		conf.Serve.CacheSize = DefaultCacheSize
	}
}

func validate(conf *Config) error {
	if conf.Serve.CacheSize < 0 {
		return errors.Errorf("Incorrect cache size %d", conf.Serve.CacheSize)
	}

	if conf.Build.SourceDirectory == conf.Build.OutputDirectory {
		return errors.Errorf("Source and output directories are the same: %s",
			conf.Build.SourceDirectory)
	}

	return nil
}
