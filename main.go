package main

import (
	"net/http"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"github.com/ipatlas/ipatlas/api"
	"github.com/ipatlas/ipatlas/atlas"
	"github.com/ipatlas/ipatlas/builder"
	"github.com/ipatlas/ipatlas/config"
)

var version = "0.1.0"

var (
	app = kingpin.New(
		"ipatlas",
		"Compact binary IP intelligence databases and fast lookups over them.")

	debug = app.Flag("debug", "Run in debug mode.").
		Short('d').
		Envar("IPATLAS_DEBUG").
		Bool()
	configFile = app.Flag("config", "Path to the config.").
			Short('c').
			Envar("IPATLAS_CONFIG").
			Required().
			File()

	buildCmd = app.Command("build", "Rebuild the binary databases from the raw sources.")
	serveCmd = app.Command("serve", "Serve lookups over HTTP.")
)

func init() {
	app.Version(version)
	log.SetFormatter(&log.TextFormatter{})
	log.SetLevel(log.InfoLevel)
}

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	conf, err := config.Parse(*configFile)
	if err != nil {
		log.Fatal(err.Error())
	}

	switch command {
	case buildCmd.FullCommand():
		mainBuild(conf)
	case serveCmd.FullCommand():
		mainServe(conf)
	}
}

func mainBuild(conf *config.Config) {
	report, err := builder.New(afero.NewOsFs(), &conf.Build).Build()
	if err != nil {
		log.Fatal(err.Error())
	}

	for _, path := range report.Files {
		log.WithFields(log.Fields{"path": path}).Info("Database ready")
	}
}

func mainServe(conf *config.Config) {
	ctx, cancel := makeRootContext()
	defer cancel()

	service := atlas.New(atlas.Options{
		Directory: conf.Serve.DatabaseDirectory,
		Logger:    newLogger(),
		Strict:    conf.Serve.Strict,
		CacheSize: conf.Serve.CacheSize,
	})

	result, err := service.LoadAll(ctx)
	if err != nil {
		log.Fatal(err.Error())
	}

	for name, state := range result.Datasets {
		log.WithFields(log.Fields{
			"dataset": name,
			"loaded":  state.Loaded,
			"records": state.Records,
			"error":   state.Error,
		}).Info("Database state")
	}

	var handler http.Handler = api.MakeServer(service)

	user := os.Getenv("IPATLAS_BASIC_AUTH_USER")
	password := os.Getenv("IPATLAS_BASIC_AUTH_PASSWORD")

	if user != "" && password != "" {
		handler = &basicAuthMiddleware{
			handler:  handler,
			user:     []byte(user),
			password: []byte(password),
		}
	}

	srv := &http.Server{
		Addr:    conf.Serve.Listen,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		srv.Close() // nolint: errcheck
	}()

	log.WithFields(log.Fields{"listen": conf.Serve.Listen}).Info("Serving lookups")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err.Error())
	}
}
