package main

import (
	"flag"
	"os"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/env"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/tracing"
	"github.com/go-kratos/kratos/v2/transport/grpc"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/joho/godotenv"

	"shorturl/internal/conf"

	_ "go.uber.org/automaxprocs"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name = "shorturl"
	// Version is the version of the compiled software.
	Version string
	// flagconf is the config flag.
	flagconf string
	// flagenv is the dotenv file loaded before the config.
	flagenv string

	id, _ = os.Hostname()
)

// envPrefix scopes the environment variables visible to config placeholders.
const envPrefix = "SHORTURL_"

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs", "config path, eg: -conf config.yaml")
	flag.StringVar(&flagenv, "env", ".env", "dotenv file, ignored when missing")
}

func newApp(logger log.Logger, gs *grpc.Server, hs *http.Server) *kratos.App {
	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(
			gs,
			hs,
		),
	)
}

func main() {
	flag.Parse()
	logger := log.With(log.NewStdLogger(os.Stdout),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
		"trace.id", tracing.TraceID(),
		"span.id", tracing.SpanID(),
	)

	if err := godotenv.Load(flagenv); err != nil && !os.IsNotExist(err) {
		log.NewHelper(logger).Warnf("failed to load %s: %v", flagenv, err)
	}

	bc, err := loadConfig(flagconf)
	if err != nil {
		panic(err)
	}

	app, cleanup, err := wireApp(bc.Server, bc.Data, bc.App, logger)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	// start and wait for stop signal
	if err := app.Run(); err != nil {
		panic(err)
	}
}

// loadConfig reads the yaml files under path and resolves ${VAR:default}
// placeholders from SHORTURL_ prefixed environment variables.
func loadConfig(path string) (*conf.Bootstrap, error) {
	c := config.New(
		config.WithSource(
			env.NewSource(envPrefix),
			file.NewSource(path),
		),
	)
	defer c.Close()

	if err := c.Load(); err != nil {
		return nil, err
	}

	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		return nil, err
	}
	if bc.Server == nil {
		bc.Server = &conf.Server{}
	}
	if bc.Data == nil {
		bc.Data = &conf.Data{}
	}
	if bc.App == nil {
		bc.App = &conf.App{}
	}
	return &bc, nil
}
