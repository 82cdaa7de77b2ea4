// Package main 启动上传服务的 HTTP 入口。
package main

import (
	"context"
	"flag"
	"os"

	"github.com/bionicotaku/lingo-services-upload/internal/infrastructure/configloader"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	_ "go.uber.org/automaxprocs"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name = "lingo-services-upload"
	// Version is the version of the compiled software.
	Version = "dev"

	id, _ = os.Hostname()
)

func newApp(logger log.Logger, hs *http.Server) *kratos.App {
	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(hs),
	)
}

func main() {
	confFlag := flag.String("conf", "", "config path or directory, eg: -conf configs/config.yaml")
	flag.Parse()

	app, cleanup, err := wireServerApp(context.Background(), configloader.Params{ConfPath: *confFlag})
	if err != nil {
		panic(err)
	}
	defer cleanup()

	// Run 阻塞直到收到 SIGINT/SIGTERM。
	if err := app.Run(); err != nil {
		panic(err)
	}
}
