package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/fetch-cache/fetch-cache/internal/cache"
	"github.com/fetch-cache/fetch-cache/internal/config"
	"github.com/fetch-cache/fetch-cache/internal/downloader"
	"github.com/fetch-cache/fetch-cache/internal/logging"
	"github.com/fetch-cache/fetch-cache/internal/server"
	"github.com/fetch-cache/fetch-cache/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
	serve       bool
	offline     bool
	refresh     bool
	saveDir     string
	urls        []string
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	// 命令行开关优先于配置文件
	if opts.offline {
		cfg.Global.Offline = true
	}
	if opts.refresh {
		cfg.Global.Refresh = true
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["cache_path"] = cfg.Global.CachePath
		fields["cache_evict"] = cfg.Global.CacheEvict.DurationValue().String()
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	layout, err := cache.NewLayout(cfg.Global.CachePath)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存目录失败: %v\n", err)
		return 1
	}

	dl := downloader.New(cfg.DownloadConfig(), layout, downloader.WithLogger(logger))

	if opts.serve {
		fields := logging.BaseFields("startup", opts.configPath)
		fields["cache_path"] = cfg.Global.CachePath
		fields["listen_port"] = cfg.Global.ListenPort
		fields["version"] = version.Full()
		logger.WithFields(fields).Info("配置加载完成")

		if err := startHTTPServer(cfg, dl, logger); err != nil {
			fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
			return 1
		}
		return 0
	}

	if len(opts.urls) == 0 {
		fmt.Fprintln(stdErr, "缺少下载地址: fetch-cache [flags] URL...")
		return 2
	}

	ctx := context.Background()
	for _, rawURL := range opts.urls {
		var path string
		if opts.saveDir != "" {
			path, err = dl.DownloadFile(ctx, rawURL, opts.saveDir, 0)
		} else {
			path, err = dl.DownloadAndCache(ctx, rawURL)
		}
		if err != nil {
			fmt.Fprintf(stdErr, "下载失败 %s: %v\n", rawURL, err)
			return 1
		}
		fmt.Fprintln(stdOut, path)
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("fetch-cache", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
		serve      bool
		offline    bool
		refresh    bool
		saveDir    string
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 FETCH_CACHE_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")
	fs.BoolVar(&serve, "serve", false, "以 HTTP 服务方式运行")
	fs.BoolVar(&offline, "offline", false, "离线模式：只使用本地缓存")
	fs.BoolVar(&refresh, "refresh", false, "强制回源，无视缓存年龄")
	fs.StringVar(&saveDir, "dir", "", "绕过缓存，直接下载到指定目录")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("FETCH_CACHE_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
		serve:       serve,
		offline:     offline,
		refresh:     refresh,
		saveDir:     saveDir,
		urls:        fs.Args(),
	}, nil
}

func startHTTPServer(cfg *config.Config, dl *downloader.Downloader, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Fetcher:    dl,
		ListenPort: port,
	})
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
