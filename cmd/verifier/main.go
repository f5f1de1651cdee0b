package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/zeromicro/go-zero/core/conf"

	"idl-verifier-sol/internal/config"
	"idl-verifier-sol/internal/svc"
	"idl-verifier-sol/pkg/logger"
)

var (
	configFile = flag.String("f", "etc/verifier.yaml", "the config file")
	protocols  = flag.String("protocols", "", "comma separated protocol ids, empty = full registry")
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
		}
	}()

	flag.Parse()

	var c config.VerifierConfig
	conf.MustLoad(*configFile, &c)

	if err := logger.Init(c.LogConf.ToLogOption()); err != nil {
		panic(err)
	}
	defer logger.Sync()

	serviceContext, err := svc.NewServiceContext(c)
	if err != nil {
		panic(err)
	}
	defer serviceContext.Close()

	// 周期触发属于外部调度方，这里只执行单轮验证
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var subset []string
	if *protocols != "" {
		for _, id := range strings.Split(*protocols, ",") {
			if id = strings.TrimSpace(id); id != "" {
				subset = append(subset, id)
			}
		}
	}

	logger.Infof("Starting verification run")
	run, err := serviceContext.Verifier.RunOnce(ctx, subset)
	if err != nil {
		logger.Errorf("验证轮次失败: %v", err)
		os.Exit(1)
	}
	if run == nil {
		logger.Warnf("已有轮次在运行，本次触发被忽略")
		return
	}

	out, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		logger.Errorf("结果序列化失败: %v", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
