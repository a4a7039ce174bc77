package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"assetproxy/api"
	"assetproxy/config"
	"assetproxy/logs"
	"assetproxy/service"
	"assetproxy/utils"
)

func main() {
	// 1. 解析命令行参数
	var (
		configFile = flag.String("config", "", "config file path")
		dataDir    = flag.String("data", "", "database directory (overrides config)")
		listen     = flag.String("listen", "", "listen address (overrides config)")
		keyHex     = flag.String("key", "", "owner private key hex (or ASSETPROXY_KEY env)")
	)
	flag.Parse()

	// 2. 加载配置
	cfg, err := config.LoadFromFile(*configFile)
	if err != nil {
		logs.Error("Failed to load config: %v", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.Node.DataDir = *dataDir
	}
	if *listen != "" {
		cfg.Node.Listen = *listen
	}
	logs.SetLevel(cfg.Node.LogLevel)

	// 3. 初始化节点私钥（可选，没有私钥时管理接口只读）
	priKey := *keyHex
	if priKey == "" {
		priKey = os.Getenv("ASSETPROXY_KEY")
	}
	if priKey != "" {
		km := utils.GetKeyManager()
		if err := km.InitKey(priKey); err != nil {
			logs.Error("Failed to init key: %v", err)
			os.Exit(1)
		}
		logs.MyAddress = km.GetAddress().Hex()
	}

	// 4. 启动节点
	node, err := service.NewNode(cfg)
	if err != nil {
		logs.Error("Failed to start node: %v", err)
		os.Exit(1)
	}

	server := api.NewServer(node)
	if err := server.Start(); err != nil {
		logs.Error("Failed to start server: %v", err)
		node.Close()
		os.Exit(1)
	}
	logs.Info("Node is up. owner=%s listen=%s", node.Owner().Hex(), cfg.Node.Listen)

	// 5. 等待退出信号
	waitForShutdown(server, node)
}

// waitForShutdown 等待关闭信号，先停服务器再关数据库
func waitForShutdown(server *api.Server, node *service.Node) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logs.Info("Received signal: %v, shutting down...", sig)

	server.Shutdown()
	node.Close()
}
