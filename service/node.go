// service/node.go
// Node 是调度服务的组装层：打开数据库、搭好注册表/授权/引擎，
// 并把内存视图的写集按序灌回写队列。
package service

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"assetproxy/assetdata"
	"assetproxy/config"
	"assetproxy/db"
	"assetproxy/fees"
	"assetproxy/keys"
	"assetproxy/logs"
	"assetproxy/proxy"
	"assetproxy/utils"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
)

// Node 多资产调度节点
type Node struct {
	cfg *config.Config
	db  *db.Manager

	registry   *proxy.HandlerRegistry
	authorizer *proxy.Authorizer
	engine     *proxy.MultiAssetProxy
	erc20      *proxy.ERC20Proxy
	erc721     *proxy.ERC721Proxy
	feeMgr     *fees.Manager

	// builtins 可通过管理接口按名字注册的处理器集合
	builtins map[string]proxy.TransferHandler

	// receiptCache 最近回执的内存缓存，查询先走这里再落库读
	receiptCache *lru.Cache

	// dispatchMu 串行化所有改状态的入口（调度与管理操作），
	// 保证每次执行看到的底层状态都是上一次落盘后的结果
	dispatchMu sync.Mutex

	owner   common.Address
	started time.Time
}

// NewNode 按配置组装节点：打开 BadgerDB、注册内建处理器、
// 回放注册表持久化记录并加载手续费配置
func NewNode(cfg *config.Config) (*Node, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	owner, err := resolveOwner(cfg)
	if err != nil {
		return nil, err
	}
	if owner == (common.Address{}) {
		logs.Warn("[Node] no owner configured and no node key loaded, admin operations are disabled")
	}

	mgr, err := db.NewManagerWithConfig(filepath.Join(cfg.Node.DataDir, "badger"), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	mgr.InitWriteQueue(cfg.Database.MaxBatchSize, cfg.Database.FlushInterval)

	registry := proxy.NewHandlerRegistry(cfg.Dispatch.LockRegistrations)
	authorizer := proxy.NewAuthorizer(owner)
	engine := proxy.NewMultiAssetProxy(registry, authorizer,
		cfg.Dispatch.MaxBasketDepth, cfg.Dispatch.MaxAssetDataBytes)
	erc20 := proxy.NewERC20Proxy()
	erc721 := proxy.NewERC721Proxy()

	cacheSize := cfg.Dispatch.ReceiptCacheSize
	if cacheSize <= 0 {
		cacheSize = 1000
	}
	receiptCache, _ := lru.New(cacheSize)

	n := &Node{
		cfg:          cfg,
		db:           mgr,
		registry:     registry,
		authorizer:   authorizer,
		engine:       engine,
		erc20:        erc20,
		erc721:       erc721,
		receiptCache: receiptCache,
		owner:        owner,
		started:      time.Now(),
	}
	n.builtins = map[string]proxy.TransferHandler{
		erc20.Name():  erc20,
		erc721.Name(): erc721,
		engine.Name(): engine,
	}

	// 内建处理器默认全部上线；引擎自己也要注册，嵌套篮子的腿才能路由到它
	for _, h := range []proxy.TransferHandler{erc20, erc721, engine} {
		if err := registry.Register(h); err != nil {
			mgr.Close()
			return nil, fmt.Errorf("register builtin handler %s: %w", h.Name(), err)
		}
	}

	if err := n.replayRegistrations(); err != nil {
		mgr.Close()
		return nil, fmt.Errorf("replay proxy registrations: %w", err)
	}

	feeCfg, err := fees.FromSettings(cfg.Fees)
	if err != nil {
		mgr.Close()
		return nil, fmt.Errorf("fee settings: %w", err)
	}
	n.feeMgr = fees.NewManager(feeCfg)
	if err := n.feeMgr.Load(n.newStateView()); err != nil {
		mgr.Close()
		return nil, fmt.Errorf("load persisted fee config: %w", err)
	}

	logs.Info("[Node] started, owner=%s handlers=%d dataDir=%s",
		owner.Hex(), registry.Len(), cfg.Node.DataDir)
	return n, nil
}

// resolveOwner 所有者优先取配置，没配则退回节点私钥推导的地址
func resolveOwner(cfg *config.Config) (common.Address, error) {
	if cfg.Auth.Owner != "" {
		owner, err := utils.ParseAddress(cfg.Auth.Owner)
		if err != nil {
			return common.Address{}, fmt.Errorf("invalid owner address %q: %w", cfg.Auth.Owner, err)
		}
		return owner, nil
	}
	if km := utils.GetKeyManager(); km.GetPrivateKey() != "" {
		return km.GetAddress(), nil
	}
	return common.Address{}, nil
}

// replayRegistrations 回放持久化的注册表记录。
// 记录只存处理器名，回放时按名字找回内建实例；
// 名字未知或标签对不上说明记录来自别的版本，跳过并告警。
func (n *Node) replayRegistrations() error {
	records, err := n.db.Scan(keys.KeyProxyRegistrationPrefix())
	if err != nil {
		return err
	}
	for key, val := range records {
		name := string(val)
		h, ok := n.builtins[name]
		if !ok {
			logs.Warn("[Node] registration record %s names unknown handler %q, skipping", key, name)
			continue
		}
		tagHex := strings.TrimPrefix(key, keys.KeyProxyRegistrationPrefix())
		tag, err := assetdata.ParseTag(tagHex)
		if err != nil {
			logs.Warn("[Node] registration record %s has malformed tag: %v", key, err)
			continue
		}
		if tag != h.Tag() {
			logs.Warn("[Node] registration record %s maps tag %s to handler %q (tag %s), skipping",
				key, tag, name, h.Tag())
			continue
		}
		if cur, found := n.registry.Resolve(tag); found && cur == h {
			continue
		}
		if err := n.registry.Register(h); err != nil {
			logs.Warn("[Node] replay register %q failed: %v", name, err)
		}
	}
	return nil
}

// newStateView 基于当前落盘状态开一个读穿视图。
// 写队列在每次调度结束时强制落盘，所以读穿结果总是最新的
func (n *Node) newStateView() proxy.StateView {
	read := func(key string) ([]byte, error) {
		val, err := n.db.Get(key)
		if err != nil {
			if db.IsNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		return val, nil
	}
	return proxy.NewStateView(read, n.db.Scan)
}

// enqueueDiff 把写集按序灌入写队列（不触发落盘，调用方决定何时 ForceFlush）
func (n *Node) enqueueDiff(diff []proxy.WriteOp) {
	for i := range diff {
		w := &diff[i]
		if w.Del {
			n.db.EnqueueDel(w.Key)
		} else {
			n.db.EnqueueSet(w.Key, string(w.Value))
		}
	}
}

// Owner 返回管理操作认可的所有者地址
func (n *Node) Owner() common.Address {
	return n.owner
}

// Config 返回节点配置
func (n *Node) Config() *config.Config {
	return n.cfg
}

// Close 停机：把残留写队列刷干净并关掉数据库
func (n *Node) Close() {
	n.db.Close()
	logs.Info("[Node] stopped")
}
