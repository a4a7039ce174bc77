package proxy

import (
	"math/big"

	"assetproxy/assetdata"

	"github.com/ethereum/go-ethereum/common"
)

// ========== 核心接口定义 ==========

// StateView 状态视图接口
type StateView interface {
	//读/写/删某个 key 的状态；写入只写进这个视图，不直接落到底层 DB。
	Get(key string) ([]byte, bool, error)
	Set(key string, val []byte)
	Del(key string)
	//做一个快照点、必要时回滚到该点，实现全有或全无的调度语义。
	Snapshot() int
	Revert(snap int) error
	//把这段执行期间累积的写入集合（写集）导出来，给后续“真正落库”用。
	Diff() []WriteOp
	// 扫描指定前缀下的所有键值对（用于授权集合、白名单枚举等场景）
	Scan(prefix string) (map[string][]byte, error)
}

// TransferHandler 资产转移处理器接口
// 每种资产类型注册一个实现，按资产数据前 4 字节的标签路由
type TransferHandler interface {
	// Tag 标识该处理器负责的资产类型标签
	Tag() assetdata.TypeTag
	// Name 处理器名，用于注册表持久化与状态接口
	Name() string
	// TransferFrom 在给定 StateView 上把 amount 数量的资产从 from 转给 to。
	// assetData 携带该类型自定义的参数（代币地址、tokenID 等）。
	// 失败时返回的错误会原样上抛，不做包装。
	TransferFrom(sv StateView, assetData []byte, from, to common.Address, amount *big.Int) error
}

// （读穿函数）
// 当 StateView.Get 本地 overlay 没命中时，定义“如何从底层存储读真实值”的函数签名
type ReadThroughFn func(key string) ([]byte, error)

// ScanFn 用于 StateView 从底层存储做前缀扫描
type ScanFn func(prefix string) (map[string][]byte, error)
