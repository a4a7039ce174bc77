package proxy

import (
	"bytes"
	"errors"
	"sort"
	"sync"

	"assetproxy/assetdata"
	"assetproxy/logs"
)

// HandlerRegistry 资产处理器注册表：4 字节类型标签 → TransferHandler。
// 默认允许覆盖注册（方便替换实现）；locked 模式下重复注册报错。
type HandlerRegistry struct {
	mu     sync.RWMutex
	m      map[assetdata.TypeTag]TransferHandler
	locked bool
}

// NewHandlerRegistry 创建新的注册表
func NewHandlerRegistry(locked bool) *HandlerRegistry {
	return &HandlerRegistry{
		m:      make(map[assetdata.TypeTag]TransferHandler),
		locked: locked,
	}
}

// Register 注册Handler，标签取自 h.Tag()
func (r *HandlerRegistry) Register(h TransferHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h == nil {
		return errors.New("nil handler")
	}

	tag := h.Tag()
	if tag == (assetdata.TypeTag{}) {
		return errors.New("empty handler tag")
	}

	if old, ok := r.m[tag]; ok {
		if r.locked {
			return ErrProxyExists
		}
		logs.Warn("[registry] overwriting handler for tag %s: %s -> %s", tag, old.Name(), h.Name())
	}
	r.m[tag] = h
	return nil
}

// Resolve 按标签获取Handler
func (r *HandlerRegistry) Resolve(tag assetdata.TypeTag) (TransferHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.m[tag]
	return h, ok
}

// Tags 返回已注册的标签，按字节序稳定排序
func (r *HandlerRegistry) Tags() []assetdata.TypeTag {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]assetdata.TypeTag, 0, len(r.m))
	for tag := range r.m {
		out = append(out, tag)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

// Len 已注册的Handler数量
func (r *HandlerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.m)
}
