package utils

import (
	"encoding/binary"
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/spaolacci/murmur3"
)

var requestSeq uint64

// NewRequestID 生成请求ID：murmur3(payload || 纳秒时间戳 || 进程内序号)
// 同一负载重复提交也会得到不同ID
func NewRequestID(payload []byte) string {
	var tail [16]byte
	binary.BigEndian.PutUint64(tail[:8], uint64(time.Now().UnixNano()))
	binary.BigEndian.PutUint64(tail[8:], atomic.AddUint64(&requestSeq, 1))

	h := murmur3.New128()
	h.Write(payload)
	h.Write(tail[:])
	sum := h.Sum(nil)
	return "0x" + hex.EncodeToString(sum)
}
