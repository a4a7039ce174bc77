package proxy

import (
	"strings"
	"testing"

	"assetproxy/keys"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// addr 测试用地址字面量
func addr(s string) common.Address {
	return common.HexToAddress(s)
}

// memBacking 模拟底层存储：map + 读穿/扫描函数
func memBacking(seed map[string]string) (map[string][]byte, ReadThroughFn, ScanFn) {
	base := make(map[string][]byte, len(seed))
	for k, v := range seed {
		base[k] = []byte(v)
	}
	read := func(key string) ([]byte, error) {
		v, ok := base[key]
		if !ok {
			return nil, nil
		}
		return v, nil
	}
	scan := func(prefix string) (map[string][]byte, error) {
		out := make(map[string][]byte)
		for k, v := range base {
			if strings.HasPrefix(k, prefix) {
				out[k] = v
			}
		}
		return out, nil
	}
	return base, read, scan
}

// newSeededView 基于种子数据创建测试用 StateView
func newSeededView(seed map[string]string) StateView {
	_, read, scan := memBacking(seed)
	return NewStateView(read, scan)
}

func TestStateViewReadThrough(t *testing.T) {
	sv := newSeededView(map[string]string{"a": "1"})

	val, exist, err := sv.Get("a")
	require.NoError(t, err)
	require.True(t, exist)
	assert.Equal(t, []byte("1"), val)

	_, exist, err = sv.Get("missing")
	require.NoError(t, err)
	assert.False(t, exist)
}

func TestStateViewOverlayMasksBase(t *testing.T) {
	sv := newSeededView(map[string]string{"a": "1", "b": "2"})

	sv.Set("a", []byte("10"))
	val, exist, err := sv.Get("a")
	require.NoError(t, err)
	require.True(t, exist)
	assert.Equal(t, []byte("10"), val)

	sv.Del("b")
	_, exist, err = sv.Get("b")
	require.NoError(t, err)
	assert.False(t, exist, "deleted key must not read through to base")
}

func TestStateViewSnapshotRevert(t *testing.T) {
	sv := newSeededView(map[string]string{"a": "1"})

	sv.Set("a", []byte("10"))
	snap := sv.Snapshot()

	sv.Set("a", []byte("20"))
	sv.Set("b", []byte("2"))
	sv.Del("a")

	require.NoError(t, sv.Revert(snap))

	val, exist, err := sv.Get("a")
	require.NoError(t, err)
	require.True(t, exist)
	assert.Equal(t, []byte("10"), val, "revert must restore the pre-snapshot overlay value")

	_, exist, err = sv.Get("b")
	require.NoError(t, err)
	assert.False(t, exist, "writes after the snapshot must disappear")

	// 再回滚到最开头，overlay 清空，读穿回底层值
	require.NoError(t, sv.Revert(0))
	val, exist, err = sv.Get("a")
	require.NoError(t, err)
	require.True(t, exist)
	assert.Equal(t, []byte("1"), val)
}

func TestStateViewRevertInvalidSnapshot(t *testing.T) {
	sv := newSeededView(nil)
	sv.Set("a", []byte("1"))

	assert.ErrorIs(t, sv.Revert(-1), ErrInvalidSnapshot)
	assert.ErrorIs(t, sv.Revert(99), ErrInvalidSnapshot)
	assert.NoError(t, sv.Revert(1), "revert to the current head is a no-op")
}

func TestStateViewDiff(t *testing.T) {
	sv := newSeededView(map[string]string{keys.KeyBalance(addr("0x11"), addr("0x22")): "100"})

	balKey := keys.KeyBalance(addr("0x11"), addr("0x22"))
	sv.Set(balKey, []byte("90"))
	sv.Set("v1_custom_meta", []byte("x"))
	sv.Del(keys.KeyAuthorized(addr("0x33")))

	diff := sv.Diff()
	require.Len(t, diff, 3)

	byKey := make(map[string]WriteOp, len(diff))
	for _, op := range diff {
		byKey[op.Key] = op
	}

	require.Contains(t, byKey, balKey)
	assert.Equal(t, []byte("90"), byKey[balKey].Value)
	assert.False(t, byKey[balKey].IsDel())
	assert.Equal(t, keys.CategoryBalance, byKey[balKey].Category)

	assert.Equal(t, keys.CategoryMeta, byKey["v1_custom_meta"].Category)

	delKey := keys.KeyAuthorized(addr("0x33"))
	assert.True(t, byKey[delKey].IsDel())
	assert.Equal(t, keys.CategoryAuthorized, byKey[delKey].Category)
}

func TestStateViewScanMerges(t *testing.T) {
	sv := newSeededView(map[string]string{
		"p_a": "1",
		"p_b": "2",
		"q_c": "3",
	})

	sv.Set("p_d", []byte("4"))  // overlay 新增
	sv.Set("p_a", []byte("10")) // overlay 覆盖
	sv.Del("p_b")               // overlay 删除

	got, err := sv.Scan("p_")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{
		"p_a": []byte("10"),
		"p_d": []byte("4"),
	}, got)
}

func TestStateViewGetReturnsCopy(t *testing.T) {
	sv := newSeededView(nil)
	sv.Set("a", []byte("abc"))

	val, _, err := sv.Get("a")
	require.NoError(t, err)
	val[0] = 'z'

	again, _, err := sv.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again, "callers must not be able to mutate overlay state")
}

func TestStateViewNilBacking(t *testing.T) {
	sv := NewStateView(nil, nil)

	_, exist, err := sv.Get("a")
	require.NoError(t, err)
	assert.False(t, exist)

	sv.Set("p_x", []byte("1"))
	got, err := sv.Scan("p_")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"p_x": []byte("1")}, got)
}
