package assetdata

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"
)

// 多资产数据布局（所有整数均为 32 字节大端字）：
//
//	tag              4 字节  MultiAssetTag
//	amountsOffset   32 字节  相对参数区起点（第 4 字节）的偏移
//	nestedOffset    32 字节  同上
//	...
//	amounts 数组:    count 字 + count 个数量字
//	nested 数组:     count 字 + count 个元素偏移字 + 各元素（长度字 + 数据）
//
// 数组元素偏移相对 count 字之后的第一个字节。解码方从不信任
// 任何偏移或数量：每次取字前都要做边界检查。

// Basket 解码后的多资产篮子，两个切片长度始终一致
type Basket struct {
	Amounts []*big.Int // 每条腿的数量系数
	Nested  [][]byte   // 每条腿的资产数据
}

// Len 篮子里的腿数
func (b *Basket) Len() int {
	return len(b.Amounts)
}

// wordReader 在参数区上按字读取，带边界检查
type wordReader struct {
	data []byte
	base int // 参数区起点（跳过标签）
}

// wordAt 读 base+off 处的 32 字节字
func (r *wordReader) wordAt(off int) ([]byte, error) {
	abs := r.base + off
	if abs < r.base || abs+WordSize > len(r.data) {
		return nil, ErrInvalidAssetDataEnd
	}
	return r.data[abs : abs+WordSize], nil
}

// uintAt 读一个用作偏移/数量/长度的字。
// 任何超过数据总长的值都不可能合法，直接判为越界，
// 这样后续算术永远不会溢出 int。
func (r *wordReader) uintAt(off int) (int, error) {
	word, err := r.wordAt(off)
	if err != nil {
		return 0, err
	}
	for _, b := range word[:WordSize-8] {
		if b != 0 {
			return 0, ErrInvalidAssetDataEnd
		}
	}
	v := binary.BigEndian.Uint64(word[WordSize-8:])
	if v > uint64(len(r.data)) {
		return 0, ErrInvalidAssetDataEnd
	}
	return int(v), nil
}

// bigAt 读一个任意 uint256 数值字
func (r *wordReader) bigAt(off int) (*big.Int, error) {
	word, err := r.wordAt(off)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(word), nil
}

// DecodeBasket 解码多资产数据的参数区（不校验标签本身）。
// 返回的 Basket 与输入字节不共享内存。
func DecodeBasket(assetData []byte) (*Basket, error) {
	if len(assetData) < MinMultiAssetLen {
		return nil, ErrInvalidAssetDataLength
	}
	if (len(assetData)-TagSize)%WordSize != 0 {
		return nil, ErrInvalidAssetDataLength
	}

	r := &wordReader{data: assetData, base: TagSize}

	amountsOff, err := r.uintAt(0)
	if err != nil {
		return nil, err
	}
	nestedOff, err := r.uintAt(WordSize)
	if err != nil {
		return nil, err
	}

	amounts, err := r.readAmounts(amountsOff)
	if err != nil {
		return nil, err
	}
	nested, err := r.readNested(nestedOff)
	if err != nil {
		return nil, err
	}

	if len(amounts) != len(nested) {
		return nil, ErrLengthMismatch
	}
	return &Basket{Amounts: amounts, Nested: nested}, nil
}

// readAmounts 读 uint256[] 数组：count 字 + count 个数值字
func (r *wordReader) readAmounts(off int) ([]*big.Int, error) {
	n, err := r.uintAt(off)
	if err != nil {
		return nil, err
	}
	out := make([]*big.Int, 0, n)
	for i := 0; i < n; i++ {
		v, err := r.bigAt(off + WordSize + i*WordSize)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// readNested 读 bytes[] 数组：count 字 + count 个偏移字 + 各元素
func (r *wordReader) readNested(off int) ([][]byte, error) {
	m, err := r.uintAt(off)
	if err != nil {
		return nil, err
	}
	// 元素偏移相对 count 字之后
	elemBase := off + WordSize

	out := make([][]byte, 0, m)
	for i := 0; i < m; i++ {
		elemOff, err := r.uintAt(elemBase + i*WordSize)
		if err != nil {
			return nil, err
		}
		elem, err := r.readBytes(elemBase + elemOff)
		if err != nil {
			return nil, err
		}
		out = append(out, elem)
	}
	return out, nil
}

// readBytes 读单个 bytes 元素：长度字 + 数据（尾部补齐不强制）
func (r *wordReader) readBytes(off int) ([]byte, error) {
	length, err := r.uintAt(off)
	if err != nil {
		return nil, err
	}
	start := r.base + off + WordSize
	if start+length > len(r.data) {
		return nil, ErrInvalidAssetDataEnd
	}
	return append([]byte(nil), r.data[start:start+length]...), nil
}

// EncodeBasket 编码多资产数据，与 DecodeBasket 互逆
func EncodeBasket(basket *Basket) ([]byte, error) {
	if basket == nil {
		return nil, fmt.Errorf("nil basket")
	}
	if len(basket.Amounts) != len(basket.Nested) {
		return nil, ErrLengthMismatch
	}
	n := len(basket.Amounts)

	var buf bytes.Buffer
	buf.Write(MultiAssetTag[:])

	// amounts 紧跟两个偏移字之后，nested 紧跟 amounts 数组之后
	amountsOff := 2 * WordSize
	nestedOff := amountsOff + WordSize*(1+n)
	writeWordInt(&buf, amountsOff)
	writeWordInt(&buf, nestedOff)

	// amounts 数组
	writeWordInt(&buf, n)
	for i, v := range basket.Amounts {
		if v == nil || v.Sign() < 0 || v.BitLen() > 256 {
			return nil, fmt.Errorf("amount %d does not fit in uint256", i)
		}
		var word [WordSize]byte
		v.FillBytes(word[:])
		buf.Write(word[:])
	}

	// nested 数组：先写元素偏移表，再写元素本体
	writeWordInt(&buf, n)
	elemOff := n * WordSize
	for _, elem := range basket.Nested {
		writeWordInt(&buf, elemOff)
		elemOff += WordSize + padded(len(elem))
	}
	for _, elem := range basket.Nested {
		writeWordInt(&buf, len(elem))
		buf.Write(elem)
		if pad := padded(len(elem)) - len(elem); pad > 0 {
			buf.Write(make([]byte, pad))
		}
	}

	return buf.Bytes(), nil
}

// writeWordInt 写一个值为非负 int 的 32 字节字
func writeWordInt(buf *bytes.Buffer, v int) {
	var word [WordSize]byte
	binary.BigEndian.PutUint64(word[WordSize-8:], uint64(v))
	buf.Write(word[:])
}

// padded 向上取整到 32 字节边界
func padded(n int) int {
	return (n + WordSize - 1) / WordSize * WordSize
}
