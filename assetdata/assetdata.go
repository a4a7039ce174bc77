package assetdata

import (
	"encoding/hex"
	"errors"
	"strings"

	"assetproxy/utils"
)

// assetdata 包负责资产数据（assetData）的编解码。
// 资产数据是一段自描述的字节串：前 4 字节是类型标签，
// 其余部分按 32 字节字对齐，布局由各资产类型自己定义。

// TagSize 类型标签长度
const TagSize = 4

// WordSize 编码的基本单位：32 字节字
const WordSize = 32

// MinMultiAssetLen 多资产数据的最小长度：标签 + 两个偏移字
const MinMultiAssetLen = TagSize + 2*WordSize

var (
	// ErrInvalidAssetDataLength 资产数据长度非法（过短或未按 32 字节对齐）
	ErrInvalidAssetDataLength = errors.New("invalid asset data length")
	// ErrInvalidAssetDataEnd 偏移量或数量字指向数据末尾之外
	ErrInvalidAssetDataEnd = errors.New("invalid asset data end")
	// ErrLengthMismatch amounts 与 nestedAssetData 数组长度不一致
	ErrLengthMismatch = errors.New("amounts and nested asset data length mismatch")
	// ErrAssetDataTooShort 资产数据不足 4 字节，取不出类型标签
	ErrAssetDataTooShort = errors.New("asset data length must be greater than 3")
	// ErrTagMismatch 资产数据的类型标签与期望不符
	ErrTagMismatch = errors.New("asset data tag mismatch")
	// ErrInvalidTokenID tokenID 为空、为负或超出 uint256
	ErrInvalidTokenID = errors.New("token id does not fit in uint256")
)

// TypeTag 4 字节类型标签，取自类型签名 keccak256 哈希的前 4 字节
type TypeTag [4]byte

// 内置资产类型标签
var (
	// ERC20Tag = TagFromSignature("ERC20Token(address)")
	ERC20Tag = TypeTag{0xf4, 0x72, 0x61, 0xb0}
	// ERC721Tag = TagFromSignature("ERC721Token(address,uint256)")
	ERC721Tag = TypeTag{0x02, 0x57, 0x17, 0x92}
	// MultiAssetTag = TagFromSignature("MultiAsset(uint256[],bytes[])")
	MultiAssetTag = TypeTag{0x94, 0xcf, 0xcd, 0xd7}
)

// TagFromSignature 按类型签名推导标签：keccak256(signature) 前 4 字节
func TagFromSignature(signature string) TypeTag {
	digest := utils.Keccak256([]byte(signature))
	var tag TypeTag
	copy(tag[:], digest[:TagSize])
	return tag
}

// TagOf 取出资产数据的类型标签
func TagOf(assetData []byte) (TypeTag, error) {
	if len(assetData) < TagSize {
		return TypeTag{}, ErrAssetDataTooShort
	}
	var tag TypeTag
	copy(tag[:], assetData[:TagSize])
	return tag, nil
}

// ParseTag 解析 "0x94cfcdd7" 形式的标签字符串
func ParseTag(s string) (TypeTag, error) {
	s = strings.TrimPrefix(s, "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return TypeTag{}, errors.New("invalid tag hex: " + err.Error())
	}
	if len(raw) != TagSize {
		return TypeTag{}, errors.New("tag must be exactly 4 bytes")
	}
	var tag TypeTag
	copy(tag[:], raw)
	return tag, nil
}

func (t TypeTag) String() string {
	return "0x" + hex.EncodeToString(t[:])
}

func (t TypeTag) Bytes() []byte {
	return t[:]
}
