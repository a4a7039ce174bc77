package assetdata

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// 单一代币类型的资产数据布局：
//
//	ERC20:  tag(4) + token 地址字(32)                  = 36 字节
//	ERC721: tag(4) + token 地址字(32) + tokenID 字(32) = 68 字节
//
// 地址占用字的低 20 字节，高 12 字节忽略。

// ERC20AssetDataLen ERC20 资产数据长度
const ERC20AssetDataLen = TagSize + WordSize

// ERC721AssetDataLen ERC721 资产数据长度
const ERC721AssetDataLen = TagSize + 2*WordSize

// EncodeERC20 构造 ERC20 资产数据
func EncodeERC20(token common.Address) []byte {
	out := make([]byte, ERC20AssetDataLen)
	copy(out, ERC20Tag[:])
	copy(out[TagSize+WordSize-common.AddressLength:], token.Bytes())
	return out
}

// DecodeERC20 解析 ERC20 资产数据，返回代币地址
func DecodeERC20(assetData []byte) (common.Address, error) {
	tag, err := TagOf(assetData)
	if err != nil {
		return common.Address{}, err
	}
	if tag != ERC20Tag {
		return common.Address{}, ErrTagMismatch
	}
	if len(assetData) < ERC20AssetDataLen {
		return common.Address{}, ErrInvalidAssetDataLength
	}
	return common.BytesToAddress(assetData[TagSize+WordSize-common.AddressLength : TagSize+WordSize]), nil
}

// EncodeERC721 构造 ERC721 资产数据
func EncodeERC721(token common.Address, tokenID *big.Int) ([]byte, error) {
	if tokenID == nil || tokenID.Sign() < 0 || tokenID.BitLen() > 256 {
		return nil, ErrInvalidTokenID
	}
	out := make([]byte, ERC721AssetDataLen)
	copy(out, ERC721Tag[:])
	copy(out[TagSize+WordSize-common.AddressLength:TagSize+WordSize], token.Bytes())
	tokenID.FillBytes(out[TagSize+WordSize : TagSize+2*WordSize])
	return out, nil
}

// DecodeERC721 解析 ERC721 资产数据，返回代币地址和 tokenID
func DecodeERC721(assetData []byte) (common.Address, *big.Int, error) {
	tag, err := TagOf(assetData)
	if err != nil {
		return common.Address{}, nil, err
	}
	if tag != ERC721Tag {
		return common.Address{}, nil, ErrTagMismatch
	}
	if len(assetData) < ERC721AssetDataLen {
		return common.Address{}, nil, ErrInvalidAssetDataLength
	}
	token := common.BytesToAddress(assetData[TagSize+WordSize-common.AddressLength : TagSize+WordSize])
	tokenID := new(big.Int).SetBytes(assetData[TagSize+WordSize : TagSize+2*WordSize])
	return token, tokenID, nil
}
