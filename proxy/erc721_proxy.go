package proxy

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"assetproxy/assetdata"
	"assetproxy/keys"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrInvalidNFTAmount NFT 转移数量必须恰好为 1
	ErrInvalidNFTAmount = errors.New("erc721 transfer amount must be exactly 1")
	// ErrNFTNotFound token id 尚未铸造
	ErrNFTNotFound = errors.New("nft token id not found")
	// ErrNotNFTOwner from 不是该 token id 的持有者
	ErrNotNFTOwner = errors.New("from is not the nft owner")
	// ErrNFTExists 重复铸造同一 token id
	ErrNFTExists = errors.New("nft token id already minted")
)

// ERC721Proxy 非同质化代币处理器。
// 每个 (合约, token id) 对应一条 owner 记录，值为持有者地址的十六进制。
type ERC721Proxy struct{}

// NewERC721Proxy 创建 NFT 处理器
func NewERC721Proxy() *ERC721Proxy {
	return &ERC721Proxy{}
}

func (h *ERC721Proxy) Tag() assetdata.TypeTag {
	return assetdata.ERC721Tag
}

func (h *ERC721Proxy) Name() string {
	return "erc721"
}

// TransferFrom 执行一次 NFT 转移。
// 缩放后的数量必须恰好为 1：篮子里外层数量乘以腿内数量
// 只要不等于 1（包括 0）都直接拒绝。
func (h *ERC721Proxy) TransferFrom(sv StateView, assetData []byte, from, to common.Address, amount *big.Int) error {
	token, tokenID, err := assetdata.DecodeERC721(assetData)
	if err != nil {
		return err
	}

	if amount == nil || amount.Cmp(big.NewInt(1)) != 0 {
		return ErrInvalidNFTAmount
	}

	key := keys.KeyNFTOwner(token, tokenID)
	raw, exist, err := sv.Get(key)
	if err != nil {
		return err
	}
	if !exist {
		return ErrNFTNotFound
	}
	owner, err := parseOwnerRecord(raw)
	if err != nil {
		return err
	}
	if owner != from {
		return ErrNotNFTOwner
	}

	sv.Set(key, []byte(keys.Addr(to)))
	return nil
}

// Mint 铸造一个新的 token id 给 owner，已存在则拒绝
func (h *ERC721Proxy) Mint(sv StateView, token common.Address, tokenID *big.Int, owner common.Address) error {
	if tokenID == nil || tokenID.Sign() < 0 {
		return assetdata.ErrInvalidTokenID
	}

	key := keys.KeyNFTOwner(token, tokenID)
	_, exist, err := sv.Get(key)
	if err != nil {
		return err
	}
	if exist {
		return ErrNFTExists
	}

	sv.Set(key, []byte(keys.Addr(owner)))
	return nil
}

// OwnerOf 查询 token id 的当前持有者
func (h *ERC721Proxy) OwnerOf(sv StateView, token common.Address, tokenID *big.Int) (common.Address, error) {
	raw, exist, err := sv.Get(keys.KeyNFTOwner(token, tokenID))
	if err != nil {
		return common.Address{}, err
	}
	if !exist {
		return common.Address{}, ErrNFTNotFound
	}
	return parseOwnerRecord(raw)
}

// NFTHolding 一条 token id 到持有者的映射
type NFTHolding struct {
	TokenID *big.Int
	Owner   common.Address
}

// Holdings 枚举某个合约下已铸造的全部 token，按 token id 数值排序。
// 键里的 token id 是十进制字符串，排序前要转回数值比较
func (h *ERC721Proxy) Holdings(sv StateView, token common.Address) ([]NFTHolding, error) {
	prefix := keys.KeyNFTPrefix(token)
	kvs, err := sv.Scan(prefix)
	if err != nil {
		return nil, err
	}

	out := make([]NFTHolding, 0, len(kvs))
	for k, v := range kvs {
		tokenID, ok := new(big.Int).SetString(strings.TrimPrefix(k, prefix), 10)
		if !ok {
			continue
		}
		owner, err := parseOwnerRecord(v)
		if err != nil {
			continue
		}
		out = append(out, NFTHolding{TokenID: tokenID, Owner: owner})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TokenID.Cmp(out[j].TokenID) < 0
	})
	return out, nil
}

// parseOwnerRecord 解析存储的持有者地址
func parseOwnerRecord(raw []byte) (common.Address, error) {
	s := string(raw)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("malformed nft owner record: %q", s)
	}
	return common.HexToAddress(s), nil
}
