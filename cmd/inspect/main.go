package main

import (
	"flag"
	"fmt"
	"path/filepath"

	"assetproxy/keys"

	"github.com/dgraph-io/badger/v2"
)

// 离线检查工具：遍历数据目录，按业务键族统计条目数并打印样例。
// 节点停机后使用，badger 不允许两个进程同时打开同一目录。
func main() {
	var (
		dataDir = flag.String("data", "./data", "node data directory")
		samples = flag.Int("samples", 5, "sample keys to print per family")
	)
	flag.Parse()

	dbPath := filepath.Join(*dataDir, "badger")
	opts := badger.DefaultOptions(dbPath).WithLogger(nil)
	store, err := badger.Open(opts)
	if err != nil {
		fmt.Printf("Failed to open DB: %v\n", err)
		return
	}
	defer store.Close()

	var ledger, flow, other int
	err = store.View(func(txn *badger.Txn) error {
		for _, spec := range keys.BusinessKeySpecs() {
			it := txn.NewIterator(badger.DefaultIteratorOptions)

			count := 0
			p := []byte(spec.Prefix)
			for it.Seek(p); it.ValidForPrefix(p); it.Next() {
				item := it.Item()
				key := string(item.Key())
				if count < *samples {
					val, err := item.ValueCopy(nil)
					if err != nil {
						it.Close()
						return err
					}
					fmt.Printf("  %s (%d bytes)\n", keys.StripVersion(key), len(val))
				}
				switch {
				case keys.IsLedgerKey(key):
					ledger++
				case keys.IsFlowKey(key):
					flow++
				default:
					other++
				}
				count++
			}
			it.Close()
			fmt.Printf("[%s] %s: %d entries\n", spec.KeyBuilder, spec.Description, count)
		}
		return nil
	})
	if err != nil {
		fmt.Printf("Error during scan: %v\n", err)
		return
	}

	fmt.Printf("\nTotals: ledger=%d flow=%d other=%d\n", ledger, flow, other)
}
