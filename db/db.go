package db

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"assetproxy/config"
	"assetproxy/logs"

	"github.com/dgraph-io/badger/v2"
	"github.com/dgraph-io/badger/v2/options"
)

// Manager 封装 BadgerDB 的管理器
type Manager struct {
	Db *badger.DB
	mu sync.RWMutex

	// 队列通道，批量写的 goroutine 用它来取写请求
	writeQueueChan chan WriteTask
	// 强制刷盘通道
	forceFlushChan chan flushRequest
	// 用于通知写队列 goroutine 停止
	stopChan chan struct{}
	// 写队列运行统计（用于观测吞吐与背压）
	writeQueueEnqueueTotal         uint64
	writeQueueEnqueueSetTotal      uint64
	writeQueueEnqueueDeleteTotal   uint64
	writeQueueEnqueueBlockedCount  uint64
	writeQueueEnqueueBlockedNs     uint64
	writeQueueDequeuedTotal        uint64
	writeQueueFlushBatchTotal      uint64
	writeQueueFlushedTaskTotal     uint64
	writeQueueFlushErrTotal        uint64
	writeQueueFlushDurationNsTotal uint64
	writeQueueForceFlushTotal      uint64
	writeQueueMaxDepth             uint64

	// 控制"写多少/多长时间"就落库
	maxBatchSize  int              // 累计多少条就写一次
	flushInterval time.Duration    // 间隔多久强制写一次
	seq           *badger.Sequence // 自增发号器（事件流水号）
	// wait group，保证 close 的时候能等 goroutine 退出
	wg  sync.WaitGroup
	cfg *config.Config
}

type flushRequest struct {
	done chan error
}

type writeQueueMetricsSnapshot struct {
	enqueueTotal         uint64
	enqueueSetTotal      uint64
	enqueueDeleteTotal   uint64
	enqueueBlockedCount  uint64
	enqueueBlockedNs     uint64
	dequeuedTotal        uint64
	flushBatchTotal      uint64
	flushedTaskTotal     uint64
	flushErrTotal        uint64
	flushDurationNsTotal uint64
	forceFlushTotal      uint64
	maxDepth             uint64
}

// QueueStats 写队列运行统计快照，状态接口直接序列化它
type QueueStats struct {
	QueueLen      int    `json:"queue_len"`
	QueueCap      int    `json:"queue_cap"`
	MaxDepth      uint64 `json:"max_depth"`
	EnqueueTotal  uint64 `json:"enqueue_total"`
	EnqueueSet    uint64 `json:"enqueue_set"`
	EnqueueDelete uint64 `json:"enqueue_delete"`
	Dequeued      uint64 `json:"dequeued"`
	FlushBatches  uint64 `json:"flush_batches"`
	FlushedTasks  uint64 `json:"flushed_tasks"`
	FlushErrors   uint64 `json:"flush_errors"`
	ForceFlushes  uint64 `json:"force_flushes"`
}

// KV 有序扫描的结果条目
type KV struct {
	Key   string
	Value []byte
}

// NewManager 创建一个新的 DBManager 实例
func NewManager(path string) (*Manager, error) {
	return NewManagerWithConfig(path, nil)
}

// NewManagerWithConfig 创建 DBManager，可选注入整份 Config
func NewManagerWithConfig(path string, cfg *config.Config) (*Manager, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	opts := badger.DefaultOptions(path).WithLogger(nil)
	// 应用调优参数
	opts.ValueLogFileSize = cfg.Database.ValueLogFileSize
	// 使用 FileIO 模式减少 mmap 内存占用
	opts.TableLoadingMode = options.FileIO
	opts.ValueLogLoadingMode = options.FileIO

	// badger v2 不自动创建父目录，需要手动创建
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	// 事件流水号的发号器（一次预取一个号段，可按业务量调大/调小）
	seq, err := db.GetSequence([]byte("meta:event_seq"), cfg.Database.SequenceBandwidth)
	if err != nil {
		_ = db.Close() // 清理已打开的数据库
		return nil, fmt.Errorf("failed to create sequence: %w", err)
	}

	manager := &Manager{
		Db:  db,
		seq: seq,
		cfg: cfg,
	}

	return manager, nil
}

func (manager *Manager) InitWriteQueue(maxBatchSize int, flushInterval time.Duration) {
	cfg := manager.cfg
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	manager.maxBatchSize = maxBatchSize
	manager.flushInterval = flushInterval
	manager.resetWriteQueueMetrics()
	manager.writeQueueChan = make(chan WriteTask, cfg.Database.WriteQueueSize) // 缓冲区大小可酌情调大

	manager.forceFlushChan = make(chan flushRequest, 1)

	manager.stopChan = make(chan struct{})

	manager.wg.Add(1)
	go manager.runWriteQueue()
}

func (manager *Manager) resetWriteQueueMetrics() {
	manager.writeQueueEnqueueTotal = 0
	manager.writeQueueEnqueueSetTotal = 0
	manager.writeQueueEnqueueDeleteTotal = 0
	manager.writeQueueEnqueueBlockedCount = 0
	manager.writeQueueEnqueueBlockedNs = 0
	manager.writeQueueDequeuedTotal = 0
	manager.writeQueueFlushBatchTotal = 0
	manager.writeQueueFlushedTaskTotal = 0
	manager.writeQueueFlushErrTotal = 0
	manager.writeQueueFlushDurationNsTotal = 0
	manager.writeQueueForceFlushTotal = 0
	manager.writeQueueMaxDepth = 0
}

func (manager *Manager) observeQueueDepth() {
	q := len(manager.writeQueueChan)
	for {
		old := atomic.LoadUint64(&manager.writeQueueMaxDepth)
		if uint64(q) <= old {
			return
		}
		if atomic.CompareAndSwapUint64(&manager.writeQueueMaxDepth, old, uint64(q)) {
			return
		}
	}
}

func (manager *Manager) snapshotWriteQueueMetrics() writeQueueMetricsSnapshot {
	return writeQueueMetricsSnapshot{
		enqueueTotal:         atomic.LoadUint64(&manager.writeQueueEnqueueTotal),
		enqueueSetTotal:      atomic.LoadUint64(&manager.writeQueueEnqueueSetTotal),
		enqueueDeleteTotal:   atomic.LoadUint64(&manager.writeQueueEnqueueDeleteTotal),
		enqueueBlockedCount:  atomic.LoadUint64(&manager.writeQueueEnqueueBlockedCount),
		enqueueBlockedNs:     atomic.LoadUint64(&manager.writeQueueEnqueueBlockedNs),
		dequeuedTotal:        atomic.LoadUint64(&manager.writeQueueDequeuedTotal),
		flushBatchTotal:      atomic.LoadUint64(&manager.writeQueueFlushBatchTotal),
		flushedTaskTotal:     atomic.LoadUint64(&manager.writeQueueFlushedTaskTotal),
		flushErrTotal:        atomic.LoadUint64(&manager.writeQueueFlushErrTotal),
		flushDurationNsTotal: atomic.LoadUint64(&manager.writeQueueFlushDurationNsTotal),
		forceFlushTotal:      atomic.LoadUint64(&manager.writeQueueForceFlushTotal),
		maxDepth:             atomic.LoadUint64(&manager.writeQueueMaxDepth),
	}
}

// QueueStats 导出当前写队列统计
func (manager *Manager) QueueStats() QueueStats {
	snap := manager.snapshotWriteQueueMetrics()
	qLen, qCap := 0, 0
	if manager.writeQueueChan != nil {
		qLen = len(manager.writeQueueChan)
		qCap = cap(manager.writeQueueChan)
	}
	return QueueStats{
		QueueLen:      qLen,
		QueueCap:      qCap,
		MaxDepth:      snap.maxDepth,
		EnqueueTotal:  snap.enqueueTotal,
		EnqueueSet:    snap.enqueueSetTotal,
		EnqueueDelete: snap.enqueueDeleteTotal,
		Dequeued:      snap.dequeuedTotal,
		FlushBatches:  snap.flushBatchTotal,
		FlushedTasks:  snap.flushedTaskTotal,
		FlushErrors:   snap.flushErrTotal,
		ForceFlushes:  snap.forceFlushTotal,
	}
}

func (manager *Manager) logWriteQueueStats(prev writeQueueMetricsSnapshot, interval time.Duration) writeQueueMetricsSnapshot {
	cur := manager.snapshotWriteQueueMetrics()
	seconds := interval.Seconds()
	if seconds <= 0 {
		seconds = 1
	}

	enqDelta := cur.enqueueTotal - prev.enqueueTotal
	setDelta := cur.enqueueSetTotal - prev.enqueueSetTotal
	delDelta := cur.enqueueDeleteTotal - prev.enqueueDeleteTotal
	deqDelta := cur.dequeuedTotal - prev.dequeuedTotal
	flushBatchDelta := cur.flushBatchTotal - prev.flushBatchTotal
	flushedTaskDelta := cur.flushedTaskTotal - prev.flushedTaskTotal
	flushErrDelta := cur.flushErrTotal - prev.flushErrTotal
	flushDurationDeltaNs := cur.flushDurationNsTotal - prev.flushDurationNsTotal
	forceFlushDelta := cur.forceFlushTotal - prev.forceFlushTotal
	blockedDelta := cur.enqueueBlockedCount - prev.enqueueBlockedCount
	blockedNsDelta := cur.enqueueBlockedNs - prev.enqueueBlockedNs

	avgBatch := 0.0
	avgFlushMs := 0.0
	if flushBatchDelta > 0 {
		avgBatch = float64(flushedTaskDelta) / float64(flushBatchDelta)
		avgFlushMs = float64(flushDurationDeltaNs) / float64(flushBatchDelta) / float64(time.Millisecond)
	}

	avgBlockMs := 0.0
	if blockedDelta > 0 {
		avgBlockMs = float64(blockedNsDelta) / float64(blockedDelta) / float64(time.Millisecond)
	}

	qLen := len(manager.writeQueueChan)
	qCap := cap(manager.writeQueueChan)
	logs.Info(
		"[DBQueue] 10s stats q=%d/%d max=%d enq=%d(%.1f/s,set=%d,del=%d) deq=%d(%.1f/s) flushTasks=%d batches=%d avgBatch=%.1f avgFlush=%.2fms flushErr=%d forceFlush=%d blocked=%d avgBlock=%.2fms",
		qLen, qCap, cur.maxDepth,
		enqDelta, float64(enqDelta)/seconds, setDelta, delDelta,
		deqDelta, float64(deqDelta)/seconds,
		flushedTaskDelta, flushBatchDelta, avgBatch, avgFlushMs,
		flushErrDelta, forceFlushDelta, blockedDelta, avgBlockMs,
	)

	return cur
}

// 写队列的核心 goroutine 逻辑
func (manager *Manager) runWriteQueue() {
	defer manager.wg.Done()

	// 用于临时收集写请求
	var batch []WriteTask
	batch = make([]WriteTask, 0, manager.maxBatchSize)

	// 定时器：到了 flushInterval 就要提交
	ticker := time.NewTicker(manager.flushInterval)
	defer ticker.Stop()
	metricsTicker := time.NewTicker(10 * time.Second)
	defer metricsTicker.Stop()
	lastMetricsAt := time.Now()
	metricsPrev := manager.snapshotWriteQueueMetrics()

	flushCurrentBatch := func() error {
		if len(batch) == 0 {
			return nil
		}
		count := len(batch)
		start := time.Now()
		err := manager.flushBatch(batch)
		atomic.AddUint64(&manager.writeQueueFlushBatchTotal, 1)
		atomic.AddUint64(&manager.writeQueueFlushedTaskTotal, uint64(count))
		atomic.AddUint64(&manager.writeQueueFlushDurationNsTotal, uint64(time.Since(start)))
		if err != nil {
			atomic.AddUint64(&manager.writeQueueFlushErrTotal, 1)
		}
		batch = batch[:0]
		return err
	}

	for {
		select {
		case <-manager.stopChan:
			// 退出前先排空队列，再刷掉最后一批
			batch = manager.drainWriteQueue(batch)
			err := flushCurrentBatch()
			manager.resolvePendingForceFlush(err)
			return

		case task := <-manager.writeQueueChan:
			// 收到一条写请求，加入 batch
			atomic.AddUint64(&manager.writeQueueDequeuedTotal, 1)
			batch = append(batch, task)
			if len(batch) >= manager.maxBatchSize {
				// 超过阈值，立即 flush
				if err := flushCurrentBatch(); err != nil {
					logs.Error("[runWriteQueue] flush by size failed: %v", err)
				}
			}

		case <-ticker.C:
			// 定时触发时先排空当前队列积压，避免频繁小批次 flush
			batch = manager.drainWriteQueue(batch)
			// 到了时间间隔，也要 flush
			if err := flushCurrentBatch(); err != nil {
				logs.Error("[runWriteQueue] flush by ticker failed: %v", err)
			}

		case <-metricsTicker.C:
			metricsPrev = manager.logWriteQueueStats(metricsPrev, time.Since(lastMetricsAt))
			lastMetricsAt = time.Now()

		case req := <-manager.forceFlushChan:
			// 同步 flush：排空已入队写请求并等待落盘完成
			atomic.AddUint64(&manager.writeQueueForceFlushTotal, 1)
			batch = manager.drainWriteQueue(batch)
			err := flushCurrentBatch()
			manager.finishForceFlush(req, err)

			// 依次处理已排队的其他 force flush 请求，保持强一致语义
			for {
				select {
				case req = <-manager.forceFlushChan:
					atomic.AddUint64(&manager.writeQueueForceFlushTotal, 1)
					batch = manager.drainWriteQueue(batch)
					err = flushCurrentBatch()
					manager.finishForceFlush(req, err)
				default:
					goto doneForceFlush
				}
			}
		doneForceFlush:
		}
	}
}

// ForceFlush triggers a batch queue flush
func (manager *Manager) ForceFlush() error {
	if manager.forceFlushChan == nil {
		return nil
	}

	req := flushRequest{done: make(chan error, 1)}

	if manager.stopChan != nil {
		select {
		case manager.forceFlushChan <- req:
		case <-manager.stopChan:
			return fmt.Errorf("write queue already stopped")
		}
	} else {
		manager.forceFlushChan <- req
	}

	if manager.stopChan != nil {
		select {
		case err := <-req.done:
			return err
		case <-manager.stopChan:
			select {
			case err := <-req.done:
				return err
			default:
			}
			return fmt.Errorf("write queue stopped before flush completed")
		}
	}

	return <-req.done
}

func (manager *Manager) drainWriteQueue(batch []WriteTask) []WriteTask {
	for {
		select {
		case task := <-manager.writeQueueChan:
			atomic.AddUint64(&manager.writeQueueDequeuedTotal, 1)
			batch = append(batch, task)
		default:
			return batch
		}
	}
}

func (manager *Manager) finishForceFlush(req flushRequest, err error) {
	req.done <- err
	close(req.done)
}

func (manager *Manager) resolvePendingForceFlush(err error) {
	for {
		select {
		case req := <-manager.forceFlushChan:
			manager.finishForceFlush(req, err)
		default:
			return
		}
	}
}

// Scan 扫描指定前缀的所有键值对，返回 map[key]value
func (manager *Manager) Scan(prefix string) (map[string][]byte, error) {
	result := make(map[string][]byte)

	err := manager.Db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			k := item.KeyCopy(nil)
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			result[string(k)] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ScanOrdered 按底层迭代器顺序返回前缀下的条目，避免 map + sort 的额外分配。
// limit <= 0 表示不限制；reverse 为 true 时按 key 字节序从大到小返回
// （事件流水、回执一类按序号编排的 key 可借此取"最新 N 条"）。
func (manager *Manager) ScanOrdered(prefix string, limit int, reverse bool) ([]KV, error) {
	result := make([]KV, 0)

	err := manager.Db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = reverse
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		if reverse {
			// 反向迭代器 Seek(k) 会找到 <= k 的第一个键，
			// 需要指向前缀范围的最末端
			pEnd := make([]byte, len(p)+1)
			copy(pEnd, p)
			pEnd[len(p)] = 0xFF
			it.Seek(pEnd)
		} else {
			it.Seek(p)
		}

		count := 0
		for ; it.ValidForPrefix(p); it.Next() {
			if limit > 0 && count >= limit {
				break
			}
			item := it.Item()
			k := item.KeyCopy(nil)
			v, err := item.ValueCopy(nil)
			if err != nil {
				continue
			}
			result = append(result, KV{Key: string(k), Value: v})
			count++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// 这里 flushBatch 会把 batch 分段后提交到 BadgerDB。
func (manager *Manager) flushBatch(batch []WriteTask) error {
	if len(batch) == 0 {
		return nil
	}
	cfg := manager.cfg
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	// 保守软上限，留出 Badger 元数据开销余量
	softLimitBytes := cfg.Database.WriteBatchSoftLimit // 8 MiB
	maxCountPerTxn := cfg.Database.MaxCountPerTxn      // 也保留条数上限，双重保险
	perEntryOverhead := cfg.Database.PerEntryOverhead  // 估算每条附加开销

	// 1) 先按“字节+条数”把batch切成若干 sub-batch
	type sliceRange struct{ i, j int }
	subRanges := make([]sliceRange, 0, (len(batch)+maxCountPerTxn-1)/maxCountPerTxn)

	curStart, curBytes, curCount := 0, 0, 0
	for idx, t := range batch {
		entryBytes := len(t.Key) + len(t.Value) + perEntryOverhead
		// 如果加上当前条会超过限制，就先封口开新段
		if curCount > 0 && (int64(curBytes+entryBytes) > softLimitBytes || curCount >= maxCountPerTxn) {
			subRanges = append(subRanges, sliceRange{curStart, idx})
			curStart, curBytes, curCount = idx, 0, 0
		}
		curBytes += entryBytes
		curCount++
	}
	// 收尾
	if curStart < len(batch) {
		subRanges = append(subRanges, sliceRange{curStart, len(batch)})
	}

	var firstErr error

	// 2) 提交每个 sub-batch；若仍报过大，二分退让
	for _, r := range subRanges {
		if err := manager.flushRangeWithSplit(batch, r.i, r.j); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

func (manager *Manager) flushRangeWithSplit(batch []WriteTask, start, end int) error {
	type sliceRange struct{ i, j int }

	stack := []sliceRange{{i: start, j: end}}
	var firstErr error

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if cur.i >= cur.j {
			continue
		}

		ok, err := manager.tryFlushRange(batch, cur.i, cur.j)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if ok {
			continue
		}

		if cur.j-cur.i <= 1 {
			continue
		}

		mid := cur.i + (cur.j-cur.i)/2
		stack = append(stack, sliceRange{i: mid, j: cur.j}, sliceRange{i: cur.i, j: mid})
	}

	return firstErr
}

// 返回是否提交成功；若返回 false，调用方应继续拆分范围重试。
func (manager *Manager) tryFlushRange(batch []WriteTask, start, end int) (bool, error) {
	if start >= end {
		return true, nil
	}
	sub := batch[start:end]

	wb := manager.Db.NewWriteBatch()
	defer wb.Cancel()

	for _, task := range sub {
		var err error
		switch task.Op {
		case OpSet:
			err = wb.Set(task.Key, task.Value)
		case OpDelete:
			err = wb.Delete(task.Key)
		}
		if err != nil {
			// ErrTxnTooBig 时交给外层继续切分
			if errors.Is(err, badger.ErrTxnTooBig) || strings.Contains(err.Error(), "Txn is too big") {
				if end-start == 1 {
					key := string(sub[0].Key)
					valSz := len(sub[0].Value)
					msg := fmt.Errorf("single entry too big for badger: key=%q size=%d bytes", key, valSz)
					logs.Error("[flushBatch] %v; consider compressing, chunking, or storing out-of-DB", msg)
					return true, msg
				}
				return false, nil
			}
			logs.Error("[flushBatch] subBatch [%d:%d] set/delete error: %v", start, end, err)
			return true, err
		}
	}

	err := wb.Flush()
	if err == nil {
		return true, nil
	}

	// Badger 的典型报错文案里包含 "Txn is too big"
	if errors.Is(err, badger.ErrTxnTooBig) || strings.Contains(err.Error(), "Txn is too big") {
		if end-start == 1 {
			// 单条仍过大：给出清晰提示
			key := string(sub[0].Key)
			valSz := len(sub[0].Value)
			msg := fmt.Errorf("single entry still too big: key=%q size=%d bytes", key, valSz)
			logs.Error("[flushBatch] %v; consider compressing, chunking, or storing out-of-DB", msg)
			return true, msg
		}
		// 交给上层继续二分
		return false, nil
	}

	// 其他错误：记录并继续
	logs.Error("[flushBatch] subBatch [%d:%d] error: %v", start, end, err)
	return true, err // 避免卡死：把它当“已处理”，不中断后续
}

// 提供"投递写请求"的方法

func (manager *Manager) EnqueueSet(key, value string) {
	start := time.Now()
	manager.writeQueueChan <- WriteTask{
		Key:   []byte(key),
		Value: []byte(value),
		Op:    OpSet,
	}
	atomic.AddUint64(&manager.writeQueueEnqueueTotal, 1)
	atomic.AddUint64(&manager.writeQueueEnqueueSetTotal, 1)
	blocked := time.Since(start)
	if blocked > 100*time.Microsecond {
		atomic.AddUint64(&manager.writeQueueEnqueueBlockedCount, 1)
		atomic.AddUint64(&manager.writeQueueEnqueueBlockedNs, uint64(blocked))
	}
	manager.observeQueueDepth()
}

func (manager *Manager) EnqueueDel(key string) {
	start := time.Now()
	manager.writeQueueChan <- WriteTask{
		Key: []byte(key),
		Op:  OpDelete,
	}
	atomic.AddUint64(&manager.writeQueueEnqueueTotal, 1)
	atomic.AddUint64(&manager.writeQueueEnqueueDeleteTotal, 1)
	blocked := time.Since(start)
	if blocked > 100*time.Microsecond {
		atomic.AddUint64(&manager.writeQueueEnqueueBlockedCount, 1)
		atomic.AddUint64(&manager.writeQueueEnqueueBlockedNs, uint64(blocked))
	}
	manager.observeQueueDepth()
}

func (manager *Manager) Close() {
	// 1. 先做一次同步 flush，确保已经入队的写请求全部落盘
	if err := manager.ForceFlush(); err != nil {
		logs.Error("[db.Close] force flush failed: %v", err)
	}

	// 2. 通知写队列 goroutine 停止
	if manager.stopChan != nil {
		select {
		case <-manager.stopChan:
			// already closed
		default:
			close(manager.stopChan)
		}
	}

	// 3. 等待 goroutine 退出
	manager.wg.Wait()
	manager.stopChan = nil
	manager.forceFlushChan = nil

	// 4. 这时所有队列里的数据都已经flush完了，可以安全关闭DB
	manager.mu.Lock()
	defer manager.mu.Unlock()

	if manager.seq != nil {
		_ = manager.seq.Release() // 无须处理返回值；Close() 时 Badger 仍会安全落盘
		manager.seq = nil
	}

	if manager.Db != nil {
		_ = manager.Db.Close()
		manager.Db = nil
	}
}

// Get 读取键对应的值，键不存在时返回 badger.ErrKeyNotFound
func (manager *Manager) Get(key string) ([]byte, error) {
	manager.mu.RLock()
	db := manager.Db
	manager.mu.RUnlock()

	if db == nil {
		return nil, fmt.Errorf("database is not initialized or closed")
	}

	var value []byte
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		value = val
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// GetKVs 批量读取，不存在的键直接跳过
func (manager *Manager) GetKVs(keys []string) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	manager.mu.RLock()
	db := manager.Db
	manager.mu.RUnlock()

	if db == nil {
		return nil, fmt.Errorf("database is not initialized or closed")
	}

	err := db.View(func(txn *badger.Txn) error {
		for _, key := range keys {
			if key == "" {
				continue
			}
			item, err := txn.Get([]byte(key))
			if err != nil {
				if err == badger.ErrKeyNotFound {
					continue
				}
				return err
			}
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			result[key] = val
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// IsNotFound 判断是否"键不存在"错误，调用方无须直接依赖 badger
func IsNotFound(err error) bool {
	return errors.Is(err, badger.ErrKeyNotFound)
}

// NextIndex 获取下一个自增索引
func (m *Manager) NextIndex() (uint64, error) {
	id, err := m.seq.Next() // Badger 自动并发安全
	if err != nil {
		return 0, err
	}
	return id + 1, nil // 让索引依旧 from 1 开始
}
