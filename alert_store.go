/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-18 10:47:29
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-23 10:12:44
 * @FilePath: \go-msc\alert_store.go
 * @Description: 告警历史存储与未读管理
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package msc

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// AlertRecord 告警历史记录
// 一条记录对应一个到达的告警批次，条目集合在入库后不再变化
type AlertRecord struct {
	ID         string      `json:"id"`          // 记录ID，服务端下发优先，缺失时本地合成
	Timestamp  time.Time   `json:"timestamp"`   // 记录时间，优先采用服务端时间戳
	Items      []AlertItem `json:"items"`       // 批次内的告警条目
	Read       bool        `json:"read"`        // 已读标志
	Seq        uint64      `json:"seq"`         // 单调入库序号，时间戳相同时的排序依据
	ReceivedAt time.Time   `json:"received_at"` // 本地接收时间
}

// AlertFilter 告警查询过滤器
// 两个维度之间取交集，单个维度内部任一条目命中即算命中
type AlertFilter struct {
	Level    AlertLevel // 级别维度，空值表示不过滤
	Category string     // 分类维度（如 high_cpu），空字符串表示不过滤
}

// Match 判断记录是否命中过滤条件
func (f *AlertFilter) Match(record *AlertRecord) bool {
	if record == nil {
		return false
	}
	if f.Level != "" {
		matched := false
		for _, item := range record.Items {
			if item.Level == f.Level {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if f.Category != "" {
		matched := false
		for _, item := range record.Items {
			if item.Type == f.Category {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// AlertStoreHooks 告警存储钩子接口
type AlertStoreHooks interface {
	// OnRecordInserted 新记录入库时调用
	OnRecordInserted(record *AlertRecord)

	// OnAllRead 全部标记已读时调用，参数为本次受影响的记录数
	OnAllRead(count int)

	// OnCleared 历史清空时调用，参数为被清除的记录数
	OnCleared(count int)
}

// AlertStore 告警历史存储
// 以记录ID为幂等键，重复入库不产生副作用；未读计数按条目粒度累计
type AlertStore struct {
	mu         sync.RWMutex            // 读写锁
	records    map[string]*AlertRecord // 记录ID到记录的映射
	unread     int                     // 未读条目数
	maxRecords int                     // 最大历史记录数
	seq        uint64                  // 入库序号，叠加在合成ID与排序中
	hooks      []AlertStoreHooks       // 钩子列表
	logger     MSCLogger               // 日志记录器
}

// NewAlertStore 创建告警历史存储
// maxRecords: 最大历史记录数，非正值使用默认值
func NewAlertStore(maxRecords int, l MSCLogger) *AlertStore {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxHistoryRecords
	}
	if l == nil {
		l = DefaultLogger
	}
	return &AlertStore{
		records:    make(map[string]*AlertRecord),
		maxRecords: maxRecords,
		logger:     l,
	}
}

// AddHook 注册存储钩子
func (as *AlertStore) AddHook(h AlertStoreHooks) {
	if h == nil {
		return
	}
	as.mu.Lock()
	as.hooks = append(as.hooks, h)
	as.mu.Unlock()
}

// Ingest 将告警信封写入历史
// 幂等：同ID的重复信封返回已有记录和 false，不触碰未读计数
// 服务端未下发ID时按本地接收时间与单调序号合成
// 不携带告警条目的信封不产生历史记录
func (as *AlertStore) Ingest(env *Envelope) (*AlertRecord, bool) {
	if env == nil || len(env.Alerts) == 0 {
		return nil, false
	}
	if env.Type != MessageTypeSystemAlert && env.Type != MessageTypeSessionEvent {
		return nil, false
	}

	receivedAt := env.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	as.mu.Lock()
	id := env.ID
	if id == "" {
		as.seq++
		id = fmt.Sprintf("alert_%d_%d", receivedAt.UnixMilli(), as.seq)
	}
	if existing, ok := as.records[id]; ok {
		snapshot := cloneAlertRecord(existing)
		as.mu.Unlock()
		return snapshot, false
	}

	as.seq++
	record := &AlertRecord{
		ID:         id,
		Timestamp:  env.Time(),
		Items:      append([]AlertItem(nil), env.Alerts...),
		Read:       false,
		Seq:        as.seq,
		ReceivedAt: receivedAt,
	}
	as.records[id] = record
	as.unread += len(record.Items)
	evicted := as.enforceMaxLocked()

	hooks := append([]AlertStoreHooks(nil), as.hooks...)
	snapshot := cloneAlertRecord(record)
	as.mu.Unlock()

	if evicted > 0 {
		as.logger.DebugKV("历史容量已满，淘汰最旧记录", "evicted", evicted)
	}

	// 钩子在锁外调用
	for _, h := range hooks {
		h.OnRecordInserted(snapshot)
	}
	return snapshot, true
}

// MarkAllRead 将全部记录标记为已读并清零未读计数
// 返回本次受影响的记录数，重复调用为空操作
func (as *AlertStore) MarkAllRead() int {
	as.mu.Lock()
	count := 0
	for _, record := range as.records {
		if !record.Read {
			record.Read = true
			count++
		}
	}
	as.unread = 0
	hooks := append([]AlertStoreHooks(nil), as.hooks...)
	as.mu.Unlock()

	if count > 0 {
		for _, h := range hooks {
			h.OnAllRead(count)
		}
	}
	return count
}

// ClearAll 清空全部历史并清零未读计数
// 返回被清除的记录数
func (as *AlertStore) ClearAll() int {
	as.mu.Lock()
	count := len(as.records)
	as.records = make(map[string]*AlertRecord)
	as.unread = 0
	hooks := append([]AlertStoreHooks(nil), as.hooks...)
	as.mu.Unlock()

	if count > 0 {
		for _, h := range hooks {
			h.OnCleared(count)
		}
	}
	return count
}

// Query 按过滤条件查询历史记录
// 结果按时间从新到旧排列，查询不改变任何已读状态
// 返回的是防御性副本，调用方修改不影响存储
func (as *AlertStore) Query(filter *AlertFilter) []*AlertRecord {
	as.mu.RLock()
	results := make([]*AlertRecord, 0, len(as.records))
	for _, record := range as.records {
		if filter == nil || filter.Match(record) {
			results = append(results, cloneAlertRecord(record))
		}
	}
	as.mu.RUnlock()

	sortAlertRecordsNewestFirst(results)
	return results
}

// Records 返回全部历史记录（从新到旧的副本）
func (as *AlertStore) Records() []*AlertRecord {
	return as.Query(nil)
}

// GetRecord 按ID获取单条记录的副本
func (as *AlertStore) GetRecord(id string) (*AlertRecord, bool) {
	as.mu.RLock()
	defer as.mu.RUnlock()
	record, ok := as.records[id]
	if !ok {
		return nil, false
	}
	return cloneAlertRecord(record), true
}

// UnreadCount 返回未读条目数
func (as *AlertStore) UnreadCount() int {
	as.mu.RLock()
	defer as.mu.RUnlock()
	return as.unread
}

// Size 返回历史记录总数
func (as *AlertStore) Size() int {
	as.mu.RLock()
	defer as.mu.RUnlock()
	return len(as.records)
}

// Statistics 获取统计信息
func (as *AlertStore) Statistics() map[string]int {
	as.mu.RLock()
	defer as.mu.RUnlock()

	stats := map[string]int{
		"total":   len(as.records),
		"unread":  as.unread,
		"info":    0,
		"warning": 0,
		"error":   0,
	}

	for _, record := range as.records {
		for _, item := range record.Items {
			switch item.Level {
			case AlertLevelInfo:
				stats["info"]++
			case AlertLevelWarning:
				stats["warning"]++
			case AlertLevelError:
				stats["error"]++
			}
		}
	}

	return stats
}

// enforceMaxLocked 强制执行最大记录数限制，淘汰最旧的记录
// 淘汰未读记录时同步扣减其未读贡献，调用方需持有 mu
func (as *AlertStore) enforceMaxLocked() int {
	removed := 0
	for len(as.records) > as.maxRecords {
		var oldest *AlertRecord
		for _, record := range as.records {
			if oldest == nil || recordOlder(record, oldest) {
				oldest = record
			}
		}
		if oldest == nil {
			break
		}
		if !oldest.Read {
			as.unread -= len(oldest.Items)
			if as.unread < 0 {
				as.unread = 0
			}
		}
		delete(as.records, oldest.ID)
		removed++
	}
	return removed
}

// recordOlder 判断 a 是否比 b 更旧
func recordOlder(a, b *AlertRecord) bool {
	if a.Timestamp.Equal(b.Timestamp) {
		return a.Seq < b.Seq
	}
	return a.Timestamp.Before(b.Timestamp)
}

// sortAlertRecordsNewestFirst 按时间从新到旧排序，时间相同按入库序号倒序
func sortAlertRecordsNewestFirst(records []*AlertRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].Seq > records[j].Seq
		}
		return records[i].Timestamp.After(records[j].Timestamp)
	})
}

// cloneAlertRecord 复制记录，条目切片独立
func cloneAlertRecord(record *AlertRecord) *AlertRecord {
	if record == nil {
		return nil
	}
	clone := *record
	clone.Items = append([]AlertItem(nil), record.Items...)
	return &clone
}
