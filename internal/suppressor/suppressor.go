// Package suppressor 报警去重：同一 (设备, 条件组合) 在时间窗内只通知一次
//
// 缓存是进程内的尽力而为缓存，重启丢失最多导致重复通知，不会漏报。
// 去重只拦通知，不拦评估和落库。
package suppressor

import (
	"sync"
	"time"
)

const (
	// DefaultTTL 默认去重窗口
	DefaultTTL = 15 * time.Minute

	// DefaultMaxEntries 默认容量上限，超过后触发过期清理
	DefaultMaxEntries = 100
)

// Suppressor 时间窗去重缓存
type Suppressor struct {
	mu         sync.Mutex
	lastFired  map[string]time.Time
	ttl        time.Duration
	maxEntries int
	now        func() time.Time // 可注入时钟，测试用
}

// New 创建去重缓存
// ttl/maxEntries 传 0 使用默认值
func New(ttl time.Duration, maxEntries int) *Suppressor {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Suppressor{
		lastFired:  make(map[string]time.Time),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// ShouldSuppress 检查该键是否在去重窗口内已经通知过
// 已存在但过期的条目当场清除并返回 false
func (s *Suppressor) ShouldSuppress(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	firedAt, ok := s.lastFired[key]
	if !ok {
		return false
	}

	if s.now().Sub(firedAt) >= s.ttl {
		delete(s.lastFired, key)
		return false
	}

	return true
}

// RecordFired 记录一次通知发出
// 超过容量上限时顺手清掉所有过期条目
func (s *Suppressor) RecordFired(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastFired[key] = s.now()

	if len(s.lastFired) > s.maxEntries {
		s.sweepLocked()
	}
}

// sweepLocked 清理过期条目，调用方必须持有锁
func (s *Suppressor) sweepLocked() {
	now := s.now()
	for key, firedAt := range s.lastFired {
		if now.Sub(firedAt) >= s.ttl {
			delete(s.lastFired, key)
		}
	}
}

// Len 当前缓存条目数（测试用）
func (s *Suppressor) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lastFired)
}
