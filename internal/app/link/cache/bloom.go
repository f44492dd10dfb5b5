package cache

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// CodeFilter 是短码的布隆过滤器，给生成器的存在性检查当预过滤：
// 返回"一定不存在"时可以跳过一次数据库往返。
//
// 短码只增不删（停用也不回收），所以过滤器永远不会给出过时的否定答案。
type CodeFilter struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewCodeFilter 创建过滤器。
// expectedItems: 预期短码数量；falsePositiveRate: 误判率（建议 0.01）
func NewCodeFilter(expectedItems uint, falsePositiveRate float64) *CodeFilter {
	return &CodeFilter{
		filter: bloom.NewWithEstimates(expectedItems, falsePositiveRate),
	}
}

func (f *CodeFilter) Add(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter.AddString(code)
}

// MightContain 返回 false 表示一定不存在；返回 true 表示可能存在（有误判率）。
func (f *CodeFilter) MightContain(code string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter.TestString(code)
}

// Count 返回已加入元素数量的估算值。
func (f *CodeFilter) Count() uint32 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter.ApproximatedSize()
}
