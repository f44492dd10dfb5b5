package link

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
)

// 62 个字符的短码字母表（A-Z a-z 0-9）。
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// maxGenerateAttempts 是碰撞重试上限。前 10 次每次抽完都查一次存在性；
// 全部碰撞则升级到 L+1 长度再抽一次并直接返回（不再查存在性）。
// 这个策略把生成延迟压在最多 11 次存储往返内，且保证一定终止；
// 升级后不查的那次碰撞概率可以忽略，真撞上了由存储层唯一约束兜底。
const maxGenerateAttempts = 10

// CodeChecker 是生成器需要的最小存储能力：短码是否已存在。
type CodeChecker interface {
	ExistsByCode(ctx context.Context, code string) (bool, error)
}

// Generator 生成与现有记录不碰撞的短码。
//
// 随机源必须不可预测（crypto/rand）：短码是链接唯一的防枚举手段，
// 不能用可复现种子的伪随机数生成。
type Generator struct {
	store  CodeChecker
	length int
	rand   io.Reader // 测试时可注入；生产用 crypto/rand.Reader
}

// NewGenerator 构造生成器。length<=0 时取默认 6。
func NewGenerator(store CodeChecker, length int) *Generator {
	if length <= 0 {
		length = 6
	}
	return &Generator{store: store, length: length, rand: rand.Reader}
}

// Generate 返回一个当前不与任何已存记录冲突的短码。
//
// 注意：存在性检查只是尽力而为的预过滤，不是保证——两个并发生成器仍可能
// 在"检查通过之后、保存之前"的窗口里选中同一个码。最终权威是存储层对
// code 的唯一约束，保存冲突由调用方（Service.Create）有界重试。
func (g *Generator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		code, err := g.randomCode(g.length)
		if err != nil {
			return "", err
		}
		exists, err := g.store.ExistsByCode(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	// 连续 10 次碰撞：长度+1 再抽一次，跳过存在性检查直接返回。
	return g.randomCode(g.length + 1)
}

// randomCode 从字母表均匀抽取 n 个字符。
// 用拒绝采样消除 256 % 62 != 0 带来的取模偏差。
func (g *Generator) randomCode(n int) (string, error) {
	const limit = 248 // 62 * 4，大于等于 limit 的字节丢弃重抽
	code := make([]byte, 0, n)
	buf := make([]byte, n*2)
	for len(code) < n {
		if _, err := io.ReadFull(g.rand, buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			code = append(code, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(code) == n {
				break
			}
		}
	}
	return string(code), nil
}
