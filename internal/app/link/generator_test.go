package link

import (
	"context"
	"strings"
	"testing"
)

// fakeChecker 可编程的存在性检查，顺便数调用次数。
type fakeChecker struct {
	exists func(code string) bool
	calls  int
}

func (f *fakeChecker) ExistsByCode(_ context.Context, code string) (bool, error) {
	f.calls++
	if f.exists == nil {
		return false, nil
	}
	return f.exists(code), nil
}

func TestGenerate_CodesAreDistinctAndWellFormed(t *testing.T) {
	checker := &fakeChecker{}
	g := NewGenerator(checker, 6)

	const n = 1000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		code, err := g.Generate(context.Background())
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q has length %d, want 6", code, len(code))
		}
		for _, c := range code {
			if !strings.ContainsRune(codeAlphabet, c) {
				t.Fatalf("code %q contains %q outside the alphabet", code, c)
			}
		}
		if _, dup := seen[code]; dup {
			t.Fatalf("duplicate code %q after %d generations", code, i)
		}
		seen[code] = struct{}{}
	}
}

func TestGenerate_EscalatesLengthAfterBoundedRetries(t *testing.T) {
	// 所有 6 位码都"已存在"：10 次都碰撞后升级到 7 位并直接返回。
	checker := &fakeChecker{exists: func(string) bool { return true }}
	g := NewGenerator(checker, 6)

	code, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(code) != 7 {
		t.Fatalf("escalated code %q has length %d, want 7", code, len(code))
	}
	// 升级后的最后一抽不做存在性检查
	if checker.calls != maxGenerateAttempts {
		t.Fatalf("existence checks = %d, want %d", checker.calls, maxGenerateAttempts)
	}
}

func TestGenerate_StopsAtFirstFreeCode(t *testing.T) {
	calls := 0
	checker := &fakeChecker{exists: func(string) bool {
		calls++
		return calls <= 3 // 前 3 次碰撞
	}}
	g := NewGenerator(checker, 6)

	code, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("code length = %d, want 6 (no escalation before the bound)", len(code))
	}
	if checker.calls != 4 {
		t.Fatalf("existence checks = %d, want 4", checker.calls)
	}
}

func TestNewGenerator_DefaultLength(t *testing.T) {
	g := NewGenerator(&fakeChecker{}, 0)
	code, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("default code length = %d, want 6", len(code))
	}
}
