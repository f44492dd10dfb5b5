package link_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"linkcut.local/internal/app/link"
	"linkcut.local/internal/app/link/memstore"
)

func TestSweep_DeactivatesOnlyExpired(t *testing.T) {
	store := memstore.New()
	now := time.Now()

	save := func(code string, expiresAt time.Time, active bool) {
		t.Helper()
		err := store.Save(context.Background(), &link.Link{
			Code:      code,
			TargetURL: "http://example.com/" + code,
			CreatedAt: now.Add(-72 * time.Hour),
			ExpiresAt: expiresAt,
			Active:    active,
		})
		if err != nil {
			t.Fatalf("Save(%s): %v", code, err)
		}
	}

	// 三条过期且 active，两条未过期
	save("dead01", now.Add(-time.Hour), true)
	save("dead02", now.Add(-time.Minute), true)
	save("dead03", now.Add(-48*time.Hour), true)
	save("live01", now.Add(time.Hour), true)
	save("live02", now.Add(24*time.Hour), true)
	// 已经 inactive 的过期记录不重复计数
	save("gone01", now.Add(-time.Hour), false)

	sweeper := link.NewSweeper(store, time.Hour)
	if count := sweeper.Sweep(context.Background()); count != 3 {
		t.Fatalf("Sweep returned %d, want 3", count)
	}

	for _, code := range []string{"dead01", "dead02", "dead03", "gone01"} {
		l, _ := store.FindByCode(context.Background(), code)
		if l.Active {
			t.Errorf("%s still active after sweep", code)
		}
	}
	for _, code := range []string{"live01", "live02"} {
		l, _ := store.FindByCode(context.Background(), code)
		if !l.Active {
			t.Errorf("%s deactivated by sweep but not expired", code)
		}
	}

	// 第二轮没有可翻转的记录
	if count := sweeper.Sweep(context.Background()); count != 0 {
		t.Fatalf("second Sweep returned %d, want 0", count)
	}
}

// failingStore 让批量停用报错，验证清理任务只记日志不崩。
type failingStore struct {
	*memstore.Store
}

func (f *failingStore) BulkDeactivateExpired(context.Context, time.Time) (int64, error) {
	return 0, errors.New("db down")
}

func TestSweep_StoreErrorIsSwallowed(t *testing.T) {
	sweeper := link.NewSweeper(&failingStore{Store: memstore.New()}, time.Hour)
	if count := sweeper.Sweep(context.Background()); count != 0 {
		t.Fatalf("Sweep returned %d on error, want 0", count)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	sweeper := link.NewSweeper(memstore.New(), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancel")
	}
}
