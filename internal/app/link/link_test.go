package link

import (
	"testing"
	"time"
)

func TestIsLive(t *testing.T) {
	now := time.Now()
	l := &Link{Active: true, ExpiresAt: now}

	// 边界：now == expiresAt 仍算存活（now <= expiresAt）
	if !l.IsLive(now) {
		t.Error("record expiring exactly now must still be live")
	}
	if l.IsLive(now.Add(time.Nanosecond)) {
		t.Error("record past expiresAt must not be live")
	}

	l.Active = false
	if l.IsLive(now.Add(-time.Hour)) {
		t.Error("inactive record must never be live")
	}
}

func TestNewView_RecomputesActive(t *testing.T) {
	now := time.Now()
	l := &Link{
		Code:       "abcd12",
		TargetURL:  "http://example.com/",
		CreatedAt:  now.Add(-25 * time.Hour),
		ExpiresAt:  now.Add(-time.Hour),
		ClickCount: 3,
		Active:     true, // 还没被惰性过期或清理任务翻转
	}

	view := NewView(l, "http://localhost:9999", now)
	if view.Active {
		t.Error("view.Active must reflect liveness, not the stored flag")
	}
	if view.ShortURL != "http://localhost:9999/abcd12" {
		t.Errorf("shortUrl = %q", view.ShortURL)
	}
}
