package link

import "time"

// Link 是短链领域对象（domain model）。
//
// 说明：
// - Code：短码，创建后不可变，全局唯一（由存储层的唯一约束兜底）
// - TargetURL：净化并校验过的目标长链接，创建后不可变
// - ExpiresAt：创建时一次性确定 = CreatedAt + 有效小时数
// - Active：初始 true，只会单向翻转为 false（惰性过期或定时清理），不会翻回来
//
// 设计原因：
// - 领域层只关心"业务含义"，不携带 HTTP/DB 细节（状态码、SQL 字段、JSON tag）
type Link struct {
	Code       string
	TargetURL  string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ClickCount int64
	Active     bool
}

// IsLive 判断记录在 now 时刻是否可用于跳转。
//
// "是否存活"是一个随时间变化的派生谓词，不是存储字段：Active=true 只说明
// 还没有被翻转过。Resolve 和 Stats 都复用这一个函数，避免两处各写一套判断
// 后悄悄漂移。
func (l *Link) IsLive(now time.Time) bool {
	return l.Active && !now.After(l.ExpiresAt)
}

// View 是对外返回的短链视图（创建和查询统计共用同一形状）。
//
// Active 字段是实时重算的存活状态，而不是存储里的布尔值：一条已过期但
// 还没被翻转的记录，对外就应该显示为不可用。
type View struct {
	ShortCode   string    `json:"shortCode"`
	ShortURL    string    `json:"shortUrl"`
	OriginalURL string    `json:"originalUrl"`
	ClickCount  int64     `json:"clickCount"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Active      bool      `json:"active"`
}

// SystemStats 是全局聚合统计。
type SystemStats struct {
	TotalLinks  int64 `json:"totalLinks"`
	TotalClicks int64 `json:"totalClicks"`
	ActiveLinks int64 `json:"activeLinks"`
}

// NewView 由领域对象构造对外视图；baseURL 用于拼出完整短链。
func NewView(l *Link, baseURL string, now time.Time) View {
	return View{
		ShortCode:   l.Code,
		ShortURL:    baseURL + "/" + l.Code,
		OriginalURL: l.TargetURL,
		ClickCount:  l.ClickCount,
		CreatedAt:   l.CreatedAt,
		ExpiresAt:   l.ExpiresAt,
		Active:      l.IsLive(now),
	}
}
