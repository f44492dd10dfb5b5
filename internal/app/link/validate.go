package link

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// 校验失败的各类原因。每条规则一个独立错误，HTTP 层原样返回给调用方
// （这些都是用户输入问题，对应 400）。
//
// 设计原因：
// - 统一错误值，避免各处返回不同字符串导致难以判断/测试
// - 上层用 IsRejection 一次性映射成 400，不关心具体规则
var (
	ErrEmptyURL        = errors.New("url cannot be empty")
	ErrURLTooLong      = errors.New("url exceeds maximum length")
	ErrMalformedURL    = errors.New("invalid url format")
	ErrDangerousScheme = errors.New("url scheme not allowed")
	ErrBlockedHost     = errors.New("host is blocked")
	ErrPrivateAddress  = errors.New("private ip addresses are not allowed")
	ErrBadExpiration   = errors.New("expiration hours must be a positive integer")
)

var rejections = []error{
	ErrEmptyURL, ErrURLTooLong, ErrMalformedURL,
	ErrDangerousScheme, ErrBlockedHost, ErrPrivateAddress, ErrBadExpiration,
}

// IsRejection 判断 err 是否属于输入校验失败（而非内部错误）。
func IsRejection(err error) bool {
	for _, r := range rejections {
		if errors.Is(err, r) {
			return true
		}
	}
	return false
}

// 即便解析阶段已限制 http/https，这里仍单独拦一遍危险 scheme，
// 防止不同解析器对畸形输入的分歧。
var dangerousSchemes = map[string]struct{}{
	"javascript": {},
	"data":       {},
	"file":       {},
	"vbscript":   {},
}

var (
	htmlTagRe = regexp.MustCompile(`<[^>]*>`)
	// 只匹配字面量形式的私有 IPv4 主机名（10.* / 172.16-31.* / 192.168.*）。
	// 刻意不做数值 CIDR 判断：十进制/八进制编码、IPv6、DNS rebinding 都不在
	// 这层防御的范围内，是已知的窄启发式。
	privateIPRe = regexp.MustCompile(`^(10\.|172\.(1[6-9]|2[0-9]|3[01])\.|192\.168\.)`)
)

// Validator 负责把不可信的输入字符串净化成安全的绝对 URL，或者拒绝它。
// 纯函数，无副作用；规则按固定顺序执行，每条规则对应一个独立的拒绝原因。
type Validator struct {
	maxLen  int
	blocked []string // host 子串黑名单，刻意用子串匹配（宽松）而非精确匹配
}

// NewValidator 构造校验器。maxLen<=0 时取默认 2048；blocked 为空时取默认
// 黑名单 {localhost, 127.0.0.1, 0.0.0.0}。
func NewValidator(maxLen int, blocked []string) *Validator {
	if maxLen <= 0 {
		maxLen = 2048
	}
	if len(blocked) == 0 {
		blocked = []string{"localhost", "127.0.0.1", "0.0.0.0"}
	}
	lowered := make([]string, 0, len(blocked))
	for _, b := range blocked {
		b = strings.ToLower(strings.TrimSpace(b))
		if b != "" {
			lowered = append(lowered, b)
		}
	}
	return &Validator{maxLen: maxLen, blocked: lowered}
}

// Sanitize 去掉首尾空白并剥离所有 HTML 标签子串（<...>）。
// 这一步是净化而不是拒绝，永远成功。
func (v *Validator) Sanitize(raw string) string {
	return htmlTagRe.ReplaceAllString(strings.TrimSpace(raw), "")
}

// Validate 按序执行各条规则，返回第一条命中的拒绝原因。
// 入参应当是 Sanitize 之后的字符串；返回 nil 表示可以安全入库。
func (v *Validator) Validate(sanitized string) error {
	if sanitized == "" {
		return ErrEmptyURL
	}
	if len(sanitized) > v.maxLen {
		return ErrURLTooLong
	}

	u, err := url.Parse(sanitized)
	if err != nil {
		return ErrMalformedURL
	}

	scheme := strings.ToLower(u.Scheme)
	if _, bad := dangerousSchemes[scheme]; bad {
		return ErrDangerousScheme
	}
	if scheme != "http" && scheme != "https" {
		return ErrMalformedURL
	}

	host := strings.ToLower(u.Hostname())
	if strings.TrimSpace(host) == "" {
		return ErrMalformedURL
	}
	for _, b := range v.blocked {
		if strings.Contains(host, b) {
			return ErrBlockedHost
		}
	}
	if privateIPRe.MatchString(host) {
		return ErrPrivateAddress
	}
	return nil
}
