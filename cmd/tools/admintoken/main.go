package main

import (
	"flag"
	"fmt"
	"os"

	"linkcut.local/internal/platform/auth"
	"linkcut.local/internal/platform/config"
)

// 离线签发管理接口用的 operator JWT。
// 用法：go run ./cmd/tools/admintoken -subject ops@example.com
func main() {
	subject := flag.String("subject", "", "operator identifier to embed in the token")
	flag.Parse()

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "usage: admintoken -subject <id>")
		os.Exit(2)
	}

	cfg := config.Load()
	ts, err := auth.NewHS256Service(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	token, err := ts.Sign(*subject, "operator")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
