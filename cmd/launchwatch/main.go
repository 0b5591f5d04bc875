// Command launchwatch はローンチカウントダウンのバックエンド。
//
// サブコマンド:
//
//	serve        APIサーバー（既定）
//	worker       ローンチ前日通知の送信ワーカー
//	migrate      DBマイグレーションの適用
//	healthcheck  コンテナ用ヘルスチェック
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/launchwatch/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "launchwatch: %v\n", err)
		os.Exit(1)
	}
}
