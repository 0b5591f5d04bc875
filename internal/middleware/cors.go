package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// corsAllowedHeaders は既存のランディングページ(Supabaseクライアント)が送るヘッダー。
var corsAllowedHeaders = []string{"authorization", "x-client-info", "apikey", "content-type"}

// NewCORSMiddleware はCORSミドルウェアを返す。
// allowedOrigins が空の場合はすべてのオリジンを許可する。
// 認証情報付きリクエストは扱わないため AllowCredentials は無効のままにする。
func NewCORSMiddleware(allowedOrigins []string) func(next http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: corsAllowedHeaders,
		MaxAge:         86400,
	})
}
