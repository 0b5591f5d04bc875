package mailer

import (
	"errors"
	"net/http"
)

// ErrRejected はプロバイダが宛先またはメッセージ内容を理由に送信を拒否したことを表す。
// 同じ宛先に再送しても成功しないため、プロバイダ障害とは区別して扱う。
var ErrRejected = errors.New("message rejected by provider")

// isRejectedStatus は宛先起因の拒否を示すHTTPステータスかどうかを返す。
// 認証エラー（401/403）やレート制限（429）はプロバイダ側の問題として扱う。
func isRejectedStatus(status int) bool {
	return status == http.StatusBadRequest || status == http.StatusUnprocessableEntity
}
