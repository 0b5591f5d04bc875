package model

import "time"

// Location はIPアドレスから解決した位置情報。
// 解決できなかった項目はnilのまま保持する。
type Location struct {
	Country *string `json:"country"`
	City    *string `json:"city"`
}

// IsEmpty は国・都市のどちらも解決できていない場合にtrueを返す。
func (l Location) IsEmpty() bool {
	return l.Country == nil && l.City == nil
}

// Visitor はIPアドレス単位の訪問記録を表す。
// ip_addressにはユニーク制約があり、1IPにつき1レコードのみ存在する。
type Visitor struct {
	ID         string
	IPAddress  string
	Country    *string
	City       *string
	VisitCount int
	FirstVisit time.Time
	LastVisit  time.Time
	UserAgent  *string
}

// VisitorHit は1回の訪問で観測した値。
// nilの項目は既存レコードの値を上書きしない。
type VisitorHit struct {
	IPAddress string
	Country   *string
	City      *string
	UserAgent *string
	SeenAt    time.Time
}

// CountryVisits は国別の訪問数集計。
type CountryVisits struct {
	Country string `json:"country"`
	Visits  int64  `json:"visits"`
}

// VisitTotals は訪問数の全体集計。
type VisitTotals struct {
	TotalVisits    int64 `json:"total_visits"`
	UniqueVisitors int64 `json:"unique_visitors"`
}

// StringPtr は空文字列をnilとして扱う文字列ポインタを返す。
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
