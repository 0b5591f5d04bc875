// Package countdown はローンチ日時までの残り時間を計算する。
package countdown

import (
	"context"
	"sync"
	"time"
)

// 1単位あたりのミリ秒
const (
	msPerSecond = int64(1000)
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
	msPerDay    = 24 * msPerHour
)

// DefaultTick はRunの再計算間隔が0以下の場合に使う間隔。
const DefaultTick = time.Second

// TimeLeft は残り時間を日・時・分・秒に分解したもの。
type TimeLeft struct {
	Days    int64 `json:"days"`
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
	Seconds int64 `json:"seconds"`
}

// State はある時点のカウントダウン状態。Liveの場合TimeLeftはゼロ値。
type State struct {
	TimeLeft
	Live bool      `json:"live"`
	At   time.Time `json:"-"`
}

// Remaining はtargetまでの残り時間を返す。
// 残りがミリ秒単位で負になった時点でlive=trueとなる。ちょうど0はまだliveではない。
// 各単位は切り捨ての整数除算で求める。
func Remaining(target, now time.Time) (TimeLeft, bool) {
	distance := target.Sub(now).Milliseconds()
	if distance < 0 {
		return TimeLeft{}, true
	}
	return TimeLeft{
		Days:    distance / msPerDay,
		Hours:   (distance % msPerDay) / msPerHour,
		Minutes: (distance % msPerHour) / msPerMinute,
		Seconds: (distance % msPerMinute) / msPerSecond,
	}, false
}

// Clock はローンチ状態を保持するカウントダウン。
// 一度liveを観測すると、以降に時刻が巻き戻ってもliveのまま維持する。
type Clock struct {
	target time.Time
	now    func() time.Time

	mu   sync.Mutex
	live bool
}

// NewClock はtargetをローンチ日時とするClockを生成する。
func NewClock(target time.Time) *Clock {
	return &Clock{target: target, now: time.Now}
}

// Target はローンチ日時を返す。
func (c *Clock) Target() time.Time {
	return c.target
}

// Now は現在時刻での状態を返す。
func (c *Clock) Now() State {
	return c.Tick(c.now())
}

// Tick はnow時点の状態を計算する。
func (c *Clock) Tick(now time.Time) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.live {
		return State{Live: true, At: now}
	}

	left, live := Remaining(c.target, now)
	if live {
		c.live = true
	}
	return State{TimeLeft: left, Live: live, At: now}
}

// IsLive はliveを観測済みかどうかを返す。
func (c *Clock) IsLive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

// Run はintervalごとに状態を再計算してfnに渡す。
// 開始直後に1回計算し、liveの状態を1回渡した時点かctxの終了で戻る。
// intervalが0以下の場合はDefaultTickを使う。
func (c *Clock) Run(ctx context.Context, interval time.Duration, fn func(State)) {
	if interval <= 0 {
		interval = DefaultTick
	}

	state := c.Now()
	fn(state)
	if state.Live {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			state := c.Now()
			fn(state)
			if state.Live {
				return
			}
		}
	}
}
