package freemium

import "errors"

// ErrQuotaExceeded 表示免费档的每日配额已用尽。
// 用户可以等待次日重置或升级订阅，不应自动重试。
var ErrQuotaExceeded = errors.New("freemium: daily activity limit reached")

// ErrSubscriptionInactive 表示订阅处于非活跃状态（inactive/cancelled/试用过期）。
var ErrSubscriptionInactive = errors.New("freemium: subscription inactive")
