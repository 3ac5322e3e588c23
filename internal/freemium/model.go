package freemium

import (
	"encoding/json"
	"fmt"
	"time"
)

// Tier 定义了订阅档位的枚举类型
type Tier string

const (
	// TierFree 表示免费档，受每日活动配额限制
	TierFree Tier = "free"
	// TierPremium 表示付费档，不限量
	TierPremium Tier = "premium"
)

// Status 定义了订阅状态的枚举类型
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusCancelled Status = "cancelled"
	StatusTrial     Status = "trial"
)

// 拒绝原因常量，随CanPerformActivity的结构化结果返回给前端
const (
	ReasonDailyLimitReached    = "daily_limit_reached"
	ReasonSubscriptionInactive = "subscription_inactive"
)

// Subscription 定义了每个用户唯一的一条当前订阅。
// 档位/状态的变更只由显式的升降级操作驱动，从不被推断。
type Subscription struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Tier      Tier       `json:"tier"`
	Status    Status     `json:"status"`
	StartDate time.Time  `json:"startDate"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	// TrialEndDate 只在试用订阅上出现，过期后订阅视同inactive
	TrialEndDate *time.Time `json:"trialEndDate,omitempty"`
	// 外部计费系统的引用，本服务只透传保存
	BillingCustomerID     string `json:"billingCustomerId,omitempty"`
	BillingSubscriptionID string `json:"billingSubscriptionId,omitempty"`
}

// DailyUsage 定义了每个(用户, UTC日历日)唯一的一条用量记录。
// ActivitiesCompleted 只增不减，每次成功完成恰好+1。
type DailyUsage struct {
	UserID string `json:"userId"`
	// Date 是UTC日历日，格式YYYY-MM-DD。用UTC是沿用既有产品行为，
	// 不要悄悄换成本地时区。
	Date                string    `json:"date"`
	ActivitiesCompleted int       `json:"activitiesCompleted"`
	SubjectsCovered     []string  `json:"subjectsCovered"`
	TotalTimeSpent      int       `json:"totalTimeSpent"` // 分钟
	LastActivityAt      time.Time `json:"lastActivityAt"`
}

// HasSubject 判断某个科目今天是否已经出现过。
func (u *DailyUsage) HasSubject(subject string) bool {
	for _, s := range u.SubjectsCovered {
		if s == subject {
			return true
		}
	}
	return false
}

// Completion 是一条不可变的活动完成记录，写入后只读。
type Completion struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	ActivityID  string          `json:"activityId"`
	CompletedAt time.Time       `json:"completedAt"`
	Score       *int            `json:"score,omitempty"` // 0-100
	TimeSpent   int             `json:"timeSpent"`       // 分钟
	Answers     json.RawMessage `json:"answers,omitempty"`
}

// Permission 是CanPerformActivity的结构化结果。
// 配额与订阅失效是决策结果而不是异常，调用方据此分支。
type Permission struct {
	CanPerform bool
	Reason     string
	// RemainingActivities 只对受配额限制的订阅有意义，unlimited时为nil
	RemainingActivities *int
	Subscription        Subscription
}

// Unlimited 表示当前订阅是否不受每日配额限制。
func (p Permission) Unlimited() bool {
	return p.CanPerform && p.RemainingActivities == nil
}

// CompletionEvent 是一次成功完成后发往成就引擎和分析管道的事件负载。
type CompletionEvent struct {
	UserID     string `json:"userId"`
	ActivityID string `json:"activityId"`
	Subject    string `json:"subject"`
	Score      *int   `json:"score,omitempty"`
	TimeSpent  int    `json:"timeSpent"`
}

// --- 存储键 ---

// SubscriptionKey 返回用户订阅文档的存储键。
func SubscriptionKey(userID string) string {
	return fmt.Sprintf("subscription:%s", userID)
}

// DailyUsageKey 返回(用户, 日期)用量文档的存储键。
func DailyUsageKey(userID, date string) string {
	return fmt.Sprintf("dailyUsage:%s:%s", userID, date)
}

// ProgressKey 返回一条完成记录的存储键。
func ProgressKey(userID, activityID string) string {
	return fmt.Sprintf("progress:%s:%s", userID, activityID)
}
