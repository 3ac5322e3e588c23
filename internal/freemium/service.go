package freemium

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BrightBuddy/brightbuddy-backend/internal/platform/config"
	"github.com/BrightBuddy/brightbuddy-backend/internal/platform/storage"
	"github.com/google/uuid"
)

// Service 是用量账本（UsageLedger）。
// 它本身无状态，每次调用都从存储重新读出订阅与当日用量再做决策，
// 因此同一个用户在多个设备上看到的是同一份配额。
type Service struct {
	store  storage.Store
	limits config.FreemiumConfig

	// Clock 可在测试中替换，用于控制“今天”的边界
	Clock func() time.Time
}

// NewService 创建一个用量账本。
func NewService(store storage.Store, limits config.FreemiumConfig) *Service {
	return &Service{
		store:  store,
		limits: limits,
		Clock:  time.Now,
	}
}

// Today 返回当前的UTC日历日，格式YYYY-MM-DD。
// 配额按UTC日重置是既有产品行为，见model.go中的说明。
func (s *Service) Today() string {
	return s.Clock().UTC().Format("2006-01-02")
}

// GetSubscription 读取用户的当前订阅，不存在时惰性创建免费档默认订阅。
func (s *Service) GetSubscription(ctx context.Context, userID string) (Subscription, error) {
	var sub Subscription
	err := s.store.Get(ctx, SubscriptionKey(userID), &sub)
	if err == nil {
		return sub, nil
	}
	if err != storage.ErrNotFound {
		return Subscription{}, err
	}

	// 首次访问：默认免费档、活跃状态
	sub = Subscription{
		ID:        uuid.NewString(),
		UserID:    userID,
		Tier:      TierFree,
		Status:    StatusActive,
		StartDate: s.Clock().UTC(),
	}
	if err := s.store.Set(ctx, SubscriptionKey(userID), sub); err != nil {
		return Subscription{}, err
	}
	return sub, nil
}

// GetTodayUsage 读取用户今天的用量记录，不存在时惰性创建空记录。
func (s *Service) GetTodayUsage(ctx context.Context, userID string) (DailyUsage, error) {
	today := s.Today()

	var usage DailyUsage
	err := s.store.Get(ctx, DailyUsageKey(userID, today), &usage)
	if err == nil {
		return usage, nil
	}
	if err != storage.ErrNotFound {
		return DailyUsage{}, err
	}

	usage = DailyUsage{
		UserID:          userID,
		Date:            today,
		SubjectsCovered: []string{},
		LastActivityAt:  s.Clock().UTC(),
	}
	if err := s.store.Set(ctx, DailyUsageKey(userID, today), usage); err != nil {
		return DailyUsage{}, err
	}
	return usage, nil
}

// dailyLimit 返回一个订阅适用的每日配额；无限量时返回(0, false)。
func (s *Service) dailyLimit(sub Subscription) (int, bool) {
	if sub.Tier == TierPremium && sub.Status == StatusActive {
		return 0, false
	}
	if sub.Status == StatusTrial && sub.TrialEndDate != nil && s.Clock().UTC().Before(*sub.TrialEndDate) {
		return s.limits.TrialDailyLimit, true
	}
	return s.limits.FreeDailyLimit, true
}

// CanPerformActivity 判断用户现在是否还能开始一个活动。
// 这是对当前状态的纯决策，不做任何写入，可以安全地反复调用。
func (s *Service) CanPerformActivity(ctx context.Context, userID string) (Permission, error) {
	sub, err := s.GetSubscription(ctx, userID)
	if err != nil {
		return Permission{}, err
	}
	usage, err := s.GetTodayUsage(ctx, userID)
	if err != nil {
		return Permission{}, err
	}

	// 付费且活跃：不限量，不报告剩余次数
	if sub.Tier == TierPremium && sub.Status == StatusActive {
		return Permission{CanPerform: true, Subscription: sub}, nil
	}

	// 试用期内：按试用配额计
	if sub.Status == StatusTrial {
		if sub.TrialEndDate != nil && s.Clock().UTC().Before(*sub.TrialEndDate) {
			return s.quotaPermission(sub, usage, s.limits.TrialDailyLimit), nil
		}
		// 试用已过期
		return Permission{CanPerform: false, Reason: ReasonSubscriptionInactive, Subscription: sub}, nil
	}

	// 免费档：按免费配额计
	if sub.Tier == TierFree {
		return s.quotaPermission(sub, usage, s.limits.FreeDailyLimit), nil
	}

	// 其余状态（inactive/cancelled的付费订阅等）一律拒绝
	return Permission{CanPerform: false, Reason: ReasonSubscriptionInactive, Subscription: sub}, nil
}

// quotaPermission 根据配额和已完成数构造决策结果。
func (s *Service) quotaPermission(sub Subscription, usage DailyUsage, limit int) Permission {
	remaining := limit - usage.ActivitiesCompleted
	if remaining < 0 {
		remaining = 0
	}
	if remaining > 0 {
		return Permission{CanPerform: true, RemainingActivities: &remaining, Subscription: sub}
	}
	return Permission{
		CanPerform:          false,
		Reason:              ReasonDailyLimitReached,
		RemainingActivities: &remaining,
		Subscription:        sub,
	}
}

// RecordActivityCompletion 记录一次成功的活动完成。
//
// 先在(用户, 今天)的用量文档上做一次乐观的读-改-写：限额在写入闭包内
// 再次校验，因此并发的完成请求不可能把计数推过配额；随后追加不可变的
// 完成记录。完成记录写入失败时会补偿回退本次计数，保证对调用方表现为
// 原子操作。
//
// 返回发往成就引擎与分析管道的完成事件；返回error时事件不可用。
func (s *Service) RecordActivityCompletion(ctx context.Context, userID, activityID, subject string, score *int, timeSpent int, answers json.RawMessage) (CompletionEvent, error) {
	// 预检：决策失败时直接返回类型化错误，不产生任何写入
	perm, err := s.CanPerformActivity(ctx, userID)
	if err != nil {
		return CompletionEvent{}, err
	}
	if !perm.CanPerform {
		switch perm.Reason {
		case ReasonDailyLimitReached:
			return CompletionEvent{}, ErrQuotaExceeded
		default:
			return CompletionEvent{}, ErrSubscriptionInactive
		}
	}

	now := s.Clock().UTC()
	today := s.Today()
	limit, limited := s.dailyLimit(perm.Subscription)

	// 1. 原子地把计数+1。闭包内重新校验限额，抵御并发请求间的竞态。
	usageKey := DailyUsageKey(userID, today)
	err = s.store.Update(ctx, usageKey, func(raw []byte) (interface{}, error) {
		usage := DailyUsage{
			UserID:          userID,
			Date:            today,
			SubjectsCovered: []string{},
		}
		if raw != nil {
			if err := json.Unmarshal(raw, &usage); err != nil {
				return nil, fmt.Errorf("无法解析当日用量文档: %w", err)
			}
		}

		if limited && usage.ActivitiesCompleted >= limit {
			return nil, ErrQuotaExceeded
		}

		usage.ActivitiesCompleted++
		if subject != "" && !usage.HasSubject(subject) {
			usage.SubjectsCovered = append(usage.SubjectsCovered, subject)
		}
		usage.TotalTimeSpent += timeSpent
		usage.LastActivityAt = now
		return usage, nil
	})
	if err != nil {
		return CompletionEvent{}, err
	}

	// 2. 追加不可变的完成记录
	completion := Completion{
		ID:          uuid.NewString(),
		UserID:      userID,
		ActivityID:  activityID,
		CompletedAt: now,
		Score:       score,
		TimeSpent:   timeSpent,
		Answers:     answers,
	}
	if err := s.store.Set(ctx, ProgressKey(userID, activityID), completion); err != nil {
		// 完成记录落不了盘，本次完成不作数：补偿回退计数
		s.revertUsageIncrement(ctx, usageKey, subject, timeSpent)
		return CompletionEvent{}, fmt.Errorf("无法写入完成记录: %w", err)
	}

	return CompletionEvent{
		UserID:     userID,
		ActivityID: activityID,
		Subject:    subject,
		Score:      score,
		TimeSpent:  timeSpent,
	}, nil
}

// revertUsageIncrement 是完成记录写入失败时的补偿操作。
// 主流程已经失败，这里只尽力而为，失败时打印警告。
func (s *Service) revertUsageIncrement(ctx context.Context, usageKey, subject string, timeSpent int) {
	err := s.store.Update(ctx, usageKey, func(raw []byte) (interface{}, error) {
		var usage DailyUsage
		if raw == nil {
			return nil, fmt.Errorf("补偿时用量文档已不存在")
		}
		if err := json.Unmarshal(raw, &usage); err != nil {
			return nil, err
		}
		if usage.ActivitiesCompleted > 0 {
			usage.ActivitiesCompleted--
		}
		usage.TotalTimeSpent -= timeSpent
		if usage.TotalTimeSpent < 0 {
			usage.TotalTimeSpent = 0
		}
		// SubjectsCovered 不回退：无法区分本次与更早的同科目完成
		return usage, nil
	})
	if err != nil {
		fmt.Printf("严重警告: 用量计数补偿操作失败! key: %s, 错误: %v\n", usageKey, err)
	}
}

// GetCompletion 读取一条完成记录，不存在时返回storage.ErrNotFound。
func (s *Service) GetCompletion(ctx context.Context, userID, activityID string) (Completion, error) {
	var c Completion
	if err := s.store.Get(ctx, ProgressKey(userID, activityID), &c); err != nil {
		return Completion{}, err
	}
	return c, nil
}

// UpgradeToPremium 将用户升级为付费档。幂等：重复升级是无操作的成功。
// 返回值指示这次调用是否真的发生了升级，调用方用它保证
// premium_upgrade事件至多发出一次。
func (s *Service) UpgradeToPremium(ctx context.Context, userID, billingCustomerID, billingSubscriptionID string) (bool, error) {
	sub, err := s.GetSubscription(ctx, userID)
	if err != nil {
		return false, err
	}

	if sub.Tier == TierPremium && sub.Status == StatusActive {
		return false, nil
	}

	sub.Tier = TierPremium
	sub.Status = StatusActive
	sub.EndDate = nil
	sub.TrialEndDate = nil
	if billingCustomerID != "" {
		sub.BillingCustomerID = billingCustomerID
	}
	if billingSubscriptionID != "" {
		sub.BillingSubscriptionID = billingSubscriptionID
	}

	if err := s.store.Set(ctx, SubscriptionKey(userID), sub); err != nil {
		return false, err
	}
	return true, nil
}

// DowngradeToFree 将用户降级为免费档。幂等。
// 订阅历史通过EndDate保留，当日已记录的用量不受影响。
func (s *Service) DowngradeToFree(ctx context.Context, userID string) (bool, error) {
	sub, err := s.GetSubscription(ctx, userID)
	if err != nil {
		return false, err
	}

	if sub.Tier == TierFree && sub.Status == StatusActive {
		return false, nil
	}

	now := s.Clock().UTC()
	sub.Tier = TierFree
	sub.Status = StatusActive
	sub.EndDate = &now
	sub.TrialEndDate = nil

	if err := s.store.Set(ctx, SubscriptionKey(userID), sub); err != nil {
		return false, err
	}
	return true, nil
}

// StartTrial 为用户开启一段试用期。幂等：已在试用或已付费时为无操作。
func (s *Service) StartTrial(ctx context.Context, userID string) (bool, error) {
	sub, err := s.GetSubscription(ctx, userID)
	if err != nil {
		return false, err
	}

	if sub.Tier == TierPremium || sub.Status == StatusTrial {
		return false, nil
	}

	end := s.Clock().UTC().AddDate(0, 0, s.limits.TrialDurationDays)
	sub.Status = StatusTrial
	sub.TrialEndDate = &end

	if err := s.store.Set(ctx, SubscriptionKey(userID), sub); err != nil {
		return false, err
	}
	return true, nil
}
