package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/BrightBuddy/brightbuddy-backend/internal/achievement"
	"github.com/BrightBuddy/brightbuddy-backend/internal/analytics"
	"github.com/BrightBuddy/brightbuddy-backend/internal/freemium"
	"github.com/BrightBuddy/brightbuddy-backend/internal/notification"
	"github.com/BrightBuddy/brightbuddy-backend/internal/user"
	"github.com/BrightBuddy/brightbuddy-backend/pkg/ticket"
)

// ticketTTL 限定开始凭证的有效期，超时的完成请求直接拒绝
const ticketTTL = 2 * time.Hour

var (
	ErrActivityNotFound = errors.New("活动不存在")
	ErrPremiumContent   = errors.New("该活动需要高级订阅")
	ErrInvalidTicket    = errors.New("无效的活动凭证")
)

// HistoryRecorder 是完成历史的写入与连续天数查询接口。
// 生产实现是freemium.History（SQLite），测试用内存替身。
type HistoryRecorder interface {
	Record(event freemium.CompletionEvent, completedAt time.Time) error
	CurrentStreak(userID string, now time.Time) (int, error)
}

// DirtyMarker 把发生过写入的文档交给备份调度器。
type DirtyMarker interface {
	MarkSubscriptionDirty(ctx context.Context, userID string)
	MarkUsageDirty(ctx context.Context, userID, date string)
	MarkProfileDirty(ctx context.Context, userID string)
}

// Orchestrator 串联一次活动从开始到完成的全部副作用：
// 配额判定、用量记账、历史落盘、成就推进、通知与分析。
// 顺序是固定的：记账成功才投递成就事件，成就失败不回滚记账。
type Orchestrator struct {
	ledger   *freemium.Service
	engine   *achievement.Engine
	history  HistoryRecorder
	recorder analytics.Recorder
	notifier notification.Notifier
	marker   DirtyMarker

	// activate 默认指向user.ActivateUser，测试中替换
	activate func(userID string) error

	// Clock 可在测试中替换
	Clock func() time.Time
}

func NewOrchestrator(
	ledger *freemium.Service,
	engine *achievement.Engine,
	history HistoryRecorder,
	recorder analytics.Recorder,
	notifier notification.Notifier,
	marker DirtyMarker,
) *Orchestrator {
	return &Orchestrator{
		ledger:   ledger,
		engine:   engine,
		history:  history,
		recorder: recorder,
		notifier: notifier,
		marker:   marker,
		activate: user.ActivateUser,
		Clock:    time.Now,
	}
}

// StartResult 是一次开始请求的结果。
// Allowed为false时Ticket为空，Permission携带拒绝原因。
type StartResult struct {
	Allowed    bool
	Permission freemium.Permission
	Activity   Info
	Ticket     string
	IssuedAt   int64
}

// Start 判定用户能否开始某个活动。
// 允许时签发一张完成凭证，完成请求必须带着它回来。
// 开始本身不消耗配额，配额在完成时才记账。
func (o *Orchestrator) Start(ctx context.Context, userID, activityID string) (StartResult, error) {
	info, ok := GetActivityInfoByID(activityID)
	if !ok {
		return StartResult{}, ErrActivityNotFound
	}

	perm, err := o.ledger.CanPerformActivity(ctx, userID)
	if err != nil {
		return StartResult{}, fmt.Errorf("判定活动权限失败: %w", err)
	}
	if !perm.CanPerform {
		return StartResult{Allowed: false, Permission: perm, Activity: info}, nil
	}

	// 高级内容只对不受配额限制的订阅（premium或试用期内）开放
	if info.IsPremium && !perm.Unlimited() {
		return StartResult{}, ErrPremiumContent
	}

	issuedAt := o.Clock().Unix()
	signature, err := ticket.Sign(ticket.Payload{
		UserID:     userID,
		ActivityID: activityID,
		IssuedAt:   issuedAt,
	})
	if err != nil {
		return StartResult{}, fmt.Errorf("签发活动凭证失败: %w", err)
	}

	return StartResult{
		Allowed:    true,
		Permission: perm,
		Activity:   info,
		Ticket:     signature,
		IssuedAt:   issuedAt,
	}, nil
}

// CompleteInput 是一次完成请求的参数。
type CompleteInput struct {
	UserID     string
	ActivityID string
	Score      *int
	TimeSpent  int // 分钟
	Answers    json.RawMessage
	Ticket     string
	IssuedAt   int64
}

// CompleteResult 汇总一次完成的全部产出。
type CompleteResult struct {
	Completion    freemium.CompletionEvent `json:"completion"`
	Usage         freemium.DailyUsage      `json:"usage"`
	NewlyUnlocked []achievement.Definition `json:"newlyUnlocked"`
	Profile       achievement.Profile      `json:"profile"`
}

// Complete 处理一次活动完成。
// 记账（配额检查+用量自增+完成记录）是唯一会使整个请求失败的步骤；
// 之后的历史、成就、通知、分析各自独立，单个失败只打印日志。
func (o *Orchestrator) Complete(ctx context.Context, input CompleteInput) (CompleteResult, error) {
	info, ok := GetActivityInfoByID(input.ActivityID)
	if !ok {
		return CompleteResult{}, ErrActivityNotFound
	}

	now := o.Clock()
	if now.Unix()-input.IssuedAt > int64(ticketTTL.Seconds()) || input.IssuedAt > now.Unix()+60 {
		return CompleteResult{}, ErrInvalidTicket
	}
	if !ticket.Verify(ticket.Payload{
		UserID:     input.UserID,
		ActivityID: input.ActivityID,
		IssuedAt:   input.IssuedAt,
	}, input.Ticket) {
		return CompleteResult{}, ErrInvalidTicket
	}

	event, err := o.ledger.RecordActivityCompletion(ctx, input.UserID, input.ActivityID, info.Subject, input.Score, input.TimeSpent, input.Answers)
	if err != nil {
		return CompleteResult{}, err
	}
	o.marker.MarkUsageDirty(ctx, input.UserID, o.ledger.Today())

	// 首次完成把临时账户转正。失败不影响本次完成。
	if err := o.activate(input.UserID); err != nil {
		fmt.Printf("激活用户 %s 失败: %v\n", input.UserID, err)
	}

	if err := o.history.Record(event, now); err != nil {
		fmt.Printf("写入完成历史失败 (用户 %s): %v\n", input.UserID, err)
	}

	result := CompleteResult{Completion: event}

	usage, err := o.ledger.GetTodayUsage(ctx, input.UserID)
	if err != nil {
		fmt.Printf("读取今日用量失败 (用户 %s): %v\n", input.UserID, err)
	} else {
		result.Usage = usage
	}

	// 成就推进：先投递完成事件，再根据最新连续天数投递水位事件
	achieved, err := o.engine.ProcessEvent(ctx, input.UserID, achievement.ActivityCompleted{
		Subject: info.Subject,
		Score:   input.Score,
	})
	if err != nil {
		fmt.Printf("处理完成事件失败 (用户 %s): %v\n", input.UserID, err)
	} else {
		result.NewlyUnlocked = append(result.NewlyUnlocked, achieved.NewlyUnlocked...)
		result.Profile = achieved.Profile
	}

	streak, err := o.history.CurrentStreak(input.UserID, now)
	if err != nil {
		fmt.Printf("计算连续天数失败 (用户 %s): %v\n", input.UserID, err)
	} else if streak > 0 {
		streakResult, err := o.engine.ProcessEvent(ctx, input.UserID, achievement.StreakUpdated{Days: streak})
		if err != nil {
			fmt.Printf("处理连续天数事件失败 (用户 %s): %v\n", input.UserID, err)
		} else {
			result.NewlyUnlocked = append(result.NewlyUnlocked, streakResult.NewlyUnlocked...)
			result.Profile = streakResult.Profile
		}
	}
	o.marker.MarkProfileDirty(ctx, input.UserID)

	for _, def := range result.NewlyUnlocked {
		o.notifier.PushUnlock(ctx, input.UserID, notification.UnlockNotice{
			AchievementID: def.ID,
			Title:         def.Title,
			Description:   def.Description,
			Icon:          def.Icon,
			Points:        achievement.ExperienceFor(def.Category),
			UnlockedAt:    now,
		})
	}

	o.recorder.Track(ctx, input.UserID, "activity_completed", map[string]interface{}{
		"activityId": input.ActivityID,
		"subject":    info.Subject,
		"score":      input.Score,
		"timeSpent":  input.TimeSpent,
		"unlocked":   len(result.NewlyUnlocked),
	})

	return result, nil
}

// Upgrade 把用户升级为高级订阅，并投递升级类成就事件。
func (o *Orchestrator) Upgrade(ctx context.Context, userID, billingCustomerID, billingSubscriptionID string) ([]achievement.Definition, error) {
	changed, err := o.ledger.UpgradeToPremium(ctx, userID, billingCustomerID, billingSubscriptionID)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, nil
	}
	o.marker.MarkSubscriptionDirty(ctx, userID)

	now := o.Clock()
	result, err := o.engine.ProcessEvent(ctx, userID, achievement.PremiumUpgrade{})
	if err != nil {
		fmt.Printf("处理升级事件失败 (用户 %s): %v\n", userID, err)
		result = achievement.Result{}
	}
	o.marker.MarkProfileDirty(ctx, userID)

	for _, def := range result.NewlyUnlocked {
		o.notifier.PushUnlock(ctx, userID, notification.UnlockNotice{
			AchievementID: def.ID,
			Title:         def.Title,
			Description:   def.Description,
			Icon:          def.Icon,
			Points:        achievement.ExperienceFor(def.Category),
			UnlockedAt:    now,
		})
	}

	o.recorder.Track(ctx, userID, "premium_upgraded", map[string]interface{}{
		"billingCustomerId": billingCustomerID,
	})
	return result.NewlyUnlocked, nil
}

// Downgrade 把用户降级回免费订阅。
func (o *Orchestrator) Downgrade(ctx context.Context, userID string) error {
	changed, err := o.ledger.DowngradeToFree(ctx, userID)
	if err != nil {
		return err
	}
	if changed {
		o.marker.MarkSubscriptionDirty(ctx, userID)
		o.recorder.Track(ctx, userID, "premium_downgraded", nil)
	}
	return nil
}

// StartTrial 为用户开启限时试用。
func (o *Orchestrator) StartTrial(ctx context.Context, userID string) (bool, error) {
	changed, err := o.ledger.StartTrial(ctx, userID)
	if err != nil {
		return false, err
	}
	if changed {
		o.marker.MarkSubscriptionDirty(ctx, userID)
		o.recorder.Track(ctx, userID, "trial_started", nil)
	}
	return changed, nil
}
