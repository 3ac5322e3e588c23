package freemium

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BrightBuddy/brightbuddy-backend/internal/platform/config"
	"github.com/BrightBuddy/brightbuddy-backend/internal/platform/storage"
)

func testLimits() config.FreemiumConfig {
	return config.FreemiumConfig{
		FreeDailyLimit:    3,
		TrialDailyLimit:   5,
		TrialDurationDays: 7,
	}
}

func newTestService(store storage.Store) *Service {
	svc := NewService(store, testLimits())
	svc.Clock = func() time.Time {
		return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func intPtr(v int) *int { return &v }

func TestGetSubscriptionLazySeeding(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	sub, err := svc.GetSubscription(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetSubscription: %v", err)
	}
	if sub.Tier != TierFree || sub.Status != StatusActive {
		t.Fatalf("期望默认免费/活跃订阅，得到 %s/%s", sub.Tier, sub.Status)
	}

	again, err := svc.GetSubscription(ctx, "user-1")
	if err != nil {
		t.Fatalf("第二次GetSubscription: %v", err)
	}
	if again.ID != sub.ID {
		t.Fatalf("惰性创建应当幂等，两次ID不同: %s vs %s", sub.ID, again.ID)
	}
}

func TestFreeDailyLimit(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	scores := []int{80, 90, 70}
	for i, score := range scores {
		event, err := svc.RecordActivityCompletion(ctx, "user-1", "math-counting-1", "Math", intPtr(score), 10, nil)
		if err != nil {
			t.Fatalf("第%d次完成应当成功: %v", i+1, err)
		}
		if event.UserID != "user-1" || *event.Score != score {
			t.Fatalf("完成事件内容不对: %+v", event)
		}
	}

	perm, err := svc.CanPerformActivity(ctx, "user-1")
	if err != nil {
		t.Fatalf("CanPerformActivity: %v", err)
	}
	if perm.CanPerform {
		t.Fatal("免费配额用尽后仍然允许开始活动")
	}
	if perm.Reason != ReasonDailyLimitReached {
		t.Fatalf("拒绝原因应为 %s，得到 %s", ReasonDailyLimitReached, perm.Reason)
	}
	if perm.RemainingActivities == nil || *perm.RemainingActivities != 0 {
		t.Fatalf("剩余次数应为0: %+v", perm.RemainingActivities)
	}

	_, err = svc.RecordActivityCompletion(ctx, "user-1", "math-addition-1", "Math", intPtr(100), 10, nil)
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("第4次完成应返回ErrQuotaExceeded，得到: %v", err)
	}

	usage, err := svc.GetTodayUsage(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetTodayUsage: %v", err)
	}
	if usage.ActivitiesCompleted != 3 {
		t.Fatalf("被拒绝的完成不应计数，期望3，得到 %d", usage.ActivitiesCompleted)
	}
}

func TestUsageAccumulation(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.RecordActivityCompletion(ctx, "user-1", "math-counting-1", "Math", nil, 10, nil); err != nil {
		t.Fatalf("第一次完成: %v", err)
	}
	if _, err := svc.RecordActivityCompletion(ctx, "user-1", "science-animals-1", "Science", nil, 12, nil); err != nil {
		t.Fatalf("第二次完成: %v", err)
	}
	if _, err := svc.RecordActivityCompletion(ctx, "user-1", "math-addition-1", "Math", nil, 15, nil); err != nil {
		t.Fatalf("第三次完成: %v", err)
	}

	usage, err := svc.GetTodayUsage(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetTodayUsage: %v", err)
	}
	if usage.ActivitiesCompleted != 3 {
		t.Fatalf("ActivitiesCompleted期望3，得到 %d", usage.ActivitiesCompleted)
	}
	if usage.TotalTimeSpent != 37 {
		t.Fatalf("TotalTimeSpent期望37，得到 %d", usage.TotalTimeSpent)
	}
	// 同一科目只记一次
	if len(usage.SubjectsCovered) != 2 {
		t.Fatalf("SubjectsCovered期望[Math Science]，得到 %v", usage.SubjectsCovered)
	}
	if usage.Date != "2026-03-10" {
		t.Fatalf("用量日期应为UTC日历日2026-03-10，得到 %s", usage.Date)
	}
}

func TestMidDayUpgradeKeepsUsage(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.RecordActivityCompletion(ctx, "user-1", "math-counting-1", "Math", nil, 10, nil); err != nil {
			t.Fatalf("免费配额内的完成失败: %v", err)
		}
	}
	if _, err := svc.RecordActivityCompletion(ctx, "user-1", "math-counting-1", "Math", nil, 10, nil); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("配额用尽后应被拒绝: %v", err)
	}

	changed, err := svc.UpgradeToPremium(ctx, "user-1", "cus_123", "sub_456")
	if err != nil {
		t.Fatalf("UpgradeToPremium: %v", err)
	}
	if !changed {
		t.Fatal("首次升级应报告发生了变化")
	}

	// 升级立刻生效，且不重置当日计数
	perm, err := svc.CanPerformActivity(ctx, "user-1")
	if err != nil {
		t.Fatalf("升级后CanPerformActivity: %v", err)
	}
	if !perm.CanPerform || !perm.Unlimited() {
		t.Fatalf("升级后应不限量: %+v", perm)
	}

	if _, err := svc.RecordActivityCompletion(ctx, "user-1", "science-space-1", "Science", nil, 25, nil); err != nil {
		t.Fatalf("升级后的完成应当成功: %v", err)
	}
	usage, _ := svc.GetTodayUsage(ctx, "user-1")
	if usage.ActivitiesCompleted != 4 {
		t.Fatalf("升级不应重置当日计数，期望4，得到 %d", usage.ActivitiesCompleted)
	}
}

func TestUpgradeIsIdempotent(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	changed, err := svc.UpgradeToPremium(ctx, "user-1", "cus_123", "sub_456")
	if err != nil || !changed {
		t.Fatalf("首次升级: changed=%v err=%v", changed, err)
	}
	changed, err = svc.UpgradeToPremium(ctx, "user-1", "cus_123", "sub_456")
	if err != nil {
		t.Fatalf("重复升级: %v", err)
	}
	if changed {
		t.Fatal("重复升级应是无操作")
	}
}

func TestDowngradePreservesHistory(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.UpgradeToPremium(ctx, "user-1", "cus_123", "sub_456"); err != nil {
		t.Fatalf("升级: %v", err)
	}
	changed, err := svc.DowngradeToFree(ctx, "user-1")
	if err != nil || !changed {
		t.Fatalf("降级: changed=%v err=%v", changed, err)
	}

	sub, err := svc.GetSubscription(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetSubscription: %v", err)
	}
	if sub.Tier != TierFree || sub.Status != StatusActive {
		t.Fatalf("降级后应为免费/活跃: %s/%s", sub.Tier, sub.Status)
	}
	if sub.EndDate == nil {
		t.Fatal("降级应写入EndDate保留订阅历史")
	}
	if sub.BillingCustomerID != "cus_123" {
		t.Fatal("降级不应抹掉计费侧的客户标识")
	}

	changed, err = svc.DowngradeToFree(ctx, "user-1")
	if err != nil {
		t.Fatalf("重复降级: %v", err)
	}
	if changed {
		t.Fatal("重复降级应是无操作")
	}
}

func TestInactiveSubscriptionRejected(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	sub, err := svc.GetSubscription(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetSubscription: %v", err)
	}
	sub.Tier = TierPremium
	sub.Status = StatusCancelled
	if err := store.Set(ctx, SubscriptionKey("user-1"), sub); err != nil {
		t.Fatalf("写入订阅: %v", err)
	}

	perm, err := svc.CanPerformActivity(ctx, "user-1")
	if err != nil {
		t.Fatalf("CanPerformActivity: %v", err)
	}
	if perm.CanPerform || perm.Reason != ReasonSubscriptionInactive {
		t.Fatalf("已取消的付费订阅应被拒绝: %+v", perm)
	}

	_, err = svc.RecordActivityCompletion(ctx, "user-1", "math-counting-1", "Math", nil, 10, nil)
	if !errors.Is(err, ErrSubscriptionInactive) {
		t.Fatalf("期望ErrSubscriptionInactive，得到: %v", err)
	}
}

func TestTrialQuotaAndExpiry(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	changed, err := svc.StartTrial(ctx, "user-1")
	if err != nil || !changed {
		t.Fatalf("StartTrial: changed=%v err=%v", changed, err)
	}

	// 试用配额是5而不是免费档的3
	for i := 0; i < 5; i++ {
		if _, err := svc.RecordActivityCompletion(ctx, "user-1", "math-counting-1", "Math", nil, 10, nil); err != nil {
			t.Fatalf("试用期第%d次完成失败: %v", i+1, err)
		}
	}
	if _, err := svc.RecordActivityCompletion(ctx, "user-1", "math-counting-1", "Math", nil, 10, nil); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("试用配额用尽后应被拒绝: %v", err)
	}

	// 试用过期后按未激活处理
	svc.Clock = func() time.Time {
		return time.Date(2026, 3, 18, 12, 0, 0, 0, time.UTC)
	}
	perm, err := svc.CanPerformActivity(ctx, "user-1")
	if err != nil {
		t.Fatalf("过期后CanPerformActivity: %v", err)
	}
	if perm.CanPerform || perm.Reason != ReasonSubscriptionInactive {
		t.Fatalf("过期试用应被拒绝: %+v", perm)
	}
}

func TestDayBoundaryResetsQuota(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.RecordActivityCompletion(ctx, "user-1", "math-counting-1", "Math", nil, 10, nil); err != nil {
			t.Fatalf("完成失败: %v", err)
		}
	}

	// 跨过UTC午夜，配额重新开始计
	svc.Clock = func() time.Time {
		return time.Date(2026, 3, 11, 0, 30, 0, 0, time.UTC)
	}
	perm, err := svc.CanPerformActivity(ctx, "user-1")
	if err != nil {
		t.Fatalf("次日CanPerformActivity: %v", err)
	}
	if !perm.CanPerform {
		t.Fatalf("次日应重新获得配额: %+v", perm)
	}
	if perm.RemainingActivities == nil || *perm.RemainingActivities != 3 {
		t.Fatalf("次日剩余次数应为3: %+v", perm.RemainingActivities)
	}
}

func TestCompletionWriteFailureRevertsUsage(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.RecordActivityCompletion(ctx, "user-1", "math-counting-1", "Math", nil, 10, nil); err != nil {
		t.Fatalf("第一次完成: %v", err)
	}

	// 让完成记录的写入失败，计数增量应被补偿回退
	store.FailSetPrefix = "progress:"
	_, err := svc.RecordActivityCompletion(ctx, "user-1", "math-addition-1", "Math", nil, 15, nil)
	if err == nil {
		t.Fatal("完成记录写入失败时整个操作应报错")
	}
	store.FailSetPrefix = ""

	usage, err := svc.GetTodayUsage(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetTodayUsage: %v", err)
	}
	if usage.ActivitiesCompleted != 1 {
		t.Fatalf("失败的完成不应计数，期望1，得到 %d", usage.ActivitiesCompleted)
	}
	if usage.TotalTimeSpent != 10 {
		t.Fatalf("失败的完成不应累计时长，期望10，得到 %d", usage.TotalTimeSpent)
	}
}
