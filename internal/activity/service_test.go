package activity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BrightBuddy/brightbuddy-backend/internal/achievement"
	"github.com/BrightBuddy/brightbuddy-backend/internal/freemium"
	"github.com/BrightBuddy/brightbuddy-backend/internal/notification"
	"github.com/BrightBuddy/brightbuddy-backend/internal/platform/config"
	"github.com/BrightBuddy/brightbuddy-backend/internal/platform/storage"
	"github.com/BrightBuddy/brightbuddy-backend/pkg/ticket"
)

// --- 测试替身 ---

type fakeHistory struct {
	records []freemium.CompletionEvent
	streak  int
	failing bool
}

func (f *fakeHistory) Record(event freemium.CompletionEvent, completedAt time.Time) error {
	if f.failing {
		return errors.New("history unavailable")
	}
	f.records = append(f.records, event)
	return nil
}

func (f *fakeHistory) CurrentStreak(userID string, now time.Time) (int, error) {
	if f.failing {
		return 0, errors.New("history unavailable")
	}
	return f.streak, nil
}

type fakeRecorder struct {
	events []string
}

func (f *fakeRecorder) Track(ctx context.Context, userID, eventType string, eventData map[string]interface{}) {
	f.events = append(f.events, eventType)
}

type fakeNotifier struct {
	notices []notification.UnlockNotice
}

func (f *fakeNotifier) PushUnlock(ctx context.Context, userID string, notice notification.UnlockNotice) {
	f.notices = append(f.notices, notice)
}

type fakeMarker struct {
	subscriptions int
	usages        int
	profiles      int
}

func (f *fakeMarker) MarkSubscriptionDirty(ctx context.Context, userID string) { f.subscriptions++ }

func (f *fakeMarker) MarkUsageDirty(ctx context.Context, userID, date string) { f.usages++ }

func (f *fakeMarker) MarkProfileDirty(ctx context.Context, userID string) { f.profiles++ }

type orchestratorFixture struct {
	orchestrator *Orchestrator
	ledger       *freemium.Service
	engine       *achievement.Engine
	history      *fakeHistory
	recorder     *fakeRecorder
	notifier     *fakeNotifier
	marker       *fakeMarker
}

func seedTestRepository() {
	globalRepository = &repository{
		idToInfo: map[string]Info{
			"math-counting-1": {Title: "数数小能手", Subject: "Math", Difficulty: "easy", Type: "lesson", EstimatedTime: 10},
			"science-space-1": {Title: "太空探险", Subject: "Science", Difficulty: "hard", Type: "game", IsPremium: true, EstimatedTime: 25},
		},
		orderedID: []string{"math-counting-1", "science-space-1"},
	}
}

func newFixture(t *testing.T) *orchestratorFixture {
	t.Helper()
	ticket.GenerateSecretKey()
	seedTestRepository()

	store := storage.NewMemoryStore()
	clock := func() time.Time {
		return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	}

	ledger := freemium.NewService(store, config.FreemiumConfig{
		FreeDailyLimit:    3,
		TrialDailyLimit:   5,
		TrialDurationDays: 7,
	})
	ledger.Clock = clock
	engine := achievement.NewEngine(store)
	engine.Clock = clock

	f := &orchestratorFixture{
		ledger:   ledger,
		engine:   engine,
		history:  &fakeHistory{streak: 1},
		recorder: &fakeRecorder{},
		notifier: &fakeNotifier{},
		marker:   &fakeMarker{},
	}
	f.orchestrator = NewOrchestrator(ledger, engine, f.history, f.recorder, f.notifier, f.marker)
	f.orchestrator.Clock = clock
	f.orchestrator.activate = func(string) error { return nil }
	return f
}

func startAndComplete(t *testing.T, f *orchestratorFixture, userID, activityID string, score *int) (CompleteResult, error) {
	t.Helper()
	start, err := f.orchestrator.Start(context.Background(), userID, activityID)
	if err != nil {
		t.Fatalf("Start(%s): %v", activityID, err)
	}
	if !start.Allowed {
		t.Fatalf("Start(%s)被拒绝: %+v", activityID, start.Permission)
	}
	return f.orchestrator.Complete(context.Background(), CompleteInput{
		UserID:     userID,
		ActivityID: activityID,
		Score:      score,
		TimeSpent:  10,
		Ticket:     start.Ticket,
		IssuedAt:   start.IssuedAt,
	})
}

func scorePtr(v int) *int { return &v }

// --- 测试 ---

func TestCompleteRunsFullPipeline(t *testing.T) {
	f := newFixture(t)

	result, err := startAndComplete(t, f, "user-1", "math-counting-1", scorePtr(80))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if result.Usage.ActivitiesCompleted != 1 {
		t.Fatalf("用量应计1次，得到 %d", result.Usage.ActivitiesCompleted)
	}
	if len(f.history.records) != 1 {
		t.Fatalf("历史应写入1条，得到 %d", len(f.history.records))
	}
	if len(result.NewlyUnlocked) == 0 {
		t.Fatal("首次完成应有新解锁的成就")
	}
	// 每个新解锁都进入通知队列，携带按分类发放的经验值
	if len(f.notifier.notices) != len(result.NewlyUnlocked) {
		t.Fatalf("通知数%d应等于解锁数%d", len(f.notifier.notices), len(result.NewlyUnlocked))
	}
	for i, notice := range f.notifier.notices {
		def := result.NewlyUnlocked[i]
		if notice.AchievementID != def.ID {
			t.Fatalf("通知 %d 的成就ID = %s, 期望 %s", i, notice.AchievementID, def.ID)
		}
		if notice.Points != achievement.ExperienceFor(def.Category) {
			t.Fatalf("成就 %s 的通知经验 = %d, 期望 %d",
				def.ID, notice.Points, achievement.ExperienceFor(def.Category))
		}
	}
	if len(f.recorder.events) != 1 || f.recorder.events[0] != "activity_completed" {
		t.Fatalf("分析事件不对: %v", f.recorder.events)
	}
	if f.marker.usages != 1 || f.marker.profiles != 1 {
		t.Fatalf("应标记用量和档案为脏: usages=%d profiles=%d", f.marker.usages, f.marker.profiles)
	}
}

func TestCompleteRejectsForgedTicket(t *testing.T) {
	f := newFixture(t)

	start, err := f.orchestrator.Start(context.Background(), "user-1", "math-counting-1")
	if err != nil || !start.Allowed {
		t.Fatalf("Start: %v", err)
	}

	// 用user-1的票据冒充user-2提交
	_, err = f.orchestrator.Complete(context.Background(), CompleteInput{
		UserID:     "user-2",
		ActivityID: "math-counting-1",
		TimeSpent:  10,
		Ticket:     start.Ticket,
		IssuedAt:   start.IssuedAt,
	})
	if !errors.Is(err, ErrInvalidTicket) {
		t.Fatalf("冒用票据应返回ErrInvalidTicket: %v", err)
	}

	// 被拒绝的完成不应产生任何副作用
	usage, _ := f.ledger.GetTodayUsage(context.Background(), "user-2")
	if usage.ActivitiesCompleted != 0 {
		t.Fatalf("被拒绝的完成不应计数: %d", usage.ActivitiesCompleted)
	}
	if len(f.history.records) != 0 || len(f.recorder.events) != 0 {
		t.Fatal("被拒绝的完成不应写历史或分析")
	}
}

func TestCompleteRejectsExpiredTicket(t *testing.T) {
	f := newFixture(t)

	start, err := f.orchestrator.Start(context.Background(), "user-1", "math-counting-1")
	if err != nil || !start.Allowed {
		t.Fatalf("Start: %v", err)
	}

	// 票据签发3小时后才提交
	f.orchestrator.Clock = func() time.Time {
		return time.Date(2026, 3, 10, 15, 0, 1, 0, time.UTC)
	}
	_, err = f.orchestrator.Complete(context.Background(), CompleteInput{
		UserID:     "user-1",
		ActivityID: "math-counting-1",
		TimeSpent:  10,
		Ticket:     start.Ticket,
		IssuedAt:   start.IssuedAt,
	})
	if !errors.Is(err, ErrInvalidTicket) {
		t.Fatalf("过期票据应返回ErrInvalidTicket: %v", err)
	}
}

func TestQuotaExhaustionBlocksCompletionAndEvents(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 3; i++ {
		if _, err := startAndComplete(t, f, "user-1", "math-counting-1", nil); err != nil {
			t.Fatalf("配额内第%d次完成: %v", i+1, err)
		}
	}

	// 第4次在Start处就被拦下
	start, err := f.orchestrator.Start(context.Background(), "user-1", "math-counting-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if start.Allowed {
		t.Fatal("配额用尽后Start应被拒绝")
	}
	if start.Permission.Reason != freemium.ReasonDailyLimitReached {
		t.Fatalf("拒绝原因不对: %s", start.Permission.Reason)
	}

	// 即使带着早先的合法票据强行提交，记账层也会拒绝
	historyBefore := len(f.history.records)
	signature, _ := ticket.Sign(ticket.Payload{
		UserID:     "user-1",
		ActivityID: "math-counting-1",
		IssuedAt:   f.orchestrator.Clock().Unix(),
	})
	_, err = f.orchestrator.Complete(context.Background(), CompleteInput{
		UserID:     "user-1",
		ActivityID: "math-counting-1",
		TimeSpent:  10,
		Ticket:     signature,
		IssuedAt:   f.orchestrator.Clock().Unix(),
	})
	if !errors.Is(err, freemium.ErrQuotaExceeded) {
		t.Fatalf("应返回ErrQuotaExceeded: %v", err)
	}
	if len(f.history.records) != historyBefore {
		t.Fatal("被配额拦下的完成不应写历史")
	}
}

func TestPremiumContentRequiresUnlimitedPlan(t *testing.T) {
	f := newFixture(t)

	_, err := f.orchestrator.Start(context.Background(), "user-1", "science-space-1")
	if !errors.Is(err, ErrPremiumContent) {
		t.Fatalf("免费用户开始高级活动应返回ErrPremiumContent: %v", err)
	}

	if _, err := f.orchestrator.Upgrade(context.Background(), "user-1", "cus_123", "sub_456"); err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	start, err := f.orchestrator.Start(context.Background(), "user-1", "science-space-1")
	if err != nil || !start.Allowed {
		t.Fatalf("升级后应能开始高级活动: %v", err)
	}
}

func TestHistoryFailureDoesNotFailCompletion(t *testing.T) {
	f := newFixture(t)
	f.history.failing = true

	result, err := startAndComplete(t, f, "user-1", "math-counting-1", nil)
	if err != nil {
		t.Fatalf("历史写入失败不应使完成失败: %v", err)
	}
	if result.Usage.ActivitiesCompleted != 1 {
		t.Fatalf("记账应已生效: %d", result.Usage.ActivitiesCompleted)
	}
	// 连续天数不可用时跳过水位事件，但完成事件照常处理
	if len(result.NewlyUnlocked) == 0 {
		t.Fatal("完成事件的成就推进不应受历史故障影响")
	}
}

func TestUpgradeEmitsEventOnlyOnce(t *testing.T) {
	f := newFixture(t)

	unlocked, err := f.orchestrator.Upgrade(context.Background(), "user-1", "cus_123", "sub_456")
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	found := false
	for _, def := range unlocked {
		if def.ID == "premium_upgrade" {
			found = true
		}
	}
	if !found {
		t.Fatalf("首次升级应解锁premium_upgrade: %v", unlocked)
	}
	for _, notice := range f.notifier.notices {
		if notice.AchievementID == "premium_upgrade" && notice.Points != achievement.ExperienceFor(achievement.CategoryPremium) {
			t.Fatalf("升级成就的通知经验 = %d, 期望 %d",
				notice.Points, achievement.ExperienceFor(achievement.CategoryPremium))
		}
	}
	if f.marker.subscriptions != 1 {
		t.Fatalf("应标记订阅为脏: %d", f.marker.subscriptions)
	}

	again, err := f.orchestrator.Upgrade(context.Background(), "user-1", "cus_123", "sub_456")
	if err != nil {
		t.Fatalf("重复Upgrade: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("重复升级不应再有解锁: %v", again)
	}
	if f.marker.subscriptions != 1 {
		t.Fatal("重复升级不应再次标脏")
	}
}

func TestStreakEventUsesCurrentStreak(t *testing.T) {
	f := newFixture(t)
	f.history.streak = 7

	result, err := startAndComplete(t, f, "user-1", "math-counting-1", nil)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	found := false
	for _, def := range result.NewlyUnlocked {
		if def.ID == "week_warrior" {
			found = true
		}
	}
	if !found {
		t.Fatalf("连续7天应解锁week_warrior: %+v", result.NewlyUnlocked)
	}
}

func TestStartUnknownActivity(t *testing.T) {
	f := newFixture(t)

	_, err := f.orchestrator.Start(context.Background(), "user-1", "no-such-activity")
	if !errors.Is(err, ErrActivityNotFound) {
		t.Fatalf("未知活动应返回ErrActivityNotFound: %v", err)
	}
}
