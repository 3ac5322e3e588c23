package achievement

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/BrightBuddy/brightbuddy-backend/internal/platform/storage"
)

// Event 是成就引擎消费的领域事件。
// 每个变体只携带自己需要的字段，不存在非法的字段组合。
type Event interface {
	// Kind 返回事件类型名，只用于日志
	Kind() string
}

// ActivityCompleted 表示用户完成了一个活动。
// 满分(Score==100)的完成同时触发perfect_score类成就。
type ActivityCompleted struct {
	Subject string
	Score   *int
}

func (ActivityCompleted) Kind() string { return "activity_completed" }

// StreakUpdated 表示用户的连续学习天数更新为Days。
// 这是一个水位事件：进度取历史最大值，不做累加。
type StreakUpdated struct {
	Days int
}

func (StreakUpdated) Kind() string { return "streak_updated" }

// PremiumUpgrade 表示用户升级了付费订阅。
type PremiumUpgrade struct{}

func (PremiumUpgrade) Kind() string { return "premium_upgrade" }

// Result 是一次ProcessEvent调用的结果。
type Result struct {
	NewlyUnlocked []Definition `json:"newlyUnlocked"`
	Profile       Profile      `json:"profile"`
}

// Engine 是进阶引擎（ProgressionEngine）。
// 它保证每个成就至多解锁一次、经验至多发放一次；
// 但它不去重相同的事件——调用方负责不重复投递同一次完成。
type Engine struct {
	store storage.Store

	// Clock 可在测试中替换，决定unlockedAt的取值
	Clock func() time.Time
}

// NewEngine 创建一个进阶引擎。
func NewEngine(store storage.Store) *Engine {
	return &Engine{store: store, Clock: time.Now}
}

// seedProfile 按成就目录为新用户播种全部初始状态。
func seedProfile(userID string) Profile {
	states := make([]State, len(Catalog))
	for i, def := range Catalog {
		states[i] = State{
			ID:          def.ID,
			Progress:    0,
			MaxProgress: def.Requirement.Value,
		}
	}
	return Profile{
		UserID:                userID,
		Achievements:          states,
		Level:                 1,
		ExperienceToNextLevel: ExperienceToNextLevel(1),
	}
}

// GetProfile 读取用户的进阶档案，首次访问时从目录整体播种。
func (e *Engine) GetProfile(ctx context.Context, userID string) (Profile, error) {
	var profile Profile
	err := e.store.Get(ctx, ProfileKey(userID), &profile)
	if err == nil {
		return profile, nil
	}
	if err != storage.ErrNotFound {
		return Profile{}, err
	}

	profile = seedProfile(userID)
	if err := e.store.Set(ctx, ProfileKey(userID), profile); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

// ProcessEvent 把一个领域事件应用到用户档案上。
//
// 对每个尚未解锁、条件类型与事件匹配的成就推进进度；达到目标时解锁、
// 记录解锁时间、按分类发放经验；最后统一由经验重算等级。整份档案在
// 存储的乐观事务内读-改-写，对调用方表现为原子更新。
func (e *Engine) ProcessEvent(ctx context.Context, userID string, event Event) (Result, error) {
	// 无法识别的事件类型按无操作处理
	switch event.(type) {
	case ActivityCompleted, StreakUpdated, PremiumUpgrade:
	default:
		fmt.Printf("忽略无法识别的成就事件 %s (用户 %s)\n", event.Kind(), userID)
		profile, err := e.GetProfile(ctx, userID)
		if err != nil {
			return Result{}, err
		}
		return Result{NewlyUnlocked: []Definition{}, Profile: profile}, nil
	}

	var result Result

	err := e.store.Update(ctx, ProfileKey(userID), func(raw []byte) (interface{}, error) {
		profile := seedProfile(userID)
		if raw != nil {
			profile = Profile{}
			if err := json.Unmarshal(raw, &profile); err != nil {
				return nil, fmt.Errorf("无法解析进阶档案: %w", err)
			}
		}

		// 乐观事务冲突时闭包会重跑，结果必须每次重建
		result = Result{NewlyUnlocked: []Definition{}}

		now := e.Clock().UTC()
		for i := range profile.Achievements {
			st := &profile.Achievements[i]
			if st.Unlocked {
				continue // 终态，进度冻结
			}

			def, ok := DefinitionByID(st.ID)
			if !ok {
				continue
			}

			if !advance(st, def.Requirement, event) {
				continue
			}

			if st.Progress >= st.MaxProgress {
				st.Unlocked = true
				st.UnlockedAt = &now
				result.NewlyUnlocked = append(result.NewlyUnlocked, def)

				xp := ExperienceFor(def.Category)
				profile.Experience += xp
				profile.TotalPoints += xp
			}
		}

		// 等级永远由经验推导；一次事件可能连升多级
		profile.Level = LevelForExperience(profile.Experience)
		profile.ExperienceToNextLevel = ExperienceToNextLevel(profile.Level)

		result.Profile = profile
		return profile, nil
	})
	if err != nil {
		return Result{}, err
	}

	if len(result.NewlyUnlocked) > 0 {
		fmt.Printf("用户 %s 解锁了 %d 个成就。\n", userID, len(result.NewlyUnlocked))
	}
	return result, nil
}

// advance 尝试用事件推进单个成就的进度，返回是否发生了更新。
// 不匹配的事件什么都不做——未知组合是无操作而不是错误。
func advance(st *State, req Requirement, event Event) bool {
	switch req.Type {
	case ReqActivitiesCompleted:
		if _, ok := event.(ActivityCompleted); ok {
			st.Progress++
			return true
		}
	case ReqSubjectMastery:
		if ev, ok := event.(ActivityCompleted); ok && ev.Subject == req.Subject {
			st.Progress++
			return true
		}
	case ReqStreakDays:
		if ev, ok := event.(StreakUpdated); ok {
			if ev.Days > st.Progress {
				st.Progress = ev.Days
			}
			return true
		}
	case ReqPremiumUpgrade:
		if _, ok := event.(PremiumUpgrade); ok {
			st.Progress = 1
			return true
		}
	case ReqPerfectScore:
		if ev, ok := event.(ActivityCompleted); ok && ev.Score != nil && *ev.Score == 100 {
			st.Progress = 1
			return true
		}
	}
	return false
}

// RecentUnlocks 返回最近解锁的成就定义，按解锁时间倒序。
func (e *Engine) RecentUnlocks(ctx context.Context, userID string, limit int) ([]Definition, error) {
	profile, err := e.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	unlocked := make([]State, 0, len(profile.Achievements))
	for _, st := range profile.Achievements {
		if st.Unlocked && st.UnlockedAt != nil {
			unlocked = append(unlocked, st)
		}
	}
	sort.Slice(unlocked, func(i, j int) bool {
		return unlocked[i].UnlockedAt.After(*unlocked[j].UnlockedAt)
	})

	if limit <= 0 {
		limit = 5
	}
	if len(unlocked) > limit {
		unlocked = unlocked[:limit]
	}

	defs := make([]Definition, 0, len(unlocked))
	for _, st := range unlocked {
		if def, ok := DefinitionByID(st.ID); ok {
			defs = append(defs, def)
		}
	}
	return defs, nil
}

// StatesByCategory 返回某个分类下的全部成就状态。
func (e *Engine) StatesByCategory(ctx context.Context, userID string, category Category) ([]State, error) {
	profile, err := e.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	states := make([]State, 0)
	for _, st := range profile.Achievements {
		if def, ok := DefinitionByID(st.ID); ok && def.Category == category {
			states = append(states, st)
		}
	}
	return states, nil
}
