package achievement

import (
	"fmt"
	"time"
)

// State 是一个用户在单个成就上的进度状态。
// 状态机只有两个状态：locked(progress<max) → unlocked(终态)。
// 解锁后Progress被冻结，不再接受任何写入。
type State struct {
	ID       string `json:"id"`
	Progress int    `json:"progress"`
	// MaxProgress 等于定义中的requirement.value，创建后固定
	MaxProgress int        `json:"maxProgress"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlockedAt,omitempty"`
}

// Profile 是一个用户完整的进阶档案，整份作为一个JSON文档持久化。
// Level和ExperienceToNextLevel永远由Experience推导，不单独赋值。
type Profile struct {
	UserID       string  `json:"userId"`
	Achievements []State `json:"achievements"`
	// TotalPoints 是历史上发放过的全部经验，单调递增
	TotalPoints int `json:"totalPoints"`
	Level       int `json:"level"`
	// Experience 单调递增，只在成就解锁时增加
	Experience            int `json:"experience"`
	ExperienceToNextLevel int `json:"experienceToNextLevel"`
}

// UnlockedCount 返回已解锁的成就数量。
func (p *Profile) UnlockedCount() int {
	n := 0
	for _, st := range p.Achievements {
		if st.Unlocked {
			n++
		}
	}
	return n
}

// ProfileKey 返回用户进阶档案的存储键。
func ProfileKey(userID string) string {
	return fmt.Sprintf("achievements:%s", userID)
}
