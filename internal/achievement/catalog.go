package achievement

// RequirementType 定义了成就解锁条件的类型
type RequirementType string

const (
	// ReqActivitiesCompleted 按完成的活动总数计数
	ReqActivitiesCompleted RequirementType = "activities_completed"
	// ReqStreakDays 按连续学习天数取水位（最大值），不是累加
	ReqStreakDays RequirementType = "streak_days"
	// ReqSubjectMastery 按某一科目完成的活动数计数
	ReqSubjectMastery RequirementType = "subject_mastery"
	// ReqPremiumUpgrade 升级付费订阅时一次性达成
	ReqPremiumUpgrade RequirementType = "premium_upgrade"
	// ReqPerfectScore 任一活动拿到满分时一次性达成
	ReqPerfectScore RequirementType = "perfect_score"
)

// Category 定义了成就的分类，同时决定解锁时发放的经验值
type Category string

const (
	CategoryLearning Category = "learning"
	CategoryStreak   Category = "streak"
	CategorySubject  Category = "subject"
	CategoryPremium  Category = "premium"
	CategorySpecial  Category = "special"
)

// categoryExperience 是解锁时按分类发放的经验值
var categoryExperience = map[Category]int{
	CategoryLearning: 50,
	CategoryStreak:   100,
	CategorySubject:  75,
	CategoryPremium:  200,
	CategorySpecial:  150,
}

// ExperienceFor 返回解锁某分类成就时发放的经验值。
func ExperienceFor(category Category) int {
	if xp, ok := categoryExperience[category]; ok {
		return xp
	}
	return 50
}

// Requirement 定义了一个成就的解锁条件
type Requirement struct {
	Type RequirementType `json:"type"`
	// Value 是数值目标，即该成就的maxProgress
	Value int `json:"value"`
	// Subject 只在subject_mastery条件上出现
	Subject string `json:"subject,omitempty"`
}

// Reward 是解锁成就的奖励描述，纯展示数据
type Reward struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Definition 是成就目录中的一条定义，运行期不可变
type Definition struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Icon        string      `json:"icon"`
	Category    Category    `json:"category"`
	Requirement Requirement `json:"requirement"`
	Reward      *Reward     `json:"reward,omitempty"`
}

// Catalog 是全部成就定义。顺序稳定，用户的成就状态按同样的顺序播种。
var Catalog = []Definition{
	// 学习类
	{
		ID: "first_activity", Title: "First Steps",
		Description: "Complete your first learning activity", Icon: "🎯",
		Category:    CategoryLearning,
		Requirement: Requirement{Type: ReqActivitiesCompleted, Value: 1},
		Reward:      &Reward{Type: "badge", Value: "Beginner Learner"},
	},
	{
		ID: "activity_master", Title: "Activity Master",
		Description: "Complete 50 learning activities", Icon: "🏆",
		Category:    CategoryLearning,
		Requirement: Requirement{Type: ReqActivitiesCompleted, Value: 50},
		Reward:      &Reward{Type: "title", Value: "Learning Champion"},
	},
	{
		ID: "century_club", Title: "Century Club",
		Description: "Complete 100 learning activities", Icon: "💎",
		Category:    CategoryLearning,
		Requirement: Requirement{Type: ReqActivitiesCompleted, Value: 100},
		Reward:      &Reward{Type: "badge", Value: "Century Master"},
	},

	// 连续天数类
	{
		ID: "week_warrior", Title: "Week Warrior",
		Description: "Maintain a 7-day learning streak", Icon: "🔥",
		Category:    CategoryStreak,
		Requirement: Requirement{Type: ReqStreakDays, Value: 7},
		Reward:      &Reward{Type: "badge", Value: "Consistent Learner"},
	},
	{
		ID: "month_master", Title: "Month Master",
		Description: "Maintain a 30-day learning streak", Icon: "⭐",
		Category:    CategoryStreak,
		Requirement: Requirement{Type: ReqStreakDays, Value: 30},
		Reward:      &Reward{Type: "title", Value: "Dedicated Scholar"},
	},
	{
		ID: "streak_legend", Title: "Streak Legend",
		Description: "Maintain a 100-day learning streak", Icon: "👑",
		Category:    CategoryStreak,
		Requirement: Requirement{Type: ReqStreakDays, Value: 100},
		Reward:      &Reward{Type: "badge", Value: "Legendary Learner"},
	},

	// 科目精通类
	{
		ID: "math_whiz", Title: "Math Whiz",
		Description: "Complete 10 math activities", Icon: "🔢",
		Category:    CategorySubject,
		Requirement: Requirement{Type: ReqSubjectMastery, Value: 10, Subject: "Math"},
		Reward:      &Reward{Type: "badge", Value: "Math Expert"},
	},
	{
		ID: "science_explorer", Title: "Science Explorer",
		Description: "Complete 10 science activities", Icon: "🔬",
		Category:    CategorySubject,
		Requirement: Requirement{Type: ReqSubjectMastery, Value: 10, Subject: "Science"},
		Reward:      &Reward{Type: "badge", Value: "Science Explorer"},
	},
	{
		ID: "bookworm", Title: "Bookworm",
		Description: "Complete 10 reading activities", Icon: "📚",
		Category:    CategorySubject,
		Requirement: Requirement{Type: ReqSubjectMastery, Value: 10, Subject: "Reading"},
		Reward:      &Reward{Type: "badge", Value: "Avid Reader"},
	},
	{
		ID: "creative_writer", Title: "Creative Writer",
		Description: "Complete 10 writing activities", Icon: "✍️",
		Category:    CategorySubject,
		Requirement: Requirement{Type: ReqSubjectMastery, Value: 10, Subject: "Writing"},
		Reward:      &Reward{Type: "badge", Value: "Creative Writer"},
	},
	{
		ID: "history_buff", Title: "History Buff",
		Description: "Complete 10 history activities", Icon: "🏛️",
		Category:    CategorySubject,
		Requirement: Requirement{Type: ReqSubjectMastery, Value: 10, Subject: "History"},
		Reward:      &Reward{Type: "badge", Value: "History Enthusiast"},
	},
	{
		ID: "art_enthusiast", Title: "Art Enthusiast",
		Description: "Complete 10 art activities", Icon: "🎨",
		Category:    CategorySubject,
		Requirement: Requirement{Type: ReqSubjectMastery, Value: 10, Subject: "Art"},
		Reward:      &Reward{Type: "badge", Value: "Art Lover"},
	},
	{
		ID: "music_maestro", Title: "Music Maestro",
		Description: "Complete 10 music activities", Icon: "🎵",
		Category:    CategorySubject,
		Requirement: Requirement{Type: ReqSubjectMastery, Value: 10, Subject: "Music"},
		Reward:      &Reward{Type: "badge", Value: "Music Maestro"},
	},
	{
		ID: "fitness_fanatic", Title: "Fitness Fanatic",
		Description: "Complete 10 physical education activities", Icon: "🏃",
		Category:    CategorySubject,
		Requirement: Requirement{Type: ReqSubjectMastery, Value: 10, Subject: "Physical Education"},
		Reward:      &Reward{Type: "badge", Value: "Fitness Enthusiast"},
	},

	// 付费类
	{
		ID: "premium_upgrade", Title: "Premium Member",
		Description: "Upgrade to premium subscription", Icon: "⭐",
		Category:    CategoryPremium,
		Requirement: Requirement{Type: ReqPremiumUpgrade, Value: 1},
		Reward:      &Reward{Type: "badge", Value: "Premium Learner"},
	},

	// 特殊类
	{
		ID: "perfect_score", Title: "Perfect Score",
		Description: "Get a perfect score on any activity", Icon: "🎯",
		Category:    CategorySpecial,
		Requirement: Requirement{Type: ReqPerfectScore, Value: 1},
		Reward:      &Reward{Type: "badge", Value: "Perfect Performer"},
	},
	{
		ID: "speed_reader", Title: "Speed Reader",
		Description: "Complete a speed reading activity", Icon: "⚡",
		Category:    CategorySpecial,
		Requirement: Requirement{Type: ReqActivitiesCompleted, Value: 1},
		Reward:      &Reward{Type: "badge", Value: "Speed Reader"},
	},
	{
		ID: "logic_master", Title: "Logic Master",
		Description: "Complete a logic puzzle activity", Icon: "🧠",
		Category:    CategorySpecial,
		Requirement: Requirement{Type: ReqActivitiesCompleted, Value: 1},
		Reward:      &Reward{Type: "badge", Value: "Logic Master"},
	},
}

// DefinitionByID 按ID查找成就定义。
func DefinitionByID(id string) (Definition, bool) {
	for _, def := range Catalog {
		if def.ID == id {
			return def, true
		}
	}
	return Definition{}, false
}

// LevelInfo 是等级表中的一行
type LevelInfo struct {
	Level      int    `json:"level"`
	Experience int    `json:"experience"`
	Title      string `json:"title"`
}

// LevelTable 是经验→等级的映射表，按经验阈值单调递增。
var LevelTable = []LevelInfo{
	{Level: 1, Experience: 0, Title: "Novice Learner"},
	{Level: 2, Experience: 100, Title: "Curious Explorer"},
	{Level: 3, Experience: 250, Title: "Dedicated Student"},
	{Level: 4, Experience: 500, Title: "Knowledge Seeker"},
	{Level: 5, Experience: 1000, Title: "Learning Enthusiast"},
	{Level: 6, Experience: 2000, Title: "Academic Achiever"},
	{Level: 7, Experience: 3500, Title: "Knowledge Master"},
	{Level: 8, Experience: 5000, Title: "Learning Legend"},
	{Level: 9, Experience: 7500, Title: "Educational Expert"},
	{Level: 10, Experience: 10000, Title: "BrightBuddy Master"},
}

// LevelForExperience 返回经验值对应的等级：
// 满足 LevelTable[L].Experience <= experience 的最大L。
func LevelForExperience(experience int) int {
	for i := len(LevelTable) - 1; i >= 0; i-- {
		if experience >= LevelTable[i].Experience {
			return LevelTable[i].Level
		}
	}
	return 1
}

// ExperienceToNextLevel 返回升到下一级还需要达到的总经验阈值，
// 已是最高级时返回0。
func ExperienceToNextLevel(level int) int {
	for _, info := range LevelTable {
		if info.Level == level+1 {
			return info.Experience
		}
	}
	return 0
}

// LevelTitle 返回等级称号，越界输入回退到最低级称号。
func LevelTitle(level int) string {
	for _, info := range LevelTable {
		if info.Level == level {
			return info.Title
		}
	}
	return LevelTable[0].Title
}
