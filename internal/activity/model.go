package activity

// Activity 是GORM模型，对应SQLite中的activities表。
// 它是活动目录的持久化来源，启动时整体加载进内存仓库。
type Activity struct {
	ID            uint   `gorm:"primaryKey"`
	ActivityID    string `gorm:"uniqueIndex;not null"` // 业务ID，如 "math-counting-1"
	Title         string `gorm:"not null"`
	Subject       string `gorm:"index;not null"`
	Difficulty    string `gorm:"not null"` // easy / medium / hard
	Type          string `gorm:"not null"` // lesson / quiz / game
	IsPremium     bool   `gorm:"not null;default:false"`
	EstimatedTime int    `gorm:"not null"` // 预计耗时（分钟）
}
