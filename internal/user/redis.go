package user

// 定义与用户相关的Redis键名
const (
	// KnownUsersKey 是一个Set，用于快速判断一个UUID是否是已知的合法用户。
	// Key: known_users
	// Member: 用户UUID
	KnownUsersKey = "known_users"
)
