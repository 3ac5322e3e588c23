package activity

import (
	"fmt"

	"github.com/BrightBuddy/brightbuddy-backend/internal/platform/database"
)

// --- In-memory Repository ---

// Info 持有活动的静态数据，在程序启动时加载到内存中
type Info struct {
	Title         string
	Subject       string
	Difficulty    string
	Type          string
	IsPremium     bool
	EstimatedTime int
}

// repository 是activity模块的中央数据仓库
type repository struct {
	// 内存中的静态数据，启动后只读
	idToInfo  map[string]Info
	orderedID []string
}

// globalRepository 是我们仓库的私有单例实例
var globalRepository *repository

// InitializeRepository 从SQLite加载活动静态数据，初始化内存仓库。
// 这个函数应该在应用启动时且仅调用一次。
func InitializeRepository() error {
	var activitiesFromDB []Activity
	if err := database.DB.Order("id asc").Find(&activitiesFromDB).Error; err != nil {
		return fmt.Errorf("无法从SQLite加载活动静态数据: %w", err)
	}

	size := len(activitiesFromDB)
	if size == 0 {
		return fmt.Errorf("活动静态数据为空，无法初始化仓库")
	}

	globalRepository = &repository{
		idToInfo:  make(map[string]Info, size),
		orderedID: make([]string, size),
	}

	for i, a := range activitiesFromDB {
		globalRepository.orderedID[i] = a.ActivityID
		globalRepository.idToInfo[a.ActivityID] = Info{
			Title:         a.Title,
			Subject:       a.Subject,
			Difficulty:    a.Difficulty,
			Type:          a.Type,
			IsPremium:     a.IsPremium,
			EstimatedTime: a.EstimatedTime,
		}
	}

	fmt.Printf("活动仓库 (Repository) 初始化成功，加载了 %d 个活动。\n", size)
	return nil
}

// --- Public Methods for Data Access ---
// 这些方法是线程安全的，因为它们访问的是启动后只读的数据。

func GetActivityCount() int {
	if globalRepository == nil {
		return 0
	}
	return len(globalRepository.orderedID)
}

func GetActivityInfoByID(id string) (Info, bool) {
	if globalRepository == nil {
		return Info{}, false
	}
	info, ok := globalRepository.idToInfo[id]
	return info, ok
}

// ListActivityIDs 按加载顺序返回全部活动ID。
func ListActivityIDs() []string {
	if globalRepository == nil {
		return nil
	}
	ids := make([]string, len(globalRepository.orderedID))
	copy(ids, globalRepository.orderedID)
	return ids
}
