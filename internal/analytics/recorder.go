package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BrightBuddy/brightbuddy-backend/internal/platform/database"
	"github.com/google/uuid"
)

// Recorder 是分析事件的接收端。
// 它是尽力而为的旁路：调用没有错误返回值，失败只打印日志，
// 绝不影响主流程。
type Recorder interface {
	Track(ctx context.Context, userID, eventType string, eventData map[string]interface{})
}

// Event 是一条分析事件。
type Event struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"userId"`
	EventType string                 `json:"eventType"`
	EventData map[string]interface{} `json:"eventData"`
	Timestamp time.Time              `json:"timestamp"`
}

// EventsKey 是Redis中最近事件列表的键名，保留最近maxStoredEvents条。
const EventsKey = "analytics:events"

// maxStoredEvents 限制Redis中事件列表的长度
const maxStoredEvents = 1000

// Sink 是Recorder的生产实现：把事件推进Redis的近况列表，
// 同时镜像一行到SQLite供离线统计。
type Sink struct{}

// NewSink 创建一个分析事件接收端。
func NewSink() *Sink {
	return &Sink{}
}

func (s *Sink) Track(ctx context.Context, userID, eventType string, eventData map[string]interface{}) {
	event := Event{
		ID:        uuid.NewString(),
		UserID:    userID,
		EventType: eventType,
		EventData: eventData,
		Timestamp: time.Now().UTC(),
	}

	raw, err := json.Marshal(event)
	if err != nil {
		fmt.Printf("分析事件序列化失败: %v\n", err)
		return
	}

	pipe := database.RDB.Pipeline()
	pipe.RPush(ctx, EventsKey, raw)
	pipe.LTrim(ctx, EventsKey, -maxStoredEvents, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		fmt.Printf("分析事件写入Redis失败: %v\n", err)
		// Redis失败不妨碍SQLite镜像
	}

	dataJSON, _ := json.Marshal(eventData)
	rec := EventRecord{
		EventID:   event.ID,
		UserID:    userID,
		EventType: eventType,
		EventData: string(dataJSON),
		Timestamp: event.Timestamp,
	}
	if err := database.DB.Create(&rec).Error; err != nil {
		fmt.Printf("分析事件写入SQLite失败: %v\n", err)
	}
}
