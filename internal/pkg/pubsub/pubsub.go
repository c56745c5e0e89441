package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelGenerationProgress = "generation_progress"
)

// ProgressMessage 进度消息
type ProgressMessage struct {
	Type     string `json:"type"`
	UserID   int64  `json:"user_id"`
	ScriptID int64  `json:"script_id"`
	JobID    int64  `json:"job_id"`
	Status   string `json:"status"`
	Step     string `json:"step"`
	Progress int    `json:"progress"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// 进度阶段常量
const (
	StepGenerating = "generating"
	StepExtracting = "extracting"
	StepUploading  = "uploading"
	StepDone       = "done"
)

// 阶段对应的进度百分比
var StepProgress = map[string]int{
	StepGenerating: 30,
	StepExtracting: 60,
	StepUploading:  80,
	StepDone:       100,
}

// 阶段对应的消息
var StepMessages = map[string]string{
	StepGenerating: "正在生成 Luau 脚本",
	StepExtracting: "正在提取 UI 清单",
	StepUploading:  "正在上传脚本产物",
	StepDone:       "生成完成",
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

// NewPublisher 创建发布者
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishProgress 发布进度消息
func (p *Publisher) PublishProgress(ctx context.Context, msg *ProgressMessage) error {
	msg.Type = "job_progress"

	// 自动填充进度和消息
	if msg.Progress == 0 && msg.Step != "" {
		if progress, ok := StepProgress[msg.Step]; ok {
			msg.Progress = progress
		}
	}
	if msg.Message == "" && msg.Step != "" {
		if message, ok := StepMessages[msg.Step]; ok {
			msg.Message = message
		}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal progress message: %w", err)
	}

	return p.client.Publish(ctx, ChannelGenerationProgress, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 订阅进度消息
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*ProgressMessage)) error {
	pubsub := s.client.Subscribe(ctx, ChannelGenerationProgress)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var progressMsg ProgressMessage
			if err := json.Unmarshal([]byte(msg.Payload), &progressMsg); err != nil {
				continue // 忽略解析错误
			}

			handler(&progressMsg)
		}
	}
}
