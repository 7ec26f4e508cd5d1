package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

// TitleMaxLength 自动生成标题的最大字符数（超出部分以 ... 结尾）
const TitleMaxLength = 50

// Conversation 对话实体
// Title 为空字符串表示尚未设置，首次对话时由第一条用户消息生成，之后不再覆盖
type Conversation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
	Messages  []Message `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// TableName 表名
func (Conversation) TableName() string {
	return "conversations"
}

// HasTitle 标题是否已设置
func (c *Conversation) HasTitle() bool {
	return c.Title != ""
}

// Role 消息角色
type Role string

const (
	RoleUser      Role = "user"      // 用户
	RoleAssistant Role = "assistant" // AI 回复
)

// IsValid 检查角色是否有效
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// String 返回角色字符串
func (r Role) String() string {
	return string(r)
}

// Message 消息，创建后不可修改
// 同一对话内按 created_at 排序，时间相同时按 id
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"not null;index:idx_messages_conversation_created,priority:1" json:"conversation_id"`
	Role           Role      `gorm:"size:20;not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `gorm:"not null;index:idx_messages_conversation_created,priority:2" json:"created_at"`
}

// TableName 表名
func (Message) TableName() string {
	return "messages"
}

// QnA 旧版单轮问答记录，仅为兼容 /ask 接口保留
type QnA struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Question string `gorm:"not null" json:"question"`
	Answer   string `gorm:"not null" json:"answer"`
}

// TableName 表名
func (QnA) TableName() string {
	return "qna"
}

// TitleFromMessage 由第一条用户消息生成对话标题
func TitleFromMessage(content string) string {
	content = strings.TrimSpace(content)
	if utf8.RuneCountInString(content) <= TitleMaxLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:TitleMaxLength]) + "..."
}
