package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"gorm.io/gorm"

	"gptclone/internal/ai"
	"gptclone/internal/config"
	"gptclone/internal/model"
	"gptclone/internal/pkg/cache"
	"gptclone/internal/pkg/database/dbtest"
	"gptclone/internal/repository"
)

type failingAI struct{}

func (failingAI) Chat(context.Context, *ai.ChatRequest) (*ai.ChatResponse, error) {
	return nil, fmt.Errorf("%w: connection reset", ai.ErrUpstream)
}

func (failingAI) Complete(context.Context, string) (string, error) {
	return "", ai.ErrNoChoices
}

// memoryCache 以 JSON 保存，与 Redis 行为一致
type memoryCache struct {
	items   map[string][]byte
	deletes int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string, dest any) error {
	data, ok := c.items[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.items[key] = data
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.items, k)
	}
	c.deletes++
	return nil
}

// racingCache 在第一次 Set 写入前执行 beforeSet，模拟读回源与对话写入交错
type racingCache struct {
	*memoryCache
	beforeSet func()
}

func (c *racingCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if fn := c.beforeSet; fn != nil {
		c.beforeSet = nil
		fn()
	}
	return c.memoryCache.Set(ctx, key, value, ttl)
}

// deletingAI 在 AI 调用期间删除对话
type deletingAI struct {
	store *repository.Store
	id    uint
}

func (d deletingAI) Chat(ctx context.Context, _ *ai.ChatRequest) (*ai.ChatResponse, error) {
	if err := d.store.Conversations.Delete(ctx, d.id); err != nil {
		return nil, err
	}
	return &ai.ChatResponse{Content: "too late"}, nil
}

func newMockAI(t *testing.T) *ai.Client {
	client, err := ai.NewClient(context.Background(), &config.AIConfig{APIKey: "sk-test", Mock: true})
	if err != nil {
		t.Fatalf("failed to create mock ai client: %v", err)
	}
	return client
}

func TestChatService_Send(t *testing.T) {
	Convey("ChatService.Send", t, func() {
		ctx := context.Background()
		store := repository.NewStore(dbtest.Open(t).DB())
		mc := newMemoryCache()
		convs := NewConversationService(store, mc, time.Minute)
		chat := NewChatService(store, newMockAI(t), convs)

		conv, err := convs.Create(ctx, "")
		So(err, ShouldBeNil)

		Convey("一轮对话按顺序写入用户消息和 AI 回复", func() {
			resp, err := chat.Send(ctx, conv.ID, "  hello  ")
			So(err, ShouldBeNil)
			So(resp.UserMessage.Role, ShouldEqual, model.RoleUser)
			So(resp.UserMessage.Content, ShouldEqual, "hello")
			So(resp.AIMessage.Role, ShouldEqual, model.RoleAssistant)
			So(resp.AIMessage.Content, ShouldEqual, "This is a mock response to: hello")
			So(resp.Conversation.Title, ShouldEqual, "hello")
			So(resp.Usage, ShouldNotBeNil)

			msgs, err := convs.Messages(ctx, conv.ID)
			So(err, ShouldBeNil)
			So(len(msgs), ShouldEqual, 2)
			So(msgs[0].ID, ShouldEqual, resp.UserMessage.ID)
			So(msgs[1].ID, ShouldEqual, resp.AIMessage.ID)
			So(msgs[0].CreatedAt.After(msgs[1].CreatedAt), ShouldBeFalse)

			got, _ := convs.Get(ctx, conv.ID)
			So(got.UpdatedAt.Before(conv.UpdatedAt), ShouldBeFalse)
		})

		Convey("标题只在第一轮设置", func() {
			long := strings.Repeat("a", 60)
			first, err := chat.Send(ctx, conv.ID, long)
			So(err, ShouldBeNil)
			So(first.Conversation.Title, ShouldEqual, strings.Repeat("a", 50)+"...")

			second, err := chat.Send(ctx, conv.ID, "something else")
			So(err, ShouldBeNil)
			So(second.Conversation.Title, ShouldEqual, first.Conversation.Title)

			msgs, _ := convs.Messages(ctx, conv.ID)
			So(len(msgs), ShouldEqual, 4)
		})

		Convey("已有标题的对话不会被覆盖", func() {
			named, _ := convs.Create(ctx, "my topic")
			resp, err := chat.Send(ctx, named.ID, "hi")
			So(err, ShouldBeNil)
			So(resp.Conversation.Title, ShouldEqual, "my topic")
		})

		Convey("空消息返回 ErrEmptyMessage 且不写入", func() {
			_, err := chat.Send(ctx, conv.ID, "   ")
			So(errors.Is(err, ErrEmptyMessage), ShouldBeTrue)

			n, _ := store.Messages.CountByConversation(ctx, conv.ID)
			So(n, ShouldEqual, 0)
		})

		Convey("对话不存在", func() {
			_, err := chat.Send(ctx, 9999, "hi")
			So(errors.Is(err, ErrConversationNotFound), ShouldBeTrue)
		})

		Convey("AI 调用期间对话被删除时返回 ErrConversationNotFound", func() {
			racing := NewChatService(store, deletingAI{store: store, id: conv.ID}, convs)
			_, err := racing.Send(ctx, conv.ID, "hi")
			So(errors.Is(err, ErrConversationNotFound), ShouldBeTrue)

			n, _ := store.Messages.CountByConversation(ctx, conv.ID)
			So(n, ShouldEqual, 0)
		})

		Convey("AI 失败时不写入任何数据", func() {
			broken := NewChatService(store, failingAI{}, convs)
			_, err := broken.Send(ctx, conv.ID, "hi")
			So(errors.Is(err, ai.ErrUpstream), ShouldBeTrue)

			n, _ := store.Messages.CountByConversation(ctx, conv.ID)
			So(n, ShouldEqual, 0)
			got, _ := convs.Get(ctx, conv.ID)
			So(got.Title, ShouldEqual, "")
		})

		Convey("对话写入后失效消息缓存", func() {
			_, err := convs.Messages(ctx, conv.ID)
			So(err, ShouldBeNil)
			So(mc.items, ShouldContainKey, cache.MessagesCacheKey(conv.ID))

			_, err = chat.Send(ctx, conv.ID, "hi")
			So(err, ShouldBeNil)
			So(mc.items, ShouldNotContainKey, cache.MessagesCacheKey(conv.ID))

			msgs, _ := convs.Messages(ctx, conv.ID)
			So(len(msgs), ShouldEqual, 2)
		})
	})
}

func TestConversationService(t *testing.T) {
	Convey("ConversationService", t, func() {
		ctx := context.Background()
		store := repository.NewStore(dbtest.Open(t).DB())
		mc := newMemoryCache()
		convs := NewConversationService(store, mc, 0)
		chat := NewChatService(store, newMockAI(t), convs)

		Convey("新建对话标题为空", func() {
			conv, err := convs.Create(ctx, "")
			So(err, ShouldBeNil)
			So(conv.Title, ShouldEqual, "")
		})

		Convey("列表按最近对话倒序", func() {
			a, _ := convs.Create(ctx, "a")
			b, _ := convs.Create(ctx, "b")
			_, err := chat.Send(ctx, a.ID, "bump")
			So(err, ShouldBeNil)

			list, err := convs.List(ctx, 0, 0)
			So(err, ShouldBeNil)
			So(len(list), ShouldEqual, 2)
			So(list[0].ID, ShouldEqual, a.ID)
			So(list[1].ID, ShouldEqual, b.ID)

			capped, err := convs.List(ctx, MaxListLimit+1, -1)
			So(err, ShouldBeNil)
			So(len(capped), ShouldEqual, 2)
		})

		Convey("消息读取命中缓存", func() {
			conv, _ := convs.Create(ctx, "")
			_, err := chat.Send(ctx, conv.ID, "hi")
			So(err, ShouldBeNil)

			first, err := convs.Messages(ctx, conv.ID)
			So(err, ShouldBeNil)
			So(len(first), ShouldEqual, 2)

			// 直接写库绕过服务层，缓存中的旧数据仍被返回
			So(store.Messages.Create(ctx, &model.Message{
				ConversationID: conv.ID, Role: model.RoleUser, Content: "direct", CreatedAt: time.Now().UTC(),
			}), ShouldBeNil)
			cached, err := convs.Messages(ctx, conv.ID)
			So(err, ShouldBeNil)
			So(len(cached), ShouldEqual, 2)
			So(cached[0].Content, ShouldEqual, "hi")
		})

		Convey("回填缓存期间有新消息写入时不保留旧列表", func() {
			conv, _ := convs.Create(ctx, "")
			rc := &racingCache{memoryCache: newMemoryCache()}
			racing := NewConversationService(store, rc, 0)
			writer := NewChatService(store, newMockAI(t), racing)
			rc.beforeSet = func() {
				_, err := writer.Send(ctx, conv.ID, "hi")
				So(err, ShouldBeNil)
			}

			stale, err := racing.Messages(ctx, conv.ID)
			So(err, ShouldBeNil)
			So(len(stale), ShouldEqual, 0)
			So(rc.items, ShouldNotContainKey, cache.MessagesCacheKey(conv.ID))

			fresh, err := racing.Messages(ctx, conv.ID)
			So(err, ShouldBeNil)
			So(len(fresh), ShouldEqual, 2)
			So(rc.items, ShouldContainKey, cache.MessagesCacheKey(conv.ID))
		})

		Convey("不存在的对话", func() {
			_, err := convs.Get(ctx, 4242)
			So(errors.Is(err, ErrConversationNotFound), ShouldBeTrue)
			_, err = convs.Messages(ctx, 4242)
			So(errors.Is(err, ErrConversationNotFound), ShouldBeTrue)
			So(errors.Is(convs.Delete(ctx, 4242), ErrConversationNotFound), ShouldBeTrue)
		})

		Convey("删除对话同时删除消息和缓存", func() {
			conv, _ := convs.Create(ctx, "")
			_, err := chat.Send(ctx, conv.ID, "hi")
			So(err, ShouldBeNil)
			_, _ = convs.Messages(ctx, conv.ID)

			So(convs.Delete(ctx, conv.ID), ShouldBeNil)
			So(mc.items, ShouldNotContainKey, cache.MessagesCacheKey(conv.ID))

			n, _ := store.Messages.CountByConversation(ctx, conv.ID)
			So(n, ShouldEqual, 0)
			_, err = convs.Messages(ctx, conv.ID)
			So(errors.Is(err, ErrConversationNotFound), ShouldBeTrue)
		})

		Convey("未启用缓存时直接读库", func() {
			plain := NewConversationService(store, nil, 0)
			conv, _ := plain.Create(ctx, "")
			msgs, err := plain.Messages(ctx, conv.ID)
			So(err, ShouldBeNil)
			So(len(msgs), ShouldEqual, 0)
			So(plain.Delete(ctx, conv.ID), ShouldBeNil)
		})
	})
}

func TestQnAService_Ask(t *testing.T) {
	Convey("QnAService.Ask", t, func() {
		ctx := context.Background()
		store := repository.NewStore(dbtest.Open(t).DB())

		Convey("回答被保存", func() {
			resp, err := NewQnAService(store, newMockAI(t)).Ask(ctx, "what is go?")
			So(err, ShouldBeNil)
			So(resp.ID, ShouldBeGreaterThan, 0)
			So(resp.Question, ShouldEqual, "what is go?")
			So(resp.Answer, ShouldEqual, "This is a mock answer to: what is go?")

			items, _ := store.QnA.List(ctx, 10)
			So(len(items), ShouldEqual, 1)
		})

		Convey("空问题", func() {
			_, err := NewQnAService(store, newMockAI(t)).Ask(ctx, " ")
			So(errors.Is(err, ErrEmptyQuestion), ShouldBeTrue)
		})

		Convey("补全失败时不保存", func() {
			_, err := NewQnAService(store, failingAI{}).Ask(ctx, "q")
			So(errors.Is(err, ai.ErrNoChoices), ShouldBeTrue)

			items, _ := store.QnA.List(ctx, 10)
			So(len(items), ShouldEqual, 0)
		})
	})
}

func TestWrapNotFound(t *testing.T) {
	Convey("对话不存在的错误统一映射", t, func() {
		So(errors.Is(wrapNotFound(repository.ErrNotFound, "get"), ErrConversationNotFound), ShouldBeTrue)
		So(errors.Is(wrapNotFound(fmt.Errorf("save messages: %w", gorm.ErrForeignKeyViolated), "chat"), ErrConversationNotFound), ShouldBeTrue)

		other := errors.New("disk full")
		err := wrapNotFound(other, "chat")
		So(errors.Is(err, ErrConversationNotFound), ShouldBeFalse)
		So(errors.Is(err, other), ShouldBeTrue)
	})
}
