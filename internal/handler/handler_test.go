package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	. "github.com/smartystreets/goconvey/convey"

	"gptclone/internal/ai"
	"gptclone/internal/config"
	"gptclone/internal/model"
	"gptclone/internal/pkg/ctxutil"
	"gptclone/internal/pkg/database/dbtest"
	"gptclone/internal/repository"
	"gptclone/internal/service"
)

type brokenAI struct{}

func (brokenAI) Chat(context.Context, *ai.ChatRequest) (*ai.ChatResponse, error) {
	return nil, fmt.Errorf("%w: 503 from upstream", ai.ErrUpstream)
}

func (brokenAI) Complete(context.Context, string) (string, error) {
	return "", ai.ErrNoChoices
}

const testRequestID = "5f0c6a4e-3b7d-4f1e-9a2b-7c8d9e0f1a2b"

type downDB struct{}

func (downDB) Ping(context.Context) error { return errors.New("connection refused") }

type upDB struct{}

func (upDB) Ping(context.Context) error { return nil }

type testEnv struct {
	engine *gin.Engine
	store  *repository.Store
}

func newTestEnv(t *testing.T, broken bool) *testEnv {
	gin.SetMode(gin.TestMode)

	db := dbtest.Open(t)
	store := repository.NewStore(db.DB())

	var chatModel service.ChatModel = brokenAI{}
	var completer service.Completer = brokenAI{}
	if !broken {
		client, err := ai.NewClient(context.Background(), &config.AIConfig{APIKey: "sk-test", Mock: true})
		if err != nil {
			t.Fatalf("ai client: %v", err)
		}
		chatModel, completer = client, client
	}

	convSvc := service.NewConversationService(store, nil, 0)
	convH := NewConversationHandler(convSvc)
	chatH := NewChatHandler(service.NewChatService(store, chatModel, convSvc))
	askH := NewAskHandler(service.NewQnAService(store, completer))
	healthH := NewHealthHandler(db, nil)

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(ctxutil.WithRequestID(c.Request.Context(), testRequestID))
	})
	engine.GET("/ready", healthH.Ready)
	engine.POST("/ask", askH.Ask)
	api := engine.Group("/api/conversations")
	api.GET("", convH.List)
	api.POST("", convH.Create)
	api.GET("/:id", convH.Get)
	api.DELETE("/:id", convH.Delete)
	api.GET("/:id/messages", convH.Messages)
	api.POST("/:id/chat", chatH.Send)

	return &testEnv{engine: engine, store: store}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
	return v
}

func TestConversationAPI(t *testing.T) {
	Convey("对话接口", t, func() {
		env := newTestEnv(t, false)

		Convey("创建对话，请求体可省略", func() {
			w := env.do(http.MethodPost, "/api/conversations", "")
			So(w.Code, ShouldEqual, http.StatusCreated)
			conv := decode[model.Conversation](w)
			So(conv.ID, ShouldBeGreaterThan, 0)
			So(conv.Title, ShouldEqual, "")

			w = env.do(http.MethodPost, "/api/conversations", `{"title":"named"}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
			So(decode[model.Conversation](w).Title, ShouldEqual, "named")
		})

		Convey("列表返回 JSON 数组", func() {
			env.do(http.MethodPost, "/api/conversations", "")
			env.do(http.MethodPost, "/api/conversations", "")

			w := env.do(http.MethodGet, "/api/conversations", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(len(decode[[]model.Conversation](w)), ShouldEqual, 2)

			w = env.do(http.MethodGet, "/api/conversations?limit=1", "")
			So(len(decode[[]model.Conversation](w)), ShouldEqual, 1)

			w = env.do(http.MethodGet, "/api/conversations?limit=1000", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("一轮对话返回两条消息，随后可查询", func() {
			conv := decode[model.Conversation](env.do(http.MethodPost, "/api/conversations", ""))
			path := fmt.Sprintf("/api/conversations/%d", conv.ID)

			w := env.do(http.MethodPost, path+"/chat", `{"message":"Hello there"}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			resp := decode[model.ChatResponse](w)
			So(resp.UserMessage.Role, ShouldEqual, model.RoleUser)
			So(resp.AIMessage.Role, ShouldEqual, model.RoleAssistant)
			So(resp.Conversation.Title, ShouldEqual, "Hello there")

			w = env.do(http.MethodGet, path+"/messages", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			msgs := decode[[]model.Message](w)
			So(len(msgs), ShouldEqual, 2)
			So(msgs[0].Content, ShouldEqual, "Hello there")

			w = env.do(http.MethodGet, path, "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[model.Conversation](w).Title, ShouldEqual, "Hello there")
		})

		Convey("空消息返回 40002 且不写入", func() {
			conv := decode[model.Conversation](env.do(http.MethodPost, "/api/conversations", ""))
			path := fmt.Sprintf("/api/conversations/%d/chat", conv.ID)

			for _, body := range []string{`{"message":""}`, `{"message":"   "}`, `{}`} {
				w := env.do(http.MethodPost, path, body)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[ErrorResponse](w).Code, ShouldEqual, 40002)
			}

			n, _ := env.store.Messages.CountByConversation(context.Background(), conv.ID)
			So(n, ShouldEqual, 0)
		})

		Convey("请求体不是 JSON 返回 40001", func() {
			conv := decode[model.Conversation](env.do(http.MethodPost, "/api/conversations", ""))
			w := env.do(http.MethodPost, fmt.Sprintf("/api/conversations/%d/chat", conv.ID), `not json`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode[ErrorResponse](w).Code, ShouldEqual, 40001)
		})

		Convey("非法 id 返回 40004", func() {
			for _, path := range []string{"/api/conversations/abc", "/api/conversations/0", "/api/conversations/-1/messages"} {
				w := env.do(http.MethodGet, path, "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				errResp := decode[ErrorResponse](w)
				So(errResp.Code, ShouldEqual, 40004)
				So(errResp.RequestID, ShouldEqual, testRequestID)
			}
		})

		Convey("不存在的对话返回 404", func() {
			So(env.do(http.MethodGet, "/api/conversations/999", "").Code, ShouldEqual, http.StatusNotFound)
			So(env.do(http.MethodGet, "/api/conversations/999/messages", "").Code, ShouldEqual, http.StatusNotFound)
			So(env.do(http.MethodDelete, "/api/conversations/999", "").Code, ShouldEqual, http.StatusNotFound)

			w := env.do(http.MethodPost, "/api/conversations/999/chat", `{"message":"hi"}`)
			So(w.Code, ShouldEqual, http.StatusNotFound)
			errResp := decode[ErrorResponse](w)
			So(errResp.Code, ShouldEqual, 40401)
			So(errResp.Message, ShouldEqual, "Conversation not found")
			So(errResp.RequestID, ShouldEqual, testRequestID)
		})

		Convey("删除对话后消息一并删除", func() {
			conv := decode[model.Conversation](env.do(http.MethodPost, "/api/conversations", ""))
			path := fmt.Sprintf("/api/conversations/%d", conv.ID)
			So(env.do(http.MethodPost, path+"/chat", `{"message":"hi"}`).Code, ShouldEqual, http.StatusOK)

			w := env.do(http.MethodDelete, path, "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[model.DeleteResponse](w).Deleted, ShouldBeTrue)

			So(env.do(http.MethodGet, path+"/messages", "").Code, ShouldEqual, http.StatusNotFound)
			n, _ := env.store.Messages.CountByConversation(context.Background(), conv.ID)
			So(n, ShouldEqual, 0)
		})
	})
}

func TestAskAPI(t *testing.T) {
	Convey("旧版 /ask 接口", t, func() {
		env := newTestEnv(t, false)

		Convey("返回问答并保存", func() {
			w := env.do(http.MethodPost, "/ask", `{"question":"What is Go?"}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			resp := decode[model.AskResponse](w)
			So(resp.Question, ShouldEqual, "What is Go?")
			So(resp.Answer, ShouldNotBeBlank)

			items, _ := env.store.QnA.List(context.Background(), 10)
			So(len(items), ShouldEqual, 1)
		})

		Convey("空问题返回 40003", func() {
			w := env.do(http.MethodPost, "/ask", `{"question":""}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode[ErrorResponse](w).Code, ShouldEqual, 40003)
		})
	})
}

func TestUpstreamFailure(t *testing.T) {
	Convey("AI 服务失败", t, func() {
		env := newTestEnv(t, true)

		Convey("对话返回 502 且不写入", func() {
			conv := decode[model.Conversation](env.do(http.MethodPost, "/api/conversations", ""))
			w := env.do(http.MethodPost, fmt.Sprintf("/api/conversations/%d/chat", conv.ID), `{"message":"hi"}`)
			So(w.Code, ShouldEqual, http.StatusBadGateway)
			So(decode[ErrorResponse](w).Code, ShouldEqual, 50201)

			n, _ := env.store.Messages.CountByConversation(context.Background(), conv.ID)
			So(n, ShouldEqual, 0)
		})

		Convey("/ask 没有候选时返回原始错误消息", func() {
			w := env.do(http.MethodPost, "/ask", `{"question":"q"}`)
			So(w.Code, ShouldEqual, http.StatusBadGateway)
			So(decode[ErrorResponse](w).Message, ShouldEqual, "No response choices from OpenAI")
		})
	})
}

func TestHealthHandler(t *testing.T) {
	Convey("就绪检查", t, func() {
		ready := func(h *HealthHandler) *httptest.ResponseRecorder {
			gin.SetMode(gin.TestMode)
			engine := gin.New()
			engine.GET("/ready", h.Ready)
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
			return w
		}

		Convey("数据库可用，未启用缓存", func() {
			env := newTestEnv(t, false)
			w := env.do(http.MethodGet, "/ready", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode[map[string]string](w)
			So(body["status"], ShouldEqual, "ready")
			So(body["cache"], ShouldEqual, "disabled")
		})

		Convey("数据库不可达返回 503", func() {
			w := ready(NewHealthHandler(downDB{}, nil))
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(decode[ErrorResponse](w).Code, ShouldEqual, 50301)
		})

		Convey("缓存可达", func() {
			w := ready(NewHealthHandler(upDB{}, upDB{}))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[map[string]string](w)["cache"], ShouldEqual, "ok")
		})

		Convey("缓存不可达时仍然就绪", func() {
			w := ready(NewHealthHandler(upDB{}, downDB{}))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[map[string]string](w)["cache"], ShouldEqual, "unavailable")
		})
	})
}
