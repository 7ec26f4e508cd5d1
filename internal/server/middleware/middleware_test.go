package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	"gptclone/internal/pkg/ctxutil"
	"gptclone/internal/pkg/id"
)

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(Recovery(), RequestID(), Logger(), CORS(nil))
	engine.GET("/ping", handlers...)
	return engine
}

func TestRequestID(t *testing.T) {
	Convey("RequestID", t, func() {
		var seen string
		engine := newEngine(func(c *gin.Context) {
			seen, _ = ctxutil.GetRequestID(c.Request.Context())
			c.Status(http.StatusNoContent)
		})

		Convey("未传入时生成新的 UUID", func() {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

			rid := w.Header().Get(RequestIDHeader)
			_, err := uuid.Parse(rid)
			So(err, ShouldBeNil)
			So(seen, ShouldEqual, rid)
		})

		Convey("沿用客户端传入的合法 UUID", func() {
			incoming := id.New()
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			req.Header.Set(RequestIDHeader, incoming)
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			So(w.Header().Get(RequestIDHeader), ShouldEqual, incoming)
		})

		Convey("非法值被替换", func() {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			req.Header.Set(RequestIDHeader, "not-a-uuid")
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			So(w.Header().Get(RequestIDHeader), ShouldNotEqual, "not-a-uuid")
		})
	})
}

func TestRecovery(t *testing.T) {
	Convey("panic 返回 500 和错误码 50000", t, func() {
		engine := newEngine(func(c *gin.Context) { panic("boom") })

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

		So(w.Code, ShouldEqual, http.StatusInternalServerError)
		So(w.Body.String(), ShouldContainSubstring, `"code":50000`)
		So(w.Body.String(), ShouldContainSubstring, `"error":"Internal Server Error"`)
		So(w.Body.String(), ShouldContainSubstring, `"request_id":"`+w.Header().Get(RequestIDHeader)+`"`)
	})
}

func TestCORS(t *testing.T) {
	Convey("CORS", t, func() {
		Convey("默认允许任意来源", func() {
			engine := newEngine(func(c *gin.Context) { c.Status(http.StatusOK) })
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			req.Header.Set("Origin", "http://example.com")
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
		})

		Convey("限定来源时拒绝其他来源", func() {
			gin.SetMode(gin.TestMode)
			engine := gin.New()
			engine.Use(CORS([]string{"http://localhost:3000"}))
			engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			req.Header.Set("Origin", "http://evil.example")
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusForbidden)
		})
	})
}
