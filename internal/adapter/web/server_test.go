package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"modelchat/internal/adapter/memory"
	"modelchat/internal/config"
	"modelchat/internal/domain"
	"modelchat/internal/usecase/chat"
	"modelchat/internal/usecase/mock"
)

type fakeGateway struct {
	sendFn func(ctx context.Context, prompt, model string) (string, error)
}

func (f *fakeGateway) Send(ctx context.Context, prompt, model string) (string, error) {
	if f.sendFn != nil {
		return f.sendFn(ctx, prompt, model)
	}
	return "ok", nil
}

type fixedAvailability domain.GatewayStatus

func (f fixedAvailability) Status() domain.GatewayStatus {
	return domain.GatewayStatus(f)
}

var testConfig = config.Config{
	HTTPAddr:     "127.0.0.1:0",
	DefaultModel: "fast",
	Greeting:     "welcome",
	Models: []config.Model{
		{ID: "fast", Name: "Fast", Provider: config.ProviderOpenAI, ProviderModel: "gpt-4o-mini"},
		{ID: "local", Name: "Local", Provider: config.ProviderHTTP, ProviderModel: "default"},
	},
}

var _ = Describe("Server", func() {
	var (
		gw      *fakeGateway
		avail   fixedAvailability
		cfg     config.Config
		svc     *chat.Service
		handler http.Handler
	)

	BeforeEach(func() {
		gw = &fakeGateway{}
		avail = fixedAvailability{State: domain.GatewayReady}
		cfg = testConfig
	})

	JustBeforeEach(func() {
		svc = chat.NewService(memory.NewStore(), gw, avail, cfg)
		svc.Greet()
		handler = NewServer(cfg, svc).Routes()
	})

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	decode := func(rr *httptest.ResponseRecorder, into any) {
		Expect(json.NewDecoder(rr.Body).Decode(into)).To(Succeed())
	}

	It("serves the chat page", func() {
		rr := do(http.MethodGet, "/", "")
		Expect(rr.Code).To(Equal(http.StatusOK))
		Expect(rr.Header().Get("Content-Type")).To(ContainSubstring("text/html"))
		Expect(rr.Body.String()).To(ContainSubstring("/api/messages"))
	})

	It("reports health", func() {
		rr := do(http.MethodGet, "/health", "")
		Expect(rr.Code).To(Equal(http.StatusOK))
		Expect(rr.Body.String()).To(ContainSubstring(`"ok"`))
	})

	It("lists the model catalog", func() {
		rr := do(http.MethodGet, "/api/models", "")
		Expect(rr.Code).To(Equal(http.StatusOK))

		var body modelsResponse
		decode(rr, &body)
		Expect(body.Default).To(Equal("fast"))
		Expect(body.Models).To(HaveLen(2))
		Expect(body.Models[1].Name).To(Equal("Local"))
	})

	Describe("POST /api/messages", func() {
		It("answers through the gateway", func() {
			gw.sendFn = func(_ context.Context, prompt, model string) (string, error) {
				return model + ": " + prompt, nil
			}

			rr := do(http.MethodPost, "/api/messages", `{"prompt":"hi there","model":"local"}`)
			Expect(rr.Code).To(Equal(http.StatusOK))

			var res chat.Result
			decode(rr, &res)
			Expect(res.Outcome).To(Equal(chat.OutcomeDelivered))
			Expect(res.User.Content).To(Equal("hi there"))
			Expect(res.Assistant.Content).To(Equal("local: hi there"))
		})

		It("reports a fallback reply when the gateway fails", func() {
			gw.sendFn = func(context.Context, string, string) (string, error) {
				return "", errors.New("down")
			}

			rr := do(http.MethodPost, "/api/messages", `{"prompt":"xyz"}`)
			Expect(rr.Code).To(Equal(http.StatusOK))

			var res chat.Result
			decode(rr, &res)
			Expect(res.Outcome).To(Equal(chat.OutcomeFallenBack))
			Expect(res.Assistant.Content).To(Equal(mock.Fallback))

			status := do(http.MethodGet, "/api/status", "")
			var st chat.Status
			decode(status, &st)
			Expect(st.LastError).To(Equal("down"))
			Expect(st.State).To(Equal(chat.StateIdle))
		})

		DescribeTable("rejections",
			func(body string, code int, errCode string) {
				rr := do(http.MethodPost, "/api/messages", body)
				Expect(rr.Code).To(Equal(code))

				var resp errorResponse
				decode(rr, &resp)
				Expect(resp.Error.Code).To(Equal(errCode))
				Expect(svc.Messages()).To(HaveLen(1))
			},
			Entry("invalid json", `{`, http.StatusBadRequest, "VALIDATION_ERROR"),
			Entry("oversized body", `{"prompt":"`+strings.Repeat("a", maxSubmitBytes)+`"}`, http.StatusBadRequest, "VALIDATION_ERROR"),
			Entry("blank prompt", `{"prompt":"   "}`, http.StatusBadRequest, "VALIDATION_ERROR"),
			Entry("unknown model", `{"prompt":"hi","model":"nope"}`, http.StatusBadRequest, "UNKNOWN_MODEL"),
		)

		Context("with a tight rate limit", func() {
			BeforeEach(func() {
				cfg.SubmitPerMinute = 1
			})

			It("rejects the second submission", func() {
				Expect(do(http.MethodPost, "/api/messages", `{"prompt":"one"}`).Code).To(Equal(http.StatusOK))

				rr := do(http.MethodPost, "/api/messages", `{"prompt":"two"}`)
				Expect(rr.Code).To(Equal(http.StatusTooManyRequests))
				Expect(svc.Messages()).To(HaveLen(3))
			})

			It("shares one bucket across connections from the same address", func() {
				post := func(remote string) int {
					req := httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(`{"prompt":"x"}`))
					req.RemoteAddr = remote
					rr := httptest.NewRecorder()
					handler.ServeHTTP(rr, req)
					return rr.Code
				}

				Expect(post("10.0.0.1:1000")).To(Equal(http.StatusOK))
				Expect(post("10.0.0.1:1001")).To(Equal(http.StatusTooManyRequests))
				Expect(post("10.0.0.2:1000")).To(Equal(http.StatusOK))
			})
		})
	})

	Describe("GET /api/messages", func() {
		It("returns the conversation", func() {
			do(http.MethodPost, "/api/messages", `{"prompt":"q"}`)

			var body messagesResponse
			decode(do(http.MethodGet, "/api/messages", ""), &body)
			Expect(body.Messages).To(HaveLen(3))
			Expect(body.Messages[0].Role).To(Equal(domain.RoleSystem))

			decode(do(http.MethodGet, "/api/messages?limit=1", ""), &body)
			Expect(body.Messages).To(HaveLen(1))
			Expect(body.Messages[0].Role).To(Equal(domain.RoleAssistant))
		})

		It("rejects a bad limit", func() {
			Expect(do(http.MethodGet, "/api/messages?limit=-2", "").Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("websocket", func() {
		var (
			server *httptest.Server
			conn   *websocket.Conn
		)

		JustBeforeEach(func() {
			server = httptest.NewServer(handler)
			DeferCleanup(server.Close)

			var err error
			conn, _, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", nil)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(conn.Close)
		})

		readEvent := func() event {
			Expect(conn.SetReadDeadline(time.Now().Add(2 * time.Second))).To(Succeed())
			var ev event
			Expect(conn.ReadJSON(&ev)).To(Succeed())
			return ev
		}

		It("sends a snapshot and then every new message", func() {
			snapshot := readEvent()
			Expect(snapshot.Type).To(Equal(eventSnapshot))
			Expect(snapshot.Messages).To(HaveLen(1))
			Expect(snapshot.Status.Gateway.State).To(Equal(domain.GatewayReady))

			resp, err := http.Post(server.URL+"/api/messages", "application/json", bytes.NewBufferString(`{"prompt":"hello"}`))
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()

			user := readEvent()
			Expect(user.Type).To(Equal(eventMessage))
			Expect(user.Message.Role).To(Equal(domain.RoleUser))
			Expect(user.Status.State).To(Equal(chat.StateSending))

			assistant := readEvent()
			Expect(assistant.Message.Role).To(Equal(domain.RoleAssistant))
			Expect(assistant.Message.Content).To(Equal("ok"))
		})
	})
})

var _ = Describe("rateLimiter", func() {
	It("is disabled for a non-positive rate", func() {
		Expect(newRateLimiter(0)).To(BeNil())
	})

	It("refills over time per client", func() {
		now := time.Unix(1_700_000_000, 0)
		rl := newRateLimiter(2)
		rl.now = func() time.Time { return now }

		Expect(rl.allow("a")).To(BeTrue())
		Expect(rl.allow("a")).To(BeTrue())
		Expect(rl.allow("a")).To(BeFalse())
		Expect(rl.allow("b")).To(BeTrue())

		now = now.Add(30 * time.Second)
		Expect(rl.allow("a")).To(BeTrue())
	})

	DescribeTable("clientIP",
		func(remote, expected string) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = remote
			Expect(clientIP(req)).To(Equal(expected))
		},
		Entry("ipv4 with port", "10.0.0.1:1000", "10.0.0.1"),
		Entry("ipv6 with port", "[::1]:8080", "::1"),
		Entry("bare address", "10.0.0.1", "10.0.0.1"),
	)

	It("forgets idle clients", func() {
		now := time.Unix(1_700_000_000, 0)
		rl := newRateLimiter(1)
		rl.now = func() time.Time { return now }
		rl.allow("a")

		now = now.Add(2 * visitorTTL)
		rl.allow("b")
		Expect(rl.visitors).NotTo(HaveKey("a"))
	})
})
