package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/papercomputeco/modelgate/pkg/auth"
	"github.com/papercomputeco/modelgate/pkg/eventstream/nop"
	"github.com/papercomputeco/modelgate/pkg/llm"
	"github.com/papercomputeco/modelgate/pkg/logger"
	"github.com/papercomputeco/modelgate/pkg/ratelimit"
	"github.com/papercomputeco/modelgate/pkg/relay"
	"github.com/papercomputeco/modelgate/pkg/storage/inmemory"
)

// sseEvent is one parsed server-sent event.
type sseEvent struct {
	Event string
	Data  string
}

// parseSSE splits a raw SSE body into events.
func parseSSE(body string) []sseEvent {
	var events []sseEvent
	for _, block := range strings.Split(body, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		var ev sseEvent
		for _, line := range strings.Split(block, "\n") {
			if name, ok := strings.CutPrefix(line, "event: "); ok {
				ev.Event = name
			}
			if data, ok := strings.CutPrefix(line, "data: "); ok {
				ev.Data = data
			}
		}
		events = append(events, ev)
	}
	return events
}

var _ = Describe("SSE chat stream", func() {
	var (
		prov    *stubProvider
		limiter *ratelimit.Store
		server  *Server
		token   string
	)

	newStreamServer := func() *Server {
		limiter = ratelimit.NewStore(testClasses(), ratelimit.WithSweepInterval(time.Hour))
		return NewServer(
			Config{
				ListenAddr:       ":0",
				BcryptCost:       bcrypt.MinCost,
				RateLimitEnabled: true,
			},
			Deps{
				Provider: prov,
				Limiter:  limiter,
				Users:    inmemory.NewUserStore(),
				Tokens:   auth.NewTokenManager("test-secret-0123456789abcdef0123456789", "modelgate", time.Hour),
				Events:   nop.NewPublisher(),
				Relay:    relay.New(relay.Config{InterChunkTimeout: time.Second}, logger.Nop()),
				Logger:   logger.Nop(),
			},
		)
	}

	login := func() string {
		creds, err := json.Marshal(map[string]string{
			"email":    "streamer@example.com",
			"password": "hunter2hunter2",
		})
		Expect(err).NotTo(HaveOccurred())

		req := httptest.NewRequest(http.MethodPost, "/v1/auth/signup", bytes.NewReader(creds))
		req.Header.Set("Content-Type", "application/json")
		resp, err := server.app.Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		resp.Body.Close()

		req = httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(creds))
		req.Header.Set("Content-Type", "application/json")
		resp, err = server.app.Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var out struct {
			AccessToken string `json:"access_token"`
		}
		Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
		return out.AccessToken
	}

	streamRequest := func() *http.Response {
		payload, err := json.Marshal(map[string]any{
			"model":    "llama3",
			"messages": []map[string]string{{"role": "user", "content": "stream please"}},
		})
		Expect(err).NotTo(HaveOccurred())

		req := httptest.NewRequest(http.MethodPost, "/v1/chat/stream", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := server.app.Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	AfterEach(func() {
		if limiter != nil {
			limiter.Close()
		}
	})

	Context("when the upstream stream completes", func() {
		BeforeEach(func() {
			prov = &stubProvider{chunks: []llm.ChatChunk{
				{Model: "llama3", Content: "a"},
				{Model: "llama3", Content: "b"},
				{Model: "llama3", Content: "", Done: true},
			}}
			server = newStreamServer()
			token = login()
		})

		It("relays every chunk as its own event, in order", func() {
			resp := streamRequest()
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/event-stream"))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())

			events := parseSSE(string(body))
			Expect(events).To(HaveLen(3))

			var contents []string
			for _, ev := range events {
				Expect(ev.Event).To(Equal("chunk"))
				var chunk llm.ChatChunk
				Expect(json.Unmarshal([]byte(ev.Data), &chunk)).To(Succeed())
				contents = append(contents, chunk.Content)
			}
			Expect(contents).To(Equal([]string{"a", "b", ""}))

			var last llm.ChatChunk
			Expect(json.Unmarshal([]byte(events[2].Data), &last)).To(Succeed())
			Expect(last.Done).To(BeTrue())
		})
	})

	Context("when the upstream stream fails mid-way", func() {
		BeforeEach(func() {
			prov = &stubProvider{
				chunks:  []llm.ChatChunk{{Model: "llama3", Content: "partial"}},
				chatErr: llm.ErrUpstreamUnavailable,
			}
			server = newStreamServer()
			token = login()
		})

		It("emits the partial chunks and then a terminal error event", func() {
			resp := streamRequest()
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())

			events := parseSSE(string(body))
			Expect(len(events)).To(Equal(2))
			Expect(events[0].Event).To(Equal("chunk"))
			Expect(events[1].Event).To(Equal("error"))

			var envelope llm.ErrorResponse
			Expect(json.Unmarshal([]byte(events[1].Data), &envelope)).To(Succeed())
			Expect(envelope.Error.Code).To(Equal("upstream_unavailable"))
		})
	})

	Context("when the request is invalid", func() {
		BeforeEach(func() {
			prov = &stubProvider{}
			server = newStreamServer()
			token = login()
		})

		It("rejects before opening an upstream stream", func() {
			payload, err := json.Marshal(map[string]any{
				"model":    "llama3",
				"messages": []any{},
			})
			Expect(err).NotTo(HaveOccurred())

			req := httptest.NewRequest(http.MethodPost, "/v1/chat/stream", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+token)

			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
			Expect(prov.streamCalls).To(BeZero())
		})
	})
})
