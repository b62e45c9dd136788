package telegram

import (
	"io"
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

const textUpdate = `{"update_id":10,"message":{"message_id":1,"date":0,
"from":{"id":42,"is_bot":false,"first_name":"Sari","username":"sari"},
"chat":{"id":7,"type":"private"},"text":"Beli kopi"}}`

var _ = Describe("Server", func() {
	var (
		handler     *recordingHandler
		secret      string
		server      *Server
		ghttpServer *ghttp.Server
	)

	post := func(path, body string, header map[string]string) *http.Response {
		req, err := http.NewRequest(http.MethodPost, ghttpServer.URL()+path, strings.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Content-Type", "application/json")
		for k, v := range header {
			req.Header.Set(k, v)
		}
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	BeforeEach(func() {
		handler = &recordingHandler{}
		secret = ""
	})

	JustBeforeEach(func() {
		metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("# metrics"))
		})
		server = NewServer(handler, secret, metrics)
		ghttpServer = ghttp.NewServer()
		ghttpServer.AllowUnhandledRequests = true
		ghttpServer.RouteToHandler(http.MethodGet, "/health", server.ServeHTTP)
		ghttpServer.RouteToHandler(http.MethodGet, "/metrics", server.ServeHTTP)
		ghttpServer.RouteToHandler(http.MethodPost, "/", server.ServeHTTP)
		ghttpServer.RouteToHandler(http.MethodPost, "/webhook", server.ServeHTTP)
	})

	AfterEach(func() {
		ghttpServer.Close()
	})

	It("should report health", func() {
		resp, err := http.Get(ghttpServer.URL() + "/health")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(string(body)).To(Equal("ok"))
	})

	It("should expose metrics", func() {
		resp, err := http.Get(ghttpServer.URL() + "/metrics")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		Expect(string(body)).To(Equal("# metrics"))
	})

	It("should hand text updates to the handler", func() {
		resp := post("/webhook", textUpdate, nil)
		defer resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		msgs := handler.received()
		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].ChatID).To(Equal(int64(7)))
		Expect(msgs[0].User.TelegramID).To(Equal(int64(42)))
		Expect(msgs[0].User.FirstName).To(Equal("Sari"))
		Expect(msgs[0].Text).To(Equal("Beli kopi"))
	})

	It("should accept deliveries at the root path", func() {
		resp := post("/", textUpdate, nil)
		defer resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(handler.received()).To(HaveLen(1))
	})

	It("should acknowledge malformed updates", func() {
		resp := post("/webhook", "{not json", nil)
		defer resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(handler.received()).To(BeEmpty())
	})

	When("a secret is configured", func() {
		BeforeEach(func() {
			secret = "s3cret"
		})

		It("should reject deliveries without it", func() {
			resp := post("/webhook", textUpdate, nil)
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(handler.received()).To(BeEmpty())
		})

		It("should accept deliveries carrying it", func() {
			resp := post("/webhook", textUpdate, map[string]string{secretHeader: "s3cret"})
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(handler.received()).To(HaveLen(1))
		})
	})
})
