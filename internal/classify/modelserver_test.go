package classify

import (
	"context"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/receiptlab/receiptlab/internal/parsing"
)

var _ = Describe("ModelServer", func() {
	var (
		server  *ghttp.Server
		backend *ModelServer
	)

	BeforeEach(func() {
		server = ghttp.NewServer()

		var err error
		backend, err = NewModelServer(server.URL(), "receipt-lines")
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	When("the server answers with label indices", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/classify"),
				ghttp.VerifyContentType("application/json"),
				ghttp.VerifyJSON(`{"model":"receipt-lines","features":[[1],[2],[3]]}`),
				ghttp.RespondWithJSONEncoded(http.StatusOK, classifyResponse{Labels: []int{0, 1, 2}}),
			))
		})

		It("should map them through the fixed index table", func() {
			labels, err := backend.Classify(context.Background(),
				[]string{"a", "b", "c"}, [][]float64{{1}, {2}, {3}})
			Expect(err).ToNot(HaveOccurred())
			Expect(labels).To(Equal([]parsing.LineClass{
				parsing.LineItem, parsing.LineTotal, parsing.LineOther,
			}))
		})
	})

	When("the server answers with an error status", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "model not loaded"))
		})

		It("should surface the status and body", func() {
			_, err := backend.Classify(context.Background(), []string{"a"}, [][]float64{{1}})
			Expect(err).To(MatchError(ContainSubstring("status 500")))
			Expect(err).To(MatchError(ContainSubstring("model not loaded")))
		})
	})

	When("the server returns the wrong label count", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, classifyResponse{Labels: []int{0}}))
		})

		It("should fail", func() {
			_, err := backend.Classify(context.Background(), []string{"a", "b"}, [][]float64{{1}, {2}})
			Expect(err).To(MatchError(ContainSubstring("expected 2 labels, got 1")))
		})
	})

	When("the server is unreachable", func() {
		It("should fail", func() {
			server.Close()
			_, err := backend.Classify(context.Background(), []string{"a"}, [][]float64{{1}})
			Expect(err).To(MatchError(ContainSubstring("calling model server")))
		})
	})

	It("should default the address and model name", func() {
		defaulted, err := NewModelServer("", "")
		Expect(err).ToNot(HaveOccurred())
		Expect(defaulted.baseURL).To(Equal("http://localhost:8500"))
		Expect(defaulted.Version()).To(Equal("receipt-lines"))
	})
})
