package classify

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/receiptlab/receiptlab/internal/parsing"
)

type fakeBackend struct {
	labels   []parsing.LineClass
	err      error
	version  string
	calls    int
	closed   int
	closeErr error
}

func (b *fakeBackend) Classify(_ context.Context, lines []string, _ [][]float64) ([]parsing.LineClass, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	if b.labels != nil {
		return b.labels, nil
	}
	return allOther(len(lines)), nil
}

func (b *fakeBackend) Version() string { return b.version }

func (b *fakeBackend) Close() error {
	b.closed++
	return b.closeErr
}

var _ = Describe("Session", func() {
	var (
		session   *Session
		backend   *fakeBackend
		loadCalls int
		loadErr   error
	)

	BeforeEach(func() {
		backend = &fakeBackend{version: "v1"}
		loadCalls = 0
		loadErr = nil
		session = NewSession(func() (Backend, error) {
			loadCalls++
			if loadErr != nil {
				return nil, loadErr
			}
			return backend, nil
		})
	})

	It("should start not loaded without invoking the loader", func() {
		Expect(session.State()).To(Equal(StateNotLoaded))
		Expect(loadCalls).To(Equal(0))
	})

	When("the loader succeeds", func() {
		It("should load once and reuse the backend", func() {
			first, err := session.EnsureLoaded()
			Expect(err).ToNot(HaveOccurred())
			Expect(session.State()).To(Equal(StateLoaded))

			second, err := session.EnsureLoaded()
			Expect(err).ToNot(HaveOccurred())
			Expect(second).To(BeIdenticalTo(first))
			Expect(loadCalls).To(Equal(1))
		})
	})

	When("the loader fails", func() {
		BeforeEach(func() {
			loadErr = errors.New("model file missing")
		})

		It("should record the failure", func() {
			_, err := session.EnsureLoaded()
			Expect(err).To(MatchError(loadErr))
			Expect(session.State()).To(Equal(StateFailed))
			Expect(session.Err()).To(MatchError(loadErr))
		})

		It("should keep the failure sticky without retrying", func() {
			_, _ = session.EnsureLoaded()
			_, err := session.EnsureLoaded()
			Expect(err).To(MatchError(loadErr))
			Expect(loadCalls).To(Equal(1))
		})

		It("should retry after Reset", func() {
			_, _ = session.EnsureLoaded()
			loadErr = nil
			session.Reset()
			Expect(session.State()).To(Equal(StateNotLoaded))
			Expect(session.Err()).To(BeNil())

			loaded, err := session.EnsureLoaded()
			Expect(err).ToNot(HaveOccurred())
			Expect(loaded).To(BeIdenticalTo(Backend(backend)))
			Expect(loadCalls).To(Equal(2))
		})
	})

	When("closing a loaded session", func() {
		It("should close the backend and return to not loaded", func() {
			_, err := session.EnsureLoaded()
			Expect(err).ToNot(HaveOccurred())

			Expect(session.Close()).To(Succeed())
			Expect(backend.closed).To(Equal(1))
			Expect(session.State()).To(Equal(StateNotLoaded))
		})
	})

	When("closing an unloaded session", func() {
		It("should be a no-op", func() {
			Expect(session.Close()).To(Succeed())
			Expect(backend.closed).To(Equal(0))
		})
	})
})

var _ = Describe("Adapter", func() {
	var (
		adapter *Adapter
		backend *fakeBackend
		loadErr error
	)

	BeforeEach(func() {
		backend = &fakeBackend{version: "v1"}
		loadErr = nil
	})

	JustBeforeEach(func() {
		adapter = NewAdapter(NewSession(func() (Backend, error) {
			if loadErr != nil {
				return nil, loadErr
			}
			return backend, nil
		}))
	})

	When("the backend works", func() {
		BeforeEach(func() {
			backend.labels = []parsing.LineClass{parsing.LineItem, parsing.LineTotal}
		})

		It("should pass its labels through", func() {
			labels, err := adapter.Classify(context.Background(), []string{"a", "b"}, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(labels).To(Equal([]parsing.LineClass{parsing.LineItem, parsing.LineTotal}))
		})

		It("should report the backend version", func() {
			Expect(adapter.Version()).To(Equal("v1"))
		})
	})

	When("the backend cannot be loaded", func() {
		BeforeEach(func() {
			loadErr = errors.New("no api key")
		})

		It("should label every line Other without an error", func() {
			labels, err := adapter.Classify(context.Background(), []string{"a", "b", "c"}, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(labels).To(Equal(allOther(3)))
		})

		It("should report an empty version", func() {
			Expect(adapter.Version()).To(Equal(""))
		})
	})

	When("inference fails", func() {
		BeforeEach(func() {
			backend.err = errors.New("timeout")
		})

		It("should label every line Other without an error", func() {
			labels, err := adapter.Classify(context.Background(), []string{"a", "b"}, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(labels).To(Equal(allOther(2)))
		})
	})

	When("the backend returns the wrong label count", func() {
		BeforeEach(func() {
			backend.labels = []parsing.LineClass{parsing.LineItem}
		})

		It("should label every line Other without an error", func() {
			labels, err := adapter.Classify(context.Background(), []string{"a", "b"}, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(labels).To(Equal(allOther(2)))
		})
	})
})

var _ = Describe("classFromIndex", func() {
	It("should map the fixed index table", func() {
		Expect(classFromIndex(0)).To(Equal(parsing.LineItem))
		Expect(classFromIndex(1)).To(Equal(parsing.LineTotal))
		Expect(classFromIndex(2)).To(Equal(parsing.LineOther))
		Expect(classFromIndex(-1)).To(Equal(parsing.LineOther))
		Expect(classFromIndex(42)).To(Equal(parsing.LineOther))
	})
})

var _ = Describe("None", func() {
	It("should label every line Other", func() {
		labels, err := None{}.Classify(context.Background(), []string{"a", "b"}, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(labels).To(Equal(allOther(2)))
	})

	It("should have no version", func() {
		Expect(None{}.Version()).To(Equal(""))
	})
})
