package classify

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("NewBackend", func() {
	It("should build a model server backend", func() {
		backend, err := NewBackend(Config{Backend: "server", ServerURL: "http://localhost:9000"})
		Expect(err).ToNot(HaveOccurred())
		Expect(backend).To(BeAssignableToTypeOf(&ModelServer{}))
	})

	It("should treat the backend name case-insensitively", func() {
		backend, err := NewBackend(Config{Backend: "SERVER"})
		Expect(err).ToNot(HaveOccurred())
		Expect(backend).To(BeAssignableToTypeOf(&ModelServer{}))
	})

	It("should default to no classifier", func() {
		backend, err := NewBackend(Config{})
		Expect(err).ToNot(HaveOccurred())
		Expect(backend).To(Equal(None{}))
	})

	It("should reject an unknown backend name", func() {
		_, err := NewBackend(Config{Backend: "onnx"})
		Expect(err).To(MatchError(ContainSubstring("unknown classifier backend")))
	})

	It("should surface a gemini misconfiguration", func() {
		_, err := NewBackend(Config{Backend: "gemini"})
		Expect(err).To(MatchError(ContainSubstring("api key")))
	})
})

var _ = Describe("NewSessionFromConfig", func() {
	It("should defer backend construction until first use", func() {
		session := NewSessionFromConfig(Config{Backend: "gemini"})
		Expect(session.State()).To(Equal(StateNotLoaded))

		_, err := session.EnsureLoaded()
		Expect(err).To(MatchError(ContainSubstring("api key")))
		Expect(session.State()).To(Equal(StateFailed))
	})
})
