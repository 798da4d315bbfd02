package parsing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("NormalizeNumber", func() {
	var (
		input string
		value float64
		ok    bool
	)

	JustBeforeEach(func() {
		value, ok = NormalizeNumber(input)
	})

	When("the decimal mark is a comma", func() {
		BeforeEach(func() {
			input = "12,50"
		})

		It("should parse the value", func() {
			Expect(ok).To(BeTrue())
			Expect(value).To(Equal(12.50))
		})
	})

	When("the decimal mark is a dot", func() {
		BeforeEach(func() {
			input = "12.50"
		})

		It("should parse the value", func() {
			Expect(ok).To(BeTrue())
			Expect(value).To(Equal(12.50))
		})
	})

	When("the value has a single decimal digit", func() {
		BeforeEach(func() {
			input = "3.5"
		})

		It("should parse the value", func() {
			Expect(ok).To(BeTrue())
			Expect(value).To(Equal(3.5))
		})
	})

	When("a currency symbol precedes the number", func() {
		BeforeEach(func() {
			input = "€ 12,00"
		})

		It("should strip the symbol and parse", func() {
			Expect(ok).To(BeTrue())
			Expect(value).To(Equal(12.0))
		})
	})

	When("the value is negative", func() {
		BeforeEach(func() {
			input = "-5,00"
		})

		It("should keep the sign", func() {
			Expect(ok).To(BeTrue())
			Expect(value).To(Equal(-5.0))
		})
	})

	When("the input has no digits", func() {
		BeforeEach(func() {
			input = "abc"
		})

		It("should report absence, not zero", func() {
			Expect(ok).To(BeFalse())
		})
	})

	When("the input is empty", func() {
		BeforeEach(func() {
			input = ""
		})

		It("should report absence", func() {
			Expect(ok).To(BeFalse())
		})
	})

	When("the value is thousands-grouped", func() {
		BeforeEach(func() {
			input = "1.234,56"
		})

		// The comma is always read as a decimal mark, so grouped values do
		// not survive the mapping. Kept as-is.
		It("should report absence", func() {
			Expect(ok).To(BeFalse())
		})
	})
})
