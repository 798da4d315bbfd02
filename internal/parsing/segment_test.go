package parsing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SegmentLines", func() {
	var (
		input string
		lines []string
	)

	JustBeforeEach(func() {
		lines = SegmentLines(input)
	})

	When("the text uses unix newlines", func() {
		BeforeEach(func() {
			input = "Demo Store\nMilk 1,00\nTOTAL 5,20"
		})

		It("should split on each newline", func() {
			Expect(lines).To(Equal([]string{"Demo Store", "Milk 1,00", "TOTAL 5,20"}))
		})
	})

	When("the text uses windows newlines", func() {
		BeforeEach(func() {
			input = "Demo Store\r\nMilk 1,00\r\n"
		})

		It("should not leave carriage returns behind", func() {
			Expect(lines).To(Equal([]string{"Demo Store", "Milk 1,00"}))
		})
	})

	When("lines carry extra whitespace", func() {
		BeforeEach(func() {
			input = "  Demo   Store  \n\tMilk\t1,00\t"
		})

		It("should trim and collapse runs into single spaces", func() {
			Expect(lines).To(Equal([]string{"Demo Store", "Milk 1,00"}))
		})
	})

	When("the text contains blank lines", func() {
		BeforeEach(func() {
			input = "Demo Store\n\n   \nMilk 1,00"
		})

		It("should drop them", func() {
			Expect(lines).To(Equal([]string{"Demo Store", "Milk 1,00"}))
		})
	})

	When("the input is empty", func() {
		BeforeEach(func() {
			input = ""
		})

		It("should return no lines", func() {
			Expect(lines).To(BeEmpty())
		})
	})

	When("applied to already-segmented output", func() {
		BeforeEach(func() {
			input = "  Demo   Store  \nMilk 1,00\n\n"
		})

		It("should be idempotent", func() {
			rejoined := ""
			for i, line := range lines {
				if i > 0 {
					rejoined += "\n"
				}
				rejoined += line
			}
			Expect(SegmentLines(rejoined)).To(Equal(lines))
		})
	})
})
