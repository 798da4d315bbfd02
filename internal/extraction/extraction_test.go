package extraction

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type mockOCR struct {
	text       string
	err        error
	calls      int
	lastImage  []byte
	closeCalls int
}

func (m *mockOCR) Transcribe(_ context.Context, pngData []byte) (string, error) {
	m.calls++
	m.lastImage = pngData
	return m.text, m.err
}

func (m *mockOCR) Close() error {
	m.closeCalls++
	return nil
}

func encodePNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

func encodeJPEG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	var buf bytes.Buffer
	Expect(jpeg.Encode(&buf, img, nil)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("TextExtractor", func() {
	var (
		ocr       *mockOCR
		extractor *TextExtractor
	)

	BeforeEach(func() {
		ocr = &mockOCR{text: "Demo Store\nMilk 1,50"}
	})

	JustBeforeEach(func() {
		extractor = NewTextExtractor(ocr)
	})

	When("the upload is plain text", func() {
		It("should pass it through untouched", func() {
			text, err := extractor.ExtractText(context.Background(), []byte("Demo Store\nMilk 1,50"), "text/plain")
			Expect(err).ToNot(HaveOccurred())
			Expect(text).To(Equal("Demo Store\nMilk 1,50"))
			Expect(ocr.calls).To(Equal(0))
		})

		It("should treat a missing content type as text", func() {
			text, err := extractor.ExtractText(context.Background(), []byte("Milk 1,50"), "")
			Expect(err).ToNot(HaveOccurred())
			Expect(text).To(Equal("Milk 1,50"))
		})

		It("should reject invalid UTF-8", func() {
			_, err := extractor.ExtractText(context.Background(), []byte{0xff, 0xfe, 0xfd}, "text/plain")
			Expect(err).To(MatchError(ContainSubstring("not valid UTF-8")))
		})
	})

	When("the upload is a PNG image", func() {
		It("should hand it to the OCR backend as-is", func() {
			data := encodePNG()
			text, err := extractor.ExtractText(context.Background(), data, "image/png")
			Expect(err).ToNot(HaveOccurred())
			Expect(text).To(Equal("Demo Store\nMilk 1,50"))
			Expect(ocr.lastImage).To(Equal(data))
		})
	})

	When("the upload is a JPEG image", func() {
		It("should normalize to PNG before OCR", func() {
			text, err := extractor.ExtractText(context.Background(), encodeJPEG(), "image/jpeg")
			Expect(err).ToNot(HaveOccurred())
			Expect(text).To(Equal("Demo Store\nMilk 1,50"))

			_, format, err := image.Decode(bytes.NewReader(ocr.lastImage))
			Expect(err).ToNot(HaveOccurred())
			Expect(format).To(Equal("png"))
		})
	})

	When("the image cannot be decoded", func() {
		It("should fail without calling OCR", func() {
			_, err := extractor.ExtractText(context.Background(), []byte("not an image"), "image/jpeg")
			Expect(err).To(MatchError(ContainSubstring("decoding image")))
			Expect(ocr.calls).To(Equal(0))
		})
	})

	When("the OCR backend fails", func() {
		BeforeEach(func() {
			ocr.err = errors.New("vision model unavailable")
		})

		It("should surface the error", func() {
			_, err := extractor.ExtractText(context.Background(), encodePNG(), "image/png")
			Expect(err).To(MatchError(ocr.err))
		})
	})

	When("no OCR backend is configured", func() {
		JustBeforeEach(func() {
			extractor = NewTextExtractor(nil)
		})

		It("should still pass text through", func() {
			text, err := extractor.ExtractText(context.Background(), []byte("Milk 1,50"), "text/plain")
			Expect(err).ToNot(HaveOccurred())
			Expect(text).To(Equal("Milk 1,50"))
		})

		It("should reject image uploads", func() {
			_, err := extractor.ExtractText(context.Background(), encodePNG(), "image/png")
			Expect(err).To(MatchError(ContainSubstring("no OCR backend configured")))
		})

		It("should close without error", func() {
			Expect(extractor.Close()).To(Succeed())
		})
	})

	It("should close the OCR backend", func() {
		Expect(extractor.Close()).To(Succeed())
		Expect(ocr.closeCalls).To(Equal(1))
	})
})

var _ = Describe("normalizeToPNG", func() {
	It("should pass PNG data through unconverted", func() {
		data := encodePNG()
		out, converted, err := normalizeToPNG(data, "image/png")
		Expect(err).ToNot(HaveOccurred())
		Expect(converted).To(BeFalse())
		Expect(out).To(Equal(data))
	})

	It("should convert JPEG data", func() {
		out, converted, err := normalizeToPNG(encodeJPEG(), "image/jpeg")
		Expect(err).ToNot(HaveOccurred())
		Expect(converted).To(BeTrue())

		_, format, err := image.Decode(bytes.NewReader(out))
		Expect(err).ToNot(HaveOccurred())
		Expect(format).To(Equal("png"))
	})
})

var _ = Describe("isHEICData", func() {
	It("should recognize ftyp brands", func() {
		Expect(isHEICData([]byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00"))).To(BeTrue())
		Expect(isHEICData([]byte("\x00\x00\x00\x18ftypmif1\x00\x00\x00\x00"))).To(BeTrue())
	})

	It("should reject other containers", func() {
		Expect(isHEICData([]byte("\x00\x00\x00\x18ftypisom\x00\x00\x00\x00"))).To(BeFalse())
		Expect(isHEICData(encodePNG())).To(BeFalse())
		Expect(isHEICData([]byte("short"))).To(BeFalse())
	})
})
