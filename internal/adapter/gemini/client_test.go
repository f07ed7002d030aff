package gemini

import (
	"github.com/google/generative-ai-go/genai"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"modelchat/internal/reply"
)

var _ = Describe("partsReply", func() {
	It("maps text parts of the first candidate", func() {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{
				{Content: &genai.Content{Role: "model", Parts: []genai.Part{
					genai.Text("first"),
					genai.Blob{MIMEType: "image/png", Data: []byte{1}},
					genai.Text("second"),
				}}},
				{Content: &genai.Content{Parts: []genai.Part{genai.Text("ignored")}}},
			},
		}

		v := partsReply(resp)
		Expect(v.Kind()).To(Equal(reply.KindArray))
		Expect(v.Items()).To(HaveLen(3))
		Expect(reply.Normalize(v)).To(Equal("first\nsecond"))
	})

	It("returns null without candidates", func() {
		Expect(partsReply(&genai.GenerateContentResponse{}).IsNull()).To(BeTrue())
		Expect(partsReply(nil).IsNull()).To(BeTrue())
		Expect(reply.Normalize(partsReply(nil))).To(Equal(reply.NoResponse))
	})

	It("returns null when the candidate has no content", func() {
		resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}
		Expect(partsReply(resp).IsNull()).To(BeTrue())
	})
})
