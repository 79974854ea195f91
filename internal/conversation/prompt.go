package conversation

import "fmt"

const (
	msgGreeting           = "Hello 👋 How can I assist you today?"
	msgUploadForHours     = "📄 Please upload clinic PDF(s) first so I can check working hours."
	msgUploadForServices  = "📄 Please upload clinic PDF(s) first so I can show available services."
	msgUploadForAnswers   = "📄 Please upload clinic PDF(s) from the sidebar so I can answer your questions accurately."
	msgServiceUnavailable = "❌ Sorry, this service is not available at the clinic."
	msgNothingToCancel    = "There is no booking in progress to cancel."
	msgAnswerFailed       = "⚠️ I couldn't look that up right now. Please try again in a moment."

	// NoInformationAnswer is the only answer allowed when the documents do not cover a question.
	NoInformationAnswer = "I’m sorry, I don’t have that information in the uploaded clinic documents."
)

const strictSystemPromptTemplate = `You are a STRICT clinic information assistant.

RULES:
- Answer ONLY using the CONTEXT.
- DO NOT add services, timings, prices, doctors, or assumptions.
- If the answer is NOT present, reply EXACTLY:
  "%s"

CONTEXT:
%s
`

func strictSystemPrompt(context string) string {
	return fmt.Sprintf(strictSystemPromptTemplate, NoInformationAnswer, context)
}
