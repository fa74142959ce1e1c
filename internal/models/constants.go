package models

const (
	// DefaultCollection is the collection name used when none is configured.
	DefaultCollection = "medical_reports"

	// DefaultRAGQuery is used by /rag/summarize when the caller omits a query.
	DefaultRAGQuery = "Provide a comprehensive summary of the medical report"

	// ContextSeparator joins retrieved chunks into the generation context.
	ContextSeparator = "\n\n"
)

var (
	SummaryPromptTemplate = `You are a medical assistant. Summarize the following medical report concisely and accurately. Preserve clinically relevant findings, diagnoses, medications and follow-up instructions.

Medical report:
%s

Summary:`

	AnalyzePromptTemplate = `You are a medical assistant. Use only the provided medical report to answer the question. If the report does not contain the answer, say so.

Medical report:
%s

Question: %s

Answer:`
)
