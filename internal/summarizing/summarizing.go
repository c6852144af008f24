package summarizing

import "errors"

// ErrUpstream indicates the provider call failed: transport error, timeout,
// non-success status or an empty response.
var ErrUpstream = errors.New("upstream provider failure")

// ErrBadResponse indicates the provider answered but the text was not a JSON
// object matching the summary contract.
var ErrBadResponse = errors.New("upstream returned malformed data")

// Summary is the validated tax notice summary. It is the decoded provider
// response passed through to callers unmodified.
type Summary map[string]any

// Summarizer defines the interface for notice summarization operations
type Summarizer interface {
	// Summarize sends the extracted notice text to the provider and returns
	// the validated structured summary
	Summarize(text string) (Summary, error)
	// Close closes the summarizer and releases resources
	Close() error
}

// noticeSummaryPrompt is the instruction prompt sent with the extracted notice
// text. It enumerates the exact output contract so the provider returns a
// predictable object.
const noticeSummaryPrompt = `You are an expert IRS tax notice summarizer. Analyze the following text extracted from an IRS tax notice and return a JSON object with the summary.

The JSON object must have exactly these keys:
- "noticeType": the IRS notice designation printed on the document (e.g. "CP14", "CP2000")
- "noticeFor": the taxpayer's full name
- "address": the taxpayer's mailing address as a single string
- "ssn": the taxpayer's Social Security number masked as XXX-XX-1234, keeping only the last four digits
- "amountDue": the total amount due as a currency string (e.g. "$1,234.56")
- "payBy": the payment due date as a long-form date string (e.g. "Jan 1, 2030")
- "breakdown": an array of {"item": string, "amount": string} pairs itemizing tax, penalties and interest
- "noticeMeaning": a plain-English explanation of what this notice means
- "reason": why the taxpayer received this notice
- "fixSteps": an array of concrete steps the taxpayer should take to resolve it
- "paymentOptions": an object describing the available ways to pay (online, by mail, installment plan)
- "helpContact": an object with the IRS phone number and the hours to call for help

Important:
- Return ONLY the JSON object, with no text before or after it
- Do not use markdown code blocks
- If a value cannot be found in the notice, use null for that key

Here is the notice text:
---
%s
---`
