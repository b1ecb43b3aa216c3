package extract

import (
	"fmt"
	"strings"
)

// SystemPrompt frames the model as a structured-data extractor.
const SystemPrompt = "You are a helpful assistant that extracts structured data from text."

// pageMarker is how the OCR step separates pages in the joined text.
const pageMarker = "------"

const fieldList = `- date: The payment date (if available)
- amount: The payment amount with currency (if available)
- payee: The recipient name (if available)
- payer: The sender name (if available)
- reference: Any reference number (if available)
- invoice: The invoice number (e.g., 25-AVS-RES-00109-RN) (if available)`

const singlePagePrompt = `Extract the following information from this bank payment advice text as a JSON object:
%s

Text:
%s

Respond only with valid JSON.`

const multiPagePrompt = `Extract information from this multi-page bank payment advice text. Each page is separated by "------".
For each page, extract all available information:
%s
- page_number: The page number this information came from

Return as a JSON array of objects. Process ALL pages, even if they don't contain complete payment information or invoice numbers.

Text:
%s

Respond only with valid JSON array.`

// IsMultiPage reports whether text holds several OCR pages.
func IsMultiPage(text string) bool {
	return strings.Contains(text, pageMarker)
}

// BuildPrompt returns the user prompt for text, asking for an array of
// per-page objects when the text spans several pages.
func BuildPrompt(text string) string {
	if IsMultiPage(text) {
		return fmt.Sprintf(multiPagePrompt, fieldList, text)
	}
	return fmt.Sprintf(singlePagePrompt, fieldList, text)
}
