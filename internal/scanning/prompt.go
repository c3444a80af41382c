package scanning

// invoiceSystemPrompt is shared by every provider
const invoiceSystemPrompt = `You are an expert reader of invoice images. Extract the following fields:
- Date
- Invoice Type (A, B, C, M, E, T)
- Invoice Number
- Seller Name
- Total Amount

Return ONLY a JSON object with exactly these keys: "Date", "Invoice Type", "Invoice Number", "Seller Name", "Total Amount".
Copy the total amount as printed on the invoice. If you cannot find a field, use null for that field.
Respond with JSON only.`

const invoiceUserPrompt = "Extract the data from this invoice."

const (
	defaultTemperature = 0
	defaultMaxTokens   = 1000
)
