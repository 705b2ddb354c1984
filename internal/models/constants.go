package models

const (
	// Metadata keys written to the vector index alongside every chunk.
	MetaText       = "text"
	MetaBookID     = "book_id"
	MetaPageNumber = "page_number"
	MetaChunkOrder = "chunk_order"

	// CombinedIDPrefix marks retrieval results merged from several chunks
	// of the same page.
	CombinedIDPrefix = "combined_"

	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const AnswerSystemPrompt = `You answer questions about a financial policy document using provided context.
Rules:
- Use the supplied CONTEXT for facts. If missing, say you don't know.
- Be concise and cite page numbers like (p. 7) based on the context metadata.
- If the user asks a follow-up like "what about debt?", assume same topic as recent turn.
- Use numbered bullets when listing items.
- When referencing tables or data, be specific about the source table and include relevant values.
- If data spans multiple years, present it clearly year by year when possible.
- Always include proper citations with page numbers from the context.
- For table references like "Table 1.2.1", look for ALL items or objectives listed in that table.
- If a table contains multiple rows/items, list ALL of them comprehensively.
- Pay special attention to headings and subheadings in the context to understand the complete structure.
`

const ReformatPromptTemplate = `You are provided with extracted text from page %d of a financial policy PDF.
Strictly dont change any content.
Only utilize the tables and rewrite table as descriptive text instead of table format.
- Keep any table numbers/names (e.g., "Table 1.2.1") intact

Here is the extracted text from page %d:

%s

Format this text for optimal readability and return the result.
`
