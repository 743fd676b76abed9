package constants

const (
	// ParagraphSeparator separates paragraphs inside one fragment's text.
	ParagraphSeparator = "\r"
	// LineBreak is a soft break inside a single paragraph.
	LineBreak = "\v"
)
