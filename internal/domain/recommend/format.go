package recommend

// TextFormat tags how a stored rich-text field must be rendered.
type TextFormat int

const (
	FormatAuto  TextFormat = 0 // plain text, blank lines become paragraphs
	FormatHTML  TextFormat = 1
	FormatPlain TextFormat = 2
)

func (f TextFormat) Valid() bool {
	return f == FormatAuto || f == FormatHTML || f == FormatPlain
}
