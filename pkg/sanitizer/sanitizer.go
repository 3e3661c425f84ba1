package sanitizer

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

// MaxNoteLength caps operator-entered free text.
const MaxNoteLength = 1000

// SanitizeNote normalizes operator free text: control characters stripped,
// whitespace collapsed, length capped.
func SanitizeNote(input string) string {
	p := Pipeline{
		stripControl,
		TrimAndNormalize,
		capLength(MaxNoteLength),
	}
	return p.Apply(input)
}
