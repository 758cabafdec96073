package stream

import (
	"strings"

	"github.com/peteragility/smartone/internal/core"
)

// BlockType distinguishes text from image blocks.
type BlockType string

const (
	BlockText  BlockType = "text"
	BlockImage BlockType = "image"
)

// Block is one display unit of a transcript. For image blocks Content is
// the image reference (URL or path).
type Block struct {
	Type    BlockType `json:"type"`
	Content string    `json:"content"`
}

// Transcript is the ordered block sequence for one answer.
type Transcript []Block

// Markdown renders the transcript as a single markdown document.
func (t Transcript) Markdown() string {
	parts := make([]string, 0, len(t))
	for _, b := range t {
		switch b.Type {
		case BlockImage:
			parts = append(parts, "![image]("+b.Content+")")
		default:
			parts = append(parts, b.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Images returns the image references in order.
func (t Transcript) Images() []string {
	var refs []string
	for _, b := range t {
		if b.Type == BlockImage {
			refs = append(refs, b.Content)
		}
	}
	return refs
}

// Equal reports whether both transcripts hold the same blocks.
func (t Transcript) Equal(other Transcript) bool {
	if len(t) != len(other) {
		return false
	}
	for i := range t {
		if t[i] != other[i] {
			return false
		}
	}
	return true
}

// Formatter turns accumulated events into a Transcript.
type Formatter struct {
	// ImageTool is the tool whose outputs may be classified as images.
	ImageTool string

	ReasoningMarker string
	ToolMarker      string
	FinalMarker     string
}

// DefaultFormatter returns the formatter used by chat and ask.
func DefaultFormatter() Formatter {
	return Formatter{
		ImageTool:       "generate_image",
		ReasoningMarker: "🤔 **Reasoning:** ",
		ToolMarker:      "🔧 **Using tool:** ",
		FinalMarker:     "✅ **Final Answer:** ",
	}
}

// Format derives the full transcript from the accumulator. It has no side
// effects; the same snapshot always yields the same blocks.
//
// Reasoning and tool blocks come first, in emission order. Text outputs are
// merged into one paragraph after them, followed by image blocks and then
// the final answer.
func (f Formatter) Format(acc *Accumulator) Transcript {
	if acc == nil {
		return Transcript{}
	}

	var (
		blocks   = Transcript{}
		texts    []string
		images   []string
		lastTool string
	)

	for _, ev := range acc.Events() {
		switch ev.Kind {
		case KindReasoning:
			blocks = append(blocks, Block{Type: BlockText, Content: f.ReasoningMarker + ev.Text})
		case KindTool:
			lastTool = ev.Text
			blocks = append(blocks, Block{Type: BlockText, Content: f.ToolMarker + ev.Text})
		case KindOutput:
			raw, isString := ev.Data.(string)
			if !isString {
				raw = core.Stringify(ev.Data)
			}
			content := normalize(raw)
			if isString && lastTool != "" && lastTool == f.ImageTool && IsImageRef(content) {
				images = append(images, content)
				continue
			}
			texts = append(texts, content)
		}
	}

	if len(texts) > 0 {
		blocks = append(blocks, Block{Type: BlockText, Content: strings.Join(texts, " ")})
	}
	for _, ref := range images {
		blocks = append(blocks, Block{Type: BlockImage, Content: ref})
	}

	if final := acc.Final(); final != nil && strings.TrimSpace(final.Text()) != "" {
		blocks = append(blocks, Block{Type: BlockText, Content: f.FinalMarker + normalize(final.Text())})
	}
	return blocks
}

// IsImageRef reports whether s looks like an image URL or file path.
func IsImageRef(s string) bool {
	return strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "https://") ||
		strings.HasSuffix(s, ".png") ||
		strings.HasSuffix(s, ".jpg") ||
		strings.HasSuffix(s, ".jpeg")
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
