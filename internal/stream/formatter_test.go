package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peteragility/smartone/internal/testutil"
)

func accumulate(events ...Event) *Accumulator {
	acc := NewAccumulator()
	for _, ev := range events {
		acc.Apply(ev)
	}
	return acc
}

func TestFormat_EndToEnd(t *testing.T) {
	f := DefaultFormatter()
	acc := accumulate(
		Tool("calculator"), Output("4"),
		Tool("word_count"), Output("7"),
		Final("Answer: 4, words: 7"),
	)

	got := f.Format(acc)
	want := Transcript{
		{Type: BlockText, Content: "🔧 **Using tool:** calculator"},
		{Type: BlockText, Content: "🔧 **Using tool:** word_count"},
		{Type: BlockText, Content: "4 7"},
		{Type: BlockText, Content: "✅ **Final Answer:** Answer: 4, words: 7"},
	}
	assert.Equal(t, want, got)

	testutil.NewGolden(t, "testdata").AssertString("end_to_end", got.Markdown())
}

func TestFormat_Idempotent(t *testing.T) {
	f := DefaultFormatter()
	acc := accumulate(Reasoning("hmm"), Tool("generate_image"), Output("https://a/b.png"), Final("ok"))

	first := f.Format(acc)
	second := f.Format(acc)
	assert.True(t, first.Equal(second))
}

func TestFormat_DedupsConsecutiveTools(t *testing.T) {
	f := DefaultFormatter()
	got := f.Format(accumulate(Tool("x"), Tool("x"), Tool("y")))

	require.Len(t, got, 2)
	assert.Equal(t, f.ToolMarker+"x", got[0].Content)
	assert.Equal(t, f.ToolMarker+"y", got[1].Content)
}

func TestFormat_ImageClassification(t *testing.T) {
	f := DefaultFormatter()

	img := f.Format(accumulate(Tool("generate_image"), Output("https://a/b.png")))
	require.Len(t, img, 2)
	assert.Equal(t, Block{Type: BlockImage, Content: "https://a/b.png"}, img[1])

	txt := f.Format(accumulate(Tool("calculator"), Output("https://a/b.png")))
	require.Len(t, txt, 2)
	assert.Equal(t, Block{Type: BlockText, Content: "https://a/b.png"}, txt[1])

	noTool := f.Format(accumulate(Output("output/cat.png")))
	require.Len(t, noTool, 1)
	assert.Equal(t, BlockText, noTool[0].Type)
}

func TestFormat_BlockOrder(t *testing.T) {
	f := DefaultFormatter()
	acc := accumulate(
		Reasoning("plan"),
		Tool("generate_image"), Output("output/one.png"),
		Output("caption\nline"),
		Tool("generate_image"), Output("https://x/two.jpg"),
		Final("two\nimages"),
	)

	got := f.Format(acc)
	want := Transcript{
		{Type: BlockText, Content: f.ReasoningMarker + "plan"},
		{Type: BlockText, Content: f.ToolMarker + "generate_image"},
		{Type: BlockText, Content: f.ToolMarker + "generate_image"},
		{Type: BlockText, Content: "caption line"},
		{Type: BlockImage, Content: "output/one.png"},
		{Type: BlockImage, Content: "https://x/two.jpg"},
		{Type: BlockText, Content: f.FinalMarker + "two images"},
	}
	assert.Equal(t, want, got)
	assert.Equal(t, []string{"output/one.png", "https://x/two.jpg"}, got.Images())
}

func TestFormat_NonStringOutput(t *testing.T) {
	f := DefaultFormatter()
	got := f.Format(accumulate(
		Tool("generate_image"),
		Output(map[string]any{"url": "https://a/b.png"}),
		Output(42),
	))

	require.Len(t, got, 2)
	assert.Equal(t, `{"url":"https://a/b.png"} 42`, got[1].Content)
}

func TestFormat_Empty(t *testing.T) {
	f := DefaultFormatter()
	assert.Empty(t, f.Format(NewAccumulator()))
	assert.Empty(t, f.Format(nil))
}

func TestFormat_BlankFinalOmitted(t *testing.T) {
	f := DefaultFormatter()
	got := f.Format(accumulate(Tool("calculator"), Output("4"), Final("")))

	require.Len(t, got, 2)
	for _, b := range got {
		assert.NotContains(t, b.Content, f.FinalMarker)
	}
}

func TestIsImageRef(t *testing.T) {
	tests := map[string]bool{
		"https://a/b":     true,
		"http://a/b.gif":  true,
		"out/cat.png":     true,
		"cat.jpg":         true,
		"cat.jpeg":        true,
		"CAT.PNG":         false,
		"the answer is 4": false,
		"":                false,
	}
	for in, want := range tests {
		assert.Equal(t, want, IsImageRef(in), in)
	}
}

func TestTranscript_Markdown(t *testing.T) {
	tr := Transcript{
		{Type: BlockText, Content: "hello"},
		{Type: BlockImage, Content: "out/a.png"},
	}
	assert.Equal(t, "hello\n\n![image](out/a.png)", tr.Markdown())
}
