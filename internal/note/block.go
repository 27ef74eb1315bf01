package note

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// Kind tags a content block. Only KindText and KindImage exist.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Block is one ordered element of a note's content. The zero value is not a
// valid block; use Text or Image.
type Block struct {
	kind    Kind
	content string
}

// Text returns a text block.
func Text(body string) Block { return Block{kind: KindText, content: body} }

// Image returns an image block referencing path. Stored notes always carry
// paths relative to the data directory.
func Image(path string) Block { return Block{kind: KindImage, content: path} }

func (b Block) Kind() Kind { return b.kind }

// Body is the text of a text block and "" otherwise.
func (b Block) Body() string {
	if b.kind != KindText {
		return ""
	}
	return b.content
}

// Path is the image path of an image block and "" otherwise.
func (b Block) Path() string {
	if b.kind != KindImage {
		return ""
	}
	return b.content
}

func (b Block) String() string {
	return fmt.Sprintf("%s(%q)", b.kind, b.content)
}

type wireBlock struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func (b Block) MarshalJSON() ([]byte, error) {
	if b.kind != KindText && b.kind != KindImage {
		return nil, fmt.Errorf("marshalling block: unknown kind %q", b.kind)
	}
	return json.Marshal(wireBlock{Type: string(b.kind), Content: b.content})
}

func (b *Block) UnmarshalJSON(data []byte) error {
	var w wireBlock
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch Kind(w.Type) {
	case KindText, KindImage:
		*b = Block{kind: Kind(w.Type), content: w.Content}
		return nil
	}
	return fmt.Errorf("unknown block kind %q", w.Type)
}

func encodeBlocks(blocks []Block) (string, error) {
	if blocks == nil {
		blocks = []Block{}
	}
	out, err := json.Marshal(blocks)
	if err != nil {
		return "", fmt.Errorf("encoding note content: %w", err)
	}
	return string(out), nil
}

// decodeBlocks never fails: corrupt content decodes to no blocks and
// entries of an unknown kind are dropped.
func decodeBlocks(raw string, logger *slog.Logger) []Block {
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		logger.Warn("note content is corrupt, loading empty", "error", err)
		return []Block{}
	}
	blocks := make([]Block, 0, len(entries))
	for i, e := range entries {
		var b Block
		if err := json.Unmarshal(e, &b); err != nil {
			logger.Warn("dropping note block", "index", i, "error", err)
			continue
		}
		blocks = append(blocks, b)
	}
	return blocks
}
