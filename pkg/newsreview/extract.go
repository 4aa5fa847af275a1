package newsreview

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Segment types of the structured body.
const (
	SegmentText  = "text"
	SegmentImage = "image"
)

// Segment is one element of a draft body.
type Segment struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Extracted is the plain text and image references of a draft.
type Extracted struct {
	Text   string
	Images []string
}

// ParseBody decodes a structured body. An empty body or JSON null yields no
// segments.
func ParseBody(body string) ([]Segment, error) {
	raw := bytes.TrimSpace([]byte(body))
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] != '[' {
		return nil, fmt.Errorf("%w: body is not an array of segments", ErrMalformedBody)
	}

	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	segments := make([]Segment, 0, len(items))
	for i, item := range items {
		if item == nil {
			return nil, fmt.Errorf("%w: segment %d is null", ErrMalformedBody, i)
		}
		var seg Segment
		if err := decodeField(item, "type", &seg.Type); err != nil {
			return nil, fmt.Errorf("%w: segment %d: %v", ErrMalformedBody, i, err)
		}
		if err := decodeField(item, "value", &seg.Value); err != nil {
			return nil, fmt.Errorf("%w: segment %d: %v", ErrMalformedBody, i, err)
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

func decodeField(item map[string]json.RawMessage, key string, dst *string) error {
	raw, ok := item[key]
	if !ok || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("field %q is not a string", key)
	}
	return nil
}

// ExtractContent returns the concatenated text segments and the image
// references of a draft. Flat cover images are appended when the layout is
// not LayoutNone. Segments of unknown type are ignored.
func ExtractContent(draft *Draft) (*Extracted, error) {
	segments, err := ParseBody(draft.Content)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	out := &Extracted{}
	for _, seg := range segments {
		switch seg.Type {
		case SegmentText:
			sb.WriteString(seg.Value)
		case SegmentImage:
			if ref := strings.TrimSpace(seg.Value); ref != "" {
				out.Images = append(out.Images, ref)
			}
		}
	}

	if draft.Layout != LayoutNone {
		for _, ref := range draft.Images {
			if ref = strings.TrimSpace(ref); ref != "" {
				out.Images = append(out.Images, ref)
			}
		}
	}

	out.Text = sb.String()
	return out, nil
}

// SplitImages parses the comma separated image column format.
func SplitImages(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinImages renders images in the comma separated column format.
func JoinImages(images []string) string {
	return strings.Join(images, ",")
}
