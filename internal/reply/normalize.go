package reply

import "strings"

const (
	NoResponse      = "No response received"
	ProcessingError = "Error processing response"
)

// Normalize reduces a reply to display text. It never fails: unrecognized
// shapes are serialized and any panic during traversal becomes ProcessingError.
func Normalize(v Value) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = ProcessingError
		}
	}()

	switch v.kind {
	case KindString:
		return normalizeString(v.text)
	case KindNull:
		return NoResponse
	case KindArray:
		return joinTexts(v.items)
	case KindObject:
		return normalizeObject(v)
	case KindNumber, KindBool:
		return display(v)
	}
	return serialize(v)
}

func normalizeString(s string) string {
	parsed, err := FromJSON([]byte(s))
	if err != nil {
		return s
	}

	switch parsed.kind {
	case KindArray:
		if len(parsed.items) > 0 && !hasObject(parsed.items) {
			return s
		}
		return joinTexts(parsed.items)
	case KindObject:
		if text, ok := parsed.fields["text"]; ok && text.Truthy() {
			return display(text)
		}
	}
	return s
}

func normalizeObject(v Value) string {
	if text, ok := v.Path("message", "content", "text"); ok && text.kind == KindString && text.Truthy() {
		return text.text
	}

	if text, ok := v.fields["text"]; ok && text.Truthy() {
		return display(text)
	}

	if content, ok := v.fields["content"]; ok && content.Truthy() {
		if content.kind == KindString {
			return content.text
		}
		return serialize(content)
	}

	if content, ok := v.Path("message", "content"); ok && content.Truthy() {
		switch content.kind {
		case KindString:
			return content.text
		case KindArray:
			return joinTexts(content.items)
		}
		return serialize(content)
	}

	return serialize(v)
}

func hasObject(items []Value) bool {
	for _, item := range items {
		if item.kind == KindObject {
			return true
		}
	}
	return false
}

// joinTexts keeps the truthy text field of every object item, in order.
func joinTexts(items []Value) string {
	texts := make([]string, 0, len(items))
	for _, item := range items {
		text, ok := item.Field("text")
		if !ok || !text.Truthy() {
			continue
		}
		texts = append(texts, display(text))
	}
	return strings.Join(texts, "\n")
}

func display(v Value) string {
	switch v.kind {
	case KindString, KindNumber:
		return v.text
	case KindBool:
		if v.flag {
			return "true"
		}
		return "false"
	case KindNull:
		return ""
	}
	return serialize(v)
}

func serialize(v Value) string {
	data, err := v.MarshalJSON()
	if err != nil {
		return ProcessingError
	}
	return string(data)
}
