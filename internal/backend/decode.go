package backend

import (
	"errors"
	"fmt"

	"github.com/liliang-cn/policychat/internal/domain"
	"github.com/tidwall/gjson"
)

var (
	errInvalidJSON = errors.New("response body is not a JSON object")
	errMissingText = errors.New("response has no text field")
)

// DecodeResponse interprets a backend reply. An explicit error field wins over
// the HTTP status so that backend-supplied messages reach the user.
func DecodeResponse(status int, data []byte) (*domain.ChatResponse, error) {
	ok2xx := status >= 200 && status < 300

	if !gjson.ValidBytes(data) {
		if !ok2xx {
			return nil, &TransportError{Status: status, Err: fmt.Errorf("unexpected status %d", status)}
		}
		return nil, &TransportError{Status: status, Err: errInvalidJSON}
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, &TransportError{Status: status, Err: errInvalidJSON}
	}

	if msg := errorMessage(root.Get("error")); msg != "" {
		return nil, &LogicalError{Status: status, Message: msg}
	}
	if !ok2xx {
		return nil, &TransportError{Status: status, Err: fmt.Errorf("unexpected status %d", status)}
	}

	text := root.Get("text")
	if text.Type != gjson.String {
		return nil, &TransportError{Status: status, Err: errMissingText}
	}

	return &domain.ChatResponse{
		Text:            text.Str,
		SourceDocuments: sourceDocuments(root.Get("sourceDocuments")),
	}, nil
}

// errorMessage extracts a usable message from a truthy error field
func errorMessage(field gjson.Result) string {
	switch field.Type {
	case gjson.String:
		return field.Str
	case gjson.JSON:
		if msg := field.Get("message"); msg.Type == gjson.String && msg.Str != "" {
			return msg.Str
		}
		return field.Raw
	case gjson.True:
		return domain.GenericFailureMessage
	case gjson.Number:
		if field.Num != 0 {
			return field.Raw
		}
	}
	return ""
}

// sourceDocuments tolerates a missing, null or malformed list; entries that
// are not objects are dropped and order is preserved.
func sourceDocuments(field gjson.Result) []domain.SourceDocument {
	if !field.IsArray() {
		return nil
	}
	var docs []domain.SourceDocument
	field.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		doc := domain.SourceDocument{
			PageContent: item.Get("pageContent").String(),
		}
		if md := item.Get("metadata"); md.IsObject() {
			if m, ok := md.Value().(map[string]any); ok && len(m) > 0 {
				doc.Metadata = m
			}
		}
		docs = append(docs, doc)
		return true
	})
	return docs
}
