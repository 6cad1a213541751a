package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fxamacker/cbor/v2"
	"github.com/pelletier/go-toml/v2"
)

// envelope is the wire shape of the binary document form.
type envelope struct {
	Fields map[string]any `json:"fields" cbor:"fields"`
	Funcs  []Function     `json:"funcs,omitempty" cbor:"funcs,omitempty"`
}

// Host is the default Engine. Codecs cover the binary document form
// (bstof, CBOR on the wire), json, toml, and textual responses. Function
// calls dispatch to handlers the host process registered by name; a
// document can only trigger side effects the host explicitly offers.
type Host struct {
	mu       sync.RWMutex
	handlers map[string]func(ctx context.Context) error
	logger   *log.Logger
}

var _ Engine = (*Host)(nil)

// NewHost creates a Host with no registered handlers.
func NewHost(logger *log.Logger) *Host {
	if logger == nil {
		logger = log.Default()
	}
	return &Host{
		handlers: make(map[string]func(ctx context.Context) error),
		logger:   logger,
	}
}

// Register installs a handler a document function can dispatch to.
func (h *Host) Register(name string, fn func(ctx context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[name] = fn
}

// normalizeFormat reduces a content-type tag to a codec name: bare
// extensions, "application/x" forms, and "text/*" all map down.
func normalizeFormat(format string) string {
	f := strings.ToLower(strings.TrimSpace(format))
	if i := strings.Index(f, ";"); i >= 0 {
		f = strings.TrimSpace(f[:i])
	}
	if strings.HasPrefix(f, "text/") || f == "text" {
		return "text"
	}
	f = strings.TrimPrefix(f, "application/")
	switch f {
	case "bstof", "json", "toml", "stof":
		return f
	}
	return f
}

// Decode parses document bytes in the given format.
func (h *Host) Decode(data []byte, format string) (*Document, error) {
	switch normalizeFormat(format) {
	case "bstof":
		var env envelope
		if err := cbor.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("bstof decode: %w", err)
		}
		return &Document{Fields: env.Fields, Funcs: env.Funcs}, nil
	case "json", "stof":
		// stof is a JSON superset; the JSON-compatible subset is enough
		// for data documents crossing this boundary.
		var env envelope
		if err := json.Unmarshal(data, &env); err == nil && (env.Fields != nil || env.Funcs != nil) {
			return &Document{Fields: env.Fields, Funcs: env.Funcs}, nil
		}
		var fields map[string]any
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("json decode: %w", err)
		}
		return &Document{Fields: fields}, nil
	case "toml":
		var fields map[string]any
		if err := toml.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("toml decode: %w", err)
		}
		return &Document{Fields: fields}, nil
	case "text":
		return &Document{Fields: map[string]any{"text": string(data)}}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Encode serializes a document in the given format.
func (h *Host) Encode(doc *Document, format string) ([]byte, error) {
	switch normalizeFormat(format) {
	case "bstof":
		data, err := cbor.Marshal(envelope{Fields: doc.Fields, Funcs: doc.Funcs})
		if err != nil {
			return nil, fmt.Errorf("bstof encode: %w", err)
		}
		return data, nil
	case "json", "stof":
		data, err := json.Marshal(envelope{Fields: doc.Fields, Funcs: doc.Funcs})
		if err != nil {
			return nil, fmt.Errorf("json encode: %w", err)
		}
		return data, nil
	case "toml":
		data, err := toml.Marshal(doc.Fields)
		if err != nil {
			return nil, fmt.Errorf("toml encode: %w", err)
		}
		return data, nil
	case "text":
		if v, ok := doc.FieldValue("text"); ok {
			return []byte(fmt.Sprint(v)), nil
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Call invokes the registered handler for a function reference.
func (h *Host) Call(ctx context.Context, fn Function) error {
	h.mu.RLock()
	handler, ok := h.handlers[fn.Name]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrFunctionNotFound, fn.Name)
	}
	h.logger.Debug("calling function", "name", fn.Name)
	return handler(ctx)
}
