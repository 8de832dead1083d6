package llmrpc

import (
	"fmt"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"
)

// Message is implemented by every RemoteLLM wire record.
type Message interface {
	Marshal() ([]byte, error)
	Unmarshal(b []byte) error
}

var (
	_ Message = (*GenerateRequest)(nil)
	_ Message = (*GenerateReply)(nil)
	_ Message = (*GenerateReplyGeneration)(nil)
	_ Message = (*GenerateReplyGenerationList)(nil)
	_ Message = (*LLMTypeRequest)(nil)
	_ Message = (*LLMTypeReply)(nil)
)

// GenerateRequest asks for generations for a batch of prompts.
type GenerateRequest struct {
	Prompts []string
	Stop    []string
}

func (m *GenerateRequest) GetPrompts() []string {
	if m == nil {
		return nil
	}
	return m.Prompts
}

func (m *GenerateRequest) GetStop() []string {
	if m == nil {
		return nil
	}
	return m.Stop
}

func (m *GenerateRequest) Marshal() ([]byte, error) {
	return m.appendWire(nil)
}

func (m *GenerateRequest) appendWire(b []byte) ([]byte, error) {
	if m == nil {
		return b, nil
	}
	var err error
	for _, p := range m.Prompts {
		if b, err = appendString(b, 1, "GenerateRequest.prompts", p); err != nil {
			return nil, err
		}
	}
	for _, s := range m.Stop {
		if b, err = appendString(b, 2, "GenerateRequest.stop", s); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (m *GenerateRequest) Unmarshal(b []byte) error {
	*m = GenerateRequest{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n, err := consumeString(b, "GenerateRequest.prompts")
			if n >= 0 && err == nil {
				m.Prompts = append(m.Prompts, v)
			}
			return n, err
		case num == 2 && typ == protowire.BytesType:
			v, n, err := consumeString(b, "GenerateRequest.stop")
			if n >= 0 && err == nil {
				m.Stop = append(m.Stop, v)
			}
			return n, err
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

// GenerateReply carries one generation list per request prompt.
type GenerateReply struct {
	Generations []*GenerateReplyGenerationList
}

func (m *GenerateReply) GetGenerations() []*GenerateReplyGenerationList {
	if m == nil {
		return nil
	}
	return m.Generations
}

func (m *GenerateReply) Marshal() ([]byte, error) {
	return m.appendWire(nil)
}

func (m *GenerateReply) appendWire(b []byte) ([]byte, error) {
	if m == nil {
		return b, nil
	}
	for _, l := range m.Generations {
		v, err := l.appendWire(nil)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, v)
	}
	return b, nil
}

func (m *GenerateReply) Unmarshal(b []byte) error {
	*m = GenerateReply{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			l := new(GenerateReplyGenerationList)
			if err := l.Unmarshal(v); err != nil {
				return 0, err
			}
			m.Generations = append(m.Generations, l)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

// GenerateReplyGeneration is a single generated continuation.
type GenerateReplyGeneration struct {
	Text string
	// JSON object with additional information about the generation.
	GenerationInfo string
}

func (m *GenerateReplyGeneration) GetText() string {
	if m == nil {
		return ""
	}
	return m.Text
}

func (m *GenerateReplyGeneration) GetGenerationInfo() string {
	if m == nil {
		return ""
	}
	return m.GenerationInfo
}

func (m *GenerateReplyGeneration) Marshal() ([]byte, error) {
	return m.appendWire(nil)
}

func (m *GenerateReplyGeneration) appendWire(b []byte) ([]byte, error) {
	if m == nil {
		return b, nil
	}
	var err error
	if m.Text != "" {
		if b, err = appendString(b, 1, "GenerateReplyGeneration.text", m.Text); err != nil {
			return nil, err
		}
	}
	if m.GenerationInfo != "" {
		if b, err = appendString(b, 2, "GenerateReplyGeneration.generation_info", m.GenerationInfo); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (m *GenerateReplyGeneration) Unmarshal(b []byte) error {
	*m = GenerateReplyGeneration{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n, err := consumeString(b, "GenerateReplyGeneration.text")
			m.Text = v
			return n, err
		case num == 2 && typ == protowire.BytesType:
			v, n, err := consumeString(b, "GenerateReplyGeneration.generation_info")
			m.GenerationInfo = v
			return n, err
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

// GenerateReplyGenerationList holds the ranked generations for one prompt.
type GenerateReplyGenerationList struct {
	Generations []*GenerateReplyGeneration
}

func (m *GenerateReplyGenerationList) GetGenerations() []*GenerateReplyGeneration {
	if m == nil {
		return nil
	}
	return m.Generations
}

func (m *GenerateReplyGenerationList) Marshal() ([]byte, error) {
	return m.appendWire(nil)
}

func (m *GenerateReplyGenerationList) appendWire(b []byte) ([]byte, error) {
	if m == nil {
		return b, nil
	}
	for _, g := range m.Generations {
		v, err := g.appendWire(nil)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, v)
	}
	return b, nil
}

func (m *GenerateReplyGenerationList) Unmarshal(b []byte) error {
	*m = GenerateReplyGenerationList{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			g := new(GenerateReplyGeneration)
			if err := g.Unmarshal(v); err != nil {
				return 0, err
			}
			m.Generations = append(m.Generations, g)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

// LLMTypeRequest asks the server which backend it wraps.
type LLMTypeRequest struct{}

func (m *LLMTypeRequest) Marshal() ([]byte, error) {
	return nil, nil
}

func (m *LLMTypeRequest) Unmarshal(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

// LLMTypeReply names the backend type, without any client-side tag.
type LLMTypeReply struct {
	LlmType string
}

func (m *LLMTypeReply) GetLlmType() string {
	if m == nil {
		return ""
	}
	return m.LlmType
}

func (m *LLMTypeReply) Marshal() ([]byte, error) {
	if m == nil || m.LlmType == "" {
		return nil, nil
	}
	return appendString(nil, 1, "LLMTypeReply.llm_type", m.LlmType)
}

func (m *LLMTypeReply) Unmarshal(b []byte) error {
	*m = LLMTypeReply{}
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 && typ == protowire.BytesType {
			v, n, err := consumeString(b, "LLMTypeReply.llm_type")
			m.LlmType = v
			return n, err
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

// proto3 string fields must hold valid UTF-8.
func appendString(b []byte, num protowire.Number, field, v string) ([]byte, error) {
	if !utf8.ValidString(v) {
		return nil, invalidUTF8(field)
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v), nil
}

func consumeString(b []byte, field string) (string, int, error) {
	v, n := protowire.ConsumeString(b)
	if n < 0 {
		return "", n, nil
	}
	if !utf8.ValidString(v) {
		return "", 0, invalidUTF8(field)
	}
	return v, n, nil
}

func invalidUTF8(field string) error {
	return fmt.Errorf("llmrpc: string field llm_rpc.api.%s contains invalid UTF-8", field)
}

// walk iterates the fields of an encoded message. field consumes the value
// that follows each tag and returns how many bytes it used; a negative count
// is a protowire parse error.
func walk(b []byte, field func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		n, err := field(num, typ, b)
		if err != nil {
			return err
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
	}
	return nil
}
