package protocol

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/call.schema.json
var callSchemaJSON string

var (
	callSchemaOnce sync.Once
	callSchema     *jsonschema.Schema
	callSchemaErr  error
)

func compiledCallSchema() (*jsonschema.Schema, error) {
	callSchemaOnce.Do(func() {
		callSchema, callSchemaErr = jsonschema.CompileString("call.schema.json", callSchemaJSON)
	})
	return callSchema, callSchemaErr
}

// DecodeCall validates raw JSON against the call schema before decoding it.
func DecodeCall(b []byte) (Call, error) {
	var c Call
	s, err := compiledCallSchema()
	if err != nil {
		return c, fmt.Errorf("call schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return c, fmt.Errorf("%s: %w", ErrProtoBadRequest, err)
	}
	if err := s.Validate(doc); err != nil {
		return c, fmt.Errorf("%s: %w", ErrProtoBadRequest, err)
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("%s: %w", ErrProtoBadRequest, err)
	}
	c.Origin = strings.TrimSpace(c.Origin)
	c.Recipient = strings.TrimSpace(c.Recipient)
	if c.Origin == "" {
		return c, fmt.Errorf("%s: blank origin", ErrProtoBadRequest)
	}
	if c.Type == TypeGiveChunk && c.Recipient == "" {
		return c, fmt.Errorf("%s: blank recipient", ErrProtoBadRequest)
	}
	return c, nil
}
