// Package schema holds the per-operation body schemas checked by the server.
//
// A body is accepted in three passes, all of which must succeed:
//
//	presence   every non-optional field exists and is not null
//	decoding   encoding/json into the typed body (integers accept 1.0 and 1e3
//	           but reject fractions, codec.Bytes fields reinterpret int arrays
//	           as bytes)
//	validation go-playground/validator struct tags (ip, gt=0, dive, ...)
//
// Operations without a registered schema have no body constraints.
package schema

import (
	"encoding/json"
	"fmt"
	"netbridge/message"
	"reflect"

	"github.com/go-playground/validator/v10"
)

// validate is safe for concurrent use and caches struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Schema decodes and checks one operation's body.
type Schema interface {
	Decode(raw json.RawMessage) (any, error)
}

type bodySchema[T any] struct{}

// For returns the schema described by T's struct tags. Decode yields a *T.
func For[T any]() Schema {
	return bodySchema[T]{}
}

func (bodySchema[T]) Decode(raw json.RawMessage) (any, error) {
	body := new(T)
	if err := checkPresence(raw, reflect.TypeOf(body).Elem(), "body"); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(canonicalIntegers(raw), body); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	if err := validate.Struct(body); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return body, nil
}

// Registry maps operations to their body schema. It is filled once at startup
// and only read afterwards.
type Registry struct {
	schemas map[message.Op]Schema
}

func NewRegistry() *Registry {
	return &Registry{schemas: make(map[message.Op]Schema)}
}

// Register sets op's schema, replacing any previous one.
func (r *Registry) Register(op message.Op, s Schema) {
	r.schemas[op] = s
}

// Lookup returns op's schema. A miss is not an error: the operation takes no
// structured input.
func (r *Registry) Lookup(op message.Op) (Schema, bool) {
	s, ok := r.schemas[op]
	return s, ok
}

// Default returns the registry used by the bridge server. GetSnodes is
// deliberately absent.
func Default() *Registry {
	r := NewRegistry()
	r.Register(message.OpPoll, For[PollBody]())
	r.Register(message.OpStore, For[StoreBody]())
	r.Register(message.OpGetSwarms, For[GetSwarmsBody]())
	r.Register(message.OpUploadAttachment, For[UploadAttachmentBody]())
	r.Register(message.OpDownloadAttachment, For[DownloadAttachmentBody]())
	return r
}
