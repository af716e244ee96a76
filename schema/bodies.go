package schema

import (
	"bytes"
	"errors"
	"fmt"
	"netbridge/codec"
	"strconv"
	"strings"
)

// Swarm addresses the storage node a request is routed through.
type Swarm struct {
	IP            string `json:"ip" validate:"ip"`
	Port          Port   `json:"port" validate:"gt=0"`
	PubkeyEd25519 string `json:"pubkey_ed25519"`
	PubkeyX25519  string `json:"pubkey_x25519"`
}

// ServiceNode describes a storage node as listed by the network.
type ServiceNode struct {
	PublicIP      string `json:"public_ip" validate:"ip"`
	StoragePort   int64  `json:"storage_port" validate:"gt=0"`
	PubkeyX25519  string `json:"pubkey_x25519"`
	PubkeyEd25519 string `json:"pubkey_ed25519"`
}

type NamespaceSignature struct {
	Timestamp     int64  `json:"timestamp" validate:"gt=0"`
	PubkeyEd25519 string `json:"pubkeyEd25519"`
	Signature     string `json:"signature"`
}

// NamespaceQuery asks for the messages of one namespace of one account.
type NamespaceQuery struct {
	Namespace   Namespace          `json:"namespace"`
	Pubkey      string             `json:"pubkey"`
	IsOurPubkey bool               `json:"isOurPubkey"`
	LastHash    string             `json:"lastHash,omitempty"`
	Signature   NamespaceSignature `json:"signature"`
}

type PollBody struct {
	Swarm      Swarm            `json:"swarm"`
	Namespaces []NamespaceQuery `json:"namespaces" validate:"dive"`
}

type StoreBody struct {
	Data64      string `json:"data64"`
	Destination string `json:"destination"`
	TTL         int64  `json:"ttl" validate:"gt=0"`
	Timestamp   int64  `json:"timestamp" validate:"gt=0"`
	Namespace   int64  `json:"namespace"`
	Swarm       Swarm  `json:"swarm"`
}

type GetSwarmsBody struct {
	Snode  ServiceNode `json:"snode"`
	Pubkey string      `json:"pubkey"`
}

type UploadAttachmentBody struct {
	Data codec.Bytes `json:"data"`
}

type DownloadAttachmentBody struct {
	ID string `json:"id" validate:"required"`
}

// Port is a TCP port. Numeric strings are accepted and coerced ("443" → 443)
// since some node lists publish ports as strings.
type Port int64

func (p *Port) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(text)
		if err != nil {
			return fmt.Errorf("schema: bad port %s", text)
		}
		text = strings.TrimSpace(s)
	}
	n, err := integral(text)
	if err != nil {
		return fmt.Errorf("schema: port must be an integer, got %s", string(data))
	}
	*p = Port(n)
	return nil
}

var errNamespace = errors.New(`schema: namespace must be an integer or "all"`)

// Namespace selects one message namespace, or every namespace when All is set.
type Namespace struct {
	All   bool
	Value int64
}

// AllNamespaces is the "all" selector.
var AllNamespaces = Namespace{All: true}

func (n Namespace) MarshalJSON() ([]byte, error) {
	if n.All {
		return []byte(`"all"`), nil
	}
	return []byte(strconv.FormatInt(n.Value, 10)), nil
}

func (n *Namespace) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == `"all"` {
		*n = AllNamespaces
		return nil
	}
	v, err := integral(string(data))
	if err != nil {
		return errNamespace
	}
	*n = Namespace{Value: v}
	return nil
}

// String is the namespace as it appears in signed retrieve requests: empty for
// the default namespace 0, "all" for every namespace, the number otherwise.
func (n Namespace) String() string {
	switch {
	case n.All:
		return "all"
	case n.Value == 0:
		return ""
	}
	return strconv.FormatInt(n.Value, 10)
}
