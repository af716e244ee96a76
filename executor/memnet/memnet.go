// Package memnet is an in-memory stand-in for the storage network.
//
// It implements every bridge operation against local maps so that the bridge can
// be run and tested end to end without a real network:
//
//	Store               hash (blake2b-256) and keep a message per destination+namespace
//	Poll                check each query's ed25519 signature, return newer messages
//	GetSnodes/GetSwarms return the configured node and swarm lists
//	UploadAttachment    keep bytes under their CIDv1 (raw, sha2-256)
//	DownloadAttachment  return the bytes as a raw result
package memnet

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"netbridge/errs"
	"netbridge/executor"
	"netbridge/message"
	"netbridge/schema"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"golang.org/x/crypto/blake2b"
)

type mailbox struct {
	destination string
	namespace   int64
}

// StoredMessage is one message as returned by Poll.
type StoredMessage struct {
	Hash       string `json:"hash"`
	Namespace  int64  `json:"namespace"`
	Data       string `json:"data"` // base64, as stored
	Timestamp  int64  `json:"timestamp"`
	Expiration int64  `json:"expiration"`
}

type StoreResult struct {
	Hash string `json:"hash"`
}

type PolledNamespace struct {
	Namespace schema.Namespace `json:"namespace"`
	Messages  []StoredMessage  `json:"messages"`
}

type PollResult struct {
	Namespaces []PolledNamespace `json:"namespaces"`
}

type SnodesResult struct {
	Snodes []schema.ServiceNode `json:"snodes"`
}

type SwarmsResult struct {
	Swarms []schema.Swarm `json:"swarms"`
}

// UploadResult identifies a stored attachment. Digest is the raw sha2-256
// digest inside the id's multihash.
type UploadResult struct {
	ID     string `json:"id"`
	Size   int    `json:"size"`
	Digest []byte `json:"digest"`
}

// Network is the in-memory executor. It is safe for concurrent use.
type Network struct {
	mux *executor.Mux
	now func() time.Time

	mu          sync.RWMutex
	messages    map[mailbox][]StoredMessage
	attachments map[string][]byte
	snodes      []schema.ServiceNode
	swarms      []schema.Swarm
}

type Option func(*Network)

// WithSnodes sets the list returned by GetSnodes.
func WithSnodes(nodes ...schema.ServiceNode) Option {
	return func(n *Network) { n.snodes = append(n.snodes, nodes...) }
}

// WithSwarms sets the list returned by GetSwarms.
func WithSwarms(swarms ...schema.Swarm) Option {
	return func(n *Network) { n.swarms = append(n.swarms, swarms...) }
}

// WithClock replaces time.Now, used for message expiry.
func WithClock(now func() time.Time) Option {
	return func(n *Network) { n.now = now }
}

func New(opts ...Option) *Network {
	n := &Network{
		now:         time.Now,
		messages:    make(map[mailbox][]StoredMessage),
		attachments: make(map[string][]byte),
		snodes:      []schema.ServiceNode{},
		swarms:      []schema.Swarm{},
	}
	for _, opt := range opts {
		opt(n)
	}

	n.mux = executor.NewMux()
	executor.Handle(n.mux, message.OpStore, n.store)
	executor.Handle(n.mux, message.OpPoll, n.poll)
	executor.Handle(n.mux, message.OpGetSwarms, n.getSwarms)
	executor.Handle(n.mux, message.OpUploadAttachment, n.uploadAttachment)
	executor.Handle(n.mux, message.OpDownloadAttachment, n.downloadAttachment)
	n.mux.HandleFunc(message.OpGetSnodes, n.getSnodes)
	return n
}

// Execute implements executor.Executor.
func (n *Network) Execute(ctx context.Context, op message.Op, body any) (any, error) {
	return n.mux.Execute(ctx, op, body)
}

func (n *Network) store(ctx context.Context, body *schema.StoreBody) (any, error) {
	data, err := base64.StdEncoding.DecodeString(body.Data64)
	if err != nil {
		return nil, errs.Wrap(errs.CategoryValidation, errs.CodeGeneric, "data64 is not valid base64", err)
	}

	h, _ := blake2b.New256(nil)
	h.Write([]byte(body.Destination))
	h.Write([]byte(strconv.FormatInt(body.Namespace, 10)))
	h.Write([]byte(strconv.FormatInt(body.Timestamp, 10)))
	h.Write(data)
	hash := base64.RawURLEncoding.EncodeToString(h.Sum(nil))

	box := mailbox{destination: body.Destination, namespace: body.Namespace}

	n.mu.Lock()
	defer n.mu.Unlock()
	for _, m := range n.messages[box] {
		if m.Hash == hash {
			return StoreResult{Hash: hash}, nil
		}
	}
	n.messages[box] = append(n.messages[box], StoredMessage{
		Hash:       hash,
		Namespace:  body.Namespace,
		Data:       body.Data64,
		Timestamp:  body.Timestamp,
		Expiration: body.Timestamp + body.TTL,
	})
	return StoreResult{Hash: hash}, nil
}

// RetrieveMessage is the text a client signs to poll a namespace.
func RetrieveMessage(ns schema.Namespace, timestamp int64) []byte {
	return []byte("retrieve" + ns.String() + strconv.FormatInt(timestamp, 10))
}

func verifyQuery(q schema.NamespaceQuery) error {
	pub, err := hex.DecodeString(q.Signature.PubkeyEd25519)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return errs.Crypto(errs.CodeInvalidSignature, "invalid ed25519 public key")
	}
	sig, err := base64.StdEncoding.DecodeString(q.Signature.Signature)
	if err != nil {
		return errs.Crypto(errs.CodeInvalidSignature, "signature is not valid base64")
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), RetrieveMessage(q.Namespace, q.Signature.Timestamp), sig) {
		return errs.Crypto(errs.CodeInvalidSignature, "signature verification failed for namespace "+q.Namespace.String())
	}
	return nil
}

func (n *Network) poll(ctx context.Context, body *schema.PollBody) (any, error) {
	for _, q := range body.Namespaces {
		if err := verifyQuery(q); err != nil {
			return nil, err
		}
	}

	nowMs := n.now().UnixMilli()
	result := PollResult{Namespaces: make([]PolledNamespace, 0, len(body.Namespaces))}

	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, q := range body.Namespaces {
		var found []StoredMessage
		if q.Namespace.All {
			found = n.collectAll(q.Pubkey)
		} else {
			found = append(found, n.messages[mailbox{destination: q.Pubkey, namespace: q.Namespace.Value}]...)
		}

		messages := make([]StoredMessage, 0, len(found))
		for _, m := range afterHash(found, q.LastHash) {
			if m.Expiration > nowMs {
				messages = append(messages, m)
			}
		}
		result.Namespaces = append(result.Namespaces, PolledNamespace{Namespace: q.Namespace, Messages: messages})
	}
	return result, nil
}

// collectAll gathers a destination's messages across namespaces, ordered by
// namespace then arrival. Callers hold n.mu.
func (n *Network) collectAll(destination string) []StoredMessage {
	var boxes []mailbox
	for box := range n.messages {
		if box.destination == destination {
			boxes = append(boxes, box)
		}
	}
	sort.Slice(boxes, func(i, j int) bool { return boxes[i].namespace < boxes[j].namespace })

	var out []StoredMessage
	for _, box := range boxes {
		out = append(out, n.messages[box]...)
	}
	return out
}

// afterHash returns the messages stored after lastHash, or all of them when
// lastHash is empty or unknown.
func afterHash(messages []StoredMessage, lastHash string) []StoredMessage {
	if lastHash == "" {
		return messages
	}
	for i, m := range messages {
		if m.Hash == lastHash {
			return messages[i+1:]
		}
	}
	return messages
}

func (n *Network) getSnodes(ctx context.Context, _ any) (any, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return SnodesResult{Snodes: append([]schema.ServiceNode{}, n.snodes...)}, nil
}

func (n *Network) getSwarms(ctx context.Context, body *schema.GetSwarmsBody) (any, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return SwarmsResult{Swarms: append([]schema.Swarm{}, n.swarms...)}, nil
}

func (n *Network) uploadAttachment(ctx context.Context, body *schema.UploadAttachmentBody) (any, error) {
	sum, err := multihash.Sum(body.Data, multihash.SHA2_256, -1)
	if err != nil {
		return nil, err
	}
	decoded, err := multihash.Decode(sum)
	if err != nil {
		return nil, err
	}
	id := cid.NewCidV1(cid.Raw, sum).String()

	data := make([]byte, len(body.Data))
	copy(data, body.Data)

	n.mu.Lock()
	n.attachments[id] = data
	n.mu.Unlock()

	return UploadResult{ID: id, Size: len(data), Digest: decoded.Digest}, nil
}

func (n *Network) downloadAttachment(ctx context.Context, body *schema.DownloadAttachmentBody) (any, error) {
	if _, err := cid.Decode(body.ID); err != nil {
		return nil, errs.Wrap(errs.CategoryValidation, errs.CodeGeneric, "invalid attachment id", err)
	}

	n.mu.RLock()
	data, ok := n.attachments[body.ID]
	n.mu.RUnlock()
	if !ok {
		return nil, errs.Fetch(errs.CodeNotFound, "attachment not found: "+body.ID)
	}
	return message.Raw(bytes.Clone(data)), nil
}
