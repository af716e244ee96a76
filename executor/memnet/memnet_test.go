package memnet

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"netbridge/codec"
	"netbridge/errs"
	"netbridge/message"
	"netbridge/schema"
	"testing"
	"time"

	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSwarm = schema.Swarm{IP: "10.0.0.1", Port: 22021, PubkeyEd25519: "ed", PubkeyX25519: "x"}

func fixedClock() time.Time { return time.UnixMilli(1_700_000_000_000) }

func signedQuery(t *testing.T, priv ed25519.PrivateKey, pub ed25519.PublicKey, ns schema.Namespace, dest string) schema.NamespaceQuery {
	t.Helper()
	ts := fixedClock().UnixMilli()
	sig := ed25519.Sign(priv, RetrieveMessage(ns, ts))
	return schema.NamespaceQuery{
		Namespace:   ns,
		Pubkey:      dest,
		IsOurPubkey: true,
		Signature: schema.NamespaceSignature{
			Timestamp:     ts,
			PubkeyEd25519: hex.EncodeToString(pub),
			Signature:     base64.StdEncoding.EncodeToString(sig),
		},
	}
}

func store(t *testing.T, n *Network, dest string, ns int64, data string) string {
	t.Helper()
	res, err := n.Execute(context.Background(), message.OpStore, &schema.StoreBody{
		Data64:      base64.StdEncoding.EncodeToString([]byte(data)),
		Destination: dest,
		TTL:         60_000,
		Timestamp:   fixedClock().UnixMilli(),
		Namespace:   ns,
		Swarm:       testSwarm,
	})
	require.NoError(t, err)
	return res.(StoreResult).Hash
}

func TestStoreThenPoll(t *testing.T) {
	n := New(WithClock(fixedClock))
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	h1 := store(t, n, "05aa", 0, "first")
	h2 := store(t, n, "05aa", 0, "second")
	store(t, n, "05aa", -10, "config")
	store(t, n, "05bb", 0, "someone else")
	assert.Equal(t, h1, store(t, n, "05aa", 0, "first"), "identical stores are deduplicated")

	res, err := n.Execute(context.Background(), message.OpPoll, &schema.PollBody{
		Swarm: testSwarm,
		Namespaces: []schema.NamespaceQuery{
			signedQuery(t, priv, pub, schema.Namespace{}, "05aa"),
			signedQuery(t, priv, pub, schema.AllNamespaces, "05aa"),
		},
	})
	require.NoError(t, err)

	polled := res.(PollResult).Namespaces
	require.Len(t, polled, 2)
	require.Len(t, polled[0].Messages, 2)
	assert.Equal(t, h1, polled[0].Messages[0].Hash)
	assert.Equal(t, h2, polled[0].Messages[1].Hash)
	require.Len(t, polled[1].Messages, 3)
	assert.Equal(t, int64(-10), polled[1].Messages[0].Namespace)

	q := signedQuery(t, priv, pub, schema.Namespace{}, "05aa")
	q.LastHash = h1
	res, err = n.Execute(context.Background(), message.OpPoll, &schema.PollBody{Swarm: testSwarm, Namespaces: []schema.NamespaceQuery{q}})
	require.NoError(t, err)
	after := res.(PollResult).Namespaces[0].Messages
	require.Len(t, after, 1)
	assert.Equal(t, h2, after[0].Hash)
}

func TestPollDropsExpiredMessages(t *testing.T) {
	now := fixedClock()
	n := New(WithClock(func() time.Time { return now }))
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	store(t, n, "05aa", 0, "short lived")

	now = now.Add(2 * time.Minute)
	res, err := n.Execute(context.Background(), message.OpPoll, &schema.PollBody{
		Swarm:      testSwarm,
		Namespaces: []schema.NamespaceQuery{signedQuery(t, priv, pub, schema.Namespace{}, "05aa")},
	})
	require.NoError(t, err)
	assert.Empty(t, res.(PollResult).Namespaces[0].Messages)
}

func TestPollRejectsBadSignature(t *testing.T) {
	n := New(WithClock(fixedClock))
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	q := signedQuery(t, priv, pub, schema.Namespace{Value: 5}, "05aa")
	q.Signature.Timestamp++ // signed text no longer matches

	_, err = n.Execute(context.Background(), message.OpPoll, &schema.PollBody{Swarm: testSwarm, Namespaces: []schema.NamespaceQuery{q}})
	assert.True(t, errs.HasCode(err, errs.CategoryCrypto, errs.CodeInvalidSignature), "got %v", err)

	q.Signature.PubkeyEd25519 = "zz"
	_, err = n.Execute(context.Background(), message.OpPoll, &schema.PollBody{Swarm: testSwarm, Namespaces: []schema.NamespaceQuery{q}})
	assert.True(t, errs.IsCategory(err, errs.CategoryCrypto))
}

func TestStoreRejectsBadBase64(t *testing.T) {
	_, err := New().Execute(context.Background(), message.OpStore, &schema.StoreBody{Data64: "%%%", Destination: "d", TTL: 1, Timestamp: 1, Swarm: testSwarm})
	assert.True(t, errs.HasCode(err, errs.CategoryValidation, errs.CodeGeneric))
}

func TestAttachmentUploadDownload(t *testing.T) {
	n := New()
	data := []byte{0, 1, 2, 3, 255}

	res, err := n.Execute(context.Background(), message.OpUploadAttachment, &schema.UploadAttachmentBody{Data: codec.Bytes(data)})
	require.NoError(t, err)
	uploaded := res.(UploadResult)
	id := uploaded.ID
	assert.Equal(t, len(data), uploaded.Size)
	assert.Len(t, uploaded.Digest, 32)

	res, err = n.Execute(context.Background(), message.OpDownloadAttachment, &schema.DownloadAttachmentBody{ID: id})
	require.NoError(t, err)
	assert.Equal(t, message.Raw(data), res)

	_, err = n.Execute(context.Background(), message.OpDownloadAttachment, &schema.DownloadAttachmentBody{ID: "not-a-cid"})
	assert.True(t, errs.IsCategory(err, errs.CategoryValidation))
}

func TestDownloadUnknownAttachment(t *testing.T) {
	n := New()
	res, err := n.Execute(context.Background(), message.OpUploadAttachment, &schema.UploadAttachmentBody{Data: codec.Bytes("x")})
	require.NoError(t, err)
	id := res.(UploadResult).ID

	_, err = New().Execute(context.Background(), message.OpDownloadAttachment, &schema.DownloadAttachmentBody{ID: id})
	assert.True(t, errs.HasCode(err, errs.CategoryFetch, errs.CodeNotFound))
}

func TestNodeLists(t *testing.T) {
	node := schema.ServiceNode{PublicIP: "10.0.0.2", StoragePort: 443, PubkeyX25519: "x", PubkeyEd25519: "e"}
	n := New(WithSnodes(node), WithSwarms(testSwarm))

	res, err := n.Execute(context.Background(), message.OpGetSnodes, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, []schema.ServiceNode{node}, res.(SnodesResult).Snodes)

	res, err = n.Execute(context.Background(), message.OpGetSwarms, &schema.GetSwarmsBody{Snode: node, Pubkey: "05aa"})
	require.NoError(t, err)
	assert.Equal(t, []schema.Swarm{testSwarm}, res.(SwarmsResult).Swarms)
}
